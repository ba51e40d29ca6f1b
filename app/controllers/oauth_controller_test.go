package controllers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/MemberFox/MemberFox/app/models"
	"github.com/MemberFox/MemberFox/internal/pkg/constants"
)

func TestOAuthRedirectTarget(t *testing.T) {
	now := time.Now()
	member := &models.User{Role: models.ROLE_MEMBER, SetupCompletedAt: &now}
	freshMember := &models.User{Role: models.ROLE_MEMBER}
	admin := &models.User{Role: models.ROLE_ADMIN}

	tests := []struct {
		name string
		user *models.User
		next string
		want string
	}{
		{
			name: "member without target lands on the dashboard",
			user: member,
			want: constants.MemberDashboardRoute,
		},
		{
			name: "admin without target lands on the admin area",
			user: admin,
			want: constants.AdminRoute,
		},
		{
			name: "requested internal target is honored",
			user: member,
			next: "/payments/",
			want: "/payments/",
		},
		{
			name: "foreign origin target falls back to the dashboard",
			user: member,
			next: "https://evil.com/x",
			want: constants.MemberDashboardRoute,
		},
		{
			name: "unfinished onboarding wins over any requested target",
			user: freshMember,
			next: "/payments/",
			want: constants.SetupRoute,
		},
		{
			name: "admins skip the onboarding gate",
			user: admin,
			next: "/admin/members",
			want: "/admin/members",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, oauthRedirectTarget(tt.user, tt.next))
		})
	}
}
