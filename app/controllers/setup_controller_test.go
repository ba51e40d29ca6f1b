package controllers

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/MemberFox/MemberFox/internal/pkg/constants"
)

func TestSetupStepRoute(t *testing.T) {
	tests := []struct {
		name               string
		profileComplete    bool
		tierSelected       bool
		subscriptionActive bool
		want               string
	}{
		{
			name: "fresh account starts at the profile step",
			want: constants.SetupProfileRoute,
		},
		{
			name:            "profile done moves to tier selection",
			profileComplete: true,
			want:            constants.SetupTierRoute,
		},
		{
			name:            "tier chosen moves to the subscription step",
			profileComplete: true,
			tierSelected:    true,
			want:            constants.SetupSubscriptionRoute,
		},
		{
			name:               "active subscription finishes the wizard",
			profileComplete:    true,
			tierSelected:       true,
			subscriptionActive: true,
			want:               constants.SetupDoneRoute,
		},
		{
			name:               "missing profile wins over later state",
			tierSelected:       true,
			subscriptionActive: true,
			want:               constants.SetupProfileRoute,
		},
		{
			name:               "missing tier wins over an active subscription",
			profileComplete:    true,
			subscriptionActive: true,
			want:               constants.SetupTierRoute,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := setupStepRoute(tt.profileComplete, tt.tierSelected, tt.subscriptionActive)
			assert.Equal(t, tt.want, got)
		})
	}
}
