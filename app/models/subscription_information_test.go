package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSubscriptionActiveAt(t *testing.T) {
	now := time.Now()
	end := now.Add(30 * 24 * time.Hour)
	past := now.Add(-24 * time.Hour)

	tests := []struct {
		name string
		sub  SubscriptionInformation
		want bool
	}{
		{"window covers now", SubscriptionInformation{Start: past, End: &end}, true},
		{"open ended", SubscriptionInformation{Start: past}, true},
		{"starts in the future", SubscriptionInformation{Start: now.Add(time.Hour)}, false},
		{"already over", SubscriptionInformation{Start: past.Add(-48 * time.Hour), End: &past}, false},
		{"ends exactly now", SubscriptionInformation{Start: past, End: &now}, true},
		{"starts exactly now", SubscriptionInformation{Start: now, End: &end}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.sub.ActiveAt(now))
		})
	}
}
