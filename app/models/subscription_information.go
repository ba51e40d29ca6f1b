package models

import "time"

const (
	SubscriptionStatusActive     = "active"
	SubscriptionStatusTrialing   = "trialing"
	SubscriptionStatusPastDue    = "past_due"
	SubscriptionStatusCanceled   = "canceled"
	SubscriptionStatusIncomplete = "incomplete"
)

// StarterSubscriptionID is the synthetic provider id used for locally
// created starter-tier windows, which never exist on the provider side.
const StarterSubscriptionID = "starter"

// SubscriptionInformation is one billing window of a membership. Rows come
// from starter-tier synthesis or from syncing Stripe's subscription list;
// sync overwrites by (membership_id, provider_subscription_id).
type SubscriptionInformation struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	MembershipID           uint       `gorm:"not null;index;index:ux_subscription_membership_provider,unique,priority:1" json:"membership_id"`
	ProviderSubscriptionID string     `gorm:"type:varchar(191);not null;default:'';index:ux_subscription_membership_provider,unique,priority:2" json:"provider_subscription_id"`
	Tier                   string     `gorm:"type:varchar(10);not null" json:"tier"`
	Status                 string     `gorm:"type:varchar(32);not null;default:'active'" json:"status"`
	Start                  time.Time  `gorm:"not null;index" json:"start"`
	End                    *time.Time `gorm:"type:timestamp;default:null;index" json:"end,omitempty"` // nil = open-ended
	CreatedAt              time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt              time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

// ActiveAt reports whether the window covers the given instant. Open-ended
// windows (End == nil) stay active from Start onwards.
func (s *SubscriptionInformation) ActiveAt(at time.Time) bool {
	if s.Start.After(at) {
		return false
	}
	return s.End == nil || !s.End.Before(at)
}
