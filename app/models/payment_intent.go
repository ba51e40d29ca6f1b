package models

import "time"

// PaymentIntent stores the provider's latest snapshot of a payment attempt,
// keyed by the Stripe payment-intent id. Only the webhook ingestor writes
// here; the snapshot column is the provider payload as received.
type PaymentIntent struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	ProviderIntentID string    `gorm:"type:varchar(191);not null;uniqueIndex" json:"provider_intent_id"`
	Status           string    `gorm:"type:varchar(64);not null;default:''" json:"status"`
	Amount           int64     `gorm:"not null;default:0" json:"amount"` // minor units
	Currency         string    `gorm:"type:varchar(8);not null;default:''" json:"currency"`
	CustomerID       string    `gorm:"type:varchar(191);not null;default:'';index" json:"customer_id"`
	SnapshotJSON     string    `gorm:"type:longtext;not null" json:"snapshot_json"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
