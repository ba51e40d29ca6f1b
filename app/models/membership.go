package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Membership holds the tier a user selected during setup and their Stripe
// customer linkage. One row per user; the tier is fixed after selection.
type Membership struct {
	ID         uint           `gorm:"primaryKey" json:"id"`
	UserID     uint           `gorm:"not null;uniqueIndex" json:"user_id" validate:"required"`
	Tier       string         `gorm:"type:varchar(10);not null" json:"tier" validate:"required,oneof=st co pa"`
	CustomerID string         `gorm:"type:varchar(191);default:'';index" json:"customer_id"` // empty until a Stripe customer exists
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"-"`

	Subscriptions []SubscriptionInformation `gorm:"foreignKey:MembershipID" json:"-"`
}

func (m *Membership) Validate() error {
	v := validator.New()

	return v.Struct(m)
}

// HasCustomer reports whether a Stripe customer was created for this
// membership. Starter members without a checkout never get one.
func (m *Membership) HasCustomer() bool {
	return m.CustomerID != ""
}
