package repository

import (
	"github.com/MemberFox/MemberFox/app/models"
	"gorm.io/gorm"
)

// membershipRepository implements the MembershipRepository interface
type membershipRepository struct {
	db *gorm.DB
}

// NewMembershipRepository creates a new membership repository instance
func NewMembershipRepository(db *gorm.DB) MembershipRepository {
	return &membershipRepository{db: db}
}

// GetByUserID retrieves the membership belonging to a user
func (r *membershipRepository) GetByUserID(userID uint) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.Where("user_id = ?", userID).First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// GetByCustomerID retrieves a membership by its Stripe customer id
func (r *membershipRepository) GetByCustomerID(customerID string) (*models.Membership, error) {
	var membership models.Membership
	err := r.db.Where("customer_id = ?", customerID).First(&membership).Error
	if err != nil {
		return nil, err
	}
	return &membership, nil
}

// ListSubscriptions returns the subscription windows of a membership, newest first
func (r *membershipRepository) ListSubscriptions(membershipID uint) ([]models.SubscriptionInformation, error) {
	var subs []models.SubscriptionInformation
	err := r.db.Where("membership_id = ?", membershipID).Order("`start` DESC").Find(&subs).Error
	return subs, err
}

// Count returns the total number of memberships
func (r *membershipRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.Membership{}).Count(&count).Error
	return count, err
}

// CountByTier returns the member count per tier
func (r *membershipRepository) CountByTier() ([]models.TierStats, error) {
	var stats []models.TierStats
	err := r.db.Model(&models.Membership{}).
		Select("tier, COUNT(*) as count").
		Group("tier").
		Order("tier").
		Find(&stats).Error
	return stats, err
}
