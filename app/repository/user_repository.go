package repository

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/MemberFox/MemberFox/app/models"
)

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository instance
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// one runs the prepared query and returns the single matching user.
func (r *userRepository) one(tx *gorm.DB) (*models.User, error) {
	var user models.User
	if err := tx.First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) Create(user *models.User) error {
	return r.db.Create(user).Error
}

func (r *userRepository) GetByID(id uint) (*models.User, error) {
	return r.one(r.db.Where("id = ?", id))
}

func (r *userRepository) GetByEmail(email string) (*models.User, error) {
	return r.one(r.db.Where("email = ?", email))
}

// GetByEmailChangeToken resolves a pending email change token to its user.
func (r *userRepository) GetByEmailChangeToken(token string) (*models.User, error) {
	return r.one(r.db.Where("email_change_token = ?", token))
}

// GetByAPIKeyHash looks up the owner of an API key by its stored hash.
// Revoked or blanked keys never match.
func (r *userRepository) GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error) {
	hash = strings.TrimSpace(hash)
	if hash == "" {
		return nil, nil, gorm.ErrRecordNotFound
	}

	var settings models.UserSettings
	err := r.db.
		Where("api_key_hash = ?", hash).
		Where("api_key_hash <> ''").
		Where("api_key_revoked_at IS NULL").
		First(&settings).Error
	if err != nil {
		return nil, nil, err
	}

	user, err := r.GetByID(settings.UserID)
	if err != nil {
		return nil, nil, err
	}
	return user, &settings, nil
}

func (r *userRepository) Update(user *models.User) error {
	return r.db.Save(user).Error
}

// Delete soft deletes a user by their ID
func (r *userRepository) Delete(id uint) error {
	return r.db.Delete(&models.User{}, id).Error
}

// List returns one page of users, newest first.
func (r *userRepository) List(offset, limit int) ([]models.User, error) {
	var users []models.User
	tx := r.db.Order("created_at DESC").Offset(offset).Limit(limit)
	return users, tx.Find(&users).Error
}

func (r *userRepository) Count() (int64, error) {
	var count int64
	err := r.db.Model(&models.User{}).Count(&count).Error
	return count, err
}

// Search matches the query against name and email.
func (r *userRepository) Search(query string) ([]models.User, error) {
	pattern := "%" + strings.TrimSpace(query) + "%"
	var users []models.User
	err := r.db.Where("name LIKE ? OR email LIKE ?", pattern, pattern).Find(&users).Error
	return users, err
}

// GetWithMemberships returns one page of users joined with their membership
// state for the admin member list.
func (r *userRepository) GetWithMemberships(offset, limit int) ([]UserWithMembership, error) {
	users, err := r.List(offset, limit)
	if err != nil {
		return nil, err
	}
	return r.attachMemberships(users)
}

// SearchWithMemberships searches for users and joins their membership state.
func (r *userRepository) SearchWithMemberships(query string) ([]UserWithMembership, error) {
	users, err := r.Search(query)
	if err != nil {
		return nil, err
	}
	return r.attachMemberships(users)
}

// attachMemberships resolves the membership and active-subscription flag for
// each user row.
func (r *userRepository) attachMemberships(users []models.User) ([]UserWithMembership, error) {
	var rows []UserWithMembership
	for _, user := range users {
		row := UserWithMembership{User: user}

		var membership models.Membership
		err := r.db.Where("user_id = ?", user.ID).First(&membership).Error
		switch {
		case err == nil:
			row.Tier = membership.Tier
			row.CustomerID = membership.CustomerID

			active, subErr := r.hasActiveSubscription(membership.ID)
			if subErr != nil {
				return nil, fmt.Errorf("failed to check subscription for user %d: %w", user.ID, subErr)
			}
			row.SubscriptionActive = active
		case !errors.Is(err, gorm.ErrRecordNotFound):
			return nil, fmt.Errorf("failed to load membership for user %d: %w", user.ID, err)
		}

		rows = append(rows, row)
	}
	return rows, nil
}

// hasActiveSubscription reports whether the membership has a subscription
// window covering the current instant. start and end are reserved words in
// MySQL, hence the backticks.
func (r *userRepository) hasActiveSubscription(membershipID uint) (bool, error) {
	now := time.Now()
	var count int64
	err := r.db.Model(&models.SubscriptionInformation{}).
		Where("membership_id = ?", membershipID).
		Where("`start` <= ?", now).
		Where("`end` IS NULL OR `end` >= ?", now).
		Count(&count).Error
	return count > 0, err
}

// GetDailyStats counts member registrations per calendar day in the range.
func (r *userRepository) GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error) {
	var rows []struct {
		Day   string
		Total int64
	}

	// DATE_FORMAT keeps the per-day grouping inside MySQL
	err := r.db.Model(&models.User{}).
		Select("DATE_FORMAT(created_at, '%Y-%m-%d') AS day, COUNT(*) AS total").
		Where("created_at BETWEEN ? AND ?", startDate, endDate).
		Group("day").
		Order("day").
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get daily user stats: %w", err)
	}

	stats := make([]models.DailyStats, len(rows))
	for i, row := range rows {
		stats[i] = models.DailyStats{Date: row.Day, Count: int(row.Total)}
	}
	return stats, nil
}
