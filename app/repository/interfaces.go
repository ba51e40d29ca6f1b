package repository

import (
	"time"

	"github.com/MemberFox/MemberFox/app/models"
	"gorm.io/gorm"
)

// UserRepository is the data access surface for member accounts. Lookups
// return gorm.ErrRecordNotFound (wrapped) when no row matches.
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByEmailChangeToken(token string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error)
	Update(user *models.User) error
	Delete(id uint) error
	List(offset, limit int) ([]models.User, error)
	Count() (int64, error)
	Search(query string) ([]models.User, error)
	GetWithMemberships(offset, limit int) ([]UserWithMembership, error)
	SearchWithMemberships(query string) ([]UserWithMembership, error)
	GetDailyStats(startDate, endDate time.Time) ([]models.DailyStats, error)
}

// MembershipRepository reads membership and subscription state. Writes go
// through the billing package, which owns provider synchronization.
type MembershipRepository interface {
	GetByUserID(userID uint) (*models.Membership, error)
	GetByCustomerID(customerID string) (*models.Membership, error)
	ListSubscriptions(membershipID uint) ([]models.SubscriptionInformation, error)
	Count() (int64, error)
	CountByTier() ([]models.TierStats, error)
}

// SettingRepository loads and persists the typed application settings
// snapshot
type SettingRepository interface {
	Get() (*models.AppSettings, error)
	Save(settings *models.AppSettings) error
}

// UserWithMembership is one row of the admin member list: the account plus
// its current tier and subscription state.
type UserWithMembership struct {
	User               models.User
	Tier               string
	CustomerID         string
	SubscriptionActive bool
}

// Repositories bundles all repository implementations behind one handle.
type Repositories struct {
	User       UserRepository
	Membership MembershipRepository
	Setting    SettingRepository
}

// NewRepositories wires every repository to the given database connection.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:       NewUserRepository(db),
		Membership: NewMembershipRepository(db),
		Setting:    NewSettingRepository(db),
	}
}
