package repository

import (
	"sync"

	"gorm.io/gorm"
)

// Factory hands out one lazily-built repository set per database handle.
type Factory struct {
	db    *gorm.DB
	repos *Repositories
	once  sync.Once
}

func NewFactory(db *gorm.DB) *Factory {
	return &Factory{db: db}
}

// GetRepositories returns the set, building it on first use.
func (f *Factory) GetRepositories() *Repositories {
	f.once.Do(func() { f.repos = NewRepositories(f.db) })
	return f.repos
}

// GetUserRepository is a shorthand for GetRepositories().User.
func (f *Factory) GetUserRepository() UserRepository {
	return f.GetRepositories().User
}

// GetMembershipRepository is a shorthand for GetRepositories().Membership.
func (f *Factory) GetMembershipRepository() MembershipRepository {
	return f.GetRepositories().Membership
}

// GetSettingRepository is a shorthand for GetRepositories().Setting.
func (f *Factory) GetSettingRepository() SettingRepository {
	return f.GetRepositories().Setting
}

// The process-wide factory is wired at boot; tests build their own
// Repositories against a test database instead.
var (
	globalFactory *Factory
	factoryOnce   sync.Once
)

// InitializeFactory installs the process-wide factory. Later calls are
// no-ops, the first database handle wins.
func InitializeFactory(db *gorm.DB) {
	factoryOnce.Do(func() { globalFactory = NewFactory(db) })
}

// GetGlobalFactory returns the factory installed by InitializeFactory and
// panics when the boot order is violated.
func GetGlobalFactory() *Factory {
	if globalFactory == nil {
		panic("repository factory not initialized, call InitializeFactory first")
	}
	return globalFactory
}

// GetGlobalRepositories is a shorthand for GetGlobalFactory().GetRepositories().
func GetGlobalRepositories() *Repositories {
	return GetGlobalFactory().GetRepositories()
}
