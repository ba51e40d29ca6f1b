package repository

import (
	"github.com/MemberFox/MemberFox/app/models"
	"gorm.io/gorm"
)

type settingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a settings repository backed by db.
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &settingRepository{db: db}
}

// Get returns the current application settings, loading them from the
// database first if the in-memory copy has not been populated yet
func (r *settingRepository) Get() (*models.AppSettings, error) {
	settings := models.GetAppSettings()
	if settings == nil {
		if err := models.LoadSettings(r.db); err != nil {
			return nil, err
		}
		settings = models.GetAppSettings()
	}
	return settings, nil
}

// Save persists the application settings and refreshes the in-memory copy
func (r *settingRepository) Save(settings *models.AppSettings) error {
	return models.SaveSettings(r.db, settings)
}
