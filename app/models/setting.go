package models

import (
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Setting keys understood by the application
const (
	settingSiteTitle       = "site_title"
	settingSiteDescription = "site_description"
	settingRegistration    = "registration_enabled"
	settingWorkerCount     = "job_queue_worker_count"
)

// Setting is one persisted configuration row.
type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"column:setting_key;size:255;not null;uniqueIndex" json:"key" validate:"required,min=1,max=255"`
	Value     string    `gorm:"type:text" json:"value"`
	Type      string    `gorm:"size:50;not null" json:"type" validate:"required"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// AppSettings is the typed view over the setting rows. One instance is
// loaded at boot and swapped atomically on save.
type AppSettings struct {
	SiteTitle           string `json:"site_title" validate:"required,min=1,max=255"`
	SiteDescription     string `json:"site_description" validate:"max=500"`
	RegistrationEnabled bool   `json:"registration_enabled"`
	JobQueueWorkerCount int    `json:"job_queue_worker_count" validate:"min=0,max=50"`
	mu                  sync.RWMutex
}

var (
	appSettings *AppSettings
	settingsMu  sync.RWMutex
)

func defaultAppSettings() *AppSettings {
	return &AppSettings{
		SiteTitle:           "MemberFox",
		SiteDescription:     "Alumni membership portal",
		RegistrationEnabled: true,
		JobQueueWorkerCount: 5,
	}
}

// GetAppSettings returns the settings loaded by LoadSettings, nil before the
// first load.
func GetAppSettings() *AppSettings {
	settingsMu.RLock()
	defer settingsMu.RUnlock()
	return appSettings
}

// LoadSettings reads all setting rows and replaces the in-memory settings.
// Keys without a row keep their defaults.
func LoadSettings(db *gorm.DB) error {
	loaded := defaultAppSettings()

	var rows []Setting
	if err := db.Find(&rows).Error; err != nil {
		return fmt.Errorf("load settings: %w", err)
	}
	for _, row := range rows {
		loaded.apply(row.Key, row.Value)
	}

	settingsMu.Lock()
	appSettings = loaded
	settingsMu.Unlock()
	return nil
}

// SaveSettings validates the new values, upserts all rows in one statement
// and swaps the in-memory settings.
func SaveSettings(db *gorm.DB, settings *AppSettings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("settings validation: %w", err)
	}

	rows := settings.rows()
	err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "setting_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&rows).Error
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}

	settingsMu.Lock()
	appSettings = settings
	settingsMu.Unlock()
	return nil
}

func (s *AppSettings) apply(key, value string) {
	switch key {
	case settingSiteTitle:
		s.SiteTitle = value
	case settingSiteDescription:
		s.SiteDescription = value
	case settingRegistration:
		s.RegistrationEnabled = value == "true"
	case settingWorkerCount:
		if n, err := strconv.Atoi(value); err == nil {
			s.JobQueueWorkerCount = n
		}
	}
}

// rows converts the typed settings back into persistable rows.
func (s *AppSettings) rows() []Setting {
	return []Setting{
		{Key: settingSiteTitle, Value: s.SiteTitle, Type: "string"},
		{Key: settingSiteDescription, Value: s.SiteDescription, Type: "string"},
		{Key: settingRegistration, Value: strconv.FormatBool(s.RegistrationEnabled), Type: "boolean"},
		{Key: settingWorkerCount, Value: strconv.Itoa(s.JobQueueWorkerCount), Type: "integer"},
	}
}

// Validate checks the field constraints enforced before a save.
func (s *AppSettings) Validate() error {
	return validator.New().Struct(s)
}

// GetSiteTitle returns the configured site title.
func (s *AppSettings) GetSiteTitle() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SiteTitle
}

// GetSiteDescription returns the configured site description.
func (s *AppSettings) GetSiteDescription() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.SiteDescription
}

// IsRegistrationEnabled reports whether self-registration is open.
func (s *AppSettings) IsRegistrationEnabled() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.RegistrationEnabled
}

// GetJobQueueWorkerCount returns the configured worker count, falling back
// to the default when unset.
func (s *AppSettings) GetJobQueueWorkerCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.JobQueueWorkerCount <= 0 {
		return 5
	}
	return s.JobQueueWorkerCount
}
