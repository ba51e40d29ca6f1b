package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppSettingsApply(t *testing.T) {
	s := defaultAppSettings()

	s.apply("site_title", "Alumni Portal")
	s.apply("site_description", "Stay in touch")
	s.apply("registration_enabled", "false")
	s.apply("job_queue_worker_count", "12")

	assert.Equal(t, "Alumni Portal", s.SiteTitle)
	assert.Equal(t, "Stay in touch", s.SiteDescription)
	assert.False(t, s.RegistrationEnabled)
	assert.Equal(t, 12, s.JobQueueWorkerCount)
}

func TestAppSettingsApplyIgnoresBadValues(t *testing.T) {
	s := defaultAppSettings()

	s.apply("job_queue_worker_count", "not-a-number")
	assert.Equal(t, 5, s.JobQueueWorkerCount)

	s.apply("unknown_key", "whatever")
	assert.Equal(t, "MemberFox", s.SiteTitle)
}

func TestAppSettingsRowsRoundTrip(t *testing.T) {
	original := &AppSettings{
		SiteTitle:           "Alumni Portal",
		SiteDescription:     "Stay in touch",
		RegistrationEnabled: true,
		JobQueueWorkerCount: 7,
	}

	restored := defaultAppSettings()
	for _, row := range original.rows() {
		restored.apply(row.Key, row.Value)
	}

	assert.Equal(t, original.SiteTitle, restored.SiteTitle)
	assert.Equal(t, original.SiteDescription, restored.SiteDescription)
	assert.Equal(t, original.RegistrationEnabled, restored.RegistrationEnabled)
	assert.Equal(t, original.JobQueueWorkerCount, restored.JobQueueWorkerCount)
}

func TestAppSettingsRowsCarryTypes(t *testing.T) {
	types := map[string]string{}
	for _, row := range defaultAppSettings().rows() {
		types[row.Key] = row.Type
	}

	assert.Equal(t, "string", types["site_title"])
	assert.Equal(t, "string", types["site_description"])
	assert.Equal(t, "boolean", types["registration_enabled"])
	assert.Equal(t, "integer", types["job_queue_worker_count"])
}

func TestAppSettingsValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*AppSettings)
		wantErr bool
	}{
		{"defaults are valid", func(s *AppSettings) {}, false},
		{"empty title rejected", func(s *AppSettings) { s.SiteTitle = "" }, true},
		{"negative workers rejected", func(s *AppSettings) { s.JobQueueWorkerCount = -1 }, true},
		{"too many workers rejected", func(s *AppSettings) { s.JobQueueWorkerCount = 51 }, true},
		{"upper bound accepted", func(s *AppSettings) { s.JobQueueWorkerCount = 50 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := defaultAppSettings()
			tt.mutate(s)
			err := s.Validate()
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestAppSettingsWorkerCountFallback(t *testing.T) {
	s := &AppSettings{}
	assert.Equal(t, 5, s.GetJobQueueWorkerCount())

	s.JobQueueWorkerCount = 3
	assert.Equal(t, 3, s.GetJobQueueWorkerCount())
}
