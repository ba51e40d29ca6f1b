package memberexport

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MemberFox/MemberFox/internal/pkg/env"
)

func setTestEnv(t *testing.T, values map[string]string) {
	t.Helper()

	original := env.Env
	env.Env = map[string]string{}
	for k, v := range values {
		env.Env[k] = v
	}
	t.Cleanup(func() {
		env.Env = original
	})
}

func TestLoadConfig_Disabled(t *testing.T) {
	setTestEnv(t, map[string]string{
		"S3_EXPORT_ENABLED": "false",
	})

	config, err := LoadConfig()
	require.NoError(t, err)
	assert.False(t, config.IsEnabled())
}

func TestLoadConfig_EnabledRequiresCredentials(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name: "missing access key",
			env: map[string]string{
				"S3_EXPORT_ENABLED":    "true",
				"S3_SECRET_ACCESS_KEY": "secret",
				"S3_BUCKET_NAME":       "members",
			},
			wantErr: "S3_ACCESS_KEY_ID",
		},
		{
			name: "missing secret",
			env: map[string]string{
				"S3_EXPORT_ENABLED": "true",
				"S3_ACCESS_KEY_ID":  "key",
				"S3_BUCKET_NAME":    "members",
			},
			wantErr: "S3_SECRET_ACCESS_KEY",
		},
		{
			name: "missing bucket",
			env: map[string]string{
				"S3_EXPORT_ENABLED":    "true",
				"S3_ACCESS_KEY_ID":     "key",
				"S3_SECRET_ACCESS_KEY": "secret",
			},
			wantErr: "S3_BUCKET_NAME",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setTestEnv(t, tt.env)

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_Complete(t *testing.T) {
	setTestEnv(t, map[string]string{
		"S3_EXPORT_ENABLED":    "true",
		"S3_ACCESS_KEY_ID":     "key",
		"S3_SECRET_ACCESS_KEY": "secret",
		"S3_BUCKET_NAME":       "members",
		"S3_REGION":            "eu-central-1",
		"S3_ENDPOINT_URL":      "https://s3.example.com",
	})

	config, err := LoadConfig()
	require.NoError(t, err)
	assert.True(t, config.IsEnabled())
	assert.Equal(t, "key", config.AccessKeyID)
	assert.Equal(t, "eu-central-1", config.Region)
	assert.Equal(t, "members", config.GetBucketName())
	assert.Equal(t, "https://s3.example.com", config.EndpointURL)
}

func TestGetObjectKey(t *testing.T) {
	config := &Config{}

	at := time.Date(2024, time.March, 5, 9, 30, 15, 0, time.UTC)
	key := config.GetObjectKey(at)

	assert.Equal(t, "exports/2024/03/members-20240305-093015.csv", key)
}
