package env

import (
	"os"

	"github.com/joho/godotenv"
)

// Env holds the key/value pairs read from the .env file. Process
// environment variables still win when no file entry exists, which is how
// containerized deployments inject their config.
var Env map[string]string

// Relative to both the repo root and the cmd/ binaries.
var envFileLocations = []string{".env", "../../.env", "../../../.env"}

// SetupEnvFile loads the first readable .env file. Without one the app
// cannot know its database or mail credentials, so startup stops here.
func SetupEnvFile() {
	for _, path := range envFileLocations {
		if parsed, err := godotenv.Read(path); err == nil {
			Env = parsed
			return
		}
	}
	panic("no .env file found, copy .env.example to .env and fill it in")
}

// GetEnv looks up key in the loaded .env values, then the process
// environment, then falls back to def.
func GetEnv(key, def string) string {
	if val, ok := Env[key]; ok {
		return val
	}
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

// IsDev reports whether APP_ENV selects the development profile.
func IsDev() bool {
	return GetEnv("APP_ENV", "prod") == "dev"
}
