// Package config loads the server configuration from the environment,
// with an optional .env file in development.
package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config holds everything the server needs from the environment. Secrets
// (backend token, JWT signing secret) are not stored here; only their
// parameter names are, and internal/secret resolves them.
type Config struct {
	Port    string
	DevMode bool

	// GitHubRepo is the "owner/name" of the content repository.
	GitHubRepo string
	// GitHubBranch is the revision line all state lives on.
	GitHubBranch string
	// GitHubAPIURL overrides the API root, mainly for tests.
	GitHubAPIURL string

	// GitHubTokenParam and JWTSecretParam name the secrets to resolve.
	GitHubTokenParam string
	JWTSecretParam   string

	// StaticDir, when set, is served as the frontend with an index.html
	// fallback for client-side routing.
	StaticDir string
}

// New reads the environment. In dev mode a missing .env file is only a
// warning.
func New() (*Config, error) {
	devMode := os.Getenv("DEV_MODE") == "true"
	if devMode {
		if err := godotenv.Load(); err != nil {
			fmt.Println("Warning: .env file not found, using environment variables")
		}
	}

	cfg := &Config{
		Port:             getEnvOrDefault("PORT", "3000"),
		DevMode:          devMode,
		GitHubRepo:       os.Getenv("GITHUB_REPO"),
		GitHubBranch:     getEnvOrDefault("GITHUB_BRANCH", "main"),
		GitHubAPIURL:     os.Getenv("GITHUB_API_URL"),
		GitHubTokenParam: getEnvOrDefault("GITHUB_TOKEN_PARAM", "/keepsake/github-token"),
		JWTSecretParam:   getEnvOrDefault("JWT_SECRET_PARAM", "/keepsake/jwt-secret"),
		StaticDir:        os.Getenv("STATIC_DIR"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces required settings. Dev mode runs against the
// in-memory backend and needs no repository.
func (c *Config) Validate() error {
	if !c.DevMode && c.GitHubRepo == "" {
		return fmt.Errorf("GITHUB_REPO is required")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
