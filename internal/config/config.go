package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"gitlab-pulse/internal/gitlab"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

// ErrNotConfigured means GITLAB_URL or GITLAB_API_TOKEN is missing.
var ErrNotConfigured = errors.New("GitLab is not configured: set GITLAB_URL and GITLAB_API_TOKEN")

// AppConfig holds the complete application configuration.
type AppConfig struct {
	GitLab              gitlab.Config
	Addr                string
	PolicyFile          string
	Refresh             time.Duration
	CacheTTL            time.Duration
	SweepInterval       time.Duration
	SmallBatch          int
	LargeBatch          int
	LogDir              string
	EnableMermaidCharts bool
}

// Load loads the configuration from .env files and environment variables.
func Load() (*AppConfig, error) {
	// 1. Try to load from the executable's directory
	exePath, err := os.Executable()
	exeDir := ""
	if err == nil {
		exeDir = filepath.Dir(exePath)
		envPath := filepath.Join(exeDir, ".env")
		if err := godotenv.Load(envPath); err == nil {
			log.Debug().Str("path", envPath).Msg("Loaded configuration from binary directory")
		}
	}

	// 2. Fallback to current working directory
	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("No .env file found in working directory, relying on environment variables or binary-relative .env")
	}

	logDir := os.Getenv("LOGS_FOLDER")
	if logDir == "" {
		if exeDir != "" {
			logDir = filepath.Join(exeDir, "logs")
		} else {
			logDir = "logs"
		}
	}

	refreshSecs, _ := strconv.Atoi(getEnv("PULSE_REFRESH_SECONDS", "0"))

	cfg := &AppConfig{
		GitLab: gitlab.Config{
			BaseURL:    getEnv("GITLAB_URL", ""),
			Token:      getEnv("GITLAB_API_TOKEN", ""),
			APIVersion: getEnv("GITLAB_API_VERSION", "v4"),
			Timeout:    60 * time.Second,
			TTL:        gitlab.DefaultTTLPolicy(),
		},
		Addr:                getEnv("PULSE_ADDR", ":8080"),
		PolicyFile:          getEnv("PULSE_POLICY_FILE", ""),
		Refresh:             time.Duration(max(refreshSecs, 0)) * time.Second,
		CacheTTL:            10 * time.Minute,
		SweepInterval:       5 * time.Minute,
		SmallBatch:          5,
		LargeBatch:          10,
		LogDir:              logDir,
		EnableMermaidCharts: getEnvBool("ENABLE_MERMAID_CHARTS", false),
	}

	if cfg.PolicyFile != "" {
		policy, err := LoadPolicy(cfg.PolicyFile)
		if err != nil {
			return nil, err
		}
		policy.Apply(cfg)
		log.Debug().Str("path", cfg.PolicyFile).Msg("Applied cache policy")
	}

	return cfg, nil
}

// Validate reports ErrNotConfigured when GitLab cannot be reached.
func (c *AppConfig) Validate() error {
	if c.GitLab.BaseURL == "" || c.GitLab.Token == "" {
		return ErrNotConfigured
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return fallback
}
