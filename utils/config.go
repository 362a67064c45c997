package utils

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

const (
	defaultLimit        = 25
	defaultSleepSeconds = 1.0
	defaultServerPort   = 8080
)

// defaultSubreddits is used when neither the config file nor flags name any
var defaultSubreddits = []string{"ZedEditor"}

// Config holds all configuration for a scraper run. File keys are loaded
// once and immutable afterwards; the flag-backed fields are filled in by
// the CLI layer.
type Config struct {
	Subreddits     []string `json:"subreddits"`
	Limit          int      `json:"limit"`
	DaysAgo        int      `json:"days_ago"`
	ClearLogs      bool     `json:"clear_logs"`
	SleepSeconds   float64  `json:"sleep_seconds"`
	GetPostReplies bool     `json:"get_post_replies"`
	DeleteResults  bool     `json:"delete_results"`
	ArchiveDB      string   `json:"archive_db"`
	ServerPort     int      `json:"server_port"`

	// populated from CLI flags, not the config file
	Sort             string `json:"-"`
	TimeFilter       string `json:"-"`
	OutputDir        string `json:"-"`
	Combined         bool   `json:"-"`
	CombinedFilename string `json:"-"`

	// populated from the environment, for pointing at stub endpoints
	BaseURL   string `json:"-"`
	UserAgent string `json:"-"`
}

// fileConfig mirrors the config file. SleepSeconds is a pointer so an
// explicit zero can be told apart from an absent key.
type fileConfig struct {
	Subreddits     []string `json:"subreddits"`
	Limit          int      `json:"limit"`
	DaysAgo        int      `json:"days_ago"`
	ClearLogs      bool     `json:"clear_logs"`
	SleepSeconds   *float64 `json:"sleep_seconds"`
	GetPostReplies bool     `json:"get_post_replies"`
	DeleteResults  bool     `json:"delete_results"`
	ArchiveDB      string   `json:"archive_db"`
	ServerPort     int      `json:"server_port"`
}

// LoadConfig loads configuration from a JSON config file plus optional
// .env overrides. A missing config file is not an error: defaults apply.
// A config file that exists but cannot be read or parsed is an error.
func LoadConfig(configPath, envPath string, log *logrus.Logger) (*Config, error) {
	if configPath == "" {
		configPath = "config.json"
	}

	// .env is optional; it only carries endpoint overrides
	if envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			if err := godotenv.Load(envPath); err != nil {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
			log.WithField("file", envPath).Debug("Loaded environment overrides")
		}
	}

	config := &Config{
		Subreddits:   defaultSubreddits,
		Limit:        defaultLimit,
		SleepSeconds: defaultSleepSeconds,
		ServerPort:   defaultServerPort,
		BaseURL:      getEnv("REDDIT_BASE_URL", ""),
		UserAgent:    getEnv("REDDIT_USER_AGENT", ""),
	}

	data, err := os.ReadFile(configPath)
	if os.IsNotExist(err) {
		log.WithField("file", configPath).Warn("Config file not found, using defaults")
		if err := validateConfig(config); err != nil {
			return nil, err
		}
		return config, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var fc fileConfig
	if err := json.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", configPath, err)
	}

	if len(fc.Subreddits) > 0 {
		config.Subreddits = fc.Subreddits
	}
	if fc.Limit > 0 {
		config.Limit = fc.Limit
	}
	config.DaysAgo = fc.DaysAgo
	config.ClearLogs = fc.ClearLogs
	if fc.SleepSeconds != nil {
		config.SleepSeconds = *fc.SleepSeconds
	}
	config.GetPostReplies = fc.GetPostReplies
	config.DeleteResults = fc.DeleteResults
	config.ArchiveDB = fc.ArchiveDB
	if fc.ServerPort > 0 {
		config.ServerPort = fc.ServerPort
	}

	if err := validateConfig(config); err != nil {
		return nil, err
	}

	log.WithField("file", configPath).Info("Config loaded successfully")
	return config, nil
}

// validateConfig validates the configuration
func validateConfig(config *Config) error {
	if len(config.Subreddits) == 0 {
		return fmt.Errorf("subreddits must not be empty")
	}
	if config.DaysAgo < 0 {
		return fmt.Errorf("days_ago must not be negative")
	}
	if config.SleepSeconds < 0 {
		return fmt.Errorf("sleep_seconds must not be negative")
	}
	if config.ServerPort < 1 || config.ServerPort > 65535 {
		return fmt.Errorf("server_port must be between 1 and 65535")
	}
	return nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
