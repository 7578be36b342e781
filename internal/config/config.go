// Package config provides application configuration.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Port           string
	FrontendURL    string
	DBPath         string
	Proxy          string // SOCKS5 proxy address for the platform session, empty = direct
	PlatformAPIURL string // private-API base URL, empty = production endpoint

	OpenAI   OpenAIConfig
	Files    FilesConfig
	Campaign CampaignConfig
}

// OpenAIConfig holds the completion-API settings.
type OpenAIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Temperature float64
	MaxTokens   int
}

// FilesConfig points at the flat-file content library.
type FilesConfig struct {
	Messages  string
	Knowledge string
}

// CampaignConfig holds pacing defaults for a campaign run.
type CampaignConfig struct {
	MessagesPerCycle int
	TotalMessages    int
	DurationHours    int
	FollowerBatch    int
	MinSendDelay     time.Duration
	MaxSendDelay     time.Duration
	RateLimitBackoff time.Duration
	ActivityEnabled  bool
	ActivityPosts    int
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		FrontendURL:    getEnv("FRONTEND_URL", ""),
		DBPath:         getEnv("DB_PATH", "./data/gramreach.db"),
		Proxy:          getEnv("PROXY", ""),
		PlatformAPIURL: getEnv("PLATFORM_API_URL", ""),
		OpenAI: OpenAIConfig{
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", ""),
			Model:       getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			Temperature: getEnvFloat("OPENAI_TEMPERATURE", 0.7),
			MaxTokens:   getEnvInt("OPENAI_MAX_TOKENS", 100),
		},
		Files: FilesConfig{
			Messages:  getEnv("MESSAGES_FILE", "messages.txt"),
			Knowledge: getEnv("KNOWLEDGE_FILE", "knowledge_base.txt"),
		},
		Campaign: CampaignConfig{
			MessagesPerCycle: getEnvInt("MESSAGES_PER_CYCLE", 10),
			TotalMessages:    getEnvInt("TOTAL_MESSAGES", 40),
			DurationHours:    getEnvInt("DURATION_HOURS", 6),
			FollowerBatch:    getEnvInt("FOLLOWER_BATCH", 40),
			MinSendDelay:     getEnvSeconds("MIN_SEND_DELAY", 120),
			MaxSendDelay:     getEnvSeconds("MAX_SEND_DELAY", 300),
			RateLimitBackoff: getEnvSeconds("RATE_LIMIT_BACKOFF", 3600),
			ActivityEnabled:  getEnvBool("ACTIVITY_ENABLED", true),
			ActivityPosts:    getEnvInt("ACTIVITY_POSTS", 3),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DBPath == "" {
		return fmt.Errorf("DB_PATH cannot be empty")
	}
	if c.OpenAI.MaxTokens <= 0 {
		return fmt.Errorf("OPENAI_MAX_TOKENS must be > 0")
	}
	if c.OpenAI.Temperature < 0 || c.OpenAI.Temperature > 2 {
		return fmt.Errorf("OPENAI_TEMPERATURE must be between 0 and 2")
	}
	if c.Campaign.MessagesPerCycle <= 0 {
		return fmt.Errorf("MESSAGES_PER_CYCLE must be > 0")
	}
	if c.Campaign.TotalMessages <= 0 {
		return fmt.Errorf("TOTAL_MESSAGES must be > 0")
	}
	if c.Campaign.DurationHours <= 0 {
		return fmt.Errorf("DURATION_HOURS must be > 0")
	}
	if c.Campaign.FollowerBatch <= 0 {
		return fmt.Errorf("FOLLOWER_BATCH must be > 0")
	}
	if c.Campaign.MinSendDelay <= 0 || c.Campaign.MaxSendDelay < c.Campaign.MinSendDelay {
		return fmt.Errorf("send delay bounds must satisfy 0 < MIN_SEND_DELAY <= MAX_SEND_DELAY")
	}
	if c.Campaign.RateLimitBackoff <= 0 {
		return fmt.Errorf("RATE_LIMIT_BACKOFF must be > 0")
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.FrontendURL == "" ||
		strings.Contains(c.FrontendURL, "localhost") ||
		strings.Contains(c.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvFloat(key string, fallback float64) float64 {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return fallback
	}
	return f
}

// getEnvSeconds reads an integer number of seconds into a Duration.
func getEnvSeconds(key string, fallback int) time.Duration {
	return time.Duration(getEnvInt(key, fallback)) * time.Second
}
