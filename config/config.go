package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Discord configuration
	DiscordToken   string
	DiscordGuildID string

	// Database configuration
	DatabaseURL string

	// External content providers
	OpenRouterAPIKey string
	HumorAPIKey      string
	NewsFeedURL      string
	QOTDFeedURL      string

	// Scheduling
	DailyPostHour    int           // Hour in UTC when daily news/QOTD post (0-23)
	QOTDRevealDelay  time.Duration // Delay between poll post and answer reveal
	RevealSweepEvery time.Duration // Interval between reveal sweeps

	// Logging
	LogLevel string

	// Environment
	Environment string // "development", "production", or "test"
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		// Discord
		DiscordToken:   os.Getenv("DISCORD_TOKEN"),
		DiscordGuildID: os.Getenv("DISCORD_GUILD_ID"),

		// Database
		DatabaseURL: os.Getenv("DATABASE_URL"),

		// Providers
		OpenRouterAPIKey: os.Getenv("OPENROUTER_API_KEY"),
		HumorAPIKey:      os.Getenv("HUMOR_API_KEY"),
		NewsFeedURL:      "https://metacurate.io/briefs/daily/latest/rss",
		QOTDFeedURL:      "https://metacurate.io/qotd/rss",

		// Scheduling defaults
		DailyPostHour:    8,
		QOTDRevealDelay:  8 * time.Hour,
		RevealSweepEvery: 15 * time.Minute,

		// Logging
		LogLevel: os.Getenv("LOG_LEVEL"),

		// Environment
		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Override defaults if environment variables are set
	if url := os.Getenv("NEWS_FEED_URL"); url != "" {
		config.NewsFeedURL = url
	}
	if url := os.Getenv("QOTD_FEED_URL"); url != "" {
		config.QOTDFeedURL = url
	}
	if hour := os.Getenv("DAILY_POST_HOUR"); hour != "" {
		parsed, err := strconv.Atoi(hour)
		if err != nil || parsed < 0 || parsed > 23 {
			return nil, fmt.Errorf("DAILY_POST_HOUR must be an hour between 0 and 23, got %q", hour)
		}
		config.DailyPostHour = parsed
	}
	if delay := os.Getenv("QOTD_REVEAL_DELAY"); delay != "" {
		parsed, err := time.ParseDuration(delay)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("QOTD_REVEAL_DELAY must be a positive duration, got %q", delay)
		}
		config.QOTDRevealDelay = parsed
	}
	if every := os.Getenv("REVEAL_SWEEP_EVERY"); every != "" {
		parsed, err := time.ParseDuration(every)
		if err != nil || parsed <= 0 {
			return nil, fmt.Errorf("REVEAL_SWEEP_EVERY must be a positive duration, got %q", every)
		}
		config.RevealSweepEvery = parsed
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}
	if config.LogLevel == "" {
		config.LogLevel = "info"
	}

	if config.Environment != "test" {
		// Validate required configuration
		if config.DiscordToken == "" {
			return nil, fmt.Errorf("DISCORD_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
