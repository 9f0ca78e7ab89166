package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Ayuu1305/squad-quest-sub001/internal/docstore"

	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

const (
	DriverMongo  = "mongo"
	DriverMemory = "memory"
)

// service config: defaults, then CONFIG_FILE (yaml), then environment
type Config struct {
	Port               string   `yaml:"port"`
	LogLevel           string   `yaml:"logLevel"`
	StoreDriver        string   `yaml:"storeDriver"`
	MongoURI           string   `yaml:"mongoUri"`
	MongoDB            string   `yaml:"mongoDb"`
	RedisAddr          string   `yaml:"redisAddr"`
	RedisPassword      string   `yaml:"redisPassword"`
	JWTSecret          string   `yaml:"jwtSecret"`
	CORSAllowedOrigins []string `yaml:"corsAllowedOrigins"`
	// set only when a proxy in front overwrites X-Forwarded-For and X-Real-IP
	TrustProxyHeaders  bool     `yaml:"trustProxyHeaders"`

	Archive     ArchiveConfig     `yaml:"archive"`
	Jobs        JobsConfig        `yaml:"jobs"`
	Rewards     RewardsConfig     `yaml:"rewards"`
	Quests      QuestsConfig      `yaml:"quests"`
	Leaderboard LeaderboardConfig `yaml:"leaderboard"`
	RateLimits  RateLimitsConfig  `yaml:"rateLimits"`
}

type ArchiveConfig struct {
	ThresholdDays int    `yaml:"thresholdDays"`
	BatchSize     int    `yaml:"batchSize"`
	DryRun        bool   `yaml:"dryRun"`
	Schedule      string `yaml:"schedule"`
}

type JobsConfig struct {
	Enabled                bool   `yaml:"enabled"`
	WeeklyResetSchedule    string `yaml:"weeklyResetSchedule"`
	ProfileSyncSchedule    string `yaml:"profileSyncSchedule"`
	ProfileSyncConcurrency int    `yaml:"profileSyncConcurrency"`
}

type RewardsConfig struct {
	PerTagXP        int64 `yaml:"perTagXp"`
	ReviewerBonusXP int64 `yaml:"reviewerBonusXp"`
	BountyXP        int64 `yaml:"bountyXp"`
}

type QuestsConfig struct {
	LeavePenalty int           `yaml:"leavePenalty"`
	LeaveGrace   time.Duration `yaml:"leaveGrace"`
}

type LeaderboardConfig struct {
	Size     int           `yaml:"size"`
	CacheTTL time.Duration `yaml:"cacheTtl"`
}

// RateLimit allows Requests per Period for each client IP.
type RateLimit struct {
	Requests int           `yaml:"requests"`
	Period   time.Duration `yaml:"period"`
}

type RateLimitsConfig struct {
	Enabled   bool      `yaml:"enabled"`
	Global    RateLimit `yaml:"global"`
	VibeCheck RateLimit `yaml:"vibeCheck"`
	JoinLeave RateLimit `yaml:"joinLeave"`
	Bounty    RateLimit `yaml:"bounty"`
}

func defaults() *Config {
	return &Config{
		Port:        "8080",
		LogLevel:    "info",
		StoreDriver: DriverMongo,
		MongoDB:     "squadquest",
		RedisAddr:   "localhost:6379",
		Archive: ArchiveConfig{
			ThresholdDays: 7,
			BatchSize:     450,
			DryRun:        true,
			Schedule:      "0 3 * * *",
		},
		Jobs: JobsConfig{
			Enabled:                true,
			WeeklyResetSchedule:    "0 0 * * 1",
			ProfileSyncSchedule:    "30 3 * * *",
			ProfileSyncConcurrency: 8,
		},
		Rewards: RewardsConfig{PerTagXP: 5, ReviewerBonusXP: 50, BountyXP: 25},
		Quests:  QuestsConfig{LeavePenalty: 2, LeaveGrace: time.Hour},
		Leaderboard: LeaderboardConfig{
			Size:     50,
			CacheTTL: time.Minute,
		},
		RateLimits: RateLimitsConfig{
			Enabled:   true,
			Global:    RateLimit{Requests: 100, Period: 15 * time.Minute},
			VibeCheck: RateLimit{Requests: 20, Period: time.Hour},
			JoinLeave: RateLimit{Requests: 30, Period: time.Hour},
			Bounty:    RateLimit{Requests: 5, Period: 24 * time.Hour},
		},
	}
}

// loads configuration from the optional yaml file and environment variables
func LoadConfig() (*Config, error) {
	config := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, config); err != nil {
			return nil, err
		}
	}
	applyEnv(config)

	if err := validateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

func loadFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(c *Config) {
	c.Port = getEnvOrDefault("PORT", c.Port)
	c.LogLevel = getEnvOrDefault("LOG_LEVEL", c.LogLevel)
	c.StoreDriver = getEnvOrDefault("STORE_DRIVER", c.StoreDriver)
	c.MongoURI = getEnvOrDefault("MONGO_URI", c.MongoURI)
	c.MongoDB = getEnvOrDefault("MONGO_DB", c.MongoDB)
	// an explicitly empty REDIS_ADDR runs without redis
	if addr, ok := os.LookupEnv("REDIS_ADDR"); ok {
		c.RedisAddr = strings.TrimSpace(addr)
	}
	c.RedisPassword = getEnvOrDefault("REDIS_PASSWORD", c.RedisPassword)
	c.JWTSecret = getEnvOrDefault("JWT_SECRET", c.JWTSecret)
	if origins := os.Getenv("CORS_ALLOWED_ORIGINS"); origins != "" {
		c.CORSAllowedOrigins = splitList(origins)
	}
	c.TrustProxyHeaders = getEnvBool("TRUST_PROXY_HEADERS", c.TrustProxyHeaders)

	c.Archive.ThresholdDays = getEnvInt("ARCHIVE_THRESHOLD_DAYS", c.Archive.ThresholdDays)
	c.Archive.BatchSize = getEnvInt("BATCH_SIZE", c.Archive.BatchSize)
	c.Archive.DryRun = getEnvBool("DRY_RUN", c.Archive.DryRun)
	c.Archive.Schedule = getEnvOrDefault("ARCHIVE_SCHEDULE", c.Archive.Schedule)

	c.Jobs.Enabled = getEnvBool("JOBS_ENABLED", c.Jobs.Enabled)
	c.Jobs.WeeklyResetSchedule = getEnvOrDefault("WEEKLY_RESET_SCHEDULE", c.Jobs.WeeklyResetSchedule)
	c.Jobs.ProfileSyncSchedule = getEnvOrDefault("PROFILE_SYNC_SCHEDULE", c.Jobs.ProfileSyncSchedule)
	c.Jobs.ProfileSyncConcurrency = getEnvInt("PROFILE_SYNC_CONCURRENCY", c.Jobs.ProfileSyncConcurrency)

	c.Rewards.PerTagXP = int64(getEnvInt("PER_TAG_XP", int(c.Rewards.PerTagXP)))
	c.Rewards.ReviewerBonusXP = int64(getEnvInt("REVIEWER_BONUS_XP", int(c.Rewards.ReviewerBonusXP)))
	c.Rewards.BountyXP = int64(getEnvInt("BOUNTY_XP", int(c.Rewards.BountyXP)))

	c.Quests.LeavePenalty = getEnvInt("LEAVE_PENALTY", c.Quests.LeavePenalty)
	c.Quests.LeaveGrace = getEnvDuration("LEAVE_GRACE", c.Quests.LeaveGrace)

	c.Leaderboard.Size = getEnvInt("LEADERBOARD_SIZE", c.Leaderboard.Size)
	c.Leaderboard.CacheTTL = getEnvDuration("LEADERBOARD_CACHE_TTL", c.Leaderboard.CacheTTL)

	c.RateLimits.Enabled = getEnvBool("RATE_LIMIT_ENABLED", c.RateLimits.Enabled)
	c.RateLimits.Global.Requests = getEnvInt("RATE_LIMIT_GLOBAL", c.RateLimits.Global.Requests)
	c.RateLimits.VibeCheck.Requests = getEnvInt("RATE_LIMIT_VIBE_CHECK", c.RateLimits.VibeCheck.Requests)
	c.RateLimits.JoinLeave.Requests = getEnvInt("RATE_LIMIT_JOIN_LEAVE", c.RateLimits.JoinLeave.Requests)
	c.RateLimits.Bounty.Requests = getEnvInt("RATE_LIMIT_BOUNTY", c.RateLimits.Bounty.Requests)
}

// Validate checks the config again, for callers that change it after loading.
func (c *Config) Validate() error {
	return validateConfig(c)
}

func validateConfig(c *Config) error {
	var errs []error
	if c.Port == "" {
		errs = append(errs, errors.New("port is required"))
	}
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			errs = append(errs, errors.New("MONGO_URI is required for the mongo store driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unsupported store driver: %s. Currently supported: %s, %s", c.StoreDriver, DriverMongo, DriverMemory))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}

	if c.Archive.ThresholdDays < 1 {
		errs = append(errs, errors.New("ARCHIVE_THRESHOLD_DAYS must be at least 1"))
	}
	// every archived quest costs a copy and a delete
	if maxBatch := docstore.MaxWritesPerCommit / 2; c.Archive.BatchSize < 1 || c.Archive.BatchSize > maxBatch {
		errs = append(errs, fmt.Errorf("BATCH_SIZE must be between 1 and %d", maxBatch))
	}
	if c.Jobs.Enabled {
		for name, spec := range map[string]string{
			"ARCHIVE_SCHEDULE":      c.Archive.Schedule,
			"WEEKLY_RESET_SCHEDULE": c.Jobs.WeeklyResetSchedule,
			"PROFILE_SYNC_SCHEDULE": c.Jobs.ProfileSyncSchedule,
		} {
			if _, err := cron.ParseStandard(spec); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", name, err))
			}
		}
	}

	if c.Rewards.PerTagXP < 0 || c.Rewards.ReviewerBonusXP < 0 || c.Rewards.BountyXP < 0 {
		errs = append(errs, errors.New("reward amounts must not be negative"))
	}
	if c.Quests.LeavePenalty < 0 || c.Quests.LeaveGrace < 0 {
		errs = append(errs, errors.New("leave penalty and grace must not be negative"))
	}
	if c.Leaderboard.Size < 1 {
		errs = append(errs, errors.New("LEADERBOARD_SIZE must be positive"))
	}
	if c.RateLimits.Enabled {
		for name, rl := range map[string]RateLimit{
			"global":     c.RateLimits.Global,
			"vibe-check": c.RateLimits.VibeCheck,
			"join-leave": c.RateLimits.JoinLeave,
			"bounty":     c.RateLimits.Bounty,
		} {
			if rl.Requests < 1 || rl.Period <= 0 {
				errs = append(errs, fmt.Errorf("rate limit %s must allow at least one request per positive period", name))
			}
		}
	}
	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(strings.TrimSpace(value)); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(value)); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(value)); err == nil {
			return d
		}
	}
	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
