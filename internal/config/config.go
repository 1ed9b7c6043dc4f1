// Package config loads application configuration from config files and
// environment variables via Viper.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/jonesrussell/gomirror/internal/logger"
)

// Mirror engine defaults.
const (
	defaultConcurrency    = 2
	defaultPacingDelay    = 500 * time.Millisecond
	defaultRetryAttempts  = 3
	defaultRetryDelay     = time.Second
	defaultRequestTimeout = 30 * time.Second
	defaultQuotaEstimate  = 2 * 1024 * 1024 // typical article + images, before real size is known
	defaultQuotaCapacity  = 1024 * 1024 * 1024
	defaultServerAddress  = ":8080"
	defaultStorageRoot    = "./data"
	defaultUserAgent      = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	defaultAcceptLanguage = "zh-CN,zh;q=0.9,en;q=0.8"
)

// Config is the root application configuration.
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logger   logger.Config  `mapstructure:"logger"`
	Server   ServerConfig   `mapstructure:"server"`
	Mirror   MirrorConfig   `mapstructure:"mirror"`
	Schedule ScheduleConfig `mapstructure:"schedule"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
}

// DSN returns the lib/pq connection string.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// ServerConfig holds HTTP API server settings.
type ServerConfig struct {
	Address string `mapstructure:"address"`
}

// MirrorConfig holds the article acquisition engine settings.
type MirrorConfig struct {
	// StorageRoot is the base directory for stored documents and resources.
	StorageRoot string `mapstructure:"storage_root"`
	// AllowedHosts is the CDN allow-list for image harvesting. A candidate
	// host must equal, or be a subdomain of, one of these entries.
	AllowedHosts []string `mapstructure:"allowed_hosts"`
	// UserAgent is sent on every outbound request.
	UserAgent string `mapstructure:"user_agent"`
	// AcceptLanguage is sent on every outbound request.
	AcceptLanguage string `mapstructure:"accept_language"`
	// Concurrency is the default batch concurrency (clamped to [1,3] at run time).
	Concurrency int `mapstructure:"concurrency"`
	// PacingDelay is the minimum interval between the starts of consecutive fetches.
	PacingDelay time.Duration `mapstructure:"pacing_delay"`
	// RetryAttempts is the number of tries for transport-level failures.
	RetryAttempts int `mapstructure:"retry_attempts"`
	// RetryDelay is the fixed wait between retry attempts.
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	// RequestTimeout bounds a single HTTP request.
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	// QuotaEstimateBytes is the conservative per-article footprint used for
	// the pre-fetch quota check, before the real size is known.
	QuotaEstimateBytes int64 `mapstructure:"quota_estimate_bytes"`
	// DefaultQuotaBytes is the capacity assigned to accounts without a ledger row.
	DefaultQuotaBytes int64 `mapstructure:"default_quota_bytes"`
	// SessionExpiredMarkers are body substrings that identify the upstream's
	// session-expiry interstitial.
	SessionExpiredMarkers []string `mapstructure:"session_expired_markers"`
}

// ScheduleConfig holds the cron-driven re-mirror settings.
type ScheduleConfig struct {
	Enabled bool             `mapstructure:"enabled"`
	Sources []ScheduleSource `mapstructure:"sources"`
}

// ScheduleSource is one recurring mirror job.
type ScheduleSource struct {
	AccountID string `mapstructure:"account_id"`
	SourceKey string `mapstructure:"source_key"`
	// URLFile is a newline-separated list of article URLs to mirror.
	URLFile string `mapstructure:"url_file"`
	// Cron is a standard 5-field cron expression.
	Cron string `mapstructure:"cron"`
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.Mirror.StorageRoot == "" {
		return errors.New("mirror.storage_root must be specified")
	}
	if len(c.Mirror.AllowedHosts) == 0 {
		return errors.New("mirror.allowed_hosts must not be empty")
	}
	if c.Mirror.RetryAttempts < 1 {
		return fmt.Errorf("mirror.retry_attempts must be at least 1, got %d", c.Mirror.RetryAttempts)
	}

	for i, src := range c.Schedule.Sources {
		if src.AccountID == "" || src.SourceKey == "" || src.Cron == "" {
			return fmt.Errorf("schedule.sources[%d]: account_id, source_key, and cron are required", i)
		}
	}

	return nil
}

// Load initializes Viper and unmarshals the configuration. The optional
// cfgFile overrides the default search path.
func Load(cfgFile string) (*Config, error) {
	// Environment variables from .env are optional.
	_ = godotenv.Load()

	v := viper.New()
	v.AutomaticEnv()
	v.SetEnvPrefix("GOMIRROR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	setDefaults(v)

	// Config file is optional; defaults and environment variables suffice.
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && cfgFile != "" {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers production-safe defaults.
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "gomirror")
	v.SetDefault("database.password", "")
	v.SetDefault("database.dbname", "gomirror")
	v.SetDefault("database.sslmode", "disable")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.encoding", "console")
	v.SetDefault("logger.development", false)

	v.SetDefault("server.address", defaultServerAddress)

	v.SetDefault("mirror.storage_root", defaultStorageRoot)
	v.SetDefault("mirror.allowed_hosts", []string{
		"mmbiz.qpic.cn",
		"mmbiz.qlogo.cn",
		"res.wx.qq.com",
	})
	v.SetDefault("mirror.user_agent", defaultUserAgent)
	v.SetDefault("mirror.accept_language", defaultAcceptLanguage)
	v.SetDefault("mirror.concurrency", defaultConcurrency)
	v.SetDefault("mirror.pacing_delay", defaultPacingDelay)
	v.SetDefault("mirror.retry_attempts", defaultRetryAttempts)
	v.SetDefault("mirror.retry_delay", defaultRetryDelay)
	v.SetDefault("mirror.request_timeout", defaultRequestTimeout)
	v.SetDefault("mirror.quota_estimate_bytes", defaultQuotaEstimate)
	v.SetDefault("mirror.default_quota_bytes", defaultQuotaCapacity)
	v.SetDefault("mirror.session_expired_markers", []string{
		"session expired",
		"请在微信客户端打开链接",
	})

	v.SetDefault("schedule.enabled", false)
}
