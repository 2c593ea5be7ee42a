package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"electrobot/catalog/internal/classifier"
	"electrobot/catalog/internal/search"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
	Search   SearchConfig   `mapstructure:"search"`
	Wizard   WizardConfig   `mapstructure:"wizard"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Telegram TelegramConfig `mapstructure:"telegram"`
	Log      LogConfig      `mapstructure:"log"`
}

// ServerConfig holds the webhook listener configuration
type ServerConfig struct {
	Port         int    `mapstructure:"port"`
	Host         string `mapstructure:"host"`
	WebhookPath  string `mapstructure:"webhook_path"`
	WebhookToken string `mapstructure:"webhook_token"`
}

func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// FeedConfig describes the catalog feed and how to fetch it
type FeedConfig struct {
	URL                  string        `mapstructure:"url"`
	Format               string        `mapstructure:"format"` // empty = detect
	Timeout              int           `mapstructure:"timeout"`
	MaxRetries           int           `mapstructure:"max_retries"`
	MaxRequestsPerSecond int           `mapstructure:"max_requests_per_second"`
	MinRefreshInterval   time.Duration `mapstructure:"min_refresh_interval"`
	ScheduleInterval     time.Duration `mapstructure:"schedule_interval"`
	Proxies              []string      `mapstructure:"proxies"`
	InsecureSkipVerify   bool          `mapstructure:"insecure_skip_verify"`

	// Authentication
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

// CatalogConfig holds the normalization tables
type CatalogConfig struct {
	Uncategorized     string                `mapstructure:"uncategorized"`
	AttributeSynonyms []AttrSynonym         `mapstructure:"attribute_synonyms"`
	TypeRules         []classifier.TypeRule `mapstructure:"type_rules"`
	Brands            []string              `mapstructure:"brands"`
}

// AttrSynonym maps one feed spelling of an attribute to its canonical name.
// Synonyms are a list, not a map: viper splits map keys on dots.
type AttrSynonym struct {
	From string `mapstructure:"from"`
	To   string `mapstructure:"to"`
}

// Synonyms returns the configured synonym table keyed by feed spelling.
func (c CatalogConfig) Synonyms() map[string]string {
	out := make(map[string]string, len(c.AttributeSynonyms))
	for _, s := range c.AttributeSynonyms {
		if s.From != "" && s.To != "" {
			out[s.From] = s.To
		}
	}
	return out
}

// SearchConfig holds the smart search scoring parameters
type SearchConfig struct {
	AmpTolerance  float64        `mapstructure:"amp_tolerance"`
	SqmmTolerance float64        `mapstructure:"sqmm_tolerance"`
	Weights       search.Weights `mapstructure:"weights"`
	DefaultLimit  int            `mapstructure:"default_limit"`
}

// WizardConfig holds filter wizard settings
type WizardConfig struct {
	OptionsPerStep int           `mapstructure:"options_per_step"`
	PageSize       int           `mapstructure:"page_size"`
	Store          string        `mapstructure:"store"` // memory | redis
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
	MaxSessions    int           `mapstructure:"max_sessions"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Name     string `mapstructure:"name"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s", d.User, d.Password, d.Host, d.Port, d.Name)
}

// RedisConfig holds Redis connection details
type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	Database int    `mapstructure:"database"`
}

func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// TelegramConfig holds the operator notification channel
type TelegramConfig struct {
	Token          string `mapstructure:"token"`
	OperatorChatID int64  `mapstructure:"operator_chat_id"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // text | json
}

// Load reads .env, then config.yaml from the working directory if present,
// with environment variable overrides
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %w", err)
	}

	v := newViper()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	return decode(v)
}

// LoadFile reads configuration from an explicit file, with environment
// variable overrides
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) Validate() error {
	if c.Feed.URL == "" {
		return fmt.Errorf("feed.url is required")
	}
	switch c.Wizard.Store {
	case "memory", "redis":
	default:
		return fmt.Errorf("unknown wizard.store %q", c.Wizard.Store)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("unknown log.format %q", c.Log.Format)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.webhook_path", "/catalog/refresh")
	v.SetDefault("server.webhook_token", "")

	v.SetDefault("feed.url", "")
	v.SetDefault("feed.format", "")
	v.SetDefault("feed.timeout", 60)
	v.SetDefault("feed.max_retries", 2)
	v.SetDefault("feed.max_requests_per_second", 2)
	v.SetDefault("feed.min_refresh_interval", 5*time.Minute)
	v.SetDefault("feed.schedule_interval", time.Hour)
	v.SetDefault("feed.username", "")
	v.SetDefault("feed.password", "")
	v.SetDefault("feed.insecure_skip_verify", false)

	v.SetDefault("catalog.uncategorized", "Без категории")

	v.SetDefault("search.amp_tolerance", 10)
	v.SetDefault("search.sqmm_tolerance", 5)
	v.SetDefault("search.weights.type", search.DefaultWeights.Type)
	v.SetDefault("search.weights.exact", search.DefaultWeights.Exact)
	v.SetDefault("search.weights.near", search.DefaultWeights.Near)
	v.SetDefault("search.weights.brand", search.DefaultWeights.Brand)
	v.SetDefault("search.weights.text", search.DefaultWeights.Text)
	v.SetDefault("search.default_limit", 10)

	v.SetDefault("wizard.options_per_step", 8)
	v.SetDefault("wizard.page_size", 10)
	v.SetDefault("wizard.store", "memory")
	v.SetDefault("wizard.session_ttl", 24*time.Hour)
	v.SetDefault("wizard.max_sessions", 10000)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "catalog")
	v.SetDefault("database.user", "catalog_user")
	v.SetDefault("database.password", "catalog_pass")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.database", 0)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.operator_chat_id", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
}
