package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPath names the environment variable consulted when no --config flag is given.
const EnvPath = "JOBSIGHT_CONFIG"

// Config is the root configuration for Jobsight.
type Config struct {
	Server         ServerConfig
	Store          StoreConfig
	Resilience     ResilienceConfig
	RateLimit      RateLimitConfig
	Cache          CacheConfig
	Aggregation    AggregationConfig
	Notification   NotificationConfig
	ReloadInterval time.Duration // zero disables config reload
	Providers      []ProviderConfig
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr            string
	ShutdownTimeout time.Duration
}

// StoreConfig selects the posting store.
type StoreConfig struct {
	Driver string `yaml:"driver"` // "sqlite", "postgres" or "memory"
	Path   string `yaml:"path"`   // sqlite file
	DSN    string `yaml:"dsn"`    // postgres connection string
}

// ResilienceConfig tunes retry and circuit breaking around every provider.
type ResilienceConfig struct {
	MaxRetries       int
	BaseDelay        time.Duration
	MaxDelay         time.Duration // longest single wait, including a provider's Retry-After
	FailureThreshold int
	CoolDown         time.Duration
	RequestTimeout   time.Duration
}

// RateLimitConfig controls provider-level rate limiting.
type RateLimitConfig struct {
	MinDelay  time.Duration            // minimum gap between requests to the same provider type
	Overrides map[string]time.Duration // per-type overrides, keyed by provider type
}

// MinDelayFor returns the configured delay for the given provider type, falling back to MinDelay.
func (r RateLimitConfig) MinDelayFor(providerType string) time.Duration {
	if d, ok := r.Overrides[providerType]; ok {
		return d
	}
	return r.MinDelay
}

// CacheConfig enables the Redis response cache when RedisURL is set.
type CacheConfig struct {
	RedisURL string
	TTL      time.Duration
}

// AggregationConfig tunes the search fan-out.
type AggregationConfig struct {
	Concurrency int
}

// NotificationConfig controls which notifier is used and its settings.
type NotificationConfig struct {
	Type       string `yaml:"type"`        // "log", "slack", "amqp" or "none"
	WebhookURL string `yaml:"webhook_url"` // required if type is "slack"
	AMQPURL    string `yaml:"amqp_url"`    // required if type is "amqp"
	Exchange   string `yaml:"exchange"`
}

// Provider types.
const (
	TypeAdzuna     = "adzuna"
	TypeGreenhouse = "greenhouse"
	TypeLever      = "lever"
	TypeAshby      = "ashby"
	TypeMock       = "mock"
)

// ProviderConfig describes one job source.
type ProviderConfig struct {
	Name       string
	Type       string
	Enabled    bool
	AppID      string
	AppKey     string
	Country    string
	BaseURL    string
	BoardToken string // greenhouse/ashby board token or lever company slug
	Company    string
}

const (
	defaultAddr            = ":8080"
	defaultShutdownTimeout = 10 * time.Second
	defaultSQLitePath      = "jobsight.db"
	defaultMaxRetries      = 2
	defaultBaseDelay       = 500 * time.Millisecond
	defaultMaxDelay        = 10 * time.Second
	defaultThreshold       = 5
	defaultCoolDown        = 30 * time.Second
	defaultRequestTimeout  = 15 * time.Second
	defaultMinDelay        = time.Second
	defaultCacheTTL        = 5 * time.Minute
	defaultConcurrency     = 4
)

// rawConfig is used for YAML unmarshaling (snake_case fields and duration as string).
type rawConfig struct {
	Server         rawServerConfig     `yaml:"server"`
	Store          StoreConfig         `yaml:"store"`
	Resilience     rawResilienceConfig `yaml:"resilience"`
	RateLimit      rawRateLimitConfig  `yaml:"rate_limit"`
	Cache          rawCacheConfig      `yaml:"cache"`
	Aggregation    rawAggregation      `yaml:"aggregation"`
	Notification   NotificationConfig  `yaml:"notification"`
	ReloadInterval string              `yaml:"reload_interval"`
	Providers      []rawProviderConfig `yaml:"providers"`
}

type rawServerConfig struct {
	Addr            string `yaml:"addr"`
	ShutdownTimeout string `yaml:"shutdown_timeout"`
}

type rawResilienceConfig struct {
	MaxRetries       *int   `yaml:"max_retries"`
	BaseDelay        string `yaml:"base_delay"`
	MaxDelay         string `yaml:"max_delay"`
	FailureThreshold int    `yaml:"failure_threshold"`
	CoolDown         string `yaml:"cool_down"`
	RequestTimeout   string `yaml:"request_timeout"`
}

type rawRateLimitConfig struct {
	MinDelay  string            `yaml:"min_delay"`
	Overrides map[string]string `yaml:"overrides"`
}

type rawCacheConfig struct {
	RedisURL string `yaml:"redis_url"`
	TTL      string `yaml:"ttl"`
}

type rawAggregation struct {
	Concurrency int `yaml:"concurrency"`
}

type rawProviderConfig struct {
	Name       string `yaml:"name"`
	Type       string `yaml:"type"`
	Enabled    *bool  `yaml:"enabled"`
	AppID      string `yaml:"app_id"`
	AppKey     string `yaml:"app_key"`
	Country    string `yaml:"country"`
	BaseURL    string `yaml:"base_url"`
	BoardToken string `yaml:"board_token"`
	Company    string `yaml:"company"`
}

// ResolvePath picks the config file: the flag value, then $JOBSIGHT_CONFIG, then ./config.yaml.
func ResolvePath(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(EnvPath); env != "" {
		return env
	}
	return "config.yaml"
}

// Load reads and parses the YAML config file at path, validates it, and returns Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse expands environment variables in data and decodes it into a validated Config.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var raw rawConfig
	if err := yaml.Unmarshal([]byte(expanded), &raw); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	p := durationParser{}
	cfg := &Config{
		Server: ServerConfig{
			Addr:            orDefault(raw.Server.Addr, defaultAddr),
			ShutdownTimeout: p.parse("server.shutdown_timeout", raw.Server.ShutdownTimeout, defaultShutdownTimeout),
		},
		Store: StoreConfig{
			Driver: orDefault(strings.ToLower(raw.Store.Driver), "sqlite"),
			Path:   orDefault(raw.Store.Path, defaultSQLitePath),
			DSN:    raw.Store.DSN,
		},
		Resilience: ResilienceConfig{
			MaxRetries:       defaultMaxRetries,
			BaseDelay:        p.parse("resilience.base_delay", raw.Resilience.BaseDelay, defaultBaseDelay),
			MaxDelay:         p.parse("resilience.max_delay", raw.Resilience.MaxDelay, defaultMaxDelay),
			FailureThreshold: raw.Resilience.FailureThreshold,
			CoolDown:         p.parse("resilience.cool_down", raw.Resilience.CoolDown, defaultCoolDown),
			RequestTimeout:   p.parse("resilience.request_timeout", raw.Resilience.RequestTimeout, defaultRequestTimeout),
		},
		RateLimit: RateLimitConfig{
			MinDelay:  p.parse("rate_limit.min_delay", raw.RateLimit.MinDelay, defaultMinDelay),
			Overrides: make(map[string]time.Duration),
		},
		Cache: CacheConfig{
			RedisURL: raw.Cache.RedisURL,
			TTL:      p.parse("cache.ttl", raw.Cache.TTL, defaultCacheTTL),
		},
		Aggregation: AggregationConfig{
			Concurrency: raw.Aggregation.Concurrency,
		},
		Notification:   raw.Notification,
		ReloadInterval: p.parse("reload_interval", raw.ReloadInterval, 0),
	}
	if raw.Resilience.MaxRetries != nil {
		cfg.Resilience.MaxRetries = *raw.Resilience.MaxRetries
	}
	if cfg.Resilience.FailureThreshold == 0 {
		cfg.Resilience.FailureThreshold = defaultThreshold
	}
	if cfg.Aggregation.Concurrency == 0 {
		cfg.Aggregation.Concurrency = defaultConcurrency
	}
	if cfg.Notification.Type == "" {
		cfg.Notification.Type = "log"
	}
	for typ, d := range raw.RateLimit.Overrides {
		cfg.RateLimit.Overrides[strings.ToLower(typ)] = p.parse("rate_limit.overrides["+typ+"]", d, 0)
	}
	if p.err != nil {
		return nil, p.err
	}

	for _, rp := range raw.Providers {
		pc := ProviderConfig{
			Name:       rp.Name,
			Type:       strings.ToLower(rp.Type),
			Enabled:    rp.Enabled == nil || *rp.Enabled,
			AppID:      rp.AppID,
			AppKey:     rp.AppKey,
			Country:    rp.Country,
			BaseURL:    rp.BaseURL,
			BoardToken: rp.BoardToken,
			Company:    rp.Company,
		}
		if pc.Name == "" {
			pc.Name = defaultName(pc)
		}
		cfg.Providers = append(cfg.Providers, pc)
	}

	if err := validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// EnabledByName maps each provider name to its enabled flag.
func (c *Config) EnabledByName() map[string]bool {
	out := make(map[string]bool, len(c.Providers))
	for _, p := range c.Providers {
		out[p.Name] = p.Enabled
	}
	return out
}

// defaultName matches the names adapters pick for themselves.
func defaultName(p ProviderConfig) string {
	switch p.Type {
	case TypeGreenhouse, TypeLever, TypeAshby:
		return p.Type + ":" + p.BoardToken
	default:
		return p.Type
	}
}

func validate(cfg *Config) error {
	switch cfg.Store.Driver {
	case "sqlite", "memory":
	case "postgres":
		if cfg.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required when store.driver is \"postgres\"")
		}
	default:
		return fmt.Errorf("store.driver must be sqlite, postgres or memory, got %q", cfg.Store.Driver)
	}

	if cfg.Resilience.MaxRetries < 0 {
		return fmt.Errorf("resilience.max_retries must be >= 0, got %d", cfg.Resilience.MaxRetries)
	}
	if cfg.Resilience.MaxDelay <= 0 {
		return fmt.Errorf("resilience.max_delay must be positive, got %v", cfg.Resilience.MaxDelay)
	}
	if cfg.Resilience.FailureThreshold < 1 {
		return fmt.Errorf("resilience.failure_threshold must be >= 1, got %d", cfg.Resilience.FailureThreshold)
	}
	if cfg.Resilience.CoolDown <= 0 {
		return fmt.Errorf("resilience.cool_down must be positive, got %v", cfg.Resilience.CoolDown)
	}
	if cfg.Aggregation.Concurrency < 1 {
		return fmt.Errorf("aggregation.concurrency must be >= 1, got %d", cfg.Aggregation.Concurrency)
	}
	if cfg.ReloadInterval < 0 || (cfg.ReloadInterval > 0 && cfg.ReloadInterval < time.Second) {
		return fmt.Errorf("reload_interval must be 0 or at least 1s, got %v", cfg.ReloadInterval)
	}

	switch cfg.Notification.Type {
	case "log", "none":
	case "slack":
		if cfg.Notification.WebhookURL == "" {
			return fmt.Errorf("notification.webhook_url is required when type is \"slack\"")
		}
		if !strings.HasPrefix(cfg.Notification.WebhookURL, "https://hooks.slack.com/") {
			return fmt.Errorf("notification.webhook_url must start with https://hooks.slack.com/")
		}
	case "amqp":
		if cfg.Notification.AMQPURL == "" {
			return fmt.Errorf("notification.amqp_url is required when type is \"amqp\"")
		}
	default:
		return fmt.Errorf("notification.type must be log, slack, amqp or none, got %q", cfg.Notification.Type)
	}

	if len(cfg.Providers) == 0 {
		return fmt.Errorf("at least one provider must be configured")
	}
	names := make(map[string]bool, len(cfg.Providers))
	for i, p := range cfg.Providers {
		if names[p.Name] {
			return fmt.Errorf("providers[%d]: duplicate name %q", i, p.Name)
		}
		names[p.Name] = true

		switch p.Type {
		case TypeAdzuna:
			if p.AppID == "" || p.AppKey == "" {
				return fmt.Errorf("providers[%d] (%s): app_id and app_key are required for adzuna", i, p.Name)
			}
		case TypeGreenhouse, TypeLever, TypeAshby:
			if p.BoardToken == "" {
				return fmt.Errorf("providers[%d] (%s): board_token is required for %s", i, p.Name, p.Type)
			}
		case TypeMock:
		default:
			return fmt.Errorf("providers[%d] (%s): unknown type %q", i, p.Name, p.Type)
		}
	}

	return nil
}

// durationParser keeps the first parse error so Load can report it once.
type durationParser struct {
	err error
}

func (p *durationParser) parse(field, raw string, def time.Duration) time.Duration {
	if raw == "" || p.err != nil {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		p.err = fmt.Errorf("parse %s %q: %w", field, raw, err)
		return def
	}
	return d
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
