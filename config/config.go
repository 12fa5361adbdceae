package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type Config struct {
	// Server configuration
	Port        string `mapstructure:"PORT"`
	Environment string `mapstructure:"ENVIRONMENT"`

	// Redis configuration
	RedisURL      string `mapstructure:"REDIS_URL"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisDB       int    `mapstructure:"REDIS_DB"`

	// PubNub configuration, realtime stays in-process when the keys are empty
	PubNubPublishKey   string `mapstructure:"PUBNUB_PUBLISH_KEY"`
	PubNubSubscribeKey string `mapstructure:"PUBNUB_SUBSCRIBE_KEY"`
	PubNubSecretKey    string `mapstructure:"PUBNUB_SECRET_KEY"`
	PubNubUserID       string `mapstructure:"PUBNUB_USER_ID"`

	// Scoring
	ShopTimezone          string        `mapstructure:"SHOP_TIMEZONE"`
	FetchTimeout          time.Duration `mapstructure:"FETCH_TIMEOUT"`
	DefaultMaxWaitMinutes float64       `mapstructure:"DEFAULT_MAX_WAIT_MINUTES"`
	BreakerOpenTimeout    time.Duration `mapstructure:"BREAKER_OPEN_TIMEOUT"`

	// Rate limiting
	RateLimitPerMinute int `mapstructure:"RATE_LIMIT_PER_MINUTE"`

	// Monitoring
	EnableMetrics   bool          `mapstructure:"ENABLE_METRICS"`
	MetricsPort     string        `mapstructure:"METRICS_PORT"`
	MetricsInterval time.Duration `mapstructure:"METRICS_INTERVAL"`

	location *time.Location
}

var defaults = map[string]any{
	"PORT":        "8090",
	"ENVIRONMENT": "development",

	"REDIS_URL":      "localhost:6379",
	"REDIS_PASSWORD": "",
	"REDIS_DB":       0,

	"PUBNUB_PUBLISH_KEY":   "",
	"PUBNUB_SUBSCRIBE_KEY": "",
	"PUBNUB_SECRET_KEY":    "",
	"PUBNUB_USER_ID":       "",

	"SHOP_TIMEZONE":            "Local",
	"FETCH_TIMEOUT":            "3s",
	"DEFAULT_MAX_WAIT_MINUTES": 30.0,
	"BREAKER_OPEN_TIMEOUT":     "30s",

	"RATE_LIMIT_PER_MINUTE": 30,

	"ENABLE_METRICS":   true,
	"METRICS_PORT":     "9090",
	"METRICS_INTERVAL": "30s",
}

// LoadConfig reads environment variables over the defaults. cfgFile, when
// set, is read first and environment variables still win over it.
func LoadConfig(cfgFile string) (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var cfg Config
	decoderConfigOption := viper.DecoderConfigOption(func(dc *mapstructure.DecoderConfig) {
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
		dc.WeaklyTypedInput = true
	})
	if err := v.Unmarshal(&cfg, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	loc, err := time.LoadLocation(c.ShopTimezone)
	if err != nil {
		return fmt.Errorf("invalid SHOP_TIMEZONE %q: %w", c.ShopTimezone, err)
	}
	c.location = loc

	if c.DefaultMaxWaitMinutes <= 0 {
		return fmt.Errorf("DEFAULT_MAX_WAIT_MINUTES must be positive, got %v", c.DefaultMaxWaitMinutes)
	}
	if c.FetchTimeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive, got %v", c.FetchTimeout)
	}
	if c.MetricsInterval <= 0 {
		c.MetricsInterval = 30 * time.Second
	}
	return nil
}

// Location is the zone peak hours and weekends are judged in.
func (c *Config) Location() *time.Location {
	if c.location == nil {
		return time.Local
	}
	return c.location
}

// Clock returns the current time in the shop timezone.
func (c *Config) Clock() func() time.Time {
	loc := c.Location()
	return func() time.Time { return time.Now().In(loc) }
}

func (c *Config) PubNubEnabled() bool {
	return c.PubNubPublishKey != "" && c.PubNubSubscribeKey != ""
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
