package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	HTTP      HTTPConfig
	Store     StoreConfig
	Scheduler SchedulerConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Access    AccessConfig
	Currency  CurrencyConfig
	Timezone  string
}

type HTTPConfig struct {
	Addr string
}

// StoreConfig selects where the ledger document lives.
type StoreConfig struct {
	Driver      string // memory, redis or sqlite
	RedisAddr   string `mapstructure:"redis_addr"`
	SQLitePath  string `mapstructure:"sqlite_path"`
	Key         string
	BusinessKey string `mapstructure:"business_key"`
}

type SchedulerConfig struct {
	Cron string
}

type LogConfig struct {
	Level string
}

type RateLimitConfig struct {
	Capacity int
	Window   time.Duration
}

type AccessConfig struct {
	PaidUsers   []string `mapstructure:"paid_users"`
	CheckoutURL string   `mapstructure:"checkout_url"`
}

// CurrencyConfig points at a USD-based rate feed.
type CurrencyConfig struct {
	RatesURL    string `mapstructure:"rates_url"`
	RefreshCron string `mapstructure:"refresh_cron"`
}

// Load reads configuration from defaults, an optional TOML file and the
// environment. A .env file in the working directory is loaded first.
// Env overrides use the prefix PROFITPULSE_, e.g. PROFITPULSE_STORE_DRIVER.
func Load() (Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()

	v.SetDefault("http.addr", ":8080")
	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.redis_addr", "localhost:6379")
	v.SetDefault("store.sqlite_path", "profitpulse.db")
	v.SetDefault("store.key", "financeTrackerData")
	v.SetDefault("store.business_key", "financeTrackerBusinessData")
	v.SetDefault("scheduler.cron", "5 0 * * *")
	v.SetDefault("log.level", "info")
	v.SetDefault("ratelimit.capacity", 60)
	v.SetDefault("ratelimit.window", time.Minute)
	v.SetDefault("access.paid_users", []string{})
	v.SetDefault("access.checkout_url", "https://checkout.example.com/pay")
	v.SetDefault("currency.rates_url", "https://api.exchangerate-api.com/v4/latest/USD")
	v.SetDefault("currency.refresh_cron", "@hourly")
	v.SetDefault("timezone", "Local")

	v.SetConfigType("toml")
	if path := os.Getenv("PROFITPULSE_CONFIG"); path != "" {
		v.SetConfigFile(path)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("profitpulse")
	}

	v.SetEnvPrefix("PROFITPULSE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" || c.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c Config) validate() error {
	switch c.Store.Driver {
	case "memory", "redis", "sqlite":
	default:
		return fmt.Errorf("unknown store driver %q", c.Store.Driver)
	}
	if c.RateLimit.Capacity <= 0 {
		return fmt.Errorf("ratelimit.capacity must be positive, got %d", c.RateLimit.Capacity)
	}
	if c.RateLimit.Window <= 0 {
		return fmt.Errorf("ratelimit.window must be positive, got %s", c.RateLimit.Window)
	}
	return nil
}
