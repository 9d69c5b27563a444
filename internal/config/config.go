package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config is the full process configuration, loaded from a YAML file with
// secrets overridable from the environment (.env is honored).
type Config struct {
	Log struct {
		File       string `yaml:"file"`
		MaxSizeMB  int64  `yaml:"max_size_mb"`
		MaxBackups int    `yaml:"max_backups"`
	} `yaml:"log"`

	Bridge struct {
		URL            string `yaml:"url"`
		MaxRetries     int    `yaml:"max_retries"`
		RetryDelaySecs int    `yaml:"retry_delay_seconds"`
	} `yaml:"bridge"`

	// Paper switches to the in-memory connector and store; no terminal and no
	// database are touched.
	Paper bool `yaml:"paper"`

	DatabaseURL string `yaml:"database_url"`
	WebhookURL  string `yaml:"webhook_url"`
	MetricsAddr string `yaml:"metrics_addr"`

	Trading struct {
		Symbols         []string `yaml:"symbols"`
		Timeframe       string   `yaml:"timeframe"`
		WindowBars      int      `yaml:"window_bars"`
		Lot             float64  `yaml:"lot"`
		Deviation       int      `yaml:"deviation"`
		PipRange        float64  `yaml:"pip_range"`
		PollSeconds     int      `yaml:"poll_seconds"`
		FastPollSeconds int      `yaml:"fast_poll_seconds"`
	} `yaml:"trading"`

	Strategy struct {
		MagicPrimary         int     `yaml:"magic_primary"`
		MagicSecondary       int     `yaml:"magic_secondary"`
		MagicRetracement     int     `yaml:"magic_retracement"`
		ATRPeriod            int     `yaml:"atr_period"`
		ATRSLMultiplier      float64 `yaml:"atr_sl_multiplier"`
		MaxDistATRMultiplier float64 `yaml:"max_dist_atr_multiplier"`
		TrailATRMultiplier   float64 `yaml:"trail_atr_multiplier"`
	} `yaml:"strategy"`

	Hours struct {
		ResetEarly int `yaml:"reset_early"` // clears yesterday's state
		Levels     int `yaml:"levels"`      // box calculated once this hour is reached
		ResetLate  int `yaml:"reset_late"`  // end-of-day safety reset
	} `yaml:"hours"`
}

// Load reads the YAML file, applies environment overrides and validates.
// Validation failures are configuration errors: they prevent any session from
// being constructed at all.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("config: no .env file found, using system environment")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	// Secrets and endpoints come from the environment when set.
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("DISCORD_WEBHOOK_URL"); v != "" {
		cfg.WebhookURL = v
	}
	if v := os.Getenv("MT5_BRIDGE_URL"); v != "" {
		cfg.Bridge.URL = v
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Log.File = "tracy.log"
	cfg.Log.MaxSizeMB = 10
	cfg.Log.MaxBackups = 3
	cfg.Bridge.URL = "http://127.0.0.1:8787"
	cfg.Bridge.MaxRetries = 3
	cfg.Bridge.RetryDelaySecs = 10
	cfg.MetricsAddr = ":9090"
	cfg.Trading.Timeframe = "H1"
	cfg.Trading.WindowBars = 24
	cfg.Trading.Deviation = 20
	cfg.Trading.PollSeconds = 60
	cfg.Trading.FastPollSeconds = 10
	cfg.Strategy.ATRPeriod = 14
	cfg.Strategy.ATRSLMultiplier = 2.0
	cfg.Strategy.MaxDistATRMultiplier = 3.0
	cfg.Strategy.TrailATRMultiplier = 1.0
	cfg.Hours.ResetEarly = 1
	cfg.Hours.Levels = 2
	cfg.Hours.ResetLate = 22
	return cfg
}

func (c *Config) validate() error {
	if len(c.Trading.Symbols) == 0 {
		return fmt.Errorf("config: trading.symbols must not be empty")
	}
	if c.Trading.Lot <= 0 {
		return fmt.Errorf("config: trading.lot must be positive")
	}
	if c.Trading.PipRange < 0 {
		return fmt.Errorf("config: trading.pip_range must not be negative")
	}
	if c.Trading.WindowBars < 2 {
		return fmt.Errorf("config: trading.window_bars must be at least 2")
	}
	seen := map[int]string{}
	for _, m := range []struct {
		magic int
		name  string
	}{
		{c.Strategy.MagicPrimary, "magic_primary"},
		{c.Strategy.MagicSecondary, "magic_secondary"},
		{c.Strategy.MagicRetracement, "magic_retracement"},
	} {
		if m.magic == 0 {
			return fmt.Errorf("config: strategy.%s must be set", m.name)
		}
		if other, dup := seen[m.magic]; dup {
			return fmt.Errorf("config: strategy.%s and %s share magic number %d", m.name, other, m.magic)
		}
		seen[m.magic] = m.name
	}
	if c.Strategy.ATRPeriod < 1 {
		return fmt.Errorf("config: strategy.atr_period must be at least 1")
	}
	if c.Hours.ResetEarly >= c.Hours.Levels || c.Hours.Levels >= c.Hours.ResetLate {
		return fmt.Errorf("config: hours must satisfy reset_early < levels < reset_late")
	}
	return nil
}

// PollInterval is the session cadence while flat.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Trading.PollSeconds) * time.Second
}

// FastPollInterval is the shortened cadence while positions are open.
func (c *Config) FastPollInterval() time.Duration {
	return time.Duration(c.Trading.FastPollSeconds) * time.Second
}

// RetryDelay is the pause between bounded connect attempts.
func (c *Config) RetryDelay() time.Duration {
	return time.Duration(c.Bridge.RetryDelaySecs) * time.Second
}
