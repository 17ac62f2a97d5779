package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/spf13/viper"
)

const EnvPrefix = "SCAN_AGENT"

type Configuration struct {
	Store     Store   `mapstructure:"store" debugmap:"visible"`
	History   History `mapstructure:"history" debugmap:"visible"`
	Lock      Lock    `mapstructure:"lock" debugmap:"visible"`
	LogFormat string  `mapstructure:"log_format" debugmap:"visible" default:"console"`
	LogLevel  string  `mapstructure:"log_level" debugmap:"visible" default:"info"`
}

type Store struct {
	Path        string        `mapstructure:"path" debugmap:"visible" default:"scan-agent.db"`
	BusyTimeout time.Duration `mapstructure:"busy_timeout" debugmap:"visible" default:"5s"`
	Synchronous string        `mapstructure:"synchronous" debugmap:"visible" default:"NORMAL"`
}

type History struct {
	MaxItems int `mapstructure:"max_items" debugmap:"visible" default:"50"`
}

type Lock struct {
	Enabled bool          `mapstructure:"enabled" debugmap:"visible" default:"true"`
	Path    string        `mapstructure:"path" debugmap:"visible"`
	Timeout time.Duration `mapstructure:"timeout" debugmap:"visible" default:"3s"`
}

type ConfigurationOption func(*Configuration)

func NewConfigurationWithOptions(opts ...ConfigurationOption) *Configuration {
	c := &Configuration{}
	for _, o := range opts {
		o(c)
	}
	return c
}

func NewConfigurationWithOptionsAndDefaults(opts ...ConfigurationOption) *Configuration {
	c := &Configuration{}
	_ = defaults.Set(c)
	for _, o := range opts {
		o(c)
	}
	return c
}

func WithStore(store Store) ConfigurationOption {
	return func(c *Configuration) {
		c.Store = store
	}
}

func WithHistory(history History) ConfigurationOption {
	return func(c *Configuration) {
		c.History = history
	}
}

func WithLock(lock Lock) ConfigurationOption {
	return func(c *Configuration) {
		c.Lock = lock
	}
}

func WithLogFormat(logFormat string) ConfigurationOption {
	return func(c *Configuration) {
		c.LogFormat = logFormat
	}
}

func WithLogLevel(logLevel string) ConfigurationOption {
	return func(c *Configuration) {
		c.LogLevel = logLevel
	}
}

// LockPath returns the single-instance lock file, next to the database
// unless configured.
func (c *Configuration) LockPath() string {
	if c.Lock.Path != "" {
		return c.Lock.Path
	}
	return c.Store.Path + ".lock"
}

func (c *Configuration) Validate() error {
	if c.Store.Path == "" {
		return fmt.Errorf("store.path must not be empty")
	}
	switch strings.ToUpper(c.Store.Synchronous) {
	case "OFF", "NORMAL", "FULL", "EXTRA":
	default:
		return fmt.Errorf("invalid store.synchronous %q: must be one of OFF, NORMAL, FULL, EXTRA", c.Store.Synchronous)
	}
	switch c.LogFormat {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log_format %q: must be console or json", c.LogFormat)
	}
	if c.History.MaxItems <= 0 {
		return fmt.Errorf("history.max_items must be positive, got %d", c.History.MaxItems)
	}
	return nil
}

// DebugMap returns the effective settings keyed like the configuration file.
func (c *Configuration) DebugMap() map[string]any {
	return map[string]any{
		"store.path":         c.Store.Path,
		"store.busy_timeout": c.Store.BusyTimeout.String(),
		"store.synchronous":  c.Store.Synchronous,
		"history.max_items":  c.History.MaxItems,
		"lock.enabled":       c.Lock.Enabled,
		"lock.path":          c.LockPath(),
		"lock.timeout":       c.Lock.Timeout.String(),
		"log_format":         c.LogFormat,
		"log_level":          c.LogLevel,
	}
}

func (c *Configuration) settings() map[string]any {
	return map[string]any{
		"store.path":         c.Store.Path,
		"store.busy_timeout": c.Store.BusyTimeout,
		"store.synchronous":  c.Store.Synchronous,
		"history.max_items":  c.History.MaxItems,
		"lock.enabled":       c.Lock.Enabled,
		"lock.path":          c.Lock.Path,
		"lock.timeout":       c.Lock.Timeout,
		"log_format":         c.LogFormat,
		"log_level":          c.LogLevel,
	}
}

// NewViper returns a viper instance seeded with the defaults and reading
// SCAN_AGENT_* environment variables (SCAN_AGENT_STORE_PATH for store.path).
func NewViper() *viper.Viper {
	v := viper.New()
	for key, value := range NewConfigurationWithOptionsAndDefaults().settings() {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads the optional configuration file into v and decodes the result.
// Precedence: flags bound to v, environment, file, defaults.
func Load(v *viper.Viper, file string) (*Configuration, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", file, err)
		}
	}

	cfg := NewConfigurationWithOptionsAndDefaults()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
