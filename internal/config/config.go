// Package config loads the configurator settings from defaults, an optional
// yaml file and CONFIGURATOR_* environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable (CONFIGURATOR_CREATED_BY, ...).
const EnvPrefix = "CONFIGURATOR"

type Config struct {
	// CreatedBy filters template searches to templates created by this user.
	CreatedBy string        `mapstructure:"created_by"`
	LockTTL   time.Duration `mapstructure:"lock_ttl"`
	Gateway   Gateway       `mapstructure:"gateway"`
	Server    Server        `mapstructure:"server"`
	Redis     Redis         `mapstructure:"redis"`
	NATS      NATS          `mapstructure:"nats"`
	Log       Log           `mapstructure:"log"`
}

// Gateway selects the remote gateway. An empty URL runs the in-process engine
// over the demo catalog.
type Gateway struct {
	URL            string        `mapstructure:"url"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	Timeout        time.Duration `mapstructure:"timeout"`
}

type Server struct {
	Addr string `mapstructure:"addr"`
}

// Redis enables the redis session store and lock when Addr is set.
type Redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// NATS enables event publishing when URL is set.
type NATS struct {
	URL     string `mapstructure:"url"`
	Subject string `mapstructure:"subject"`
}

type Log struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
	JSON  bool   `mapstructure:"json"`
}

var defaults = map[string]any{
	"created_by":              "",
	"lock_ttl":                "30s",
	"gateway.url":             "",
	"gateway.connect_timeout": "5s",
	"gateway.timeout":         "60s",
	"server.addr":             ":8080",
	"redis.addr":              "",
	"redis.password":          "",
	"redis.db":                0,
	"redis.prefix":            "configurator:session:",
	"redis.ttl":               "0s",
	"nats.url":                "",
	"nats.subject":            "variants",
	"log.level":               "info",
	"log.file":                "",
	"log.json":                false,
}

// New returns a viper instance with defaults and environment binding in place.
// Callers may bind cobra flags to its keys before calling Load.
func New() *viper.Viper {
	v := viper.New()
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads file (if not empty) or configurator.yaml from the usual places
// and decodes the result.
func Load(v *viper.Viper, file string) (Config, error) {
	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", file, err)
		}
	} else {
		v.SetConfigName("configurator")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.config/configurator")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return Decode(v.AllSettings())
}

// Decode converts a settings map into a Config.
func Decode(settings map[string]any) (Config, error) {
	var cfg Config
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &cfg,
		WeaklyTypedInput: true,
		DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
	})
	if err != nil {
		return Config{}, err
	}
	if err := dec.Decode(settings); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings the runtime cannot honour.
func (c Config) Validate() error {
	if c.LockTTL <= 0 {
		return fmt.Errorf("lock_ttl must be positive, got %s", c.LockTTL)
	}
	if c.Gateway.URL != "" && !strings.HasPrefix(c.Gateway.URL, "http://") && !strings.HasPrefix(c.Gateway.URL, "https://") {
		return fmt.Errorf("gateway.url must be an http(s) URL, got %q", c.Gateway.URL)
	}
	if c.Gateway.Timeout <= 0 || c.Gateway.ConnectTimeout <= 0 {
		return errors.New("gateway timeouts must be positive")
	}
	if c.Redis.TTL < 0 {
		return fmt.Errorf("redis.ttl must not be negative, got %s", c.Redis.TTL)
	}
	return nil
}
