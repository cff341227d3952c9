package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"
)

// envPrefix is prepended to every environment variable, e.g. DOZO_SERVER_PORT.
const envPrefix = "DOZO"

// defaults lists every known key with its default value. Keys without a
// meaningful default are listed with a zero value so that viper binds them
// to the environment during Unmarshal.
var defaults = map[string]any{
	"server.port":      8080,
	"server.log_level": "info",

	"database.driver": "postgres",
	"database.url":    "",

	"mail.host":            "",
	"mail.port":            587,
	"mail.username":        "",
	"mail.password":        "",
	"mail.from":            "noreply@dozo.app",
	"mail.app_url":         "http://localhost:8080",
	"mail.timeout_seconds": 30,

	"scheduler.enabled":                    true,
	"scheduler.interval_minutes":           15,
	"scheduler.reminder_lookahead_minutes": 30,
	"scheduler.digest_hour":                9,
	"scheduler.digest_minute":              0,
	"scheduler.digest_lookahead_days":      7,
	"scheduler.digest_upcoming_limit":      10,
	"scheduler.reminder_grace_seconds":     300,
	"scheduler.digest_grace_seconds":       600,
	"scheduler.delivery_concurrency":       1,
}

// Load configuration from environment variables and optionally config files.
// Environment variables take precedence over values from config files.
// Returns a populated Config struct or an error if loading/validation fails.
func Load() (*Config, error) {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}
