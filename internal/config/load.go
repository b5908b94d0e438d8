package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment variable name, e.g.
// SKILLMATCH_DATABASE_URL for database.url.
const EnvPrefix = "SKILLMATCH"

// defaults lists every configuration key with its default value. Keys
// without a sensible default are listed with nil so they can still be
// bound to environment variables.
var defaults = map[string]any{
	"server.port":                        8080,
	"server.log_level":                   "info",
	"server.shutdown_timeout_seconds":    10,
	"database.url":                       nil,
	"database.max_open_conns":            25,
	"database.max_idle_conns":            25,
	"database.conn_max_lifetime_minutes": 5,
	"auth.jwt_secret":                    nil,
	"auth.token_lifetime_minutes":        60,
	"matching.skill_weight":              0,
	"matching.experience_weight":         0,
	"matching.headroom_weight":           0,
	"matching.load_per_story_point":      0,
	"matching.min_score":                 0,
	"matching.story_point_ceiling":       0,
	"matching.medium_threshold":          0,
	"matching.high_threshold":            0,
	"matching.critical_threshold":        0,
	"matching.days_per_story_point":      0,
	"matching.run_timeout_seconds":       30,
	"task.worker_count":                  2,
	"task.queue_size":                    100,
	"mail.enabled":                       false,
	"mail.host":                          "smtp.office365.com",
	"mail.port":                          587,
	"mail.username":                      nil,
	"mail.password":                      nil,
	"mail.from":                          nil,
	"mail.rate_per_second":               2.0,
	"mail.breaker_max_failures":          5,
	"mail.app_url":                       nil,
	"redis.url":                          nil,
	"redis.lock_ttl_seconds":             60,
	"rabbitmq.url":                       nil,
	"rabbitmq.exchange":                  "skillmatch.events",
	"llm.enabled":                        false,
	"llm.gemini_api_key":                 nil,
	"llm.model_name":                     "gemini-2.0-flash",
	"llm.timeout_seconds":                10,
	"llm.max_retries":                    2,
	"llm.retry_delay_seconds":            1,
}

// Load reads configuration from an optional .env file, an optional
// config.yaml in the working directory, and environment variables.
// Environment variables take precedence over file values.
// Returns a populated Config or an error if loading or validation fails.
func Load() (*Config, error) {
	v, err := newViper()
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// LoadMatching reads only the matching section from the same sources as
// Load. It needs no database or auth settings, so offline tools can use it.
func LoadMatching() (MatchingConfig, error) {
	v, err := newViper()
	if err != nil {
		return MatchingConfig{}, err
	}

	var cfg struct {
		Matching MatchingConfig `mapstructure:"matching"`
	}
	if err := v.Unmarshal(&cfg); err != nil {
		return MatchingConfig{}, fmt.Errorf("error unmarshalling matching config: %w", err)
	}

	if err := validator.New().Struct(&cfg.Matching); err != nil {
		return MatchingConfig{}, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg.Matching, nil
}

// newViper layers defaults, config.yaml and the environment.
func newViper() (*viper.Viper, error) {
	// A missing .env file is normal outside local development
	_ = godotenv.Load()

	v := viper.New()

	for key, value := range defaults {
		if value != nil {
			v.SetDefault(key, value)
		}
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key := range defaults {
		if err := v.BindEnv(key); err != nil {
			return nil, fmt.Errorf("error binding environment variable for %s: %w", key, err)
		}
	}

	return v, nil
}

// Validate checks cfg against its struct tags.
func Validate(cfg *Config) error {
	if err := validator.New().Struct(cfg); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}
	return nil
}
