package config

import "github.com/phrazzld/skillmatch-api/internal/domain/matching"

// Config holds all application configuration.
// It organizes settings into logical groups for better maintainability.
type Config struct {
	Server   ServerConfig   `mapstructure:"server" validate:"required"`
	Database DatabaseConfig `mapstructure:"database" validate:"required"`
	Auth     AuthConfig     `mapstructure:"auth" validate:"required"`
	Matching MatchingConfig `mapstructure:"matching"`
	Task     TaskConfig     `mapstructure:"task"`
	Mail     MailConfig     `mapstructure:"mail"`
	Redis    RedisConfig    `mapstructure:"redis"`
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
	LLM      LLMConfig      `mapstructure:"llm"`
}

// ServerConfig contains all server-related configuration settings.
type ServerConfig struct {
	Port                   int    `mapstructure:"port" validate:"required,gt=0,lt=65536"`
	LogLevel               string `mapstructure:"log_level" validate:"required,oneof=debug info warn error"`
	ShutdownTimeoutSeconds int    `mapstructure:"shutdown_timeout_seconds" validate:"gte=0"`
}

// DatabaseConfig contains all database-related configuration settings.
type DatabaseConfig struct {
	URL                    string `mapstructure:"url" validate:"required,url"`
	MaxOpenConns           int    `mapstructure:"max_open_conns" validate:"gte=0"`
	MaxIdleConns           int    `mapstructure:"max_idle_conns" validate:"gte=0"`
	ConnMaxLifetimeMinutes int    `mapstructure:"conn_max_lifetime_minutes" validate:"gte=0"`
}

// AuthConfig contains all authentication and authorization settings.
type AuthConfig struct {
	JWTSecret            string `mapstructure:"jwt_secret" validate:"required,min=32"`
	TokenLifetimeMinutes int    `mapstructure:"token_lifetime_minutes" validate:"gt=0"`
}

// MatchingConfig overrides the assignment engine's weights and thresholds.
// Zero values keep the engine defaults.
type MatchingConfig struct {
	SkillWeight       float64 `mapstructure:"skill_weight" validate:"gte=0,lte=1"`
	ExperienceWeight  float64 `mapstructure:"experience_weight" validate:"gte=0,lte=1"`
	HeadroomWeight    float64 `mapstructure:"headroom_weight" validate:"gte=0,lte=1"`
	LoadPerStoryPoint float64 `mapstructure:"load_per_story_point" validate:"gte=0"`
	MinScore          float64 `mapstructure:"min_score" validate:"gte=0,lt=1"`
	StoryPointCeiling int     `mapstructure:"story_point_ceiling" validate:"gte=0"`
	MediumThreshold   float64 `mapstructure:"medium_threshold" validate:"gte=0,lte=1"`
	HighThreshold     float64 `mapstructure:"high_threshold" validate:"gte=0,lte=1"`
	CriticalThreshold float64 `mapstructure:"critical_threshold" validate:"gte=0,lte=1"`
	DaysPerStoryPoint float64 `mapstructure:"days_per_story_point" validate:"gte=0"`
	RunTimeoutSeconds int     `mapstructure:"run_timeout_seconds" validate:"gt=0"`
}

// EngineParams maps the overrides onto matching engine parameters.
// Zero values keep the engine defaults.
func (c MatchingConfig) EngineParams() matching.ParamsConfig {
	return matching.ParamsConfig{
		SkillWeight:       c.SkillWeight,
		ExperienceWeight:  c.ExperienceWeight,
		HeadroomWeight:    c.HeadroomWeight,
		LoadPerStoryPoint: c.LoadPerStoryPoint,
		MinScore:          c.MinScore,
		StoryPointCeiling: c.StoryPointCeiling,
		MediumThreshold:   c.MediumThreshold,
		HighThreshold:     c.HighThreshold,
		CriticalThreshold: c.CriticalThreshold,
		DaysPerStoryPoint: c.DaysPerStoryPoint,
	}
}

// TaskConfig contains settings for the background notification workers.
type TaskConfig struct {
	WorkerCount int `mapstructure:"worker_count" validate:"gt=0"`
	QueueSize   int `mapstructure:"queue_size" validate:"gt=0"`
}

// MailConfig contains SMTP settings for assignment notifications.
// When Enabled is false notifications are only logged.
type MailConfig struct {
	Enabled            bool    `mapstructure:"enabled"`
	Host               string  `mapstructure:"host" validate:"required_if=Enabled true"`
	Port               int     `mapstructure:"port" validate:"gt=0,lt=65536"`
	Username           string  `mapstructure:"username"`
	Password           string  `mapstructure:"password"`
	From               string  `mapstructure:"from" validate:"required_if=Enabled true,omitempty,email"`
	RatePerSecond      float64 `mapstructure:"rate_per_second" validate:"gt=0"`
	BreakerMaxFailures int     `mapstructure:"breaker_max_failures" validate:"gt=0"`
	AppURL             string  `mapstructure:"app_url" validate:"omitempty,url"`
}

// RedisConfig configures the distributed run lock. An empty URL selects an
// in-process lock.
type RedisConfig struct {
	URL            string `mapstructure:"url" validate:"omitempty,url"`
	LockTTLSeconds int    `mapstructure:"lock_ttl_seconds" validate:"gt=0"`
}

// RabbitMQConfig configures assignment event publishing. An empty URL
// disables publishing.
type RabbitMQConfig struct {
	URL      string `mapstructure:"url" validate:"omitempty,url"`
	Exchange string `mapstructure:"exchange" validate:"required"`
}

// LLMConfig contains settings for generated assignment explanations.
type LLMConfig struct {
	Enabled           bool   `mapstructure:"enabled"`
	GeminiAPIKey      string `mapstructure:"gemini_api_key" validate:"required_if=Enabled true"`
	ModelName         string `mapstructure:"model_name" validate:"required"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds" validate:"gt=0"`
	MaxRetries        int    `mapstructure:"max_retries" validate:"gte=0,lte=5"`
	RetryDelaySeconds int    `mapstructure:"retry_delay_seconds" validate:"gte=1"`
}
