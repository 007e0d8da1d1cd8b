package config

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ErrConfiguration marks settings problems detected before the pipeline starts.
var ErrConfiguration = errors.New("configuration error")

var schemaPattern = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	StagingSchema  string        `mapstructure:"STAGING_SCHEMA"`
	RefinedSchema  string        `mapstructure:"REFINED_SCHEMA"`
	BatchSize      int           `mapstructure:"BATCH_SIZE"`
	LockBackend    string        `mapstructure:"LOCK_BACKEND"`
	LockTTL        time.Duration `mapstructure:"LOCK_TTL"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	AdminJWTSecret string        `mapstructure:"ADMIN_JWT_SECRET"`
	SQSQueueURL    string        `mapstructure:"NOTIFY_SQS_QUEUE_URL"`
	KafkaBrokers   []string      `mapstructure:"NOTIFY_KAFKA_BROKERS"`
	KafkaTopic     string        `mapstructure:"NOTIFY_KAFKA_TOPIC"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DB_MAX_CONNS", 4)
	v.SetDefault("DB_MIN_CONNS", 1)
	v.SetDefault("STAGING_SCHEMA", "staging")
	v.SetDefault("REFINED_SCHEMA", "refined")
	v.SetDefault("BATCH_SIZE", 1000)
	v.SetDefault("LOCK_BACKEND", "postgres")
	v.SetDefault("LOCK_TTL", "15m")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("DATABASE_URL")
	v.BindEnv("DB_MAX_CONNS")
	v.BindEnv("DB_MIN_CONNS")
	v.BindEnv("STAGING_SCHEMA")
	v.BindEnv("REFINED_SCHEMA")
	v.BindEnv("BATCH_SIZE")
	v.BindEnv("LOCK_BACKEND")
	v.BindEnv("LOCK_TTL")
	v.BindEnv("REDIS_URL")
	v.BindEnv("ADMIN_JWT_SECRET")
	v.BindEnv("NOTIFY_SQS_QUEUE_URL")
	v.BindEnv("NOTIFY_KAFKA_BROKERS")
	v.BindEnv("NOTIFY_KAFKA_TOPIC")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("%w: unmarshal config: %v", ErrConfiguration, err)
	}

	if len(cfg.KafkaBrokers) == 1 && strings.Contains(cfg.KafkaBrokers[0], ",") {
		cfg.KafkaBrokers = strings.Split(cfg.KafkaBrokers[0], ",")
	}
	if cfg.KafkaBrokers == nil {
		if brokers := v.GetString("NOTIFY_KAFKA_BROKERS"); brokers != "" {
			cfg.KafkaBrokers = strings.Split(brokers, ",")
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("%w: DATABASE_URL is required", ErrConfiguration)
	}

	if cfg.IsDev() && cfg.AdminJWTSecret == "" {
		log.Println("WARNING: ADMIN_JWT_SECRET is empty; POST /runs is unauthenticated in development mode.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// IsProduction returns true when the process is configured for production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Validate checks that the configuration is safe to run. Schema names are
// interpolated into SQL, so they must be plain lower-case identifiers.
func (c *Config) Validate() error {
	for name, schema := range map[string]string{
		"STAGING_SCHEMA": c.StagingSchema,
		"REFINED_SCHEMA": c.RefinedSchema,
	} {
		if !schemaPattern.MatchString(schema) {
			return fmt.Errorf("%w: %s must match %s, got %q", ErrConfiguration, name, schemaPattern, schema)
		}
	}
	if c.StagingSchema == c.RefinedSchema {
		return fmt.Errorf("%w: STAGING_SCHEMA and REFINED_SCHEMA must differ", ErrConfiguration)
	}

	if c.BatchSize <= 0 {
		return fmt.Errorf("%w: BATCH_SIZE must be positive, got %d", ErrConfiguration, c.BatchSize)
	}

	switch c.LockBackend {
	case "postgres", "none":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("%w: REDIS_URL is required when LOCK_BACKEND is \"redis\"", ErrConfiguration)
		}
		if c.LockTTL <= 0 {
			return fmt.Errorf("%w: LOCK_TTL must be positive", ErrConfiguration)
		}
	default:
		return fmt.Errorf("%w: LOCK_BACKEND must be \"postgres\", \"redis\", or \"none\", got %q", ErrConfiguration, c.LockBackend)
	}

	if (len(c.KafkaBrokers) == 0) != (c.KafkaTopic == "") {
		return fmt.Errorf("%w: NOTIFY_KAFKA_BROKERS and NOTIFY_KAFKA_TOPIC must be set together", ErrConfiguration)
	}

	if c.IsProduction() && c.AdminJWTSecret == "" {
		return fmt.Errorf("%w: ADMIN_JWT_SECRET is required in production", ErrConfiguration)
	}

	return nil
}
