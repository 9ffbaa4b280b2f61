// Package config provides application configuration loading and management.
package config

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"golang.org/x/crypto/bcrypt"
)

// Config holds application configuration values loaded from file or environment variables.
type Config struct {
	StoreDriver         string `mapstructure:"STORE_DRIVER"`
	StoreDSN            string `mapstructure:"STORE_DSN"`
	RedisURL            string `mapstructure:"REDIS_URL"`
	StoreKeyPrefix      string `mapstructure:"STORE_KEY_PREFIX"`
	RabbitMQURL         string `mapstructure:"RABBITMQ_URL"`
	SyncExchange        string `mapstructure:"SYNC_EXCHANGE"`
	BcryptCost          int    `mapstructure:"BCRYPT_COST"`
	ImageMaxBytes       int64  `mapstructure:"IMAGE_MAX_BYTES"`
	AvatarMaxBytes      int64  `mapstructure:"AVATAR_MAX_BYTES"`
	ProfileMaxBioLength int    `mapstructure:"PROFILE_MAX_BIO_LENGTH"`
	MarketSavedScope    string `mapstructure:"MARKET_SAVED_SCOPE"`
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("STORE_DRIVER", "sqlite")
	v.SetDefault("STORE_DSN", "campusfeed.db")
	v.SetDefault("REDIS_URL", "localhost:6379")
	v.SetDefault("STORE_KEY_PREFIX", "se_")
	v.SetDefault("RABBITMQ_URL", "")
	v.SetDefault("SYNC_EXCHANGE", "campusfeed.store")
	v.SetDefault("BCRYPT_COST", bcrypt.DefaultCost)
	v.SetDefault("IMAGE_MAX_BYTES", 5<<20)
	v.SetDefault("AVATAR_MAX_BYTES", 1<<20)
	v.SetDefault("PROFILE_MAX_BIO_LENGTH", 500)
	v.SetDefault("MARKET_SAVED_SCOPE", "user")
}

// LoadConfig loads .env (when present), an optional campusfeed.yml in the
// working directory and the environment, in increasing precedence.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded environment from .env")
	}

	v := viper.New()
	v.AddConfigPath(".")
	v.SetConfigName("campusfeed")
	v.SetConfigType("yml")
	SetDefaults(v)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read campusfeed.yml: %w", err)
		}
	}

	return FromViper(v)
}

// FromViper decodes and validates the configuration held by v.
func FromViper(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config into struct: %w", err)
	}

	config.StoreDriver = strings.ToLower(strings.TrimSpace(config.StoreDriver))
	config.MarketSavedScope = strings.ToLower(strings.TrimSpace(config.MarketSavedScope))

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &config, nil
}

// Validate ensures that required configuration values are present and in range.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case "memory":
	case "sqlite", "postgres":
		if c.StoreDSN == "" {
			return fmt.Errorf("STORE_DSN is required for the %s driver", c.StoreDriver)
		}
	case "redis":
		if c.RedisURL == "" {
			return errors.New("REDIS_URL is required for the redis driver")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.StoreKeyPrefix == "" {
		log.Println("WARNING: STORE_KEY_PREFIX is empty; keys will not be namespaced.")
	}
	if c.BcryptCost != 0 && (c.BcryptCost < bcrypt.MinCost || c.BcryptCost > bcrypt.MaxCost) {
		return fmt.Errorf("BCRYPT_COST must be between %d and %d", bcrypt.MinCost, bcrypt.MaxCost)
	}
	if c.ImageMaxBytes <= 0 {
		return errors.New("IMAGE_MAX_BYTES must be positive")
	}
	if c.AvatarMaxBytes <= 0 {
		return errors.New("AVATAR_MAX_BYTES must be positive")
	}
	if c.ProfileMaxBioLength < 0 {
		return errors.New("PROFILE_MAX_BIO_LENGTH cannot be negative")
	}
	if c.MarketSavedScope != "user" && c.MarketSavedScope != "device" {
		return fmt.Errorf("MARKET_SAVED_SCOPE must be 'user' or 'device', got %q", c.MarketSavedScope)
	}
	return nil
}
