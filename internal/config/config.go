/**
 * @description
 * This package handles the configuration management for the service. It uses the
 * Viper library to read configuration from environment variables, providing a
 * centralized and straightforward way to manage application settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the payment-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                string `mapstructure:"SERVER_PORT"`
	DatabaseURL               string `mapstructure:"DATABASE_URL"`
	RedisURL                  string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix      string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	RabbitMQURL               string `mapstructure:"RABBITMQ_URL"`
	PaychanguAPIBaseURL       string `mapstructure:"PAYCHANGU_API_BASE_URL"`
	PaychanguSecretKey        string `mapstructure:"PAYCHANGU_SECRET_KEY"`
	JWKSURL                   string `mapstructure:"JWKS_URL"`
	AppBaseURL                string `mapstructure:"APP_BASE_URL"`
	ProcessRateLimitPerMinute int    `mapstructure:"PROCESS_RATE_LIMIT_PER_MINUTE"`
	CheckoutSessionTTLHours   int    `mapstructure:"CHECKOUT_SESSION_TTL_HOURS"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("PAYCHANGU_API_BASE_URL", "https://api.paychangu.com")
	viper.SetDefault("APP_BASE_URL", "http://localhost:3000")
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "lawlink:rate_limit")
	viper.SetDefault("PROCESS_RATE_LIMIT_PER_MINUTE", 30)
	viper.SetDefault("CHECKOUT_SESSION_TTL_HOURS", 24)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("REDIS_URL", "REDIS_URL", "PAYMENT_REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("PAYCHANGU_API_BASE_URL")
	_ = viper.BindEnv("PAYCHANGU_SECRET_KEY")
	_ = viper.BindEnv("JWKS_URL")
	_ = viper.BindEnv("APP_BASE_URL", "APP_BASE_URL", "FRONTEND_URL")
	_ = viper.BindEnv("PROCESS_RATE_LIMIT_PER_MINUTE")
	_ = viper.BindEnv("CHECKOUT_SESSION_TTL_HOURS")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		// If the config file is not found, we can ignore the error.
		// For other errors, we should return them.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "lawlink:rate_limit"
	}
	config.AppBaseURL = strings.TrimRight(strings.TrimSpace(config.AppBaseURL), "/")
	if config.AppBaseURL == "" {
		config.AppBaseURL = "http://localhost:3000"
	}

	if config.ProcessRateLimitPerMinute < 0 {
		log.Printf("level=warn component=config msg=\"negative process rate limit configured; coercing to zero\" limit=%d", config.ProcessRateLimitPerMinute)
		config.ProcessRateLimitPerMinute = 0
	}
	if config.CheckoutSessionTTLHours <= 0 {
		config.CheckoutSessionTTLHours = 24
	}

	return
}
