package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// DatabaseURL returns the connection string in URL form for the migrator.
func (c DatabaseConfig) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

// DSN returns the connection string in keyword form for GORM.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// JWTConfig holds token-signing settings.
type JWTConfig struct {
	Secret string
}

// KafkaConfig holds event-bus settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// StripeConfig holds payment-processor settings.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// GeminiConfig holds settings for the optional sizing-suggestion service.
// An empty APIKey disables the generative hint and static fallback text is
// served instead.
type GeminiConfig struct {
	APIKey string
	Model  string
}

// ServiceConfig holds all configuration for the booking service.
type ServiceConfig struct {
	Port   string
	AppEnv string
	DB     DatabaseConfig
	JWT    JWTConfig
	Kafka  KafkaConfig
	Stripe StripeConfig
	Gemini GeminiConfig
}

// Load reads configuration from DROPPIT_-prefixed environment variables.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("DROPPIT")
	v.AutomaticEnv()

	v.SetDefault("SERVICE_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "droppit_booking")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "droppit.")
	v.SetDefault("GEMINI_MODEL", "gemini-2.5-flash-lite")

	cfg := &ServiceConfig{
		Port:   ":" + v.GetString("SERVICE_PORT"),
		AppEnv: v.GetString("APP_ENV"),
		DB: DatabaseConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSL_MODE"),
		},
		JWT: JWTConfig{
			Secret: v.GetString("JWT_SECRET"),
		},
		Kafka: KafkaConfig{
			Brokers:     strings.Split(v.GetString("KAFKA_BROKERS"), ","),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		},
		Gemini: GeminiConfig{
			APIKey: v.GetString("GEMINI_API_KEY"),
			Model:  v.GetString("GEMINI_MODEL"),
		},
	}

	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("DROPPIT_JWT_SECRET is required")
	}
	if cfg.Stripe.SecretKey == "" {
		return nil, fmt.Errorf("DROPPIT_STRIPE_SECRET_KEY is required")
	}

	return cfg, nil
}
