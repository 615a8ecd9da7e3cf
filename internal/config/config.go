package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config stores all configuration for the service, read from environment
// variables (or a local .env file).
type Config struct {
	ServerPort string `mapstructure:"SERVER_PORT"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	DBHost      string `mapstructure:"DB_HOST"`
	DBPort      string `mapstructure:"DB_PORT"`
	DBUser      string `mapstructure:"DB_USER"`
	DBPassword  string `mapstructure:"DB_PASSWORD"`
	DBName      string `mapstructure:"DB_NAME"`
	DBSSLMode   string `mapstructure:"DB_SSLMODE"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	RabbitMQURL string `mapstructure:"RABBITMQ_URL"`

	CustomerServiceURL string `mapstructure:"CUSTOMER_SERVICE_URL"`
	KycServiceURL      string `mapstructure:"KYC_SERVICE_URL"`
	ClientTimeoutSecs  int    `mapstructure:"CLIENT_TIMEOUT_SECONDS"`

	AccountNumberPrefix string `mapstructure:"ACCOUNT_NUMBER_PREFIX"`
	SeedBalanceCurrent  string `mapstructure:"SEED_BALANCE_CURRENT"`
	SeedBalanceSavings  string `mapstructure:"SEED_BALANCE_SAVINGS"`
}

// Load reads configuration from the environment, with an optional .env file.
func Load() (*Config, error) {
	viper.AddConfigPath(".")
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("SERVER_PORT", "8083")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_NAME", "bank_accounts")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("CUSTOMER_SERVICE_URL", "http://localhost:8081")
	viper.SetDefault("KYC_SERVICE_URL", "http://localhost:8084")
	viper.SetDefault("CLIENT_TIMEOUT_SECONDS", 10)
	viper.SetDefault("ACCOUNT_NUMBER_PREFIX", "BANK1")
	viper.SetDefault("SEED_BALANCE_CURRENT", "0.00")
	viper.SetDefault("SEED_BALANCE_SAVINGS", "0.00")

	for _, key := range []string{
		"SERVER_PORT", "DATABASE_URL", "DB_HOST", "DB_PORT", "DB_USER",
		"DB_PASSWORD", "DB_NAME", "DB_SSLMODE", "JWT_SECRET", "RABBITMQ_URL",
		"CUSTOMER_SERVICE_URL", "KYC_SERVICE_URL", "CLIENT_TIMEOUT_SECONDS",
		"ACCOUNT_NUMBER_PREFIX", "SEED_BALANCE_CURRENT", "SEED_BALANCE_SAVINGS",
	} {
		_ = viper.BindEnv(key)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// GetDBConnectionString returns the Postgres DSN, preferring a full
// DATABASE_URL over the individual parts.
func (c *Config) GetDBConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DBHost, c.DBPort, c.DBUser, c.DBPassword, c.DBName, c.DBSSLMode)
}

// ClientTimeout is the timeout applied to calls to sibling services.
func (c *Config) ClientTimeout() time.Duration {
	return time.Duration(c.ClientTimeoutSecs) * time.Second
}
