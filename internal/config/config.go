package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Storage StorageConfig `mapstructure:"storage"`
	Bank    BankConfig    `mapstructure:"bank"`
	Payment PaymentConfig `mapstructure:"payment"`
	Email   EmailConfig   `mapstructure:"email"`
}

// ServerConfig holds the custom handler listener settings.
type ServerConfig struct {
	Port string `mapstructure:"port"`
}

// StorageConfig holds Azure Storage endpoints and resource names.
type StorageConfig struct {
	TableServiceURL  string `mapstructure:"table_service_url"`
	BlobServiceURL   string `mapstructure:"blob_service_url"`
	QueueServiceURL  string `mapstructure:"queue_service_url"`
	AllocationsTable string `mapstructure:"allocations_table"`
	SettingsTable    string `mapstructure:"settings_table"`
	UploadsContainer string `mapstructure:"uploads_container"`
	ReportsContainer string `mapstructure:"reports_container"`
	ImportQueue      string `mapstructure:"import_queue"`
}

// BankConfig holds bunq API settings.
type BankConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	SessionToken string        `mapstructure:"session_token"`
	UserID       string        `mapstructure:"user_id"`
	Currency     string        `mapstructure:"currency"`
	PageSize     int           `mapstructure:"page_size"`
	PageDelay    time.Duration `mapstructure:"page_delay"`
}

// PaymentConfig holds transfer execution settings.
type PaymentConfig struct {
	Simulate          bool          `mapstructure:"simulate"`
	MaxAttempts       int           `mapstructure:"max_attempts"`
	RetryDelay        time.Duration `mapstructure:"retry_delay"`
	SettleDelay       time.Duration `mapstructure:"settle_delay"`
	BreakerFailures   uint32        `mapstructure:"breaker_failures"`
	BreakerTimeout    time.Duration `mapstructure:"breaker_timeout"`
	DescriptionPrefix string        `mapstructure:"description_prefix"`
}

// EmailConfig holds Azure Communication Services settings for run summaries.
type EmailConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	Sender    string `mapstructure:"sender"`
	Recipient string `mapstructure:"recipient"`
	Locale    string `mapstructure:"locale"`
}

// Load reads configuration from defaults, an optional file and the environment.
// Env var overrides use prefix MONEY_FLOW_, e.g. MONEY_FLOW_PAYMENT_SIMULATE.
func Load() (Config, error) {
	v := viper.New()

	port := os.Getenv("FUNCTIONS_CUSTOMHANDLER_PORT")
	if port == "" {
		port = "8080"
	}
	v.SetDefault("server.port", port)

	v.SetDefault("storage.table_service_url", "")
	v.SetDefault("storage.blob_service_url", "")
	v.SetDefault("storage.queue_service_url", "")
	v.SetDefault("storage.allocations_table", "allocations")
	v.SetDefault("storage.settings_table", "settings")
	v.SetDefault("storage.uploads_container", "money-flow-data")
	v.SetDefault("storage.reports_container", "reports")
	v.SetDefault("storage.import_queue", "import-queue")

	v.SetDefault("bank.base_url", "https://api.bunq.com/v1")
	v.SetDefault("bank.session_token", "")
	v.SetDefault("bank.user_id", "")
	v.SetDefault("bank.currency", "EUR")
	v.SetDefault("bank.page_size", 200)
	v.SetDefault("bank.page_delay", 1100*time.Millisecond)

	v.SetDefault("payment.simulate", false)
	v.SetDefault("payment.max_attempts", 5)
	v.SetDefault("payment.retry_delay", 10*time.Second)
	v.SetDefault("payment.settle_delay", 2*time.Second)
	// Zero lets the payment gateway derive a threshold from max_attempts.
	v.SetDefault("payment.breaker_failures", 0)
	v.SetDefault("payment.breaker_timeout", time.Minute)
	v.SetDefault("payment.description_prefix", "Deel salaris voor")

	v.SetDefault("email.endpoint", "")
	v.SetDefault("email.sender", "")
	v.SetDefault("email.recipient", "")
	v.SetDefault("email.locale", "nl")

	v.SetConfigType("yaml")
	if cfgPath := os.Getenv("MONEY_FLOW_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	v.SetEnvPrefix("MONEY_FLOW")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks values that would make the payment path misbehave.
func (c Config) Validate() error {
	if c.Payment.MaxAttempts < 1 {
		return fmt.Errorf("payment.max_attempts must be at least 1, got %d", c.Payment.MaxAttempts)
	}
	if c.Payment.BreakerFailures != 0 && int(c.Payment.BreakerFailures) <= c.Payment.MaxAttempts {
		return fmt.Errorf("payment.breaker_failures must exceed payment.max_attempts (%d), got %d", c.Payment.MaxAttempts, c.Payment.BreakerFailures)
	}
	if c.Payment.RetryDelay < 0 || c.Payment.SettleDelay < 0 || c.Bank.PageDelay < 0 {
		return fmt.Errorf("payment and bank delays must not be negative")
	}
	if c.Bank.PageSize < 1 || c.Bank.PageSize > 200 {
		return fmt.Errorf("bank.page_size must be between 1 and 200, got %d", c.Bank.PageSize)
	}
	return nil
}
