package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hoststack/hoststack/internal/types"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Configuration struct {
	Server   ServerConfig   `validate:"required"`
	Logging  LoggingConfig  `validate:"required"`
	Postgres PostgresConfig `validate:"required"`
	Webhook  WebhookConfig  `validate:"required"`
	Queue    QueueConfig    `validate:"required"`
	Sweeps   SweepsConfig
	Adapters AdaptersConfig
	Admin    AdminConfig
}

type ServerConfig struct {
	Address string `validate:"required"`
}

type LoggingConfig struct {
	Level string `validate:"required"`
}

type PostgresConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	DBName       string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

func (c PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// WebhookConfig holds the inbound payment webhook settings
type WebhookConfig struct {
	// SigningSecret is the shared HMAC secret with the payment provider
	SigningSecret string `validate:"required"`
	// Tolerance bounds how far the signed timestamp may drift from now
	Tolerance time.Duration
}

func (c WebhookConfig) GetTolerance() time.Duration {
	if c.Tolerance <= 0 {
		return 5 * time.Minute
	}
	return c.Tolerance
}

// QueueConfig holds the durable queue and worker pool settings
type QueueConfig struct {
	// Workers is the pool size per queue name
	Workers map[string]int

	ReservationTTL time.Duration
	TaskDeadline   time.Duration

	BackoffBase time.Duration
	BackoffMax  time.Duration
	MaxAttempts int
}

// DefaultWorkerCounts are applied per queue when the config does not set them
var DefaultWorkerCounts = map[types.QueueName]int{
	types.QueueProvisioning: 8,
	types.QueueEmails:       8,
	types.QueueInvoices:     4,
	types.QueueBackups:      2,
}

func (c QueueConfig) WorkersFor(queue types.QueueName) int {
	if n, ok := c.Workers[string(queue)]; ok && n > 0 {
		return n
	}
	if n, ok := DefaultWorkerCounts[queue]; ok {
		return n
	}
	return 1
}

func (c QueueConfig) GetReservationTTL() time.Duration {
	if c.ReservationTTL <= 0 {
		return 2 * time.Minute
	}
	return c.ReservationTTL
}

func (c QueueConfig) GetTaskDeadline() time.Duration {
	if c.TaskDeadline <= 0 {
		return 10 * time.Minute
	}
	return c.TaskDeadline
}

func (c QueueConfig) GetBackoffBase() time.Duration {
	if c.BackoffBase <= 0 {
		return time.Second
	}
	return c.BackoffBase
}

func (c QueueConfig) GetBackoffMax() time.Duration {
	if c.BackoffMax <= 0 {
		return 5 * time.Minute
	}
	return c.BackoffMax
}

func (c QueueConfig) GetMaxAttempts() int {
	if c.MaxAttempts <= 0 {
		return 3
	}
	return c.MaxAttempts
}

// SweepsConfig holds cron expressions for the scheduled sweep producers.
// Expressions use the 6-field form with seconds.
type SweepsConfig struct {
	Enabled          bool
	RecurringBilling string
	Suspension       string
	SSLReminders     string
	BackupCleanup    string

	// GracePeriodDays is how long past an invoice due date suspension waits
	GracePeriodDays int
	// SSLReminderDays is the expiry window for certificate reminders
	SSLReminderDays int
	// BackupRetentionDays is how long backup records are kept
	BackupRetentionDays int
}

func (c SweepsConfig) GetGracePeriodDays() int {
	if c.GracePeriodDays <= 0 {
		return 3
	}
	return c.GracePeriodDays
}

func (c SweepsConfig) GetSSLReminderDays() int {
	if c.SSLReminderDays <= 0 {
		return 30
	}
	return c.SSLReminderDays
}

func (c SweepsConfig) GetBackupRetentionDays() int {
	if c.BackupRetentionDays <= 0 {
		return 30
	}
	return c.BackupRetentionDays
}

// AdapterEndpoint configures one external collaborator
type AdapterEndpoint struct {
	BaseURL  string
	APIKey   string
	Username string
	Password string
	Timeout  time.Duration
}

func (e AdapterEndpoint) GetTimeout() time.Duration {
	if e.Timeout <= 0 {
		return 30 * time.Second
	}
	return e.Timeout
}

// AdaptersConfig configures every external collaborator endpoint
type AdaptersConfig struct {
	DNS      AdapterEndpoint
	Cert     AdapterEndpoint
	Mail     AdapterEndpoint
	Database AdapterEndpoint
	Notify   AdapterEndpoint

	// MailHostname is the MX target for provisioned zones
	MailHostname string
	// CertContactEmail is the registration contact for certificate issuance
	CertContactEmail string
}

// AdminConfig gates the administrative control API endpoints
type AdminConfig struct {
	APIKey string
}

func NewConfig() (*Configuration, error) {
	v := viper.New()

	// Load .env file if present; env vars override file values either way
	_ = godotenv.Load()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./internal/config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/hoststack")

	v.SetEnvPrefix("HOSTSTACK")
	v.SetEnvKeyReplacer(strings.NewReplacer(
		".", "_",
		"-", "_",
	))
	v.AutomaticEnv()

	// Read config file if exists
	if err := v.ReadInConfig(); err != nil {
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, err
		}
	}

	var config Configuration
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c Configuration) Validate() error {
	validate := validator.New()
	return validate.Struct(c)
}

// GetDefaultConfig returns a default configuration for local development
// This is useful for running scripts or tests without a config file
func GetDefaultConfig() *Configuration {
	return &Configuration{
		Server:  ServerConfig{Address: ":8080"},
		Logging: LoggingConfig{Level: "debug"},
		Webhook: WebhookConfig{SigningSecret: "test-secret"},
		Queue:   QueueConfig{},
		Sweeps:  SweepsConfig{},
	}
}
