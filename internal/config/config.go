// Package config defines the process configuration for the lab maintenance
// service. Configuration is loaded once at startup and is immutable
// thereafter.
//
// Values are resolved via a priority chain:
//
//	OS Environment (Highest) -> Dotenv File -> AWS SSM Parameter Store (Lowest)
//
// A missing required value or an invalid format stops the process on
// startup.
package config

import (
	"time"

	"labmaint/internal/types"
)

// SecretString is an alias for types.SecretString so secrets in the config
// tree are redacted when logged.
type SecretString = types.SecretString

// Store drivers.
const (
	StoreDriverPostgres = "postgres"
	StoreDriverBadger   = "badger"
)

// Provider names shared by push and email.
const (
	ProviderStub     = "stub"
	ProviderFCM      = "fcm"
	ProviderSendGrid = "sendgrid"
	ProviderSES      = "ses"
)

// Config is the top-level configuration. Sub-components receive only the
// subset they need.
type Config struct {
	Environment string `envconfig:"APP_ENV" validate:"required,oneof=local dev staging prod"`
	LogLevel    string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`

	Server    ServerConfig
	Store     StoreConfig
	Schedule  ScheduleConfig
	Push      PushConfig
	Email     EmailConfig
	Report    ReportConfig
	AWS       AWSConfig
	KeepAlive KeepAliveConfig

	// Injected via ldflags, not env.
	Build BuildInfo
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port               string   `envconfig:"PORT" default:"3001"`
	CorsAllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"*"`
}

// StoreConfig selects and tunes the machine repository.
type StoreConfig struct {
	Driver string `envconfig:"STORE_DRIVER" default:"postgres" validate:"oneof=postgres badger"`

	// Postgres
	URL               SecretString  `envconfig:"DATABASE_URL"`
	MaxConns          int           `envconfig:"DB_MAX_CONNS" default:"10" validate:"min=1"`
	MinConns          int           `envconfig:"DB_MIN_CONNS" default:"1" validate:"min=0"`
	MaxConnLifetime   time.Duration `envconfig:"DB_MAX_CONN_LIFETIME" default:"30m"`
	HealthCheckPeriod time.Duration `envconfig:"DB_HEALTH_CHECK_PERIOD" default:"1m"`

	// Badger
	BadgerPath string `envconfig:"BADGER_PATH" default:"./data/labmaint"`
}

// ScheduleConfig drives the reminder scheduler. Times of day are "HH:MM" in
// Timezone.
type ScheduleConfig struct {
	Timezone        string        `envconfig:"TIMEZONE" default:"America/Bogota" validate:"required"`
	WorkdayStart    string        `envconfig:"WORKDAY_START" default:"08:30" validate:"required,datetime=15:04"`
	WorkdayEnd      string        `envconfig:"WORKDAY_END" default:"17:00" validate:"required,datetime=15:04"`
	DueSoonNotifyAt string        `envconfig:"DUE_SOON_NOTIFY_AT" default:"09:00" validate:"required,datetime=15:04"`
	TickInterval    time.Duration `envconfig:"TICK_INTERVAL" default:"1m" validate:"min=1s"`
}

// Location resolves Timezone. LoadConfig has already checked it, so the
// error only surfaces for hand-built configs.
func (s ScheduleConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.Timezone)
}

// PushConfig holds the push provider settings.
type PushConfig struct {
	Provider string `envconfig:"PUSH_PROVIDER" default:"fcm" validate:"oneof=fcm stub"`
	// Service-account JSON. Escaped newlines in private_key are accepted.
	FirebaseKey SecretString  `envconfig:"FIREBASE_KEY"`
	ProjectID   string        `envconfig:"FIREBASE_PROJECT_ID"`
	Topic       string        `envconfig:"PUSH_TOPIC" default:"mantenimiento" validate:"required"`
	ChannelID   string        `envconfig:"PUSH_CHANNEL_ID" default:"mantenimiento_channel" validate:"required"`
	SendDelay   time.Duration `envconfig:"PUSH_SEND_DELAY" default:"1500ms" validate:"min=0"`
}

// EmailConfig holds the email provider settings used by the report job.
type EmailConfig struct {
	Provider       string       `envconfig:"EMAIL_PROVIDER" default:"stub" validate:"oneof=sendgrid ses stub"`
	SendGridAPIKey SecretString `envconfig:"SENDGRID_API_KEY"`
	FromAddress    string       `envconfig:"EMAIL_FROM_ADDRESS" default:"mantenimiento@labmaint.local" validate:"required,email"`
	FromName       string       `envconfig:"EMAIL_FROM_NAME" default:"Mantenimiento Laboratorios"`
}

// ReportConfig schedules the periodic history report.
type ReportConfig struct {
	Recipients  []string `envconfig:"REPORT_RECIPIENTS" validate:"dive,email"`
	Day         int      `envconfig:"REPORT_DAY" default:"1" validate:"min=1,max=28"`
	At          string   `envconfig:"REPORT_AT" default:"07:00" validate:"required,datetime=15:04"`
	EveryMonths int      `envconfig:"REPORT_EVERY_MONTHS" default:"2" validate:"min=1,max=12"`
	Bucket      string   `envconfig:"REPORT_BUCKET"`
}

// Enabled reports whether anyone would receive the report.
func (r ReportConfig) Enabled() bool {
	return len(r.Recipients) > 0 || r.Bucket != ""
}

// AWSConfig holds regional AWS settings for SSM, SES and S3.
type AWSConfig struct {
	Region string `envconfig:"AWS_REGION" default:"us-east-1"`
	// LocalStack support; empty in prod.
	EndpointURL string `envconfig:"AWS_ENDPOINT_URL"`
}

// KeepAliveConfig configures the self-ping that keeps free-tier hosts awake.
type KeepAliveConfig struct {
	URL      string        `envconfig:"KEEPALIVE_URL" validate:"omitempty,url"`
	Interval time.Duration `envconfig:"KEEPALIVE_INTERVAL" default:"10m"`
}

// BuildInfo holds build-time metadata injected via ldflags.
type BuildInfo struct {
	Version   string
	Commit    string
	BuildTime string
}

// ConfigErrorType categorizes configuration loading failures.
type ConfigErrorType string

const (
	// ErrMissingEnv indicates a required value was not provided.
	ErrMissingEnv ConfigErrorType = "MISSING_ENV"
	// ErrSSMResolution indicates a failure when fetching secrets from AWS SSM.
	ErrSSMResolution ConfigErrorType = "SSM_FAILURE"
	// ErrValidation indicates the configuration failed validation rules.
	ErrValidation ConfigErrorType = "VALIDATION_FAILED"
	// ErrParsing indicates an environment value could not be parsed.
	ErrParsing ConfigErrorType = "PARSING_FAILED"
)
