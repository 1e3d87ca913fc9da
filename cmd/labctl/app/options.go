package app

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/pflag"

	"labmaint/internal/config"
)

// Options is the subset of the service configuration labctl needs. Values
// come from the environment (and .env); flags override them.
type Options struct {
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`

	Store    config.StoreConfig
	Schedule config.ScheduleConfig
	Push     config.PushConfig
	Email    config.EmailConfig
	Report   config.ReportConfig
	AWS      config.AWSConfig

	driver string
	url    string
	path   string
}

// AddFlags registers the store override flags.
func (o *Options) AddFlags(fs *pflag.FlagSet) {
	fs.StringVar(&o.driver, "driver", "", "Store driver (postgres|badger). Defaults to STORE_DRIVER.")
	fs.StringVar(&o.url, "database-url", "", "Postgres connection string. Defaults to DATABASE_URL.")
	fs.StringVar(&o.path, "badger-path", "", "Badger data directory. Defaults to BADGER_PATH.")
}

// Load fills Options from the environment, resolving *_SSM_PARAM pointers
// outside APP_ENV=local, then applies flag overrides.
func (o *Options) Load(provider config.SecretProvider) error {
	_ = godotenv.Load()
	if err := config.ResolveSecrets(provider); err != nil {
		return err
	}
	if err := envconfig.Process("", o); err != nil {
		return fmt.Errorf("reading environment: %w", err)
	}

	if o.driver != "" {
		o.Store.Driver = o.driver
	}
	if o.url != "" {
		o.Store.URL = config.SecretString(o.url)
	}
	if o.path != "" {
		o.Store.BadgerPath = o.path
	}
	return nil
}

// ServiceConfig assembles a config.Config for the external client
// registry. Push is stubbed unless withPush is set, so commands that only
// mail reports do not need FIREBASE_KEY.
func (o *Options) ServiceConfig(withPush bool) *config.Config {
	push := config.PushConfig{Provider: config.ProviderStub}
	if withPush {
		push = o.Push
	}
	return &config.Config{
		Environment: os.Getenv("APP_ENV"),
		LogLevel:    o.LogLevel,
		Store:       o.Store,
		Schedule:    o.Schedule,
		Push:        push,
		Email:       o.Email,
		Report:      o.Report,
		AWS:         o.AWS,
	}
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
