package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// ConfigError is returned by LoadConfig. Type says which stage failed.
type ConfigError struct {
	Type    ConfigErrorType
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Type, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ssmParamSuffix marks pointer variables: FIREBASE_KEY_SSM_PARAM=/prod/labmaint/firebase
// resolves into FIREBASE_KEY.
const ssmParamSuffix = "_SSM_PARAM"

// localEnv is the APP_ENV value that bypasses SSM resolution.
const localEnv = "local"

// ssmTimeout bounds the whole batch resolution at startup.
const ssmTimeout = 30 * time.Second

type loaderDeps struct {
	lookupEnv func(key string) (string, bool)
	setEnv    func(key, value string) error
	environ   func() []string
	// dotenv loads a .env file without overriding existing variables.
	dotenv func() error
}

func defaultDeps() loaderDeps {
	return loaderDeps{
		lookupEnv: os.LookupEnv,
		setEnv:    os.Setenv,
		environ:   os.Environ,
		dotenv:    func() error { return godotenv.Load() },
	}
}

// LoadConfig loads and validates the configuration.
//
//  1. Pins the process time zone to UTC. Domain code resolves the plant
//     time zone explicitly through ScheduleConfig.Location.
//  2. Loads .env if present.
//  3. Outside APP_ENV=local, resolves *_SSM_PARAM pointers through provider.
//  4. Populates Config from envconfig tags.
//  5. Validates struct tags, then cross-field rules.
//
// provider may be nil when APP_ENV=local or when no *_SSM_PARAM variables
// are set.
func LoadConfig(provider SecretProvider) (*Config, error) {
	return loadConfigWithDeps(provider, defaultDeps())
}

func loadConfigWithDeps(provider SecretProvider, deps loaderDeps) (*Config, error) {
	time.Local = time.UTC

	if deps.dotenv != nil {
		_ = deps.dotenv()
	}

	appEnv, _ := deps.lookupEnv("APP_ENV")
	if appEnv != localEnv {
		if err := resolveSSMParams(provider, deps); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrParsing,
			Message: "failed to process environment configuration",
			Err:     err,
		}
	}
	cfg.Build = NewBuildInfo()

	if err := validator.New().Struct(cfg); err != nil {
		return nil, &ConfigError{
			Type:    ErrValidation,
			Message: "configuration validation failed",
			Err:     err,
		}
	}
	if err := cfg.validateCrossFields(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateCrossFields checks rules that span several fields and cannot be
// expressed as struct tags.
func (c *Config) validateCrossFields() error {
	if c.Store.Driver == StoreDriverPostgres && !c.Store.URL.IsSet() {
		return missing("DATABASE_URL", "required when STORE_DRIVER=postgres")
	}
	if c.Push.Provider == ProviderFCM && !c.Push.FirebaseKey.IsSet() {
		return missing("FIREBASE_KEY", "required when PUSH_PROVIDER=fcm")
	}
	if c.Email.Provider == ProviderSendGrid && !c.Email.SendGridAPIKey.IsSet() {
		return missing("SENDGRID_API_KEY", "required when EMAIL_PROVIDER=sendgrid")
	}

	if _, err := c.Schedule.Location(); err != nil {
		return &ConfigError{
			Type:    ErrValidation,
			Message: fmt.Sprintf("unknown TIMEZONE %q", c.Schedule.Timezone),
			Err:     err,
		}
	}
	// "HH:MM" strings compare correctly as text once validated.
	if c.Schedule.WorkdayStart >= c.Schedule.WorkdayEnd {
		return &ConfigError{
			Type: ErrValidation,
			Message: fmt.Sprintf("WORKDAY_START (%s) must be before WORKDAY_END (%s)",
				c.Schedule.WorkdayStart, c.Schedule.WorkdayEnd),
		}
	}
	return nil
}

func missing(name, why string) *ConfigError {
	return &ConfigError{Type: ErrMissingEnv, Message: fmt.Sprintf("%s is %s", name, why)}
}

// ResolveSecrets runs only the SSM step. labctl uses it before reading
// individual variables with flags as fallbacks.
func ResolveSecrets(provider SecretProvider) error {
	if appEnv, _ := os.LookupEnv("APP_ENV"); appEnv == localEnv {
		return nil
	}
	return resolveSSMParams(provider, defaultDeps())
}

// resolveSSMParams fetches every *_SSM_PARAM pointer in one batch and writes
// the values into the target variables. A target that is already set wins
// over SSM.
func resolveSSMParams(provider SecretProvider, deps loaderDeps) error {
	pathToTarget := make(map[string]string)
	var paths, targets []string

	for _, entry := range deps.environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasSuffix(key, ssmParamSuffix) || value == "" {
			continue
		}
		target := strings.TrimSuffix(key, ssmParamSuffix)
		if _, exists := deps.lookupEnv(target); exists {
			continue
		}
		pathToTarget[value] = target
		paths = append(paths, value)
		targets = append(targets, target)
	}

	if len(paths) == 0 {
		return nil
	}
	if provider == nil {
		return &ConfigError{
			Type: ErrSSMResolution,
			Message: fmt.Sprintf("SecretProvider is required for non-local environments (need to resolve: %s)",
				strings.Join(targets, ", ")),
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), ssmTimeout)
	defer cancel()

	resolved, err := provider.GetParametersBatch(ctx, paths)
	if err != nil {
		return &ConfigError{
			Type:    ErrSSMResolution,
			Message: fmt.Sprintf("failed to resolve %d SSM parameters", len(paths)),
			Err:     err,
		}
	}

	var unresolved []string
	for _, path := range paths {
		value, ok := resolved[path]
		if !ok {
			unresolved = append(unresolved, pathToTarget[path])
			continue
		}
		if err := deps.setEnv(pathToTarget[path], value); err != nil {
			return &ConfigError{
				Type:    ErrSSMResolution,
				Message: fmt.Sprintf("failed to set resolved value for %s", pathToTarget[path]),
				Err:     err,
			}
		}
	}
	if len(unresolved) > 0 {
		return &ConfigError{
			Type:    ErrSSMResolution,
			Message: fmt.Sprintf("SSM parameters not found for: %s", strings.Join(unresolved, ", ")),
		}
	}
	return nil
}
