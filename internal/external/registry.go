package external

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"

	"labmaint/internal/config"
)

// ClientRegistry holds the external service clients selected by config.
type ClientRegistry struct {
	Push  PushProvider
	Email EmailProvider
	// Archive is nil when no report bucket is configured.
	Archive Archiver
}

// AWSConfigLoader loads the shared AWS configuration. Replaced in tests.
type AWSConfigLoader func(ctx context.Context, cfg config.AWSConfig) (aws.Config, error)

// RegistryOption configures NewClientRegistry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	loadAWS AWSConfigLoader
}

// WithAWSConfigLoader replaces the default AWS config loader.
func WithAWSConfigLoader(fn AWSConfigLoader) RegistryOption {
	return func(o *registryOptions) { o.loadAWS = fn }
}

// LoadAWSConfig loads the default AWS config for the configured region,
// pointing every service at EndpointURL when one is set.
func LoadAWSConfig(ctx context.Context, cfg config.AWSConfig) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.EndpointURL != "" {
		opts = append(opts, awsconfig.WithBaseEndpoint(cfg.EndpointURL))
	}
	return awsconfig.LoadDefaultConfig(ctx, opts...)
}

// NewClientRegistry builds the push, email and archive clients. AWS config
// is only loaded when SES or S3 is in use.
func NewClientRegistry(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...RegistryOption) (*ClientRegistry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ro := registryOptions{loadAWS: LoadAWSConfig}
	for _, opt := range opts {
		opt(&ro)
	}

	var (
		awsCfg    aws.Config
		awsLoaded bool
	)
	getAWS := func() (aws.Config, error) {
		if awsLoaded {
			return awsCfg, nil
		}
		c, err := ro.loadAWS(ctx, cfg.AWS)
		if err != nil {
			return aws.Config{}, fmt.Errorf("load aws config: %w", err)
		}
		awsCfg, awsLoaded = c, true
		return awsCfg, nil
	}

	reg := &ClientRegistry{}

	switch cfg.Push.Provider {
	case config.ProviderStub:
		reg.Push = NewStubPushProvider(logger.With("client", "push", "mode", "stub"))
	default:
		fcm, err := NewFCMClientFromKey(ctx, &http.Client{Timeout: 10 * time.Second},
			cfg.Push.FirebaseKey.Unmask(), FCMClientConfig{
				ProjectID: cfg.Push.ProjectID,
				Logger:    logger.With("client", "fcm"),
			})
		if err != nil {
			return nil, fmt.Errorf("init fcm client: %w", err)
		}
		reg.Push = fcm
	}

	switch cfg.Email.Provider {
	case config.ProviderSendGrid:
		reg.Email = NewSendGridClient(&http.Client{Timeout: 10 * time.Second}, SendGridClientConfig{
			APIKey: cfg.Email.SendGridAPIKey.Unmask(),
			Logger: logger.With("client", "sendgrid"),
		})
	case config.ProviderSES:
		c, err := getAWS()
		if err != nil {
			return nil, err
		}
		reg.Email = NewSESClient(c, logger.With("client", "ses"))
	default:
		reg.Email = NewStubEmailProvider(logger.With("client", "email", "mode", "stub"))
	}

	if cfg.Report.Bucket != "" {
		c, err := getAWS()
		if err != nil {
			return nil, err
		}
		reg.Archive = NewS3Archiver(c, cfg.Report.Bucket, logger.With("client", "s3"))
	}

	logger.Info("external clients initialized",
		"push", cfg.Push.Provider,
		"email", cfg.Email.Provider,
		"archive", reg.Archive != nil,
	)
	return reg, nil
}
