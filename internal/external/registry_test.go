package external

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"labmaint/internal/config"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func stubConfig() *config.Config {
	return &config.Config{
		Push:  config.PushConfig{Provider: config.ProviderStub, Topic: "mantenimiento"},
		Email: config.EmailConfig{Provider: config.ProviderStub},
		AWS:   config.AWSConfig{Region: "us-east-1"},
	}
}

func countingLoader(calls *int, err error) RegistryOption {
	return WithAWSConfigLoader(func(context.Context, config.AWSConfig) (aws.Config, error) {
		*calls++
		return aws.Config{Region: "us-east-1"}, err
	})
}

func TestNewClientRegistry_Stubs(t *testing.T) {
	calls := 0
	reg, err := NewClientRegistry(context.Background(), stubConfig(), discardLogger(), countingLoader(&calls, nil))
	require.NoError(t, err)

	assert.IsType(t, &StubPushProvider{}, reg.Push)
	assert.IsType(t, &StubEmailProvider{}, reg.Email)
	assert.Nil(t, reg.Archive)
	assert.Zero(t, calls, "aws config must not load when no aws service is used")
}

func TestNewClientRegistry_AWSServicesShareConfig(t *testing.T) {
	cfg := stubConfig()
	cfg.Email.Provider = config.ProviderSES
	cfg.Report.Bucket = "lab-reports"

	calls := 0
	reg, err := NewClientRegistry(context.Background(), cfg, discardLogger(), countingLoader(&calls, nil))
	require.NoError(t, err)

	assert.IsType(t, &SESClient{}, reg.Email)
	assert.IsType(t, &S3Archiver{}, reg.Archive)
	assert.Equal(t, 1, calls)
}

func TestNewClientRegistry_SendGrid(t *testing.T) {
	cfg := stubConfig()
	cfg.Email.Provider = config.ProviderSendGrid
	cfg.Email.SendGridAPIKey = "SG.key"

	reg, err := NewClientRegistry(context.Background(), cfg, discardLogger())
	require.NoError(t, err)
	assert.IsType(t, &SendGridClient{}, reg.Email)
}

func TestNewClientRegistry_AWSLoadFailure(t *testing.T) {
	cfg := stubConfig()
	cfg.Report.Bucket = "lab-reports"

	calls := 0
	_, err := NewClientRegistry(context.Background(), cfg, discardLogger(), countingLoader(&calls, errors.New("no credentials")))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "load aws config")
}

func TestNewClientRegistry_InvalidFirebaseKey(t *testing.T) {
	cfg := stubConfig()
	cfg.Push.Provider = config.ProviderFCM
	cfg.Push.FirebaseKey = "{not json"

	_, err := NewClientRegistry(context.Background(), cfg, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init fcm client")
}
