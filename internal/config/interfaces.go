package config

import "context"

// SecretProvider resolves *_SSM_PARAM pointers. SSMProvider serves AWS
// deployments; FileProvider serves hosts that mount secrets as files.
type SecretProvider interface {
	// GetParametersBatch returns key -> plaintext for every key it could
	// resolve. Keys it cannot find are omitted, not errors.
	GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error)
}
