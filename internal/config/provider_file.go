package config

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileProvider resolves each key as a file under Dir, the layout Docker and
// Kubernetes use for mounted secrets. A key of "/labmaint/firebase_key"
// reads Dir/labmaint/firebase_key. Trailing newlines are trimmed.
type FileProvider struct {
	Dir string
}

// NewFileProvider creates a FileProvider rooted at dir.
func NewFileProvider(dir string) *FileProvider {
	return &FileProvider{Dir: dir}
}

// GetParametersBatch implements SecretProvider. Missing files are omitted
// from the result; keys that escape Dir are errors.
func (p *FileProvider) GetParametersBatch(ctx context.Context, keys []string) (map[string]string, error) {
	result := make(map[string]string, len(keys))
	for _, key := range keys {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rel := strings.TrimPrefix(filepath.Clean("/"+key), "/")
		if rel == "" || !filepath.IsLocal(rel) {
			return nil, fmt.Errorf("secret key %q is not a path under the secrets directory", key)
		}
		data, err := os.ReadFile(filepath.Join(p.Dir, rel))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read secret %q: %w", key, err)
		}
		result[key] = strings.TrimRight(string(data), "\r\n")
	}
	return result, nil
}

// NewSecretProvider picks the provider for the current process from the
// environment: none for APP_ENV=local, mounted files when SECRETS_DIR is
// set, SSM in AWS_REGION otherwise.
func NewSecretProvider() SecretProvider {
	if os.Getenv("APP_ENV") == localEnv {
		return nil
	}
	if dir := os.Getenv("SECRETS_DIR"); dir != "" {
		return NewFileProvider(dir)
	}
	region := os.Getenv("AWS_REGION")
	if region == "" {
		region = "us-east-1"
	}
	return NewSSMProvider(region)
}
