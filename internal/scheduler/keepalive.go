package scheduler

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"labmaint/internal/external"
)

// KeepAlive requests its own public URL on an interval so hosts that sleep
// idle instances keep the scheduler running.
type KeepAlive struct {
	url      string
	interval time.Duration
	client   *external.BaseClient
	logger   *slog.Logger
}

// NewKeepAlive creates a KeepAlive. Pings are not retried; the next interval
// is the retry.
func NewKeepAlive(url string, interval time.Duration, httpClient *http.Client, logger *slog.Logger) *KeepAlive {
	if logger == nil {
		logger = slog.Default()
	}
	base := external.NewBaseClient(httpClient, "keepalive", external.RetryPolicy{}, "labmaint-keepalive/1.0")
	return &KeepAlive{url: url, interval: interval, client: base, logger: logger}
}

// Ping performs one request.
func (k *KeepAlive) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, k.url, nil)
	if err != nil {
		return fmt.Errorf("build keep-alive request: %w", err)
	}
	resp, err := k.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("keep-alive returned %d", resp.StatusCode)
	}
	return nil
}

// Start pings every interval until ctx is cancelled.
func (k *KeepAlive) Start(ctx context.Context) error {
	ticker := time.NewTicker(k.interval)
	defer ticker.Stop()

	k.logger.InfoContext(ctx, "keep-alive started", "url", k.url, "interval", k.interval.String())
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := k.Ping(ctx); err != nil {
				k.logger.WarnContext(ctx, "keep-alive ping failed", "error", err)
				continue
			}
			k.logger.DebugContext(ctx, "keep-alive ping ok")
		}
	}
}
