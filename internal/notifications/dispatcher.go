// Package notifications delivers push notifications to the devices
// subscribed to the maintenance topic.
package notifications

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"labmaint/internal/config"
	"labmaint/internal/external"
	"labmaint/internal/telemetry"
	"labmaint/internal/types"
)

// defaultSendTimeout bounds one provider call. Time spent queued behind
// other sends or in the delay is not counted.
const defaultSendTimeout = 30 * time.Second

// PushMetrics receives one observation per provider call.
type PushMetrics interface {
	ObservePush(result string)
}

type noopMetrics struct{}

func (noopMetrics) ObservePush(string) {}

// Dispatcher sends push notifications one at a time, waiting a fixed delay
// before each provider call.
type Dispatcher struct {
	provider  external.PushProvider
	topic     string
	channelID string
	delay     time.Duration
	timeout   time.Duration
	sleep     func(ctx context.Context, d time.Duration) error
	metrics   PushMetrics
	logger    *slog.Logger

	sendMu   sync.Mutex
	inflight sync.WaitGroup
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSleepFunc replaces the pre-send wait. Tests pass a recorder.
func WithSleepFunc(fn func(ctx context.Context, d time.Duration) error) Option {
	return func(d *Dispatcher) { d.sleep = fn }
}

// WithSendTimeout overrides the per-call provider timeout.
func WithSendTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) { d.timeout = timeout }
}

// WithMetrics sets the push metrics sink.
func WithMetrics(m PushMetrics) Option {
	return func(d *Dispatcher) { d.metrics = m }
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = logger }
}

// NewDispatcher creates a Dispatcher for the topic and channel in cfg.
func NewDispatcher(provider external.PushProvider, cfg config.PushConfig, opts ...Option) *Dispatcher {
	topic := cfg.Topic
	if topic == "" {
		topic = types.DefaultPushTopic
	}
	d := &Dispatcher{
		provider:  provider,
		topic:     topic,
		channelID: cfg.ChannelID,
		delay:     cfg.SendDelay,
		timeout:   defaultSendTimeout,
		sleep:     sleepContext,
		metrics:   noopMetrics{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Topic returns the default topic.
func (d *Dispatcher) Topic() string { return d.topic }

// Notify sends to the default topic without blocking the caller.
func (d *Dispatcher) Notify(ctx context.Context, title, body string) {
	d.NotifyTopic(ctx, d.topic, title, body)
}

// NotifyTopic sends to topic in the background. The send outlives ctx's
// cancellation but keeps its values, and waits as long as the queue ahead
// of it takes. Failures are logged, never returned.
func (d *Dispatcher) NotifyTopic(ctx context.Context, topic, title, body string) {
	d.inflight.Add(1)
	go func() {
		defer d.inflight.Done()

		sendCtx := context.WithoutCancel(ctx)
		if err := d.Send(sendCtx, topic, title, body); err != nil {
			d.logger.WarnContext(sendCtx, "push notification failed",
				"topic", topic,
				"title", title,
				"error", err,
			)
		}
	}()
}

// Send delivers one notification and returns the provider's error. Sends
// are serialized; each waits the configured delay before calling the
// provider.
func (d *Dispatcher) Send(ctx context.Context, topic, title, body string) error {
	d.sendMu.Lock()
	defer d.sendMu.Unlock()

	if err := d.sleep(ctx, d.delay); err != nil {
		d.metrics.ObservePush(telemetry.ResultError)
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	name, err := d.provider.SendToTopic(callCtx, types.PushMessage{
		Topic:     topic,
		Title:     title,
		Body:      body,
		ChannelID: d.channelID,
	})
	if err != nil {
		d.metrics.ObservePush(telemetry.ResultError)
		return err
	}
	d.metrics.ObservePush(telemetry.ResultSuccess)
	d.logger.InfoContext(ctx, "push notification sent", "topic", topic, "title", title, "message", name)
	return nil
}

// Subscribe registers a device token with the default topic.
func (d *Dispatcher) Subscribe(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return types.NewAppError(types.ErrCodeValidationMissingToken, "Token requerido", nil)
	}
	if err := d.provider.SubscribeToTopic(ctx, d.topic, []string{token}); err != nil {
		return err
	}
	d.logger.InfoContext(ctx, "device subscribed", "topic", d.topic)
	return nil
}

// Wait blocks until every background send has finished.
func (d *Dispatcher) Wait() {
	d.inflight.Wait()
}
