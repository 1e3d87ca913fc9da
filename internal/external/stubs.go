package external

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"labmaint/internal/types"
)

// Stub providers let the service boot locally without credentials. They log
// every call and keep what they were given so tests and labctl can inspect it.

// StubPushProvider records pushes instead of delivering them.
type StubPushProvider struct {
	logger *slog.Logger

	mu         sync.Mutex
	sent       []types.PushMessage
	subscribed map[string][]string
}

// NewStubPushProvider creates a new StubPushProvider.
func NewStubPushProvider(logger *slog.Logger) *StubPushProvider {
	return &StubPushProvider{logger: logger, subscribed: make(map[string][]string)}
}

func (s *StubPushProvider) SendToTopic(ctx context.Context, msg types.PushMessage) (string, error) {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	n := len(s.sent)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "stub: push sent",
		"topic", msg.Topic,
		"title", msg.Title,
		"body", msg.Body,
	)
	return fmt.Sprintf("projects/stub/messages/%d", n), nil
}

func (s *StubPushProvider) SubscribeToTopic(ctx context.Context, topic string, tokens []string) error {
	if len(tokens) == 0 {
		return types.NewAppError(types.ErrCodeValidationMissingToken, "no device tokens given", nil)
	}
	s.mu.Lock()
	s.subscribed[topic] = append(s.subscribed[topic], tokens...)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "stub: devices subscribed", "topic", topic, "count", len(tokens))
	return nil
}

// Sent returns a copy of every message pushed so far.
func (s *StubPushProvider) Sent() []types.PushMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.PushMessage(nil), s.sent...)
}

// Subscribed returns the tokens registered for topic.
func (s *StubPushProvider) Subscribed(topic string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.subscribed[topic]...)
}

// StubEmailProvider logs email instead of sending it.
type StubEmailProvider struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []types.EmailMessage
}

// NewStubEmailProvider creates a new StubEmailProvider.
func NewStubEmailProvider(logger *slog.Logger) *StubEmailProvider {
	return &StubEmailProvider{logger: logger}
}

func (s *StubEmailProvider) Send(ctx context.Context, msg types.EmailMessage) (string, error) {
	s.mu.Lock()
	s.sent = append(s.sent, msg)
	s.mu.Unlock()

	names := make([]string, 0, len(msg.Attachments))
	for _, a := range msg.Attachments {
		names = append(names, a.Filename)
	}
	s.logger.InfoContext(ctx, "stub: email sent",
		"to", msg.To,
		"subject", msg.Subject,
		"attachments", names,
	)
	return "msg_stub_" + msg.ReferenceID, nil
}

// Sent returns a copy of every message sent so far.
func (s *StubEmailProvider) Sent() []types.EmailMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.EmailMessage(nil), s.sent...)
}

// StubArchiver keeps archived objects in memory.
type StubArchiver struct {
	logger *slog.Logger

	mu      sync.Mutex
	objects map[string][]byte
}

// NewStubArchiver creates a new StubArchiver.
func NewStubArchiver(logger *slog.Logger) *StubArchiver {
	return &StubArchiver{logger: logger, objects: make(map[string][]byte)}
}

func (s *StubArchiver) Put(ctx context.Context, key, contentType string, body []byte) error {
	s.mu.Lock()
	s.objects[key] = append([]byte(nil), body...)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "stub: report archived", "key", key, "content_type", contentType, "bytes", len(body))
	return nil
}

// Object returns the stored body for key.
func (s *StubArchiver) Object(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.objects[key]
	return b, ok
}

var (
	_ PushProvider  = (*StubPushProvider)(nil)
	_ EmailProvider = (*StubEmailProvider)(nil)
	_ Archiver      = (*StubArchiver)(nil)
)
