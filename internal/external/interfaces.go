package external

import (
	"context"

	"labmaint/internal/types"
)

// PushProvider delivers notifications to devices subscribed to a topic.
type PushProvider interface {
	// SendToTopic returns the provider message name on success.
	SendToTopic(ctx context.Context, msg types.PushMessage) (string, error)
	// SubscribeToTopic registers device tokens with a topic.
	SubscribeToTopic(ctx context.Context, topic string, tokens []string) error
}

// EmailProvider sends pre-rendered email and returns the provider message ID.
type EmailProvider interface {
	Send(ctx context.Context, msg types.EmailMessage) (string, error)
}

// Archiver stores generated report files.
type Archiver interface {
	Put(ctx context.Context, key, contentType string, body []byte) error
}
