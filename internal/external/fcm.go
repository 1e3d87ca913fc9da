package external

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"labmaint/internal/types"
)

const (
	fcmAPIBase = "https://fcm.googleapis.com"
	iidAPIBase = "https://iid.googleapis.com"

	firebaseMessagingScope = "https://www.googleapis.com/auth/firebase.messaging"
)

// FCMClientConfig holds the configuration for creating an FCMClient.
type FCMClientConfig struct {
	ProjectID string
	// Base URL overrides for tests.
	SendBaseURL string
	IIDBaseURL  string
	Logger      *slog.Logger
}

// FCMClient implements PushProvider over the FCM HTTP v1 API. Topic
// subscription uses the Instance ID batchAdd endpoint, which v1 lacks.
type FCMClient struct {
	base      *BaseClient
	tokens    oauth2.TokenSource
	projectID string
	sendURL   string
	iidURL    string
	logger    *slog.Logger
}

// NewFCMClient creates an FCMClient that authenticates with tokens.
func NewFCMClient(httpClient *http.Client, tokens oauth2.TokenSource, cfg FCMClientConfig) *FCMClient {
	base := NewBaseClient(httpClient, "fcm", DefaultRetryPolicy(), userAgent)
	return NewFCMClientWithBase(base, tokens, cfg)
}

// NewFCMClientWithBase creates an FCMClient on an existing BaseClient.
func NewFCMClientWithBase(base *BaseClient, tokens oauth2.TokenSource, cfg FCMClientConfig) *FCMClient {
	sendURL := cfg.SendBaseURL
	if sendURL == "" {
		sendURL = fcmAPIBase
	}
	iidURL := cfg.IIDBaseURL
	if iidURL == "" {
		iidURL = iidAPIBase
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &FCMClient{
		base:      base,
		tokens:    tokens,
		projectID: cfg.ProjectID,
		sendURL:   strings.TrimSuffix(sendURL, "/"),
		iidURL:    strings.TrimSuffix(iidURL, "/"),
		logger:    logger,
	}
}

// NewFCMClientFromKey builds an FCMClient from a service-account JSON key.
// When cfg.ProjectID is empty the key's project_id is used.
func NewFCMClientFromKey(ctx context.Context, httpClient *http.Client, key string, cfg FCMClientConfig) (*FCMClient, error) {
	normalized, err := NormalizeServiceAccountKey(key)
	if err != nil {
		return nil, err
	}
	creds, err := google.CredentialsFromJSON(ctx, normalized, firebaseMessagingScope)
	if err != nil {
		return nil, fmt.Errorf("parse firebase credentials: %w", err)
	}
	if cfg.ProjectID == "" {
		cfg.ProjectID = creds.ProjectID
	}
	if cfg.ProjectID == "" {
		return nil, errors.New("firebase project id is not set and the key has no project_id")
	}
	return NewFCMClient(httpClient, creds.TokenSource, cfg), nil
}

// NormalizeServiceAccountKey turns literal "\n" sequences in private_key into
// newlines. Keys pasted into a single-line env var usually arrive that way.
func NormalizeServiceAccountKey(raw string) ([]byte, error) {
	var key map[string]any
	if err := json.Unmarshal([]byte(raw), &key); err != nil {
		return nil, fmt.Errorf("firebase key is not valid JSON: %w", err)
	}
	if pk, ok := key["private_key"].(string); ok {
		key["private_key"] = strings.ReplaceAll(pk, `\n`, "\n")
	}
	return json.Marshal(key)
}

type fcmSendRequest struct {
	Message fcmMessage `json:"message"`
}

type fcmMessage struct {
	Topic        string          `json:"topic"`
	Notification fcmNotification `json:"notification"`
	Android      fcmAndroid      `json:"android"`
}

type fcmNotification struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

type fcmAndroid struct {
	Priority     string                 `json:"priority"`
	Notification fcmAndroidNotification `json:"notification"`
}

type fcmAndroidNotification struct {
	Sound     string `json:"sound"`
	ChannelID string `json:"channel_id,omitempty"`
}

type fcmSendResponse struct {
	Name string `json:"name"`
}

// SendToTopic publishes msg with high Android priority and the default sound.
func (c *FCMClient) SendToTopic(ctx context.Context, msg types.PushMessage) (string, error) {
	topic := msg.Topic
	if topic == "" {
		topic = types.DefaultPushTopic
	}
	payload := fcmSendRequest{Message: fcmMessage{
		Topic:        topic,
		Notification: fcmNotification{Title: msg.Title, Body: msg.Body},
		Android: fcmAndroid{
			Priority:     "high",
			Notification: fcmAndroidNotification{Sound: "default", ChannelID: msg.ChannelID},
		},
	}}

	url := fmt.Sprintf("%s/v1/projects/%s/messages:send", c.sendURL, c.projectID)
	resp, err := c.post(ctx, url, payload, nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fcmStatusError(resp, "send")
	}
	var out fcmSendResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", types.NewAppError(types.ErrCodeUpstreamPushProvider, "unreadable FCM send response", err)
	}
	return out.Name, nil
}

type iidBatchRequest struct {
	To                 string   `json:"to"`
	RegistrationTokens []string `json:"registration_tokens"`
}

type iidBatchResponse struct {
	Results []struct {
		Error string `json:"error,omitempty"`
	} `json:"results"`
}

// SubscribeToTopic adds tokens to topic. A per-token rejection from the
// service is reported as push_token_rejected.
func (c *FCMClient) SubscribeToTopic(ctx context.Context, topic string, tokens []string) error {
	if len(tokens) == 0 {
		return types.NewAppError(types.ErrCodeValidationMissingToken, "no device tokens given", nil)
	}
	payload := iidBatchRequest{
		To:                 "/topics/" + topic,
		RegistrationTokens: tokens,
	}
	resp, err := c.post(ctx, c.iidURL+"/iid/v1:batchAdd", payload, map[string]string{"access_token_auth": "true"})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fcmStatusError(resp, "subscribe")
	}
	var out iidBatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return types.NewAppError(types.ErrCodeUpstreamPushProvider, "unreadable topic subscription response", err)
	}
	for i, r := range out.Results {
		if r.Error != "" {
			return types.NewAppErrorWithDetails(types.ErrCodePushTokenRejected,
				"device token rejected by push provider", nil,
				map[string]any{"index": i, "reason": r.Error})
		}
	}
	c.logger.InfoContext(ctx, "subscribed devices to topic", "topic", topic, "count", len(tokens))
	return nil
}

func (c *FCMClient) post(ctx context.Context, url string, payload any, headers map[string]string) (*http.Response, error) {
	tok, err := c.tokens.Token()
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamPushProvider, "failed to obtain FCM access token", err)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to marshal FCM payload", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalUnexpected, "failed to create FCM request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.base.Do(req)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeUpstreamPushProvider, "FCM request failed", err)
	}
	return resp, nil
}

type fcmErrorResponse struct {
	Error struct {
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func fcmStatusError(resp *http.Response, op string) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	msg := strings.TrimSpace(string(body))
	var fe fcmErrorResponse
	if json.Unmarshal(body, &fe) == nil && fe.Error.Message != "" {
		msg = fe.Error.Message
	}
	return types.NewAppErrorWithDetails(types.ErrCodeUpstreamPushProvider,
		fmt.Sprintf("FCM %s failed (%d): %s", op, resp.StatusCode, msg), nil,
		map[string]any{"status": resp.StatusCode})
}

var _ PushProvider = (*FCMClient)(nil)
