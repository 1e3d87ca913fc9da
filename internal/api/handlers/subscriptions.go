package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"labmaint/internal/core"
)

// Subscriber registers device tokens for push notifications.
type Subscriber interface {
	Subscribe(ctx context.Context, token string) error
}

// SubscribeRequest is the body of POST /suscribir.
type SubscribeRequest struct {
	Token string `json:"token"`
}

// SubscriptionHandler subscribes devices to the maintenance topic.
type SubscriptionHandler struct {
	subscriber Subscriber
	logger     *slog.Logger
}

// NewSubscriptionHandler creates a SubscriptionHandler.
func NewSubscriptionHandler(s Subscriber, logger *slog.Logger) *SubscriptionHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &SubscriptionHandler{subscriber: s, logger: logger}
}

// RegisterRoutes mounts the subscription route.
func (h *SubscriptionHandler) RegisterRoutes(r chi.Router) {
	r.Post("/suscribir", h.Subscribe)
}

// Subscribe handles POST /suscribir. An empty token is a
// validation_missing_token error from the subscriber.
func (h *SubscriptionHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	var req SubscribeRequest
	if err := core.DecodeJSON(w, r, &req); err != nil {
		core.Error(w, r, err)
		return
	}
	if err := h.subscriber.Subscribe(r.Context(), req.Token); err != nil {
		h.logger.WarnContext(r.Context(), "device subscription failed", "error", err)
		core.Error(w, r, err)
		return
	}
	core.OK(w, r)
}
