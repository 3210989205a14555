package handler

import (
	"context"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/capitalize-ai/ds-assistant/internal/middleware"
	"github.com/capitalize-ai/ds-assistant/internal/model"
	"github.com/capitalize-ai/ds-assistant/internal/telegram"
	"github.com/capitalize-ai/ds-assistant/pkg/logger"
)

// UpdateAcceptor takes inbound updates.
type UpdateAcceptor interface {
	Accept(ctx context.Context, u model.Update) bool
}

// WebhookHandler receives Telegram updates pushed to the webhook.
type WebhookHandler struct {
	gate   UpdateAcceptor
	secret string
	logger *logger.Logger
}

// NewWebhookHandler creates a new webhook handler. An empty secret disables
// the token check.
func NewWebhookHandler(gate UpdateAcceptor, secret string, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{
		gate:   gate,
		secret: secret,
		logger: log,
	}
}

// Handle handles POST /telegram/webhook
//
// Telegram redelivers on any non-2xx answer, so malformed and ignored
// updates are still acknowledged.
func (h *WebhookHandler) Handle(w http.ResponseWriter, r *http.Request) {
	upd, err := telegram.ParseWebhook(r, h.secret)
	if errors.Is(err, telegram.ErrBadSecret) {
		writeError(w, http.StatusUnauthorized, "invalid secret token")
		return
	}
	if err != nil {
		h.logger.Warn("failed to parse webhook update",
			zap.String("correlation_id", middleware.GetCorrelationID(r.Context())),
			zap.Error(err),
		)
		w.WriteHeader(http.StatusOK)
		return
	}

	if u, ok := telegram.ToUpdate(upd); ok {
		u.ID = middleware.GetCorrelationID(r.Context())
		h.gate.Accept(context.WithoutCancel(r.Context()), u)
	}

	w.WriteHeader(http.StatusOK)
}
