package service

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/capitalize-ai/ds-assistant/internal/model"
	"github.com/capitalize-ai/ds-assistant/pkg/logger"
	"github.com/capitalize-ai/ds-assistant/pkg/metrics"
)

// Admitter decides whether an identity may send another message.
type Admitter interface {
	Admit(identity string) bool
}

// Submitter queues an update for ordered processing.
type Submitter interface {
	Submit(u model.Update) bool
}

// Gate is the entry point for inbound updates. It applies the rate limit
// and hands admitted updates to the dispatcher.
type Gate struct {
	limiter  Admitter
	queue    Submitter
	messages *MessageService
	audit    Auditor
	logger   *logger.Logger
}

// NewGate creates a new gate.
func NewGate(limiter Admitter, queue Submitter, messages *MessageService, audit Auditor, log *logger.Logger) *Gate {
	return &Gate{
		limiter:  limiter,
		queue:    queue,
		messages: messages,
		audit:    audit,
		logger:   log,
	}
}

// Accept admits or throttles u. It reports whether u was queued.
func (g *Gate) Accept(ctx context.Context, u model.Update) bool {
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	log := g.logger.WithUpdate(u.ID, u.Identity, u.ChatID)

	if !g.limiter.Admit(u.Identity) {
		metrics.RecordUpdate("throttled")
		if g.audit != nil {
			g.audit.Record(u.Identity, "throttled")
		}
		log.Info("update throttled")
		if err := g.messages.Send(ctx, u.ChatID, textThrottled, nil); err != nil {
			log.Warn("failed to send throttle notice", zap.Error(err))
		}
		return false
	}

	if !g.queue.Submit(u) {
		metrics.RecordUpdate("dropped")
		log.Warn("dispatcher closed, update dropped")
		return false
	}

	return true
}
