package auditlog

import (
	"context"

	"go.uber.org/zap"

	"github.com/capitalize-ai/ds-assistant/internal/model"
	"github.com/capitalize-ai/ds-assistant/pkg/logger"
)

// LogSink writes events to the structured log. It is the fallback when no
// spreadsheet is configured.
type LogSink struct {
	logger *logger.Logger
}

// NewLogSink creates a log-backed sink.
func NewLogSink(log *logger.Logger) *LogSink {
	return &LogSink{logger: log}
}

// Append logs every event.
func (s *LogSink) Append(ctx context.Context, events []model.AuditEvent) error {
	for _, e := range events {
		s.logger.Info("audit",
			zap.Time("timestamp", e.Timestamp),
			zap.String("identity", e.Identity),
			zap.String("action", e.Action),
		)
	}
	return nil
}

// TeeSink writes to a primary sink and copies successful batches to a mirror.
// Mirror failures are logged and never fail the batch, so a retried batch is
// not written twice to the primary.
type TeeSink struct {
	primary Sink
	mirror  Sink
	logger  *logger.Logger
}

// NewTeeSink creates a tee. mirror may be nil.
func NewTeeSink(primary, mirror Sink, log *logger.Logger) *TeeSink {
	return &TeeSink{primary: primary, mirror: mirror, logger: log}
}

// Append writes events to the primary, then the mirror.
func (s *TeeSink) Append(ctx context.Context, events []model.AuditEvent) error {
	if err := s.primary.Append(ctx, events); err != nil {
		return err
	}
	if s.mirror == nil {
		return nil
	}
	if err := s.mirror.Append(ctx, events); err != nil {
		s.logger.Warn("audit mirror append failed",
			zap.Int("events", len(events)),
			zap.Error(err),
		)
	}
	return nil
}
