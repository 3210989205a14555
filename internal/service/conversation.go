package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/capitalize-ai/ds-assistant/internal/model"
	"github.com/capitalize-ai/ds-assistant/pkg/logger"
	"github.com/capitalize-ai/ds-assistant/pkg/metrics"
)

// DefaultBatchSize is the number of results shown per page.
const DefaultBatchSize = 10

// Searcher finds components for a query within a category.
type Searcher interface {
	Search(ctx context.Context, query string, category model.Category) []model.Component
}

// Auditor records user actions.
type Auditor interface {
	Record(identity, action string)
}

// ConversationOption configures a ConversationService.
type ConversationOption func(*ConversationService)

// WithBatchSize sets how many results are delivered per page.
func WithBatchSize(n int) ConversationOption {
	return func(s *ConversationService) {
		if n > 0 {
			s.batchSize = n
		}
	}
}

// WithSessionClock replaces the time source used to stamp sessions.
func WithSessionClock(now func() time.Time) ConversationOption {
	return func(s *ConversationService) {
		s.now = now
	}
}

// ConversationService drives the per-user dialogue.
//
// Updates for one identity must be handled one at a time; the dispatcher
// guarantees that. Different identities may be handled concurrently.
type ConversationService struct {
	search    Searcher
	messages  *MessageService
	audit     Auditor
	logger    *logger.Logger
	batchSize int
	now       func() time.Time

	mu       sync.Mutex
	sessions map[string]model.Session
}

// NewConversationService creates a new conversation service.
func NewConversationService(search Searcher, messages *MessageService, audit Auditor, log *logger.Logger, opts ...ConversationOption) *ConversationService {
	s := &ConversationService{
		search:    search,
		messages:  messages,
		audit:     audit,
		logger:    log,
		batchSize: DefaultBatchSize,
		now:       time.Now,
		sessions:  make(map[string]model.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Process handles one update and records its outcome. It is the dispatcher's
// handler.
func (s *ConversationService) Process(ctx context.Context, u model.Update) {
	ctx, span := otel.Tracer("conversation").Start(ctx, "conversation.handle")
	span.SetAttributes(attribute.String("update.id", u.ID))
	defer span.End()

	start := time.Now()
	err := s.Handle(ctx, u)
	metrics.UpdateDuration.Observe(time.Since(start).Seconds())

	log := s.logger.WithUpdate(u.ID, u.Identity, u.ChatID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "handle failed")
		metrics.RecordUpdate("error")
		log.Error("failed to handle update", zap.Error(err))
		return
	}
	metrics.RecordUpdate("handled")
	log.Debug("update handled")
}

// Handle advances the sender's conversation by one message.
func (s *ConversationService) Handle(ctx context.Context, u model.Update) error {
	text := strings.TrimSpace(u.Text)
	tok := token(text)

	sess := s.load(u.Identity)
	from := sess.Phase

	var err error
	switch {
	case isCancel(tok):
		sess.Reset()
		s.record(u.Identity, "cancel")
		err = s.messages.Send(ctx, u.ChatID, textMainMenu, mainMenu)

	case tok == CommandStart:
		s.record(u.Identity, "start")
		err = s.messages.Send(ctx, u.ChatID, textGreeting, mainMenu)

	case tok == token(LabelFindComponent):
		sess.Reset()
		sess.Phase = model.PhaseAwaitingCategory
		s.record(u.Identity, "find component")
		err = s.messages.Send(ctx, u.ChatID, textChooseCategory, categoryMenu)

	default:
		if page, ok := infoPages[tok]; ok {
			s.record(u.Identity, "menu: "+page.label)
			err = s.messages.Send(ctx, u.ChatID, page.text, page.keyboard)
			break
		}
		err = s.step(ctx, u, &sess, text)
	}

	sess.UpdatedAt = s.now()
	s.store(u.Identity, sess)

	if sess.Phase != from {
		metrics.RecordTransition(from.String(), sess.Phase.String())
	}
	return err
}

// step handles text that is not a global command, according to the phase.
func (s *ConversationService) step(ctx context.Context, u model.Update, sess *model.Session, text string) error {
	switch sess.Phase {
	case model.PhaseAwaitingCategory:
		category, ok := model.ParseCategory(text)
		if !ok {
			return nil
		}
		sess.Category = category
		sess.Phase = model.PhaseAwaitingQuery
		s.record(u.Identity, "category: "+category.Label())
		return s.messages.Send(ctx, u.ChatID, textEnterQuery, backMenu)

	case model.PhaseAwaitingQuery, model.PhaseShowingResults:
		return s.query(ctx, u, sess, text)

	case model.PhaseAwaitingShowMore:
		if isAffirmative(token(text)) {
			s.record(u.Identity, "show more")
			return s.nextBatch(ctx, u, sess)
		}
		sess.Results = nil
		sess.Cursor = 0
		sess.Phase = model.PhaseAwaitingQuery
		s.record(u.Identity, "show more declined")
		return s.messages.Send(ctx, u.ChatID, textNewQuery, backMenu)

	default:
		return s.messages.Send(ctx, u.ChatID, textIdleHint, mainMenu)
	}
}

func (s *ConversationService) query(ctx context.Context, u model.Update, sess *model.Session, text string) error {
	results := s.search.Search(ctx, text, sess.Category)
	sess.LastQuery = text
	s.record(u.Identity, fmt.Sprintf("search %s: %q (%d)", sess.Category, text, len(results)))

	if len(results) == 0 {
		sess.Phase = model.PhaseAwaitingQuery
		return s.messages.Send(ctx, u.ChatID, fmt.Sprintf(textNotFound, html.EscapeString(text)), backMenu)
	}

	sess.Results = results
	sess.Cursor = 0
	sess.Phase = model.PhaseShowingResults

	err := s.messages.Send(ctx, u.ChatID, fmt.Sprintf(textFound, len(results)), nil)
	return errors.Join(err, s.nextBatch(ctx, u, sess))
}

// nextBatch delivers the next page of results and settles the phase.
func (s *ConversationService) nextBatch(ctx context.Context, u model.Update, sess *model.Session) error {
	end := min(sess.Cursor+s.batchSize, len(sess.Results))
	sess.Cursor += s.messages.DeliverBatch(ctx, u.ChatID, sess.Results[sess.Cursor:end])

	if sess.Remaining() > 0 {
		sess.Phase = model.PhaseAwaitingShowMore
		return s.messages.Send(ctx, u.ChatID, fmt.Sprintf(textShowMore, sess.Cursor, len(sess.Results)), showMoreMenu)
	}

	sess.Results = nil
	sess.Cursor = 0
	sess.Phase = model.PhaseAwaitingQuery
	return s.messages.Send(ctx, u.ChatID, textNewQuery, backMenu)
}

func (s *ConversationService) record(identity, action string) {
	if s.audit != nil {
		s.audit.Record(identity, action)
	}
}

func (s *ConversationService) load(identity string) model.Session {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessions[identity]
}

// store keeps sess, or drops it when the conversation is back to idle.
func (s *ConversationService) store(identity string, sess model.Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.Phase == model.PhaseIdle {
		delete(s.sessions, identity)
	} else {
		s.sessions[identity] = sess
	}
	metrics.ActiveSessions.Set(float64(len(s.sessions)))
}

// Session returns a copy of the identity's session.
func (s *ConversationService) Session(identity string) (model.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[identity]
	return sess, ok
}

// Sessions returns the number of conversations in progress.
func (s *ConversationService) Sessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Reset discards the identity's session.
func (s *ConversationService) Reset(identity string) {
	s.store(identity, model.Session{})
}
