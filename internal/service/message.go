package service

import (
	"context"
	"fmt"
	"html"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/capitalize-ai/ds-assistant/internal/model"
	"github.com/capitalize-ai/ds-assistant/pkg/logger"
	"github.com/capitalize-ai/ds-assistant/pkg/metrics"
)

const (
	// DefaultChunkSize is the longest text sent as one transport message.
	DefaultChunkSize = 4000

	// DefaultChunkDelay separates the parts of a split message.
	DefaultChunkDelay = 300 * time.Millisecond

	// captionLimit is Telegram's photo caption limit.
	captionLimit = 1024
)

// Messenger delivers outbound messages to a chat.
type Messenger interface {
	SendText(ctx context.Context, chatID int64, text string, keyboard model.Keyboard) error
	SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, keyboard model.Keyboard) error
}

// MessageOption configures a MessageService.
type MessageOption func(*MessageService)

// WithChunking sets the split size and the pause between parts.
func WithChunking(size int, delay time.Duration) MessageOption {
	return func(s *MessageService) {
		if size > 0 {
			s.chunkSize = size
		}
		if delay >= 0 {
			s.chunkDelay = delay
		}
	}
}

// MessageService formats and sends replies.
type MessageService struct {
	messenger  Messenger
	logger     *logger.Logger
	chunkSize  int
	chunkDelay time.Duration
}

// NewMessageService creates a new message service.
func NewMessageService(messenger Messenger, log *logger.Logger, opts ...MessageOption) *MessageService {
	s := &MessageService{
		messenger:  messenger,
		logger:     log,
		chunkSize:  DefaultChunkSize,
		chunkDelay: DefaultChunkDelay,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send delivers text, split into parts when it is too long. The keyboard is
// attached to the last part.
func (s *MessageService) Send(ctx context.Context, chatID int64, text string, keyboard model.Keyboard) error {
	parts := SplitText(text, s.chunkSize)

	for i, part := range parts {
		if i > 0 && s.chunkDelay > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.chunkDelay):
			}
		}

		var kb model.Keyboard
		if i == len(parts)-1 {
			kb = keyboard
		}

		err := s.messenger.SendText(ctx, chatID, part, kb)
		metrics.RecordOutbound("text", err)
		if err != nil {
			return fmt.Errorf("send part %d/%d: %w", i+1, len(parts), err)
		}
	}

	return nil
}

// DeliverBatch presents each component and returns how many were processed.
// A component with a usable image is sent as a photo; if that fails it is
// sent as text. Send failures are logged and do not stop the batch.
func (s *MessageService) DeliverBatch(ctx context.Context, chatID int64, items []model.Component) int {
	delivered := 0

	for _, c := range items {
		caption := FormatComponent(c)

		if ValidImageURL(c.Image) && utf8.RuneCountInString(caption) <= captionLimit {
			err := s.messenger.SendPhoto(ctx, chatID, c.Image, caption, nil)
			metrics.RecordOutbound("photo", err)
			if err == nil {
				delivered++
				continue
			}
			s.logger.Warn("photo send failed, sending text instead",
				zap.String("component", c.Name),
				zap.String("image", c.Image),
				zap.Error(err),
			)
		}

		if err := s.Send(ctx, chatID, caption, nil); err != nil {
			s.logger.Warn("component send failed",
				zap.String("component", c.Name),
				zap.Error(err),
			)
		}
		delivered++
	}

	return delivered
}

// FormatComponent renders one search result as HTML.
func FormatComponent(c model.Component) string {
	return fmt.Sprintf("<b>%s</b> from <b>%s</b>\n%s",
		html.EscapeString(c.Name),
		html.EscapeString(c.File),
		html.EscapeString(c.Link),
	)
}

// ValidImageURL reports whether s is an absolute http(s) URL.
func ValidImageURL(s string) bool {
	if s == "" {
		return false
	}
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

// SplitText cuts text into parts of at most limit characters, preferring line
// boundaries. A single line longer than limit is cut mid-line.
func SplitText(text string, limit int) []string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return []string{text}
	}

	var (
		parts []string
		cur   strings.Builder
		n     int
	)
	flush := func() {
		if part := strings.TrimRight(cur.String(), "\n"); strings.TrimSpace(part) != "" {
			parts = append(parts, part)
		}
		cur.Reset()
		n = 0
	}

	for _, line := range strings.SplitAfter(text, "\n") {
		size := utf8.RuneCountInString(line)
		if n+size > limit {
			flush()
		}
		for size > limit {
			r := []rune(line)
			cur.WriteString(string(r[:limit]))
			n = limit
			flush()
			line = string(r[limit:])
			size -= limit
		}
		cur.WriteString(line)
		n += size
	}
	flush()

	return parts
}
