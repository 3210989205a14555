package service

import (
	"context"
	"sync"

	"github.com/capitalize-ai/ds-assistant/internal/model"
)

type sentMessage struct {
	kind     string
	chatID   int64
	text     string
	photo    string
	keyboard model.Keyboard
}

type fakeMessenger struct {
	mu       sync.Mutex
	sent     []sentMessage
	textErr  error
	photoErr error
}

func (f *fakeMessenger) SendText(ctx context.Context, chatID int64, text string, keyboard model.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.textErr != nil {
		return f.textErr
	}
	f.sent = append(f.sent, sentMessage{kind: "text", chatID: chatID, text: text, keyboard: keyboard})
	return nil
}

func (f *fakeMessenger) SendPhoto(ctx context.Context, chatID int64, photoURL, caption string, keyboard model.Keyboard) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.photoErr != nil {
		return f.photoErr
	}
	f.sent = append(f.sent, sentMessage{kind: "photo", chatID: chatID, text: caption, photo: photoURL, keyboard: keyboard})
	return nil
}

// take returns the messages sent so far and clears the record.
func (f *fakeMessenger) take() []sentMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.sent
	f.sent = nil
	return out
}

func texts(msgs []sentMessage) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.text)
	}
	return out
}

type staticCatalog struct {
	snap *model.Snapshot
}

func (s staticCatalog) Snapshot(ctx context.Context) *model.Snapshot {
	if s.snap == nil {
		return &model.Snapshot{}
	}
	return s.snap
}

type auditRecorder struct {
	mu      sync.Mutex
	actions []string
}

func (a *auditRecorder) Record(identity, action string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.actions = append(a.actions, identity+": "+action)
}

func (a *auditRecorder) all() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.actions...)
}
