package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/ds-assistant/internal/model"
	"github.com/capitalize-ai/ds-assistant/pkg/logger"
)

type fixedAdmitter bool

func (a fixedAdmitter) Admit(string) bool { return bool(a) }

type queueRecorder struct {
	closed  bool
	updates []model.Update
}

func (q *queueRecorder) Submit(u model.Update) bool {
	if q.closed {
		return false
	}
	q.updates = append(q.updates, u)
	return true
}

func TestGateQueuesAdmittedUpdates(t *testing.T) {
	m := &fakeMessenger{}
	q := &queueRecorder{}
	gate := NewGate(fixedAdmitter(true), q, NewMessageService(m, logger.NewNop()), &auditRecorder{}, logger.NewNop())

	ok := gate.Accept(context.Background(), model.Update{Identity: "u", ChatID: 1, Text: "hi"})

	assert.True(t, ok)
	require.Len(t, q.updates, 1)
	assert.NotEmpty(t, q.updates[0].ID)
	assert.Empty(t, m.take())
}

func TestGateThrottlesWithNotice(t *testing.T) {
	m := &fakeMessenger{}
	q := &queueRecorder{}
	audit := &auditRecorder{}
	gate := NewGate(fixedAdmitter(false), q, NewMessageService(m, logger.NewNop()), audit, logger.NewNop())

	ok := gate.Accept(context.Background(), model.Update{Identity: "u", ChatID: 9, Text: "hi"})

	assert.False(t, ok)
	assert.Empty(t, q.updates)
	sent := m.take()
	require.Len(t, sent, 1)
	assert.Equal(t, textThrottled, sent[0].text)
	assert.Equal(t, int64(9), sent[0].chatID)
	assert.Equal(t, []string{"u: throttled"}, audit.all())
}

func TestGateReportsClosedQueue(t *testing.T) {
	q := &queueRecorder{closed: true}
	gate := NewGate(fixedAdmitter(true), q, NewMessageService(&fakeMessenger{}, logger.NewNop()), nil, logger.NewNop())

	assert.False(t, gate.Accept(context.Background(), model.Update{Identity: "u"}))
}
