package nats

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capitalize-ai/ds-assistant/internal/model"
)

type fakePublisher struct {
	subjects []string
	payloads [][]byte
	failAt   int
}

func (p *fakePublisher) Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error) {
	if p.failAt > 0 && len(p.subjects)+1 == p.failAt {
		return nil, errors.New("no responders")
	}
	p.subjects = append(p.subjects, subject)
	p.payloads = append(p.payloads, data)
	return &jetstream.PubAck{Stream: StreamName, Sequence: uint64(len(p.subjects))}, nil
}

func TestEventSubject(t *testing.T) {
	tests := []struct {
		identity string
		want     string
	}{
		{identity: "alice", want: "audit.alice"},
		{identity: "123456", want: "audit.123456"},
		{identity: "a.b*c>d e", want: "audit.a_b_c_d_e"},
		{identity: "", want: "audit.unknown"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, EventSubject(tt.identity))
	}
}

func TestAppendPublishesEachEvent(t *testing.T) {
	pub := &fakePublisher{}
	m := NewStreamManagerWithPublisher(pub)

	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	err := m.Append(context.Background(), []model.AuditEvent{
		{Timestamp: at, Identity: "alice", Action: "start"},
		{Timestamp: at, Identity: "bob", Action: "menu: guides"},
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"audit.alice", "audit.bob"}, pub.subjects)

	var got model.AuditEvent
	require.NoError(t, json.Unmarshal(pub.payloads[1], &got))
	assert.Equal(t, "menu: guides", got.Action)
	assert.True(t, got.Timestamp.Equal(at))
}

func TestAppendStopsAtFirstFailure(t *testing.T) {
	pub := &fakePublisher{failAt: 2}
	m := NewStreamManagerWithPublisher(pub)

	err := m.Append(context.Background(), []model.AuditEvent{
		{Identity: "alice", Action: "a"},
		{Identity: "alice", Action: "b"},
		{Identity: "alice", Action: "c"},
	})
	require.Error(t, err)
	assert.Len(t, pub.subjects, 1)
}
