package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/capitalize-ai/ds-assistant/internal/model"
)

const (
	// StreamName is the name of the audit stream.
	StreamName = "DS_AUDIT"

	// SubjectPrefix is the prefix for all audit subjects.
	SubjectPrefix = "audit"
)

// Publisher is the subset of JetStream used to publish audit events.
type Publisher interface {
	Publish(ctx context.Context, subject string, data []byte, opts ...jetstream.PublishOpt) (*jetstream.PubAck, error)
}

// StreamManager handles JetStream stream operations.
type StreamManager struct {
	client *Client
	pub    Publisher
}

// NewStreamManager creates a new stream manager.
func NewStreamManager(client *Client) *StreamManager {
	return &StreamManager{client: client, pub: client.JetStream()}
}

// NewStreamManagerWithPublisher creates a manager that only publishes.
func NewStreamManagerWithPublisher(pub Publisher) *StreamManager {
	return &StreamManager{pub: pub}
}

// EnsureStream ensures the audit stream exists with proper configuration.
func (m *StreamManager) EnsureStream(ctx context.Context) error {
	js := m.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		MaxBytes:    1024 * 1024 * 1024,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		DenyDelete:  true,
		DenyPurge:   true,
		Description: "Design-system assistant usage events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

var subjectReplacer = strings.NewReplacer(".", "_", "*", "_", ">", "_", " ", "_")

// EventSubject returns the subject for an identity's audit events.
func EventSubject(identity string) string {
	if identity == "" {
		identity = "unknown"
	}
	return fmt.Sprintf("%s.%s", SubjectPrefix, subjectReplacer.Replace(identity))
}

// PublishEvent publishes one audit event to JetStream.
func (m *StreamManager) PublishEvent(ctx context.Context, event model.AuditEvent) (uint64, error) {
	data, err := json.Marshal(event)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal event: %w", err)
	}

	ack, err := m.pub.Publish(ctx, EventSubject(event.Identity), data)
	if err != nil {
		return 0, fmt.Errorf("failed to publish event: %w", err)
	}

	return ack.Sequence, nil
}

// Append publishes a batch of events, stopping at the first failure.
func (m *StreamManager) Append(ctx context.Context, events []model.AuditEvent) error {
	for _, e := range events {
		if _, err := m.PublishEvent(ctx, e); err != nil {
			return err
		}
	}
	return nil
}
