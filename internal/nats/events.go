package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/haus-platform/cortex/internal/model"
)

const (
	// StreamName is the name of the cortex events stream consumed by the
	// external semantic indexer.
	StreamName = "CORTEX_EVENTS"

	// SubjectPrefix is the prefix for all cortex event subjects.
	SubjectPrefix = "cortex"
)

// EventKind identifies what was written.
type EventKind string

const (
	EventMemoryCreated EventKind = "memory.created"
	EventFactCreated   EventKind = "fact.created"
)

// Event is published for every Memory and Fact write so the external
// indexing/knowledge-graph service can embed and synchronize them. The
// engine only notifies; it never performs semantic ranking itself.
type Event struct {
	Kind      EventKind     `json:"kind"`
	SpaceID   string        `json:"memorySpaceId"`
	Memory    *model.Memory `json:"memory,omitempty"`
	Fact      *model.Fact   `json:"fact,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
}

// EventPublisher publishes cortex events to JetStream.
type EventPublisher struct {
	client *Client
}

// NewEventPublisher creates a new event publisher.
func NewEventPublisher(client *Client) *EventPublisher {
	return &EventPublisher{client: client}
}

// EnsureStream ensures the cortex events stream exists.
func (p *EventPublisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      30 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Memory and fact writes awaiting semantic indexing",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// EventSubject returns the subject for an event in a space.
func EventSubject(spaceID string, kind EventKind) string {
	return fmt.Sprintf("%s.%s.%s", SubjectPrefix, spaceID, kind)
}

// PublishMemoryCreated announces a new memory to the indexer stream.
func (p *EventPublisher) PublishMemoryCreated(ctx context.Context, mem *model.Memory) error {
	return p.publish(ctx, Event{
		Kind:      EventMemoryCreated,
		SpaceID:   mem.SpaceID,
		Memory:    mem,
		CreatedAt: time.Now(),
	})
}

// PublishFactCreated announces a new fact to the indexer stream.
func (p *EventPublisher) PublishFactCreated(ctx context.Context, fact *model.Fact) error {
	return p.publish(ctx, Event{
		Kind:      EventFactCreated,
		SpaceID:   fact.SpaceID,
		Fact:      fact,
		CreatedAt: time.Now(),
	})
}

func (p *EventPublisher) publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	_, err = p.client.JetStream().Publish(ctx, EventSubject(event.SpaceID, event.Kind), data)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}
