package service

import (
	"context"
)

// QueueEvent is a wake signal published after an enqueue so a worker can
// process the entry before its next scheduled tick. It carries no
// authoritative state; the database queue remains the source of truth.
type QueueEvent struct {
	RequestID string `json:"request_id,omitempty"` // For distributed tracing.
	EntryID   int64  `json:"entry_id"`
	Targets   int    `json:"targets"`
}

// EventPublisher defines the interface for publishing queue wake events.
type EventPublisher interface {
	// PublishQueueEvent publishes a wake event for an enqueued entry.
	PublishQueueEvent(ctx context.Context, event *QueueEvent) error

	// Close releases any resources held by the publisher.
	Close() error
}
