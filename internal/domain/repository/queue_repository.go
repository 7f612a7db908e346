// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"
	"encoding/json"
	"time"

	"beacon/internal/domain/entity"
)

// QueueRepository defines the interface for the durable delivery queue.
// Entries move Pending -> Claimed -> deleted; a stale claim is swept back
// to Pending.
type QueueRepository interface {
	// Enqueue inserts a pending entry with the current timestamp and
	// returns its id. The payload is opaque to the queue.
	Enqueue(ctx context.Context, payload json.RawMessage) (int64, error)

	// ClaimBatch atomically selects up to limit oldest pending entries and
	// marks them claimed in the same statement, so concurrent workers never
	// observe the same entry as claimable. Each claim increments the
	// entry's attempt counter.
	ClaimBatch(ctx context.Context, limit int) ([]*entity.QueueEntry, error)

	// Complete deletes the entry. A missing id is a no-op.
	Complete(ctx context.Context, id int64) error

	// ReclaimStale returns claimed entries whose claim is older than
	// olderThan to pending, recovering work from crashed workers. Returns
	// the number of entries affected.
	ReclaimStale(ctx context.Context, olderThan time.Duration) (int64, error)
}
