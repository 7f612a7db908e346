// Package entity contains the core business objects of the project.
package entity

import (
	"encoding/json"
	"time"
)

// QueueStatus is the lifecycle state of a queue entry.
type QueueStatus string

const (
	// QueueStatusPending marks an entry waiting to be claimed.
	QueueStatusPending QueueStatus = "pending"
	// QueueStatusClaimed marks an entry exclusively held by one worker.
	QueueStatusClaimed QueueStatus = "claimed"
)

// QueueEntry is a unit of notification work. The payload is opaque to the
// queue; recipients are resolved at delivery time. An entry is either
// pending or claimed, and leaves the table on completion.
type QueueEntry struct {
	ID        int64           `json:"id"`
	Payload   json.RawMessage `json:"payload"`
	Status    QueueStatus     `json:"status"`
	Attempts  int             `json:"attempts"` // Number of times the entry has been claimed.
	CreatedAt time.Time       `json:"created_at"`
	ClaimedAt *time.Time      `json:"claimed_at,omitempty"`
}
