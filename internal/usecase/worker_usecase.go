package usecase

import "context"

// TickReport summarizes one queue worker pass.
type TickReport struct {
	Reclaimed int64 `json:"reclaimed"` // Stale claims returned to pending.
	Claimed   int   `json:"claimed"`   // Entries claimed this pass.
	Completed int   `json:"completed"` // Entries delivered and removed.
	Dropped   int   `json:"dropped"`   // Entries discarded as undeliverable.
	Retained  int   `json:"retained"`  // Entries left claimed for the stale sweep.
	Sent      int   `json:"sent"`      // Per-token successful dispatches.
	Failed    int   `json:"failed"`    // Per-token failed dispatches.
}

// WorkerUsecase defines the interface for the queue worker use cases
type WorkerUsecase interface {
	// Tick performs one full worker pass: sweep stale claims back to
	// pending, claim a batch and deliver each entry. Safe to run from
	// multiple workers concurrently.
	Tick(ctx context.Context) (*TickReport, error)
}
