package service

import (
	"context"

	"beacon/internal/domain/entity"
)

// PushAddress is one deliverable destination: a provider token qualified by
// its transport.
type PushAddress struct {
	Service entity.PushService
	Token   string
}

// SendResult summarizes one batch dispatch. InvalidTokens lists provider
// tokens the transport reported as dead; callers should delete the matching
// device-token rows.
type SendResult struct {
	Sent          int
	Failed        int
	InvalidTokens []string
}

// NotificationSender delivers a rendered message to a set of device tokens
// and reports per-token success or failure. A transport-level error means
// nothing in the batch was delivered.
type NotificationSender interface {
	Send(ctx context.Context, addrs []PushAddress, msg entity.PushMessage, data map[string]string) (*SendResult, error)
}
