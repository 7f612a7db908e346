// Package repository defines the interfaces for the persistence layer.
package repository

import (
	"context"
	"time"

	"beacon/internal/domain/entity"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Domain-specific errors for device-token persistence.
var (
	// ErrTokenNotFound is returned when a device token is not found.
	ErrTokenNotFound = errors.New("device token not found")
	// ErrDuplicateToken is returned when an insert collides with an
	// existing (service, token) pair.
	ErrDuplicateToken = errors.New("device token already exists")
)

// TokenRepository defines the interface for device-token database operations.
// Read operations never fail on "not found"; list lookups return empty results.
type TokenRepository interface {
	// CreateToken persists a new device token.
	CreateToken(ctx context.Context, token *entity.DeviceToken) error

	// FindTokenByProviderToken retrieves the live record for a
	// (service, provider token) pair, or ErrTokenNotFound.
	FindTokenByProviderToken(ctx context.Context, service entity.PushService, token string) (*entity.DeviceToken, error)

	// RebindToken reassigns ownership of an existing token row and
	// refreshes its last-active timestamp.
	RebindToken(ctx context.Context, id int64, owner entity.Identity, lastActiveAt time.Time) error

	// CountTokensByUser returns the number of tokens a user currently holds.
	CountTokensByUser(ctx context.Context, userID int64) (int64, error)

	// DeleteOldestTokenByUser evicts the user's token with the smallest id.
	// Deleting from an empty set is a no-op.
	DeleteOldestTokenByUser(ctx context.Context, userID int64) error

	// DeleteTokenByUUID deletes a token only when it is owned by owner.
	// Absence or ownership mismatch is a no-op; the return value reports
	// whether a row was removed.
	DeleteTokenByUUID(ctx context.Context, id uuid.UUID, owner entity.Identity) (bool, error)

	// DeleteTokensByGuest bulk-deletes all tokens of a guest session and
	// returns the number removed.
	DeleteTokensByGuest(ctx context.Context, guestID string) (int64, error)

	// DeleteTokensByValue removes rows whose provider token is in tokens.
	// Used to clean up tokens the sender reported as invalid.
	DeleteTokensByValue(ctx context.Context, tokens []string) (int64, error)

	// TouchTokens refreshes last_active_at for the given ids. Unknown ids
	// are silently ignored.
	TouchTokens(ctx context.Context, ids []int64, at time.Time) error

	// FindTokensForTargets returns the distinct tokens whose owner holds a
	// subscription to any of the targets, optionally excluding tokens owned
	// by exclude. Matching is by identity equality between token and
	// subscription.
	FindTokensForTargets(ctx context.Context, targets []entity.Target, exclude *entity.Identity) ([]*entity.DeviceToken, error)

	// MigrateGuestTokens reassigns all tokens of a guest to a user. Rows
	// whose (service, token) pair already exists under the user are
	// discarded (the user's row wins). Returns the number reassigned.
	// Must be called on a transaction-bound repository.
	MigrateGuestTokens(ctx context.Context, guestID string, userID int64) (int64, error)
}
