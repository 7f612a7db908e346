// Package usecase defines the application-layer interfaces.
package usecase

import (
	"context"

	"beacon/internal/domain/entity"

	"github.com/google/uuid"
)

// TokenRegistration carries the client-supplied fields of a registration
// request. UUID is optional; when zero the store assigns one. A supplied
// UUID only takes effect on insert, an existing row keeps its id.
type TokenRegistration struct {
	Service entity.PushService
	Token   string
	UUID    uuid.UUID
}

// TokenUsecase defines the interface for device-token management use cases
type TokenUsecase interface {
	// RegisterToken registers a device token for owner, or rebinds the
	// existing row when the (service, token) pair is already known. The
	// returned UUID is stable across re-registrations.
	RegisterToken(ctx context.Context, owner entity.Identity, registration *TokenRegistration) (uuid.UUID, error)

	// DeleteToken removes the token identified by id when owner holds it.
	// Deleting an absent or foreign token is a silent no-op.
	DeleteToken(ctx context.Context, owner entity.Identity, id uuid.UUID) error
}
