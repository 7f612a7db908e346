package postgres

import (
	"beacon/internal/domain/entity"
)

// ownerColumns splits an identity into the nullable owner columns used by
// the device_tokens and subscriptions tables. Exactly one result is non-nil
// for a valid identity.
func ownerColumns(owner entity.Identity) (userID *int64, guestID *string) {
	if id, ok := owner.UserID(); ok {
		return &id, nil
	}
	if token, ok := owner.GuestID(); ok {
		return nil, &token
	}

	return nil, nil
}

// ownerFromColumns rebuilds an identity from the nullable owner columns.
func ownerFromColumns(userID *int64, guestID *string) entity.Identity {
	if userID != nil {
		return entity.UserIdentity(*userID)
	}
	if guestID != nil {
		return entity.GuestIdentity(*guestID)
	}

	return entity.Identity{}
}

// ownerCondition returns a GORM where-fragment matching rows owned by the
// given identity.
func ownerCondition(owner entity.Identity) (query string, args []any) {
	if id, ok := owner.UserID(); ok {
		return "user_id = ?", []any{id}
	}
	if token, ok := owner.GuestID(); ok {
		return "guest_id = ?", []any{token}
	}

	// An invalid identity matches nothing.
	return "1 = 0", nil
}
