// Package entity contains the core business objects of the project.
package entity

import "strconv"

// IdentityKind discriminates the two kinds of principals that can own
// a device token or a subscription.
type IdentityKind uint8

const (
	// IdentityUnknown is the zero value; it never matches any record.
	IdentityUnknown IdentityKind = iota
	// IdentityUser is an authenticated account, keyed by a positive integer id.
	IdentityUser
	// IdentityGuest is an anonymous session, keyed by an opaque token.
	IdentityGuest
)

// Identity is the User-or-Guest principal owning a token or subscription.
// Exactly one variant is set on a valid value; all matching logic dispatches
// on the kind rather than on nullable-column coincidence.
type Identity struct {
	kind    IdentityKind
	userID  int64
	guestID string
}

// UserIdentity returns the identity of an authenticated user account.
func UserIdentity(id int64) Identity {
	return Identity{kind: IdentityUser, userID: id}
}

// GuestIdentity returns the identity of an anonymous guest session.
func GuestIdentity(token string) Identity {
	return Identity{kind: IdentityGuest, guestID: token}
}

// Kind returns the identity variant.
func (i Identity) Kind() IdentityKind {
	return i.kind
}

// IsUser reports whether the identity is a user account.
func (i Identity) IsUser() bool {
	return i.kind == IdentityUser
}

// IsGuest reports whether the identity is a guest session.
func (i Identity) IsGuest() bool {
	return i.kind == IdentityGuest
}

// UserID returns the user id and true when the identity is a user.
func (i Identity) UserID() (int64, bool) {
	if i.kind != IdentityUser {
		return 0, false
	}

	return i.userID, true
}

// GuestID returns the guest token and true when the identity is a guest.
func (i Identity) GuestID() (string, bool) {
	if i.kind != IdentityGuest {
		return "", false
	}

	return i.guestID, true
}

// IsZero reports whether the identity carries no principal at all.
func (i Identity) IsZero() bool {
	return i.kind == IdentityUnknown
}

// Valid reports whether the identity is well formed: a user id must be
// positive and a guest token must be non-empty.
func (i Identity) Valid() bool {
	switch i.kind {
	case IdentityUser:
		return i.userID > 0
	case IdentityGuest:
		return i.guestID != ""
	default:
		return false
	}
}

// Equal reports whether two identities refer to the same principal.
func (i Identity) Equal(other Identity) bool {
	if i.kind != other.kind {
		return false
	}

	switch i.kind {
	case IdentityUser:
		return i.userID == other.userID
	case IdentityGuest:
		return i.guestID == other.guestID
	default:
		return false
	}
}

// String returns a log-friendly representation.
func (i Identity) String() string {
	switch i.kind {
	case IdentityUser:
		return "user:" + strconv.FormatInt(i.userID, 10)
	case IdentityGuest:
		return "guest:" + i.guestID
	default:
		return "unknown"
	}
}
