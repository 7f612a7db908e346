package service

import "context"

// Content is the subset of a platform entity the notification core needs:
// enough to validate a target and compose a message.
type Content struct {
	Type     string
	ID       int64
	Title    string
	URL      string
	ImageURL string
}

// Actions checked against the content source before a subscription is written.
const (
	ActionRead = "read"
)

// ContentSource is the external collaborator that knows what content exists
// and who may see it. The core calls it only to validate subscription
// requests and to fetch fields when composing a payload; it never depends on
// its internals.
type ContentSource interface {
	// EntityTypes returns the mapping of type tag to canonical type for the
	// fixed content-type vocabulary.
	EntityTypes(ctx context.Context) (map[string]string, error)

	// Content returns the entity for a (type, id) pair, or nil when absent.
	Content(ctx context.Context, typeTag string, id int64) (*Content, error)

	// CurrentUserCan reports whether the current request principal may
	// perform action on the given content.
	CurrentUserCan(ctx context.Context, action, typeTag string, id int64) (bool, error)
}
