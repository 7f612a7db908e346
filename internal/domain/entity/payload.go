// Package entity contains the core business objects of the project.
package entity

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// PushMessage is the rendered, recipient-independent content of a push
// notification.
type PushMessage struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	Body     string `json:"body"`
	URL      string `json:"url,omitempty"`       // Deep link opened on tap.
	ImageURL string `json:"image_url,omitempty"` // Optional rich-media attachment.
}

// payloadIdentity is the wire form of an Identity inside a queue payload.
type payloadIdentity struct {
	UserID  *int64  `json:"user_id,omitempty"`
	GuestID *string `json:"guest_id,omitempty"`
}

// NotificationPayload is the document stored in the delivery queue.
// Consumers tolerate unknown fields so older workers can process payloads
// written by newer producers.
type NotificationPayload struct {
	Version int              `json:"version"`
	Targets []Target         `json:"targets"`
	Message PushMessage      `json:"message"`
	Exclude *payloadIdentity `json:"exclude,omitempty"`
}

// PayloadVersion is written into every newly produced payload.
const PayloadVersion = 1

// NewNotificationPayload builds a payload for the given targets and message.
// When author is a valid identity it is recorded so its own tokens are
// excluded at delivery time.
func NewNotificationPayload(targets []Target, msg PushMessage, author Identity) *NotificationPayload {
	p := &NotificationPayload{
		Version: PayloadVersion,
		Targets: targets,
		Message: msg,
	}

	if author.Valid() {
		var exclude payloadIdentity
		if id, ok := author.UserID(); ok {
			exclude.UserID = &id
		}
		if token, ok := author.GuestID(); ok {
			exclude.GuestID = &token
		}
		p.Exclude = &exclude
	}

	return p
}

// ExcludeIdentity returns the author identity to suppress, if any.
func (p *NotificationPayload) ExcludeIdentity() *Identity {
	if p.Exclude == nil {
		return nil
	}

	if p.Exclude.UserID != nil {
		id := UserIdentity(*p.Exclude.UserID)

		return &id
	}
	if p.Exclude.GuestID != nil {
		id := GuestIdentity(*p.Exclude.GuestID)

		return &id
	}

	return nil
}

// Encode serializes the payload for storage in the queue.
func (p *NotificationPayload) Encode() (json.RawMessage, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return nil, errors.Wrap(err, "failed to encode notification payload")
	}

	return data, nil
}

// DecodeNotificationPayload parses a stored queue payload. Unknown fields
// are ignored for forward compatibility.
func DecodeNotificationPayload(raw json.RawMessage) (*NotificationPayload, error) {
	var p NotificationPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, errors.Wrap(err, "failed to decode notification payload")
	}
	if len(p.Targets) == 0 {
		return nil, errors.New("notification payload has no targets")
	}

	return &p, nil
}
