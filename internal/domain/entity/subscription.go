// Package entity contains the core business objects of the project.
package entity

import "time"

// Target is a (content-type, content-id) pair identifying notifiable content.
// Targets are transient: they are embedded in queue payloads and used to
// compute recipient sets, never persisted on their own.
type Target struct {
	ObjectType string `json:"object_type"`
	ObjectID   int64  `json:"object_id"`
}

// Valid reports whether the target carries a usable key.
func (t Target) Valid() bool {
	return t.ObjectType != "" && t.ObjectID > 0
}

// Subscription represents an identity following a piece of content.
// (Owner, ObjectType, ObjectID) is unique; subscribing twice is a no-op.
type Subscription struct {
	ID        int64     `json:"-"`
	Owner     Identity  `json:"-"`
	Target    Target    `json:"target"`
	CreatedAt time.Time `json:"created_at"`
}
