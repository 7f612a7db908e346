// Package entity contains the core business objects of the project.
package entity

import (
	"time"

	"github.com/google/uuid"
)

// PushService identifies the push transport a device token belongs to.
type PushService string

const (
	// PushServiceAPNS is the Apple Push Notification service.
	PushServiceAPNS PushService = "apns"
	// PushServiceFCM is Firebase Cloud Messaging.
	PushServiceFCM PushService = "fcm"
	// PushServiceWeb is the Web Push protocol.
	PushServiceWeb PushService = "web"
)

// String returns the string representation of the PushService.
func (s PushService) String() string {
	return string(s)
}

// IsValid checks if the PushService is a supported transport.
func (s PushService) IsValid() bool {
	switch s {
	case PushServiceAPNS, PushServiceFCM, PushServiceWeb:
		return true
	default:
		return false
	}
}

// DeviceToken represents a device registered for push notifications.
// The (Service, Token) pair identifies at most one live record; re-registering
// the same provider token rebinds the owner instead of duplicating the row.
type DeviceToken struct {
	ID           int64       `json:"-"`              // Store-assigned surrogate key.
	UUID         uuid.UUID   `json:"uuid"`           // Client-facing stable identifier, immutable after creation.
	Owner        Identity    `json:"-"`              // The user or guest this device belongs to.
	Service      PushService `json:"service"`        // Push transport the token belongs to.
	Token        string      `json:"token"`          // Opaque provider token.
	LastActiveAt time.Time   `json:"last_active_at"` // Refreshed on every successful use.
	CreatedAt    time.Time   `json:"created_at"`
	UpdatedAt    time.Time   `json:"updated_at"`
}
