package model

import (
	"time"

	"github.com/google/uuid"
)

// DeviceTokenModel is the GORM-specific struct for the 'device_tokens' table.
// Exactly one of UserID/GuestID is set; a CHECK constraint in the schema
// enforces it.
type DeviceTokenModel struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	UUID         uuid.UUID `gorm:"type:uuid;not null;uniqueIndex"`
	UserID       *int64    `gorm:"index"`
	GuestID      *string   `gorm:"type:text;index"`
	Service      string    `gorm:"type:varchar(16);not null;uniqueIndex:idx_device_tokens_service_token"`
	Token        string    `gorm:"type:text;not null;uniqueIndex:idx_device_tokens_service_token"`
	LastActiveAt time.Time `gorm:"not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// TableName explicitly sets the table name for GORM.
func (DeviceTokenModel) TableName() string {
	return "device_tokens"
}
