package model

import "time"

// QueueEntryModel is the GORM-specific struct for the 'push_queue' table.
type QueueEntryModel struct {
	ID        int64      `gorm:"primaryKey;autoIncrement"`
	// Stored as json, not jsonb: the payload must come back byte-for-byte
	// as enqueued, and jsonb normalizes key order and whitespace.
	Payload []byte `gorm:"type:json;not null"`
	Status    string     `gorm:"type:varchar(16);not null;default:'pending';index"`
	Attempts  int        `gorm:"not null;default:0"`
	CreatedAt time.Time  `gorm:"not null"`
	ClaimedAt *time.Time `gorm:"index"`
}

// TableName explicitly sets the table name for GORM.
func (QueueEntryModel) TableName() string {
	return "push_queue"
}
