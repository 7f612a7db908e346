package model

import "time"

// SubscriptionModel is the GORM-specific struct for the 'subscriptions'
// table. The (user_id, guest_id, object_type, object_id) uniqueness is
// enforced by two partial unique indexes in the schema, one per owner
// variant, since NULLs compare distinct in PostgreSQL.
type SubscriptionModel struct {
	ID         int64   `gorm:"primaryKey;autoIncrement"`
	UserID     *int64  `gorm:"index"`
	GuestID    *string `gorm:"type:text;index"`
	ObjectType string  `gorm:"type:varchar(64);not null;index:idx_subscriptions_object"`
	ObjectID   int64   `gorm:"not null;index:idx_subscriptions_object"`
	CreatedAt  time.Time
}

// TableName explicitly sets the table name for GORM.
func (SubscriptionModel) TableName() string {
	return "subscriptions"
}
