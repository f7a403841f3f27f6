package model

import "time"

// ArchivedMessage is the durable copy of a transcript entry, written
// asynchronously by the persist worker. The live session transcript stays
// authoritative; this table only survives restarts.
type ArchivedMessage struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	MessageID string    `gorm:"size:64;not null" json:"message_id"`
	Role      string    `gorm:"size:16;not null;index" json:"role"`
	Content   string    `gorm:"type:text;not null" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
