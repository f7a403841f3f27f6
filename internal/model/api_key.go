package model

import "time"

type APIKey struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	ServiceName string     `gorm:"size:64;not null" json:"service_name"`
	Key         string     `gorm:"size:256;not null" json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at"`
}
