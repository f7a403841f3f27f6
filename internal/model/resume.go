package model

import "time"

// Resume is a generated resume document: the rendered file lives in object
// storage under FileKey, the extracted text stays in Content so it can be
// re-rendered.
type Resume struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	JobID     string    `gorm:"size:256;not null" json:"job_id"`
	FileKey   string    `gorm:"size:512;not null" json:"file_key"`
	Content   string    `gorm:"type:text" json:"content"`
	CreatedAt time.Time `json:"created_at"`
}
