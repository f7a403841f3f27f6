package model

import "time"

// Document mirrors one file in the remote knowledge base. The remote store is
// the source of truth; this list is a best-effort local view.
type Document struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Size       int64     `json:"size"`
	MimeType   string    `json:"mime_type"`
	UploadedAt time.Time `json:"uploaded_at"`
}
