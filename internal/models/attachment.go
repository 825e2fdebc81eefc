package models

import "time"

// AttachmentType distinguishes images from documents.
type AttachmentType string

const (
	AttachmentImage    AttachmentType = "IMAGE"
	AttachmentDocument AttachmentType = "DOCUMENT"
)

// Attachment stores metadata for an uploaded file. Business entities hold
// weak references (id arrays); deleting an attachment never cascades.
type Attachment struct {
	ID           string         `db:"id" json:"id"`
	Path         string         `db:"path" json:"path"`
	FileType     AttachmentType `db:"file_type" json:"file_type"`
	FileSize     int64          `db:"file_size" json:"file_size"`
	OriginalName string         `db:"original_name" json:"original_name"`
	UploadedBy   string         `db:"uploaded_by" json:"uploaded_by"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}
