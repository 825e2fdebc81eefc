package dto

import (
	"time"

	"github.com/noah-isme/grid-mediation-api/internal/models"
)

// AttachmentURL is a tokenized download link with its expiry.
type AttachmentURL struct {
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expires_at"`
}

// AttachmentInfo is the resolved view of a weak attachment reference.
type AttachmentInfo struct {
	ID           string                `json:"id"`
	URL          string                `json:"url"`
	FileType     models.AttachmentType `json:"file_type"`
	FileSize     int64                 `json:"file_size"`
	OriginalName string                `json:"original_name"`
}
