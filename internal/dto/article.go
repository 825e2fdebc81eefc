package dto

// CreateArticleRequest drafts a new content item.
type CreateArticleRequest struct {
	Title             string  `json:"title" validate:"required"`
	Category          string  `json:"category" validate:"required"`
	Summary           string  `json:"summary"`
	Body              string  `json:"body" validate:"required"`
	CoverAttachmentID *string `json:"cover_attachment_id"`
}

// UpdateArticleRequest mutates a draft or archived article.
type UpdateArticleRequest struct {
	Title             *string `json:"title"`
	Category          *string `json:"category"`
	Summary           *string `json:"summary"`
	Body              *string `json:"body"`
	CoverAttachmentID *string `json:"cover_attachment_id"`
}
