package models

import "time"

// ArticleStatus captures publishing workflow states.
type ArticleStatus string

const (
	ArticleStatusDraft     ArticleStatus = "DRAFT"
	ArticleStatusPublished ArticleStatus = "PUBLISHED"
	ArticleStatusArchived  ArticleStatus = "ARCHIVED"
)

// Article is a published content item (legal knowledge, announcements).
type Article struct {
	ID                string        `db:"id" json:"id"`
	Title             string        `db:"title" json:"title"`
	Category          string        `db:"category" json:"category"`
	Summary           *string       `db:"summary" json:"summary,omitempty"`
	Body              string        `db:"body" json:"body"`
	CoverAttachmentID *string       `db:"cover_attachment_id" json:"cover_attachment_id,omitempty"`
	Status            ArticleStatus `db:"status" json:"status"`
	AuthorID          string        `db:"author_id" json:"author_id"`
	PublishedAt       *time.Time    `db:"published_at" json:"published_at,omitempty"`
	ViewCount         int           `db:"view_count" json:"view_count"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `db:"updated_at" json:"updated_at"`

	AuthorName *string `db:"author_name" json:"author_name,omitempty"`
}

// ArticleFilter constrains article listing queries.
type ArticleFilter struct {
	Search   string
	Category string
	Status   *ArticleStatus
	Page     int
	PageSize int
}
