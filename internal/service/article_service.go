package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/grid-mediation-api/internal/dto"
	"github.com/noah-isme/grid-mediation-api/internal/models"
	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
)

type articleRepository interface {
	Create(ctx context.Context, article *models.Article) error
	GetByID(ctx context.Context, id string) (*models.Article, error)
	List(ctx context.Context, filter models.ArticleFilter) ([]models.Article, int, error)
	Update(ctx context.Context, id string, fields map[string]interface{}) error
	IncrementViewCount(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
}

// ArticleService manages published content: legal knowledge, notices and
// announcements. Drafting and publishing are manager actions; everyone
// authenticated reads published items.
type ArticleService struct {
	repo      articleRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewArticleService constructs an ArticleService instance.
func NewArticleService(repo articleRepository, validate *validator.Validate, logger *zap.Logger) *ArticleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &ArticleService{repo: repo, validator: validate, logger: logger}
}

// Create drafts a new article.
func (s *ArticleService) Create(ctx context.Context, authorID string, req dto.CreateArticleRequest) (*models.Article, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid article payload")
	}

	article := &models.Article{
		Title:             req.Title,
		Category:          req.Category,
		Summary:           optionalString(req.Summary),
		Body:              req.Body,
		CoverAttachmentID: req.CoverAttachmentID,
		Status:            models.ArticleStatusDraft,
		AuthorID:          authorID,
	}
	if err := s.repo.Create(ctx, article); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create article")
	}
	return article, nil
}

// Get returns one article, bumping the view counter for published items.
// Drafts are visible to managers only.
func (s *ArticleService) Get(ctx context.Context, actor *models.User, id string) (*models.Article, error) {
	article, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.Status != models.ArticleStatusPublished && !isContentManager(actor) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "article is not published")
	}
	if article.Status == models.ArticleStatusPublished {
		if err := s.repo.IncrementViewCount(ctx, id); err != nil {
			s.logger.Warn("failed to bump article view count", zap.Error(err))
		}
		article.ViewCount++
	}
	return article, nil
}

// List returns articles. Non-managers see published items only.
func (s *ArticleService) List(ctx context.Context, actor *models.User, filter models.ArticleFilter) ([]models.Article, int, error) {
	if !isContentManager(actor) {
		published := models.ArticleStatusPublished
		filter.Status = &published
	}
	articles, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list articles")
	}
	return articles, total, nil
}

// Update mutates a draft or archived article. Published items must be
// archived before editing.
func (s *ArticleService) Update(ctx context.Context, id string, req dto.UpdateArticleRequest) (*models.Article, error) {
	article, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.Status == models.ArticleStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "published articles must be archived before editing")
	}

	fields := map[string]interface{}{}
	if req.Title != nil {
		fields["title"] = *req.Title
	}
	if req.Category != nil {
		fields["category"] = *req.Category
	}
	if req.Summary != nil {
		fields["summary"] = *req.Summary
	}
	if req.Body != nil {
		fields["body"] = *req.Body
	}
	if req.CoverAttachmentID != nil {
		fields["cover_attachment_id"] = *req.CoverAttachmentID
	}
	if len(fields) > 0 {
		if err := s.repo.Update(ctx, id, fields); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update article")
		}
	}
	return s.load(ctx, id)
}

// Publish flips a draft to PUBLISHED and stamps the publication time.
func (s *ArticleService) Publish(ctx context.Context, id string) (*models.Article, error) {
	article, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.Status == models.ArticleStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "article is already published")
	}

	now := time.Now().UTC()
	fields := map[string]interface{}{
		"status":       models.ArticleStatusPublished,
		"published_at": now,
	}
	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish article")
	}
	return s.load(ctx, id)
}

// Archive pulls a published article out of the public feed.
func (s *ArticleService) Archive(ctx context.Context, id string) (*models.Article, error) {
	article, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if article.Status != models.ArticleStatusPublished {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only published articles can be archived")
	}
	if err := s.repo.Update(ctx, id, map[string]interface{}{"status": models.ArticleStatusArchived}); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive article")
	}
	return s.load(ctx, id)
}

// Delete removes a draft permanently. Published or archived articles are
// kept for the record.
func (s *ArticleService) Delete(ctx context.Context, id string) error {
	article, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if article.Status != models.ArticleStatusDraft {
		return appErrors.Clone(appErrors.ErrInvalidState, "only drafts can be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete article")
	}
	return nil
}

func (s *ArticleService) load(ctx context.Context, id string) (*models.Article, error) {
	article, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "article not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load article")
	}
	return article, nil
}

func isContentManager(actor *models.User) bool {
	return actor.Role == models.RoleAdmin || actor.Role == models.RoleGridManager
}
