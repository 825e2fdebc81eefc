package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/grid-mediation-api/internal/dto"
	"github.com/noah-isme/grid-mediation-api/internal/models"
	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
	"github.com/noah-isme/grid-mediation-api/pkg/storage"
)

type attachmentRepository interface {
	Create(ctx context.Context, attachment *models.Attachment) error
	GetByID(ctx context.Context, id string) (*models.Attachment, error)
	FindByIDs(ctx context.Context, ids []string) ([]models.Attachment, error)
	Delete(ctx context.Context, id string) error
}

// AttachmentConfig bounds uploads.
type AttachmentConfig struct {
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
}

// AttachmentService stores uploaded files and their metadata. Business
// entities keep only id references; deleting a file never cascades.
type AttachmentService struct {
	repo    attachmentRepository
	storage *storage.LocalStorage
	signer  *storage.SignedURLSigner
	logger  *zap.Logger
	config  AttachmentConfig
}

// NewAttachmentService constructs an AttachmentService instance.
func NewAttachmentService(repo attachmentRepository, store *storage.LocalStorage, signer *storage.SignedURLSigner, logger *zap.Logger, config AttachmentConfig) *AttachmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttachmentService{repo: repo, storage: store, signer: signer, logger: logger, config: config}
}

// Upload validates, persists and registers one uploaded file.
func (s *AttachmentService) Upload(ctx context.Context, actorID, originalName, contentType string, size int64, r io.Reader) (*dto.AttachmentInfo, error) {
	if s.config.MaxFileSizeBytes > 0 && size > s.config.MaxFileSizeBytes {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file exceeds the upload size limit")
	}
	if !s.mimeAllowed(contentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file type is not allowed")
	}

	filename := uuid.NewString() + strings.ToLower(filepath.Ext(originalName))
	relPath, err := s.storage.SaveStream(filename, r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store file")
	}

	attachment := &models.Attachment{
		Path:         relPath,
		FileType:     classifyAttachment(contentType),
		FileSize:     size,
		OriginalName: originalName,
		UploadedBy:   actorID,
	}
	if err := s.repo.Create(ctx, attachment); err != nil {
		if cleanupErr := s.storage.Delete(relPath); cleanupErr != nil {
			s.logger.Warn("failed to remove orphaned upload", zap.Error(cleanupErr))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to register file")
	}

	return &dto.AttachmentInfo{
		ID:           attachment.ID,
		URL:          fileURL(attachment.Path),
		FileType:     attachment.FileType,
		FileSize:     attachment.FileSize,
		OriginalName: attachment.OriginalName,
	}, nil
}

// Open returns the metadata and a read handle for a stored attachment.
func (s *AttachmentService) Open(ctx context.Context, id string) (*models.Attachment, *os.File, error) {
	attachment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachment")
	}
	file, err := s.storage.Open(attachment.Path)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "stored file is missing")
	}
	return attachment, file, nil
}

// SignedURL mints a short-lived tokenized download link so the file can be
// fetched without an Authorization header.
func (s *AttachmentService) SignedURL(ctx context.Context, id string) (*dto.AttachmentURL, error) {
	if s.signer == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "download signing is not configured")
	}

	attachment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachment")
	}

	token, expiresAt, err := s.signer.Generate(attachment.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign download link")
	}

	return &dto.AttachmentURL{
		URL:       "/files/" + token,
		ExpiresAt: expiresAt,
	}, nil
}

// OpenSigned validates a download token and opens the referenced file.
func (s *AttachmentService) OpenSigned(ctx context.Context, token string) (*models.Attachment, *os.File, error) {
	if s.signer == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid download token")
	}
	id, err := s.signer.Parse(token)
	if err != nil {
		return nil, nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired download token")
	}
	return s.Open(ctx, id)
}

// Delete removes an attachment record and its file. Only the uploader or
// an administrator may delete; references held by tasks simply dangle and
// disappear from resolved views.
func (s *AttachmentService) Delete(ctx context.Context, actor *models.User, id string) error {
	attachment, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "attachment not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load attachment")
	}
	if actor.Role != models.RoleAdmin && attachment.UploadedBy != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "attachment belongs to another user")
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete attachment")
	}
	if err := s.storage.Delete(attachment.Path); err != nil {
		s.logger.Warn("failed to remove stored file", zap.Error(err))
	}
	return nil
}

// FindByIDs resolves a batch of ids, dropping those that no longer exist.
func (s *AttachmentService) FindByIDs(ctx context.Context, ids []string) ([]models.Attachment, error) {
	return s.repo.FindByIDs(ctx, ids)
}

func (s *AttachmentService) mimeAllowed(contentType string) bool {
	if len(s.config.AllowedMIMEs) == 0 {
		return true
	}
	for _, allowed := range s.config.AllowedMIMEs {
		if strings.EqualFold(allowed, contentType) {
			return true
		}
	}
	return false
}

func classifyAttachment(contentType string) models.AttachmentType {
	if strings.HasPrefix(contentType, "image/") {
		return models.AttachmentImage
	}
	return models.AttachmentDocument
}

func fileURL(relPath string) string {
	return path.Join("/uploads", filepath.ToSlash(relPath))
}
