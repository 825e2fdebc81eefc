package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/grid-mediation-api/internal/models"
	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
	"github.com/noah-isme/grid-mediation-api/pkg/storage"
)

type mockAttachmentRepo struct {
	items map[string]*models.Attachment
}

func (m *mockAttachmentRepo) Create(ctx context.Context, attachment *models.Attachment) error {
	if attachment.ID == "" {
		attachment.ID = "att-1"
	}
	if m.items == nil {
		m.items = make(map[string]*models.Attachment)
	}
	m.items[attachment.ID] = attachment
	return nil
}

func (m *mockAttachmentRepo) GetByID(ctx context.Context, id string) (*models.Attachment, error) {
	attachment, ok := m.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return attachment, nil
}

func (m *mockAttachmentRepo) FindByIDs(ctx context.Context, ids []string) ([]models.Attachment, error) {
	var found []models.Attachment
	for _, id := range ids {
		if attachment, ok := m.items[id]; ok {
			found = append(found, *attachment)
		}
	}
	return found, nil
}

func (m *mockAttachmentRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

func newAttachmentFixture(t *testing.T) (*AttachmentService, *mockAttachmentRepo) {
	t.Helper()
	store, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	repo := &mockAttachmentRepo{items: make(map[string]*models.Attachment)}
	signer := storage.NewSignedURLSigner("test-secret", time.Hour)
	svc := NewAttachmentService(repo, store, signer, zap.NewNop(), AttachmentConfig{
		MaxFileSizeBytes: 1024,
		AllowedMIMEs:     []string{"image/png", "application/pdf"},
	})
	return svc, repo
}

func TestUploadRejectsOversizedFile(t *testing.T) {
	svc, _ := newAttachmentFixture(t)

	_, err := svc.Upload(context.Background(), "u1", "big.png", "image/png", 2048, bytes.NewReader(nil))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUploadRejectsDisallowedMIME(t *testing.T) {
	svc, _ := newAttachmentFixture(t)

	_, err := svc.Upload(context.Background(), "u1", "run.exe", "application/octet-stream", 10, bytes.NewReader(nil))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestUploadAndOpenRoundTrip(t *testing.T) {
	svc, _ := newAttachmentFixture(t)

	content := []byte("fake png bytes")
	info, err := svc.Upload(context.Background(), "u1", "photo.png", "image/png", int64(len(content)), bytes.NewReader(content))
	require.NoError(t, err)
	require.NotEmpty(t, info.ID)
	assert.Equal(t, models.AttachmentImage, info.FileType)

	meta, file, err := svc.Open(context.Background(), info.ID)
	require.NoError(t, err)
	defer file.Close()

	stored, err := io.ReadAll(file)
	require.NoError(t, err)
	assert.Equal(t, content, stored)
	assert.Equal(t, "photo.png", meta.OriginalName)
}

func TestSignedURLRoundTrip(t *testing.T) {
	svc, _ := newAttachmentFixture(t)

	content := []byte("%PDF-1.4 report")
	info, err := svc.Upload(context.Background(), "u1", "report.pdf", "application/pdf", int64(len(content)), bytes.NewReader(content))
	require.NoError(t, err)

	link, err := svc.SignedURL(context.Background(), info.ID)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(link.URL, "/files/"))
	assert.True(t, link.ExpiresAt.After(time.Now()))

	token := strings.TrimPrefix(link.URL, "/files/")
	meta, file, err := svc.OpenSigned(context.Background(), token)
	require.NoError(t, err)
	defer file.Close()
	assert.Equal(t, "report.pdf", meta.OriginalName)
}

func TestOpenSignedRejectsForgedToken(t *testing.T) {
	svc, _ := newAttachmentFixture(t)

	_, _, err := svc.OpenSigned(context.Background(), "not.a.token")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestDeleteRequiresUploaderOrAdmin(t *testing.T) {
	svc, repo := newAttachmentFixture(t)

	content := []byte("doc")
	info, err := svc.Upload(context.Background(), "u1", "note.pdf", "application/pdf", int64(len(content)), bytes.NewReader(content))
	require.NoError(t, err)

	other := &models.User{ID: "u2", Role: models.RoleMediator, Active: true}
	err = svc.Delete(context.Background(), other, info.ID)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)

	admin := &models.User{ID: "root", Role: models.RoleAdmin, Active: true}
	require.NoError(t, svc.Delete(context.Background(), admin, info.ID))
	_, ok := repo.items[info.ID]
	assert.False(t, ok)
}
