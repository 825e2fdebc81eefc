package service

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/grid-mediation-api/internal/models"
	"github.com/noah-isme/grid-mediation-api/internal/repository"
	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
	"github.com/noah-isme/grid-mediation-api/pkg/export"
)

type mockStatsRepo struct {
	calls     int
	lastScope repository.StatisticsScope
}

func (m *mockStatsRepo) CountByType(ctx context.Context, scope repository.StatisticsScope) ([]models.TaskTypeCount, error) {
	m.calls++
	m.lastScope = scope
	return []models.TaskTypeCount{{TaskTypeID: "type-1", TypeName: "Neighbor Dispute", Count: 4}}, nil
}

func (m *mockStatsRepo) CountByStatus(ctx context.Context, scope repository.StatisticsScope) ([]models.TaskStatusCount, error) {
	return []models.TaskStatusCount{{Status: models.TaskStatusCompleted, Count: 3}}, nil
}

func (m *mockStatsRepo) CountByGrid(ctx context.Context, scope repository.StatisticsScope) ([]models.GridTaskCount, error) {
	return []models.GridTaskCount{{GridID: "grid-a", GridName: "East District", Total: 4, Completed: 3}}, nil
}

func (m *mockStatsRepo) CountTotal(ctx context.Context, scope repository.StatisticsScope) (int, error) {
	return 4, nil
}

func (m *mockStatsRepo) MonthlyByType(ctx context.Context, periodStart, periodEnd time.Time, gridID string) ([]models.MonthlyTypeRow, error) {
	m.calls++
	return []models.MonthlyTypeRow{
		{TaskTypeID: "type-1", TypeName: "Neighbor Dispute", Total: 4, Resolved: 3, Unresolved: 1},
	}, nil
}

// memoryCache keeps marshalled payloads in a map so the hit path can be
// exercised without redis.
type memoryCache struct {
	entries map[string][]byte
}

func (m *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	payload, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(payload, dest)
}

func (m *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if m.entries == nil {
		m.entries = make(map[string][]byte)
	}
	payload, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = payload
	return nil
}

func (m *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	return nil
}

func newStatisticsFixture() (*StatisticsService, *mockStatsRepo) {
	repo := &mockStatsRepo{}
	cache := NewCacheService(&memoryCache{}, nil, time.Minute, zap.NewNop(), true)
	svc := NewStatisticsService(repo, cache, export.NewCSVExporter(), export.NewPDFExporter(), zap.NewNop(), time.Minute)
	return svc, repo
}

func TestOverviewAdminIncludesGridBreakdown(t *testing.T) {
	svc, _ := newStatisticsFixture()
	admin := &models.User{ID: "admin", Role: models.RoleAdmin}

	stats, err := svc.Overview(context.Background(), admin, "")
	require.NoError(t, err)
	assert.Equal(t, 4, stats.Total)
	require.Len(t, stats.ByGrid, 1)
	assert.Equal(t, "East District", stats.ByGrid[0].GridName)
}

func TestOverviewManagerScopedToOwnGrid(t *testing.T) {
	svc, repo := newStatisticsFixture()
	manager := &models.User{ID: "m", Role: models.RoleGridManager, GridID: strPtr("grid-a")}

	stats, err := svc.Overview(context.Background(), manager, "")
	require.NoError(t, err)
	assert.Equal(t, "grid-a", repo.lastScope.GridID)
	assert.Empty(t, stats.ByGrid)
}

func TestOverviewManagerCannotReadAnotherGrid(t *testing.T) {
	svc, _ := newStatisticsFixture()
	manager := &models.User{ID: "m", Role: models.RoleGridManager, GridID: strPtr("grid-a")}

	_, err := svc.Overview(context.Background(), manager, "grid-b")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestOverviewMediatorForbidden(t *testing.T) {
	svc, _ := newStatisticsFixture()

	_, err := svc.Overview(context.Background(), &models.User{ID: "med", Role: models.RoleMediator}, "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestOverviewServedFromCacheOnRepeat(t *testing.T) {
	svc, repo := newStatisticsFixture()
	manager := &models.User{ID: "m", Role: models.RoleGridManager, GridID: strPtr("grid-a")}

	_, err := svc.Overview(context.Background(), manager, "")
	require.NoError(t, err)
	first := repo.calls

	again, err := svc.Overview(context.Background(), manager, "")
	require.NoError(t, err)
	assert.Equal(t, first, repo.calls)
	assert.Equal(t, 4, again.Total)
}

func TestMonthlyRejectsBadPeriod(t *testing.T) {
	svc, _ := newStatisticsFixture()
	admin := &models.User{ID: "admin", Role: models.RoleAdmin}

	_, err := svc.Monthly(context.Background(), admin, "2026-1", "")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportMonthlyCSV(t *testing.T) {
	svc, _ := newStatisticsFixture()
	admin := &models.User{ID: "admin", Role: models.RoleAdmin}

	payload, contentType, err := svc.ExportMonthly(context.Background(), admin, "2026-01", "", "csv")
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	body := string(payload)
	assert.True(t, strings.HasPrefix(body, "Task Type,Total,Resolved,Unresolved"))
	assert.Contains(t, body, "Neighbor Dispute,4,3,1")
}

func TestExportMonthlyPDF(t *testing.T) {
	svc, _ := newStatisticsFixture()
	admin := &models.User{ID: "admin", Role: models.RoleAdmin}

	payload, contentType, err := svc.ExportMonthly(context.Background(), admin, "2026-01", "", "pdf")
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportMonthlyUnknownFormat(t *testing.T) {
	svc, _ := newStatisticsFixture()
	admin := &models.User{ID: "admin", Role: models.RoleAdmin}

	_, _, err := svc.ExportMonthly(context.Background(), admin, "2026-01", "", "xlsx")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
