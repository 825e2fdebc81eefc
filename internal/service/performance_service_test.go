package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/grid-mediation-api/internal/dto"
	"github.com/noah-isme/grid-mediation-api/internal/models"
	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
)

type mockPerformanceRepo struct {
	scores     map[string]*models.PerformanceScore // keyed mediator|period
	lastFilter models.PerformanceFilter
}

func perfKey(mediatorID, period string) string {
	return mediatorID + "|" + period
}

func (m *mockPerformanceRepo) Upsert(ctx context.Context, score *models.PerformanceScore) error {
	if m.scores == nil {
		m.scores = make(map[string]*models.PerformanceScore)
	}
	m.scores[perfKey(score.MediatorID, score.Period)] = score
	return nil
}

func (m *mockPerformanceRepo) List(ctx context.Context, filter models.PerformanceFilter) ([]models.PerformanceScore, int, error) {
	m.lastFilter = filter
	var out []models.PerformanceScore
	for _, score := range m.scores {
		if filter.MediatorID != "" && score.MediatorID != filter.MediatorID {
			continue
		}
		out = append(out, *score)
	}
	return out, len(out), nil
}

func (m *mockPerformanceRepo) Summary(ctx context.Context, mediatorID string) (*models.PerformanceSummary, error) {
	avg := 88.5
	max, min := 95, 80
	return &models.PerformanceSummary{AvgScore: &avg, MaxScore: &max, MinScore: &min}, nil
}

type mockPerformanceUsers struct {
	users map[string]*models.User
}

func (m *mockPerformanceUsers) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func newPerformanceFixture() (*PerformanceService, *mockPerformanceRepo, *mockPerformanceUsers) {
	repo := &mockPerformanceRepo{}
	users := &mockPerformanceUsers{users: map[string]*models.User{
		"admin":    {ID: "admin", Role: models.RoleAdmin, Active: true},
		"manager":  {ID: "manager", Role: models.RoleGridManager, GridID: strPtr("grid-a"), Active: true},
		"mediator": {ID: "mediator", Name: "Li", Role: models.RoleMediator, GridID: strPtr("grid-a"), Active: true},
		"outsider": {ID: "outsider", Role: models.RoleMediator, GridID: strPtr("grid-b"), Active: true},
	}}
	svc := NewPerformanceService(repo, users, validator.New(), zap.NewNop())
	return svc, repo, users
}

func TestScoreMediatorByOwnManager(t *testing.T) {
	svc, repo, users := newPerformanceFixture()

	score, err := svc.Score(context.Background(), users.users["manager"], dto.ScoreMediatorRequest{
		MediatorID: "mediator", Score: 92, Period: "2026-01", Comment: "steady caseload",
	})
	require.NoError(t, err)
	assert.Equal(t, "manager", score.ScorerID)
	assert.Contains(t, repo.scores, perfKey("mediator", "2026-01"))
}

func TestScoreMediatorOutsideGrid(t *testing.T) {
	svc, _, users := newPerformanceFixture()

	_, err := svc.Score(context.Background(), users.users["manager"], dto.ScoreMediatorRequest{
		MediatorID: "outsider", Score: 70, Period: "2026-01",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestScoreByMediatorForbidden(t *testing.T) {
	svc, _, users := newPerformanceFixture()

	_, err := svc.Score(context.Background(), users.users["mediator"], dto.ScoreMediatorRequest{
		MediatorID: "mediator", Score: 100, Period: "2026-01",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestScoreRejectsBadPeriod(t *testing.T) {
	svc, _, users := newPerformanceFixture()

	for _, period := range []string{"2026-13", "2026/01", "202601", "2026-1"} {
		_, err := svc.Score(context.Background(), users.users["admin"], dto.ScoreMediatorRequest{
			MediatorID: "mediator", Score: 80, Period: period,
		})
		require.Error(t, err, "period %q", period)
		assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	}
}

func TestScoreRejectsNonMediatorTarget(t *testing.T) {
	svc, _, users := newPerformanceFixture()

	_, err := svc.Score(context.Background(), users.users["admin"], dto.ScoreMediatorRequest{
		MediatorID: "manager", Score: 80, Period: "2026-01",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScoreSamePeriodReplaces(t *testing.T) {
	svc, repo, users := newPerformanceFixture()

	_, err := svc.Score(context.Background(), users.users["admin"], dto.ScoreMediatorRequest{
		MediatorID: "mediator", Score: 70, Period: "2026-01",
	})
	require.NoError(t, err)
	_, err = svc.Score(context.Background(), users.users["admin"], dto.ScoreMediatorRequest{
		MediatorID: "mediator", Score: 95, Period: "2026-01",
	})
	require.NoError(t, err)

	require.Len(t, repo.scores, 1)
	assert.Equal(t, 95, repo.scores[perfKey("mediator", "2026-01")].Score)
}

func TestListScopesToMediatorSelf(t *testing.T) {
	svc, repo, users := newPerformanceFixture()

	_, _, err := svc.List(context.Background(), users.users["mediator"], models.PerformanceFilter{MediatorID: "outsider"})
	require.NoError(t, err)
	assert.Equal(t, "mediator", repo.lastFilter.MediatorID)
}

func TestListScopesToManagerGrid(t *testing.T) {
	svc, repo, users := newPerformanceFixture()

	_, _, err := svc.List(context.Background(), users.users["manager"], models.PerformanceFilter{})
	require.NoError(t, err)
	assert.Equal(t, "grid-a", repo.lastFilter.GridID)
}

func TestHistorySelfOnlyForMediators(t *testing.T) {
	svc, _, users := newPerformanceFixture()

	_, err := svc.History(context.Background(), users.users["mediator"], "outsider")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestHistoryIncludesSummary(t *testing.T) {
	svc, repo, users := newPerformanceFixture()
	_ = repo.Upsert(context.Background(), &models.PerformanceScore{MediatorID: "mediator", ScorerID: "manager", Score: 88, Period: "2026-01"})

	history, err := svc.History(context.Background(), users.users["mediator"], "mediator")
	require.NoError(t, err)
	assert.Equal(t, "Li", history.Name)
	require.NotNil(t, history.Summary.AvgScore)
	assert.Equal(t, 88.5, *history.Summary.AvgScore)
	require.Len(t, history.Records, 1)
}
