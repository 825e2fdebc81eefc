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
	"github.com/noah-isme/grid-mediation-api/internal/repository"
	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
)

type mockTaskRepo struct {
	maxCode      string
	tasks        map[string]*models.Task
	insertErrs   []error
	inserted     []*models.Task
	assignErr    error
	processErr   error
	completeErr  error
	lastAssign   repository.AssignParams
	lastComplete repository.CompleteParams
	archived     []string
	listFilter   models.TaskFilter
}

func (m *mockTaskRepo) MaxCodeForPrefix(ctx context.Context, prefix string) (string, error) {
	return m.maxCode, nil
}

func (m *mockTaskRepo) Insert(ctx context.Context, task *models.Task) error {
	if len(m.insertErrs) > 0 {
		err := m.insertErrs[0]
		m.insertErrs = m.insertErrs[1:]
		if err != nil {
			return err
		}
	}
	if task.ID == "" {
		task.ID = "task-new"
	}
	copied := *task
	m.inserted = append(m.inserted, &copied)
	if m.tasks == nil {
		m.tasks = make(map[string]*models.Task)
	}
	m.tasks[task.ID] = &copied
	return nil
}

func (m *mockTaskRepo) GetByID(ctx context.Context, id string) (*models.Task, error) {
	task, ok := m.tasks[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *task
	return &copied, nil
}

func (m *mockTaskRepo) List(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error) {
	m.listFilter = filter
	return nil, 0, nil
}

func (m *mockTaskRepo) Assign(ctx context.Context, params repository.AssignParams) error {
	if m.assignErr != nil {
		return m.assignErr
	}
	m.lastAssign = params
	task := m.tasks[params.TaskID]
	task.Status = models.TaskStatusAssigned
	task.AssignedMediatorID = &params.MediatorID
	task.AssignerID = &params.AssignerID
	return nil
}

func (m *mockTaskRepo) Process(ctx context.Context, params repository.ProcessParams) error {
	if m.processErr != nil {
		return m.processErr
	}
	task := m.tasks[params.TaskID]
	task.Status = models.TaskStatusProcessing
	return nil
}

func (m *mockTaskRepo) Complete(ctx context.Context, params repository.CompleteParams) error {
	if m.completeErr != nil {
		return m.completeErr
	}
	m.lastComplete = params
	task := m.tasks[params.TaskID]
	task.Status = models.TaskStatusCompleted
	task.Result = &params.Result
	return nil
}

func (m *mockTaskRepo) UpdateDetails(ctx context.Context, id string, fields map[string]interface{}) error {
	if _, ok := m.tasks[id]; !ok {
		return sql.ErrNoRows
	}
	if name, ok := fields["party_name"].(string); ok {
		m.tasks[id].PartyName = name
	}
	return nil
}

func (m *mockTaskRepo) ArchiveCompleted(ctx context.Context, ids []string) (int, error) {
	count := 0
	for _, id := range ids {
		task, ok := m.tasks[id]
		if !ok || task.Status != models.TaskStatusCompleted {
			continue
		}
		task.Status = models.TaskStatusArchived
		m.archived = append(m.archived, id)
		count++
	}
	return count, nil
}

type mockTypeReader struct {
	types map[string]*models.TaskType
}

func (m *mockTypeReader) GetByID(ctx context.Context, id string) (*models.TaskType, error) {
	taskType, ok := m.types[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return taskType, nil
}

type mockUserReader struct {
	users  map[string]*models.User
	audits []*models.AuditLog
}

func (m *mockUserReader) FindByID(ctx context.Context, id string) (*models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

func (m *mockUserReader) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	m.audits = append(m.audits, log)
	return nil
}

type mockResolver struct {
	attachments map[string]models.Attachment
}

func (m *mockResolver) FindByIDs(ctx context.Context, ids []string) ([]models.Attachment, error) {
	var found []models.Attachment
	for _, id := range ids {
		if att, ok := m.attachments[id]; ok {
			found = append(found, att)
		}
	}
	return found, nil
}

func newTaskFixture() (*TaskService, *mockTaskRepo, *mockUserReader) {
	gridA := strPtr("grid-a")
	users := &mockUserReader{users: map[string]*models.User{
		"admin":    {ID: "admin", Role: models.RoleAdmin, Active: true},
		"manager":  {ID: "manager", Role: models.RoleGridManager, GridID: gridA, Active: true},
		"managerB": {ID: "managerB", Role: models.RoleGridManager, GridID: strPtr("grid-b"), Active: true},
		"mediator": {ID: "mediator", Role: models.RoleMediator, GridID: gridA, Active: true},
		"assignee": {ID: "assignee", Role: models.RoleMediator, GridID: gridA, Active: true},
		"outsider": {ID: "outsider", Role: models.RoleMediator, GridID: strPtr("grid-b"), Active: true},
		"gridless": {ID: "gridless", Role: models.RoleMediator, Active: true},
	}}
	types := &mockTypeReader{types: map[string]*models.TaskType{
		"type-dispute": {ID: "type-dispute", Name: "Neighbor Dispute", Active: true},
		"type-closed":  {ID: "type-closed", Name: "Retired", Active: false},
	}}
	repo := &mockTaskRepo{tasks: map[string]*models.Task{}}
	resolver := &mockResolver{attachments: map[string]models.Attachment{}}

	svc := NewTaskService(repo, types, users, resolver, NewTaskCodeGenerator(repo), nil, validator.New(), zap.NewNop(), 3)
	return svc, repo, users
}

func seedTask(repo *mockTaskRepo, id string, status models.TaskStatus) *models.Task {
	task := &models.Task{
		ID:         id,
		Code:       "DP202601150001",
		TaskTypeID: "type-dispute",
		Status:     status,
		GridID:     strPtr("grid-a"),
		PartyName:  "Zhang",
		ReporterID: "mediator",
	}
	if status != models.TaskStatusReported {
		task.AssignedMediatorID = strPtr("assignee")
	}
	repo.tasks[id] = task
	return task
}

func assertCode(t *testing.T, err error, want *appErrors.Error) {
	t.Helper()
	require.Error(t, err)
	assert.Equal(t, want.Code, appErrors.FromError(err).Code)
}

func TestCreateTask(t *testing.T) {
	svc, repo, users := newTaskFixture()

	res, err := svc.Create(context.Background(), "mediator", dto.CreateTaskRequest{
		TaskTypeID:  "type-dispute",
		PartyName:   "Zhang",
		Description: "fence line disagreement",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusReported, res.Status)
	assert.Regexp(t, `^DP\d{8}0001$`, res.Code)

	require.Len(t, repo.inserted, 1)
	created := repo.inserted[0]
	assert.Equal(t, "mediator", created.ReporterID)
	require.NotNil(t, created.GridID)
	assert.Equal(t, "grid-a", *created.GridID)

	require.Len(t, users.audits, 1)
	assert.Equal(t, models.AuditActionTaskCreate, users.audits[0].Action)
}

func TestCreateTaskDisabledType(t *testing.T) {
	svc, _, _ := newTaskFixture()

	_, err := svc.Create(context.Background(), "mediator", dto.CreateTaskRequest{
		TaskTypeID:  "type-closed",
		PartyName:   "Zhang",
		Description: "anything",
	})
	assertCode(t, err, appErrors.ErrValidation)
}

func TestCreateTaskRequiresMediatorRole(t *testing.T) {
	svc, repo, _ := newTaskFixture()
	req := dto.CreateTaskRequest{
		TaskTypeID:  "type-dispute",
		PartyName:   "Zhang",
		Description: "fence line disagreement",
	}

	_, err := svc.Create(context.Background(), "admin", req)
	assertCode(t, err, appErrors.ErrForbidden)

	_, err = svc.Create(context.Background(), "manager", req)
	assertCode(t, err, appErrors.ErrForbidden)
	assert.Empty(t, repo.inserted)
}

func TestCreateTaskReporterWithoutGrid(t *testing.T) {
	svc, repo, _ := newTaskFixture()

	_, err := svc.Create(context.Background(), "gridless", dto.CreateTaskRequest{
		TaskTypeID:  "type-dispute",
		PartyName:   "Zhang",
		Description: "fence line disagreement",
	})
	assertCode(t, err, appErrors.ErrValidation)
	assert.Empty(t, repo.inserted)
}

func TestCreateTaskRetriesOnDuplicateCode(t *testing.T) {
	svc, repo, _ := newTaskFixture()
	repo.insertErrs = []error{repository.ErrDuplicateCode, repository.ErrDuplicateCode, nil}

	res, err := svc.Create(context.Background(), "mediator", dto.CreateTaskRequest{
		TaskTypeID:  "type-dispute",
		PartyName:   "Zhang",
		Description: "fence line disagreement",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Code)
	assert.Len(t, repo.inserted, 1)
}

func TestCreateTaskCodeExhausted(t *testing.T) {
	svc, repo, _ := newTaskFixture()
	repo.insertErrs = []error{repository.ErrDuplicateCode, repository.ErrDuplicateCode, repository.ErrDuplicateCode}

	_, err := svc.Create(context.Background(), "mediator", dto.CreateTaskRequest{
		TaskTypeID:  "type-dispute",
		PartyName:   "Zhang",
		Description: "fence line disagreement",
	})
	assertCode(t, err, appErrors.ErrCodeExhausted)
	assert.Empty(t, repo.inserted)
}

func TestGetTaskOutsideScope(t *testing.T) {
	svc, repo, _ := newTaskFixture()
	seedTask(repo, "t1", models.TaskStatusReported)

	// A manager of another grid gets forbidden, not a state or 404 answer.
	_, err := svc.Get(context.Background(), "managerB", "t1")
	assertCode(t, err, appErrors.ErrForbidden)

	_, err = svc.Get(context.Background(), "outsider", "t1")
	assertCode(t, err, appErrors.ErrForbidden)
}

func TestGetTaskNotFound(t *testing.T) {
	svc, _, _ := newTaskFixture()

	_, err := svc.Get(context.Background(), "admin", "missing")
	assertCode(t, err, appErrors.ErrNotFound)
}

func TestAssignTask(t *testing.T) {
	svc, repo, users := newTaskFixture()
	seedTask(repo, "t1", models.TaskStatusReported)

	task, err := svc.Assign(context.Background(), "manager", "t1", dto.AssignTaskRequest{MediatorID: "assignee"})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusAssigned, task.Status)
	assert.Equal(t, "manager", repo.lastAssign.AssignerID)
	require.Len(t, users.audits, 1)
	assert.Equal(t, models.AuditActionTaskAssign, users.audits[0].Action)
}

func TestAssignPermissionBeforeState(t *testing.T) {
	svc, repo, _ := newTaskFixture()
	// Wrong state AND wrong caller: the caller must see forbidden, not the
	// state conflict, or probing would leak lifecycle information.
	seedTask(repo, "t1", models.TaskStatusCompleted)

	_, err := svc.Assign(context.Background(), "managerB", "t1", dto.AssignTaskRequest{MediatorID: "assignee"})
	assertCode(t, err, appErrors.ErrForbidden)
}

func TestAssignWrongState(t *testing.T) {
	svc, repo, _ := newTaskFixture()
	seedTask(repo, "t1", models.TaskStatusProcessing)

	_, err := svc.Assign(context.Background(), "manager", "t1", dto.AssignTaskRequest{MediatorID: "assignee"})
	assertCode(t, err, appErrors.ErrInvalidState)
}

func TestAssignCrossGridMediator(t *testing.T) {
	svc, repo, _ := newTaskFixture()
	seedTask(repo, "t1", models.TaskStatusReported)

	_, err := svc.Assign(context.Background(), "manager", "t1", dto.AssignTaskRequest{MediatorID: "outsider"})
	assertCode(t, err, appErrors.ErrValidation)
}

func TestAssignUnknownMediator(t *testing.T) {
	svc, repo, _ := newTaskFixture()
	seedTask(repo, "t1", models.TaskStatusReported)

	_, err := svc.Assign(context.Background(), "manager", "t1", dto.AssignTaskRequest{MediatorID: "ghost"})
	assertCode(t, err, appErrors.ErrNotFound)
}

func TestAssignTaskWithoutGridBinding(t *testing.T) {
	svc, repo, _ := newTaskFixture()
	task := seedTask(repo, "t1", models.TaskStatusReported)
	task.GridID = nil

	_, err := svc.Assign(context.Background(), "admin", "t1", dto.AssignTaskRequest{MediatorID: "assignee"})
	assertCode(t, err, appErrors.ErrValidation)
}

func TestAssignLostRace(t *testing.T) {
	svc, repo, _ := newTaskFixture()
	seedTask(repo, "t1", models.TaskStatusReported)
	repo.assignErr = sql.ErrNoRows

	_, err := svc.Assign(context.Background(), "manager", "t1", dto.AssignTaskRequest{MediatorID: "assignee"})
	assertCode(t, err, appErrors.ErrInvalidState)
}

func TestProcessTask(t *testing.T) {
	svc, repo, _ := newTaskFixture()
	seedTask(repo, "t1", models.TaskStatusAssigned)

	task, err := svc.Process(context.Background(), "assignee", "t1", dto.ProcessTaskRequest{
		HandleMethod: models.HandleMethodOnsite,
		Participants: "both parties",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusProcessing, task.Status)
}

func TestProcessByNonAssignee(t *testing.T) {
	svc, repo, _ := newTaskFixture()
	seedTask(repo, "t1", models.TaskStatusAssigned)

	_, err := svc.Process(context.Background(), "mediator", "t1", dto.ProcessTaskRequest{HandleMethod: models.HandleMethodOnline})
	assertCode(t, err, appErrors.ErrForbidden)

	// Managers do not act on processing stages either.
	_, err = svc.Process(context.Background(), "manager", "t1", dto.ProcessTaskRequest{HandleMethod: models.HandleMethodOnline})
	assertCode(t, err, appErrors.ErrForbidden)
}

func TestCompleteTask(t *testing.T) {
	svc, repo, _ := newTaskFixture()
	seedTask(repo, "t1", models.TaskStatusProcessing)

	task, err := svc.Complete(context.Background(), "assignee", "t1", dto.CompleteTaskRequest{
		Result:       models.ResultSuccess,
		ResultDetail: "agreement signed",
	})
	require.NoError(t, err)
	assert.Equal(t, models.TaskStatusCompleted, task.Status)
	require.NotNil(t, task.Result)
	assert.Equal(t, models.ResultSuccess, *task.Result)
}

func TestCompleteWrongState(t *testing.T) {
	svc, repo, _ := newTaskFixture()
	seedTask(repo, "t1", models.TaskStatusAssigned)

	_, err := svc.Complete(context.Background(), "assignee", "t1", dto.CompleteTaskRequest{Result: models.ResultFailure})
	assertCode(t, err, appErrors.ErrInvalidState)
}

func TestArchiveRequiresAdmin(t *testing.T) {
	svc, repo, _ := newTaskFixture()
	seedTask(repo, "t1", models.TaskStatusCompleted)

	_, err := svc.Archive(context.Background(), "manager", dto.ArchiveTasksRequest{TaskIDs: []string{"t1"}})
	assertCode(t, err, appErrors.ErrForbidden)
}

func TestArchiveSkipsUnfinished(t *testing.T) {
	svc, repo, users := newTaskFixture()
	seedTask(repo, "t1", models.TaskStatusCompleted)
	seedTask(repo, "t2", models.TaskStatusProcessing)

	res, err := svc.Archive(context.Background(), "admin", dto.ArchiveTasksRequest{TaskIDs: []string{"t1", "t2"}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Archived)
	assert.Equal(t, []string{"t1"}, repo.archived)
	assert.Equal(t, models.TaskStatusProcessing, repo.tasks["t2"].Status)

	// The audit row names what was requested and how much actually flipped.
	require.Len(t, users.audits, 1)
	assert.Equal(t, models.AuditActionTaskArchive, users.audits[0].Action)
	assert.Contains(t, string(users.audits[0].NewValues), "t1")
	assert.Contains(t, string(users.audits[0].NewValues), `"archived":1`)
}

func TestListScopesMediator(t *testing.T) {
	svc, repo, _ := newTaskFixture()

	_, _, err := svc.List(context.Background(), "mediator", models.TaskFilter{})
	require.NoError(t, err)
	assert.Equal(t, "mediator", repo.listFilter.VisibleToMediator)
	assert.True(t, repo.listFilter.ExcludeArchived)
}

func TestGetTaskResolvesAttachmentsDroppingDangling(t *testing.T) {
	svc, repo, _ := newTaskFixture()
	task := seedTask(repo, "t1", models.TaskStatusReported)
	task.ReportImageIDs = []string{"a1", "gone", "a2"}

	resolver := &mockResolver{attachments: map[string]models.Attachment{
		"a1": {ID: "a1", Path: "2026/01/a1.jpg", FileType: models.AttachmentImage, OriginalName: "front.jpg"},
		"a2": {ID: "a2", Path: "2026/01/a2.jpg", FileType: models.AttachmentImage, OriginalName: "back.jpg"},
	}}
	svc.attachments = resolver

	detail, err := svc.Get(context.Background(), "admin", "t1")
	require.NoError(t, err)
	require.Len(t, detail.ReportImages, 2)
	assert.Equal(t, "a1", detail.ReportImages[0].ID)
	assert.Equal(t, "a2", detail.ReportImages[1].ID)
	assert.Equal(t, "/uploads/2026/01/a1.jpg", detail.ReportImages[0].URL)
}
