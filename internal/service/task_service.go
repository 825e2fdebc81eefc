package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/grid-mediation-api/internal/dto"
	"github.com/noah-isme/grid-mediation-api/internal/models"
	"github.com/noah-isme/grid-mediation-api/internal/repository"
	appErrors "github.com/noah-isme/grid-mediation-api/pkg/errors"
	"github.com/noah-isme/grid-mediation-api/pkg/geocode"
)

type taskRepository interface {
	MaxCodeForPrefix(ctx context.Context, prefix string) (string, error)
	Insert(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id string) (*models.Task, error)
	List(ctx context.Context, filter models.TaskFilter) ([]models.Task, int, error)
	Assign(ctx context.Context, params repository.AssignParams) error
	Process(ctx context.Context, params repository.ProcessParams) error
	Complete(ctx context.Context, params repository.CompleteParams) error
	UpdateDetails(ctx context.Context, id string, fields map[string]interface{}) error
	ArchiveCompleted(ctx context.Context, ids []string) (int, error)
}

type taskTypeReader interface {
	GetByID(ctx context.Context, id string) (*models.TaskType, error)
}

type taskUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type attachmentResolver interface {
	FindByIDs(ctx context.Context, ids []string) ([]models.Attachment, error)
}

type reverseGeocoder interface {
	Reverse(ctx context.Context, lat, lng float64) (*geocode.Result, error)
}

// TaskService implements the mediation task lifecycle. Callers are always
// re-read from the store before a decision; claims only carry identity.
type TaskService struct {
	tasks       taskRepository
	types       taskTypeReader
	users       taskUserReader
	attachments attachmentResolver
	codes       *TaskCodeGenerator
	geocoder    reverseGeocoder
	validator   *validator.Validate
	logger      *zap.Logger
	maxRetries  int
}

// NewTaskService constructs a TaskService instance.
func NewTaskService(
	tasks taskRepository,
	types taskTypeReader,
	users taskUserReader,
	attachments attachmentResolver,
	codes *TaskCodeGenerator,
	geocoder reverseGeocoder,
	validate *validator.Validate,
	logger *zap.Logger,
	maxRetries int,
) *TaskService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if maxRetries < 1 {
		maxRetries = 3
	}
	return &TaskService{
		tasks:       tasks,
		types:       types,
		users:       users,
		attachments: attachments,
		codes:       codes,
		geocoder:    geocoder,
		validator:   validate,
		logger:      logger,
		maxRetries:  maxRetries,
	}
}

func (s *TaskService) loadActor(ctx context.Context, actorID string) (*models.User, error) {
	actor, err := s.users.FindByID(ctx, actorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "account no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load caller")
	}
	if !actor.Active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, "account is inactive")
	}
	return actor, nil
}

func (s *TaskService) loadTask(ctx context.Context, taskID string) (*models.Task, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task")
	}
	return task, nil
}

// Create registers a new report and allocates its code. On a code
// collision the whole generate-and-insert cycle repeats with a fresh read
// of the sequence; after the retry budget the request fails rather than
// loop forever.
func (s *TaskService) Create(ctx context.Context, actorID string, req dto.CreateTaskRequest) (*dto.CreateTaskResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid task payload")
	}

	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleMediator {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only mediators report tasks")
	}
	if actor.GridID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "reporter has no grid assignment")
	}

	taskType, err := s.types.GetByID(ctx, req.TaskTypeID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "unknown task type")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load task type")
	}
	if !taskType.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "task type is disabled")
	}

	reportAddress := req.ReportAddress
	if reportAddress == "" && req.ReportLat != nil && req.ReportLng != nil && s.geocoder != nil {
		if result, err := s.geocoder.Reverse(ctx, *req.ReportLat, *req.ReportLng); err != nil {
			s.logger.Warn("reverse geocoding failed", zap.Error(err))
		} else {
			reportAddress = result.Address
		}
	}

	task := &models.Task{
		TaskTypeID:     req.TaskTypeID,
		Status:         models.TaskStatusReported,
		Description:    req.Description,
		Amount:         req.Amount,
		GridID:         actor.GridID,
		PartyName:      req.PartyName,
		PartyPhone:     optionalString(req.PartyPhone),
		PartyAddress:   optionalString(req.PartyAddress),
		ReporterID:     actor.ID,
		ReportedAt:     time.Now().UTC(),
		ReportLng:      req.ReportLng,
		ReportLat:      req.ReportLat,
		ReportAddress:  optionalString(reportAddress),
		ReportImageIDs: pq.StringArray(req.ReportImageIDs),
		ReportFileIDs:  pq.StringArray(req.ReportFileIDs),
	}

	inserted := false
	for attempt := 0; attempt < s.maxRetries; attempt++ {
		code, err := s.codes.Next(ctx, taskType.Name)
		if err != nil {
			return nil, err
		}
		task.Code = code

		err = s.tasks.Insert(ctx, task)
		if err == nil {
			inserted = true
			break
		}
		if errors.Is(err, repository.ErrDuplicateCode) {
			s.logger.Info("task code collision, retrying",
				zap.String("code", code), zap.Int("attempt", attempt+1))
			continue
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create task")
	}
	if !inserted {
		return nil, appErrors.Clone(appErrors.ErrCodeExhausted, "failed to allocate a unique task code")
	}

	s.audit(ctx, actor.ID, models.AuditActionTaskCreate, task.ID, nil)

	return &dto.CreateTaskResponse{
		ID:         task.ID,
		Code:       task.Code,
		Status:     task.Status,
		PartyName:  task.PartyName,
		ReportedAt: task.ReportedAt,
	}, nil
}

// Get returns one task with resolved attachments. Out-of-scope access is
// forbidden regardless of whether the row exists.
func (s *TaskService) Get(ctx context.Context, actorID, taskID string) (*dto.TaskDetail, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !canViewTask(actor, task) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "task is outside your scope")
	}

	detail := &dto.TaskDetail{Task: *task}
	detail.ReportImages = s.resolveAttachments(ctx, task.ReportImageIDs)
	detail.ReportFiles = s.resolveAttachments(ctx, task.ReportFileIDs)
	detail.CompleteImages = s.resolveAttachments(ctx, task.CompleteImageIDs)
	detail.CompleteFiles = s.resolveAttachments(ctx, task.CompleteFileIDs)
	return detail, nil
}

// List returns tasks narrowed to the caller's scope.
func (s *TaskService) List(ctx context.Context, actorID string, filter models.TaskFilter) ([]models.Task, int, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, 0, err
	}
	scopeTaskFilter(actor, &filter)
	tasks, total, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tasks")
	}
	return tasks, total, nil
}

// MyReports lists tasks the caller reported.
func (s *TaskService) MyReports(ctx context.Context, actorID string, filter models.TaskFilter) ([]models.Task, int, error) {
	if _, err := s.loadActor(ctx, actorID); err != nil {
		return nil, 0, err
	}
	filter.ReporterID = actorID
	tasks, total, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list reported tasks")
	}
	return tasks, total, nil
}

// MyAssignments lists open tasks assigned to the caller.
func (s *TaskService) MyAssignments(ctx context.Context, actorID string, filter models.TaskFilter) ([]models.Task, int, error) {
	if _, err := s.loadActor(ctx, actorID); err != nil {
		return nil, 0, err
	}
	filter.AssignedMediatorID = actorID
	if len(filter.Statuses) == 0 && filter.Status == nil {
		filter.Statuses = []models.TaskStatus{models.TaskStatusAssigned, models.TaskStatusProcessing}
	}
	tasks, total, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignments")
	}
	return tasks, total, nil
}

// MyHistory lists the caller's finished assignments.
func (s *TaskService) MyHistory(ctx context.Context, actorID string, filter models.TaskFilter) ([]models.Task, int, error) {
	if _, err := s.loadActor(ctx, actorID); err != nil {
		return nil, 0, err
	}
	filter.AssignedMediatorID = actorID
	filter.Statuses = []models.TaskStatus{models.TaskStatusCompleted, models.TaskStatusArchived}
	tasks, total, err := s.tasks.List(ctx, filter)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list history")
	}
	return tasks, total, nil
}

// Assign hands a reported task to a mediator in the same grid. Permission
// is decided before state so a forbidden caller learns nothing about the
// task's current stage.
func (s *TaskService) Assign(ctx context.Context, actorID, taskID string, req dto.AssignTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}

	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !canManageTask(actor, task) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "task is outside your scope")
	}
	if task.Status != models.TaskStatusReported {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only reported tasks can be assigned")
	}
	if task.GridID == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "task has no grid binding")
	}

	mediator, err := s.users.FindByID(ctx, req.MediatorID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "mediator not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load mediator")
	}
	if mediator.Role != models.RoleMediator || !mediator.Active {
		return nil, appErrors.Clone(appErrors.ErrValidation, "assignee must be an active mediator")
	}
	if mediator.GridID == nil || *mediator.GridID != *task.GridID {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mediator belongs to a different grid")
	}

	err = s.tasks.Assign(ctx, repository.AssignParams{
		TaskID:     task.ID,
		MediatorID: mediator.ID,
		AssignerID: actor.ID,
		AssignedAt: time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "task already left the reported state")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to assign task")
	}

	s.audit(ctx, actor.ID, models.AuditActionTaskAssign, task.ID, nil)
	return s.loadTask(ctx, task.ID)
}

// Process records the assigned mediator's progress submission and moves
// the task to PROCESSING.
func (s *TaskService) Process(ctx context.Context, actorID, taskID string, req dto.ProcessTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid progress payload")
	}

	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !canProcessTask(actor, task) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "task is not assigned to you")
	}
	if task.Status != models.TaskStatusAssigned {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only assigned tasks accept progress")
	}

	err = s.tasks.Process(ctx, repository.ProcessParams{
		TaskID:       task.ID,
		MediatorID:   actor.ID,
		HandleMethod: req.HandleMethod,
		Participants: optionalString(req.Participants),
		ExpectedPlan: optionalString(req.ExpectedPlan),
		SubmittedAt:  time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "task already left the assigned state")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to submit progress")
	}

	s.audit(ctx, actor.ID, models.AuditActionTaskProcess, task.ID, nil)
	return s.loadTask(ctx, task.ID)
}

// Complete records the outcome and moves the task to COMPLETED. The
// completion address is geocoded when coordinates arrive without one.
func (s *TaskService) Complete(ctx context.Context, actorID, taskID string, req dto.CompleteTaskRequest) (*models.Task, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid completion payload")
	}

	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !canProcessTask(actor, task) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "task is not assigned to you")
	}
	if task.Status != models.TaskStatusProcessing {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "only processing tasks can be completed")
	}

	completeAddress := req.CompleteAddress
	if completeAddress == "" && req.CompleteLat != nil && req.CompleteLng != nil && s.geocoder != nil {
		if result, err := s.geocoder.Reverse(ctx, *req.CompleteLat, *req.CompleteLng); err != nil {
			s.logger.Warn("reverse geocoding failed", zap.Error(err))
		} else {
			completeAddress = result.Address
		}
	}

	err = s.tasks.Complete(ctx, repository.CompleteParams{
		TaskID:             task.ID,
		MediatorID:         actor.ID,
		Result:             req.Result,
		ResultDetail:       optionalString(req.ResultDetail),
		ProcessDescription: optionalString(req.ProcessDescription),
		CompleteLng:        req.CompleteLng,
		CompleteLat:        req.CompleteLat,
		CompleteAddress:    optionalString(completeAddress),
		CompleteImageIDs:   pq.StringArray(req.CompleteImageIDs),
		CompleteFileIDs:    pq.StringArray(req.CompleteFileIDs),
		CompletedAt:        time.Now().UTC(),
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidState, "task already left the processing state")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete task")
	}

	s.audit(ctx, actor.ID, models.AuditActionTaskComplete, task.ID, nil)
	return s.loadTask(ctx, task.ID)
}

// Update corrects party and report details without touching lifecycle
// fields. Archived tasks are immutable.
func (s *TaskService) Update(ctx context.Context, actorID, taskID string, req dto.UpdateTaskRequest) (*models.Task, error) {
	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	task, err := s.loadTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if !canManageTask(actor, task) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "task is outside your scope")
	}
	if task.Status == models.TaskStatusArchived {
		return nil, appErrors.Clone(appErrors.ErrInvalidState, "archived tasks are immutable")
	}

	fields := map[string]interface{}{}
	if req.PartyName != nil {
		fields["party_name"] = *req.PartyName
	}
	if req.PartyPhone != nil {
		fields["party_phone"] = *req.PartyPhone
	}
	if req.PartyAddress != nil {
		fields["party_address"] = *req.PartyAddress
	}
	if req.Description != nil {
		fields["description"] = *req.Description
	}
	if req.Amount != nil {
		fields["amount"] = *req.Amount
	}
	if len(fields) == 0 {
		return task, nil
	}

	if err := s.tasks.UpdateDetails(ctx, task.ID, fields); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "task not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update task")
	}
	return s.loadTask(ctx, task.ID)
}

// Archive bulk-archives completed tasks. Unfinished or already archived
// ids are skipped silently; the response carries the actual count.
func (s *TaskService) Archive(ctx context.Context, actorID string, req dto.ArchiveTasksRequest) (*dto.ArchiveTasksResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid archive payload")
	}

	actor, err := s.loadActor(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only administrators archive tasks")
	}

	archived, err := s.tasks.ArchiveCompleted(ctx, req.TaskIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to archive tasks")
	}

	payload, _ := json.Marshal(map[string]interface{}{
		"task_ids": req.TaskIDs,
		"archived": archived,
	})
	s.audit(ctx, actor.ID, models.AuditActionTaskArchive, "", payload)
	return &dto.ArchiveTasksResponse{Archived: archived}, nil
}

func (s *TaskService) resolveAttachments(ctx context.Context, ids pq.StringArray) []dto.AttachmentInfo {
	infos := make([]dto.AttachmentInfo, 0, len(ids))
	if len(ids) == 0 || s.attachments == nil {
		return infos
	}
	found, err := s.attachments.FindByIDs(ctx, ids)
	if err != nil {
		s.logger.Warn("attachment resolution failed", zap.Error(err))
		return infos
	}
	byID := make(map[string]models.Attachment, len(found))
	for _, att := range found {
		byID[att.ID] = att
	}
	// Preserve reference order; dangling ids are dropped.
	for _, id := range ids {
		att, ok := byID[id]
		if !ok {
			continue
		}
		infos = append(infos, dto.AttachmentInfo{
			ID:           att.ID,
			URL:          fileURL(att.Path),
			FileType:     att.FileType,
			FileSize:     att.FileSize,
			OriginalName: att.OriginalName,
		})
	}
	return infos
}

func (s *TaskService) audit(ctx context.Context, userID, action, resourceID string, payload []byte) {
	log := &models.AuditLog{
		UserID:   &userID,
		Action:   action,
		Resource: "task",
	}
	if resourceID != "" {
		log.ResourceID = &resourceID
	}
	if payload != nil {
		log.NewValues = payload
	}
	if err := s.users.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record task audit log", zap.Error(err))
	}
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
