package service

import (
	"context"
	"errors"
	"mime/multipart"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/classpoint/classpoint-api/internal/dto"
	"github.com/classpoint/classpoint-api/internal/models"
	"github.com/classpoint/classpoint-api/internal/repository"
	"github.com/classpoint/classpoint-api/internal/timeutil"
)

// FileStore abstracts the upload store so services can be tested with fakes.
type FileStore interface {
	SavePDF(file *multipart.FileHeader) (string, error)
	Resolve(pdfPath string) (string, bool)
	Remove(pdfPath string)
}

// TaskService covers the task lifecycle. Edits that can move point balances
// are delegated to the reconciler.
type TaskService interface {
	List(ctx context.Context, actor Actor) ([]dto.TaskResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.TaskResponse, error)
	Create(ctx context.Context, actor Actor, req dto.TaskCreateRequest, pdf *multipart.FileHeader) (dto.TaskResponse, error)
	Update(ctx context.Context, id uint, req dto.TaskUpdateRequest, editorID uint) error
	Delete(ctx context.Context, id uint) error
	AssignedStudents(ctx context.Context, taskID uint) ([]uint, error)
	ResolveFile(ctx context.Context, actor Actor, taskID uint) (string, error)
}

type taskService struct {
	tasks      repository.TaskRepository
	reconciler PointsReconciler
	files      FileStore
	logger     zerolog.Logger
	now        func() time.Time
}

// NewTaskService constructs the task service.
func NewTaskService(tasks repository.TaskRepository, reconciler PointsReconciler, files FileStore, logger zerolog.Logger, now func() time.Time) TaskService {
	return &taskService{
		tasks:      tasks,
		reconciler: reconciler,
		files:      files,
		logger:     logger.With().Str("component", "task_service").Logger(),
		now:        now,
	}
}

func (s *taskService) List(ctx context.Context, actor Actor) ([]dto.TaskResponse, error) {
	if actor.Role == models.RoleTutor {
		tasks, err := s.tasks.List(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]dto.TaskResponse, 0, len(tasks))
		for _, task := range tasks {
			out = append(out, dto.NewTaskResponse(task, nil))
		}
		return out, nil
	}

	tasks, err := s.tasks.ListAssignedTo(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	submitted, err := s.tasks.SubmittedTaskIDs(ctx, actor.ID)
	if err != nil {
		return nil, err
	}

	out := make([]dto.TaskResponse, 0, len(tasks))
	for _, task := range tasks {
		done := submitted[task.ID]
		out = append(out, dto.NewTaskResponse(task, &done))
	}
	return out, nil
}

func (s *taskService) Get(ctx context.Context, actor Actor, id uint) (dto.TaskResponse, error) {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return dto.TaskResponse{}, err
	}

	if actor.Role == models.RoleStudent {
		assigned, err := s.tasks.AssignmentExists(ctx, id, actor.ID)
		if err != nil {
			return dto.TaskResponse{}, err
		}
		if !assigned {
			return dto.TaskResponse{}, ErrTaskNotAssigned
		}
		submitted, err := s.tasks.SubmittedTaskIDs(ctx, actor.ID)
		if err != nil {
			return dto.TaskResponse{}, err
		}
		done := submitted[id]
		return dto.NewTaskResponse(task, &done), nil
	}
	return dto.NewTaskResponse(task, nil), nil
}

func (s *taskService) Create(ctx context.Context, actor Actor, req dto.TaskCreateRequest, pdf *multipart.FileHeader) (dto.TaskResponse, error) {
	var deadline *time.Time
	if req.Deadline != "" {
		parsed, err := timeutil.Parse(req.Deadline)
		if err != nil {
			return dto.TaskResponse{}, ErrInvalidDeadline
		}
		deadline = &parsed
	}

	if len(req.AssignedStudentIDs) == 0 {
		return dto.TaskResponse{}, ErrNoStudentsSelected
	}
	roster, err := s.tasks.ValidStudentIDs(ctx, req.AssignedStudentIDs)
	if err != nil {
		return dto.TaskResponse{}, err
	}
	if len(roster) != len(uniqueIDs(req.AssignedStudentIDs)) {
		return dto.TaskResponse{}, ErrInvalidStudentList
	}

	var pdfPath *string
	if pdf != nil {
		stored, err := s.files.SavePDF(pdf)
		if err != nil {
			return dto.TaskResponse{}, err
		}
		pdfPath = &stored
	}

	points := 0
	if req.Points != nil {
		points = *req.Points
	}
	task := models.Task{
		Title:       req.Title,
		Description: req.Description,
		Deadline:    deadline,
		Points:      points,
		CreatedBy:   actor.ID,
		PDFPath:     pdfPath,
	}
	if err := s.tasks.CreateWithAssignments(ctx, &task, roster, actor.ID, s.now()); err != nil {
		if pdfPath != nil {
			s.files.Remove(*pdfPath)
		}
		return dto.TaskResponse{}, err
	}

	s.logger.Info().
		Uint("task_id", task.ID).
		Uint("created_by", actor.ID).
		Int("students", len(roster)).
		Msg("task created")
	return dto.NewTaskResponse(task, nil), nil
}

func (s *taskService) Update(ctx context.Context, id uint, req dto.TaskUpdateRequest, editorID uint) error {
	if req.Title == nil && req.Description == nil && req.Deadline == nil &&
		req.Points == nil && req.AssignedStudentIDs == nil {
		return ErrNoUpdates
	}

	edit := TaskEdit{
		Title:       req.Title,
		Description: req.Description,
		Points:      req.Points,
	}
	if req.Deadline != nil && *req.Deadline != "" {
		parsed, err := timeutil.Parse(*req.Deadline)
		if err != nil {
			return ErrInvalidDeadline
		}
		edit.Deadline = &parsed
	}

	if req.AssignedStudentIDs != nil {
		ids := uniqueIDs(*req.AssignedStudentIDs)
		if len(ids) == 0 {
			return ErrNoStudentsSelected
		}
		roster, err := s.tasks.ValidStudentIDs(ctx, ids)
		if err != nil {
			return err
		}
		if len(roster) != len(ids) {
			return ErrInvalidStudentList
		}
		edit.AssignedStudentIDs = roster
	}

	return s.reconciler.ApplyTaskEdit(ctx, id, edit, editorID)
}

func (s *taskService) Delete(ctx context.Context, id uint) error {
	task, err := s.getTask(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tasks.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTaskNotFound
		}
		return err
	}
	if task.PDFPath != nil {
		s.files.Remove(*task.PDFPath)
	}

	s.logger.Info().Uint("task_id", id).Msg("task deleted")
	return nil
}

func (s *taskService) AssignedStudents(ctx context.Context, taskID uint) ([]uint, error) {
	if _, err := s.getTask(ctx, taskID); err != nil {
		return nil, err
	}
	return s.tasks.AssignedStudentIDs(ctx, taskID)
}

func (s *taskService) ResolveFile(ctx context.Context, actor Actor, taskID uint) (string, error) {
	task, err := s.getTask(ctx, taskID)
	if err != nil {
		return "", err
	}
	if actor.Role == models.RoleStudent {
		assigned, err := s.tasks.AssignmentExists(ctx, taskID, actor.ID)
		if err != nil {
			return "", err
		}
		if !assigned {
			return "", ErrTaskNotAssigned
		}
	}
	if task.PDFPath == nil {
		return "", ErrFileNotFound
	}

	resolved, ok := s.files.Resolve(*task.PDFPath)
	if !ok {
		return "", ErrFileNotFound
	}
	return resolved, nil
}

func (s *taskService) getTask(ctx context.Context, id uint) (models.Task, error) {
	task, err := s.tasks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Task{}, ErrTaskNotFound
		}
		return models.Task{}, err
	}
	return task, nil
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]bool, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
