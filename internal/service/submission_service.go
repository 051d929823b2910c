package service

import (
	"context"
	"errors"
	"mime/multipart"
	"sort"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/classpoint/classpoint-api/internal/dto"
	"github.com/classpoint/classpoint-api/internal/models"
	"github.com/classpoint/classpoint-api/internal/policy"
	"github.com/classpoint/classpoint-api/internal/repository"
)

// SubmissionService covers submitting work and reading it back. The
// late-penalty ceiling is recomputed on every read and never persisted.
type SubmissionService interface {
	Create(ctx context.Context, actor Actor, taskID uint, text string, pdf *multipart.FileHeader) (dto.SubmissionCreateResult, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error)
	ListMine(ctx context.Context, studentID uint, taskID *uint) ([]dto.SubmissionResponse, error)
	ListForTask(ctx context.Context, taskID uint) ([]dto.SubmissionResponse, error)
	ResolveFile(ctx context.Context, actor Actor, id uint) (string, error)
}

type submissionService struct {
	submissions repository.SubmissionRepository
	tasks       repository.TaskRepository
	files       FileStore
	sanitizer   *bluemonday.Policy
	logger      zerolog.Logger
	now         func() time.Time
}

// NewSubmissionService constructs the submission service.
func NewSubmissionService(
	submissions repository.SubmissionRepository,
	tasks repository.TaskRepository,
	files FileStore,
	logger zerolog.Logger,
	now func() time.Time,
) SubmissionService {
	return &submissionService{
		submissions: submissions,
		tasks:       tasks,
		files:       files,
		sanitizer:   bluemonday.StrictPolicy(),
		logger:      logger.With().Str("component", "submission_service").Logger(),
		now:         now,
	}
}

func (s *submissionService) Create(ctx context.Context, actor Actor, taskID uint, text string, pdf *multipart.FileHeader) (dto.SubmissionCreateResult, error) {
	task, err := s.tasks.GetByID(ctx, taskID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.SubmissionCreateResult{}, ErrTaskNotFound
		}
		return dto.SubmissionCreateResult{}, err
	}

	assigned, err := s.tasks.AssignmentExists(ctx, taskID, actor.ID)
	if err != nil {
		return dto.SubmissionCreateResult{}, err
	}
	if !assigned {
		return dto.SubmissionCreateResult{}, ErrTaskNotAssigned
	}

	text = strings.TrimSpace(s.sanitizer.Sanitize(text))
	if text == "" && pdf == nil {
		return dto.SubmissionCreateResult{}, ErrEmptySubmission
	}

	var pdfPath *string
	if pdf != nil {
		stored, err := s.files.SavePDF(pdf)
		if err != nil {
			return dto.SubmissionCreateResult{}, err
		}
		pdfPath = &stored
	}

	submittedAt := s.now()
	submission := models.Submission{
		TaskID:      taskID,
		StudentID:   actor.ID,
		SubmittedAt: submittedAt,
		TextContent: text,
		PDFPath:     pdfPath,
	}
	if err := s.submissions.Create(ctx, &submission); err != nil {
		if pdfPath != nil {
			s.files.Remove(*pdfPath)
		}
		return dto.SubmissionCreateResult{}, err
	}

	maxPoints, daysLate := policy.Evaluate(task.Points, task.Deadline, submittedAt)
	s.logger.Info().
		Uint("submission_id", submission.ID).
		Uint("task_id", taskID).
		Uint("student_id", actor.ID).
		Int("days_late", daysLate).
		Msg("submission received")

	return dto.SubmissionCreateResult{
		SubmissionID: submission.ID,
		MaxPoints:    maxPoints,
		DaysLate:     daysLate,
	}, nil
}

func (s *submissionService) Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.getSubmission(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	if actor.Role == models.RoleStudent && submission.StudentID != actor.ID {
		return dto.SubmissionResponse{}, ErrForbidden
	}

	siblings, err := s.submissions.ListByStudent(ctx, submission.StudentID, &submission.TaskID)
	if err != nil {
		return dto.SubmissionResponse{}, err
	}
	attempts := attemptNumbers(siblings)
	return s.toResponse(submission, attempts[submission.ID]), nil
}

func (s *submissionService) ListMine(ctx context.Context, studentID uint, taskID *uint) ([]dto.SubmissionResponse, error) {
	submissions, err := s.submissions.ListByStudent(ctx, studentID, taskID)
	if err != nil {
		return nil, err
	}
	return s.toResponses(submissions), nil
}

func (s *submissionService) ListForTask(ctx context.Context, taskID uint) ([]dto.SubmissionResponse, error) {
	if _, err := s.tasks.GetByID(ctx, taskID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTaskNotFound
		}
		return nil, err
	}

	submissions, err := s.submissions.ListByTask(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return s.toResponses(submissions), nil
}

func (s *submissionService) ResolveFile(ctx context.Context, actor Actor, id uint) (string, error) {
	submission, err := s.getSubmission(ctx, id)
	if err != nil {
		return "", err
	}
	if actor.Role == models.RoleStudent && submission.StudentID != actor.ID {
		return "", ErrForbidden
	}
	if submission.PDFPath == nil {
		return "", ErrFileNotFound
	}

	resolved, ok := s.files.Resolve(*submission.PDFPath)
	if !ok {
		return "", ErrFileNotFound
	}
	return resolved, nil
}

func (s *submissionService) getSubmission(ctx context.Context, id uint) (models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Submission{}, ErrSubmissionNotFound
		}
		return models.Submission{}, err
	}
	return submission, nil
}

func (s *submissionService) toResponses(submissions []models.Submission) []dto.SubmissionResponse {
	attempts := attemptNumbers(submissions)
	out := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		out = append(out, s.toResponse(submission, attempts[submission.ID]))
	}
	return out
}

func (s *submissionService) toResponse(submission models.Submission, attempt int) dto.SubmissionResponse {
	maxPoints, daysLate := policy.Evaluate(submission.Task.Points, submission.Task.Deadline, submission.SubmittedAt)
	return dto.NewSubmissionResponse(submission, maxPoints, daysLate, attempt)
}

// attemptNumbers assigns 1-based ordinals per (task, student) pair by
// submission time, earliest first.
func attemptNumbers(submissions []models.Submission) map[uint]int {
	type pair struct{ taskID, studentID uint }

	grouped := make(map[pair][]models.Submission)
	for _, submission := range submissions {
		key := pair{submission.TaskID, submission.StudentID}
		grouped[key] = append(grouped[key], submission)
	}

	attempts := make(map[uint]int, len(submissions))
	for _, group := range grouped {
		sort.Slice(group, func(i, j int) bool {
			if group[i].SubmittedAt.Equal(group[j].SubmittedAt) {
				return group[i].ID < group[j].ID
			}
			return group[i].SubmittedAt.Before(group[j].SubmittedAt)
		})
		for i, submission := range group {
			attempts[submission.ID] = i + 1
		}
	}
	return attempts
}
