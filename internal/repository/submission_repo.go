package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/classpoint/classpoint-api/internal/models"
)

// SubmissionRepository defines the read and create paths for submissions.
// Award, clamp and delete mutations go through the ledger repository so
// balance bookkeeping stays in one place.
type SubmissionRepository interface {
	GetByID(ctx context.Context, id uint) (models.Submission, error)
	ListByStudent(ctx context.Context, studentID uint, taskID *uint) ([]models.Submission, error)
	ListByTask(ctx context.Context, taskID uint) ([]models.Submission, error)
	Create(ctx context.Context, submission *models.Submission) error
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates a GORM-backed submission repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) baseQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Model(&models.Submission{}).
		Preload("Task").
		Preload("Student")
}

func (r *submissionRepository) GetByID(ctx context.Context, id uint) (models.Submission, error) {
	var submission models.Submission
	if err := r.baseQuery(ctx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (r *submissionRepository) ListByStudent(ctx context.Context, studentID uint, taskID *uint) ([]models.Submission, error) {
	query := r.baseQuery(ctx).Where("student_id = ?", studentID)
	if taskID != nil {
		query = query.Where("task_id = ?", *taskID)
	}

	var submissions []models.Submission
	if err := query.Order("submitted_at DESC, id DESC").Find(&submissions).Error; err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) ListByTask(ctx context.Context, taskID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := r.baseQuery(ctx).
		Where("task_id = ?", taskID).
		Order("submitted_at DESC, id DESC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (r *submissionRepository) Create(ctx context.Context, submission *models.Submission) error {
	return r.db.WithContext(ctx).Create(submission).Error
}
