package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/classpoint/classpoint-api/internal/models"
)

// ReminderRepository backs the deadline-reminder job.
type ReminderRepository interface {
	TasksDueBetween(ctx context.Context, start, end time.Time) ([]models.Task, error)
	AssignedStudentsWithEmail(ctx context.Context, taskID uint) ([]models.User, error)
	HasSubmission(ctx context.Context, taskID, studentID uint) (bool, error)
	AlreadySent(ctx context.Context, taskID, studentID uint, reminderType string) (bool, error)
	LogSent(ctx context.Context, log *models.ReminderLog) error
}

type reminderRepository struct {
	db *gorm.DB
}

// NewReminderRepository instantiates a GORM-backed reminder repository.
func NewReminderRepository(db *gorm.DB) ReminderRepository {
	return &reminderRepository{db: db}
}

func (r *reminderRepository) TasksDueBetween(ctx context.Context, start, end time.Time) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Where("deadline IS NOT NULL").
		Where("deadline > ? AND deadline <= ?", start, end).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *reminderRepository) AssignedStudentsWithEmail(ctx context.Context, taskID uint) ([]models.User, error) {
	var students []models.User
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Joins("JOIN task_assignments ON task_assignments.student_id = users.id").
		Where("task_assignments.task_id = ?", taskID).
		Where("users.email IS NOT NULL").
		Find(&students).Error
	if err != nil {
		return nil, err
	}
	return students, nil
}

func (r *reminderRepository) HasSubmission(ctx context.Context, taskID, studentID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("task_id = ?", taskID).
		Where("student_id = ?", studentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *reminderRepository) AlreadySent(ctx context.Context, taskID, studentID uint, reminderType string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ReminderLog{}).
		Where("task_id = ?", taskID).
		Where("student_id = ?", studentID).
		Where("reminder_type = ?", reminderType).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *reminderRepository) LogSent(ctx context.Context, log *models.ReminderLog) error {
	return r.db.WithContext(ctx).Create(log).Error
}
