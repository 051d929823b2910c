package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/classpoint/classpoint-api/internal/models"
)

// TaskRepository defines persistence operations for tasks and their rosters.
type TaskRepository interface {
	List(ctx context.Context) ([]models.Task, error)
	ListAssignedTo(ctx context.Context, studentID uint) ([]models.Task, error)
	GetByID(ctx context.Context, id uint) (models.Task, error)
	CreateWithAssignments(ctx context.Context, task *models.Task, studentIDs []uint, assignedBy uint, at time.Time) error
	Delete(ctx context.Context, id uint) error
	AssignmentExists(ctx context.Context, taskID, studentID uint) (bool, error)
	AssignedStudentIDs(ctx context.Context, taskID uint) ([]uint, error)
	ValidStudentIDs(ctx context.Context, studentIDs []uint) ([]uint, error)
	SubmittedTaskIDs(ctx context.Context, studentID uint) (map[uint]bool, error)
}

type taskRepository struct {
	db *gorm.DB
}

// NewTaskRepository instantiates a GORM-backed task repository.
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &taskRepository{db: db}
}

// deadlineOrder keeps undated tasks last; works on postgres and sqlite.
const deadlineOrder = "deadline IS NULL, deadline ASC"

func (r *taskRepository) List(ctx context.Context) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.WithContext(ctx).Order(deadlineOrder).Find(&tasks).Error; err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) ListAssignedTo(ctx context.Context, studentID uint) ([]models.Task, error) {
	var tasks []models.Task
	err := r.db.WithContext(ctx).
		Joins("JOIN task_assignments ON task_assignments.task_id = tasks.id").
		Where("task_assignments.student_id = ?", studentID).
		Order(deadlineOrder).
		Find(&tasks).Error
	if err != nil {
		return nil, err
	}
	return tasks, nil
}

func (r *taskRepository) GetByID(ctx context.Context, id uint) (models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (r *taskRepository) CreateWithAssignments(ctx context.Context, task *models.Task, studentIDs []uint, assignedBy uint, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(task).Error; err != nil {
			return err
		}

		rows := make([]models.TaskAssignment, 0, len(studentIDs))
		for _, studentID := range studentIDs {
			rows = append(rows, models.TaskAssignment{
				TaskID:     task.ID,
				StudentID:  studentID,
				AssignedBy: assignedBy,
				AssignedAt: at,
			})
		}
		if len(rows) == 0 {
			return nil
		}
		return tx.Create(&rows).Error
	})
}

func (r *taskRepository) Delete(ctx context.Context, id uint) error {
	// assignments and submissions cascade with the task
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskAssignment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("task_id = ?", id).Delete(&models.Submission{}).Error; err != nil {
			return err
		}

		result := tx.Delete(&models.Task{}, id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
}

func (r *taskRepository) AssignmentExists(ctx context.Context, taskID, studentID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.TaskAssignment{}).
		Where("task_id = ?", taskID).
		Where("student_id = ?", studentID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *taskRepository) AssignedStudentIDs(ctx context.Context, taskID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.TaskAssignment{}).
		Where("task_id = ?", taskID).
		Order("student_id ASC").
		Pluck("student_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *taskRepository) ValidStudentIDs(ctx context.Context, studentIDs []uint) ([]uint, error) {
	if len(studentIDs) == 0 {
		return nil, nil
	}

	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ?", models.RoleStudent).
		Where("id IN ?", studentIDs).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *taskRepository) SubmittedTaskIDs(ctx context.Context, studentID uint) (map[uint]bool, error) {
	var ids []uint
	err := r.db.WithContext(ctx).Model(&models.Submission{}).
		Where("student_id = ?", studentID).
		Distinct().
		Pluck("task_id", &ids).Error
	if err != nil {
		return nil, err
	}

	submitted := make(map[uint]bool, len(ids))
	for _, id := range ids {
		submitted[id] = true
	}
	return submitted, nil
}
