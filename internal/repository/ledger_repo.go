package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/classpoint/classpoint-api/internal/models"
)

// LedgerTx is the transactional view the points reconciler and the shop
// operate through. AdjustBalance and SetBalance are the only writers of
// User.Points in the whole codebase; every method runs inside the
// transaction opened by LedgerRepository.InTx.
type LedgerTx interface {
	TaskForUpdate(id uint) (models.Task, error)
	SubmissionForUpdate(id uint) (models.Submission, error)
	PairSubmissionsForUpdate(taskID, studentID uint) ([]models.Submission, error)
	SubmissionsForTask(taskID uint) ([]models.Submission, error)
	UserForUpdate(id uint) (models.User, error)
	RewardForUpdate(id uint) (models.Reward, error)

	SetAward(submissionID uint, points *int, comment *string, awardedAt *time.Time) error
	SetAwardPoints(submissionID uint, points int) error
	SetPairAward(taskID, studentID uint, points int, comment *string, awardedAt time.Time) error
	UpdateTask(id uint, updates map[string]interface{}) error
	ReplaceAssignments(taskID uint, studentIDs []uint, assignedBy uint, at time.Time) error
	DeleteSubmission(id uint) error

	CreatePurchase(purchase *models.Purchase) error
	CreateLedgerEntry(entry *models.RewardPurchaseLedger) error

	AdjustBalance(studentID uint, delta int) (int, error)
	SetBalance(studentID uint, points int) error
}

// LedgerRepository opens atomic units of work over the points ledger.
type LedgerRepository interface {
	InTx(ctx context.Context, fn func(tx LedgerTx) error) error
}

type ledgerRepository struct {
	db *gorm.DB
}

// NewLedgerRepository instantiates a GORM-backed ledger repository.
func NewLedgerRepository(db *gorm.DB) LedgerRepository {
	return &ledgerRepository{db: db}
}

func (r *ledgerRepository) InTx(ctx context.Context, fn func(tx LedgerTx) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerTx{tx: tx})
	})
}

type ledgerTx struct {
	tx *gorm.DB
}

// forUpdate takes row locks where the dialect supports them. The sqlite
// databases used in tests serialize writers anyway.
func (l *ledgerTx) forUpdate(q *gorm.DB) *gorm.DB {
	if l.tx.Dialector.Name() == "postgres" {
		return q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q
}

func (l *ledgerTx) TaskForUpdate(id uint) (models.Task, error) {
	var task models.Task
	if err := l.forUpdate(l.tx).First(&task, id).Error; err != nil {
		return models.Task{}, err
	}
	return task, nil
}

func (l *ledgerTx) SubmissionForUpdate(id uint) (models.Submission, error) {
	var submission models.Submission
	if err := l.forUpdate(l.tx).First(&submission, id).Error; err != nil {
		return models.Submission{}, err
	}
	return submission, nil
}

func (l *ledgerTx) PairSubmissionsForUpdate(taskID, studentID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := l.forUpdate(l.tx).
		Where("task_id = ?", taskID).
		Where("student_id = ?", studentID).
		Order("submitted_at DESC, id DESC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (l *ledgerTx) SubmissionsForTask(taskID uint) ([]models.Submission, error) {
	var submissions []models.Submission
	err := l.forUpdate(l.tx).
		Where("task_id = ?", taskID).
		Order("id ASC").
		Find(&submissions).Error
	if err != nil {
		return nil, err
	}
	return submissions, nil
}

func (l *ledgerTx) UserForUpdate(id uint) (models.User, error) {
	var user models.User
	if err := l.forUpdate(l.tx).First(&user, id).Error; err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (l *ledgerTx) RewardForUpdate(id uint) (models.Reward, error) {
	var reward models.Reward
	if err := l.forUpdate(l.tx).First(&reward, id).Error; err != nil {
		return models.Reward{}, err
	}
	return reward, nil
}

func (l *ledgerTx) SetAward(submissionID uint, points *int, comment *string, awardedAt *time.Time) error {
	return l.tx.Model(&models.Submission{}).
		Where("id = ?", submissionID).
		Updates(map[string]interface{}{
			"awarded_points":  points,
			"teacher_comment": comment,
			"awarded_at":      awardedAt,
		}).Error
}

func (l *ledgerTx) SetAwardPoints(submissionID uint, points int) error {
	return l.tx.Model(&models.Submission{}).
		Where("id = ?", submissionID).
		Update("awarded_points", points).Error
}

func (l *ledgerTx) SetPairAward(taskID, studentID uint, points int, comment *string, awardedAt time.Time) error {
	return l.tx.Model(&models.Submission{}).
		Where("task_id = ?", taskID).
		Where("student_id = ?", studentID).
		Updates(map[string]interface{}{
			"awarded_points":  points,
			"teacher_comment": comment,
			"awarded_at":      awardedAt,
		}).Error
}

func (l *ledgerTx) UpdateTask(id uint, updates map[string]interface{}) error {
	if len(updates) == 0 {
		return nil
	}
	return l.tx.Model(&models.Task{}).Where("id = ?", id).Updates(updates).Error
}

func (l *ledgerTx) ReplaceAssignments(taskID uint, studentIDs []uint, assignedBy uint, at time.Time) error {
	if err := l.tx.Where("task_id = ?", taskID).Delete(&models.TaskAssignment{}).Error; err != nil {
		return err
	}

	rows := make([]models.TaskAssignment, 0, len(studentIDs))
	for _, studentID := range studentIDs {
		rows = append(rows, models.TaskAssignment{
			TaskID:     taskID,
			StudentID:  studentID,
			AssignedBy: assignedBy,
			AssignedAt: at,
		})
	}
	if len(rows) == 0 {
		return nil
	}
	return l.tx.Create(&rows).Error
}

func (l *ledgerTx) DeleteSubmission(id uint) error {
	result := l.tx.Delete(&models.Submission{}, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (l *ledgerTx) CreatePurchase(purchase *models.Purchase) error {
	return l.tx.Create(purchase).Error
}

func (l *ledgerTx) CreateLedgerEntry(entry *models.RewardPurchaseLedger) error {
	return l.tx.Create(entry).Error
}

func (l *ledgerTx) AdjustBalance(studentID uint, delta int) (int, error) {
	user, err := l.UserForUpdate(studentID)
	if err != nil {
		return 0, err
	}

	points := user.Points + delta
	if points < 0 {
		points = 0
	}

	err = l.tx.Model(&models.User{}).
		Where("id = ?", studentID).
		UpdateColumn("points", points).Error
	if err != nil {
		return 0, err
	}
	return points, nil
}

func (l *ledgerTx) SetBalance(studentID uint, points int) error {
	if points < 0 {
		points = 0
	}
	result := l.tx.Model(&models.User{}).
		Where("id = ?", studentID).
		UpdateColumn("points", points)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
