package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// EffectiveTotal is one leaderboard aggregation row: the sum over tasks of
// the highest non-null award per (task, student) pair.
type EffectiveTotal struct {
	StudentID   uint   `gorm:"column:student_id"`
	Username    string `gorm:"column:username"`
	TotalPoints int    `gorm:"column:total_points"`
}

// OverviewRow is one (student, assigned task) pair with that student's
// latest submission for the task, if any.
type OverviewRow struct {
	StudentID    uint       `gorm:"column:student_id"`
	TaskID       uint       `gorm:"column:task_id"`
	Title        string     `gorm:"column:title"`
	Deadline     *time.Time `gorm:"column:deadline"`
	SubmissionID *uint      `gorm:"column:submission_id"`
	SubmittedAt  *time.Time `gorm:"column:submitted_at"`
	MaxAwarded   *int       `gorm:"column:max_awarded"`
}

// StudentRepository aggregates cross-table student statistics.
type StudentRepository interface {
	EffectiveTotals(ctx context.Context) ([]EffectiveTotal, error)
	OverviewRows(ctx context.Context, tutorID uint) ([]OverviewRow, error)
}

type studentRepository struct {
	db *gorm.DB
}

// NewStudentRepository instantiates a GORM-backed student statistics repository.
func NewStudentRepository(db *gorm.DB) StudentRepository {
	return &studentRepository{db: db}
}

func (r *studentRepository) EffectiveTotals(ctx context.Context) ([]EffectiveTotal, error) {
	var rows []EffectiveTotal
	err := r.db.WithContext(ctx).Raw(`
		SELECT u.id AS student_id,
		       u.username AS username,
		       COALESCE(earned.total_points, 0) AS total_points
		FROM users u
		LEFT JOIN (
		    SELECT student_id, SUM(max_awarded) AS total_points
		    FROM (
		        SELECT student_id, task_id, MAX(awarded_points) AS max_awarded
		        FROM submissions
		        WHERE awarded_points IS NOT NULL
		        GROUP BY student_id, task_id
		    ) grouped
		    GROUP BY student_id
		) earned ON earned.student_id = u.id
		WHERE u.role = ?
		ORDER BY total_points DESC, u.username ASC
	`, "student").Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *studentRepository) OverviewRows(ctx context.Context, tutorID uint) ([]OverviewRow, error) {
	var rows []OverviewRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT a.student_id AS student_id,
		       t.id AS task_id,
		       t.title AS title,
		       t.deadline AS deadline,
		       s.id AS submission_id,
		       s.submitted_at AS submitted_at,
		       aw.max_awarded AS max_awarded
		FROM task_assignments a
		JOIN tasks t ON t.id = a.task_id
		LEFT JOIN (
		    SELECT task_id, student_id, MAX(awarded_points) AS max_awarded
		    FROM submissions
		    WHERE awarded_points IS NOT NULL
		    GROUP BY task_id, student_id
		) aw ON aw.task_id = a.task_id AND aw.student_id = a.student_id
		LEFT JOIN (
		    SELECT s1.id, s1.task_id, s1.student_id, s1.submitted_at
		    FROM submissions s1
		    JOIN (
		        SELECT task_id, student_id, MAX(submitted_at) AS latest_submitted_at
		        FROM submissions
		        GROUP BY task_id, student_id
		    ) latest
		      ON latest.task_id = s1.task_id
		     AND latest.student_id = s1.student_id
		     AND latest.latest_submitted_at = s1.submitted_at
		) s ON s.task_id = a.task_id AND s.student_id = a.student_id
		WHERE t.created_by = ?
		ORDER BY a.student_id ASC, t.deadline IS NULL, t.deadline ASC
	`, tutorID).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}
