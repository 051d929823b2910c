package models

import "time"

// Task is a homework assignment created by a tutor. Deadline is stored as a
// naive local instant; a nil deadline means submissions are never late.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `gorm:"type:text" json:"description"`
	Deadline    *time.Time `json:"deadline"`
	Points      int        `gorm:"not null;default:0" json:"points"`
	CreatedBy   uint       `gorm:"not null" json:"created_by"`
	PDFPath     *string    `gorm:"size:512" json:"pdf_path"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	Assignments []TaskAssignment `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Submissions []Submission     `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// TaskAssignment links a task to one assigned student. The roster for a task
// is replaced wholesale on edit, never diffed.
type TaskAssignment struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	TaskID     uint      `gorm:"not null;uniqueIndex:idx_task_student" json:"task_id"`
	StudentID  uint      `gorm:"not null;uniqueIndex:idx_task_student" json:"student_id"`
	AssignedBy uint      `gorm:"not null" json:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at"`
}
