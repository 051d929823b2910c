package models

import "time"

// Reminder tiers sent ahead of a task deadline.
const (
	ReminderType24h = "24h"
	ReminderType12h = "12h"
)

// ReminderLog marks that a deadline reminder was sent to a student for a
// task at a given tier. The unique index makes the reminder job idempotent
// across re-runs.
type ReminderLog struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TaskID       uint      `gorm:"not null;uniqueIndex:idx_task_student_type" json:"task_id"`
	StudentID    uint      `gorm:"not null;uniqueIndex:idx_task_student_type" json:"student_id"`
	ReminderType string    `gorm:"size:8;not null;uniqueIndex:idx_task_student_type" json:"reminder_type"`
	SentAt       time.Time `json:"sent_at"`
}
