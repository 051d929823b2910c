package dto

import (
	"github.com/classpoint/classpoint-api/internal/models"
	"github.com/classpoint/classpoint-api/internal/timeutil"
)

// TaskCreateRequest is the multipart form payload for creating a task.
// Deadline is a free-form datetime string normalized by timeutil before
// storage; an empty string means no deadline.
type TaskCreateRequest struct {
	Title              string `json:"title" form:"title" validate:"required,max=255"`
	Description        string `json:"description" form:"description"`
	Deadline           string `json:"deadline" form:"deadline"`
	Points             *int   `json:"points" form:"points" validate:"required,gte=0"`
	AssignedStudentIDs []uint `json:"assignedStudentIds" form:"assignedStudentIds" validate:"required,min=1"`
}

// TaskUpdateRequest carries a partial task edit. Nil and empty-string
// fields are left untouched.
type TaskUpdateRequest struct {
	Title              *string `json:"title" validate:"omitempty,max=255"`
	Description        *string `json:"description"`
	Deadline           *string `json:"deadline"`
	Points             *int    `json:"points" validate:"omitempty,gte=0"`
	AssignedStudentIDs *[]uint `json:"assignedStudentIds" validate:"omitempty,min=1"`
}

// TaskResponse is the task payload shared by tutor and student listings.
// IsDone is only populated for student views.
type TaskResponse struct {
	ID          uint    `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Deadline    *string `json:"deadline"`
	Points      int     `json:"points"`
	CreatedBy   uint    `json:"createdBy"`
	HasPDF      bool    `json:"hasPdf"`
	IsDone      *bool   `json:"isDone,omitempty"`
}

// NewTaskResponse converts a Task model into a DTO.
func NewTaskResponse(task models.Task, isDone *bool) TaskResponse {
	return TaskResponse{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Deadline:    timeutil.FormatISOPtr(task.Deadline),
		Points:      task.Points,
		CreatedBy:   task.CreatedBy,
		HasPDF:      task.PDFPath != nil,
		IsDone:      isDone,
	}
}

// AssignRequest carries the roster for bulk task assignment.
type AssignRequest struct {
	StudentIDs []uint `json:"studentIds" validate:"required,min=1"`
}
