package dto

import (
	"github.com/classpoint/classpoint-api/internal/models"
	"github.com/classpoint/classpoint-api/internal/timeutil"
)

// SubmissionCreateResult is returned after a successful submission and
// tells the student what the work can still earn.
type SubmissionCreateResult struct {
	SubmissionID uint `json:"submissionId"`
	MaxPoints    int  `json:"maxPoints"`
	DaysLate     int  `json:"daysLate"`
}

// SubmissionResponse is a submission enriched with the recomputed
// late-penalty ceiling and the read-time attempt number.
type SubmissionResponse struct {
	ID             uint    `json:"id"`
	TaskID         uint    `json:"taskId"`
	TaskTitle      string  `json:"taskTitle"`
	TaskPoints     int     `json:"taskPoints"`
	Deadline       *string `json:"deadline"`
	StudentID      uint    `json:"studentId"`
	Username       string  `json:"username"`
	SubmittedAt    string  `json:"submittedAt"`
	TextContent    string  `json:"textContent"`
	HasPDF         bool    `json:"hasPdf"`
	TeacherComment *string `json:"teacherComment"`
	AwardedPoints  *int    `json:"awardedPoints"`
	AwardedAt      *string `json:"awardedAt"`
	Status         string  `json:"status"`
	MaxPoints      int     `json:"maxPoints"`
	DaysLate       int     `json:"daysLate"`
	AttemptNumber  int     `json:"attemptNumber"`
}

// NewSubmissionResponse converts a Submission with preloaded Task and
// Student relations. MaxPoints, DaysLate and AttemptNumber are computed
// by the caller at read time.
func NewSubmissionResponse(sub models.Submission, maxPoints, daysLate, attempt int) SubmissionResponse {
	return SubmissionResponse{
		ID:             sub.ID,
		TaskID:         sub.TaskID,
		TaskTitle:      sub.Task.Title,
		TaskPoints:     sub.Task.Points,
		Deadline:       timeutil.FormatISOPtr(sub.Task.Deadline),
		StudentID:      sub.StudentID,
		Username:       sub.Student.Username,
		SubmittedAt:    timeutil.FormatISO(sub.SubmittedAt),
		TextContent:    sub.TextContent,
		HasPDF:         sub.PDFPath != nil,
		TeacherComment: sub.TeacherComment,
		AwardedPoints:  sub.AwardedPoints,
		AwardedAt:      timeutil.FormatISOPtr(sub.AwardedAt),
		Status:         sub.Status(),
		MaxPoints:      maxPoints,
		DaysLate:       daysLate,
		AttemptNumber:  attempt,
	}
}

// AwardRequest carries the points a tutor awards for a submission.
type AwardRequest struct {
	AwardedPoints *int   `json:"awardedPoints" validate:"required,gte=0"`
	Comment       string `json:"comment"`
}

// AwardPairRequest awards points to a (task, student) pair without
// naming a specific attempt.
type AwardPairRequest struct {
	StudentID     *uint  `json:"studentId" validate:"required"`
	AwardedPoints *int   `json:"awardedPoints" validate:"required,gte=0"`
	Comment       string `json:"comment"`
}
