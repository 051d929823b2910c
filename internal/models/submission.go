package models

import "time"

// Submission is one attempt by a student at a task. A nil AwardedPoints means
// the submission is still ungraded. A student may submit any number of times
// for the same task; the attempt number is an ordinal computed at read time.
type Submission struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	TaskID         uint       `gorm:"not null;index" json:"task_id"`
	StudentID      uint       `gorm:"not null;index" json:"student_id"`
	SubmittedAt    time.Time  `gorm:"not null" json:"submitted_at"`
	TextContent    string     `gorm:"type:text" json:"text_content"`
	PDFPath        *string    `gorm:"size:512" json:"pdf_path"`
	TeacherComment *string    `gorm:"type:text" json:"teacher_comment"`
	AwardedPoints  *int       `json:"awarded_points"`
	AwardedAt      *time.Time `json:"awarded_at"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	Task    Task `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
	Student User `gorm:"foreignKey:StudentID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE" json:"-"`
}

// Submission lifecycle states derived from AwardedPoints.
const (
	SubmissionStatusSubmitted = "submitted"
	SubmissionStatusGraded    = "graded"
)

// IsGraded reports whether the submission currently holds an award.
func (s Submission) IsGraded() bool {
	return s.AwardedPoints != nil
}

// Status returns the lifecycle state name for API responses.
func (s Submission) Status() string {
	if s.IsGraded() {
		return SubmissionStatusGraded
	}
	return SubmissionStatusSubmitted
}
