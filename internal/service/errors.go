package service

import "errors"

// Sentinel errors surfaced by services and translated to HTTP statuses at
// the handler boundary.
var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrSubmissionNotFound = errors.New("submission not found")
	ErrRewardNotFound     = errors.New("reward not found")
	ErrUserNotFound       = errors.New("user not found")

	ErrTaskNotAssigned  = errors.New("task not assigned")
	ErrForbidden        = errors.New("forbidden")
	ErrAwardedImmutable = errors.New("awarded submissions cannot be deleted")

	ErrNegativeAward      = errors.New("awarded points must be non-negative")
	ErrAwardExceedsMax    = errors.New("points exceed penalty-adjusted max")
	ErrInsufficientPoints = errors.New("not enough points for this reward")

	ErrUsernameTaken      = errors.New("username already exists")
	ErrEmailTaken         = errors.New("email already exists")
	ErrInvalidCredentials = errors.New("wrong information")

	ErrEmptySubmission    = errors.New("submission text or PDF is required")
	ErrInvalidDeadline    = errors.New("invalid deadline format")
	ErrNoStudentsSelected = errors.New("select at least one student")
	ErrInvalidStudentList = errors.New("invalid student list")
	ErrNoUpdates          = errors.New("no updates provided")
	ErrFileNotFound       = errors.New("file not found")
)

// Actor is the already-authenticated caller identity handed down from the
// request boundary.
type Actor struct {
	ID   uint
	Role string
}
