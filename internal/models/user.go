package models

import "time"

// Roles assignable to a user account. Tutor accounts are provisioned out of
// band; self-registration only ever creates students.
const (
	RoleStudent = "student"
	RoleTutor   = "tutor"
)

// User represents a student or tutor account. Points is a derived running
// total kept consistent with graded submissions by the points reconciler;
// nothing else writes it.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"size:64;uniqueIndex;not null" json:"username"`
	Email     *string   `gorm:"size:255;uniqueIndex" json:"email"`
	Password  string    `gorm:"size:128;not null" json:"-"`
	Role      string    `gorm:"size:16;not null" json:"role"`
	Points    int       `gorm:"not null;default:0" json:"points"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NormalizeRole maps legacy role names onto the current set. Accounts
// imported from older deployments carry "teacher" instead of "tutor".
func NormalizeRole(role string) string {
	if role == "teacher" {
		return RoleTutor
	}
	return role
}

// IsTutor reports whether the account has the tutor role.
func (u User) IsTutor() bool {
	return NormalizeRole(u.Role) == RoleTutor
}

// IsStudent reports whether the account has the student role.
func (u User) IsStudent() bool {
	return u.Role == RoleStudent
}
