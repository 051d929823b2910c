package dto

// LeaderboardEntry is a ranked row of the class leaderboard. Students
// with equal totals share a rank (dense ranking).
type LeaderboardEntry struct {
	StudentID   uint   `json:"studentId"`
	Username    string `json:"username"`
	TotalPoints int    `json:"totalPoints"`
	Rank        int    `json:"rank"`
	Tier        string `json:"tier"`
}

// ProgressTask is one task in a student's own progress view.
type ProgressTask struct {
	TaskID    uint    `json:"taskId"`
	Title     string  `json:"title"`
	Deadline  *string `json:"deadline"`
	Points    int     `json:"points"`
	Submitted bool    `json:"submitted"`
	Awarded   *int    `json:"awarded"`
}

// ProgressResponse summarizes a student's standing across assigned tasks.
type ProgressResponse struct {
	Points    int            `json:"points"`
	Completed int            `json:"completed"`
	Assigned  int            `json:"assigned"`
	Tasks     []ProgressTask `json:"tasks"`
}

// OverviewTask is a per-task row in the tutor's students overview.
type OverviewTask struct {
	TaskID      uint    `json:"taskId"`
	Title       string  `json:"title"`
	Deadline    *string `json:"deadline"`
	Submitted   bool    `json:"submitted"`
	SubmittedAt *string `json:"submittedAt"`
	Awarded     *int    `json:"awarded"`
}

// OverviewStudent groups a student's assignment status for the tutor's
// class overview.
type OverviewStudent struct {
	StudentID uint           `json:"studentId"`
	Username  string         `json:"username"`
	Email     *string        `json:"email"`
	Points    int            `json:"points"`
	Tasks     []OverviewTask `json:"tasks"`
}

// UserUpdateRequest is the admin account edit payload. Points routes
// through the balance override, which logs the manual adjustment.
type UserUpdateRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=64"`
	Email    *string `json:"email" validate:"omitempty,email"`
	Password *string `json:"password" validate:"omitempty,min=8"`
	Points   *int    `json:"points" validate:"omitempty,gte=0"`
}
