package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/classpoint/classpoint-api/internal/models"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Task{},
		&models.TaskAssignment{},
		&models.Submission{},
		&models.Reward{},
		&models.Purchase{},
		&models.RewardPurchaseLedger{},
		&models.ReminderLog{},
	))
	return db
}

func seedStudent(t *testing.T, db *gorm.DB, username string, points int) models.User {
	t.Helper()

	email := username + "@example.com"
	user := models.User{Username: username, Email: &email, Password: "x", Role: models.RoleStudent, Points: points}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedTutor(t *testing.T, db *gorm.DB, username string) models.User {
	t.Helper()

	user := models.User{Username: username, Password: "x", Role: models.RoleTutor}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func seedTask(t *testing.T, db *gorm.DB, createdBy uint, points int, deadline *time.Time) models.Task {
	t.Helper()

	task := models.Task{Title: "homework", Points: points, Deadline: deadline, CreatedBy: createdBy}
	require.NoError(t, db.Create(&task).Error)
	return task
}

func assignTask(t *testing.T, db *gorm.DB, taskID, studentID, assignedBy uint) {
	t.Helper()

	require.NoError(t, db.Create(&models.TaskAssignment{
		TaskID:     taskID,
		StudentID:  studentID,
		AssignedBy: assignedBy,
		AssignedAt: time.Now(),
	}).Error)
}

func seedSubmission(t *testing.T, db *gorm.DB, taskID, studentID uint, submittedAt time.Time) models.Submission {
	t.Helper()

	submission := models.Submission{
		TaskID:      taskID,
		StudentID:   studentID,
		SubmittedAt: submittedAt,
		TextContent: "answer",
	}
	require.NoError(t, db.Create(&submission).Error)
	return submission
}

func userPoints(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()

	var user models.User
	require.NoError(t, db.First(&user, id).Error)
	return user.Points
}

// effectiveSum recomputes the balance a student should hold from their
// submissions alone: the highest non-null award per task, summed.
func effectiveSum(t *testing.T, db *gorm.DB, studentID uint) int {
	t.Helper()

	var submissions []models.Submission
	require.NoError(t, db.Where("student_id = ?", studentID).Find(&submissions).Error)

	best := map[uint]int{}
	for _, submission := range submissions {
		if submission.AwardedPoints == nil {
			continue
		}
		if current, ok := best[submission.TaskID]; !ok || *submission.AwardedPoints > current {
			best[submission.TaskID] = *submission.AwardedPoints
		}
	}

	total := 0
	for _, points := range best {
		total += points
	}
	return total
}

func mustHash(t *testing.T, password string) string {
	t.Helper()

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hashed)
}

type fakeFileRemover struct {
	removed []string
}

func (f *fakeFileRemover) Remove(pdfPath string) {
	f.removed = append(f.removed, pdfPath)
}

type fakeMailer struct {
	sent []string
	fail bool
}

func (f *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	if f.fail {
		return fmt.Errorf("relay unavailable")
	}
	f.sent = append(f.sent, to)
	return nil
}
