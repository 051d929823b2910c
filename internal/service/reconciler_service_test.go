package service

import (
	"context"
	"errors"
	"math/rand"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/classpoint/classpoint-api/internal/models"
	"github.com/classpoint/classpoint-api/internal/repository"
)

func TestAwardSubmissionAdjustsBalance(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	student := seedStudent(t, db, "alice", 0)
	deadline := time.Now().Add(24 * time.Hour)
	task := seedTask(t, db, tutor.ID, 100, &deadline)
	submission := seedSubmission(t, db, task.ID, student.ID, time.Now())

	files := &fakeFileRemover{}
	rec := NewPointsReconciler(repository.NewLedgerRepository(db), files, zerolog.Nop(), time.Now)

	require.NoError(t, rec.AwardSubmission(context.Background(), submission.ID, 80, "good work"))
	require.Equal(t, 80, userPoints(t, db, student.ID))

	// re-awarding replaces, never accumulates
	require.NoError(t, rec.AwardSubmission(context.Background(), submission.ID, 60, ""))
	require.Equal(t, 60, userPoints(t, db, student.ID))

	require.NoError(t, rec.AwardSubmission(context.Background(), submission.ID, 95, ""))
	require.Equal(t, 95, userPoints(t, db, student.ID))
}

func TestAwardSubmissionRejectsInvalidAmounts(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	student := seedStudent(t, db, "alice", 0)
	deadline := time.Now().Add(-25 * time.Hour)
	task := seedTask(t, db, tutor.ID, 100, &deadline)
	// two days late: ceiling is 25
	submission := seedSubmission(t, db, task.ID, student.ID, time.Now())

	rec := NewPointsReconciler(repository.NewLedgerRepository(db), &fakeFileRemover{}, zerolog.Nop(), time.Now)

	err := rec.AwardSubmission(context.Background(), submission.ID, -5, "")
	require.ErrorIs(t, err, ErrNegativeAward)

	err = rec.AwardSubmission(context.Background(), submission.ID, 26, "")
	require.ErrorIs(t, err, ErrAwardExceedsMax)
	require.Equal(t, 0, userPoints(t, db, student.ID))

	require.NoError(t, rec.AwardSubmission(context.Background(), submission.ID, 25, ""))
	require.Equal(t, 25, userPoints(t, db, student.ID))
}

func TestAwardSubmissionMovesAwardBetweenAttempts(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	student := seedStudent(t, db, "alice", 0)
	task := seedTask(t, db, tutor.ID, 100, nil)
	first := seedSubmission(t, db, task.ID, student.ID, time.Now().Add(-time.Hour))
	second := seedSubmission(t, db, task.ID, student.ID, time.Now())

	rec := NewPointsReconciler(repository.NewLedgerRepository(db), &fakeFileRemover{}, zerolog.Nop(), time.Now)

	require.NoError(t, rec.AwardSubmission(context.Background(), first.ID, 40, ""))
	require.NoError(t, rec.AwardSubmission(context.Background(), second.ID, 70, ""))

	// the earlier award must have been cleared
	var stored models.Submission
	require.NoError(t, db.First(&stored, first.ID).Error)
	require.Nil(t, stored.AwardedPoints)

	require.Equal(t, 70, userPoints(t, db, student.ID))
	require.Equal(t, effectiveSum(t, db, student.ID), userPoints(t, db, student.ID))
}

func TestAwardTaskStudentWritesAllAttempts(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	student := seedStudent(t, db, "alice", 0)
	task := seedTask(t, db, tutor.ID, 50, nil)
	first := seedSubmission(t, db, task.ID, student.ID, time.Now().Add(-time.Hour))
	second := seedSubmission(t, db, task.ID, student.ID, time.Now())

	rec := NewPointsReconciler(repository.NewLedgerRepository(db), &fakeFileRemover{}, zerolog.Nop(), time.Now)

	require.NoError(t, rec.AwardTaskStudent(context.Background(), task.ID, student.ID, 30, "solid"))
	require.Equal(t, 30, userPoints(t, db, student.ID))

	for _, id := range []uint{first.ID, second.ID} {
		var stored models.Submission
		require.NoError(t, db.First(&stored, id).Error)
		require.NotNil(t, stored.AwardedPoints)
		require.Equal(t, 30, *stored.AwardedPoints)
	}

	// lowering the pair award moves the balance down with it
	require.NoError(t, rec.AwardTaskStudent(context.Background(), task.ID, student.ID, 10, ""))
	require.Equal(t, 10, userPoints(t, db, student.ID))
}

func TestAwardTaskStudentRequiresSubmission(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	student := seedStudent(t, db, "alice", 0)
	task := seedTask(t, db, tutor.ID, 50, nil)

	rec := NewPointsReconciler(repository.NewLedgerRepository(db), &fakeFileRemover{}, zerolog.Nop(), time.Now)

	err := rec.AwardTaskStudent(context.Background(), task.ID, student.ID, 10, "")
	require.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestApplyTaskEditClampsAwards(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	alice := seedStudent(t, db, "alice", 0)
	bob := seedStudent(t, db, "bob", 0)
	task := seedTask(t, db, tutor.ID, 100, nil)
	assignTask(t, db, task.ID, alice.ID, tutor.ID)
	assignTask(t, db, task.ID, bob.ID, tutor.ID)
	aliceSub := seedSubmission(t, db, task.ID, alice.ID, time.Now())
	bobSub := seedSubmission(t, db, task.ID, bob.ID, time.Now())

	rec := NewPointsReconciler(repository.NewLedgerRepository(db), &fakeFileRemover{}, zerolog.Nop(), time.Now)
	require.NoError(t, rec.AwardSubmission(context.Background(), aliceSub.ID, 90, ""))
	require.NoError(t, rec.AwardSubmission(context.Background(), bobSub.ID, 20, ""))

	newPoints := 40
	require.NoError(t, rec.ApplyTaskEdit(context.Background(), task.ID, TaskEdit{Points: &newPoints}, tutor.ID))

	// alice clamped down to the new ceiling, bob untouched
	require.Equal(t, 40, userPoints(t, db, alice.ID))
	require.Equal(t, 20, userPoints(t, db, bob.ID))

	var stored models.Submission
	require.NoError(t, db.First(&stored, aliceSub.ID).Error)
	require.Equal(t, 40, *stored.AwardedPoints)
}

func TestAwardSubmissionStampsInjectedClock(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	alice := seedStudent(t, db, "alice", 0)
	task := seedTask(t, db, tutor.ID, 100, nil)
	assignTask(t, db, task.ID, alice.ID, tutor.ID)
	sub := seedSubmission(t, db, task.ID, alice.ID, time.Now())

	fixed := time.Date(2026, 3, 1, 18, 30, 0, 0, time.UTC)
	rec := NewPointsReconciler(repository.NewLedgerRepository(db), &fakeFileRemover{}, zerolog.Nop(), func() time.Time { return fixed })
	require.NoError(t, rec.AwardSubmission(context.Background(), sub.ID, 60, ""))

	var stored models.Submission
	require.NoError(t, db.First(&stored, sub.ID).Error)
	require.NotNil(t, stored.AwardedAt)
	require.True(t, stored.AwardedAt.Equal(fixed))
}

func TestApplyTaskEditClampsPairAwardsOnce(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	alice := seedStudent(t, db, "alice", 0)
	task := seedTask(t, db, tutor.ID, 100, nil)
	assignTask(t, db, task.ID, alice.ID, tutor.ID)
	seedSubmission(t, db, task.ID, alice.ID, time.Now())
	seedSubmission(t, db, task.ID, alice.ID, time.Now())

	rec := NewPointsReconciler(repository.NewLedgerRepository(db), &fakeFileRemover{}, zerolog.Nop(), time.Now)
	require.NoError(t, rec.AwardTaskStudent(context.Background(), task.ID, alice.ID, 30, ""))
	require.Equal(t, 30, userPoints(t, db, alice.ID))

	// both attempts carry the 30, but lowering the ceiling moves the
	// balance only by the drop in the pair's highest award
	newPoints := 25
	require.NoError(t, rec.ApplyTaskEdit(context.Background(), task.ID, TaskEdit{Points: &newPoints}, tutor.ID))

	require.Equal(t, 25, userPoints(t, db, alice.ID))
	require.Equal(t, effectiveSum(t, db, alice.ID), userPoints(t, db, alice.ID))

	var stored []models.Submission
	require.NoError(t, db.Where("task_id = ? AND student_id = ?", task.ID, alice.ID).Find(&stored).Error)
	require.Len(t, stored, 2)
	for _, sub := range stored {
		require.Equal(t, 25, *sub.AwardedPoints)
	}
}

func TestApplyTaskEditReplacesRoster(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	alice := seedStudent(t, db, "alice", 0)
	bob := seedStudent(t, db, "bob", 0)
	task := seedTask(t, db, tutor.ID, 100, nil)
	assignTask(t, db, task.ID, alice.ID, tutor.ID)

	rec := NewPointsReconciler(repository.NewLedgerRepository(db), &fakeFileRemover{}, zerolog.Nop(), time.Now)
	require.NoError(t, rec.ApplyTaskEdit(context.Background(), task.ID, TaskEdit{
		AssignedStudentIDs: []uint{bob.ID},
	}, tutor.ID))

	var assignments []models.TaskAssignment
	require.NoError(t, db.Where("task_id = ?", task.ID).Find(&assignments).Error)
	require.Len(t, assignments, 1)
	require.Equal(t, bob.ID, assignments[0].StudentID)
}

func TestDeleteSubmissionGuards(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	alice := seedStudent(t, db, "alice", 0)
	bob := seedStudent(t, db, "bob", 0)
	task := seedTask(t, db, tutor.ID, 100, nil)
	submission := seedSubmission(t, db, task.ID, alice.ID, time.Now())

	rec := NewPointsReconciler(repository.NewLedgerRepository(db), &fakeFileRemover{}, zerolog.Nop(), time.Now)

	err := rec.DeleteSubmission(context.Background(), Actor{ID: bob.ID, Role: models.RoleStudent}, submission.ID)
	require.ErrorIs(t, err, ErrForbidden)

	require.NoError(t, rec.AwardSubmission(context.Background(), submission.ID, 50, ""))
	err = rec.DeleteSubmission(context.Background(), Actor{ID: alice.ID, Role: models.RoleStudent}, submission.ID)
	require.ErrorIs(t, err, ErrAwardedImmutable)
}

func TestDeleteGradedSubmissionRestoresEffectiveBalance(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	alice := seedStudent(t, db, "alice", 0)
	task := seedTask(t, db, tutor.ID, 100, nil)
	first := seedSubmission(t, db, task.ID, alice.ID, time.Now().Add(-time.Hour))
	second := seedSubmission(t, db, task.ID, alice.ID, time.Now())

	rec := NewPointsReconciler(repository.NewLedgerRepository(db), &fakeFileRemover{}, zerolog.Nop(), time.Now)
	require.NoError(t, rec.AwardTaskStudent(context.Background(), task.ID, alice.ID, 40, ""))
	require.Equal(t, 40, userPoints(t, db, alice.ID))

	// removing one of two equally-awarded attempts keeps the balance
	require.NoError(t, rec.DeleteSubmission(context.Background(), Actor{ID: tutor.ID, Role: models.RoleTutor}, second.ID))
	require.Equal(t, 40, userPoints(t, db, alice.ID))

	// removing the last awarded attempt returns the points
	require.NoError(t, rec.DeleteSubmission(context.Background(), Actor{ID: tutor.ID, Role: models.RoleTutor}, first.ID))
	require.Equal(t, 0, userPoints(t, db, alice.ID))
}

func TestDeleteSubmissionRemovesStoredFile(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	alice := seedStudent(t, db, "alice", 0)
	task := seedTask(t, db, tutor.ID, 100, nil)

	path := "abc123.pdf"
	submission := models.Submission{TaskID: task.ID, StudentID: alice.ID, SubmittedAt: time.Now(), PDFPath: &path}
	require.NoError(t, db.Create(&submission).Error)

	files := &fakeFileRemover{}
	rec := NewPointsReconciler(repository.NewLedgerRepository(db), files, zerolog.Nop(), time.Now)

	require.NoError(t, rec.DeleteSubmission(context.Background(), Actor{ID: alice.ID, Role: models.RoleStudent}, submission.ID))
	require.Equal(t, []string{path}, files.removed)
}

func TestSetStudentBalance(t *testing.T) {
	db := testDB(t)
	alice := seedStudent(t, db, "alice", 10)

	rec := NewPointsReconciler(repository.NewLedgerRepository(db), &fakeFileRemover{}, zerolog.Nop(), time.Now)
	require.NoError(t, rec.SetStudentBalance(context.Background(), alice.ID, 77))
	require.Equal(t, 77, userPoints(t, db, alice.ID))

	err := rec.SetStudentBalance(context.Background(), 9999, 5)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func requireKnownAwardError(t *testing.T, err error) {
	t.Helper()
	require.True(t,
		errors.Is(err, ErrSubmissionNotFound) || errors.Is(err, ErrAwardExceedsMax),
		"unexpected award error: %v", err)
}

// Randomized operation sequences must leave every balance equal to the sum
// of the highest award per task.
func TestBalanceInvariantUnderRandomOperations(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	students := []models.User{
		seedStudent(t, db, "alice", 0),
		seedStudent(t, db, "bob", 0),
	}

	rng := rand.New(rand.NewSource(42))
	var tasks []models.Task
	for i := 0; i < 4; i++ {
		tasks = append(tasks, seedTask(t, db, tutor.ID, 50+rng.Intn(100), nil))
	}

	rec := NewPointsReconciler(repository.NewLedgerRepository(db), &fakeFileRemover{}, zerolog.Nop(), time.Now)
	ctx := context.Background()

	var submissionIDs []uint
	for i := 0; i < 120; i++ {
		student := students[rng.Intn(len(students))]
		task := tasks[rng.Intn(len(tasks))]

		switch rng.Intn(5) {
		case 0:
			sub := seedSubmission(t, db, task.ID, student.ID, time.Now().Add(-time.Duration(rng.Intn(48))*time.Hour))
			submissionIDs = append(submissionIDs, sub.ID)
		case 1:
			if len(submissionIDs) == 0 {
				continue
			}
			id := submissionIDs[rng.Intn(len(submissionIDs))]
			err := rec.AwardSubmission(ctx, id, rng.Intn(60), "")
			if err != nil {
				requireKnownAwardError(t, err)
			}
		case 2:
			err := rec.AwardTaskStudent(ctx, task.ID, student.ID, rng.Intn(40), "")
			if err != nil {
				requireKnownAwardError(t, err)
			}
		case 3:
			points := 20 + rng.Intn(120)
			require.NoError(t, rec.ApplyTaskEdit(ctx, task.ID, TaskEdit{Points: &points}, tutor.ID))
		case 4:
			if len(submissionIDs) == 0 {
				continue
			}
			id := submissionIDs[rng.Intn(len(submissionIDs))]
			err := rec.DeleteSubmission(ctx, Actor{ID: tutor.ID, Role: models.RoleTutor}, id)
			if err != nil {
				require.ErrorIs(t, err, ErrSubmissionNotFound)
			}
		}

		for _, student := range students {
			require.Equal(t, effectiveSum(t, db, student.ID), userPoints(t, db, student.ID),
				"balance drifted for %s after %d operations", student.Username, i+1)
		}
	}
}
