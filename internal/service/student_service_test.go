package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/classpoint/classpoint-api/internal/repository"
)

func newStudentService(db *gorm.DB, cache *redis.Client, ttl time.Duration) StudentService {
	return NewStudentService(
		repository.NewStudentRepository(db),
		repository.NewUserRepository(db),
		repository.NewTaskRepository(db),
		repository.NewSubmissionRepository(db),
		cache,
		ttl,
		zerolog.Nop(),
	)
}

func awardPair(t *testing.T, db *gorm.DB, rec PointsReconciler, taskID, studentID uint, points int) {
	t.Helper()

	seedSubmission(t, db, taskID, studentID, time.Now())
	require.NoError(t, rec.AwardTaskStudent(context.Background(), taskID, studentID, points, ""))
}

func TestLeaderboardRanksAndLadderTiers(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	task := seedTask(t, db, tutor.ID, 100, nil)

	rec := NewPointsReconciler(repository.NewLedgerRepository(db), &fakeFileRemover{}, zerolog.Nop(), time.Now)
	alice := seedStudent(t, db, "alice", 0)
	bob := seedStudent(t, db, "bob", 0)
	cara := seedStudent(t, db, "cara", 0)
	awardPair(t, db, rec, task.ID, alice.ID, 90)
	awardPair(t, db, rec, task.ID, bob.ID, 70)
	awardPair(t, db, rec, task.ID, cara.ID, 70)

	svc := newStudentService(db, nil, 0)
	entries, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	require.Equal(t, "alice", entries[0].Username)
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, "Challenger", entries[0].Tier)

	// tied students share rank and tier
	require.Equal(t, 2, entries[1].Rank)
	require.Equal(t, 2, entries[2].Rank)
	require.Equal(t, "Master", entries[1].Tier)
	require.Equal(t, "Master", entries[2].Tier)
}

func TestLeaderboardRanksSkipAfterTie(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	task := seedTask(t, db, tutor.ID, 100, nil)

	rec := NewPointsReconciler(repository.NewLedgerRepository(db), &fakeFileRemover{}, zerolog.Nop(), time.Now)
	alice := seedStudent(t, db, "alice", 0)
	bob := seedStudent(t, db, "bob", 0)
	cara := seedStudent(t, db, "cara", 0)
	awardPair(t, db, rec, task.ID, alice.ID, 90)
	awardPair(t, db, rec, task.ID, bob.ID, 90)
	awardPair(t, db, rec, task.ID, cara.ID, 70)

	svc := newStudentService(db, nil, 0)
	entries, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 3)

	// competition ranking: a tie at the top pushes the next rank to 3
	require.Equal(t, 1, entries[0].Rank)
	require.Equal(t, 1, entries[1].Rank)
	require.Equal(t, 3, entries[2].Rank)
	require.Equal(t, "Diamond", entries[2].Tier)
}

func TestLeaderboardPercentileTiers(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	task := seedTask(t, db, tutor.ID, 1000, nil)

	rec := NewPointsReconciler(repository.NewLedgerRepository(db), &fakeFileRemover{}, zerolog.Nop(), time.Now)
	for i := 0; i < 20; i++ {
		student := seedStudent(t, db, fmt.Sprintf("student%02d", i), 0)
		awardPair(t, db, rec, task.ID, student.ID, 1000-i*10)
	}

	svc := newStudentService(db, nil, 0)
	entries, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 20)

	require.Equal(t, "Challenger", entries[0].Tier)
	require.Equal(t, "Master", entries[1].Tier)
	require.Equal(t, "Diamond", entries[3].Tier)
	require.Equal(t, "Gold", entries[5].Tier)
	require.Equal(t, "Silver", entries[9].Tier)
	require.Equal(t, "Bronze", entries[19].Tier)
}

func TestLeaderboardUsesCache(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	defer mini.Close()
	cache := redis.NewClient(&redis.Options{Addr: mini.Addr()})

	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	task := seedTask(t, db, tutor.ID, 100, nil)

	rec := NewPointsReconciler(repository.NewLedgerRepository(db), &fakeFileRemover{}, zerolog.Nop(), time.Now)
	alice := seedStudent(t, db, "alice", 0)
	awardPair(t, db, rec, task.ID, alice.ID, 50)

	svc := newStudentService(db, cache, time.Minute)

	entries, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, 50, entries[0].TotalPoints)

	// a stale cache wins until invalidated
	bob := seedStudent(t, db, "bob", 0)
	awardPair(t, db, rec, task.ID, bob.ID, 99)

	entries, err = svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)

	svc.InvalidateLeaderboard(context.Background())
	entries, err = svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	require.Equal(t, "bob", entries[0].Username)
}

func TestStudentProgress(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	alice := seedStudent(t, db, "alice", 0)

	taskA := seedTask(t, db, tutor.ID, 100, nil)
	taskB := seedTask(t, db, tutor.ID, 50, nil)
	assignTask(t, db, taskA.ID, alice.ID, tutor.ID)
	assignTask(t, db, taskB.ID, alice.ID, tutor.ID)

	rec := NewPointsReconciler(repository.NewLedgerRepository(db), &fakeFileRemover{}, zerolog.Nop(), time.Now)
	sub := seedSubmission(t, db, taskA.ID, alice.ID, time.Now())
	require.NoError(t, rec.AwardSubmission(context.Background(), sub.ID, 80, ""))

	svc := newStudentService(db, nil, 0)
	progress, err := svc.Progress(context.Background(), alice.ID)
	require.NoError(t, err)

	require.Equal(t, 80, progress.Points)
	require.Equal(t, 2, progress.Assigned)
	require.Equal(t, 1, progress.Completed)
	require.Len(t, progress.Tasks, 2)
	for _, task := range progress.Tasks {
		if task.TaskID == taskA.ID {
			require.True(t, task.Submitted)
			require.NotNil(t, task.Awarded)
			require.Equal(t, 80, *task.Awarded)
		} else {
			require.False(t, task.Submitted)
			require.Nil(t, task.Awarded)
		}
	}
}

func TestStudentsOverview(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	alice := seedStudent(t, db, "alice", 0)
	bob := seedStudent(t, db, "bob", 0)

	task := seedTask(t, db, tutor.ID, 100, nil)
	assignTask(t, db, task.ID, alice.ID, tutor.ID)
	assignTask(t, db, task.ID, bob.ID, tutor.ID)
	seedSubmission(t, db, task.ID, alice.ID, time.Now())

	svc := newStudentService(db, nil, 0)
	overview, err := svc.Overview(context.Background(), tutor.ID)
	require.NoError(t, err)
	require.Len(t, overview, 2)

	require.Equal(t, "alice", overview[0].Username)
	require.Len(t, overview[0].Tasks, 1)
	require.True(t, overview[0].Tasks[0].Submitted)

	require.Equal(t, "bob", overview[1].Username)
	require.Len(t, overview[1].Tasks, 1)
	require.False(t, overview[1].Tasks[0].Submitted)
}

func TestProgressUnknownStudent(t *testing.T) {
	db := testDB(t)
	svc := newStudentService(db, nil, 0)

	_, err := svc.Progress(context.Background(), 404)
	require.ErrorIs(t, err, ErrUserNotFound)
}
