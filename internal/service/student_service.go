package service

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/classpoint/classpoint-api/internal/dto"
	"github.com/classpoint/classpoint-api/internal/models"
	"github.com/classpoint/classpoint-api/internal/repository"
	"github.com/classpoint/classpoint-api/internal/timeutil"
)

// Leaderboard tiers, best first. With six or fewer students each rank maps
// straight onto the ladder; larger classes are split into percentile bands.
var tierLadder = []string{"Challenger", "Master", "Diamond", "Gold", "Silver", "Bronze"}

const leaderboardCacheKey = "classpoint:leaderboard"

// StudentService serves the leaderboard, a student's own progress view and
// the tutor's class overview.
type StudentService interface {
	Leaderboard(ctx context.Context) ([]dto.LeaderboardEntry, error)
	InvalidateLeaderboard(ctx context.Context)
	Progress(ctx context.Context, studentID uint) (dto.ProgressResponse, error)
	Overview(ctx context.Context, tutorID uint) ([]dto.OverviewStudent, error)
}

type studentService struct {
	students    repository.StudentRepository
	users       repository.UserRepository
	tasks       repository.TaskRepository
	submissions repository.SubmissionRepository
	cache       *redis.Client
	cacheTTL    time.Duration
	logger      zerolog.Logger
}

// NewStudentService constructs the student statistics service. A nil cache
// disables leaderboard caching.
func NewStudentService(
	students repository.StudentRepository,
	users repository.UserRepository,
	tasks repository.TaskRepository,
	submissions repository.SubmissionRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	logger zerolog.Logger,
) StudentService {
	return &studentService{
		students:    students,
		users:       users,
		tasks:       tasks,
		submissions: submissions,
		cache:       cache,
		cacheTTL:    cacheTTL,
		logger:      logger.With().Str("component", "student_service").Logger(),
	}
}

func (s *studentService) Leaderboard(ctx context.Context) ([]dto.LeaderboardEntry, error) {
	if cached, ok := s.cachedLeaderboard(ctx); ok {
		return cached, nil
	}

	totals, err := s.students.EffectiveTotals(ctx)
	if err != nil {
		return nil, err
	}

	entries := rankAndTier(totals)
	s.storeLeaderboard(ctx, entries)
	return entries, nil
}

func (s *studentService) InvalidateLeaderboard(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, leaderboardCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate leaderboard cache")
	}
}

func (s *studentService) cachedLeaderboard(ctx context.Context) ([]dto.LeaderboardEntry, bool) {
	if s.cache == nil {
		return nil, false
	}

	raw, err := s.cache.Get(ctx, leaderboardCacheKey).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("leaderboard cache read failed")
		}
		return nil, false
	}

	var entries []dto.LeaderboardEntry
	if err := json.Unmarshal(raw, &entries); err != nil {
		s.logger.Warn().Err(err).Msg("leaderboard cache payload corrupt")
		return nil, false
	}
	return entries, true
}

func (s *studentService) storeLeaderboard(ctx context.Context, entries []dto.LeaderboardEntry) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(entries)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, leaderboardCacheKey, raw, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("leaderboard cache write failed")
	}
}

// rankAndTier assigns competition ranks (1, 1, 3) and tier names to totals
// already sorted by points descending. Tied students share the rank of the
// first position holding their score, so they always share a tier too.
func rankAndTier(totals []repository.EffectiveTotal) []dto.LeaderboardEntry {
	entries := make([]dto.LeaderboardEntry, 0, len(totals))

	firstIdx := 0
	prevPoints := 0
	for i, row := range totals {
		if i == 0 || row.TotalPoints != prevPoints {
			firstIdx = i
			prevPoints = row.TotalPoints
		}
		rank := firstIdx + 1
		entries = append(entries, dto.LeaderboardEntry{
			StudentID:   row.StudentID,
			Username:    row.Username,
			TotalPoints: row.TotalPoints,
			Rank:        rank,
			Tier:        tierFor(len(totals), rank),
		})
	}
	return entries
}

// tierFor maps a competition rank onto a tier.
func tierFor(total, rank int) string {
	if total <= len(tierLadder) {
		idx := rank - 1
		if idx >= len(tierLadder) {
			idx = len(tierLadder) - 1
		}
		return tierLadder[idx]
	}

	percentile := float64(rank) / float64(total) * 100
	switch {
	case percentile <= 5:
		return "Challenger"
	case percentile <= 10:
		return "Master"
	case percentile <= 20:
		return "Diamond"
	case percentile <= 30:
		return "Gold"
	case percentile <= 50:
		return "Silver"
	default:
		return "Bronze"
	}
}

func (s *studentService) Progress(ctx context.Context, studentID uint) (dto.ProgressResponse, error) {
	user, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ProgressResponse{}, ErrUserNotFound
		}
		return dto.ProgressResponse{}, err
	}

	tasks, err := s.tasks.ListAssignedTo(ctx, studentID)
	if err != nil {
		return dto.ProgressResponse{}, err
	}
	submissions, err := s.submissions.ListByStudent(ctx, studentID, nil)
	if err != nil {
		return dto.ProgressResponse{}, err
	}

	submitted := make(map[uint]bool, len(submissions))
	awarded := make(map[uint]*int, len(submissions))
	for _, submission := range submissions {
		submitted[submission.TaskID] = true
		if submission.AwardedPoints == nil {
			continue
		}
		best := awarded[submission.TaskID]
		if best == nil || *submission.AwardedPoints > *best {
			points := *submission.AwardedPoints
			awarded[submission.TaskID] = &points
		}
	}

	progress := dto.ProgressResponse{
		Points:   user.Points,
		Assigned: len(tasks),
		Tasks:    make([]dto.ProgressTask, 0, len(tasks)),
	}
	for _, task := range tasks {
		if submitted[task.ID] {
			progress.Completed++
		}
		progress.Tasks = append(progress.Tasks, dto.ProgressTask{
			TaskID:    task.ID,
			Title:     task.Title,
			Deadline:  timeutil.FormatISOPtr(task.Deadline),
			Points:    task.Points,
			Submitted: submitted[task.ID],
			Awarded:   awarded[task.ID],
		})
	}
	return progress, nil
}

func (s *studentService) Overview(ctx context.Context, tutorID uint) ([]dto.OverviewStudent, error) {
	students, err := s.users.ListStudents(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.students.OverviewRows(ctx, tutorID)
	if err != nil {
		return nil, err
	}

	tasksByStudent := make(map[uint][]dto.OverviewTask, len(students))
	for _, row := range rows {
		tasksByStudent[row.StudentID] = append(tasksByStudent[row.StudentID], dto.OverviewTask{
			TaskID:      row.TaskID,
			Title:       row.Title,
			Deadline:    timeutil.FormatISOPtr(row.Deadline),
			Submitted:   row.SubmissionID != nil,
			SubmittedAt: timeutil.FormatISOPtr(row.SubmittedAt),
			Awarded:     row.MaxAwarded,
		})
	}

	out := make([]dto.OverviewStudent, 0, len(students))
	for _, student := range students {
		out = append(out, overviewStudent(student, tasksByStudent[student.ID]))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func overviewStudent(student models.User, tasks []dto.OverviewTask) dto.OverviewStudent {
	if tasks == nil {
		tasks = []dto.OverviewTask{}
	}
	return dto.OverviewStudent{
		StudentID: student.ID,
		Username:  student.Username,
		Email:     student.Email,
		Points:    student.Points,
		Tasks:     tasks,
	}
}
