package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/classpoint/classpoint-api/internal/models"
	"github.com/classpoint/classpoint-api/internal/observability"
	"github.com/classpoint/classpoint-api/internal/repository"
	"github.com/classpoint/classpoint-api/internal/timeutil"
	"github.com/classpoint/classpoint-api/pkg/mailer"
)

// reminderTier pairs a reminder type with how far ahead of the deadline it
// fires.
type reminderTier struct {
	reminderType string
	window       time.Duration
}

// Ordered by ascending window; each tier covers the deadlines between the
// previous tier's window and its own, so one run sends at most one tier
// per task.
var reminderTiers = []reminderTier{
	{models.ReminderType12h, 12 * time.Hour},
	{models.ReminderType24h, 24 * time.Hour},
}

// ReminderSummary reports what a reminder run did.
type ReminderSummary struct {
	TasksChecked int
	Sent         int
	Skipped      int
	Failed       int
}

// ReminderService emails students whose assigned tasks are approaching their
// deadline. Runs are idempotent: each (task, student, tier) reminder is sent
// at most once, enforced by the reminder log.
type ReminderService interface {
	Run(ctx context.Context) (ReminderSummary, error)
}

type reminderService struct {
	reminders repository.ReminderRepository
	mail      mailer.Mailer
	logger    zerolog.Logger
	now       func() time.Time
}

// NewReminderService constructs the reminder job service.
func NewReminderService(reminders repository.ReminderRepository, mail mailer.Mailer, logger zerolog.Logger, now func() time.Time) ReminderService {
	return &reminderService{
		reminders: reminders,
		mail:      mail,
		logger:    logger.With().Str("component", "reminder_service").Logger(),
		now:       now,
	}
}

func (s *reminderService) Run(ctx context.Context) (ReminderSummary, error) {
	var summary ReminderSummary
	now := s.now()

	start := now
	for _, tier := range reminderTiers {
		tasks, err := s.reminders.TasksDueBetween(ctx, start, now.Add(tier.window))
		if err != nil {
			return summary, err
		}
		start = now.Add(tier.window)
		summary.TasksChecked += len(tasks)

		for _, task := range tasks {
			if err := s.remindTask(ctx, task, tier, &summary); err != nil {
				return summary, err
			}
		}
	}

	s.logger.Info().
		Int("tasks_checked", summary.TasksChecked).
		Int("sent", summary.Sent).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Msg("reminder run finished")
	return summary, nil
}

func (s *reminderService) remindTask(ctx context.Context, task models.Task, tier reminderTier, summary *ReminderSummary) error {
	students, err := s.reminders.AssignedStudentsWithEmail(ctx, task.ID)
	if err != nil {
		return err
	}

	for _, student := range students {
		submitted, err := s.reminders.HasSubmission(ctx, task.ID, student.ID)
		if err != nil {
			return err
		}
		if submitted {
			summary.Skipped++
			continue
		}

		sent, err := s.reminders.AlreadySent(ctx, task.ID, student.ID, tier.reminderType)
		if err != nil {
			return err
		}
		if sent {
			summary.Skipped++
			continue
		}

		subject, body := reminderMessage(task, student, tier)
		if err := s.mail.Send(ctx, *student.Email, subject, body); err != nil {
			summary.Failed++
			s.logger.Warn().Err(err).
				Uint("task_id", task.ID).
				Uint("student_id", student.ID).
				Str("tier", tier.reminderType).
				Msg("reminder delivery failed")
			continue
		}

		err = s.reminders.LogSent(ctx, &models.ReminderLog{
			TaskID:       task.ID,
			StudentID:    student.ID,
			ReminderType: tier.reminderType,
			SentAt:       s.now(),
		})
		if err != nil {
			return err
		}
		observability.RemindersSent().Inc()
		summary.Sent++
	}
	return nil
}

func reminderMessage(task models.Task, student models.User, tier reminderTier) (subject, body string) {
	deadline := ""
	if task.Deadline != nil {
		deadline = timeutil.FormatISO(*task.Deadline)
	}

	subject = fmt.Sprintf("Reminder: %q is due soon", task.Title)
	body = fmt.Sprintf(
		"Hi %s,\n\nyour task %q has not been submitted yet and is due at %s.\n\nThis is the %s reminder.\n",
		student.Username, task.Title, deadline, tier.reminderType,
	)
	return subject, body
}
