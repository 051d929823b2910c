package service

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/classpoint/classpoint-api/internal/models"
	"github.com/classpoint/classpoint-api/internal/observability"
	"github.com/classpoint/classpoint-api/internal/policy"
	"github.com/classpoint/classpoint-api/internal/repository"
)

// FileRemover deletes a stored submission file, best effort.
type FileRemover interface {
	Remove(pdfPath string)
}

// TaskEdit carries the mutable task fields for an edit. Nil fields are left
// unchanged; a nil AssignedStudentIDs keeps the current roster.
type TaskEdit struct {
	Title              *string
	Description        *string
	Deadline           *time.Time
	Points             *int
	AssignedStudentIDs []uint
}

// PointsReconciler owns every mutation that can move a student's point
// balance on the earning side. It keeps User.Points equal to the sum over
// tasks of the highest non-null award per (task, student) pair.
type PointsReconciler interface {
	AwardSubmission(ctx context.Context, submissionID uint, points int, comment string) error
	AwardTaskStudent(ctx context.Context, taskID, studentID uint, points int, comment string) error
	ApplyTaskEdit(ctx context.Context, taskID uint, edit TaskEdit, editorID uint) error
	DeleteSubmission(ctx context.Context, actor Actor, submissionID uint) error
	SetStudentBalance(ctx context.Context, studentID uint, points int) error
}

type pointsReconciler struct {
	ledger repository.LedgerRepository
	files  FileRemover
	logger zerolog.Logger
	tracer trace.Tracer
	now    func() time.Time
}

// NewPointsReconciler constructs the reconciler over the ledger boundary.
func NewPointsReconciler(ledger repository.LedgerRepository, files FileRemover, logger zerolog.Logger, now func() time.Time) PointsReconciler {
	return &pointsReconciler{
		ledger: ledger,
		files:  files,
		logger: logger.With().Str("component", "points_reconciler").Logger(),
		tracer: otel.Tracer("github.com/classpoint/classpoint-api/internal/service/reconciler"),
		now:    now,
	}
}

// effectiveAward returns the highest non-null award among a pair's
// submissions, skipping excludeID (0 skips nothing).
func effectiveAward(submissions []models.Submission, excludeID uint) int {
	best := 0
	for _, submission := range submissions {
		if submission.ID == excludeID || submission.AwardedPoints == nil {
			continue
		}
		if *submission.AwardedPoints > best {
			best = *submission.AwardedPoints
		}
	}
	return best
}

func (r *pointsReconciler) AwardSubmission(ctx context.Context, submissionID uint, points int, comment string) error {
	ctx, span := r.tracer.Start(ctx, "reconciler.award_submission")
	span.SetAttributes(
		attribute.Int64("award.submission_id", int64(submissionID)),
		attribute.Int("award.points", points),
	)
	defer span.End()

	if points < 0 {
		span.SetStatus(codes.Error, "negative_award")
		return ErrNegativeAward
	}

	err := r.ledger.InTx(ctx, func(tx repository.LedgerTx) error {
		submission, err := tx.SubmissionForUpdate(submissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubmissionNotFound
			}
			return err
		}

		task, err := tx.TaskForUpdate(submission.TaskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		ceiling, _ := policy.Evaluate(task.Points, task.Deadline, submission.SubmittedAt)
		if points > ceiling {
			return ErrAwardExceedsMax
		}

		siblings, err := tx.PairSubmissionsForUpdate(submission.TaskID, submission.StudentID)
		if err != nil {
			return err
		}
		previous := effectiveAward(siblings, 0)

		// only one submission per pair may hold an award
		for _, sibling := range siblings {
			if sibling.ID == submissionID || sibling.AwardedPoints == nil {
				continue
			}
			if err := tx.SetAward(sibling.ID, nil, nil, nil); err != nil {
				return err
			}
		}

		awardedAt := r.now()
		commentValue := optionalString(comment)
		if err := tx.SetAward(submissionID, &points, commentValue, &awardedAt); err != nil {
			return err
		}

		if delta := points - previous; delta != 0 {
			if _, err := tx.AdjustBalance(submission.StudentID, delta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "award_failed")
		return err
	}

	observability.PointsMutations().WithLabelValues("award_submission").Inc()
	return nil
}

func (r *pointsReconciler) AwardTaskStudent(ctx context.Context, taskID, studentID uint, points int, comment string) error {
	ctx, span := r.tracer.Start(ctx, "reconciler.award_task_student")
	span.SetAttributes(
		attribute.Int64("award.task_id", int64(taskID)),
		attribute.Int64("award.student_id", int64(studentID)),
		attribute.Int("award.points", points),
	)
	defer span.End()

	if points < 0 {
		span.SetStatus(codes.Error, "negative_award")
		return ErrNegativeAward
	}

	err := r.ledger.InTx(ctx, func(tx repository.LedgerTx) error {
		task, err := tx.TaskForUpdate(taskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		submissions, err := tx.PairSubmissionsForUpdate(taskID, studentID)
		if err != nil {
			return err
		}
		if len(submissions) == 0 {
			return ErrSubmissionNotFound
		}

		// ceiling is judged against the most recent attempt
		latest := submissions[0]
		ceiling, _ := policy.Evaluate(task.Points, task.Deadline, latest.SubmittedAt)
		if points > ceiling {
			return ErrAwardExceedsMax
		}

		previous := effectiveAward(submissions, 0)

		if err := tx.SetPairAward(taskID, studentID, points, optionalString(comment), r.now()); err != nil {
			return err
		}

		if delta := points - previous; delta != 0 {
			if _, err := tx.AdjustBalance(studentID, delta); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "award_failed")
		return err
	}

	observability.PointsMutations().WithLabelValues("award_pair").Inc()
	return nil
}

func (r *pointsReconciler) ApplyTaskEdit(ctx context.Context, taskID uint, edit TaskEdit, editorID uint) error {
	ctx, span := r.tracer.Start(ctx, "reconciler.apply_task_edit")
	span.SetAttributes(attribute.Int64("task.id", int64(taskID)))
	defer span.End()

	err := r.ledger.InTx(ctx, func(tx repository.LedgerTx) error {
		task, err := tx.TaskForUpdate(taskID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrTaskNotFound
			}
			return err
		}

		now := r.now()
		updates := map[string]interface{}{"updated_at": now}
		if edit.Title != nil {
			updates["title"] = *edit.Title
		}
		if edit.Description != nil {
			updates["description"] = *edit.Description
		}
		if edit.Deadline != nil {
			updates["deadline"] = *edit.Deadline
		}
		if edit.Points != nil {
			updates["points"] = *edit.Points
		}
		if err := tx.UpdateTask(taskID, updates); err != nil {
			return err
		}

		if edit.AssignedStudentIDs != nil {
			if err := tx.ReplaceAssignments(taskID, edit.AssignedStudentIDs, editorID, now); err != nil {
				return err
			}
		}

		newDeadline := task.Deadline
		if edit.Deadline != nil {
			newDeadline = edit.Deadline
		}
		newPoints := task.Points
		if edit.Points != nil {
			newPoints = *edit.Points
		}

		// force awards above the new ceiling down; never raise one. A
		// per-pair award writes the same value onto every attempt, so the
		// balance moves by the change in each student's highest award for
		// this task, not by one delta per clamped row.
		submissions, err := tx.SubmissionsForTask(taskID)
		if err != nil {
			return err
		}
		before := map[uint]int{}
		after := map[uint]int{}
		for _, submission := range submissions {
			if submission.AwardedPoints == nil {
				continue
			}
			awarded := *submission.AwardedPoints
			if awarded > before[submission.StudentID] {
				before[submission.StudentID] = awarded
			}
			ceiling, _ := policy.Evaluate(newPoints, newDeadline, submission.SubmittedAt)
			if awarded > ceiling {
				if err := tx.SetAwardPoints(submission.ID, ceiling); err != nil {
					return err
				}
				awarded = ceiling
			}
			if awarded > after[submission.StudentID] {
				after[submission.StudentID] = awarded
			}
		}
		for studentID, effective := range before {
			if delta := after[studentID] - effective; delta != 0 {
				if _, err := tx.AdjustBalance(studentID, delta); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "task_edit_failed")
		return err
	}

	observability.PointsMutations().WithLabelValues("task_edit").Inc()
	return nil
}

func (r *pointsReconciler) DeleteSubmission(ctx context.Context, actor Actor, submissionID uint) error {
	ctx, span := r.tracer.Start(ctx, "reconciler.delete_submission")
	span.SetAttributes(attribute.Int64("submission.id", int64(submissionID)))
	defer span.End()

	var pdfPath *string
	err := r.ledger.InTx(ctx, func(tx repository.LedgerTx) error {
		submission, err := tx.SubmissionForUpdate(submissionID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubmissionNotFound
			}
			return err
		}

		if actor.Role == models.RoleStudent {
			if submission.StudentID != actor.ID {
				return ErrForbidden
			}
			if submission.IsGraded() {
				return ErrAwardedImmutable
			}
		}

		if submission.IsGraded() {
			siblings, err := tx.PairSubmissionsForUpdate(submission.TaskID, submission.StudentID)
			if err != nil {
				return err
			}
			before := effectiveAward(siblings, 0)
			after := effectiveAward(siblings, submissionID)
			if delta := after - before; delta != 0 {
				if _, err := tx.AdjustBalance(submission.StudentID, delta); err != nil {
					return err
				}
			}
		}

		pdfPath = submission.PDFPath
		return tx.DeleteSubmission(submissionID)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete_failed")
		return err
	}

	// file removal is best effort and happens only after the commit
	if pdfPath != nil && r.files != nil {
		r.files.Remove(*pdfPath)
	}

	observability.PointsMutations().WithLabelValues("submission_delete").Inc()
	return nil
}

func (r *pointsReconciler) SetStudentBalance(ctx context.Context, studentID uint, points int) error {
	err := r.ledger.InTx(ctx, func(tx repository.LedgerTx) error {
		if err := tx.SetBalance(studentID, points); err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}
		return nil
	})
	if err != nil {
		return err
	}

	observability.PointsMutations().WithLabelValues("balance_override").Inc()
	r.logger.Info().Uint("student_id", studentID).Int("points", points).Msg("balance overridden")
	return nil
}

func optionalString(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
