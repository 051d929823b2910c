package service

import (
	"context"
	"mime/multipart"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/classpoint/classpoint-api/internal/models"
	"github.com/classpoint/classpoint-api/internal/repository"
)

type fakeFileStore struct {
	saved   []string
	removed []string
	failPDF error
}

func (f *fakeFileStore) SavePDF(file *multipart.FileHeader) (string, error) {
	if f.failPDF != nil {
		return "", f.failPDF
	}
	name := "stored-" + file.Filename
	f.saved = append(f.saved, name)
	return name, nil
}

func (f *fakeFileStore) Resolve(pdfPath string) (string, bool) {
	for _, name := range f.saved {
		if name == pdfPath {
			return "/uploads/" + pdfPath, true
		}
	}
	return "", false
}

func (f *fakeFileStore) Remove(pdfPath string) {
	f.removed = append(f.removed, pdfPath)
}

func TestSubmissionCreateGuards(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	alice := seedStudent(t, db, "alice", 0)
	deadline := time.Now().Add(48 * time.Hour)
	task := seedTask(t, db, tutor.ID, 100, &deadline)

	files := &fakeFileStore{}
	svc := NewSubmissionService(repository.NewSubmissionRepository(db), repository.NewTaskRepository(db), files, zerolog.Nop(), time.Now)
	actor := Actor{ID: alice.ID, Role: models.RoleStudent}

	// unknown task
	_, err := svc.Create(context.Background(), actor, 9999, "answer", nil)
	require.ErrorIs(t, err, ErrTaskNotFound)

	// not assigned
	_, err = svc.Create(context.Background(), actor, task.ID, "answer", nil)
	require.ErrorIs(t, err, ErrTaskNotAssigned)

	assignTask(t, db, task.ID, alice.ID, tutor.ID)

	// neither text nor file
	_, err = svc.Create(context.Background(), actor, task.ID, "   ", nil)
	require.ErrorIs(t, err, ErrEmptySubmission)

	result, err := svc.Create(context.Background(), actor, task.ID, "my answer", nil)
	require.NoError(t, err)
	require.Equal(t, 100, result.MaxPoints)
	require.Zero(t, result.DaysLate)
}

func TestSubmissionCreateReportsLatePenalty(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	alice := seedStudent(t, db, "alice", 0)

	deadline := time.Date(2026, 1, 16, 9, 0, 0, 0, time.UTC)
	task := seedTask(t, db, tutor.ID, 100, &deadline)
	assignTask(t, db, task.ID, alice.ID, tutor.ID)

	// one second past the deadline counts as a full late day
	now := func() time.Time { return deadline.Add(time.Second) }
	svc := NewSubmissionService(repository.NewSubmissionRepository(db), repository.NewTaskRepository(db), &fakeFileStore{}, zerolog.Nop(), now)

	result, err := svc.Create(context.Background(), Actor{ID: alice.ID, Role: models.RoleStudent}, task.ID, "late answer", nil)
	require.NoError(t, err)
	require.Equal(t, 50, result.MaxPoints)
	require.Equal(t, 1, result.DaysLate)
}

func TestSubmissionListAttemptNumbers(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	alice := seedStudent(t, db, "alice", 0)
	task := seedTask(t, db, tutor.ID, 100, nil)
	assignTask(t, db, task.ID, alice.ID, tutor.ID)

	base := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)
	first := seedSubmission(t, db, task.ID, alice.ID, base)
	second := seedSubmission(t, db, task.ID, alice.ID, base.Add(time.Hour))
	third := seedSubmission(t, db, task.ID, alice.ID, base.Add(2*time.Hour))

	svc := NewSubmissionService(repository.NewSubmissionRepository(db), repository.NewTaskRepository(db), &fakeFileStore{}, zerolog.Nop(), time.Now)

	listed, err := svc.ListMine(context.Background(), alice.ID, nil)
	require.NoError(t, err)
	require.Len(t, listed, 3)

	// newest first, but attempt numbers count from the oldest
	require.Equal(t, third.ID, listed[0].ID)
	require.Equal(t, 3, listed[0].AttemptNumber)
	require.Equal(t, second.ID, listed[1].ID)
	require.Equal(t, 2, listed[1].AttemptNumber)
	require.Equal(t, first.ID, listed[2].ID)
	require.Equal(t, 1, listed[2].AttemptNumber)
}

func TestSubmissionGetHidesOtherStudents(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	alice := seedStudent(t, db, "alice", 0)
	bob := seedStudent(t, db, "bob", 0)
	task := seedTask(t, db, tutor.ID, 100, nil)
	submission := seedSubmission(t, db, task.ID, alice.ID, time.Now())

	svc := NewSubmissionService(repository.NewSubmissionRepository(db), repository.NewTaskRepository(db), &fakeFileStore{}, zerolog.Nop(), time.Now)

	_, err := svc.Get(context.Background(), Actor{ID: bob.ID, Role: models.RoleStudent}, submission.ID)
	require.ErrorIs(t, err, ErrForbidden)

	got, err := svc.Get(context.Background(), Actor{ID: tutor.ID, Role: models.RoleTutor}, submission.ID)
	require.NoError(t, err)
	require.Equal(t, submission.ID, got.ID)
}

func TestSubmissionResolveFile(t *testing.T) {
	db := testDB(t)
	tutor := seedTutor(t, db, "tutor")
	alice := seedStudent(t, db, "alice", 0)
	task := seedTask(t, db, tutor.ID, 100, nil)

	path := "stored-work.pdf"
	submission := models.Submission{TaskID: task.ID, StudentID: alice.ID, SubmittedAt: time.Now(), PDFPath: &path}
	require.NoError(t, db.Create(&submission).Error)

	files := &fakeFileStore{saved: []string{path}}
	svc := NewSubmissionService(repository.NewSubmissionRepository(db), repository.NewTaskRepository(db), files, zerolog.Nop(), time.Now)

	resolved, err := svc.ResolveFile(context.Background(), Actor{ID: alice.ID, Role: models.RoleStudent}, submission.ID)
	require.NoError(t, err)
	require.Equal(t, "/uploads/"+path, resolved)

	// text-only submissions have no file
	textOnly := seedSubmission(t, db, task.ID, alice.ID, time.Now())
	_, err = svc.ResolveFile(context.Background(), Actor{ID: alice.ID, Role: models.RoleStudent}, textOnly.ID)
	require.ErrorIs(t, err, ErrFileNotFound)
}
