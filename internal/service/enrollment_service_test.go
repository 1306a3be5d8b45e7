package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clover-lab/clover-api/internal/models"
	appErrors "github.com/clover-lab/clover-api/pkg/errors"
)

type mockEnrollmentRepo struct {
	enrollments map[string]models.Enrollment
	created     *models.Enrollment
	createCalls int
	deleteCalls int
	statusCalls int
	lastStatus  models.EnrollmentStatus
}

func enrollmentKey(classID, userID string) string { return classID + "/" + userID }

func (m *mockEnrollmentRepo) FindByClassAndUser(ctx context.Context, classID, userID string) (*models.Enrollment, error) {
	if e, ok := m.enrollments[enrollmentKey(classID, userID)]; ok {
		return &e, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockEnrollmentRepo) Create(ctx context.Context, enrollment *models.Enrollment) error {
	if m.enrollments == nil {
		m.enrollments = make(map[string]models.Enrollment)
	}
	if enrollment.ID == "" {
		enrollment.ID = "new-enroll"
	}
	if enrollment.Status == "" {
		enrollment.Status = models.EnrollmentStatusWaitlisted
	}
	m.enrollments[enrollmentKey(enrollment.ClassID, enrollment.UserID)] = *enrollment
	m.created = enrollment
	m.createCalls++
	return nil
}

func (m *mockEnrollmentRepo) Delete(ctx context.Context, classID, userID string) error {
	m.deleteCalls++
	key := enrollmentKey(classID, userID)
	if _, ok := m.enrollments[key]; !ok {
		return sql.ErrNoRows
	}
	delete(m.enrollments, key)
	return nil
}

func (m *mockEnrollmentRepo) UpdateStatus(ctx context.Context, classID, userID string, status models.EnrollmentStatus) error {
	m.statusCalls++
	key := enrollmentKey(classID, userID)
	e, ok := m.enrollments[key]
	if !ok {
		return sql.ErrNoRows
	}
	e.Status = status
	m.enrollments[key] = e
	m.lastStatus = status
	return nil
}

func (m *mockEnrollmentRepo) List(ctx context.Context, filter models.EnrollmentFilter) ([]models.EnrollmentDetail, int, error) {
	return nil, 0, nil
}

type mockClassReader struct {
	classes map[string]*models.ClassDetail
}

func (m *mockClassReader) FindByID(ctx context.Context, id string) (*models.ClassDetail, error) {
	if c, ok := m.classes[id]; ok {
		return c, nil
	}
	return nil, sql.ErrNoRows
}

type mockAuditRecorder struct {
	entries []models.AuditLog
}

func (m *mockAuditRecorder) Record(ctx context.Context, entry models.AuditLog) {
	m.entries = append(m.entries, entry)
}

func newEnrollmentService(repo *mockEnrollmentRepo, classes *mockClassReader) *EnrollmentService {
	return NewEnrollmentService(repo, classes, nil, nil, validator.New(), zap.NewNop())
}

func knownClass() *mockClassReader {
	return &mockClassReader{classes: map[string]*models.ClassDetail{
		"class-1": {Class: models.Class{ID: "class-1", Title: "Intro to Go"}},
	}}
}

func TestDispatchJoinCreatesWaitlistedEnrollment(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentService(repo, knownClass())

	result, err := svc.Dispatch(context.Background(), models.EnrollmentAction{
		Kind: models.ActionJoin, ClassID: "class-1", UserID: "user-1",
	})
	require.NoError(t, err)
	assert.Equal(t, "Successfully joined class!", result.Message)
	require.NotNil(t, repo.created)
	assert.Equal(t, models.EnrollmentStatusWaitlisted, repo.created.Status)
	assert.Equal(t, 1, repo.createCalls)
	assert.Equal(t, 0, repo.deleteCalls)
	assert.Equal(t, 0, repo.statusCalls)
}

func TestDispatchJoinConflictSurfacesBackendError(t *testing.T) {
	repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
		enrollmentKey("class-1", "user-1"): {ID: "enr-1", ClassID: "class-1", UserID: "user-1", Status: models.EnrollmentStatusWaitlisted},
	}}
	svc := newEnrollmentService(repo, knownClass())

	_, err := svc.Dispatch(context.Background(), models.EnrollmentAction{
		Kind: models.ActionJoin, ClassID: "class-1", UserID: "user-1",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "Already enrolled", appErr.Message)
	assert.Equal(t, 0, repo.createCalls)
}

func TestDispatchLeaveCancelRemoveShareUnregister(t *testing.T) {
	for kind, message := range map[models.EnrollmentActionKind]string{
		models.ActionLeave:  "Successfully left class.",
		models.ActionCancel: "Join request cancelled.",
		models.ActionRemove: "Student removed from class.",
	} {
		repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
			enrollmentKey("class-1", "user-1"): {ID: "enr-1", ClassID: "class-1", UserID: "user-1", Status: models.EnrollmentStatusEnrolled},
		}}
		svc := newEnrollmentService(repo, knownClass())

		result, err := svc.Dispatch(context.Background(), models.EnrollmentAction{
			Kind: kind, ClassID: "class-1", UserID: "user-1",
		})
		require.NoError(t, err, string(kind))
		assert.Equal(t, message, result.Message)
		assert.Equal(t, 1, repo.deleteCalls, string(kind))
		assert.Equal(t, 0, repo.createCalls, string(kind))
		assert.Equal(t, 0, repo.statusCalls, string(kind))
	}
}

func TestDispatchStatusActions(t *testing.T) {
	cases := []struct {
		kind    models.EnrollmentActionKind
		status  models.EnrollmentStatus
		message string
	}{
		{models.ActionAccept, models.EnrollmentStatusEnrolled, "Student accepted into class."},
		{models.ActionReject, models.EnrollmentStatusRejected, "Join request rejected."},
		{models.ActionComplete, models.EnrollmentStatusCompleted, "Class marked as completed for student."},
	}
	for _, tc := range cases {
		repo := &mockEnrollmentRepo{enrollments: map[string]models.Enrollment{
			enrollmentKey("class-1", "user-1"): {ID: "enr-1", ClassID: "class-1", UserID: "user-1", Status: models.EnrollmentStatusWaitlisted},
		}}
		svc := newEnrollmentService(repo, knownClass())

		result, err := svc.Dispatch(context.Background(), models.EnrollmentAction{
			Kind: tc.kind, ClassID: "class-1", UserID: "user-1",
		})
		require.NoError(t, err, string(tc.kind))
		assert.Equal(t, tc.message, result.Message)
		assert.Equal(t, tc.status, repo.lastStatus)
		assert.Equal(t, 1, repo.statusCalls, string(tc.kind))
	}
}

func TestDispatchUnknownKindRejected(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentService(repo, knownClass())

	_, err := svc.Dispatch(context.Background(), models.EnrollmentAction{
		Kind: "promote", ClassID: "class-1", UserID: "user-1",
	})
	require.Error(t, err)
	assert.Equal(t, 0, repo.createCalls+repo.deleteCalls+repo.statusCalls)
}

func TestDispatchUnregisterMissingEnrollment(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentService(repo, knownClass())

	_, err := svc.Dispatch(context.Background(), models.EnrollmentAction{
		Kind: models.ActionLeave, ClassID: "class-1", UserID: "user-9",
	})
	require.Error(t, err)
	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErr.Code)
}

func TestRegisterUnknownClass(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	svc := newEnrollmentService(repo, &mockClassReader{})

	err := svc.Register(context.Background(), "ghost-class", "user-1")
	require.Error(t, err)
	assert.Equal(t, 0, repo.createCalls)
}

func TestDispatchRecordsAuditEntry(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	audit := &mockAuditRecorder{}
	svc := NewEnrollmentService(repo, knownClass(), nil, audit, validator.New(), zap.NewNop())

	_, err := svc.Dispatch(context.Background(), models.EnrollmentAction{
		Kind: models.ActionJoin, ClassID: "class-1", UserID: "user-1", ActorID: "user-1",
	})
	require.NoError(t, err)

	require.Len(t, audit.entries, 1)
	entry := audit.entries[0]
	assert.Equal(t, models.AuditActionEnrollment, entry.Action)
	assert.Equal(t, "enrollment", entry.Resource)
	require.NotNil(t, entry.ActorID)
	assert.Equal(t, "user-1", *entry.ActorID)
	assert.Contains(t, string(entry.Details), `"kind":"join"`)
}

func TestDispatchFailureSkipsAudit(t *testing.T) {
	repo := &mockEnrollmentRepo{}
	audit := &mockAuditRecorder{}
	svc := NewEnrollmentService(repo, knownClass(), nil, audit, validator.New(), zap.NewNop())

	_, err := svc.Dispatch(context.Background(), models.EnrollmentAction{
		Kind: models.ActionLeave, ClassID: "class-1", UserID: "user-9", ActorID: "user-9",
	})
	require.Error(t, err)
	assert.Empty(t, audit.entries)
}
