package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/clover-lab/clover-api/internal/models"
)

type mockActivityLogRepo struct {
	inserted []models.ActivityLog
}

func (m *mockActivityLogRepo) Insert(ctx context.Context, log *models.ActivityLog) error {
	m.inserted = append(m.inserted, *log)
	return nil
}

func (m *mockActivityLogRepo) List(ctx context.Context, filter models.ActivityLogFilter) ([]models.ActivityLog, int, error) {
	return m.inserted, len(m.inserted), nil
}

func newActivityLogService(repo *mockActivityLogRepo) *ActivityLogService {
	return NewActivityLogService(repo, nil, nil, validator.New(), zap.NewNop())
}

func TestIngestDerivesModeFromTag(t *testing.T) {
	repo := &mockActivityLogRepo{}
	svc := newActivityLogService(repo)

	log, err := svc.Ingest(context.Background(), IngestActivityLogRequest{
		UserID:     "user-1",
		Event:      string(models.EventLineByLineAccept),
		DurationMS: 150,
	})
	require.NoError(t, err)
	assert.Equal(t, models.ModeLineByLine, log.Mode)
	assert.False(t, log.CreatedAt.IsZero())
	require.Len(t, repo.inserted, 1)
}

func TestIngestRejectsUnknownTag(t *testing.T) {
	repo := &mockActivityLogRepo{}
	svc := newActivityLogService(repo)

	_, err := svc.Ingest(context.Background(), IngestActivityLogRequest{
		UserID: "user-1",
		Event:  "CODE_SELECTION_REJECT",
	})
	require.Error(t, err)
	assert.Empty(t, repo.inserted)
}

func TestIngestParsesCreatedAt(t *testing.T) {
	repo := &mockActivityLogRepo{}
	svc := newActivityLogService(repo)

	log, err := svc.Ingest(context.Background(), IngestActivityLogRequest{
		UserID:    "user-1",
		Event:     string(models.EventCodeBlockAccept),
		CreatedAt: "2026-08-29T10:30:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 29, 10, 30, 0, 0, time.UTC), log.CreatedAt)
}

func TestIngestRejectsMalformedCreatedAt(t *testing.T) {
	repo := &mockActivityLogRepo{}
	svc := newActivityLogService(repo)

	_, err := svc.Ingest(context.Background(), IngestActivityLogRequest{
		UserID:    "user-1",
		Event:     string(models.EventCodeBlockAccept),
		CreatedAt: "yesterday",
	})
	require.Error(t, err)
	assert.Empty(t, repo.inserted)
}

func TestIngestPreservesHasBug(t *testing.T) {
	repo := &mockActivityLogRepo{}
	svc := newActivityLogService(repo)

	bug := true
	log, err := svc.Ingest(context.Background(), IngestActivityLogRequest{
		UserID: "user-1",
		Event:  string(models.EventCodeBlockAccept),
		HasBug: &bug,
	})
	require.NoError(t, err)
	require.NotNil(t, log.HasBug)
	assert.True(t, *log.HasBug)
	assert.True(t, log.KnownBug())
}
