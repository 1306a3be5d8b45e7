package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/clover-lab/clover-api/internal/models"
)

func newActivityLogRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestActivityLogRepositoryInsertAssignsDefaults(t *testing.T) {
	db, mock, cleanup := newActivityLogRepoMock(t)
	defer cleanup()
	repo := NewActivityLogRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO activity_logs")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	log := &models.ActivityLog{
		UserID:     "user-1",
		Event:      models.EventCodeBlockAccept,
		Mode:       models.ModeCodeBlock,
		DurationMS: 120,
	}
	err := repo.Insert(context.Background(), log)
	require.NoError(t, err)
	require.NotEmpty(t, log.ID)
	require.False(t, log.CreatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityLogRepositoryListForStatsFilters(t *testing.T) {
	db, mock, cleanup := newActivityLogRepoMock(t)
	defer cleanup()
	repo := NewActivityLogRepository(db)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "user_id", "event", "mode", "has_bug", "class_id", "duration_ms", "created_at"}).
		AddRow("log-1", "user-1", models.EventLineByLineAccept, models.ModeLineByLine, nil, nil, 80, from.Add(time.Hour)).
		AddRow("log-2", "user-1", models.EventLineByLineReject, models.ModeLineByLine, true, nil, 40, from.Add(2*time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, event, mode, has_bug, class_id, duration_ms, created_at FROM activity_logs WHERE 1=1 AND user_id = $1 AND created_at >= $2 ORDER BY created_at ASC")).
		WithArgs("user-1", from).
		WillReturnRows(rows)

	logs, err := repo.ListForStats(context.Background(), models.ActivityLogFilter{UserID: "user-1", From: &from})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	require.Nil(t, logs[0].HasBug)
	require.True(t, logs[1].KnownBug())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestActivityLogRepositoryListPaginates(t *testing.T) {
	db, mock, cleanup := newActivityLogRepoMock(t)
	defer cleanup()
	repo := NewActivityLogRepository(db)

	rows := sqlmock.NewRows([]string{"id", "user_id", "event", "mode", "has_bug", "class_id", "duration_ms", "created_at"}).
		AddRow("log-1", "user-1", models.EventCodeBlockAccept, models.ModeCodeBlock, nil, nil, 100, time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, user_id, event, mode, has_bug, class_id, duration_ms, created_at FROM activity_logs WHERE 1=1 ORDER BY created_at DESC LIMIT 20 OFFSET 0")).
		WillReturnRows(rows)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM activity_logs WHERE 1=1")).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	logs, total, err := repo.List(context.Background(), models.ActivityLogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 1)
	require.Equal(t, 1, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
