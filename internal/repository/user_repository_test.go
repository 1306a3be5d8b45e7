package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/clover-lab/clover-api/internal/models"
)

func newUserRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestUserRepositoryFindByEmail(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "email", "password_hash", "full_name", "role", "active", "avatar_path", "last_login", "created_at", "updated_at"}).
		AddRow("user-1", "dev@clover.dev", "hashed", "Dev One", models.RoleDeveloper, true, nil, nil, time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, active, avatar_path, last_login, created_at, updated_at FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("dev@clover.dev").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "dev@clover.dev")
	require.NoError(t, err)
	require.Equal(t, "user-1", user.ID)
	require.Equal(t, models.RoleDeveloper, user.Role)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryFindByEmailNotFound(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, email, password_hash, full_name, role, active, avatar_path, last_login, created_at, updated_at FROM users WHERE email = $1 LIMIT 1")).
		WithArgs("missing@clover.dev").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByEmail(context.Background(), "missing@clover.dev")
	require.ErrorIs(t, err, sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCreateAssignsID(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	user := &models.User{Email: "new@clover.dev", PasswordHash: "hashed", FullName: "New User", Role: models.RoleStudent, Active: true}
	err := repo.Create(context.Background(), user)
	require.NoError(t, err)
	require.NotEmpty(t, user.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryUpsertSettings(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO user_settings")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	settings := &models.UserSettings{UserID: "user-1", Theme: "dark", Language: "en"}
	err := repo.UpsertSettings(context.Background(), settings)
	require.NoError(t, err)
	require.False(t, settings.UpdatedAt.IsZero())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepositoryCountByRole(t *testing.T) {
	db, mock, cleanup := newUserRepoMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"role", "total"}).
		AddRow("STUDENT", 42).
		AddRow("INSTRUCTOR", 3)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT role, COUNT(*) AS total FROM users WHERE active = TRUE GROUP BY role")).
		WillReturnRows(rows)

	counts, err := repo.CountByRole(context.Background())
	require.NoError(t, err)
	require.Equal(t, 42, counts[models.RoleStudent])
	require.Equal(t, 3, counts[models.RoleInstructor])
	require.NoError(t, mock.ExpectationsWereMet())
}
