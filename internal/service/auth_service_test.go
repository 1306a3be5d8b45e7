package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/clover-lab/clover-api/internal/models"
	appErrors "github.com/clover-lab/clover-api/pkg/errors"
)

type mockAuthRepo struct {
	users         map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	revoked       []string
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	repo := &mockAuthRepo{users: make(map[string]*models.User), refreshTokens: make(map[string]*models.RefreshToken)}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error { return nil }

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

func (m *mockAuthRepo) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	m.revoked = append(m.revoked, userID)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := m.refreshTokens[token]; ok {
		return t, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, t := range m.refreshTokens {
		if t.ID == id {
			t.Revoked = true
			t.RevokedAt = &revokedAt
		}
	}
	return nil
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "clover-api-test",
	}
}

func activeUser(password string) *models.User {
	hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	return &models.User{
		ID:           "user-1",
		Email:        "dev@clover.dev",
		PasswordHash: string(hash),
		FullName:     "Dev One",
		Role:         models.RoleDeveloper,
		Active:       true,
	}
}

func TestLoginSuccess(t *testing.T) {
	repo := newMockAuthRepo(activeUser("secret123"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "dev@clover.dev", Password: "secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, models.RoleDeveloper, resp.User.Role)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepo(activeUser("secret123"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "dev@clover.dev", Password: "wrong"})
	require.Error(t, err)
}

func TestLoginInactiveAccount(t *testing.T) {
	user := activeUser("secret123")
	user.Active = false
	repo := newMockAuthRepo(user)
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "dev@clover.dev", Password: "secret123"})
	require.Error(t, err)
}

func TestRefreshTokenRotates(t *testing.T) {
	repo := newMockAuthRepo(activeUser("secret123"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	login, err := svc.Login(context.Background(), models.LoginRequest{Email: "dev@clover.dev", Password: "secret123"})
	require.NoError(t, err)

	refreshed, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)

	// the consumed token is revoked and cannot be replayed
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	repo := newMockAuthRepo(activeUser("secret123"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "secret123", NewPassword: "another-pass"})
	require.NoError(t, err)
	assert.Contains(t, repo.revoked, "user-1")

	_, err = svc.Login(context.Background(), models.LoginRequest{Email: "dev@clover.dev", Password: "another-pass"})
	require.NoError(t, err)
}

func TestValidateTokenRejectsTampered(t *testing.T) {
	repo := newMockAuthRepo(activeUser("secret123"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "dev@clover.dev", Password: "secret123"})
	require.NoError(t, err)

	_, err = svc.ValidateToken(resp.AccessToken + "x")
	require.Error(t, err)
}

func TestLoginRecordsAuditEntry(t *testing.T) {
	repo := newMockAuthRepo(activeUser("secret123"))
	audit := &mockAuditRecorder{}
	svc := NewAuthService(repo, audit, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "dev@clover.dev", Password: "secret123"})
	require.NoError(t, err)

	require.Len(t, audit.entries, 1)
	assert.Equal(t, models.AuditActionLogin, audit.entries[0].Action)
	require.NotNil(t, audit.entries[0].ActorID)
	assert.Equal(t, "user-1", *audit.entries[0].ActorID)
}

func TestLoginFailureSkipsAudit(t *testing.T) {
	repo := newMockAuthRepo(activeUser("secret123"))
	audit := &mockAuditRecorder{}
	svc := NewAuthService(repo, audit, validator.New(), zap.NewNop(), testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "dev@clover.dev", Password: "wrong"})
	require.Error(t, err)
	assert.Empty(t, audit.entries)
}

func TestChangePasswordRejectsReuse(t *testing.T) {
	repo := newMockAuthRepo(activeUser("secret123"))
	svc := NewAuthService(repo, nil, validator.New(), zap.NewNop(), testAuthConfig())

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{OldPassword: "secret123", NewPassword: "secret123"})
	require.Error(t, err)

	var appErr *appErrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, appErrors.ErrValidation.Code, appErr.Code)
}
