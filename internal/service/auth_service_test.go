package service

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/TPI-Manager/TPI-Manager/internal/models"
	"github.com/TPI-Manager/TPI-Manager/internal/repository"
	appErrors "github.com/TPI-Manager/TPI-Manager/pkg/errors"
)

type mockAuthRepo struct {
	users         map[models.UserRole]map[string]*models.User
	refreshTokens map[string]*models.RefreshToken
	auditLogs     []*models.AuditLog
	findErr       error
	createErr     error
}

func newMockAuthRepo() *mockAuthRepo {
	return &mockAuthRepo{
		users:         make(map[models.UserRole]map[string]*models.User),
		refreshTokens: make(map[string]*models.RefreshToken),
	}
}

func (m *mockAuthRepo) addUser(u *models.User) {
	if m.users[u.Role] == nil {
		m.users[u.Role] = make(map[string]*models.User)
	}
	m.users[u.Role][u.ID] = u
}

func (m *mockAuthRepo) FindByRole(ctx context.Context, role models.UserRole, id string) (*models.User, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	if u, ok := m.users[role][id]; ok {
		return u, nil
	}
	return nil, repository.ErrNotFound
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	for _, role := range models.Roles {
		if u, err := m.FindByRole(ctx, role, id); err == nil {
			return u, nil
		} else if m.findErr != nil {
			return nil, err
		}
	}
	return nil, repository.ErrNotFound
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.addUser(user)
	return nil
}

func (m *mockAuthRepo) Update(ctx context.Context, user *models.User) error {
	m.addUser(user)
	return nil
}

func (m *mockAuthRepo) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	m.refreshTokens[token.Token] = token
	return nil
}

func (m *mockAuthRepo) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return rt, nil
}

func (m *mockAuthRepo) RevokeRefreshToken(ctx context.Context, token string) error {
	rt, ok := m.refreshTokens[token]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	rt.Revoked = true
	rt.RevokedAt = &now
	return nil
}

func (m *mockAuthRepo) CreateAuditLog(ctx context.Context, entry *models.AuditLog) error {
	m.auditLogs = append(m.auditLogs, entry)
	return nil
}

func newAuthService(repo *mockAuthRepo) *AuthService {
	return NewAuthService(repo, validator.New(), zap.NewNop(), AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  time.Hour,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "test",
	})
}

func hashFor(t *testing.T, password string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(h)
}

func TestLoginSuccess(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{ID: "221187", PasswordHash: hashFor(t, "secret1"), FullName: "Test Student", Role: models.RoleStudent, Department: "CST"})
	svc := newAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{UserID: "221187", Password: "secret1"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.AccessToken)
	assert.NotEmpty(t, res.RefreshToken)
	assert.Equal(t, "221187", res.User.ID)
	assert.Equal(t, models.RoleStudent, res.User.Role)
	require.Len(t, repo.auditLogs, 1)
	assert.Equal(t, models.AuditActionLogin, repo.auditLogs[0].Action)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{ID: "221187", PasswordHash: hashFor(t, "secret1"), Role: models.RoleStudent})
	svc := newAuthService(repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{UserID: "221187", Password: "wrong"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownUser(t *testing.T) {
	svc := newAuthService(newMockAuthRepo())

	_, err := svc.Login(context.Background(), models.LoginRequest{UserID: "nobody", Password: "whatever"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginScansRolesInPrivilegeOrder(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{ID: "shared", PasswordHash: hashFor(t, "teacherpw"), Role: models.RoleTeacher})
	repo.addUser(&models.User{ID: "shared", PasswordHash: hashFor(t, "studentpw"), Role: models.RoleStudent})
	svc := newAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{UserID: "shared", Password: "teacherpw"})
	require.NoError(t, err)
	assert.Equal(t, models.RoleTeacher, res.User.Role)

	// The student partition is shadowed by the teacher account.
	_, err = svc.Login(context.Background(), models.LoginRequest{UserID: "shared", Password: "studentpw"})
	require.Error(t, err)
}

func TestRegisterAndDuplicate(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthService(repo)

	req := models.RegisterRequest{
		UserType:   "student",
		ID:         "221187",
		Password:   "secret1",
		FirstName:  "Abu",
		LastName:   "Sayed",
		Department: "CST",
		Semester:   "3rd",
		Shift:      "Morning",
	}
	res, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "saved", res.Status)
	require.NotNil(t, res.User)
	assert.Equal(t, "Abu Sayed", res.User.FullName)

	stored := repo.users[models.RoleStudent]["221187"]
	require.NotNil(t, stored)
	assert.NotEqual(t, "secret1", stored.PasswordHash)

	dup, err := svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "duplicate", dup.Status)
	assert.Nil(t, dup.User)
}

func TestRegisterRejectsUnknownRole(t *testing.T) {
	svc := newAuthService(newMockAuthRepo())

	_, err := svc.Register(context.Background(), models.RegisterRequest{UserType: "principal", ID: "x", Password: "secret1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestRegisterRejectsShortPassword(t *testing.T) {
	svc := newAuthService(newMockAuthRepo())

	_, err := svc.Register(context.Background(), models.RegisterRequest{UserType: "student", ID: "x", Password: "abc"})
	require.Error(t, err)
}

func TestRefreshTokenRotation(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{ID: "t1", PasswordHash: hashFor(t, "secret1"), Role: models.RoleTeacher})
	svc := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{UserID: "t1", Password: "secret1"})
	require.NoError(t, err)

	res, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, res.RefreshToken)

	// The used token is revoked and cannot be replayed.
	_, err = svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: login.RefreshToken})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}

func TestLogoutRevokesToken(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{ID: "t1", PasswordHash: hashFor(t, "secret1"), Role: models.RoleTeacher})
	svc := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{UserID: "t1", Password: "secret1"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), login.RefreshToken, "t1"))
	assert.True(t, repo.refreshTokens[login.RefreshToken].Revoked)

	err = svc.Logout(context.Background(), login.RefreshToken, "someone-else")
	require.Error(t, err)
}

func TestChangePassword(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{ID: "t1", PasswordHash: hashFor(t, "oldpass"), Role: models.RoleTeacher})
	svc := newAuthService(repo)

	err := svc.ChangePassword(context.Background(), "t1", models.ChangePasswordRequest{OldPassword: "wrong", NewPassword: "newpass1"})
	require.Error(t, err)

	err = svc.ChangePassword(context.Background(), "t1", models.ChangePasswordRequest{OldPassword: "oldpass", NewPassword: "newpass1"})
	require.NoError(t, err)

	_, err = svc.Login(context.Background(), models.LoginRequest{UserID: "t1", Password: "newpass1"})
	require.NoError(t, err)
}

func TestValidateToken(t *testing.T) {
	repo := newMockAuthRepo()
	repo.addUser(&models.User{ID: "a1", PasswordHash: hashFor(t, "secret1"), FullName: "Admin", Role: models.RoleAdmin})
	svc := newAuthService(repo)

	login, err := svc.Login(context.Background(), models.LoginRequest{UserID: "a1", Password: "secret1"})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(login.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "a1", claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	_, err = svc.ValidateToken(login.AccessToken + "tampered")
	require.Error(t, err)
}

func TestEnsureAdminSeedsOnce(t *testing.T) {
	repo := newMockAuthRepo()
	svc := newAuthService(repo)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin", "admin123"))
	first := repo.users[models.RoleAdmin]["admin"]
	require.NotNil(t, first)

	require.NoError(t, svc.EnsureAdmin(context.Background(), "admin", "otherpass"))
	assert.Equal(t, first.PasswordHash, repo.users[models.RoleAdmin]["admin"].PasswordHash)
}
