package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"faqdesk/backend/internal/models"
	"faqdesk/backend/internal/repository"
	"faqdesk/backend/pkg/jwt"
	"faqdesk/backend/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newUserService(store repository.Store) *UserService {
	return NewUserService(store, jwt.NewService("test-secret", time.Hour), logger.Discard())
}

func TestSignupAndLogin(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newUserService(store)

	res, err := svc.Signup(ctx, &models.SignupRequest{LoginID: "tanaka", Password: "password123", DisplayName: "田中"})
	require.NoError(t, err)
	assert.NotEmpty(t, res.Token)
	assert.Equal(t, "tanaka", res.User.Identifier)
	assert.Equal(t, string(jwt.RoleUser), res.User.Role)
	assert.NotEqual(t, "password123", res.User.PasswordHash)

	claims, err := jwt.NewService("test-secret", time.Hour).ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.User.ID, claims.UserID)
	assert.Equal(t, "田中", claims.DisplayName)

	_, err = svc.Signup(ctx, &models.SignupRequest{LoginID: "tanaka", Password: "password456"})
	assert.ErrorIs(t, err, ErrUserAlreadyExists)

	login, err := svc.Login(ctx, &models.LoginRequest{LoginID: "tanaka", Password: "password123"})
	require.NoError(t, err)
	assert.NotNil(t, login.User.LastLogin)

	_, err = svc.Login(ctx, &models.LoginRequest{LoginID: "nobody", Password: "password123"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestLoginLocksAfterRepeatedFailures(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newUserService(store)

	res, err := svc.Signup(ctx, &models.SignupRequest{LoginID: "tanaka", Password: "password123"})
	require.NoError(t, err)

	for i := 1; i < models.MaxLoginAttempts; i++ {
		_, err = svc.Login(ctx, &models.LoginRequest{LoginID: "tanaka", Password: "wrong"})
		require.ErrorIs(t, err, ErrInvalidCredentials, "attempt %d", i)
	}
	_, err = svc.Login(ctx, &models.LoginRequest{LoginID: "tanaka", Password: "wrong"})
	assert.ErrorIs(t, err, ErrAccountLocked)

	_, err = svc.Login(ctx, &models.LoginRequest{LoginID: "tanaka", Password: "password123"})
	assert.ErrorIs(t, err, ErrAccountLocked)

	_, err = svc.Unlock(ctx, res.User.ID)
	require.NoError(t, err)
	_, err = svc.Login(ctx, &models.LoginRequest{LoginID: "tanaka", Password: "password123"})
	assert.NoError(t, err)
}

func TestLoginResetsAttemptsOnSuccess(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newUserService(store)

	res, err := svc.Signup(ctx, &models.SignupRequest{LoginID: "tanaka", Password: "password123"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, &models.LoginRequest{LoginID: "tanaka", Password: "wrong"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, &models.LoginRequest{LoginID: "tanaka", Password: "password123"})
	require.NoError(t, err)

	user, err := store.Users().GetByID(ctx, res.User.ID)
	require.NoError(t, err)
	assert.Zero(t, user.LoginAttempts)
	assert.False(t, user.IsLocked)
}

func TestIdentifyGuest(t *testing.T) {
	ctx := context.Background()
	svc := newUserService(repository.NewMemoryStore())

	first, err := svc.IdentifyGuest(ctx, &models.GuestRequest{DisplayName: "来客"})
	require.NoError(t, err)
	second, err := svc.IdentifyGuest(ctx, &models.GuestRequest{})
	require.NoError(t, err)

	assert.True(t, first.User.IsAnonymous)
	assert.True(t, strings.HasPrefix(first.User.Identifier, "guest_"))
	assert.Len(t, first.User.Identifier, len("guest_")+8)
	assert.NotEqual(t, first.User.Identifier, second.User.Identifier)
	assert.Equal(t, "来客", first.User.Name())
	assert.Equal(t, second.User.Identifier, second.User.Name())
	assert.NotEmpty(t, first.Token)
}

func TestUpdateRole(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newUserService(store)
	caller := createUser(t, store, "hanako", jwt.RoleUser)

	user, err := svc.UpdateRole(ctx, caller.UserID, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", user.Role)

	_, err = svc.UpdateRole(ctx, caller.UserID, "root")
	assert.ErrorIs(t, err, ErrInvalidRole)
	_, err = svc.UpdateRole(ctx, 999, "staff")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestCreateStaffPromotesUser(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newUserService(store)
	caller := createUser(t, store, "hanako", jwt.RoleUser)

	staff, err := svc.CreateStaff(ctx, &models.CreateStaffRequest{UserID: caller.UserID, StaffID: "S-001", Name: "Hanako", Department: "総務"})
	require.NoError(t, err)
	assert.True(t, staff.IsActive)
	assert.Equal(t, string(jwt.RoleStaff), staff.Role)

	user, err := store.Users().GetByID(ctx, caller.UserID)
	require.NoError(t, err)
	assert.Equal(t, string(jwt.RoleStaff), user.Role)

	_, err = svc.CreateStaff(ctx, &models.CreateStaffRequest{UserID: caller.UserID, StaffID: "S-002", Name: "x"})
	assert.ErrorIs(t, err, ErrStaffAlreadyExists)
	_, err = svc.CreateStaff(ctx, &models.CreateStaffRequest{UserID: 999, StaffID: "S-003", Name: "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)

	list, err := svc.ListStaff(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	svc := newUserService(store)

	created, err := svc.EnsureAdmin(ctx, "", "secret", "")
	require.NoError(t, err)
	assert.False(t, created)

	created, err = svc.EnsureAdmin(ctx, "admin", "admin-password", "")
	require.NoError(t, err)
	assert.True(t, created)

	created, err = svc.EnsureAdmin(ctx, "admin", "admin-password", "")
	require.NoError(t, err)
	assert.False(t, created)

	res, err := svc.Login(ctx, &models.LoginRequest{LoginID: "admin", Password: "admin-password"})
	require.NoError(t, err)
	assert.Equal(t, jwt.RoleAdmin, res.User.JWTRole())
}
