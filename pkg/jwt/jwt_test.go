package jwt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestServiceRoundTrip(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	token, err := svc.GenerateToken(Subject{UserID: 7, LoginID: "taro", DisplayName: "Taro", Role: RoleStaff})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, uint(7), claims.UserID)
	assert.Equal(t, "taro", claims.LoginID)
	assert.Equal(t, RoleStaff, claims.Role)
}

func TestValidateTokenRejectsOtherSecret(t *testing.T) {
	token, err := NewService("secret-a", time.Hour).GenerateToken(Subject{UserID: 1})
	require.NoError(t, err)

	_, err = NewService("secret-b", time.Hour).ValidateToken(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateTokenExpired(t *testing.T) {
	token, err := GenerateToken(Subject{UserID: 1}, "s", -time.Minute)
	require.NoError(t, err)

	_, err = ValidateToken(token, "s")
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestRolesAndPermissions(t *testing.T) {
	user := &JWTClaims{Role: RoleUser}
	staff := &JWTClaims{Role: RoleStaff}
	admin := &JWTClaims{Role: RoleAdmin}

	assert.True(t, user.HasPermission(PermissionChatSend))
	assert.False(t, user.HasPermission(PermissionEscalationManage))
	assert.True(t, staff.HasPermission(PermissionEscalationManage))
	assert.False(t, staff.HasPermission(PermissionUserManage))
	assert.True(t, admin.HasPermission(PermissionUserManage))

	assert.True(t, admin.HasRole(RoleStaff))
	assert.False(t, user.HasRole(RoleStaff))

	_, ok := ParseRole("superuser")
	assert.False(t, ok)
}
