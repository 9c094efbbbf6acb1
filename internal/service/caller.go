package service

import (
	"faqdesk/backend/pkg/jwt"
)

// Caller identifies who is performing an operation. Handlers build it from
// the authenticated token.
type Caller struct {
	UserID      uint
	DisplayName string
	Role        jwt.Role
}

// CallerFromClaims converts token claims into a Caller.
func CallerFromClaims(claims *jwt.JWTClaims) Caller {
	return Caller{
		UserID:      claims.UserID,
		DisplayName: claims.DisplayName,
		Role:        claims.Role,
	}
}

// IsStaff reports whether the caller may act on other users' conversations.
func (c Caller) IsStaff() bool {
	return c.Role.AtLeast(jwt.RoleStaff)
}

// CanAccessUser reports whether the caller may read userID's data.
func (c Caller) CanAccessUser(userID uint) bool {
	return c.UserID == userID || c.IsStaff()
}
