package models

import (
	"time"

	"faqdesk/backend/pkg/jwt"

	"golang.org/x/crypto/bcrypt"
)

// MaxLoginAttempts locks an account after this many consecutive failures.
const MaxLoginAttempts = 5

// User is anyone who talks to the helpdesk, registered or not
type User struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	Identifier    string     `gorm:"size:100;uniqueIndex;not null" json:"identifier"`
	DisplayName   string     `gorm:"size:100" json:"display_name"`
	IsAnonymous   bool       `gorm:"not null" json:"is_anonymous"`
	LoginID       *string    `gorm:"size:50;uniqueIndex" json:"login_id,omitempty"`
	PasswordHash  string     `gorm:"size:255" json:"-"`
	Role          string     `gorm:"size:20;not null" json:"role"`
	Department    string     `gorm:"size:100" json:"department,omitempty"`
	LoginAttempts int        `gorm:"not null" json:"-"`
	IsLocked      bool       `gorm:"not null" json:"is_locked"`
	QuestionCount int        `gorm:"not null" json:"question_count"`
	LastLogin     *time.Time `json:"last_login,omitempty"`
	LastActivity  time.Time  `json:"last_activity"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Name is the label shown next to the user's messages.
func (u *User) Name() string {
	if u.DisplayName != "" {
		return u.DisplayName
	}
	return u.Identifier
}

// JWTRole returns the user's role, defaulting to user.
func (u *User) JWTRole() jwt.Role {
	if r, ok := jwt.ParseRole(u.Role); ok {
		return r
	}
	return jwt.RoleUser
}

// Subject converts the user into token claims.
func (u *User) Subject() jwt.Subject {
	s := jwt.Subject{UserID: u.ID, DisplayName: u.Name(), Role: u.JWTRole()}
	if u.LoginID != nil {
		s.LoginID = *u.LoginID
	}
	return s
}

// StaffMember is the staff profile attached to a user who answers escalations
type StaffMember struct {
	ID             uint       `gorm:"primaryKey" json:"id"`
	UserID         uint       `gorm:"uniqueIndex;not null" json:"user_id"`
	StaffID        string     `gorm:"size:50;uniqueIndex;not null" json:"staff_id"`
	Name           string     `gorm:"size:100;not null" json:"name"`
	Department     string     `gorm:"size:100" json:"department,omitempty"`
	Role           string     `gorm:"size:20;not null" json:"role"`
	IsActive       bool       `gorm:"not null" json:"is_active"`
	ResponsesCount int        `gorm:"not null" json:"responses_count"`
	LastResponseAt *time.Time `json:"last_response_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// RecordResponse counts one more answered escalation.
func (s *StaffMember) RecordResponse(at time.Time) {
	s.ResponsesCount++
	s.LastResponseAt = &at
}

// SignupRequest registers a user with a login id and password
type SignupRequest struct {
	LoginID     string `json:"login_id" binding:"required,min=3,max=50"`
	Password    string `json:"password" binding:"required,min=8"`
	DisplayName string `json:"display_name" binding:"max=100"`
	Department  string `json:"department" binding:"max=100"`
}

// LoginRequest is the request structure for user login
type LoginRequest struct {
	LoginID  string `json:"login_id" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// GuestRequest identifies an anonymous user
type GuestRequest struct {
	DisplayName string `json:"display_name" binding:"max=100"`
	Department  string `json:"department" binding:"max=100"`
}

// UpdateRoleRequest changes a user's role
type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user staff admin"`
}

// CreateStaffRequest attaches a staff profile to an existing user
type CreateStaffRequest struct {
	UserID     uint   `json:"user_id" binding:"required"`
	StaffID    string `json:"staff_id" binding:"required,max=50"`
	Name       string `json:"name" binding:"required,max=100"`
	Department string `json:"department" binding:"max=100"`
}

// HashPassword hashes a password for storage
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash compares a password with a hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}
