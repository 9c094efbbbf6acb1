package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"faqdesk/backend/internal/models"
	"faqdesk/backend/internal/repository"
	"faqdesk/backend/pkg/jwt"
	"faqdesk/backend/pkg/logger"

	"github.com/google/uuid"
)

const guestIdentifierAttempts = 3

// AuthResult is returned by the operations that issue a token
type AuthResult struct {
	User      *models.User `json:"user"`
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
}

// UserService handles accounts, logins and staff profiles
type UserService struct {
	store repository.Store
	jwt   *jwt.Service
	log   *logger.Logger
	now   func() time.Time
}

// NewUserService creates a new user service
func NewUserService(store repository.Store, jwtService *jwt.Service, log *logger.Logger) *UserService {
	if log == nil {
		log = logger.GetGlobal()
	}
	return &UserService{
		store: store,
		jwt:   jwtService,
		log:   log,
		now:   time.Now,
	}
}

func (s *UserService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.jwt.GenerateToken(user.Subject())
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &AuthResult{
		User:      user,
		Token:     token,
		ExpiresAt: s.now().Add(s.jwt.Expiry()),
	}, nil
}

// Signup registers a user with a login id and password
func (s *UserService) Signup(ctx context.Context, req *models.SignupRequest) (*AuthResult, error) {
	loginID := strings.TrimSpace(req.LoginID)
	if loginID == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	hash, err := models.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	user := &models.User{
		Identifier:   loginID,
		DisplayName:  strings.TrimSpace(req.DisplayName),
		LoginID:      &loginID,
		PasswordHash: hash,
		Role:         string(jwt.RoleUser),
		Department:   strings.TrimSpace(req.Department),
		LastActivity: now,
	}
	if user.DisplayName == "" {
		user.DisplayName = loginID
	}

	if err := s.store.Users().Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUserAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("User registered", "user_id", user.ID, "login_id", loginID)
	return s.issue(user)
}

// Login checks a password and issues a token. Accounts lock after
// MaxLoginAttempts consecutive failures.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*AuthResult, error) {
	user, err := s.store.Users().GetByLoginID(ctx, strings.TrimSpace(req.LoginID))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("load user: %w", err)
	}
	if user.IsLocked {
		return nil, ErrAccountLocked
	}

	now := s.now()
	if !models.CheckPasswordHash(req.Password, user.PasswordHash) {
		user.LoginAttempts++
		if user.LoginAttempts >= models.MaxLoginAttempts {
			user.IsLocked = true
			s.log.Warn("Account locked after failed logins", "user_id", user.ID, "attempts", user.LoginAttempts)
		}
		if err := s.store.Users().Save(ctx, user); err != nil {
			return nil, fmt.Errorf("record failed login: %w", err)
		}
		if user.IsLocked {
			return nil, ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}

	user.LoginAttempts = 0
	user.LastLogin = &now
	user.LastActivity = now
	if err := s.store.Users().Save(ctx, user); err != nil {
		return nil, fmt.Errorf("record login: %w", err)
	}
	return s.issue(user)
}

// IdentifyGuest creates an anonymous user and issues a token for it
func (s *UserService) IdentifyGuest(ctx context.Context, req *models.GuestRequest) (*AuthResult, error) {
	now := s.now()
	user := &models.User{
		DisplayName:  strings.TrimSpace(req.DisplayName),
		IsAnonymous:  true,
		Role:         string(jwt.RoleUser),
		Department:   strings.TrimSpace(req.Department),
		LastActivity: now,
	}

	var err error
	for attempt := 0; attempt < guestIdentifierAttempts; attempt++ {
		user.Identifier = "guest_" + strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
		if err = s.store.Users().Create(ctx, user); !errors.Is(err, repository.ErrDuplicate) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("create guest: %w", err)
	}
	return s.issue(user)
}

// GetByID returns a user
func (s *UserService) GetByID(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.store.Users().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return user, err
}

// UpdateRole changes a user's role
func (s *UserService) UpdateRole(ctx context.Context, id uint, role string) (*models.User, error) {
	r, ok := jwt.ParseRole(role)
	if !ok {
		return nil, ErrInvalidRole
	}

	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.Role = string(r)
	if err := s.store.Users().Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	s.log.Info("User role updated", "user_id", id, "role", r)
	return user, nil
}

// Unlock clears the failed login counter of a locked account
func (s *UserService) Unlock(ctx context.Context, id uint) (*models.User, error) {
	user, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	user.IsLocked = false
	user.LoginAttempts = 0
	if err := s.store.Users().Save(ctx, user); err != nil {
		return nil, fmt.Errorf("save user: %w", err)
	}
	return user, nil
}

// CreateStaff attaches a staff profile to a user and promotes them to staff
func (s *UserService) CreateStaff(ctx context.Context, req *models.CreateStaffRequest) (*models.StaffMember, error) {
	var staff *models.StaffMember
	err := s.store.Transaction(ctx, func(tx repository.Store) error {
		user, err := tx.Users().GetByID(ctx, req.UserID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrUserNotFound
		}
		if err != nil {
			return fmt.Errorf("load user: %w", err)
		}

		if !user.JWTRole().AtLeast(jwt.RoleStaff) {
			user.Role = string(jwt.RoleStaff)
			if err := tx.Users().Save(ctx, user); err != nil {
				return fmt.Errorf("promote user: %w", err)
			}
		}

		staff = &models.StaffMember{
			UserID:     user.ID,
			StaffID:    strings.TrimSpace(req.StaffID),
			Name:       strings.TrimSpace(req.Name),
			Department: strings.TrimSpace(req.Department),
			Role:       user.Role,
			IsActive:   true,
			CreatedAt:  s.now(),
		}
		if err := tx.Staff().Create(ctx, staff); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrStaffAlreadyExists
			}
			return fmt.Errorf("create staff: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return staff, nil
}

// ListStaff returns every staff profile
func (s *UserService) ListStaff(ctx context.Context) ([]models.StaffMember, error) {
	staff, err := s.store.Staff().List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list staff: %w", err)
	}
	if staff == nil {
		staff = []models.StaffMember{}
	}
	return staff, nil
}

// EnsureAdmin creates an admin account with loginID unless one exists.
// It reports whether an account was created.
func (s *UserService) EnsureAdmin(ctx context.Context, loginID, password, name string) (bool, error) {
	loginID = strings.TrimSpace(loginID)
	if loginID == "" || password == "" {
		return false, nil
	}

	_, err := s.store.Users().GetByLoginID(ctx, loginID)
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("load admin: %w", err)
	}

	hash, err := models.HashPassword(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	if name == "" {
		name = loginID
	}
	admin := &models.User{
		Identifier:   loginID,
		DisplayName:  name,
		LoginID:      &loginID,
		PasswordHash: hash,
		Role:         string(jwt.RoleAdmin),
		LastActivity: s.now(),
	}
	if err := s.store.Users().Create(ctx, admin); err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	s.log.Info("Admin account created", "user_id", admin.ID, "login_id", loginID)
	return true, nil
}
