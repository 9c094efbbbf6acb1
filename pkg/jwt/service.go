package jwt

import (
	"time"
)

// Service is a wrapper for JWT operations bound to one secret
type Service struct {
	secretKey string
	expiry    time.Duration
}

// NewService creates a new JWT service
func NewService(secretKey string, expiry time.Duration) *Service {
	if secretKey == "" {
		secretKey = getSecretKey()
	}

	if expiry == 0 {
		expiry = 24 * time.Hour
	}

	return &Service{
		secretKey: secretKey,
		expiry:    expiry,
	}
}

// GenerateToken generates a JWT token for a user
func (s *Service) GenerateToken(subject Subject) (string, error) {
	return GenerateToken(subject, s.secretKey, s.expiry)
}

// ValidateToken validates a JWT token and returns the claims
func (s *Service) ValidateToken(tokenString string) (*JWTClaims, error) {
	return ValidateToken(tokenString, s.secretKey)
}

// Expiry is the lifetime of issued tokens.
func (s *Service) Expiry() time.Duration {
	return s.expiry
}
