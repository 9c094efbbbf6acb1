package service

import (
	"errors"
)

// Validation errors: the request is rejected and nothing is written.
var (
	ErrEmptyMessage      = errors.New("message is empty")
	ErrEmptyResponse     = errors.New("response is empty")
	ErrInvalidFAQ        = errors.New("invalid faq")
	ErrInvalidRating     = errors.New("rating must be between 1 and 5")
	ErrInvalidStatus     = errors.New("unknown escalation status")
	ErrInvalidRole       = errors.New("the provided role is invalid")
	ErrNotRateable       = errors.New("only bot and staff messages can be rated")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrEmptyImport       = errors.New("no importable rows")
	ErrInvalidDuration   = errors.New("duration must be positive")
)

// Lookup and access errors.
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrFAQNotFound        = errors.New("faq not found")
	ErrMessageNotFound    = errors.New("message not found")
	ErrEscalationNotFound = errors.New("escalation not found")
	ErrForbidden          = errors.New("not allowed")
)

// Account errors.
var (
	ErrUserAlreadyExists  = errors.New("user with this login id already exists")
	ErrStaffAlreadyExists = errors.New("staff profile already exists")
	ErrInvalidCredentials = errors.New("invalid login id or password")
	ErrAccountLocked      = errors.New("account is locked")
)
