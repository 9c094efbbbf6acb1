// Package api holds the HTTP handlers of the helpdesk.
package api

import (
	stderrors "errors"
	"strconv"

	"faqdesk/backend/internal/search"
	"faqdesk/backend/internal/service"
	"faqdesk/backend/pkg/errors"
	"faqdesk/backend/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// fail records err on the context, translated into an AppError, and stops
// the handler chain. The error middleware renders it.
func fail(c *gin.Context, err error) {
	c.Error(toAppError(err))
	c.Abort()
}

func toAppError(err error) *errors.AppError {
	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		return appErr
	}

	switch {
	case stderrors.Is(err, service.ErrEmptyMessage),
		stderrors.Is(err, service.ErrEmptyResponse),
		stderrors.Is(err, service.ErrInvalidFAQ),
		stderrors.Is(err, service.ErrInvalidRating),
		stderrors.Is(err, service.ErrInvalidStatus),
		stderrors.Is(err, service.ErrInvalidRole),
		stderrors.Is(err, service.ErrNotRateable),
		stderrors.Is(err, service.ErrUnsupportedFormat),
		stderrors.Is(err, service.ErrEmptyImport),
		stderrors.Is(err, service.ErrInvalidDuration),
		stderrors.Is(err, search.ErrEmptyQuery):
		return errors.NewBadRequestError(errors.CodeValidation, err.Error())
	case stderrors.Is(err, service.ErrUserNotFound),
		stderrors.Is(err, service.ErrFAQNotFound),
		stderrors.Is(err, service.ErrMessageNotFound),
		stderrors.Is(err, service.ErrEscalationNotFound):
		return errors.NewNotFoundError(errors.CodeNotFound, err.Error())
	case stderrors.Is(err, service.ErrForbidden):
		return errors.NewForbiddenError(errors.CodeForbidden, "You are not allowed to access this resource")
	case stderrors.Is(err, service.ErrUserAlreadyExists),
		stderrors.Is(err, service.ErrStaffAlreadyExists):
		return errors.NewConflictError(errors.CodeConflict, err.Error())
	case stderrors.Is(err, service.ErrInvalidCredentials):
		return errors.NewUnauthorizedError(errors.CodeUnauthorized, err.Error())
	case stderrors.Is(err, service.ErrAccountLocked):
		return errors.NewLockedError(errors.CodeLocked, "The account is locked after too many failed logins")
	}
	return errors.FromError(err)
}

// bindJSON decodes the request body into req, rejecting it on failure.
func bindJSON(c *gin.Context, req any) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.Error(errors.BadRequestWithDetails(errors.CodeValidation, "Invalid request format", err.Error()))
		c.Abort()
		return false
	}
	return true
}

// paramID parses a positive numeric path parameter.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		c.Error(errors.NewBadRequestError(errors.CodeValidation, name+" must be a positive integer"))
		c.Abort()
		return 0, false
	}
	return uint(id), true
}

// queryUint parses an optional numeric query parameter; absent means zero.
func queryUint(c *gin.Context, name string) (uint, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		c.Error(errors.NewBadRequestError(errors.CodeValidation, name+" must be a non-negative integer"))
		c.Abort()
		return 0, false
	}
	return uint(v), true
}

// caller returns the authenticated caller set by the JWT middleware.
func caller(c *gin.Context) (service.Caller, bool) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		c.Error(errors.NewUnauthorizedError(errors.CodeUnauthorized, "Authentication required"))
		c.Abort()
		return service.Caller{}, false
	}
	return service.CallerFromClaims(claims), true
}
