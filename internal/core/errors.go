// AngelaMos | 2026
// errors.go

package core

import (
	"errors"
	"net/http"
)

var (
	ErrNotFound               = errors.New("resource not found")
	ErrOwnershipMismatch      = errors.New("resource owned by another tenant")
	ErrScopeMismatch          = errors.New("credential not scoped to resource")
	ErrDuplicateKey           = errors.New("duplicate key")
	ErrInvalidInput           = errors.New("invalid input")
	ErrUnauthorized           = errors.New("unauthorized")
	ErrAuthenticationRequired = errors.New("authentication required")
	ErrInvalidCredentials     = errors.New("invalid credentials")
	ErrForbidden              = errors.New("forbidden")
	ErrTokenExpired           = errors.New("token expired")
	ErrTokenInvalid           = errors.New("token invalid")
	ErrTokenRevoked           = errors.New("token revoked")
	ErrAccountLocked          = errors.New("account locked")
	ErrSubscriptionInactive   = errors.New("subscription inactive")
	ErrOriginNotAllowed       = errors.New("origin not allowed")
	ErrQuotaExceeded          = errors.New("monthly quota exceeded")
	ErrRateLimited            = errors.New("rate limited")
	ErrServerMisconfigured    = errors.New("server misconfiguration")
)

type AppError struct {
	Err        error  `json:"-"`
	Message    string `json:"error"`
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
}

func NewAppError(err error, message string, status int, code string) *AppError {
	return &AppError{
		Err:        err,
		Message:    message,
		StatusCode: status,
		Code:       code,
	}
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func UnauthorizedError(message string) *AppError {
	if message == "" {
		message = "authentication required"
	}
	return NewAppError(ErrUnauthorized, message, http.StatusUnauthorized, "UNAUTHORIZED")
}

func ForbiddenError(message string) *AppError {
	if message == "" {
		message = "access denied"
	}
	return NewAppError(ErrForbidden, message, http.StatusForbidden, "FORBIDDEN")
}


func DuplicateError(field string) *AppError {
	return NewAppError(
		ErrDuplicateKey,
		field+" already exists",
		http.StatusConflict,
		"CONFLICT",
	)
}

func ValidationError(message string) *AppError {
	return NewAppError(ErrInvalidInput, message, http.StatusBadRequest, "VALIDATION_ERROR")
}

type errorMapping struct {
	target  error
	status  int
	code    string
	message string
}

// Order matters: more specific sentinels first.
var errorMappings = []errorMapping{
	{ErrServerMisconfigured, http.StatusInternalServerError, "SERVER_MISCONFIGURATION", "server misconfiguration"},
	{ErrAccountLocked, http.StatusForbidden, "ACCOUNT_LOCKED", "account is temporarily locked"},
	{ErrSubscriptionInactive, http.StatusForbidden, "SUBSCRIPTION_INACTIVE", "subscription is not active"},
	{ErrOriginNotAllowed, http.StatusForbidden, "ORIGIN_NOT_ALLOWED", "origin not allowed"},
	{ErrScopeMismatch, http.StatusForbidden, "FORBIDDEN", "access denied"},
	{ErrForbidden, http.StatusForbidden, "FORBIDDEN", "access denied"},
	{ErrOwnershipMismatch, http.StatusNotFound, "NOT_FOUND", "resource not found"},
	{ErrNotFound, http.StatusNotFound, "NOT_FOUND", "resource not found"},
	{ErrTokenExpired, http.StatusUnauthorized, "TOKEN_EXPIRED", "token has expired"},
	{ErrTokenRevoked, http.StatusUnauthorized, "TOKEN_REVOKED", "token has been revoked"},
	{ErrTokenInvalid, http.StatusUnauthorized, "TOKEN_INVALID", "invalid token"},
	{ErrInvalidCredentials, http.StatusUnauthorized, "INVALID_CREDENTIALS", "invalid email or password"},
	{ErrAuthenticationRequired, http.StatusUnauthorized, "UNAUTHORIZED", "authentication required"},
	{ErrUnauthorized, http.StatusUnauthorized, "UNAUTHORIZED", "unauthorized"},
	{ErrDuplicateKey, http.StatusConflict, "CONFLICT", "resource already exists"},
	{ErrInvalidInput, http.StatusBadRequest, "VALIDATION_ERROR", "invalid input"},
	{ErrQuotaExceeded, http.StatusTooManyRequests, "QUOTA_EXCEEDED", "monthly request quota exceeded"},
	{ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED", "too many requests"},
}

// ToAppError classifies err by the first sentinel it wraps. Messages of
// wrapped errors never reach the client; only the canonical message does.
func ToAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return NewAppError(err, m.message, m.status, m.code)
		}
	}

	return NewAppError(err, "internal server error", http.StatusInternalServerError, "INTERNAL_ERROR")
}

// IsAccessDenial reports whether err classifies as a client-side refusal
// rather than a server fault.
func IsAccessDenial(err error) bool {
	status := ToAppError(err).StatusCode
	return status >= 400 && status < 500
}
