package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Authentication & Authorization
	ErrCodeUnauthorized ErrorCode = "UNAUTHORIZED"
	ErrCodeForbidden    ErrorCode = "FORBIDDEN"
	ErrCodeMissingKey   ErrorCode = "MISSING_LICENSE_KEY"

	// License validation
	ErrCodeInvalidLicenseKey  ErrorCode = "INVALID_LICENSE_KEY"
	ErrCodeLicenseNotActive   ErrorCode = "LICENSE_NOT_ACTIVE"
	ErrCodeLicenseExpired     ErrorCode = "LICENSE_EXPIRED"
	ErrCodePeriodLimitReached ErrorCode = "PERIOD_LIMIT_REACHED"
	ErrCodeAgentMissing       ErrorCode = "AGENT_MISSING"
	ErrCodePlanMissing        ErrorCode = "PLAN_MISSING"

	// Billing
	ErrCodeInsufficientCredits ErrorCode = "INSUFFICIENT_CREDITS"

	// Upstream configuration & transport
	ErrCodeNoAPIKey            ErrorCode = "NO_API_KEY"
	ErrCodeKeyDecryptFailed    ErrorCode = "KEY_DECRYPT_FAILED"
	ErrCodeUpstreamTimeout     ErrorCode = "UPSTREAM_TIMEOUT"
	ErrCodeUpstreamUnreachable ErrorCode = "UPSTREAM_UNREACHABLE"

	// Validation
	ErrCodeValidation      ErrorCode = "VALIDATION_ERROR"
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED"

	// Resource
	ErrCodeNotFound ErrorCode = "NOT_FOUND"
	ErrCodeConflict ErrorCode = "CONFLICT"

	// Rate Limiting
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"

	// Internal
	ErrCodeInternal ErrorCode = "INTERNAL_ERROR"
	ErrCodeDatabase ErrorCode = "DATABASE_ERROR"
)

// AppError is a structured error that can be returned to clients
type AppError struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Details any       `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithCause adds a cause to the error
func (e *AppError) WithCause(err error) *AppError {
	e.cause = err
	return e
}

// New creates a new AppError
func New(code ErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an existing error with an AppError
func Wrap(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		cause:   cause,
	}
}

// Common error constructors

func Unauthorized(message string) *AppError {
	return New(ErrCodeUnauthorized, message)
}

func Forbidden(message string) *AppError {
	return New(ErrCodeForbidden, message)
}

func MissingKey() *AppError {
	return New(ErrCodeMissingKey,
		"Invalid or missing license key. Use your license key as the x-api-key header.")
}

func InvalidLicenseKey() *AppError {
	return New(ErrCodeInvalidLicenseKey, "Invalid license key")
}

func LicenseNotActive(status string) *AppError {
	return New(ErrCodeLicenseNotActive, fmt.Sprintf("License is %s", status))
}

func LicenseExpired() *AppError {
	return New(ErrCodeLicenseExpired, "License has expired")
}

func PeriodLimitReached(kind string) *AppError {
	return New(ErrCodePeriodLimitReached, fmt.Sprintf("%s limit reached for this billing period", kind))
}

func AgentMissing() *AppError {
	return New(ErrCodeAgentMissing, "Agent not found")
}

func PlanMissing() *AppError {
	return New(ErrCodePlanMissing, "License plan not found")
}

func InsufficientCredits(need, have int64) *AppError {
	return New(ErrCodeInsufficientCredits,
		fmt.Sprintf("Insufficient credits. Need %d, have %d. Top up at /credits.", need, have))
}

func NoAPIKey() *AppError {
	return New(ErrCodeNoAPIKey, "Agent has no API key configured. Contact the agent creator.")
}

func KeyDecryptFailed() *AppError {
	return New(ErrCodeKeyDecryptFailed, "Failed to decrypt agent API key. Contact the agent creator.")
}

func UpstreamTimeout() *AppError {
	return New(ErrCodeUpstreamTimeout, "Request timed out")
}

func UpstreamUnreachable() *AppError {
	return New(ErrCodeUpstreamUnreachable, "Failed to reach upstream API")
}

func NotFound(resource string) *AppError {
	return New(ErrCodeNotFound, fmt.Sprintf("%s not found", resource))
}

func ValidationError(message string) *AppError {
	return New(ErrCodeValidation, message)
}

func InvalidInput(field string, reason string) *AppError {
	return New(ErrCodeInvalidInput, fmt.Sprintf("Invalid %s: %s", field, reason))
}

func MissingRequired(field string) *AppError {
	return New(ErrCodeMissingRequired, fmt.Sprintf("%s is required", field))
}

func RateLimitExceeded() *AppError {
	return New(ErrCodeRateLimitExceeded, "Rate limit exceeded")
}

func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
}

func Database(cause error) *AppError {
	return Wrap(ErrCodeDatabase, "Database error", cause)
}

// IsAppError checks if an error is an AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// GetCode returns the error code if the error is an AppError, otherwise returns ErrCodeInternal
func GetCode(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ErrCodeInternal
}
