package httputil

import (
	"encoding/json"
	"net/http"

	apperrors "github.com/agenthive/proxy-server-go/internal/errors"
)

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// ErrorResponse is the standard error response format for management endpoints
type ErrorResponse struct {
	Error   string              `json:"error"`
	Code    apperrors.ErrorCode `json:"code"`
	Details any                 `json:"details,omitempty"`
}

// WriteError writes an AppError as an HTTP response with appropriate status code
func WriteError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal("An unexpected error occurred")
	}

	WriteJSON(w, StatusFromCode(appErr.Code), ErrorResponse{
		Error:   appErr.Message,
		Code:    appErr.Code,
		Details: appErr.Details,
	})
}

// proxyErrorEnvelope mirrors the upstream provider's error shape so provider
// SDK clients can parse proxy-detected failures without special casing.
type proxyErrorEnvelope struct {
	Type  string `json:"type"`
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// WriteProxyError writes err in the upstream-compatible envelope
// {"type":"error","error":{"type":...,"message":...}}.
func WriteProxyError(w http.ResponseWriter, err error) {
	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		appErr = apperrors.Internal("An unexpected error occurred")
	}

	var envelope proxyErrorEnvelope
	envelope.Type = "error"
	envelope.Error.Type = ProxyTypeFromCode(appErr.Code)
	envelope.Error.Message = appErr.Message

	WriteJSON(w, StatusFromCode(appErr.Code), envelope)
}

// ProxyTypeFromCode maps ErrorCode to the upstream provider's error category.
func ProxyTypeFromCode(code apperrors.ErrorCode) string {
	switch code {
	case apperrors.ErrCodeMissingKey,
		apperrors.ErrCodeUnauthorized,
		apperrors.ErrCodeForbidden,
		apperrors.ErrCodeInvalidLicenseKey,
		apperrors.ErrCodeLicenseNotActive,
		apperrors.ErrCodeLicenseExpired,
		apperrors.ErrCodePeriodLimitReached,
		apperrors.ErrCodeAgentMissing,
		apperrors.ErrCodePlanMissing:
		return "authentication_error"

	case apperrors.ErrCodeInsufficientCredits:
		return "payment_required"

	case apperrors.ErrCodeNoAPIKey,
		apperrors.ErrCodeKeyDecryptFailed:
		return "invalid_request_error"

	case apperrors.ErrCodeUpstreamTimeout,
		apperrors.ErrCodeUpstreamUnreachable:
		return "api_error"

	case apperrors.ErrCodeRateLimitExceeded:
		return "rate_limit_error"

	default:
		return "api_error"
	}
}

// StatusFromCode maps ErrorCode to HTTP status code
func StatusFromCode(code apperrors.ErrorCode) int {
	switch code {
	// 400 Bad Request
	case apperrors.ErrCodeValidation,
		apperrors.ErrCodeInvalidInput,
		apperrors.ErrCodeMissingRequired,
		apperrors.ErrCodeNoAPIKey:
		return http.StatusBadRequest

	// 401 Unauthorized
	case apperrors.ErrCodeUnauthorized,
		apperrors.ErrCodeMissingKey:
		return http.StatusUnauthorized

	// 402 Payment Required
	case apperrors.ErrCodeInsufficientCredits:
		return http.StatusPaymentRequired

	// 403 Forbidden
	case apperrors.ErrCodeForbidden,
		apperrors.ErrCodeInvalidLicenseKey,
		apperrors.ErrCodeLicenseNotActive,
		apperrors.ErrCodeLicenseExpired,
		apperrors.ErrCodePeriodLimitReached,
		apperrors.ErrCodeAgentMissing,
		apperrors.ErrCodePlanMissing:
		return http.StatusForbidden

	// 404 Not Found
	case apperrors.ErrCodeNotFound:
		return http.StatusNotFound

	// 409 Conflict
	case apperrors.ErrCodeConflict:
		return http.StatusConflict

	// 429 Too Many Requests
	case apperrors.ErrCodeRateLimitExceeded:
		return http.StatusTooManyRequests

	// 502 Bad Gateway
	case apperrors.ErrCodeUpstreamUnreachable:
		return http.StatusBadGateway

	// 504 Gateway Timeout
	case apperrors.ErrCodeUpstreamTimeout:
		return http.StatusGatewayTimeout

	// 500 Internal Server Error
	case apperrors.ErrCodeInternal,
		apperrors.ErrCodeDatabase,
		apperrors.ErrCodeKeyDecryptFailed:
		return http.StatusInternalServerError

	default:
		return http.StatusInternalServerError
	}
}
