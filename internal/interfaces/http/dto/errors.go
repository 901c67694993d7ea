package dto

import "net/http"

// Error codes, format ERR_<CATEGORY>.
const (
	ErrCodeInternal = "ERR_INTERNAL"

	// Gateway failures
	ErrCodeConfiguration = "ERR_CONFIGURATION"
	ErrCodeDataFetch     = "ERR_DATA_FETCH"
	ErrCodeMutation      = "ERR_MUTATION"
	ErrCodeAuth          = "ERR_AUTH"

	ErrCodeUnauthorized       = "ERR_UNAUTHORIZED"
	ErrCodeInvalidCredentials = "ERR_INVALID_CREDENTIALS"

	ErrCodeNotFound     = "ERR_NOT_FOUND"
	ErrCodeInvalidState = "ERR_INVALID_STATE"

	ErrCodeBadRequest   = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput = "ERR_INVALID_INPUT"
	ErrCodeValidation   = "ERR_VALIDATION"

	ErrCodeRequestTooLarge = "ERR_REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "ERR_RATE_LIMITED"
	ErrCodeMaxConnections  = "ERR_MAX_CONNECTIONS"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeConfiguration: http.StatusServiceUnavailable,
	ErrCodeDataFetch:     http.StatusBadGateway,
	ErrCodeMutation:      http.StatusUnprocessableEntity,
	ErrCodeAuth:          http.StatusUnauthorized,

	ErrCodeUnauthorized:       http.StatusUnauthorized,
	ErrCodeInvalidCredentials: http.StatusUnauthorized,

	ErrCodeNotFound:     http.StatusNotFound,
	ErrCodeInvalidState: http.StatusConflict,

	ErrCodeBadRequest:   http.StatusBadRequest,
	ErrCodeInvalidInput: http.StatusBadRequest,
	ErrCodeValidation:   http.StatusBadRequest,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeMaxConnections:  http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code, 500 when unknown.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes.
var DomainErrorCodeMapping = map[string]string{
	"CONFIGURATION_ERROR": ErrCodeConfiguration,
	"DATA_FETCH_ERROR":    ErrCodeDataFetch,
	"MUTATION_ERROR":      ErrCodeMutation,
	"AUTH_ERROR":          ErrCodeAuth,
	"INVALID_CREDENTIALS": ErrCodeInvalidCredentials,
	"UNAUTHORIZED":        ErrCodeUnauthorized,
	"NOT_FOUND":           ErrCodeNotFound,
	"INVALID_STATE":       ErrCodeInvalidState,
	"INVALID_INPUT":       ErrCodeInvalidInput,
	"INTERNAL_ERROR":      ErrCodeInternal,
}

// NormalizeErrorCode converts a domain error code to its API code.
// Codes already in API form, or unknown, are returned as-is.
func NormalizeErrorCode(code string) string {
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
