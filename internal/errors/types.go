package errors

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"net/http"
)

// ErrorType defines the category of the error
type ErrorType string

const (
	ErrorTypeMissingInput        ErrorType = "MISSING_INPUT"
	ErrorTypeNoCredential        ErrorType = "NO_CREDENTIAL"
	ErrorTypePayloadTooLarge     ErrorType = "PAYLOAD_TOO_LARGE"
	ErrorTypeInvalidFormat       ErrorType = "INVALID_FORMAT"
	ErrorTypeAuthFailed          ErrorType = "AUTH_FAILED"
	ErrorTypeRateLimited         ErrorType = "RATE_LIMITED"
	ErrorTypeUpstream            ErrorType = "UPSTREAM_ERROR"
	ErrorTypeMalformedUpstream   ErrorType = "MALFORMED_UPSTREAM_RESPONSE"
	ErrorTypeTimeout             ErrorType = "TIMEOUT"
	ErrorTypeEmptyTranscript     ErrorType = "EMPTY_TRANSCRIPT"
	ErrorTypeStorage             ErrorType = "STORAGE_FAILURE"
	ErrorTypeUnsupportedProvider ErrorType = "UNSUPPORTED_PROVIDER"
	ErrorTypeValidation          ErrorType = "VALIDATION_ERROR"
	ErrorTypeNotFound            ErrorType = "NOT_FOUND"
	ErrorTypeInternal            ErrorType = "INTERNAL_ERROR"
)

// MaxRawBodyLength bounds the upstream body kept on an error for diagnostics.
const MaxRawBodyLength = 512

// AppError represents a structured error for the application
type AppError struct {
	Type          ErrorType      `json:"type"`
	Message       string         `json:"message"`
	StatusCode    int            `json:"statusCode"`
	ErrorCode     string         `json:"errorCode"`
	IsOperational bool           `json:"isOperational"`
	Recovery      string         `json:"recoverySuggestion,omitempty"`
	Details       map[string]any `json:"details,omitempty"`
	Err           error          `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap exposes the wrapped cause to errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.Err
}

// Code returns the application-specific error code
func (e *AppError) Code() string {
	return e.ErrorCode
}

// RecoverySuggestion returns the suggestion on how to recover from the error
func (e *AppError) RecoverySuggestion() string {
	return e.Recovery
}

// IsRetryable determines if the operation that caused the error could succeed
// when the caller tries again later.
func (e *AppError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimited, ErrorTypeTimeout:
		return true
	case ErrorTypeUpstream:
		status, _ := e.Details["upstreamStatus"].(int)
		return status == 0 || status == http.StatusTooManyRequests || status >= 500
	default:
		return false
	}
}

// WithDetail attaches a diagnostic field and returns the error for chaining.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// As returns the *AppError in err's chain, if any.
func As(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// IsType reports whether err carries an AppError of the given type.
func IsType(err error, t ErrorType) bool {
	appErr, ok := As(err)
	return ok && appErr.Type == t
}

// NewMissingInputError creates a new missing input error (400)
func NewMissingInputError(message string, errorCode string) *AppError {
	return &AppError{
		Type:          ErrorTypeMissingInput,
		Message:       message,
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Attach the required input and submit again.",
	}
}

// NewValidationError creates a new validation error (400)
func NewValidationError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeValidation,
		Message:       message,
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewNotFoundError creates a new not found error (404)
func NewNotFoundError(message string, errorCode string, suggestion string) *AppError {
	return &AppError{
		Type:          ErrorTypeNotFound,
		Message:       message,
		StatusCode:    http.StatusNotFound,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      suggestion,
	}
}

// NewNoCredentialError creates a new missing credential error (401)
func NewNoCredentialError(providerID string) *AppError {
	return (&AppError{
		Type:          ErrorTypeNoCredential,
		Message:       fmt.Sprintf("no API key available for provider %q", providerID),
		StatusCode:    http.StatusUnauthorized,
		ErrorCode:     "NO_CREDENTIAL",
		IsOperational: true,
		Recovery:      "Enter an API key in settings or configure one on the server.",
	}).WithDetail("provider", providerID)
}

// NewUnsupportedProviderError creates a new unknown/unsupported provider error (400)
func NewUnsupportedProviderError(providerID string, reason string) *AppError {
	return (&AppError{
		Type:          ErrorTypeUnsupportedProvider,
		Message:       fmt.Sprintf("provider %q is not available on the server: %s", providerID, reason),
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     "UNSUPPORTED_PROVIDER",
		IsOperational: true,
		Recovery:      "Choose another provider from /providers.",
	}).WithDetail("provider", providerID)
}

// NewPayloadTooLargeError creates a new payload size error (413) carrying the
// observed size and the limit.
func NewPayloadTooLargeError(size, limit int64) *AppError {
	return (&AppError{
		Type:          ErrorTypePayloadTooLarge,
		Message:       fmt.Sprintf("audio file is %d bytes, the limit is %d bytes", size, limit),
		StatusCode:    http.StatusRequestEntityTooLarge,
		ErrorCode:     "PAYLOAD_TOO_LARGE",
		IsOperational: true,
		Recovery:      "Compress the audio or split the recording into shorter parts.",
	}).WithDetail("size", size).WithDetail("limit", limit)
}

// NewEmptyTranscriptError creates a new empty transcript error (400)
func NewEmptyTranscriptError() *AppError {
	return &AppError{
		Type:          ErrorTypeEmptyTranscript,
		Message:       "transcript is empty",
		StatusCode:    http.StatusBadRequest,
		ErrorCode:     "EMPTY_TRANSCRIPT",
		IsOperational: true,
		Recovery:      "Transcribe the audio first, or paste the transcript text.",
	}
}

// NewTimeoutError creates a new upstream timeout error (504)
func NewTimeoutError(providerID string, err error) *AppError {
	return (&AppError{
		Type:          ErrorTypeTimeout,
		Message:       fmt.Sprintf("%s did not respond in time", providerID),
		StatusCode:    http.StatusGatewayTimeout,
		ErrorCode:     "UPSTREAM_TIMEOUT",
		IsOperational: true,
		Recovery:      "Try again, or use a shorter recording.",
		Err:           err,
	}).WithDetail("provider", providerID)
}

// NewUpstreamError classifies a non-2xx upstream response by status code.
// The original status and a truncated body are kept for diagnostics.
func NewUpstreamError(providerID string, status int, body []byte) *AppError {
	e := &AppError{
		IsOperational: true,
	}
	switch status {
	case http.StatusBadRequest:
		e.Type = ErrorTypeInvalidFormat
		e.StatusCode = http.StatusBadRequest
		e.ErrorCode = "INVALID_FORMAT"
		e.Message = fmt.Sprintf("%s rejected the request as invalid", providerID)
		e.Recovery = "Check the audio format (mp3, wav, m4a, webm) and the parameters."
	case http.StatusUnauthorized:
		e.Type = ErrorTypeAuthFailed
		e.StatusCode = http.StatusUnauthorized
		e.ErrorCode = "AUTH_FAILED"
		e.Message = fmt.Sprintf("%s rejected the API key", providerID)
		e.Recovery = "Check that the API key is correct and still active."
	case http.StatusRequestEntityTooLarge:
		e.Type = ErrorTypePayloadTooLarge
		e.StatusCode = http.StatusRequestEntityTooLarge
		e.ErrorCode = "UPSTREAM_PAYLOAD_TOO_LARGE"
		e.Message = fmt.Sprintf("%s rejected the file as too large", providerID)
		e.Recovery = "Compress the audio or split the recording into shorter parts."
	case http.StatusTooManyRequests:
		e.Type = ErrorTypeRateLimited
		e.StatusCode = http.StatusTooManyRequests
		e.ErrorCode = "RATE_LIMITED"
		e.Message = fmt.Sprintf("%s rate limit reached", providerID)
		e.Recovery = "Wait a moment before retrying, or check the remaining quota."
	default:
		e.Type = ErrorTypeUpstream
		e.StatusCode = http.StatusInternalServerError
		e.ErrorCode = "UPSTREAM_ERROR"
		e.Message = fmt.Sprintf("%s API error (status %d)", providerID, status)
		e.Recovery = "Try again later or switch to another provider."
	}
	return e.
		WithDetail("provider", providerID).
		WithDetail("upstreamStatus", status).
		WithDetail("rawBody", Truncate(string(body), MaxRawBodyLength))
}

// AsUpstream collapses a status-classified upstream error (AuthFailed,
// RateLimited, ...) into a plain UpstreamError. The upstream status and body
// stay in Details. Errors that did not come from an upstream response are
// returned unchanged.
func (e *AppError) AsUpstream() *AppError {
	status, ok := e.Details["upstreamStatus"].(int)
	if !ok || e.Type == ErrorTypeUpstream {
		return e
	}
	out := *e
	out.Type = ErrorTypeUpstream
	out.StatusCode = http.StatusInternalServerError
	out.ErrorCode = "UPSTREAM_ERROR"
	out.Message = fmt.Sprintf("%s (upstream status %d)", e.Message, status)
	out.Details = make(map[string]any, len(e.Details))
	for k, v := range e.Details {
		out.Details[k] = v
	}
	return &out
}

// NewUpstreamJobError reports a provider that accepted the request but said
// it could not process it (e.g. a transcript job ending in "error").
func NewUpstreamJobError(providerID string, reason string) *AppError {
	return (&AppError{
		Type:          ErrorTypeUpstream,
		Message:       fmt.Sprintf("%s could not process the audio: %s", providerID, reason),
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     "UPSTREAM_JOB_FAILED",
		IsOperational: true,
		Recovery:      "Check the audio file, or switch to another provider.",
	}).WithDetail("provider", providerID).
		WithDetail("upstreamStatus", http.StatusUnprocessableEntity).
		WithDetail("reason", Truncate(reason, MaxRawBodyLength))
}

// NewMalformedResponseError reports an upstream body that could not be parsed (500)
func NewMalformedResponseError(providerID string, body []byte, err error) *AppError {
	return (&AppError{
		Type:          ErrorTypeMalformedUpstream,
		Message:       fmt.Sprintf("failed to parse %s response", providerID),
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     "MALFORMED_UPSTREAM_RESPONSE",
		IsOperational: true,
		Recovery:      "The provider returned an unexpected response; try again later.",
		Err:           err,
	}).WithDetail("provider", providerID).
		WithDetail("rawBody", Truncate(string(body), MaxRawBodyLength))
}

// NewTransportError maps a failed round trip (no response) to Timeout or
// UpstreamError.
func NewTransportError(providerID string, err error) *AppError {
	if IsTimeout(err) {
		return NewTimeoutError(providerID, err)
	}
	return (&AppError{
		Type:          ErrorTypeUpstream,
		Message:       fmt.Sprintf("failed to call %s API", providerID),
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     "UPSTREAM_UNREACHABLE",
		IsOperational: true,
		Recovery:      "Check network connectivity or switch to another provider.",
		Err:           err,
	}).WithDetail("provider", providerID)
}

// NewStorageError creates a new storage failure error (500)
func NewStorageError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:          ErrorTypeStorage,
		Message:       message,
		StatusCode:    http.StatusInternalServerError,
		ErrorCode:     errorCode,
		IsOperational: true,
		Recovery:      "Try again later.",
		Err:           err,
	}
}

// NewInternalError creates a new internal error (500)
func NewInternalError(message string, errorCode string, err error) *AppError {
	return &AppError{
		Type:       ErrorTypeInternal,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		ErrorCode:  errorCode,
		Err:        err,
	}
}

// IsTimeout reports whether err is a deadline or network timeout.
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if stderrors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return stderrors.As(err, &netErr) && netErr.Timeout()
}

// Truncate shortens s to at most n bytes without splitting a UTF-8 rune.
func Truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !isRuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...(truncated)"
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
