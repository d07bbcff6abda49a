package utils

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type ErrorKind string

const (
	KindInvalidRequest            ErrorKind = "InvalidRequest"
	KindInvalidToken              ErrorKind = "InvalidToken"
	KindExpiredToken              ErrorKind = "ExpiredToken"
	KindCredentialNotFound        ErrorKind = "CredentialNotFound"
	KindCredentialRevoked         ErrorKind = "CredentialRevoked"
	KindActionNotFound            ErrorKind = "ActionNotFound"
	KindActionAlreadyExists       ErrorKind = "ActionAlreadyExists"
	KindActionValidationFailed    ErrorKind = "ActionValidationFailed"
	KindSchemaValidationFailed    ErrorKind = "SchemaValidationFailed"
	KindRateLimitExceeded         ErrorKind = "RateLimitExceeded"
	KindQuotaExceeded             ErrorKind = "QuotaExceeded"
	KindPayloadTooLarge           ErrorKind = "PayloadTooLarge"
	KindSignatureMismatch         ErrorKind = "SignatureMismatch"
	KindReplayWindowExceeded      ErrorKind = "ReplayWindowExceeded"
	KindUpstreamTimeout           ErrorKind = "UpstreamTimeout"
	KindUpstreamHTTPError         ErrorKind = "UpstreamHTTPError"
	KindUpstreamMalformedResponse ErrorKind = "UpstreamMalformedResponse"
	KindInternal                  ErrorKind = "Internal"
)

// APIError is the structured error surfaced to callers. Two APIErrors match
// under errors.Is when their kinds are equal, so sentinels below can be
// compared against errors carrying a more specific message.
type APIError struct {
	Kind    ErrorKind `json:"kind"`
	Code    int       `json:"-"`
	Message string    `json:"message"`
	Details string    `json:"details,omitempty"`
	cause   error
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s", e.Message, e.Details)
	}
	return e.Message
}

func (e *APIError) Is(target error) bool {
	t, ok := target.(*APIError)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

func (e *APIError) Unwrap() error {
	return e.cause
}

func NewAPIError(kind ErrorKind, code int, message string) *APIError {
	return &APIError{
		Kind:    kind,
		Code:    code,
		Message: message,
	}
}

// WithDetails returns a copy of e carrying details. The sentinel is not modified.
func (e *APIError) WithDetails(details string) *APIError {
	c := *e
	c.Details = details
	return &c
}

func (e *APIError) WithDetailsf(format string, args ...interface{}) *APIError {
	return e.WithDetails(fmt.Sprintf(format, args...))
}

// Wrap returns a copy of e that unwraps to cause. The cause text is not
// exposed in the message.
func (e *APIError) Wrap(cause error) *APIError {
	c := *e
	c.cause = cause
	return &c
}

var (
	ErrInvalidRequest = NewAPIError(KindInvalidRequest, http.StatusBadRequest, "Invalid request")
	ErrInternal       = NewAPIError(KindInternal, http.StatusInternalServerError, "Internal server error")
)

var (
	ErrInvalidToken       = NewAPIError(KindInvalidToken, http.StatusUnauthorized, "Invalid token")
	ErrExpiredToken       = NewAPIError(KindExpiredToken, http.StatusUnauthorized, "Token expired")
	ErrCredentialNotFound = NewAPIError(KindCredentialNotFound, http.StatusUnauthorized, "Credential not found")
	ErrCredentialRevoked  = NewAPIError(KindCredentialRevoked, http.StatusUnauthorized, "Credential revoked")
	ErrRateLimitExceeded  = NewAPIError(KindRateLimitExceeded, http.StatusTooManyRequests, "Rate limit exceeded")
)

var (
	ErrActionNotFound         = NewAPIError(KindActionNotFound, http.StatusNotFound, "Action not found")
	ErrActionAlreadyExists    = NewAPIError(KindActionAlreadyExists, http.StatusConflict, "Action already exists")
	ErrActionValidationFailed = NewAPIError(KindActionValidationFailed, http.StatusBadRequest, "Action validation failed")
	ErrSchemaValidationFailed = NewAPIError(KindSchemaValidationFailed, http.StatusBadRequest, "Parameters do not match action schema")
	ErrQuotaExceeded          = NewAPIError(KindQuotaExceeded, http.StatusForbidden, "Action quota exceeded")
)

var (
	ErrPayloadTooLarge           = NewAPIError(KindPayloadTooLarge, http.StatusRequestEntityTooLarge, "Payload too large")
	ErrSignatureMismatch         = NewAPIError(KindSignatureMismatch, http.StatusUnauthorized, "Invalid signature")
	ErrReplayWindowExceeded      = NewAPIError(KindReplayWindowExceeded, http.StatusUnauthorized, "Request timestamp outside allowed window")
	ErrUpstreamTimeout           = NewAPIError(KindUpstreamTimeout, http.StatusGatewayTimeout, "Webhook timed out")
	ErrUpstreamHTTPError         = NewAPIError(KindUpstreamHTTPError, http.StatusBadGateway, "Webhook returned an error status")
	ErrUpstreamMalformedResponse = NewAPIError(KindUpstreamMalformedResponse, http.StatusBadGateway, "Webhook returned a malformed response")
)

func WrapError(err error, message string) error {
	return fmt.Errorf("%s: %w", message, err)
}

// AsAPIError extracts the APIError carried by err. Anything else is reported
// as an internal error so raw messages never reach the caller.
func AsAPIError(err error) *APIError {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return ErrInternal.Wrap(err)
}

func GetHTTPStatusFromError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	return AsAPIError(err).Code
}

func LogError(ctx context.Context, err error, message string, fields map[string]interface{}) {
	if fields == nil {
		fields = make(map[string]interface{})
	}

	fields["error"] = err.Error()
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		fields["error_kind"] = string(apiErr.Kind)
	}

	Error(ctx, message, fields)
}

func IsKind(err error, kind ErrorKind) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}
