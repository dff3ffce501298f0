package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

// ErrUnknownModel indicates the requested model is not registered.
var ErrUnknownModel = errors.New("unknown model")

// ErrDuplicateModel indicates an attempt to register the same model twice.
var ErrDuplicateModel = errors.New("model already registered")

// ErrorCode is the provider independent failure taxonomy.
type ErrorCode string

const (
	CodeInvalidAPIKey      ErrorCode = "invalid_api_key"
	CodeInsufficientQuota  ErrorCode = "insufficient_quota"
	CodeInvalidRequest     ErrorCode = "invalid_request"
	CodeContentFiltered    ErrorCode = "content_filtered"
	CodeContextTooLong     ErrorCode = "context_too_long"
	CodeRateLimitExceeded  ErrorCode = "rate_limit_exceeded"
	CodeServiceUnavailable ErrorCode = "service_unavailable"
	CodeTimeout            ErrorCode = "timeout"
	CodeNetworkError       ErrorCode = "network_error"
	CodeUnknown            ErrorCode = "unknown_error"
)

// Retryable reports the default retry classification of the code.
func (c ErrorCode) Retryable() bool {
	switch c {
	case CodeRateLimitExceeded, CodeServiceUnavailable, CodeTimeout, CodeNetworkError:
		return true
	default:
		return false
	}
}

// Error is a normalized provider failure. Adapters never return a provider
// native error shape; everything leaving an adapter is either an *Error or a
// context cancellation.
type Error struct {
	Message    string
	Code       ErrorCode
	StatusCode int
	Retryable  bool
	Err        error
}

// NewError builds an Error whose retryability follows the code default.
func NewError(code ErrorCode, message string, status int, cause error) *Error {
	return &Error{
		Message:    message,
		Code:       code,
		StatusCode: status,
		Retryable:  code.Retryable(),
		Err:        cause,
	}
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s (%s, status %d)", e.Message, e.Code, e.StatusCode)
	}
	return fmt.Sprintf("%s (%s)", e.Message, e.Code)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transient failure worth another attempt.
func IsRetryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr.Retryable
	}
	var failure HTTPFailure
	if errors.As(err, &failure) {
		return retryableStatus(failure.Status)
	}
	return isTimeout(err)
}

func retryableStatus(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}

// HTTPFailure carries the details of a non-2xx provider response.
type HTTPFailure struct {
	Provider  string
	Status    int
	ErrorType string
	ErrorCode string
	Message   string
	// ContextTooLong is set by the adapter when the provider reported that the
	// input exceeds the context window.
	ContextTooLong bool
}

func (f HTTPFailure) Error() string {
	if f.Message != "" {
		return fmt.Sprintf("%s error status %d (%s): %s", f.Provider, f.Status, f.ErrorType, f.Message)
	}
	return fmt.Sprintf("%s error status %d", f.Provider, f.Status)
}

// NormalizeHTTP maps a provider HTTP failure onto the taxonomy.
func NormalizeHTTP(f HTTPFailure) *Error {
	var (
		code    ErrorCode
		message string
	)

	switch f.Status {
	case http.StatusUnauthorized:
		code, message = CodeInvalidAPIKey, f.Provider+" API key is invalid or expired"
	case http.StatusTooManyRequests:
		if f.ErrorCode == "insufficient_quota" {
			code, message = CodeInsufficientQuota, f.Provider+" quota exhausted"
		} else {
			code, message = CodeRateLimitExceeded, "rate limit exceeded, please retry later"
		}
	case http.StatusBadRequest:
		switch {
		case f.ContextTooLong || f.ErrorCode == "context_length_exceeded":
			code, message = CodeContextTooLong, "context length exceeded limit"
		case f.ErrorCode == "content_filter" || f.ErrorCode == "content_policy_violation":
			code, message = CodeContentFiltered, "request rejected by content policy"
		default:
			code, message = CodeInvalidRequest, "invalid request parameters"
		}
	case http.StatusInternalServerError, http.StatusBadGateway, http.StatusServiceUnavailable:
		code, message = CodeServiceUnavailable, f.Provider+" service temporarily unavailable"
	default:
		code, message = CodeUnknown, "unknown error"
	}

	return NewError(code, message, f.Status, f)
}

// NormalizeStreamError maps an error event received mid-stream, where only
// the provider error type is known.
func NormalizeStreamError(providerName, errType, message string) *Error {
	code := CodeUnknown
	switch errType {
	case "rate_limit_error", "rate_limit_exceeded":
		code = CodeRateLimitExceeded
	case "overloaded_error", "api_error", "server_error":
		code = CodeServiceUnavailable
	case "invalid_request_error":
		code = CodeInvalidRequest
	case "authentication_error", "invalid_api_key":
		code = CodeInvalidAPIKey
	}
	if message == "" {
		message = providerName + " stream error"
	}
	return NewError(code, message, 0, fmt.Errorf("%s stream error (%s): %s", providerName, errType, message))
}

// NormalizeTransport maps a failure that produced no provider response.
func NormalizeTransport(providerName string, err error) error {
	if err == nil {
		return nil
	}
	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	if isTimeout(err) {
		return NewError(CodeTimeout, providerName+" request timeout", 0, err)
	}
	return NewError(CodeNetworkError, providerName+" network error", 0, err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
