package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/ahrav/go-evalflow/internal/ports"
)

// Common errors returned by the providers.
var (
	// ErrEmptyAPIKey indicates a required API key was not provided.
	ErrEmptyAPIKey = errors.New("API key cannot be empty")

	// ErrEmptyResponse indicates the provider returned an empty body.
	ErrEmptyResponse = errors.New("empty response from API")

	// ErrNoResponseChoice indicates the provider returned no choices.
	ErrNoResponseChoice = errors.New("no response choices returned")
)

// ErrorType categorizes provider failures for retry decisions.
type ErrorType int

const (
	// ErrorTypeUnknown is an error of undetermined category.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeAuthentication covers invalid or rejected credentials.
	ErrorTypeAuthentication
	// ErrorTypeRateLimit covers exceeded provider rate limits.
	ErrorTypeRateLimit
	// ErrorTypeBadRequest covers malformed requests or invalid parameters.
	ErrorTypeBadRequest
	// ErrorTypeNotFound covers missing resources, typically unknown models.
	ErrorTypeNotFound
	// ErrorTypeServerError covers failures on the provider's side.
	ErrorTypeServerError
	// ErrorTypeContentPolicy covers requests blocked by safety filters.
	ErrorTypeContentPolicy
	// ErrorTypeTimeout covers deadline and cancellation failures.
	ErrorTypeTimeout
)

// ProviderError normalizes provider-specific failures into one shape
// carrying the classified type and the original error.
type ProviderError struct {
	// Type classifies the failure.
	Type ErrorType
	// Provider names the provider that produced it.
	Provider string
	// StatusCode holds the HTTP status from the response, when present.
	StatusCode int
	// Message is the provider's user-facing message.
	Message string
	// WrappedError is the original underlying error.
	WrappedError error
}

func (e *ProviderError) Error() string {
	base := fmt.Sprintf("%s error", e.Provider)
	if e.StatusCode > 0 {
		base += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if s := e.typeString(); s != "" {
		base += fmt.Sprintf(" [%s]", s)
	}
	if e.Message != "" {
		base += ": " + e.Message
	}
	if e.WrappedError != nil {
		base += fmt.Sprintf(": %v", e.WrappedError)
	}
	return base
}

// Unwrap exposes the underlying error to errors.Is and errors.As.
func (e *ProviderError) Unwrap() error { return e.WrappedError }

// IsRetryable reports whether a request failing with this error may be
// retried. Only transient categories qualify.
func (e *ProviderError) IsRetryable() bool {
	switch e.Type {
	case ErrorTypeRateLimit, ErrorTypeServerError, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}

func (e *ProviderError) typeString() string {
	switch e.Type {
	case ErrorTypeAuthentication:
		return "authentication"
	case ErrorTypeRateLimit:
		return "rate_limit"
	case ErrorTypeBadRequest:
		return "bad_request"
	case ErrorTypeNotFound:
		return "not_found"
	case ErrorTypeServerError:
		return "server_error"
	case ErrorTypeContentPolicy:
		return "content_policy"
	case ErrorTypeTimeout:
		return "timeout"
	default:
		return ""
	}
}

// NewProviderError builds a ProviderError from its parts.
func NewProviderError(provider string, errType ErrorType, statusCode int, message string, wrapped error) *ProviderError {
	return &ProviderError{
		Type:         errType,
		Provider:     provider,
		StatusCode:   statusCode,
		Message:      message,
		WrappedError: wrapped,
	}
}

// ErrorClassifier turns raw provider errors into ProviderError instances
// using HTTP status codes and context state.
type ErrorClassifier struct {
	// Provider names the provider this classifier serves.
	Provider string
}

// ClassifyHTTPError maps an HTTP status code to a ProviderError.
func (ec *ErrorClassifier) ClassifyHTTPError(statusCode int, message string, err error) *ProviderError {
	var errType ErrorType
	switch {
	case statusCode == 401 || statusCode == 403:
		errType = ErrorTypeAuthentication
		message = fmt.Sprintf("%s authentication failed", ec.Provider)
	case statusCode == 429:
		errType = ErrorTypeRateLimit
		message = fmt.Sprintf("%s rate limit exceeded", ec.Provider)
	case statusCode == 404:
		errType = ErrorTypeNotFound
	case statusCode >= 400 && statusCode < 500:
		errType = ErrorTypeBadRequest
	case statusCode >= 500:
		errType = ErrorTypeServerError
	default:
		errType = ErrorTypeUnknown
	}
	return NewProviderError(ec.Provider, errType, statusCode, message, err)
}

// ClassifyContextError maps context cancellation and deadline failures.
func (ec *ErrorClassifier) ClassifyContextError(err error) *ProviderError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return NewProviderError(ec.Provider, ErrorTypeTimeout, 0, "request deadline exceeded", err)
	case errors.Is(err, context.Canceled):
		return NewProviderError(ec.Provider, ErrorTypeTimeout, 0, "request canceled", err)
	default:
		return NewProviderError(ec.Provider, ErrorTypeUnknown, 0, "", err)
	}
}

// wrapPortsError lifts a provider failure into the ports error vocabulary
// so the application layer can reason about it without importing this
// package.
func wrapPortsError(model string, err error) error {
	var pe *ProviderError
	if errors.As(err, &pe) {
		var sentinel error
		switch pe.Type {
		case ErrorTypeRateLimit:
			sentinel = ports.ErrRateLimited
		case ErrorTypeServerError:
			sentinel = ports.ErrServiceUnavailable
		case ErrorTypeTimeout:
			sentinel = ports.ErrTimeout
		case ErrorTypeAuthentication:
			sentinel = ports.ErrAuthenticationFailed
		}
		if sentinel != nil {
			return ports.NewLLMError(model, "complete", fmt.Errorf("%w: %w", sentinel, err))
		}
	}
	return ports.NewLLMError(model, "complete", err)
}
