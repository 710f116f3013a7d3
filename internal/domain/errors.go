package domain

import (
	"errors"
	"fmt"
)

// Sentinel errors forming the pipeline's error taxonomy.
// Input and pricing errors are fatal for a request; judge-output errors
// degrade a single metric and are contained by the orchestrator.
var (
	// ErrInvalidInput indicates malformed conversation or context data.
	// The request is aborted and no generation call is attempted.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNoUserTurn indicates the conversation does not end with a user
	// turn, so there is no current query to answer. It wraps
	// ErrInvalidInput: callers classifying by the broad sentinel treat it
	// as any other malformed payload.
	ErrNoUserTurn = fmt.Errorf("%w: conversation has no trailing user turn", ErrInvalidInput)

	// ErrGenerationFailure indicates the remote generation call failed.
	// Retry policy, if any, belongs to the transport layer.
	ErrGenerationFailure = errors.New("generation failed")

	// ErrUnknownModelPricing indicates the price table has no entry for the
	// requested model. Cost must never silently default to zero.
	ErrUnknownModelPricing = errors.New("unknown model pricing")

	// ErrUnparseableJudgeOutput indicates no valid structured payload could
	// be recovered from a judge model's response.
	ErrUnparseableJudgeOutput = errors.New("unparseable judge output")

	// ErrIncompleteReport indicates BuildReport was called without a
	// required field. This is a programming-contract violation, not a
	// runtime condition.
	ErrIncompleteReport = errors.New("incomplete report")
)

// InputError wraps ErrInvalidInput with detail about which part of the raw
// payload failed validation.
type InputError struct {
	// Field names the offending part of the payload, e.g. "conversation"
	// or "context[3].text".
	Field string

	// Reason describes what was wrong with the field.
	Reason string
}

// Error implements the error interface for InputError.
func (e *InputError) Error() string {
	return fmt.Sprintf("invalid input: %s: %s", e.Field, e.Reason)
}

// Unwrap lets errors.Is match InputError against ErrInvalidInput.
func (e *InputError) Unwrap() error { return ErrInvalidInput }

// NewInputError creates an InputError for the given field and reason.
func NewInputError(field, reason string) *InputError {
	return &InputError{Field: field, Reason: reason}
}
