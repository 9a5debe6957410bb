package qna

import (
	"errors"
	"fmt"
)

// ValidationError marks bad or missing input. It is surfaced to the caller
// and never retried
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a validation error with the given message
func NewValidationError(message string) *ValidationError {
	return &ValidationError{Message: message}
}

// GenerationReason classifies answer generator failures
type GenerationReason string

const (
	// GenerationTransient covers quota/rate/timeout failures, retried with backoff
	GenerationTransient GenerationReason = "transient"

	// GenerationParsingFailed means the answer body could not be extracted, not retried
	GenerationParsingFailed GenerationReason = "parsing_failed"

	// GenerationFailed covers remaining non-retryable failures (bad auth, invalid request)
	GenerationFailed GenerationReason = "failed"
)

// GenerationError is a typed answer generator failure
type GenerationError struct {
	Reason GenerationReason
	Err    error
}

func (e *GenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("generation failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("generation failed (%s)", e.Reason)
}

func (e *GenerationError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the failure may be retried
func (e *GenerationError) Retryable() bool {
	return e.Reason == GenerationTransient
}

// NewGenerationError creates a generation error with the given reason
func NewGenerationError(reason GenerationReason, err error) *GenerationError {
	return &GenerationError{Reason: reason, Err: err}
}

// PublishReason classifies document store failures
type PublishReason string

const (
	PublishAuthFailed       PublishReason = "auth_failed"
	PublishTargetNotFound   PublishReason = "target_not_found"
	PublishRejected         PublishReason = "rejected"
	PublishTransient        PublishReason = "transient"
	PublishAlreadyPublished PublishReason = "already_published"
)

// PublishError is a typed document store failure. AlreadyPublished is a
// no-op success equivalent, every other reason leaves the record stored
// but unpublished
type PublishError struct {
	Reason PublishReason
	Err    error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("publish failed (%s): %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("publish failed (%s)", e.Reason)
}

func (e *PublishError) Unwrap() error {
	return e.Err
}

// NewPublishError creates a publish error with the given reason
func NewPublishError(reason PublishReason, err error) *PublishError {
	return &PublishError{Reason: reason, Err: err}
}

// ErrAlreadyPublished is returned when the at-most-once guard observes an
// existing publish reference. Callers treat it as success
var ErrAlreadyPublished = &PublishError{Reason: PublishAlreadyPublished}

// StorageError wraps record store failures. Fatal for the current request
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s failed: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// NewStorageError wraps a store failure with the operation name
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

// IsAlreadyPublished reports whether err is an AlreadyPublished publish error
func IsAlreadyPublished(err error) bool {
	var pe *PublishError
	return errors.As(err, &pe) && pe.Reason == PublishAlreadyPublished
}
