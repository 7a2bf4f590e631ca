package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrCompletionFailed is matched by every *CompletionError
	ErrCompletionFailed = errors.New("completion request failed")

	// ErrExtraction is matched by every *ExtractionError
	ErrExtraction = errors.New("no JSON object found in completion")

	// ErrInvalidRequest is returned when request parameters are invalid
	ErrInvalidRequest = errors.New("invalid request parameters")

	// ErrCacheMiss is returned when data is not found in cache
	ErrCacheMiss = errors.New("cache miss")

	// ErrSchemaInvalid is returned when a taxonomy document cannot be turned into a Schema
	ErrSchemaInvalid = errors.New("invalid schema")

	// ErrEmptyCompletion is the cause recorded when the model returns no text
	ErrEmptyCompletion = errors.New("empty completion")
)

// CompletionError reports a failed call to the completion service.
type CompletionError struct {
	Model   string
	Timeout bool
	Err     error
}

func (e *CompletionError) Error() string {
	if e.Timeout {
		return fmt.Sprintf("completion timed out (model %s): %v", e.Model, e.Err)
	}
	return fmt.Sprintf("completion failed (model %s): %v", e.Model, e.Err)
}

func (e *CompletionError) Unwrap() error { return e.Err }

// Is reports true for ErrCompletionFailed so callers can match the class.
func (e *CompletionError) Is(target error) bool { return target == ErrCompletionFailed }

// maxExcerpt bounds the raw completion text kept on an ExtractionError.
const maxExcerpt = 200

// ExtractionError reports a completion that held no decodable JSON object.
type ExtractionError struct {
	Reason  string
	Excerpt string
	Err     error
}

// NewExtractionError builds an ExtractionError, truncating raw to a short excerpt.
func NewExtractionError(reason, raw string, cause error) *ExtractionError {
	runes := []rune(raw)
	if len(runes) > maxExcerpt {
		raw = string(runes[:maxExcerpt]) + "..."
	}
	return &ExtractionError{Reason: reason, Excerpt: raw, Err: cause}
}

func (e *ExtractionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("extraction failed: %s: %v", e.Reason, e.Err)
	}
	return "extraction failed: " + e.Reason
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// Is reports true for ErrExtraction so callers can match the class.
func (e *ExtractionError) Is(target error) bool { return target == ErrExtraction }

// IsTimeout reports whether err is a CompletionError caused by an expired deadline.
func IsTimeout(err error) bool {
	var ce *CompletionError
	return errors.As(err, &ce) && ce.Timeout
}
