package utils

import (
	"fmt"
	"time"
)

// UploadError means the service rejected the media submission.
type UploadError struct {
	MIMEType string
	Err      error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload failed (%s): %v", e.MIMEType, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

// ProcessingError means an uploaded file did not become usable.
type ProcessingError struct {
	File  string
	State FileState
	Err   error
}

func (e *ProcessingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("file %s failed to process: %v", e.File, e.Err)
	}
	return fmt.Sprintf("file %s failed to process (state %s)", e.File, e.State)
}

func (e *ProcessingError) Unwrap() error { return e.Err }

// TimeoutError means the readiness wait ran out of budget.
type TimeoutError struct {
	File     string
	Attempts int
	Elapsed  time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("file %s still processing after %d checks (%s)", e.File, e.Attempts, e.Elapsed.Round(time.Millisecond))
}

// InvocationError means the conversation with the model failed.
type InvocationError struct {
	Variant string
	Err     error
}

func (e *InvocationError) Error() string {
	return fmt.Sprintf("inference call for %s failed: %v", e.Variant, e.Err)
}

func (e *InvocationError) Unwrap() error { return e.Err }

// ParseError never leaves the pipeline; it is turned into an ErrorResult.
type ParseError struct {
	Shape Shape
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("Error parsing JSON response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }
