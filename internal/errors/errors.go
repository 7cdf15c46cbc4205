package errors

import (
	"errors"
	"fmt"
)

// Code is a stable error code carried by every pipeline error. Codes
// separate "your file is broken" (schema/chunk fatal) from "your file
// is dirty" (record invalid) so operators can tell them apart.
type Code string

const (
	// CodeSchemaFatal aborts the run before any row is processed.
	CodeSchemaFatal Code = "SCHEMA_FATAL"
	// CodeChunkParseFatal aborts the run mid-cleaning; no further
	// chunks are processed.
	CodeChunkParseFatal Code = "CHUNK_PARSE_FATAL"
	// CodeRecordInvalid is recoverable: it becomes a drop ledger entry
	// and never propagates out of the cleaning engine.
	CodeRecordInvalid Code = "RECORD_INVALID"
	// CodeEmptyDataset is a fatal analysis precondition: zero rows must
	// not masquerade as a clean run.
	CodeEmptyDataset Code = "EMPTY_DATASET"
	// CodeNotifyTransient marks a delivery failure eligible for retry.
	CodeNotifyTransient Code = "NOTIFY_TRANSIENT"
	// CodeNotifyExhausted marks delivery abandoned after all attempts;
	// recorded on the run outcome, never fatal to the run.
	CodeNotifyExhausted Code = "NOTIFY_EXHAUSTED"
	CodeConfig          Code = "CONFIG"
	CodeLoad            Code = "LOAD"
	CodeReport          Code = "REPORT"
)

// PipelineError is the error type every pipeline component returns.
type PipelineError struct {
	Code    Code
	Message string
	Cause   error
	Context map[string]interface{}
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap allows errors.Is and errors.As to reach the cause.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// WithContext attaches a key/value pair for structured logging.
func (e *PipelineError) WithContext(key string, value interface{}) *PipelineError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a pipeline error with the given code.
func New(code Code, message string) *PipelineError {
	return &PipelineError{Code: code, Message: message}
}

// Wrap creates a pipeline error wrapping a cause.
func Wrap(code Code, message string, cause error) *PipelineError {
	return &PipelineError{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the code from an error chain, or "" if the chain
// holds no PipelineError.
func CodeOf(err error) Code {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}

// Is reports whether the error chain carries the given code.
func Is(err error, code Code) bool {
	return CodeOf(err) == code
}

// IsRetryable reports whether a delivery error should be retried under
// the backoff policy. Timeouts count as transient transport failures.
func IsRetryable(err error) bool {
	switch CodeOf(err) {
	case CodeNotifyTransient:
		return true
	default:
		return false
	}
}

// Fatal reports whether the error must abort the run.
func Fatal(err error) bool {
	switch CodeOf(err) {
	case CodeSchemaFatal, CodeChunkParseFatal, CodeEmptyDataset:
		return true
	default:
		return false
	}
}
