// Package errors provides the unified error type used across the sync engine,
// its adapters and the HTTP surface.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap/zapcore"
)

// ErrorType is the coarse category that drives HTTP status and retry policy.
type ErrorType string

const (
	ErrorTypeValidation   ErrorType = "VALIDATION"
	ErrorTypeNotFound     ErrorType = "NOT_FOUND"
	ErrorTypeUnauthorized ErrorType = "UNAUTHORIZED"

	ErrorTypeInternal      ErrorType = "INTERNAL"
	ErrorTypeTimeout       ErrorType = "TIMEOUT"
	ErrorTypeConnection    ErrorType = "CONNECTION"
	ErrorTypeRateLimit     ErrorType = "RATE_LIMIT"
	ErrorTypeConfiguration ErrorType = "CONFIGURATION"

	// Failures reported by DynamoDB or EventBridge.
	ErrorTypeExternal    ErrorType = "EXTERNAL"
	ErrorTypeUnavailable ErrorType = "UNAVAILABLE"
)

// ErrorSeverity picks the log level.
type ErrorSeverity string

const (
	SeverityLow      ErrorSeverity = "LOW"
	SeverityMedium   ErrorSeverity = "MEDIUM"
	SeverityHigh     ErrorSeverity = "HIGH"
	SeverityCritical ErrorSeverity = "CRITICAL"
)

// UnifiedError is the single error type surfaced by the service. Operation
// names the step that failed (e.g. "subscribe_neighbors"); Resource is the
// point id, collection path or cache key involved.
type UnifiedError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code"`
	Message string    `json:"message"`
	Details string    `json:"details"`

	Operation string `json:"operation"`
	Resource  string `json:"resource"`

	Severity   ErrorSeverity `json:"severity"`
	Retryable  bool          `json:"retryable"`
	RetryAfter time.Duration `json:"retryAfter,omitempty"`
	Cause      error         `json:"-"`

	StackTrace []string `json:"stackTrace,omitempty"`
	File       string   `json:"file,omitempty"`
	Line       int      `json:"line,omitempty"`
}

func (e *UnifiedError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("[%s:%s] %s: %s", e.Type, e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Type, e.Code, e.Message)
}

func (e *UnifiedError) Unwrap() error {
	return e.Cause
}

// MarshalLogObject lets zap.Object log the error as structured fields.
func (e *UnifiedError) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("type", string(e.Type))
	enc.AddString("code", e.Code)
	enc.AddString("message", e.Message)
	if e.Details != "" {
		enc.AddString("details", e.Details)
	}
	if e.Operation != "" {
		enc.AddString("operation", e.Operation)
	}
	if e.Resource != "" {
		enc.AddString("resource", e.Resource)
	}
	enc.AddString("severity", string(e.Severity))
	enc.AddBool("retryable", e.Retryable)
	if e.RetryAfter > 0 {
		enc.AddDuration("retryAfter", e.RetryAfter)
	}
	if e.File != "" {
		enc.AddString("location", fmt.Sprintf("%s:%d", e.File, e.Line))
	}
	return nil
}

// ErrorBuilder assembles a UnifiedError.
type ErrorBuilder struct {
	err *UnifiedError
}

// NewError starts a builder; the caller's location is recorded.
func NewError(errType ErrorType, code, message string) *ErrorBuilder {
	return newBuilder(2, errType, code, message, SeverityMedium, false)
}

func newBuilder(skip int, errType ErrorType, code, message string, severity ErrorSeverity, retryable bool) *ErrorBuilder {
	_, file, line, _ := runtime.Caller(skip)
	return &ErrorBuilder{err: &UnifiedError{
		Type:       errType,
		Code:       code,
		Message:    message,
		Severity:   severity,
		Retryable:  retryable,
		File:       file,
		Line:       line,
		StackTrace: callers(skip + 1),
	}}
}

func (b *ErrorBuilder) WithDetails(details string) *ErrorBuilder {
	b.err.Details = details
	return b
}

func (b *ErrorBuilder) WithOperation(operation string) *ErrorBuilder {
	b.err.Operation = operation
	return b
}

func (b *ErrorBuilder) WithResource(resource string) *ErrorBuilder {
	b.err.Resource = resource
	return b
}

func (b *ErrorBuilder) WithSeverity(severity ErrorSeverity) *ErrorBuilder {
	b.err.Severity = severity
	return b
}

func (b *ErrorBuilder) WithRetryable(retryable bool) *ErrorBuilder {
	b.err.Retryable = retryable
	return b
}

// WithCause records the underlying error; its message becomes the details
// unless details were already set.
func (b *ErrorBuilder) WithCause(cause error) *ErrorBuilder {
	b.err.Cause = cause
	if cause != nil && b.err.Details == "" {
		b.err.Details = cause.Error()
	}
	return b
}

// WithRetryAfter implies retryable.
func (b *ErrorBuilder) WithRetryAfter(d time.Duration) *ErrorBuilder {
	b.err.RetryAfter = d
	b.err.Retryable = true
	return b
}

func (b *ErrorBuilder) Build() *UnifiedError {
	return b.err
}

// Caller errors never retry; infrastructure and remote errors do, except
// internal and configuration failures.

func Validation(code, message string) *ErrorBuilder {
	return newBuilder(2, ErrorTypeValidation, code, message, SeverityLow, false)
}

func NotFound(code, message string) *ErrorBuilder {
	return newBuilder(2, ErrorTypeNotFound, code, message, SeverityLow, false)
}

func Unauthorized(code, message string) *ErrorBuilder {
	return newBuilder(2, ErrorTypeUnauthorized, code, message, SeverityMedium, false)
}

func Internal(code, message string) *ErrorBuilder {
	return newBuilder(2, ErrorTypeInternal, code, message, SeverityHigh, false)
}

func Timeout(code, message string) *ErrorBuilder {
	return newBuilder(2, ErrorTypeTimeout, code, message, SeverityMedium, true)
}

func Connection(code, message string) *ErrorBuilder {
	return newBuilder(2, ErrorTypeConnection, code, message, SeverityHigh, true)
}

func RateLimit(code, message string) *ErrorBuilder {
	return newBuilder(2, ErrorTypeRateLimit, code, message, SeverityMedium, true)
}

func External(code, message string) *ErrorBuilder {
	return newBuilder(2, ErrorTypeExternal, code, message, SeverityMedium, true)
}

func Unavailable(code, message string) *ErrorBuilder {
	return newBuilder(2, ErrorTypeUnavailable, code, message, SeverityHigh, true)
}

// Configuration errors abort startup.
func Configuration(code, message string) *ErrorBuilder {
	return newBuilder(2, ErrorTypeConfiguration, code, message, SeverityCritical, false)
}

func unified(err error) (*UnifiedError, bool) {
	var u *UnifiedError
	ok := errors.As(err, &u)
	return u, ok
}

// IsType reports whether err wraps a UnifiedError of the given type.
func IsType(err error, errType ErrorType) bool {
	u, ok := unified(err)
	return ok && u.Type == errType
}

func IsValidation(err error) bool    { return IsType(err, ErrorTypeValidation) }
func IsNotFound(err error) bool      { return IsType(err, ErrorTypeNotFound) }
func IsConfiguration(err error) bool { return IsType(err, ErrorTypeConfiguration) }

func IsRetryable(err error) bool {
	u, ok := unified(err)
	return ok && u.Retryable
}

// GetSeverity defaults to medium for foreign errors.
func GetSeverity(err error) ErrorSeverity {
	if u, ok := unified(err); ok {
		return u.Severity
	}
	return SeverityMedium
}

// Wrap adds an operation and message to err. A wrapped UnifiedError keeps its
// classification; anything else becomes INTERNAL.
func Wrap(err error, operation, message string) *UnifiedError {
	if err == nil {
		return nil
	}
	if inner, ok := unified(err); ok {
		out := *inner
		out.Message = message
		out.Details = inner.Message
		out.Operation = operation
		out.Cause = err
		return &out
	}
	return newBuilder(2, ErrorTypeInternal, string(CodeInternalError), message, SeverityMedium, false).
		WithOperation(operation).
		WithCause(err).
		Build()
}

// As returns err as a UnifiedError, converting foreign errors to INTERNAL.
func As(err error) *UnifiedError {
	if err == nil {
		return nil
	}
	if u, ok := unified(err); ok {
		return u
	}
	return newBuilder(2, ErrorTypeInternal, string(CodeInternalError), err.Error(), SeverityHigh, false).
		WithCause(err).
		Build()
}

func callers(skip int) []string {
	var pcs [32]uintptr
	n := runtime.Callers(skip+1, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	stack := make([]string, 0, n)
	for {
		frame, more := frames.Next()
		stack = append(stack, fmt.Sprintf("%s:%d %s", frame.File, frame.Line, frame.Function))
		if !more {
			return stack
		}
	}
}
