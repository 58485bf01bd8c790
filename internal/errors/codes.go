package errors

import (
	"net/http"

	"go.uber.org/zap/zapcore"
)

// ErrorCode represents a unique error code for specific error scenarios
type ErrorCode string

const (
	// Graph errors
	CodePointNotFound        ErrorCode = "POINT_NOT_FOUND"
	CodeSnapshotNotFound     ErrorCode = "SNAPSHOT_NOT_FOUND"
	CodeSnapshotCorrupt      ErrorCode = "SNAPSHOT_CORRUPT"
	CodeGraphLoading         ErrorCode = "GRAPH_LOADING"
	CodeSubscriptionFailed   ErrorCode = "SUBSCRIPTION_FAILED"
	CodePointsStreamFailed   ErrorCode = "POINTS_STREAM_FAILED"
	CodeNeighborStreamFailed ErrorCode = "NEIGHBOR_STREAM_FAILED"

	// Validation errors
	CodeInvalidInput ErrorCode = "INVALID_INPUT"
	CodeMissingField ErrorCode = "MISSING_FIELD"

	// Auth errors
	CodeUnauthorized ErrorCode = "UNAUTHORIZED"

	// Configuration errors
	CodeMissingConfig ErrorCode = "MISSING_CONFIG"
	CodeInvalidConfig ErrorCode = "INVALID_CONFIG"

	// Infrastructure errors
	CodeInternalError      ErrorCode = "INTERNAL_ERROR"
	CodeServiceUnavailable ErrorCode = "SERVICE_UNAVAILABLE"
	CodeTimeout            ErrorCode = "TIMEOUT"
	CodeConnectionFailed   ErrorCode = "CONNECTION_FAILED"
	CodeRateLimitExceeded  ErrorCode = "RATE_LIMIT_EXCEEDED"
	CodeCircuitOpen        ErrorCode = "CIRCUIT_OPEN"
	CodeCacheError         ErrorCode = "CACHE_ERROR"
	CodeEventPublishFailed ErrorCode = "EVENT_PUBLISH_FAILED"

	// Remote service errors
	CodeDynamoDBError    ErrorCode = "DYNAMODB_ERROR"
	CodeEventBridgeError ErrorCode = "EVENTBRIDGE_ERROR"
)

// String returns the string representation of the error code
func (c ErrorCode) String() string {
	return string(c)
}

// HTTPStatusCode returns the HTTP status for an error code, 0 when the code has
// no specific mapping.
func (c ErrorCode) HTTPStatusCode() int {
	switch c {
	case CodeInvalidInput, CodeMissingField:
		return http.StatusBadRequest
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodePointNotFound, CodeSnapshotNotFound:
		return http.StatusNotFound
	case CodeRateLimitExceeded:
		return http.StatusTooManyRequests
	case CodeGraphLoading, CodeServiceUnavailable, CodeConnectionFailed, CodeCircuitOpen:
		return http.StatusServiceUnavailable
	default:
		return 0
	}
}

// HTTPStatus determines the HTTP status code for an error.
func HTTPStatus(err error) int {
	unifiedErr := As(err)
	if unifiedErr == nil {
		return http.StatusOK
	}
	if code := ErrorCode(unifiedErr.Code).HTTPStatusCode(); code != 0 {
		return code
	}

	switch unifiedErr.Type {
	case ErrorTypeValidation:
		return http.StatusBadRequest
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeUnauthorized:
		return http.StatusUnauthorized
	case ErrorTypeTimeout:
		return http.StatusGatewayTimeout
	case ErrorTypeRateLimit:
		return http.StatusTooManyRequests
	case ErrorTypeUnavailable, ErrorTypeConnection:
		return http.StatusServiceUnavailable
	case ErrorTypeExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// LogLevel converts error severity to a zap log level.
func LogLevel(err error) zapcore.Level {
	switch GetSeverity(err) {
	case SeverityCritical, SeverityHigh:
		return zapcore.ErrorLevel
	case SeverityLow:
		return zapcore.InfoLevel
	default:
		return zapcore.WarnLevel
	}
}
