package dynamodb

import (
	"context"
	"errors"
	"time"

	apperrors "gridguardian-backend/internal/errors"

	"github.com/aws/smithy-go"
	"github.com/sony/gobreaker"
)

// classifyError converts DynamoDB and transport errors to UnifiedError.
func classifyError(err error, operation, resource string) *apperrors.UnifiedError {
	if err == nil {
		return nil
	}

	var unified *apperrors.UnifiedError
	if errors.As(err, &unified) {
		return unified
	}

	switch {
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return apperrors.Unavailable(string(apperrors.CodeCircuitOpen), "DynamoDB circuit breaker is open").
			WithOperation(operation).
			WithResource(resource).
			WithCause(err).
			Build()
	case errors.Is(err, context.DeadlineExceeded):
		return apperrors.Timeout(string(apperrors.CodeTimeout), "DynamoDB request timed out").
			WithOperation(operation).
			WithResource(resource).
			WithCause(err).
			Build()
	case errors.Is(err, context.Canceled):
		return apperrors.Internal(string(apperrors.CodeInternalError), "DynamoDB request cancelled").
			WithSeverity(apperrors.SeverityLow).
			WithOperation(operation).
			WithResource(resource).
			WithCause(err).
			Build()
	}

	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return apperrors.Connection(string(apperrors.CodeConnectionFailed), "DynamoDB request failed").
			WithOperation(operation).
			WithResource(resource).
			WithCause(err).
			Build()
	}

	switch ae.ErrorCode() {
	case "ResourceNotFoundException":
		return apperrors.NotFound(string(apperrors.CodeDynamoDBError), "table not found").
			WithOperation(operation).
			WithResource(resource).
			WithCause(err).
			WithDetails(ae.ErrorMessage()).
			Build()

	case "ProvisionedThroughputExceededException", "RequestLimitExceeded", "ThrottlingException":
		return apperrors.RateLimit(string(apperrors.CodeRateLimitExceeded), "DynamoDB throughput exceeded").
			WithOperation(operation).
			WithResource(resource).
			WithCause(err).
			WithRetryAfter(time.Second).
			Build()

	case "InternalServerError":
		return apperrors.External(string(apperrors.CodeDynamoDBError), "DynamoDB internal error").
			WithOperation(operation).
			WithResource(resource).
			WithCause(err).
			Build()

	case "ServiceUnavailable":
		return apperrors.Unavailable(string(apperrors.CodeServiceUnavailable), "DynamoDB service unavailable").
			WithOperation(operation).
			WithResource(resource).
			WithCause(err).
			Build()

	case "ValidationException":
		return apperrors.Validation(string(apperrors.CodeInvalidInput), "DynamoDB validation error").
			WithOperation(operation).
			WithResource(resource).
			WithCause(err).
			WithDetails(ae.ErrorMessage()).
			Build()

	case "AccessDeniedException", "UnrecognizedClientException":
		return apperrors.External(string(apperrors.CodeDynamoDBError), "DynamoDB access denied").
			WithRetryable(false).
			WithOperation(operation).
			WithResource(resource).
			WithCause(err).
			WithDetails(ae.ErrorMessage()).
			Build()

	default:
		builder := apperrors.External(string(apperrors.CodeDynamoDBError), "DynamoDB error").
			WithOperation(operation).
			WithResource(resource).
			WithCause(err).
			WithDetails(ae.ErrorCode() + ": " + ae.ErrorMessage())
		if ae.ErrorFault() == smithy.FaultClient {
			builder = builder.WithRetryable(false)
		}
		return builder.Build()
	}
}
