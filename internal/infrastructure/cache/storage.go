// Package cache persists the last good graph snapshot so a cold start can
// render immediately while live data loads.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "gridguardian-backend/internal/errors"
)

// Storage is a key/value store for opaque snapshot payloads.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Put(ctx context.Context, key string, data []byte) error
	Delete(ctx context.Context, key string) error
}

// Backend names accepted by configuration.
const (
	BackendMemory   = "memory"
	BackendFile     = "file"
	BackendSQLite   = "sqlite"
	BackendDynamoDB = "dynamodb"
)

func storageError(err error, operation, key string) error {
	if err == nil {
		return nil
	}
	// backends that already classify their failures keep their code
	var unified *apperrors.UnifiedError
	if errors.As(err, &unified) {
		return unified
	}
	return apperrors.Internal(string(apperrors.CodeCacheError), fmt.Sprintf("cache %s failed", strings.ReplaceAll(operation, "_", " "))).
		WithOperation(operation).
		WithResource(key).
		WithCause(err).
		Build()
}
