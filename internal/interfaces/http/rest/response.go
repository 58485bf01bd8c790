package rest

import (
	"encoding/json"
	"net/http"

	apperrors "gridguardian-backend/internal/errors"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// APIResponse is the envelope of every JSON response.
type APIResponse struct {
	Success bool       `json:"success"`
	Data    any        `json:"data,omitempty"`
	Error   *ErrorInfo `json:"error,omitempty"`
}

// ErrorInfo contains error details.
type ErrorInfo struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"requestId,omitempty"`
}

func respondJSON(w http.ResponseWriter, status int, data any) {
	writeEnvelope(w, status, APIResponse{
		Success: status >= 200 && status < 300,
		Data:    data,
	})
}

func writeEnvelope(w http.ResponseWriter, status int, body APIResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// respondError renders err with the status and code of its unified form.
// Internal details of unexpected errors are logged, not returned.
func respondError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status := apperrors.HTTPStatus(err)
	info := &ErrorInfo{
		Code:      string(apperrors.CodeInternalError),
		Message:   "internal server error",
		RequestID: middleware.GetReqID(r.Context()),
	}
	unified := apperrors.As(err)
	info.Code = unified.Code
	if unified.Type != apperrors.ErrorTypeInternal {
		info.Message = unified.Message
	}

	logger.Check(apperrors.LogLevel(err), "Request failed").Write(
		zap.Object("error", unified),
		zap.String("path", r.URL.Path),
		zap.Int("status", status),
		zap.String("requestID", info.RequestID),
	)
	writeEnvelope(w, status, APIResponse{Success: false, Error: info})
}
