package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/Navneet1206/E-Commerce-sub000/internal/platform/requestctx"
)

// Error is the failure envelope. Clients read success and message; code,
// request_id and trace_id are for operators.
type Error struct {
	Code    string
	Message string
	Status  int
	Details map[string]any
}

// NewError builds an Error, defaulting the status to 500.
func NewError(code, message string, status int) Error {
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Error{
		Code:    sanitize(code, 80),
		Message: sanitize(message, 512),
		Status:  status,
	}
}

// WithDetails attaches extra fields to the envelope.
func (e Error) WithDetails(details map[string]any) Error {
	if len(details) == 0 {
		return e
	}
	copied := make(map[string]any, len(details))
	for k, v := range details {
		copied[k] = v
	}
	e.Details = copied
	return e
}

// Error implements error so handlers can pass Error values through helpers.
func (e Error) Error() string {
	return e.Code + ": " + e.Message
}

// WriteError writes {success:false, message, error, request_id, trace_id}.
func WriteError(ctx context.Context, w http.ResponseWriter, err Error) {
	status := err.Status
	if status == 0 {
		status = http.StatusInternalServerError
	}
	payload := map[string]any{
		"success": false,
		"message": err.Message,
		"error":   err.Code,
	}
	if id := sanitize(middleware.GetReqID(ctx), 80); id != "" {
		payload["request_id"] = id
	}
	if id := sanitize(requestctx.TraceID(ctx), 64); id != "" {
		payload["trace_id"] = id
	}
	for k, v := range err.Details {
		if _, reserved := payload[k]; reserved {
			continue
		}
		payload[k] = v
	}
	WriteJSON(w, status, payload)
}

// WriteSuccess writes {success:true, message?, ...data}.
func WriteSuccess(w http.ResponseWriter, status int, message string, data map[string]any) {
	payload := make(map[string]any, len(data)+2)
	for k, v := range data {
		payload[k] = v
	}
	payload["success"] = true
	if message != "" {
		payload["message"] = message
	}
	WriteJSON(w, status, payload)
}

// WriteJSON encodes payload with the given status.
func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func sanitize(value string, limit int) string {
	if limit <= 0 {
		limit = 256
	}
	value = strings.NewReplacer("\n", " ", "\r", " ").Replace(value)
	value = strings.TrimSpace(value)
	if len(value) > limit {
		value = value[:limit]
	}
	return value
}
