package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"

	"github.com/Aghostraa/oli-frontend/internal/errors"
	"github.com/Aghostraa/oli-frontend/internal/logging"
	"github.com/Aghostraa/oli-frontend/internal/types"
)

// ErrorResponse represents an API error response.
type ErrorResponse struct {
	Error types.ServiceError `json:"error"`
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, statusCode int, code, message string, details map[string]interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	response := ErrorResponse{
		Error: types.ServiceError{
			Code:    code,
			Message: message,
			Details: details,
		},
	}

	_ = json.NewEncoder(w).Encode(response)
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// Codes produced by the HTTP layer itself
const (
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeMethodNotAllowed = "METHOD_NOT_ALLOWED"
	ErrCodeInternalError    = errors.CodeInternal
)

// notFound answers unmatched routes in the same JSON shape as other errors
func notFound(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusNotFound, ErrCodeNotFound, "no route for "+r.URL.Path, nil)
}

func methodNotAllowed(w http.ResponseWriter, r *http.Request) {
	respondError(w, http.StatusMethodNotAllowed, ErrCodeMethodNotAllowed, r.Method+" is not supported on "+r.URL.Path, nil)
}

// respondServiceError maps err to its category's status and writes it.
// Internal details of system errors are never sent to the client.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	catErr := errors.Categorize(err)
	logger := logging.FromContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
		"code":   catErr.Code,
		"status": catErr.StatusCode,
	})

	switch {
	case catErr.Category == errors.CategoryUpstream:
		logger.Warn("Upstream request failed")
	case errors.IsUserError(err):
		logger.Debug("Request rejected")
	default:
		logger.Error("Request failed")
	}

	message := catErr.Message
	details := catErr.Details
	if catErr.Code == ErrCodeInternalError {
		message = "An internal error occurred"
		details = nil
	}
	respondError(w, catErr.StatusCode, catErr.Code, message, details)
}

// queryInt parses an integer query parameter; missing or malformed values are 0
func queryInt(r *http.Request, name string) int {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0
	}
	return value
}

// queryOptionalInt returns nil when name is absent or not an integer
func queryOptionalInt(r *http.Request, name string) *int {
	value, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(name)))
	if err != nil {
		return nil
	}
	return &value
}

// queryFirst returns the first non-empty value among the given parameter names
func queryFirst(r *http.Request, names ...string) string {
	query := r.URL.Query()
	for _, name := range names {
		if value := strings.TrimSpace(query.Get(name)); value != "" {
			return value
		}
	}
	return ""
}
