// Package response provides helpers for writing consistent JSON HTTP responses.
package response

import (
	"encoding/json"
	"net/http"
)

// Response is the envelope returned for status-only replies and errors:
//
//	{ "status": "error", "error": "invalid id: must be a positive integer" }
type Response struct {
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

const (
	StatusOK      = "ok"
	StatusError   = "error"
	StatusDeleted = "deleted"
)

// WriteJSON writes data as JSON with the given HTTP status code.
// Headers must be set before WriteHeader, which must precede the body.
func WriteJSON(w http.ResponseWriter, status int, data any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// GeneralError wraps any Go error into the standard Response shape.
func GeneralError(err error) Response {
	return Response{
		Status: StatusError,
		Error:  err.Error(),
	}
}

// Status builds a successful status-only Response.
func Status(status string) Response {
	return Response{Status: status}
}
