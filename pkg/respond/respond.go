// Package respond writes the JSON envelope shared by the tenancy middlewares.
package respond

import (
	"encoding/json"
	"net/http"
)

// Body is the standard JSON response structure.
type Body struct {
	Data  any            `json:"data,omitempty"`
	Meta  map[string]any `json:"meta,omitempty"`
	Error *ErrorDetail   `json:"error,omitempty"`
}

// ErrorDetail carries a machine readable code and a human readable message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// JSON writes body with the given status.
func JSON(w http.ResponseWriter, status int, body Body) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// Data writes v under the "data" key with status 200.
func Data(w http.ResponseWriter, v any) {
	JSON(w, http.StatusOK, Body{Data: v})
}

// Error writes an error envelope. meta may be nil.
func Error(w http.ResponseWriter, status int, code, message string, meta map[string]any) {
	JSON(w, status, Body{
		Meta:  meta,
		Error: &ErrorDetail{Code: code, Message: message},
	})
}
