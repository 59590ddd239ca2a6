// Package httpx provides JSON response helpers with the stable
// success/error envelope used by every endpoint.
package httpx

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the structured error payload. Field is set for field-level
// validation failures.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Field   string `json:"field,omitempty"`
}

// Envelope is the response wrapper shared by all endpoints.
type Envelope struct {
	Success    bool       `json:"success"`
	Data       any        `json:"data,omitempty"`
	Pagination any        `json:"pagination,omitempty"`
	Error      *ErrorBody `json:"error,omitempty"`
}

// JSON sends a raw JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// OK sends a success envelope.
func OK(w http.ResponseWriter, status int, data any) {
	JSON(w, status, Envelope{Success: true, Data: data})
}

// OKPage sends a success envelope with pagination metadata.
func OKPage(w http.ResponseWriter, status int, data, pagination any) {
	JSON(w, status, Envelope{Success: true, Data: data, Pagination: pagination})
}

// Error sends an error envelope. Internal detail never leaks here; callers
// pass a user-safe message.
func Error(w http.ResponseWriter, status int, code, message, field string) {
	JSON(w, status, Envelope{Success: false, Error: &ErrorBody{
		Code:    code,
		Message: message,
		Field:   field,
	}})
}

// DecodeJSON decodes the request body into target.
func DecodeJSON(r *http.Request, target any) error {
	return json.NewDecoder(r.Body).Decode(target)
}
