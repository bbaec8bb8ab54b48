package common

import (
	"encoding/json"
	"net/http"
)

// ErrorBody is the error half of the response envelope.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type errorEnvelope struct {
	Error ErrorBody `json:"error"`
}

// JSON writes v with the given status. Encoding failures are not
// recoverable once the header is out, so they are dropped.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// JSONError renders the canonical error envelope.
func JSONError(w http.ResponseWriter, status int, code, message string, details any) {
	JSON(w, status, errorEnvelope{Error: ErrorBody{
		Code:    code,
		Message: message,
		Details: details,
	}})
}

// JSONAppError renders an AppError, filling in the generic internal error
// shape for fields the service left unset.
func JSONAppError(w http.ResponseWriter, e *AppError) {
	code := "INTERNAL"
	message := "internal error"
	var details any
	if e != nil {
		if e.Code != "" {
			code = e.Code
		}
		if e.Message != "" {
			message = e.Message
		}
		details = e.Details
	}
	JSONError(w, e.Status(), code, message, details)
}
