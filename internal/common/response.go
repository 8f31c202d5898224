package common

import (
	"encoding/json"
	"net/http"
)

// Envelope is the response shape shared by every JSON endpoint.
type Envelope struct {
	Status  bool   `json:"status"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// JSON writes the provided value to the response writer as JSON.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK renders a successful envelope.
func OK(w http.ResponseWriter, message string, data any) {
	JSON(w, http.StatusOK, Envelope{Status: true, Message: message, Data: data})
}

// Fail renders a failure envelope carrying the message under "error".
func Fail(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Status: false, Error: message})
}

// FailMessage renders a failure envelope carrying the message under "message".
// Provider-reported verification failures use this shape.
func FailMessage(w http.ResponseWriter, status int, message string) {
	JSON(w, status, Envelope{Status: false, Message: message})
}

// FailError renders err using its AppError classification when available.
func FailError(w http.ResponseWriter, err error, fallback string) {
	appErr, ok := AsAppError(err)
	if !ok {
		Fail(w, http.StatusInternalServerError, fallback)
		return
	}
	Fail(w, appErr.Status(), appErr.Message)
}

// MethodNotAllowed renders the canonical 405 envelope.
func MethodNotAllowed(w http.ResponseWriter, _ *http.Request) {
	Fail(w, http.StatusMethodNotAllowed, "Method not allowed")
}

// NotFound renders the canonical 404 envelope.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	Fail(w, http.StatusNotFound, "Not found")
}
