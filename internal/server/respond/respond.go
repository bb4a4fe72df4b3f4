// Package respond writes the service's JSON response envelope. Every
// transport response, success or error, goes through these helpers so the
// envelope shape stays uniform.
package respond

import (
	"encoding/json"
	"net/http"
)

// Envelope is the uniform response shape of the HTTP surface.
type Envelope struct {
	Status  string      `json:"status"` // "success" or "error"
	Message string      `json:"message,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	Code    string      `json:"code,omitempty"`
	Details interface{} `json:"details,omitempty"`
	Meta    interface{} `json:"meta,omitempty"`
}

// JSON writes a success envelope with the given payload.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	write(w, status, Envelope{Status: "success", Data: data})
}

// Message writes a success envelope carrying a message and payload.
func Message(w http.ResponseWriter, status int, message string, data interface{}) {
	write(w, status, Envelope{Status: "success", Message: message, Data: data})
}

// Error writes an error envelope with a stable error code and human message.
func Error(w http.ResponseWriter, status int, code, message string) {
	write(w, status, Envelope{Status: "error", Code: code, Message: message})
}

// ErrorDetails writes an error envelope with structured details attached.
func ErrorDetails(w http.ResponseWriter, status int, code, message string, details interface{}) {
	write(w, status, Envelope{Status: "error", Code: code, Message: message, Details: details})
}

func write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// An encode failure here means the connection is gone; nothing to do.
	_ = json.NewEncoder(w).Encode(env)
}
