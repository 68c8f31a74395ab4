// Package httputil holds the JSON response helpers shared by the API
// handlers.
package httputil

import (
	"encoding/json"
	"log"
	"net/http"

	"github.com/jagreenwood/healthkit-workout-splits/internal/workout"
)

// ErrorResponse is the body of every JSON error.
type ErrorResponse struct {
	Error string       `json:"error"`
	Code  workout.Code `json:"code,omitempty"`
}

// WriteJSONError writes a JSON error response with the given status code and message.
func WriteJSONError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, ErrorResponse{Error: msg})
}

// WriteJSON writes a JSON response with the given status code and data.
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("failed to encode json response: %v", err)
	}
}

// WriteJSONOK writes a successful JSON response (200 OK).
func WriteJSONOK(w http.ResponseWriter, data interface{}) {
	WriteJSON(w, http.StatusOK, data)
}

// MethodNotAllowed writes a 405 Method Not Allowed response.
func MethodNotAllowed(w http.ResponseWriter) {
	WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
}

// BadRequest writes a 400 Bad Request response with the given message.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSONError(w, http.StatusBadRequest, msg)
}

// StatusFor maps a workout error code to an HTTP status.
func StatusFor(code workout.Code) int {
	switch code {
	case workout.CodeOK:
		return http.StatusOK
	case workout.CodeInvalidTarget:
		return http.StatusBadRequest
	case workout.CodeUnauthorized:
		return http.StatusUnauthorized
	case workout.CodeNotFound:
		return http.StatusNotFound
	case workout.CodeNoDistance, workout.CodeNoSamples, workout.CodeInsufficientData:
		return http.StatusUnprocessableEntity
	case workout.CodeUnavailable:
		return http.StatusServiceUnavailable
	case workout.CodeCanceled:
		return 499 // client closed request
	default:
		return http.StatusInternalServerError
	}
}

// WriteError classifies err and writes it with the matching status.
// Internal errors are logged and reported without their detail.
func WriteError(w http.ResponseWriter, err error) {
	code := workout.Classify(err)
	status := StatusFor(code)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Printf("internal error: %v", err)
		msg = "internal server error"
	}
	WriteJSON(w, status, ErrorResponse{Error: msg, Code: code})
}
