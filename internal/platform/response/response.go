// Package response writes the uniform JSON envelope every HTTP endpoint returns.
package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"prospect-platform/backend/internal/platform/logger"
)

// Envelope types.
const (
	TypeSuccess = "success"
	TypeFailure = "failure"
)

// Envelope is the body of every API response.
type Envelope struct {
	Type       string `json:"type"`
	Data       any    `json:"data"`
	StatusCode int    `json:"status_code"`
}

// Message is the data of a failure envelope and of message-only successes.
type Message struct {
	Message string `json:"message"`
}

// Write encodes env with status as the HTTP status.
func Write(w http.ResponseWriter, status int, env Envelope) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(env)
}

// Success writes a success envelope carrying data.
func Success(w http.ResponseWriter, status int, data any) {
	Write(w, status, Envelope{Type: TypeSuccess, Data: data, StatusCode: status})
}

// SuccessMessage writes a success envelope whose data is {"message": msg}.
func SuccessMessage(w http.ResponseWriter, status int, msg string) {
	Success(w, status, Message{Message: msg})
}

// Failure writes a failure envelope whose data is {"message": msg}.
func Failure(w http.ResponseWriter, status int, msg string) {
	Write(w, status, Envelope{Type: TypeFailure, Data: Message{Message: msg}, StatusCode: status})
}

// Internal logs err on the request logger and writes a 500 failure naming op.
func Internal(w http.ResponseWriter, r *http.Request, op string, err error) {
	logger.FromContext(r.Context()).Error("request failed", zap.String("op", op), zap.Error(err))
	Failure(w, http.StatusInternalServerError, fmt.Sprintf("error in %s: %v", op, err))
}

// Decode reads a JSON body into dst.
func Decode(r *http.Request, dst any) error {
	if r.Body == nil {
		return errors.New("empty body")
	}
	return json.NewDecoder(r.Body).Decode(dst)
}
