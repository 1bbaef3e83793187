package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// ErrorBody is the error response shape: {"detail": "..."}.
type ErrorBody struct {
	Detail string `json:"detail"`
}

// WriteJSON serialises resp as JSON and writes it with the given status.
func WriteJSON(w http.ResponseWriter, status int, resp interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// BadRequest writes a 400 error response.
func BadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, ErrorBody{Detail: msg})
}

// NotFound writes a 404 error response.
func NotFound(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusNotFound, ErrorBody{Detail: msg})
}

// TooLarge writes a 413 error response.
func TooLarge(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusRequestEntityTooLarge, ErrorBody{Detail: msg})
}

// Internal writes a 500 error response.
func Internal(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusInternalServerError, ErrorBody{Detail: msg})
}
