// Package httputil provides HTTP handler utilities for consistent error handling,
// JSON encoding and request parsing.
package httputil

import (
	"encoding/json"
	"net/http"
)

// Messages partners already match on
const (
	DetailNotAuthenticated     = "Authentication credentials were not provided."
	DetailIncorrectCredentials = "Incorrect authentication credentials."
	DetailPermissionDenied     = "You do not have permission to perform this action."
	DetailNotFound             = "Not found."
	DetailUnavailable          = "Service temporarily unavailable, try again later."
	DetailInternal             = "Internal server error."
)

// ErrorResponse is the error body shape: {"detail": "..."}
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// WriteJSON writes a JSON response with the given status code
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteDetail writes an error response carrying message as its detail
func WriteDetail(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorResponse{Detail: message})
}

// WriteSuccess writes a successful response (200 OK) with JSON data
func WriteSuccess(w http.ResponseWriter, data interface{}) error {
	return WriteJSON(w, http.StatusOK, data)
}

// WriteBadRequest writes a bad request error (400)
func WriteBadRequest(w http.ResponseWriter, message string) {
	WriteDetail(w, http.StatusBadRequest, message)
}

// WriteUnauthorized writes an unauthorized error (401)
func WriteUnauthorized(w http.ResponseWriter, message string) {
	WriteDetail(w, http.StatusUnauthorized, message)
}

// WriteForbidden writes the permission denied error (403)
func WriteForbidden(w http.ResponseWriter) {
	WriteDetail(w, http.StatusForbidden, DetailPermissionDenied)
}

// WriteNotFound writes a not found error (404)
func WriteNotFound(w http.ResponseWriter) {
	WriteDetail(w, http.StatusNotFound, DetailNotFound)
}

// WriteServiceUnavailable writes a service unavailable error (503)
func WriteServiceUnavailable(w http.ResponseWriter) {
	WriteDetail(w, http.StatusServiceUnavailable, DetailUnavailable)
}

// WriteInternalError writes an internal server error (500) without leaking err
func WriteInternalError(w http.ResponseWriter) {
	WriteDetail(w, http.StatusInternalServerError, DetailInternal)
}
