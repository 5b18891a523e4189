package utils

import (
	"encoding/json"
	"net/http"

	"ms-admission/internal/apperrors"
)

type ErrorResponse struct {
	Success bool     `json:"success"`
	Error   string   `json:"error"`
	Errors  []string `json:"errors,omitempty"`
}

// WriteJSON sends v with the given status. Encoding errors are dropped because the
// status line has already been written.
func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError maps err onto its HTTP status and a structured body.
func WriteError(w http.ResponseWriter, err error) {
	msg, details := apperrors.PublicMessage(err)
	WriteJSON(w, apperrors.HTTPStatus(err), ErrorResponse{
		Success: false,
		Error:   msg,
		Errors:  details,
	})
}

func WriteBadRequest(w http.ResponseWriter, msg string) {
	WriteJSON(w, http.StatusBadRequest, ErrorResponse{Success: false, Error: msg})
}
