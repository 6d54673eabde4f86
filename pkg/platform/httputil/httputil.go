// Package httputil holds small helpers shared by the HTTP layer.
package httputil

import (
	"encoding/json"
	"net/http"
)

// WriteJSON writes v as a JSON response with the given status code.
// Encoding errors are swallowed: by the time Encode fails the status line is
// already on the wire, so there is nothing useful left to send.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError writes the standard JSON error envelope.
func WriteError(w http.ResponseWriter, status int, errCode, errDesc string) {
	WriteJSON(w, status, map[string]string{
		"error":             errCode,
		"error_description": errDesc,
	})
}
