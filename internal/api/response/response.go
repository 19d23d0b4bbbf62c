// Package response writes the JSON bodies shared by handlers and middleware.
package response

import (
	"encoding/json"
	"log"
	"net/http"
)

// ErrorBody is the error envelope: a short message plus the underlying
// detail. Detail is omitted when empty.
type ErrorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// JSON writes data as a JSON body with the given status code. A nil data
// writes the status alone. Encoding failures are logged, not surfaced; the
// status line is already on the wire.
func JSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("Failed to encode JSON response: %v", err)
		}
	}
}

// Error writes an ErrorBody with the given status code.
func Error(w http.ResponseWriter, status int, message, detail string) {
	JSON(w, status, ErrorBody{Error: message, Detail: detail})
}
