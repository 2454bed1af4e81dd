package rest

import (
	"encoding/json"
	"net/http"
)

// Message is the body of every error response and of plain acknowledgements.
type Message struct {
	Message string `json:"message"`
}

const (
	msgFieldsRequired     = "Username and password are required"
	msgUserExists         = "User already exists. Please login"
	msgInvalidCredentials = "Invalid credentials"
	msgUnauthorized       = "Unauthorized"
	msgInternal           = "Internal server error"
	msgInvalidBody        = "Invalid request body"
	msgRegisterComplete   = "register complete"
)

func (h *Handlers) respondJSON(w http.ResponseWriter, r *http.Request, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error(r.Context(), "failed to encode response", "error", err)
	}
}

func (h *Handlers) respondMessage(w http.ResponseWriter, r *http.Request, code int, msg string) {
	h.respondJSON(w, r, code, Message{Message: msg})
}
