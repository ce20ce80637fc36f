package httpx

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sahel-erp/sahel-erp/internal/shared"
)

// ProblemDetail is the error body returned by every endpoint.
type ProblemDetail struct {
	Success      bool   `json:"success"`
	Title        string `json:"title"`
	Status       int    `json:"status"`
	Msg          string `json:"msg"`
	Code         string `json:"code,omitempty"`
	NeedZoneName bool   `json:"need_zone_name,omitempty"`
}

const maxBodyBytes = 1 << 20

// JSON sends a JSON response with the given status code.
func JSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

// Problem sends a problem response.
func Problem(w http.ResponseWriter, p ProblemDetail) {
	p.Success = false
	JSON(w, p.Status, p)
}

// Message sends {"success": true, "msg": ...}.
func Message(w http.ResponseWriter, status int, msg string) {
	JSON(w, status, map[string]any{"success": true, "msg": msg})
}

// DecodeJSON decodes JSON request body into the target struct.
// Malformed bodies are reported as validation errors.
func DecodeJSON(r *http.Request, target any) error {
	if r.Body == nil {
		return shared.Validation("Aucune donnée fournie")
	}
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return shared.Validation("Aucune donnée fournie")
		}
		return shared.Validation(fmt.Sprintf("JSON invalide: %v", err))
	}
	return nil
}
