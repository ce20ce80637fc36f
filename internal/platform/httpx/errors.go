// Package httpx provides HTTP response utilities.
package httpx

import (
	"errors"
	"net/http"

	"github.com/sahel-erp/sahel-erp/internal/shared"
)

// CodeZoneNameRequired marks a check-in that fell outside every known zone.
const CodeZoneNameRequired = "zone_name_required"

// StatusFor maps an error kind to its HTTP status and title.
func StatusFor(err error) (int, string) {
	switch {
	case errors.Is(err, shared.ErrValidation):
		return http.StatusBadRequest, "Validation Failed"
	case errors.Is(err, shared.ErrUnauthenticated):
		return http.StatusUnauthorized, "Unauthorized"
	case errors.Is(err, shared.ErrForbidden):
		return http.StatusForbidden, "Forbidden"
	case errors.Is(err, shared.ErrPolicy):
		return http.StatusForbidden, "Policy Violation"
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound, "Not Found"
	case errors.Is(err, shared.ErrConflict):
		return http.StatusConflict, "Conflict"
	default:
		return http.StatusInternalServerError, "Internal Error"
	}
}

// RespondError maps domain errors to structured JSON responses.
func RespondError(w http.ResponseWriter, err error) {
	status, title := StatusFor(err)
	code := shared.ErrorCode(err)
	Problem(w, ProblemDetail{
		Title:        title,
		Status:       status,
		Msg:          shared.UserSafeMessage(err),
		Code:         code,
		NeedZoneName: code == CodeZoneNameRequired,
	})
}
