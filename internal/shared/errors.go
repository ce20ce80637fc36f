package shared

import "errors"

// Error kinds recognised by the HTTP boundary.
var (
	// ErrValidation indicates missing or malformed input.
	ErrValidation = errors.New("validation failed")
	// ErrUnauthenticated indicates bad credentials or an invalid token.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden indicates the principal lacks the required capability.
	ErrForbidden = errors.New("forbidden")
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrConflict indicates a duplicate record or an illegal state transition.
	ErrConflict = errors.New("conflict")
	// ErrPolicy indicates a business policy refused the operation.
	ErrPolicy = errors.New("policy violation")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = NewError(ErrUnauthenticated, "invalid_credentials", "Email ou mot de passe incorrect.")
)

// Error carries a user-facing message on top of one of the error kinds.
type Error struct {
	Kind    error
	Code    string
	Message string
}

// NewError builds an Error of the given kind.
func NewError(kind error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Validation is shorthand for a validation failure without a code.
func Validation(message string) *Error {
	return NewError(ErrValidation, "", message)
}

func (e *Error) Error() string {
	if e.Message == "" {
		return e.Kind.Error()
	}
	return e.Message
}

// Unwrap exposes the kind to errors.Is.
func (e *Error) Unwrap() error {
	return e.Kind
}

// UserSafeMessage returns the message that can be shown to API clients.
func UserSafeMessage(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Error()
	}
	for _, kind := range []error{ErrValidation, ErrUnauthenticated, ErrForbidden, ErrNotFound, ErrConflict, ErrPolicy} {
		if errors.Is(err, kind) {
			return err.Error()
		}
	}
	return "Erreur interne du serveur."
}

// ErrorCode returns the machine-readable code attached to err, if any.
func ErrorCode(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}
