package http

import (
	"errors"
	"net/http"
	"strings"

	"expensetracker/internal/core"
	"expensetracker/internal/log"
)

// errBadJSON marks a body that could not be decoded at all.
var errBadJSON = errors.New("malformed JSON body")

// writeError maps a service error onto the response taxonomy. Anything
// unrecognised is a 500 and gets logged with its cause.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error, notFoundMsg string) {
	var verr *core.ValidationError
	switch {
	case errors.Is(err, errBadJSON):
		BadRequestError("Invalid JSON body").Write(w)
	case errors.As(err, &verr):
		ValidationErrorResponse(verr).Write(w)
	case errors.Is(err, core.ErrUnauthorized):
		UnauthorizedError().Write(w)
	case errors.Is(err, core.ErrNotFound):
		NotFoundError(notFoundMsg).Write(w)
	case errors.Is(err, core.ErrConflict):
		ConflictError(conflictMessage(err)).Write(w)
	default:
		errType := log.ErrorTypeInternal
		if errors.Is(err, core.ErrStoreUnavailable) {
			errType = log.ErrorTypeDatabase
		}
		log.FromContext(r.Context()).ErrorContext(r.Context(), "Request failed",
			log.FieldError, err,
			log.FieldErrorType, errType,
			log.FieldMethod, r.Method,
			log.FieldPath, r.URL.Path)
		InternalServerError().Write(w)
	}
}

func conflictMessage(err error) string {
	// The service wraps conflicts as "<message>: conflict".
	full := err.Error()
	if msg := strings.TrimSuffix(full, ": "+core.ErrConflict.Error()); msg != full {
		return msg
	}
	return "Resource already exists"
}
