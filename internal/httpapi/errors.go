package httpapi

import (
	"errors"
	"net/http"

	"sopline.io/internal/auth"
	"sopline.io/internal/flow"
	"sopline.io/internal/library"
	"sopline.io/internal/obs"
	"sopline.io/internal/share"
)

var (
	badRequest = []error{
		auth.ErrInvalidInput, library.ErrInvalidInput, share.ErrInvalidInput, flow.ErrInvalidInput,
	}
	unauthorized = []error{
		auth.ErrUnauthorized, auth.ErrInvalidToken, flow.ErrUnauthorized,
		share.ErrInvalidPassword, share.ErrLocked,
	}
	forbidden = []error{auth.ErrForbidden, library.ErrForbidden, share.ErrForbidden}
	notFound  = []error{auth.ErrNotFound, library.ErrNotFound, share.ErrNotFound, flow.ErrNotFound}
	conflict  = []error{auth.ErrConflict, library.ErrConflict, share.ErrConflict}
)

func isAny(err error, targets []error) bool {
	for _, target := range targets {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// statusFor maps a service error onto its HTTP status.
func statusFor(err error) int {
	switch {
	case isAny(err, badRequest):
		return http.StatusBadRequest
	case isAny(err, unauthorized):
		return http.StatusUnauthorized
	case isAny(err, forbidden):
		return http.StatusForbidden
	case isAny(err, notFound):
		return http.StatusNotFound
	case isAny(err, conflict):
		return http.StatusConflict
	case errors.Is(err, library.ErrRetryable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// handleServiceError writes err with its status. Internal errors are logged
// and answered with a generic message.
func handleServiceError(w http.ResponseWriter, r *http.Request, err error) {
	code := statusFor(err)
	switch code {
	case http.StatusInternalServerError:
		obs.Logger().Error().Err(err).
			Str("request_id", RequestIDFromContext(r.Context())).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Msg("request_failed")
		writeError(w, r, code, "internal error")
	case http.StatusServiceUnavailable:
		w.Header().Set("Retry-After", "1")
		writeError(w, r, code, err.Error())
	default:
		writeError(w, r, code, err.Error())
	}
}
