package apicontrollers

import (
	"net/http"

	"github.com/drujensen/researchagent/internal/domain/errs"
)

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch err.(type) {
	case *errs.ValidationError:
		return http.StatusBadRequest
	case *errs.UnauthorizedError:
		return http.StatusUnauthorized
	case *errs.NotFoundError:
		return http.StatusNotFound
	case *errs.CanceledError:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}
