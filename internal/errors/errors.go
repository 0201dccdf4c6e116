// Package gerr maps domain errors to the status and message a caller sees.
// Internal details are only logged, never returned.
package gerr

import (
	"errors"
	"net/http"

	"github.com/jekabolt/grbpwr-insights/internal/dashboard"
	"github.com/jekabolt/grbpwr-insights/internal/period"
)

var (
	// ErrInvalidArgument marks errors caused by the request itself. Their
	// message is safe to return.
	ErrInvalidArgument = errors.New("invalid argument")

	MsgOrdersUnavailable = "failed to load orders"
	MsgInternal          = "internal server error"
)

// Status is the caller-facing form of an error.
type Status struct {
	Code    int
	Message string
}

// Convert maps err to a Status.
func Convert(err error) Status {
	switch {
	case err == nil:
		return Status{Code: http.StatusOK}
	case errors.Is(err, ErrInvalidArgument):
		return Status{Code: http.StatusBadRequest, Message: err.Error()}
	case errors.Is(err, period.ErrInvalidRange):
		return Status{Code: http.StatusBadRequest, Message: period.ErrInvalidRange.Error()}
	case errors.Is(err, dashboard.ErrOrdersUnavailable):
		return Status{Code: http.StatusBadGateway, Message: MsgOrdersUnavailable}
	default:
		return Status{Code: http.StatusInternalServerError, Message: MsgInternal}
	}
}
