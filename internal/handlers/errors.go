package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"shop-finder/internal/status"

	"github.com/pocketbase/pocketbase/apis"
)

// apiError maps service errors onto HTTP responses. Unknown errors are
// logged and reported as 500 without their detail.
func apiError(message string, err error) error {
	switch {
	case errors.Is(err, status.ErrShopNotFound),
		errors.Is(err, status.ErrEntryNotFound),
		errors.Is(err, status.ErrAppointmentNotFound),
		errors.Is(err, status.ErrUnknownService):
		return apis.NewNotFoundError(err.Error(), nil)
	case errors.Is(err, status.ErrInvalidEntry),
		errors.Is(err, status.ErrInvalidStatus),
		errors.Is(err, status.ErrInvalidAvailability),
		errors.Is(err, status.ErrInvalidAppointment):
		return apis.NewBadRequestError(err.Error(), nil)
	case errors.Is(err, status.ErrSourceUnavailable):
		return apis.NewApiError(http.StatusServiceUnavailable, "Shop data is temporarily unavailable", nil)
	case errors.Is(err, context.Canceled):
		return apis.NewApiError(499, "Request cancelled", nil)
	default:
		slog.Error(message, "error", err)
		return apis.NewInternalServerError(message, nil)
	}
}
