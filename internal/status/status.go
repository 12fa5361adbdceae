package status

import "errors"

var (
	ErrShopNotFound        = errors.New("shop: shop not found")
	ErrEntryNotFound       = errors.New("queue: entry not found")
	ErrInvalidEntry        = errors.New("queue: user and service are required")
	ErrInvalidStatus       = errors.New("queue: invalid entry status")
	ErrInvalidAvailability = errors.New("availability: invalid service status")
	ErrUnknownService      = errors.New("availability: service not offered")
	ErrAppointmentNotFound = errors.New("appointment: appointment not found")
	ErrInvalidAppointment  = errors.New("appointment: invalid appointment")
	ErrSourceUnavailable   = errors.New("snapshot: source unavailable")
)
