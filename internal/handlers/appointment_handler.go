package handlers

import (
	"errors"
	"net/http"

	"shop-finder/internal/appointments"
	"shop-finder/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type AppointmentHandler struct {
	appointments *appointments.Service
}

func NewAppointmentHandler(appointmentService *appointments.Service) *AppointmentHandler {
	return &AppointmentHandler{appointments: appointmentService}
}

// callerID prefers the authenticated record over a user id sent by the client.
func callerID(e *core.RequestEvent, claimed string) string {
	if e.Auth != nil {
		return e.Auth.Id
	}
	return claimed
}

func (h *AppointmentHandler) CreateAppointment(e *core.RequestEvent) error {
	var req appointments.CreateRequest
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	req.UserID = callerID(e, req.UserID)

	appointment, err := h.appointments.Create(e.Request.Context(), req)
	if err != nil {
		return apiError("Failed to book appointment", err)
	}

	return e.JSON(http.StatusCreated, appointment)
}

// ListAppointments - the caller's appointments, earliest first
func (h *AppointmentHandler) ListAppointments(e *core.RequestEvent) error {
	userID := callerID(e, e.Request.URL.Query().Get("user_id"))
	if userID == "" {
		return apis.NewBadRequestError("Invalid request", errors.New("user_id is required"))
	}

	list, err := h.appointments.ListByUser(e.Request.Context(), userID)
	if err != nil {
		return apiError("Failed to list appointments", err)
	}

	return e.JSON(http.StatusOK, list)
}

// CancelAppointment - callers may only cancel their own appointments
func (h *AppointmentHandler) CancelAppointment(e *core.RequestEvent) error {
	ctx := e.Request.Context()
	id := e.Request.PathValue("id")

	if e.Auth != nil && !e.HasSuperuserAuth() {
		existing, err := h.appointments.Get(ctx, id)
		if err != nil {
			return apiError("Failed to cancel appointment", err)
		}
		if existing.UserID != e.Auth.Id {
			return apis.NewForbiddenError("Not your appointment", nil)
		}
	}

	appointment, err := h.appointments.Cancel(ctx, id)
	if err != nil {
		return apiError("Failed to cancel appointment", err)
	}

	return e.JSON(http.StatusOK, appointment)
}

// UpdateAppointmentStatus - staff marks an appointment completed or cancelled
func (h *AppointmentHandler) UpdateAppointmentStatus(e *core.RequestEvent) error {
	if e.Auth == nil || !e.HasSuperuserAuth() {
		return apis.NewUnauthorizedError("Admin access required", nil)
	}

	var req struct {
		Status models.AppointmentStatus `json:"status"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	appointment, err := h.appointments.UpdateStatus(e.Request.Context(), e.Request.PathValue("id"), req.Status)
	if err != nil {
		return apiError("Failed to update appointment", err)
	}

	return e.JSON(http.StatusOK, appointment)
}
