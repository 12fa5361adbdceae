package handlers

import (
	"net/http"

	"shop-finder/internal/services"
	"shop-finder/internal/status"
	"shop-finder/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type AvailabilityHandler struct {
	availabilityService *services.AvailabilityService
}

func NewAvailabilityHandler(availabilityService *services.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{availabilityService: availabilityService}
}

func (h *AvailabilityHandler) GetAvailability(e *core.RequestEvent) error {
	shopID := e.Request.PathValue("shopId")

	availability, err := h.availabilityService.Get(e.Request.Context(), shopID)
	if err != nil {
		return apiError("Failed to read availability", err)
	}
	if availability == nil {
		return apiError("No availability for shop", status.ErrShopNotFound)
	}

	return e.JSON(http.StatusOK, availability)
}

// UpdateService - partial update of one service, absent fields are kept
func (h *AvailabilityHandler) UpdateService(e *core.RequestEvent) error {
	var patch models.ServiceStatusPatch
	if err := e.BindBody(&patch); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	updated, err := h.availabilityService.Update(e.Request.Context(),
		e.Request.PathValue("shopId"),
		e.Request.PathValue("serviceId"),
		patch,
	)
	if err != nil {
		return apiError("Failed to update service", err)
	}

	return e.JSON(http.StatusOK, updated)
}

// InitializeServices - replace every service the shop offers
func (h *AvailabilityHandler) InitializeServices(e *core.RequestEvent) error {
	if e.Auth == nil || !e.HasSuperuserAuth() {
		return apis.NewUnauthorizedError("Admin access required", nil)
	}

	var req struct {
		Services []models.ServiceStatus `json:"services"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	availability, err := h.availabilityService.Initialize(e.Request.Context(), e.Request.PathValue("shopId"), req.Services)
	if err != nil {
		return apiError("Failed to initialize services", err)
	}

	return e.JSON(http.StatusOK, availability)
}
