package handlers

import (
	"log"
	"net/http"

	"shop-finder/internal/services"
	"shop-finder/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type AdminHandler struct {
	queueService *services.QueueService
}

func NewAdminHandler(queueService *services.QueueService) *AdminHandler {
	return &AdminHandler{queueService: queueService}
}

// GetQueueDashboard - size and average wait of every live queue
func (h *AdminHandler) GetQueueDashboard(e *core.RequestEvent) error {
	if e.Auth == nil || !e.HasSuperuserAuth() {
		return apis.NewUnauthorizedError("Admin access required", nil)
	}

	summaries, err := h.queueService.Overview(e.Request.Context())
	if err != nil {
		return apiError("Failed to load queue dashboard", err)
	}

	return e.JSON(http.StatusOK, summaries)
}

// RemoveFromQueue - cancel someone's entry on their behalf
func (h *AdminHandler) RemoveFromQueue(e *core.RequestEvent) error {
	if e.Auth == nil || !e.HasSuperuserAuth() {
		return apis.NewUnauthorizedError("Admin access required", nil)
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	shopID := e.Request.PathValue("shopId")
	entryKey := e.Request.PathValue("entryKey")

	log.Printf("Admin %s removing entry %s from shop %s queue. Reason: %s",
		e.Auth.Id, entryKey, shopID, req.Reason)

	entry, err := h.queueService.UpdateStatus(e.Request.Context(), shopID, entryKey, models.StatusCancelled)
	if err != nil {
		return apiError("Failed to remove from queue", err)
	}

	return e.JSON(http.StatusOK, map[string]any{"message": "Entry removed from queue", "entry": entry})
}
