package handlers

import (
	"errors"
	"net/http"

	"shop-finder/internal/services"
	"shop-finder/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
)

type QueueHandler struct {
	queueService *services.QueueService
}

func NewQueueHandler(queueService *services.QueueService) *QueueHandler {
	return &QueueHandler{queueService: queueService}
}

// GetQueue - the shop's live queue, empty when nobody ever joined
func (h *QueueHandler) GetQueue(e *core.RequestEvent) error {
	shopID := e.Request.PathValue("shopId")

	queue, err := h.queueService.Snapshot(e.Request.Context(), shopID)
	if err != nil {
		return apiError("Failed to read queue", err)
	}
	if queue == nil {
		queue = &models.QueueSnapshot{Entries: map[string]models.QueueEntry{}}
	}

	return e.JSON(http.StatusOK, queue)
}

// GetEstimate - the wait someone joining now would be quoted
func (h *QueueHandler) GetEstimate(e *core.RequestEvent) error {
	shopID := e.Request.PathValue("shopId")

	wait, err := h.queueService.Estimate(e.Request.Context(), shopID)
	if err != nil {
		return apiError("Failed to estimate wait", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"shopId":            shopID,
		"estimatedWaitTime": wait,
	})
}

// EnterQueue - join a shop's queue. Authenticated callers join as themselves.
func (h *QueueHandler) EnterQueue(e *core.RequestEvent) error {
	var req struct {
		UserID    string `json:"userId"`
		ServiceID string `json:"serviceId"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}
	if e.Auth != nil {
		req.UserID = e.Auth.Id
	}
	if req.UserID == "" {
		return apis.NewBadRequestError("Invalid request", errors.New("user id must not be empty"))
	}

	ticket, err := h.queueService.Enter(e.Request.Context(), e.Request.PathValue("shopId"), req.UserID, req.ServiceID)
	if err != nil {
		return apiError("Failed to join queue", err)
	}

	return e.JSON(http.StatusCreated, ticket)
}

// UpdateEntryStatus - move an entry to in-progress, completed or cancelled
func (h *QueueHandler) UpdateEntryStatus(e *core.RequestEvent) error {
	var req struct {
		Status models.EntryStatus `json:"status"`
	}
	if err := e.BindBody(&req); err != nil {
		return apis.NewBadRequestError("Invalid request", err)
	}

	entry, err := h.queueService.UpdateStatus(e.Request.Context(),
		e.Request.PathValue("shopId"),
		e.Request.PathValue("entryKey"),
		req.Status,
	)
	if err != nil {
		return apiError("Failed to update queue entry", err)
	}

	return e.JSON(http.StatusOK, entry)
}
