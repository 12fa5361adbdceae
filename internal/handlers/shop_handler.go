package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"shop-finder/internal/services"
	"shop-finder/models"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/subscriptions"
)

// RecommendationsTopic is the realtime topic clients subscribe to for
// live rankings.
const RecommendationsTopic = "recommendations"

type ShopHandler struct {
	discovery *services.DiscoveryService
}

func NewShopHandler(discovery *services.DiscoveryService) *ShopHandler {
	return &ShopHandler{discovery: discovery}
}

// GetRecommendations - every shop ranked by score, plus alternatives to the best one
func (h *ShopHandler) GetRecommendations(e *core.RequestEvent) error {
	discovery, err := h.discovery.Discover(e.Request.Context())
	if err != nil {
		return apiError("Failed to rank shops", err)
	}
	return e.JSON(http.StatusOK, discovery)
}

// GetAlternatives - shops worth suggesting instead of shopId
func (h *ShopHandler) GetAlternatives(e *core.RequestEvent) error {
	shopID := e.Request.PathValue("shopId")

	var maxWait float64
	if raw := e.Request.URL.Query().Get("max_wait"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return apis.NewBadRequestError("max_wait must be a number of minutes", err)
		}
		maxWait = parsed
	}

	alternatives, err := h.discovery.Alternatives(e.Request.Context(), shopID, maxWait)
	if err != nil {
		return apiError("Failed to find alternatives", err)
	}

	return e.JSON(http.StatusOK, map[string]any{
		"shopId":       shopID,
		"alternatives": alternatives,
	})
}

// StreamRecommendations pushes a fresh ranking to every realtime client
// subscribed to RecommendationsTopic, once now and again after each shop
// update, until ctx is done.
func (h *ShopHandler) StreamRecommendations(ctx context.Context, app core.App) error {
	return h.discovery.Watch(ctx, func(discovery *models.Discovery, err error) {
		if err != nil {
			slog.Warn("rank shops for realtime clients", "error", err)
			return
		}

		data, err := json.Marshal(discovery)
		if err != nil {
			slog.Error("encode recommendations", "error", err)
			return
		}

		message := subscriptions.Message{Name: RecommendationsTopic, Data: data}
		for _, client := range app.SubscriptionsBroker().Clients() {
			if client.HasSubscription(RecommendationsTopic) {
				client.Send(message)
			}
		}
	})
}
