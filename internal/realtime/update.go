// Package realtime fans shop state changes out to subscribers.
package realtime

import (
	"context"
	"encoding/json"
	"fmt"

	"shop-finder/models"
)

type UpdateType string

const (
	UpdateQueue        UpdateType = "queue_updated"
	UpdateAvailability UpdateType = "availability_updated"
	UpdateShops        UpdateType = "shops_updated"
)

// ShopsChannel carries every update for every shop.
const ShopsChannel = "shops-all"

// ShopChannel carries the updates for a single shop.
func ShopChannel(shopID string) string {
	return fmt.Sprintf("shop-%s", shopID)
}

// Update is published whenever a shop's live state changes.
type Update struct {
	Type         UpdateType                      `json:"type"`
	ShopID       string                          `json:"shop_id,omitempty"`
	Timestamp    int64                           `json:"timestamp"`
	Queue        *models.QueueSnapshot           `json:"queue,omitempty"`
	Availability *models.ShopServiceAvailability `json:"availability,omitempty"`
}

func (u Update) Channels() []string {
	if u.ShopID == "" {
		return []string{ShopsChannel}
	}
	return []string{ShopChannel(u.ShopID), ShopsChannel}
}

type Publisher interface {
	Publish(ctx context.Context, update Update) error
}

// Source delivers updates to handle until ctx is done.
type Source interface {
	Subscribe(ctx context.Context, handle func(Update)) error
}

// DecodeUpdate accepts a message payload as delivered by PubNub: either
// already decoded JSON or a raw string.
func DecodeUpdate(payload any) (Update, error) {
	var update Update

	var data []byte
	switch p := payload.(type) {
	case string:
		data = []byte(p)
	case []byte:
		data = p
	default:
		encoded, err := json.Marshal(p)
		if err != nil {
			return update, fmt.Errorf("encode update payload: %w", err)
		}
		data = encoded
	}

	if err := json.Unmarshal(data, &update); err != nil {
		return update, fmt.Errorf("decode update: %w", err)
	}
	if update.Type == "" {
		return update, fmt.Errorf("decode update: missing type")
	}
	return update, nil
}
