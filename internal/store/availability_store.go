package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"shop-finder/internal/status"
	"shop-finder/models"

	"github.com/redis/go-redis/v9"
)

type AvailabilityStore struct {
	Redis *redis.Client
}

func NewAvailabilityStore(redisClient *redis.Client) *AvailabilityStore {
	return &AvailabilityStore{Redis: redisClient}
}

func servicesKey(shopID string) string {
	return fmt.Sprintf("availability:%s:services", shopID)
}

func availabilityUpdatedKey(shopID string) string {
	return fmt.Sprintf("availability:%s:updated", shopID)
}

// Get returns the shop's service availability, or nil when the shop was
// never initialized.
func (s *AvailabilityStore) Get(ctx context.Context, shopID string) (*models.ShopServiceAvailability, error) {
	raw, err := s.Redis.HGetAll(ctx, servicesKey(shopID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read availability %s: %w", shopID, err)
	}

	updated, err := s.Redis.Get(ctx, availabilityUpdatedKey(shopID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("read availability timestamp %s: %w", shopID, err)
	}

	if len(raw) == 0 && updated == 0 {
		return nil, nil
	}

	availability := &models.ShopServiceAvailability{
		Services:    make(map[string]models.ServiceStatus, len(raw)),
		LastUpdated: updated,
	}
	for serviceID, data := range raw {
		var svc models.ServiceStatus
		if err := json.Unmarshal([]byte(data), &svc); err != nil {
			return nil, fmt.Errorf("decode service %s/%s: %w", shopID, serviceID, err)
		}
		availability.Services[serviceID] = svc
	}

	return availability, nil
}

// UpdateService applies patch to one existing service and stamps both the
// service and the shop with now.
func (s *AvailabilityStore) UpdateService(ctx context.Context, shopID, serviceID string, patch models.ServiceStatusPatch, now time.Time) (models.ServiceStatus, error) {
	var svc models.ServiceStatus

	data, err := s.Redis.HGet(ctx, servicesKey(shopID), serviceID).Result()
	if errors.Is(err, redis.Nil) {
		return svc, status.ErrUnknownService
	}
	if err != nil {
		return svc, fmt.Errorf("read service %s/%s: %w", shopID, serviceID, err)
	}
	if err := json.Unmarshal([]byte(data), &svc); err != nil {
		return svc, fmt.Errorf("decode service %s/%s: %w", shopID, serviceID, err)
	}

	svc = patch.Apply(svc)
	svc.LastUpdated = now.UnixMilli()

	encoded, err := json.Marshal(svc)
	if err != nil {
		return svc, err
	}

	_, err = s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, servicesKey(shopID), serviceID, string(encoded))
		pipe.Set(ctx, availabilityUpdatedKey(shopID), now.UnixMilli(), 0)
		return nil
	})
	if err != nil {
		return svc, fmt.Errorf("write service %s/%s: %w", shopID, serviceID, err)
	}

	return svc, nil
}

// Initialize replaces every service the shop offers.
func (s *AvailabilityStore) Initialize(ctx context.Context, shopID string, services []models.ServiceStatus, now time.Time) (*models.ShopServiceAvailability, error) {
	availability := &models.ShopServiceAvailability{
		Services:    make(map[string]models.ServiceStatus, len(services)),
		LastUpdated: now.UnixMilli(),
	}

	fields := make([]any, 0, len(services)*2)
	for _, svc := range services {
		svc.LastUpdated = now.UnixMilli()
		encoded, err := json.Marshal(svc)
		if err != nil {
			return nil, err
		}
		fields = append(fields, svc.ID, string(encoded))
		availability.Services[svc.ID] = svc
	}

	_, err := s.Redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, servicesKey(shopID))
		if len(fields) > 0 {
			pipe.HSet(ctx, servicesKey(shopID), fields...)
		}
		pipe.Set(ctx, availabilityUpdatedKey(shopID), now.UnixMilli(), 0)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("initialize availability %s: %w", shopID, err)
	}

	return availability, nil
}
