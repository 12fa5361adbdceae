package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"shop-finder/internal/realtime"
	"shop-finder/internal/status"
	"shop-finder/internal/store"
	"shop-finder/models"
)

type AvailabilityService struct {
	availability *store.AvailabilityStore
	publisher    realtime.Publisher
	now          func() time.Time
}

func NewAvailabilityService(availability *store.AvailabilityStore, publisher realtime.Publisher, now func() time.Time) *AvailabilityService {
	if now == nil {
		now = time.Now
	}
	return &AvailabilityService{
		availability: availability,
		publisher:    publisher,
		now:          now,
	}
}

func (s *AvailabilityService) Get(ctx context.Context, shopID string) (*models.ShopServiceAvailability, error) {
	return s.availability.Get(ctx, shopID)
}

// Update changes the given fields of one service and leaves the rest alone.
func (s *AvailabilityService) Update(ctx context.Context, shopID, serviceID string, patch models.ServiceStatusPatch) (models.ServiceStatus, error) {
	if err := validatePatch(patch); err != nil {
		return models.ServiceStatus{}, err
	}

	now := s.now()
	updated, err := s.availability.UpdateService(ctx, shopID, serviceID, patch, now)
	if err != nil {
		return updated, err
	}

	s.announce(ctx, shopID, now)
	return updated, nil
}

// Initialize replaces the shop's services. Missing names and durations are
// filled in from the catalog.
func (s *AvailabilityService) Initialize(ctx context.Context, shopID string, services []models.ServiceStatus) (*models.ShopServiceAvailability, error) {
	prepared := make([]models.ServiceStatus, 0, len(services))
	seen := make(map[string]bool, len(services))

	for _, svc := range services {
		if svc.ID == "" {
			return nil, fmt.Errorf("%w: service id is required", status.ErrInvalidAvailability)
		}
		if seen[svc.ID] {
			return nil, fmt.Errorf("%w: duplicate service %s", status.ErrInvalidAvailability, svc.ID)
		}
		if svc.CurrentCapacity < 0 || svc.MaxCapacity < 0 {
			return nil, fmt.Errorf("%w: negative capacity for %s", status.ErrInvalidAvailability, svc.ID)
		}
		seen[svc.ID] = true

		if svc.Name == "" {
			svc.Name = svc.ID
		}
		if svc.EstimatedDuration == 0 {
			svc.EstimatedDuration = models.ServiceDuration(svc.ID)
		}
		prepared = append(prepared, svc)
	}

	now := s.now()
	availability, err := s.availability.Initialize(ctx, shopID, prepared, now)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, shopID, availability, now)
	return availability, nil
}

// DefaultServiceStatuses opens every listed service with the given capacity.
func DefaultServiceStatuses(serviceIDs []string, capacity int) []models.ServiceStatus {
	services := make([]models.ServiceStatus, 0, len(serviceIDs))
	for _, id := range serviceIDs {
		services = append(services, models.ServiceStatus{
			ID:                id,
			Name:              id,
			IsAvailable:       true,
			MaxCapacity:       capacity,
			EstimatedDuration: models.ServiceDuration(id),
		})
	}
	return services
}

func validatePatch(p models.ServiceStatusPatch) error {
	if p.CurrentCapacity != nil && *p.CurrentCapacity < 0 {
		return fmt.Errorf("%w: currentCapacity must not be negative", status.ErrInvalidAvailability)
	}
	if p.MaxCapacity != nil && *p.MaxCapacity < 0 {
		return fmt.Errorf("%w: maxCapacity must not be negative", status.ErrInvalidAvailability)
	}
	if p.EstimatedDuration != nil && *p.EstimatedDuration < 0 {
		return fmt.Errorf("%w: estimatedDuration must not be negative", status.ErrInvalidAvailability)
	}
	return nil
}

func (s *AvailabilityService) announce(ctx context.Context, shopID string, now time.Time) {
	availability, err := s.availability.Get(ctx, shopID)
	if err != nil {
		slog.Error("reload availability after write", "shopID", shopID, "error", err)
		return
	}
	s.publish(ctx, shopID, availability, now)
}

func (s *AvailabilityService) publish(ctx context.Context, shopID string, availability *models.ShopServiceAvailability, now time.Time) {
	update := realtime.Update{
		Type:         realtime.UpdateAvailability,
		ShopID:       shopID,
		Timestamp:    now.UnixMilli(),
		Availability: availability,
	}
	if err := s.publisher.Publish(ctx, update); err != nil {
		slog.Warn("publish availability update", "shopID", shopID, "error", err)
	}
}
