package services

import (
	"context"
	"log/slog"
	"time"

	"shop-finder/internal/estimator"
	"shop-finder/internal/realtime"
	"shop-finder/internal/scoring"
	"shop-finder/models"
	"shop-finder/monitoring"
)

type ShopLister interface {
	List(ctx context.Context) ([]models.Shop, error)
}

type DiscoveryService struct {
	shops   ShopLister
	scorer  *scoring.Scorer
	updates realtime.Source
	maxWait float64
	now     func() time.Time
}

func NewDiscoveryService(shops ShopLister, scorer *scoring.Scorer, updates realtime.Source, maxWait float64, now func() time.Time) *DiscoveryService {
	if now == nil {
		now = time.Now
	}
	if maxWait <= 0 {
		maxWait = scoring.DefaultMaxWaitMinutes
	}
	return &DiscoveryService{
		shops:   shops,
		scorer:  scorer,
		updates: updates,
		maxWait: maxWait,
		now:     now,
	}
}

// Discover ranks every shop and suggests alternatives to the best one.
// Shops that are suggested as alternatives are flagged in the listing.
func (s *DiscoveryService) Discover(ctx context.Context) (*models.Discovery, error) {
	defer monitoring.ObserveScoring("discover", time.Now())

	shops, err := s.shops.List(ctx)
	if err != nil {
		return nil, err
	}

	details := make([]models.ShopDetails, len(shops))
	byID := make(map[string]models.Shop, len(shops))
	for i, shop := range shops {
		details[i] = shop.ShopDetails
		byID[shop.ID] = shop
	}

	assessments, err := s.scorer.Assess(ctx, details)
	if err != nil {
		return nil, err
	}

	discovery := &models.Discovery{
		Shops:        make([]models.ShopListing, 0, len(assessments)),
		Alternatives: []models.ShopScore{},
	}
	if len(assessments) == 0 {
		return discovery, nil
	}

	top := assessments[0]
	others := make([]models.ShopScore, 0, len(assessments)-1)
	for _, a := range assessments[1:] {
		others = append(others, a.Score)
	}
	discovery.Alternatives = scoring.FilterAlternatives(others, top.Shop, top.Queue, s.maxWait)

	recommended := make(map[string]bool, len(discovery.Alternatives))
	for _, alt := range discovery.Alternatives {
		recommended[alt.ShopID] = true
	}

	now := s.now()
	scores := make([]models.ShopScore, 0, len(assessments))
	for _, a := range assessments {
		score := a.Score
		score.IsRecommended = recommended[a.Shop.ID]
		scores = append(scores, score)

		listing := models.ShopListing{
			Shop:              byID[a.Shop.ID],
			EstimatedWaitTime: estimator.EstimateWaitAt(a.Queue, now),
			IsRecommended:     score.IsRecommended,
			Score:             score,
		}
		if a.Queue != nil {
			listing.QueueSize = a.Queue.CurrentQueueSize
			listing.WaitTime = a.Queue.AverageWaitTime
		}
		discovery.Shops = append(discovery.Shops, listing)
	}

	monitoring.RecordScores(scores)
	monitoring.TrackRecommendations(len(discovery.Alternatives))
	return discovery, nil
}

// Alternatives suggests other shops for someone looking at shopID.
func (s *DiscoveryService) Alternatives(ctx context.Context, shopID string, maxWait float64) ([]models.ShopScore, error) {
	defer monitoring.ObserveScoring("alternatives", time.Now())

	if maxWait <= 0 {
		maxWait = s.maxWait
	}

	shops, err := s.shops.List(ctx)
	if err != nil {
		return nil, err
	}

	details := make([]models.ShopDetails, len(shops))
	for i, shop := range shops {
		details[i] = shop.ShopDetails
	}

	alternatives, err := s.scorer.GetAlternativeRecommendations(ctx, shopID, details, maxWait)
	if err != nil {
		return nil, err
	}

	monitoring.TrackRecommendations(len(alternatives))
	return alternatives, nil
}

// Watch calls fn with a fresh discovery now and after every realtime
// update, until ctx is done. Scoring errors are passed to fn, not returned.
func (s *DiscoveryService) Watch(ctx context.Context, fn func(*models.Discovery, error)) error {
	fn(s.Discover(ctx))

	return s.updates.Subscribe(ctx, func(update realtime.Update) {
		slog.Debug("rescoring after update", "type", update.Type, "shopID", update.ShopID)
		fn(s.Discover(ctx))
	})
}
