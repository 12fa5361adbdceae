// Package scoring ranks shops by queue, availability, distance and traffic.
package scoring

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"shop-finder/models"

	"golang.org/x/sync/errgroup"
)

// DefaultMaxWaitMinutes is the alternatives threshold when none is given.
const DefaultMaxWaitMinutes = 30.0

// RecommendationThreshold is the total score an alternative must beat.
const RecommendationThreshold = 0.7

// SnapshotSource supplies point-in-time shop state. A nil snapshot with a
// nil error means the shop has no data.
type SnapshotSource interface {
	FetchQueue(ctx context.Context, shopID string) (*models.QueueSnapshot, error)
	FetchAvailability(ctx context.Context, shopID string) (*models.ShopServiceAvailability, error)
}

type Scorer struct {
	source SnapshotSource
	now    func() time.Time
}

func NewScorer(source SnapshotSource, now func() time.Time) *Scorer {
	if now == nil {
		now = time.Now
	}
	return &Scorer{source: source, now: now}
}

// ScoreShop computes one shop's score from already fetched snapshots.
func ScoreShop(shop models.ShopDetails, queue *models.QueueSnapshot, availability *models.ShopServiceAvailability, now time.Time) models.ShopScore {
	queueScore := QueueScore(queue)
	availabilityScore := AvailabilityScore(availability)
	location := ScoreLocation(shop.Distance, now)
	weights := DynamicWeights(now)

	total := queueScore*weights.Queue +
		availabilityScore*weights.Availability +
		location.DistanceScore*weights.Distance +
		location.TrafficScore*weights.Traffic

	return models.ShopScore{
		ShopID:              shop.ID,
		Name:                shop.Name,
		Distance:            shop.Distance,
		QueueScore:          queueScore,
		AvailabilityScore:   availabilityScore,
		DistanceScore:       location.DistanceScore,
		TrafficScore:        location.TrafficScore,
		TotalScore:          total,
		IsRecommended:       false,
		EstimatedTravelTime: location.EstimatedTravelTime,
		AlternativeServices: AlternativeServices(availability, shop.Services),
	}
}

// Assessment is a shop's score together with the snapshots it was computed from.
type Assessment struct {
	Shop         models.ShopDetails
	Score        models.ShopScore
	Queue        *models.QueueSnapshot
	Availability *models.ShopServiceAvailability
}

// ScoreShops fetches every shop's snapshots concurrently and returns the
// ranked scores. Only context cancellation fails the call; any other fetch
// error is logged and treated as missing data.
func (s *Scorer) ScoreShops(ctx context.Context, shops []models.ShopDetails) ([]models.ShopScore, error) {
	assessments, err := s.Assess(ctx, shops)
	if err != nil {
		return nil, err
	}

	scores := make([]models.ShopScore, len(assessments))
	for i, a := range assessments {
		scores[i] = a.Score
	}
	return scores, nil
}

// Assess is ScoreShops keeping the fetched snapshots, ranked the same way.
func (s *Scorer) Assess(ctx context.Context, shops []models.ShopDetails) ([]Assessment, error) {
	assessments, err := s.fetchAll(ctx, shops)
	if err != nil {
		return nil, err
	}

	now := s.now()
	for i := range assessments {
		a := &assessments[i]
		a.Score = ScoreShop(a.Shop, a.Queue, a.Availability, now)
	}

	// Highest first, equal scores keep their input order.
	sort.SliceStable(assessments, func(i, j int) bool {
		return assessments[i].Score.TotalScore > assessments[j].Score.TotalScore
	})
	return assessments, nil
}

func (s *Scorer) fetchAll(ctx context.Context, shops []models.ShopDetails) ([]Assessment, error) {
	assessments := make([]Assessment, len(shops))
	g, gctx := errgroup.WithContext(ctx)

	for i, shop := range shops {
		assessments[i].Shop = shop
		g.Go(func() error {
			queue, err := s.fetchQueue(gctx, shop.ID)
			if err != nil {
				return err
			}
			assessments[i].Queue = queue
			return nil
		})
		g.Go(func() error {
			availability, err := s.fetchAvailability(gctx, shop.ID)
			if err != nil {
				return err
			}
			assessments[i].Availability = availability
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return assessments, nil
}

func (s *Scorer) fetchQueue(ctx context.Context, shopID string) (*models.QueueSnapshot, error) {
	queue, err := s.source.FetchQueue(ctx, shopID)
	if err != nil {
		if isCancellation(ctx, err) {
			return nil, err
		}
		slog.Warn("queue snapshot unavailable, scoring without it", "shopID", shopID, "error", err)
		return nil, nil
	}
	return queue, nil
}

func (s *Scorer) fetchAvailability(ctx context.Context, shopID string) (*models.ShopServiceAvailability, error) {
	availability, err := s.source.FetchAvailability(ctx, shopID)
	if err != nil {
		if isCancellation(ctx, err) {
			return nil, err
		}
		slog.Warn("availability snapshot unavailable, scoring without it", "shopID", shopID, "error", err)
		return nil, nil
	}
	return availability, nil
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
