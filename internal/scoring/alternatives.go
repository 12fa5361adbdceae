package scoring

import (
	"context"

	"shop-finder/models"
)

// GetAlternativeRecommendations returns nearby shops worth suggesting
// instead of currentShopID. An unknown currentShopID yields no
// recommendations. maxWaitMinutes <= 0 uses DefaultMaxWaitMinutes.
func (s *Scorer) GetAlternativeRecommendations(ctx context.Context, currentShopID string, nearbyShops []models.ShopDetails, maxWaitMinutes float64) ([]models.ShopScore, error) {
	if maxWaitMinutes <= 0 {
		maxWaitMinutes = DefaultMaxWaitMinutes
	}

	currentQueue, err := s.fetchQueue(ctx, currentShopID)
	if err != nil {
		return nil, err
	}

	current, ok := findShop(nearbyShops, currentShopID)
	if !ok {
		return []models.ShopScore{}, nil
	}

	others := make([]models.ShopDetails, 0, len(nearbyShops))
	for _, shop := range nearbyShops {
		if shop.ID != currentShopID {
			others = append(others, shop)
		}
	}

	scores, err := s.ScoreShops(ctx, others)
	if err != nil {
		return nil, err
	}

	return FilterAlternatives(scores, current, currentQueue, maxWaitMinutes), nil
}

// FilterAlternatives keeps the candidates that beat the current shop's wait,
// offer a related service and score above RecommendationThreshold, and marks
// them recommended.
//
// The time estimate multiplies queueScore, where higher means a shorter
// queue, by the wait threshold. The formula is kept literally; the
// dimensionally consistent version would be (1-queueScore)*maxWaitMinutes.
func FilterAlternatives(scores []models.ShopScore, current models.ShopDetails, currentQueue *models.QueueSnapshot, maxWaitMinutes float64) []models.ShopScore {
	threshold := maxWaitMinutes
	if currentQueue != nil && currentQueue.AverageWaitTime != 0 {
		threshold = currentQueue.AverageWaitTime
	}

	recommended := []models.ShopScore{}
	for _, score := range scores {
		totalTime := score.EstimatedTravelTime + score.QueueScore*maxWaitMinutes
		if totalTime >= threshold {
			continue
		}
		if !offersAny(current, score.AlternativeServices) {
			continue
		}
		if score.TotalScore <= RecommendationThreshold {
			continue
		}

		score.IsRecommended = true
		recommended = append(recommended, score)
	}

	return recommended
}

func offersAny(shop models.ShopDetails, services []string) bool {
	for _, svc := range services {
		if shop.HasService(svc) {
			return true
		}
	}
	return false
}

func findShop(shops []models.ShopDetails, id string) (models.ShopDetails, bool) {
	for _, shop := range shops {
		if shop.ID == id {
			return shop, true
		}
	}
	return models.ShopDetails{}, false
}
