package models

// ShopDetails is the static shop metadata the scorer works from.
type ShopDetails struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Distance float64  `json:"distance"` // km
	Services []string `json:"services"`
}

// HasService reports whether serviceID is among the shop's services.
func (s ShopDetails) HasService(serviceID string) bool {
	for _, svc := range s.Services {
		if svc == serviceID {
			return true
		}
	}
	return false
}

// Shop is the full record kept in the shops collection.
type Shop struct {
	ShopDetails
	Address   string  `json:"address"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Rating    float64 `json:"rating"`
	IsOpen    bool    `json:"isOpen"`
	OpensAt   string  `json:"opensAt"`
	ClosesAt  string  `json:"closesAt"`
}

// ShopScore is derived per call and never persisted.
type ShopScore struct {
	ShopID              string   `json:"shopId"`
	Name                string   `json:"name"`
	Distance            float64  `json:"distance"`
	QueueScore          float64  `json:"queueScore"`
	AvailabilityScore   float64  `json:"availabilityScore"`
	DistanceScore       float64  `json:"distanceScore"`
	TrafficScore        float64  `json:"trafficScore"`
	TotalScore          float64  `json:"totalScore"`
	IsRecommended       bool     `json:"isRecommended"`
	EstimatedTravelTime float64  `json:"estimatedTravelTime"` // minutes
	AlternativeServices []string `json:"alternativeServices"`
}

// ShopListing is what the discovery endpoint returns for one shop.
type ShopListing struct {
	Shop
	QueueSize         int       `json:"queueSize"`
	WaitTime          float64   `json:"waitTime"`
	EstimatedWaitTime float64   `json:"estimatedWaitTime"`
	IsRecommended     bool      `json:"isRecommended"`
	Score             ShopScore `json:"score"`
}

type Discovery struct {
	Shops        []ShopListing `json:"shops"`
	Alternatives []ShopScore   `json:"alternatives"`
}
