package models

type ServiceStatus struct {
	ID                string `json:"id"`
	Name              string `json:"name"`
	IsAvailable       bool   `json:"isAvailable"`
	CurrentCapacity   int    `json:"currentCapacity"`
	MaxCapacity       int    `json:"maxCapacity"`
	EstimatedDuration int    `json:"estimatedDuration"` // minutes
	LastUpdated       int64  `json:"lastUpdated"`
}

type ShopServiceAvailability struct {
	Services    map[string]ServiceStatus `json:"services"`
	LastUpdated int64                    `json:"lastUpdated"`
}

// ServiceStatusPatch carries a partial update, nil fields are left untouched.
type ServiceStatusPatch struct {
	Name              *string `json:"name,omitempty"`
	IsAvailable       *bool   `json:"isAvailable,omitempty"`
	CurrentCapacity   *int    `json:"currentCapacity,omitempty"`
	MaxCapacity       *int    `json:"maxCapacity,omitempty"`
	EstimatedDuration *int    `json:"estimatedDuration,omitempty"`
}

// Apply merges the patch into s.
func (p ServiceStatusPatch) Apply(s ServiceStatus) ServiceStatus {
	if p.Name != nil {
		s.Name = *p.Name
	}
	if p.IsAvailable != nil {
		s.IsAvailable = *p.IsAvailable
	}
	if p.CurrentCapacity != nil {
		s.CurrentCapacity = *p.CurrentCapacity
	}
	if p.MaxCapacity != nil {
		s.MaxCapacity = *p.MaxCapacity
	}
	if p.EstimatedDuration != nil {
		s.EstimatedDuration = *p.EstimatedDuration
	}
	return s
}
