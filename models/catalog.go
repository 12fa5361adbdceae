package models

// DefaultServiceDuration is used for services missing from the catalog.
const DefaultServiceDuration = 15

// ServiceDurations is the canonical duration table in minutes.
var ServiceDurations = map[string]int{
	"haircut":   30,
	"coloring":  90,
	"styling":   45,
	"treatment": 60,
	"manicure":  45,
	"pedicure":  45,
	"facial":    60,
	"massage":   60,
}

type ServiceGroup struct {
	Name     string
	Services []string
}

// ServiceGroups lists substitutable services. Order matters: a service that
// sits in two groups resolves to the first one.
var ServiceGroups = []ServiceGroup{
	{Name: "hair", Services: []string{"haircut", "styling", "coloring", "treatment"}},
	{Name: "nails", Services: []string{"manicure", "pedicure", "nail-art"}},
	{Name: "face", Services: []string{"facial", "makeup", "skincare"}},
	{Name: "body", Services: []string{"massage", "spa", "treatment"}},
}

// ServiceDuration returns the catalog duration for serviceID.
func ServiceDuration(serviceID string) int {
	if d, ok := ServiceDurations[serviceID]; ok {
		return d
	}
	return DefaultServiceDuration
}

// GroupOf returns the first group containing serviceID.
func GroupOf(serviceID string) (ServiceGroup, bool) {
	for _, group := range ServiceGroups {
		for _, svc := range group.Services {
			if svc == serviceID {
				return group, true
			}
		}
	}
	return ServiceGroup{}, false
}

// KnownServices returns every service id named in the catalog, in a stable order.
func KnownServices() []string {
	seen := make(map[string]bool)
	var services []string
	for _, group := range ServiceGroups {
		for _, svc := range group.Services {
			if !seen[svc] {
				seen[svc] = true
				services = append(services, svc)
			}
		}
	}
	return services
}
