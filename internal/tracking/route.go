package tracking

import (
	"foodflow-backend/internal/models"
	"foodflow-backend/pkg/utils"
)

// RouteFolder decides whether a new sample extends the watched session's route
type RouteFolder interface {
	Fold(route []models.Coordinates, loc models.DeliveryLocation) []models.Coordinates
}

// DefaultMinRouteDeltaMeters is the minimum movement recorded as a new route point
const DefaultMinRouteDeltaMeters = 5.0

// DeltaFolder appends a coordinate only when the agent moved far enough
// from the last recorded point. GPS jitter while stopped doesn't grow the route.
type DeltaFolder struct {
	MinDistanceMeters float64
}

// Fold implements RouteFolder
func (f DeltaFolder) Fold(route []models.Coordinates, loc models.DeliveryLocation) []models.Coordinates {
	point := loc.Coordinates()

	// First point of the route - always record
	if len(route) == 0 {
		return append(route, point)
	}

	last := route[len(route)-1]
	distance := utils.CalculateDistance(last[0], last[1], point[0], point[1]) * 1000
	if distance < f.MinDistanceMeters {
		return route
	}
	return append(route, point)
}

// AppendFolder records every sample
type AppendFolder struct{}

// Fold implements RouteFolder
func (AppendFolder) Fold(route []models.Coordinates, loc models.DeliveryLocation) []models.Coordinates {
	return append(route, loc.Coordinates())
}
