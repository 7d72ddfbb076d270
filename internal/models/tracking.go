package models

// Coordinates is a [latitude, longitude] pair
type Coordinates [2]float64

// DeliveryLocation represents a single GPS sample from a delivery agent
type DeliveryLocation struct {
	Latitude  float64  `json:"latitude" db:"latitude"`
	Longitude float64  `json:"longitude" db:"longitude"`
	Heading   *float64 `json:"heading,omitempty" db:"heading"`   // Direction of travel (0-360 degrees)
	Speed     *float64 `json:"speed,omitempty" db:"speed"`       // Speed in m/s
	Accuracy  *float64 `json:"accuracy,omitempty" db:"accuracy"` // GPS accuracy in meters
	Timestamp int64    `json:"timestamp" db:"timestamp"`         // Client-side timestamp (unix ms)
}

// Coordinates returns the sample as a coordinate pair
func (l DeliveryLocation) Coordinates() Coordinates {
	return Coordinates{l.Latitude, l.Longitude}
}

// TrackingSession is the order currently watched in detail
type TrackingSession struct {
	OrderID          string            `json:"order_id"`
	DeliveryPersonID string            `json:"delivery_person_id"`
	CurrentLocation  *DeliveryLocation `json:"current_location"`
	Route            []Coordinates     `json:"route"`
	EstimatedArrival *string           `json:"estimated_arrival"`
	Status           string            `json:"status"`
}

// Clone returns a deep copy of the session
func (s *TrackingSession) Clone() *TrackingSession {
	if s == nil {
		return nil
	}

	out := *s
	if s.CurrentLocation != nil {
		loc := *s.CurrentLocation
		out.CurrentLocation = &loc
	}
	out.Route = make([]Coordinates, len(s.Route))
	copy(out.Route, s.Route)
	out.EstimatedArrival = cloneString(s.EstimatedArrival)
	return &out
}

// MarkerType categorizes a map marker
type MarkerType string

const (
	MarkerTypeRestaurant  MarkerType = "restaurant"
	MarkerTypeDelivery    MarkerType = "delivery"
	MarkerTypeUser        MarkerType = "user"
	MarkerTypeDestination MarkerType = "destination"
)

// IsValid reports whether the marker type is one of the known categories
func (t MarkerType) IsValid() bool {
	switch t {
	case MarkerTypeRestaurant, MarkerTypeDelivery, MarkerTypeUser, MarkerTypeDestination:
		return true
	}
	return false
}

// MapMarker is a labeled point of interest, not authoritative tracking state
type MapMarker struct {
	ID          string      `json:"id"`
	Type        MarkerType  `json:"type"`
	Coordinates Coordinates `json:"coordinates"`
	Label       *string     `json:"label,omitempty"`
	Icon        *string     `json:"icon,omitempty"`
}

// TrackingSnapshot is the persisted tracking/marker record of one viewer
type TrackingSnapshot struct {
	ActiveTracking *TrackingSession            `json:"active_tracking"`
	Locations      map[string]DeliveryLocation `json:"locations"`
	Markers        []MapMarker                 `json:"markers"`
}

// OrderLocation is the durable latest position of an in-flight order
type OrderLocation struct {
	OrderID string `json:"order_id" db:"order_id"`
	AgentID string `json:"agent_id" db:"agent_id"`
	DeliveryLocation
	UpdatedAt int64 `json:"updated_at" db:"updated_at"`
}

// LocationUpdate is one sample pushed by a delivery agent for an order
type LocationUpdate struct {
	OrderID string `json:"order_id"`
	DeliveryLocation
}
