package models

// DeliveryAssignment links an order to the agent delivering it and the customer watching it
type DeliveryAssignment struct {
	OrderID          string  `json:"order_id" db:"order_id"`
	AgentID          string  `json:"agent_id" db:"agent_id"`
	CustomerID       string  `json:"customer_id" db:"customer_id"`
	Status           string  `json:"status" db:"status"`
	EstimatedArrival *string `json:"estimated_arrival,omitempty" db:"estimated_arrival"`
	StartedAt        int64   `json:"started_at" db:"started_at"`
	CompletedAt      *int64  `json:"completed_at,omitempty" db:"completed_at"`
}

// Session builds the tracking session a customer watches for this assignment
func (a *DeliveryAssignment) Session() *TrackingSession {
	return &TrackingSession{
		OrderID:          a.OrderID,
		DeliveryPersonID: a.AgentID,
		Route:            []Coordinates{},
		EstimatedArrival: cloneString(a.EstimatedArrival),
		Status:           a.Status,
	}
}
