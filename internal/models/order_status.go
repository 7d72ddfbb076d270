package models

// OrderStatus represents where an order is in its delivery lifecycle
type OrderStatus string

const (
	OrderStatusPending        OrderStatus = "pending"
	OrderStatusConfirmed      OrderStatus = "confirmed"
	OrderStatusPreparing      OrderStatus = "preparing"
	OrderStatusReadyForPickup OrderStatus = "ready_for_pickup"
	OrderStatusPickedUp       OrderStatus = "picked_up"
	OrderStatusInTransit      OrderStatus = "in_transit"
	OrderStatusDelivered      OrderStatus = "delivered"
	OrderStatusCancelled      OrderStatus = "cancelled"
	OrderStatusRefunded       OrderStatus = "refunded"
)

// OrderProgress is the progress bar value shown for a status
type OrderProgress struct {
	Percent int    `json:"percent"`
	Label   string `json:"label"`
}

var orderProgress = map[OrderStatus]OrderProgress{
	OrderStatusPending:        {Percent: 10, Label: "Order Placed"},
	OrderStatusConfirmed:      {Percent: 20, Label: "Confirmed"},
	OrderStatusPreparing:      {Percent: 40, Label: "Preparing"},
	OrderStatusReadyForPickup: {Percent: 60, Label: "Ready"},
	OrderStatusPickedUp:       {Percent: 70, Label: "Picked Up"},
	OrderStatusInTransit:      {Percent: 85, Label: "On the Way"},
	OrderStatusDelivered:      {Percent: 100, Label: "Delivered"},
	OrderStatusCancelled:      {Percent: 0, Label: "Cancelled"},
	OrderStatusRefunded:       {Percent: 0, Label: "Refunded"},
}

// GetOrderProgress returns the progress for a status
// Unknown statuses report 0% with the raw status as label
func GetOrderProgress(status string) OrderProgress {
	if p, ok := orderProgress[OrderStatus(status)]; ok {
		return p
	}
	return OrderProgress{Percent: 0, Label: status}
}

// IsInFlight returns true while a delivery agent may still report locations
func (s OrderStatus) IsInFlight() bool {
	return s == OrderStatusPickedUp || s == OrderStatusInTransit
}
