package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPlaced     OrderStatus = "Pending"
	OrderProcessing OrderStatus = "Processing"
	OrderShipped    OrderStatus = "Shipped"
	OrderDelivered  OrderStatus = "Delivered"
)

// DeliveryWindow is the promised time from placement to arrival.
const DeliveryWindow = 2 * 24 * time.Hour

type OrderItem struct {
	ProductID string          `json:"productId"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Price     decimal.Decimal `json:"price"`
	Size      string          `json:"size"`
	Quantity  int             `json:"quantity"`
}

// OrderRequest is the payload posted to /orders.
type OrderRequest struct {
	UserID          string          `json:"userId" binding:"required"`
	Items           []OrderItem     `json:"items" binding:"required,min=1"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress string          `json:"shippingAddress" binding:"required"`
	PaymentMethod   string          `json:"paymentMethod"`
	PaymentStatus   string          `json:"paymentStatus"`
}

type Order struct {
	OrderID         string          `json:"_id"`
	UserID          string          `json:"userId"`
	Items           []OrderItem     `json:"items"`
	TotalAmount     decimal.Decimal `json:"totalAmount"`
	ShippingAddress string          `json:"shippingAddress"`
	PaymentMethod   string          `json:"paymentMethod,omitempty"`
	PaymentStatus   string          `json:"paymentStatus,omitempty"`
	Status          OrderStatus     `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
}

// TrackingStep is one stage of the delivery timeline.
type TrackingStep struct {
	Status   OrderStatus `json:"status"`
	Label    string      `json:"label"`
	Progress int         `json:"progress"`
	Reached  bool        `json:"reached"`
}

var trackingSteps = []TrackingStep{
	{Status: OrderPlaced, Label: "Order Placed", Progress: 0},
	{Status: OrderProcessing, Label: "Processing", Progress: 33},
	{Status: OrderShipped, Label: "Shipped", Progress: 66},
	{Status: OrderDelivered, Label: "Delivered", Progress: 100},
}

// DisplayStatus returns the status shown to the user; orders without one are pending.
func (o Order) DisplayStatus() OrderStatus {
	if o.Status == "" {
		return OrderPlaced
	}
	return o.Status
}

// Tracking returns the timeline with every step up to the current one marked
// reached, and the progress percentage of the current step. Unknown statuses
// reach no step.
func (o Order) Tracking() ([]TrackingStep, int) {
	steps := make([]TrackingStep, len(trackingSteps))
	copy(steps, trackingSteps)

	current := -1
	for i, step := range steps {
		if step.Status == o.DisplayStatus() {
			current = i
			break
		}
	}
	if current < 0 {
		return steps, 0
	}
	for i := 0; i <= current; i++ {
		steps[i].Reached = true
	}
	return steps, steps[current].Progress
}

func (o Order) EstimatedArrival() time.Time {
	return o.CreatedAt.Add(DeliveryWindow)
}

// ShortID is the order id prefix used in headings.
func (o Order) ShortID() string {
	if len(o.OrderID) <= 8 {
		return o.OrderID
	}
	return o.OrderID[:8]
}
