package handlers

import (
	"time"

	"storefront/catalog"
	"storefront/checkout"
	"storefront/models"

	"github.com/shopspring/decimal"
)

type CollectionView struct {
	Page       catalog.Page     `json:"page"`
	Filter     catalog.Filter   `json:"filter"`
	Sort       catalog.SortType `json:"sort"`
	Loading    bool             `json:"loading"`
	Categories []string         `json:"categories"`
	Currency   string           `json:"currency"`
}

type SearchView struct {
	Search     string `json:"search"`
	ShowSearch bool   `json:"showSearch"`
}

type ProductView struct {
	Product  models.Product   `json:"product"`
	Related  []models.Product `json:"related"`
	Currency string           `json:"currency"`
}

type CartView struct {
	Items       []models.OrderItem `json:"items"`
	Count       int                `json:"count"`
	Subtotal    decimal.Decimal    `json:"subtotal"`
	DeliveryFee decimal.Decimal    `json:"deliveryFee"`
	Total       decimal.Decimal    `json:"total"`
	Loading     bool               `json:"loading"`
	Error       string             `json:"error,omitempty"`
	Currency    string             `json:"currency"`
}

type SessionView struct {
	Authenticated        bool            `json:"authenticated"`
	InitialCheckComplete bool            `json:"initialCheckComplete"`
	Session              *models.Session `json:"session,omitempty"`
}

type CheckoutView struct {
	State       checkout.State    `json:"state"`
	Shipping    checkout.Shipping `json:"shipping"`
	Subtotal    decimal.Decimal   `json:"subtotal"`
	DeliveryFee decimal.Decimal   `json:"deliveryFee"`
	Total       decimal.Decimal   `json:"total"`
	Currency    string            `json:"currency"`
}

type CheckoutResult struct {
	OrderID  string `json:"orderId"`
	Redirect string `json:"redirect"`
}

type OrderSummary struct {
	OrderID     string             `json:"orderId"`
	ShortID     string             `json:"shortId"`
	Status      models.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal    `json:"totalAmount"`
	ItemCount   int                `json:"itemCount"`
	CreatedAt   time.Time          `json:"createdAt"`
}

type OrderView struct {
	Order            models.Order          `json:"order"`
	ShortID          string                `json:"shortId"`
	Status           models.OrderStatus    `json:"status"`
	Tracking         []models.TrackingStep `json:"tracking"`
	Progress         int                   `json:"progress"`
	EstimatedArrival time.Time             `json:"estimatedArrival"`
	Currency         string                `json:"currency"`
}

func summarize(order models.Order) OrderSummary {
	count := 0
	for _, item := range order.Items {
		count += item.Quantity
	}
	return OrderSummary{
		OrderID:     order.OrderID,
		ShortID:     order.ShortID(),
		Status:      order.DisplayStatus(),
		TotalAmount: order.TotalAmount,
		ItemCount:   count,
		CreatedAt:   order.CreatedAt,
	}
}
