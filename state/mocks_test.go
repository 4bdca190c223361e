package state

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"storefront/clients"
	"storefront/models"
)

var errBackendDown = errors.New("connection refused")

// fakeBackend records calls and serves canned data.
type fakeBackend struct {
	mu          sync.Mutex
	calls       []string
	products    []models.Product
	carts       map[string]models.CartItems
	productsErr error
	verifyErr   error
	cartErr     error
	mutateErr   error
	// productsGate, when set, blocks ListProducts until closed.
	productsGate chan struct{}
}

var _ clients.Backend = (*fakeBackend)(nil)

func newFakeBackend() *fakeBackend {
	return &fakeBackend{carts: make(map[string]models.CartItems)}
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) ListProducts(ctx context.Context) ([]models.Product, error) {
	f.record("ListProducts")
	if f.productsGate != nil {
		select {
		case <-f.productsGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.productsErr != nil {
		return nil, f.productsErr
	}
	return append([]models.Product(nil), f.products...), nil
}

func (f *fakeBackend) GetProduct(_ context.Context, productID string) (*models.Product, error) {
	f.record("GetProduct " + productID)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.products {
		if p.ProductID == productID {
			return &p, nil
		}
	}
	return nil, &clients.APIError{StatusCode: 404, Message: "Product not found"}
}

func (f *fakeBackend) VerifyUser(_ context.Context, userID string) error {
	f.record("VerifyUser " + userID)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verifyErr
}

func (f *fakeBackend) GetCart(_ context.Context, userID string) (models.CartItems, error) {
	f.record("GetCart " + userID)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cartErr != nil {
		return nil, f.cartErr
	}
	return f.carts[userID].Clone(), nil
}

func (f *fakeBackend) AddCartItem(_ context.Context, req models.AddCartItemRequest) error {
	f.record(fmt.Sprintf("AddCartItem %s %s %s %d", req.UserID, req.ItemID, req.Size, req.Quantity))
	return f.mutateErr
}

func (f *fakeBackend) UpdateCartItem(_ context.Context, userID string, req models.UpdateCartItemRequest) error {
	f.record(fmt.Sprintf("UpdateCartItem %s %s %s %d", userID, req.ItemID, req.Size, req.Quantity))
	return f.mutateErr
}

func (f *fakeBackend) RemoveCartItem(_ context.Context, userID, itemID, size string) error {
	f.record(fmt.Sprintf("RemoveCartItem %s %s %s", userID, itemID, size))
	return f.mutateErr
}

func (f *fakeBackend) PlaceOrder(_ context.Context, userID string, req models.OrderRequest) (*models.Order, error) {
	f.record("PlaceOrder " + userID)
	return &models.Order{OrderID: "o1", UserID: userID, Items: req.Items, TotalAmount: req.TotalAmount}, nil
}

func (f *fakeBackend) GetOrder(_ context.Context, userID, orderID string) (*models.Order, error) {
	f.record("GetOrder " + orderID)
	return &models.Order{OrderID: orderID, UserID: userID}, nil
}

func (f *fakeBackend) ListUserOrders(_ context.Context, userID string) ([]models.Order, error) {
	f.record("ListUserOrders " + userID)
	return []models.Order{}, nil
}
