// Package mockbackend is an in-memory implementation of the storefront REST
// backend, used for local development and as the server side of client tests.
package mockbackend

import (
	"math/rand"
	"slices"
	"sort"
	"sync"
	"time"

	"storefront/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Backend struct {
	mu         sync.RWMutex
	products   map[string]*models.Product
	productIDs []string
	users      map[string]models.UserRecord
	carts      map[string]models.CartItems
	orders     map[string]*models.Order
	logger     *zap.Logger

	failMu      sync.Mutex
	failureRate float32
	rng         *rand.Rand
	now         func() time.Time
}

func NewBackend(products []models.Product, users []models.UserRecord, logger *zap.Logger) *Backend {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Backend{
		logger:   logger,
		products: make(map[string]*models.Product),
		users:    make(map[string]models.UserRecord),
		carts:    make(map[string]models.CartItems),
		orders:   make(map[string]*models.Order),
		rng:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:      time.Now,
	}
	for _, p := range products {
		if p.ProductID == "" {
			p.ProductID = uuid.NewString()
		}
		b.products[p.ProductID] = &p
		b.productIDs = append(b.productIDs, p.ProductID)
	}
	for _, u := range users {
		b.users[u.ToSession().ID] = u
	}
	return b
}

// SetFailureRate makes the given fraction of requests answer 503. A rate of 1
// fails every request; 0 disables failure injection.
func (b *Backend) SetFailureRate(rate float32) {
	b.failMu.Lock()
	defer b.failMu.Unlock()
	b.failureRate = rate
}

// shouldFail returns true for roughly failureRate of calls
func (b *Backend) shouldFail() bool {
	b.failMu.Lock()
	defer b.failMu.Unlock()
	if b.failureRate <= 0 {
		return false
	}
	return b.rng.Float32() < b.failureRate
}

func (b *Backend) listProducts() []models.Product {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make([]models.Product, 0, len(b.productIDs))
	for _, id := range b.productIDs {
		out = append(out, *b.products[id])
	}
	return out
}

func (b *Backend) product(id string) (models.Product, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	p, ok := b.products[id]
	if !ok {
		return models.Product{}, false
	}
	return *p, true
}

func (b *Backend) user(id string) (models.UserRecord, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	u, ok := b.users[id]
	return u, ok
}

// Cart returns a copy of the stored cart for userID.
func (b *Backend) Cart(userID string) models.CartItems {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.carts[userID].Clone()
}

// SetCart replaces the stored cart for userID.
func (b *Backend) SetCart(userID string, items models.CartItems) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.carts[userID] = items.Clone()
}

func (b *Backend) setCartQuantity(userID, itemID, size string, qty int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cart := b.carts[userID]
	if cart == nil {
		cart = models.CartItems{}
		b.carts[userID] = cart
	}
	if cart[itemID] == nil {
		cart[itemID] = make(map[string]int)
	}
	cart[itemID][size] = qty
}

func (b *Backend) removeCartItem(userID, itemID, size string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	sizes, ok := b.carts[userID][itemID]
	if !ok {
		return
	}
	delete(sizes, size)
	if len(sizes) == 0 {
		delete(b.carts[userID], itemID)
	}
}

func (b *Backend) createOrder(req models.OrderRequest) models.Order {
	order := models.Order{
		OrderID:         uuid.NewString(),
		UserID:          req.UserID,
		Items:           slices.Clone(req.Items),
		TotalAmount:     req.TotalAmount,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		PaymentStatus:   req.PaymentStatus,
		Status:          models.OrderPlaced,
		CreatedAt:       b.now().UTC(),
	}

	b.mu.Lock()
	b.orders[order.OrderID] = &order
	delete(b.carts, req.UserID)
	b.mu.Unlock()

	return order
}

// Order returns a copy of the stored order.
func (b *Backend) Order(orderID string) (models.Order, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	o, ok := b.orders[orderID]
	if !ok {
		return models.Order{}, false
	}
	return *o, true
}

func (b *Backend) setOrderStatus(orderID string, status models.OrderStatus) (models.Order, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	o, ok := b.orders[orderID]
	if !ok {
		return models.Order{}, false
	}
	o.Status = status
	return *o, true
}

// userOrders returns the user's orders, newest first.
func (b *Backend) userOrders(userID string) []models.Order {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := []models.Order{}
	for _, o := range b.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
