// Package checkout validates the checkout form and places orders.
package checkout

import (
	"context"
	"fmt"
	"sync"

	"storefront/clients"
	"storefront/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type State string

const (
	StateEditing    State = "editing"
	StateValidating State = "validating"
	StateSubmitting State = "submitting"
	StateSucceeded  State = "succeeded"
	StateFailed     State = "failed"
)

const (
	PaymentMethod = "Credit Card"
	PaymentStatus = "Paid"
)

// DefaultDeliveryFee is added to the cart value of every order.
var DefaultDeliveryFee = decimal.NewFromInt(10)

// Cart is what the flow reads from and clears in the application state.
type Cart interface {
	Session() (models.Session, bool)
	CartLines() []models.OrderItem
	TotalValue() decimal.Decimal
	ClearCart()
}

// OrderPublisher announces placed orders.
type OrderPublisher interface {
	PublishOrder(ctx context.Context, order models.Order) error
}

type Result struct {
	Order *models.Order
	// Redirect is the view to show next.
	Redirect string
}

type Option func(*Flow)

func WithDeliveryFee(fee decimal.Decimal) Option {
	return func(f *Flow) { f.deliveryFee = fee }
}

func WithPublisher(p OrderPublisher) Option {
	return func(f *Flow) { f.publisher = p }
}

func WithLogger(logger *zap.Logger) Option {
	return func(f *Flow) { f.logger = logger }
}

// WithObserver registers fn to be called on every state transition.
func WithObserver(fn func(State)) Option {
	return func(f *Flow) { f.observer = fn }
}

// Flow is the checkout state machine. One submission runs at a time.
type Flow struct {
	cart        Cart
	backend     clients.Backend
	publisher   OrderPublisher
	deliveryFee decimal.Decimal
	logger      *zap.Logger
	observer    func(State)

	mu    sync.Mutex
	state State
	busy  bool
}

func NewFlow(cart Cart, backend clients.Backend, opts ...Option) *Flow {
	f := &Flow{
		cart:        cart,
		backend:     backend,
		deliveryFee: DefaultDeliveryFee,
		logger:      zap.NewNop(),
		state:       StateEditing,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

func (f *Flow) DeliveryFee() decimal.Decimal {
	return f.deliveryFee
}

// Total is the amount an order for the current cart would be charged.
func (f *Flow) Total() decimal.Decimal {
	return f.cart.TotalValue().Add(f.deliveryFee)
}

func (f *Flow) transition(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
	if f.observer != nil {
		f.observer(s)
	}
}

// Submit validates form and places an order for the current cart. On
// failure the flow returns to editing and the error can be shown with
// UserMessage.
func (f *Flow) Submit(ctx context.Context, form Form) (*Result, error) {
	f.mu.Lock()
	if f.busy {
		f.mu.Unlock()
		return nil, ErrInProgress
	}
	f.busy = true
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.busy = false
		f.mu.Unlock()
	}()

	f.transition(StateValidating)
	if err := Validate(form); err != nil {
		f.transition(StateEditing)
		return nil, err
	}

	f.transition(StateSubmitting)
	order, err := f.place(ctx, form)
	if err != nil {
		f.logger.Error("Checkout failed", zap.Error(err))
		f.transition(StateFailed)
		f.transition(StateEditing)
		return nil, err
	}

	f.cart.ClearCart()
	f.transition(StateSucceeded)
	f.logger.Info("Order placed",
		zap.String("order_id", order.OrderID),
		zap.String("total", order.TotalAmount.String()),
		zap.String("card", MaskCardNumber(form.Payment.CardNumber)))

	if f.publisher != nil {
		if err := f.publisher.PublishOrder(ctx, *order); err != nil {
			f.logger.Error("Failed to publish order event", zap.String("order_id", order.OrderID), zap.Error(err))
		}
	}

	return &Result{Order: order, Redirect: "/orders/" + order.OrderID}, nil
}

func (f *Flow) place(ctx context.Context, form Form) (*models.Order, error) {
	sess, ok := f.cart.Session()
	if !ok {
		return nil, ErrNotAuthenticated
	}
	lines := f.cart.CartLines()
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}

	total := f.Total()
	req := models.OrderRequest{
		UserID:          sess.ID,
		Items:           lines,
		TotalAmount:     total,
		ShippingAddress: form.Shipping.ShippingAddress(),
		PaymentMethod:   PaymentMethod,
		PaymentStatus:   PaymentStatus,
	}

	order, err := f.backend.PlaceOrder(ctx, sess.ID, req)
	if err != nil {
		return nil, fmt.Errorf("checkout for %s: %w", sess.ID, err)
	}
	if order == nil || order.OrderID == "" {
		return nil, ErrOrderNotCreated
	}
	if order.TotalAmount.IsZero() {
		order.TotalAmount = total
	}
	return order, nil
}
