package state

import (
	"context"
	"sort"

	"storefront/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Cart returns the current cart. The map must not be modified.
func (s *Store) Cart() models.CartItems {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart
}

func (s *Store) CartError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cartError
}

// DismissCartError clears the transient cart error.
func (s *Store) DismissCartError() {
	s.update(func() { s.cartError = "" })
}

// LoadCart replaces the local cart with the backend's copy for the signed-in
// user. It is a no-op without a session.
func (s *Store) LoadCart(ctx context.Context) error {
	userID := s.currentUserID()
	if userID == "" {
		return nil
	}
	return s.loadCart(ctx, userID, true)
}

// loadCart fetches the cart of userID. A response arriving after ctx ended
// or after the session changed is discarded.
func (s *Store) loadCart(ctx context.Context, userID string, clearError bool) error {
	s.update(func() {
		s.cartLoading = true
		if clearError {
			s.cartError = ""
		}
	})

	items, err := s.backend.GetCart(ctx, userID)
	if err != nil {
		s.update(func() {
			s.cartLoading = false
			if ctx.Err() == nil && s.userID() == userID {
				s.cartError = MsgCartLoadFailed
			}
		})
		s.logger.Error("Failed to load cart", zap.String("user_id", userID), zap.Error(err))
		return err
	}

	s.update(func() {
		s.cartLoading = false
		if ctx.Err() != nil || s.userID() != userID {
			return
		}
		s.cart = items
	})
	return nil
}

// AddToCart increments the quantity of (productID, size) by one. An empty
// size means DefaultSize. With a session, the new quantity is mirrored to the
// backend; a failed mirror is reported through CartError and never rolled
// back.
func (s *Store) AddToCart(productID, size string) error {
	if productID == "" {
		return ErrInvalidItem
	}
	if size == "" {
		size = DefaultSize
	}

	var (
		qty    int
		userID string
	)
	s.update(func() {
		next := s.cart.Clone()
		if next[productID] == nil {
			next[productID] = make(map[string]int)
		}
		next[productID][size]++
		qty = next[productID][size]
		s.cart = next
		userID = s.userID()
	})

	if userID != "" {
		req := models.AddCartItemRequest{UserID: userID, ItemID: productID, Size: size, Quantity: qty}
		s.mirror("add", userID, func(ctx context.Context) error {
			return s.backend.AddCartItem(ctx, req)
		})
	}
	return nil
}

// SetQuantity sets the quantity of (productID, size). A quantity of zero or
// less removes the entry, and the product once it has no sizes left.
// Products not in the cart are ignored.
func (s *Store) SetQuantity(productID, size string, quantity int) error {
	if productID == "" {
		return ErrInvalidItem
	}

	var (
		changed bool
		userID  string
	)
	s.update(func() {
		if _, ok := s.cart[productID]; !ok {
			return
		}
		next := s.cart.Clone()
		if quantity <= 0 {
			delete(next[productID], size)
			if len(next[productID]) == 0 {
				delete(next, productID)
			}
		} else {
			next[productID][size] = quantity
		}
		s.cart = next
		changed = true
		userID = s.userID()
	})

	if !changed || userID == "" {
		return nil
	}
	if quantity <= 0 {
		s.mirror("remove", userID, func(ctx context.Context) error {
			return s.backend.RemoveCartItem(ctx, userID, productID, size)
		})
		return nil
	}
	req := models.UpdateCartItemRequest{ItemID: productID, Size: size, Quantity: quantity}
	s.mirror("update", userID, func(ctx context.Context) error {
		return s.backend.UpdateCartItem(ctx, userID, req)
	})
	return nil
}

// mirror queues a backend cart call on behalf of userID. The call is skipped
// if that user is no longer signed in when its turn comes.
func (s *Store) mirror(op, userID string, call func(context.Context) error) {
	s.enqueue("cart-"+op, func(ctx context.Context) {
		if s.currentUserID() != userID {
			return
		}
		err := call(ctx)
		if err == nil || ctx.Err() != nil {
			return
		}

		s.logger.Error("Failed to update cart in backend",
			zap.String("op", op),
			zap.String("user_id", userID),
			zap.Error(err))
		s.update(func() {
			if s.userID() == userID {
				s.cartError = MsgCartUpdateFailed
			}
		})

		if s.reconcile {
			_ = s.loadCart(ctx, userID, false)
		}
	})
}

// ClearCart empties the local cart without touching the backend.
func (s *Store) ClearCart() {
	s.update(func() { s.cart = models.CartItems{} })
}

// TotalCount sums all quantities in the cart.
func (s *Store) TotalCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cart.Count()
}

// TotalValue sums price times quantity over the cart. Entries whose product is
// not in the product cache are left out.
func (s *Store) TotalValue() decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for productID, sizes := range s.cart {
		product, ok := s.productIndex[productID]
		if !ok {
			continue
		}
		for _, qty := range sizes {
			total = total.Add(product.Price.Mul(decimal.NewFromInt(int64(qty))))
		}
	}
	return total
}

// CartLines expands the cart into order lines for every entry whose product is
// cached, ordered by product id then size.
func (s *Store) CartLines() []models.OrderItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lines := []models.OrderItem{}
	for productID, sizes := range s.cart {
		product, ok := s.productIndex[productID]
		if !ok {
			continue
		}
		for size, qty := range sizes {
			lines = append(lines, models.OrderItem{
				ProductID: product.ProductID,
				Name:      product.Name,
				Image:     product.Thumbnail(),
				Price:     product.Price,
				Size:      size,
				Quantity:  qty,
			})
		}
	}
	sort.Slice(lines, func(i, j int) bool {
		if lines[i].ProductID != lines[j].ProductID {
			return lines[i].ProductID < lines[j].ProductID
		}
		return lines[i].Size < lines[j].Size
	})
	return lines
}
