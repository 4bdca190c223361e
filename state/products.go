package state

import (
	"context"

	"storefront/models"

	"go.uber.org/zap"
)

// LoadProducts fetches and caches the full product list. Concurrent calls
// share one request, which runs for the Store's lifetime rather than the
// caller's: ctx only bounds how long this caller waits. On failure the
// previous list is kept.
func (s *Store) LoadProducts(ctx context.Context) error {
	ch := s.loads.DoChan("products", func() (any, error) {
		s.update(func() { s.productsLoading = true })

		products, err := s.backend.ListProducts(s.ctx)
		if err != nil {
			s.update(func() { s.productsLoading = false })
			s.logger.Error("Failed to load products", zap.Error(err))
			return nil, err
		}

		index := make(map[string]models.Product, len(products))
		for _, p := range products {
			index[p.ProductID] = p
		}
		s.update(func() {
			s.products = products
			s.productIndex = index
			s.productsLoaded = true
			s.productsLoading = false
			s.browser.SetProducts(products)
		})
		s.logger.Info("Loaded products", zap.Int("count", len(products)))
		return nil, nil
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// EnsureProducts loads the product list unless it has been loaded before.
func (s *Store) EnsureProducts(ctx context.Context) error {
	s.mu.RLock()
	loaded := s.productsLoaded
	s.mu.RUnlock()
	if loaded {
		return nil
	}
	return s.LoadProducts(ctx)
}

// Products returns the cached product list. The slice must not be modified.
func (s *Store) Products() []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.products
}

func (s *Store) Product(productID string) (models.Product, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.productIndex[productID]
	return p, ok
}

func (s *Store) ProductsLoading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.productsLoading
}
