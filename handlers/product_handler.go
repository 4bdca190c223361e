package handlers

import (
	"net/http"

	"storefront/catalog"
	"storefront/clients"
	"storefront/models"
	"storefront/state"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ProductHandler struct {
	store    *state.Store
	backend  clients.Backend
	currency string
	logger   *zap.Logger
}

func NewProductHandler(store *state.Store, backend clients.Backend, currency string, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{store: store, backend: backend, currency: currency, logger: logger}
}

// Get handles GET /products/{productId}. The cache is consulted first; a
// product missing from it is fetched directly.
func (h *ProductHandler) Get(c *gin.Context) {
	productID := c.Param("productId")
	ctx := c.Request.Context()

	if err := h.store.EnsureProducts(ctx); err != nil {
		h.logger.Warn("Product cache unavailable", zap.Error(err))
	}

	product, ok := h.store.Product(productID)
	if !ok {
		fetched, err := h.backend.GetProduct(ctx, productID)
		if err != nil {
			backendError(c, err, "Product not found")
			return
		}
		product = *fetched
	}

	related := h.store.Related(productID)
	if !ok {
		related = catalog.Related(h.store.Products(), product, catalog.RelatedLimit)
	}

	c.JSON(http.StatusOK, ProductView{
		Product:  models.NormalizeProduct(product),
		Related:  related,
		Currency: h.currency,
	})
}
