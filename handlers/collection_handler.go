package handlers

import (
	"net/http"
	"slices"

	"storefront/catalog"
	"storefront/models"
	"storefront/state"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CollectionHandler struct {
	store    *state.Store
	currency string
	logger   *zap.Logger
}

func NewCollectionHandler(store *state.Store, currency string, logger *zap.Logger) *CollectionHandler {
	return &CollectionHandler{store: store, currency: currency, logger: logger}
}

type filterRequest struct {
	Categories    []string `json:"categories"`
	SubCategories []string `json:"subCategories"`
}

type sortRequest struct {
	Sort string `json:"sort" binding:"required"`
}

type pageRequest struct {
	Page      int    `json:"page"`
	Direction string `json:"direction" binding:"omitempty,oneof=next prev"`
}

type searchRequest struct {
	Search     *string `json:"search"`
	ShowSearch *bool   `json:"showSearch"`
}

// Get handles GET /collection
func (h *CollectionHandler) Get(c *gin.Context) {
	if err := h.store.EnsureProducts(c.Request.Context()); err != nil {
		if len(h.store.Products()) == 0 {
			backendError(c, err, "Failed to load products")
			return
		}
		h.logger.Warn("Serving cached products after failed load", zap.Error(err))
	}
	c.JSON(http.StatusOK, h.view())
}

// SetFilter handles POST /collection/filter
func (h *CollectionHandler) SetFilter(c *gin.Context) {
	var req filterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	h.store.SetCollectionFilter(req.Categories, req.SubCategories)
	c.JSON(http.StatusOK, h.view())
}

// SetSort handles POST /collection/sort
func (h *CollectionHandler) SetSort(c *gin.Context) {
	var req sortRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	sortType, err := catalog.ParseSort(req.Sort)
	if err != nil {
		invalidBody(c, err)
		return
	}
	h.store.SetSort(sortType)
	c.JSON(http.StatusOK, h.view())
}

// SetPage handles POST /collection/page
func (h *CollectionHandler) SetPage(c *gin.Context) {
	var req pageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	switch req.Direction {
	case "next":
		h.store.NextPage()
	case "prev":
		h.store.PrevPage()
	default:
		h.store.GoToPage(req.Page)
	}
	c.JSON(http.StatusOK, h.view())
}

// GetSearch handles GET /search
func (h *CollectionHandler) GetSearch(c *gin.Context) {
	snap := h.store.Snapshot()
	c.JSON(http.StatusOK, SearchView{Search: snap.Search, ShowSearch: snap.ShowSearch})
}

// SetSearch handles POST /search. Omitted fields are left unchanged.
func (h *CollectionHandler) SetSearch(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	if req.ShowSearch != nil {
		h.store.SetShowSearch(*req.ShowSearch)
	}
	if req.Search != nil {
		h.store.SetSearch(*req.Search)
	}
	snap := h.store.Snapshot()
	c.JSON(http.StatusOK, SearchView{Search: snap.Search, ShowSearch: snap.ShowSearch})
}

func (h *CollectionHandler) view() CollectionView {
	return CollectionView{
		Page:       h.store.CollectionPage(),
		Filter:     h.store.CollectionFilter(),
		Sort:       h.store.CollectionSort(),
		Loading:    h.store.ProductsLoading(),
		Categories: categories(h.store.Products()),
		Currency:   h.currency,
	}
}

func categories(products []models.Product) []string {
	out := []string{}
	for _, p := range products {
		if p.Category != "" && !slices.Contains(out, p.Category) {
			out = append(out, p.Category)
		}
	}
	slices.Sort(out)
	return out
}
