package mockbackend

import (
	"net/http"
	"strings"

	"storefront/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// NewRouter wires the REST surface the storefront client consumes.
func NewRouter(b *Backend) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	api := router.Group("/", b.failureInjection)
	api.GET("/products", b.ListProducts)
	api.GET("/products/:productId", b.GetProduct)
	api.GET("/user/:userId", b.GetUser)
	api.GET("/cart/:userId", b.GetCart)
	api.POST("/cart", b.AddCartItem)
	api.PUT("/cart/:userId", b.UpdateCartItem)
	api.DELETE("/cart/:userId/:itemId/:size", b.RemoveCartItem)
	api.POST("/orders", b.CreateOrder)
	api.GET("/orders/:orderId", b.GetOrder)
	api.PATCH("/orders/:orderId/status", b.UpdateOrderStatus)
	api.GET("/orders/user/:userId", b.ListUserOrders)

	return router
}

func (b *Backend) failureInjection(c *gin.Context) {
	if b.shouldFail() {
		b.logger.Warn("Simulating 503 failure",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusServiceUnavailable, models.ErrorResponse{
			Error:   "SERVICE_UNAVAILABLE",
			Message: "Service temporarily unavailable",
			Details: "This is a simulated failure",
		})
		return
	}
	c.Next()
}

// authorize checks that the bearer token names userID.
func authorize(c *gin.Context, userID string) bool {
	token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
	if token == "" || token != userID {
		c.JSON(http.StatusUnauthorized, models.ErrorResponse{
			Error:   "UNAUTHORIZED",
			Message: "Access denied",
		})
		return false
	}
	return true
}

func invalidBody(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "INVALID_INPUT",
		Message: "Invalid request body",
		Details: err.Error(),
	})
}

// ListProducts handles GET /products
func (b *Backend) ListProducts(c *gin.Context) {
	c.JSON(http.StatusOK, b.listProducts())
}

// GetProduct handles GET /products/{productId}
func (b *Backend) GetProduct(c *gin.Context) {
	product, exists := b.product(c.Param("productId"))
	if !exists {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "NOT_FOUND",
			Message: "Product not found",
		})
		return
	}
	c.JSON(http.StatusOK, product)
}

// GetUser handles GET /user/{userId}
func (b *Backend) GetUser(c *gin.Context) {
	userID := c.Param("userId")
	if !authorize(c, userID) {
		return
	}
	user, exists := b.user(userID)
	if !exists {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "NOT_FOUND",
			Message: "User not found",
		})
		return
	}
	c.JSON(http.StatusOK, user)
}

// GetCart handles GET /cart/{userId}
func (b *Backend) GetCart(c *gin.Context) {
	userID := c.Param("userId")
	if !authorize(c, userID) {
		return
	}
	c.JSON(http.StatusOK, models.CartResponse{UserID: userID, Items: b.Cart(userID)})
}

// AddCartItem handles POST /cart. The quantity is the new absolute quantity.
func (b *Backend) AddCartItem(c *gin.Context) {
	var req models.AddCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	if !authorize(c, req.UserID) {
		return
	}

	b.setCartQuantity(req.UserID, req.ItemID, req.Size, req.Quantity)
	b.logger.Info("Set cart quantity",
		zap.String("user_id", req.UserID),
		zap.String("item_id", req.ItemID),
		zap.String("size", req.Size),
		zap.Int("quantity", req.Quantity))

	c.JSON(http.StatusOK, models.CartResponse{UserID: req.UserID, Items: b.Cart(req.UserID)})
}

// UpdateCartItem handles PUT /cart/{userId}
func (b *Backend) UpdateCartItem(c *gin.Context) {
	userID := c.Param("userId")
	if !authorize(c, userID) {
		return
	}
	var req models.UpdateCartItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}

	b.setCartQuantity(userID, req.ItemID, req.Size, req.Quantity)
	c.JSON(http.StatusOK, models.CartResponse{UserID: userID, Items: b.Cart(userID)})
}

// RemoveCartItem handles DELETE /cart/{userId}/{itemId}/{size}
func (b *Backend) RemoveCartItem(c *gin.Context) {
	userID := c.Param("userId")
	if !authorize(c, userID) {
		return
	}
	b.removeCartItem(userID, c.Param("itemId"), c.Param("size"))
	c.JSON(http.StatusOK, models.CartResponse{UserID: userID, Items: b.Cart(userID)})
}

// CreateOrder handles POST /orders
func (b *Backend) CreateOrder(c *gin.Context) {
	var req models.OrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	if !authorize(c, req.UserID) {
		return
	}

	order := b.createOrder(req)
	b.logger.Info("Created order", zap.String("order_id", order.OrderID), zap.String("user_id", order.UserID))

	c.JSON(http.StatusCreated, order)
}

// GetOrder handles GET /orders/{orderId}
func (b *Backend) GetOrder(c *gin.Context) {
	order, exists := b.Order(c.Param("orderId"))
	if !exists {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "NOT_FOUND",
			Message: "Order not found",
		})
		return
	}
	if !authorize(c, order.UserID) {
		return
	}
	c.JSON(http.StatusOK, order)
}

type updateStatusRequest struct {
	Status models.OrderStatus `json:"status" binding:"required,oneof=Pending Processing Shipped Delivered"`
}

// UpdateOrderStatus handles PATCH /orders/{orderId}/status
func (b *Backend) UpdateOrderStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		invalidBody(c, err)
		return
	}
	order, exists := b.setOrderStatus(c.Param("orderId"), req.Status)
	if !exists {
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "NOT_FOUND",
			Message: "Order not found",
		})
		return
	}
	c.JSON(http.StatusOK, order)
}

// ListUserOrders handles GET /orders/user/{userId}
func (b *Backend) ListUserOrders(c *gin.Context) {
	c.JSON(http.StatusOK, b.userOrders(c.Param("userId")))
}
