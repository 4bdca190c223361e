package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"storefront/models"

	"github.com/google/uuid"
)

// Backend is the data-access surface of the storefront REST backend.
// The bearer token on authenticated calls is the raw user id.
type Backend interface {
	ListProducts(ctx context.Context) ([]models.Product, error)
	GetProduct(ctx context.Context, productID string) (*models.Product, error)

	VerifyUser(ctx context.Context, userID string) error

	GetCart(ctx context.Context, userID string) (models.CartItems, error)
	AddCartItem(ctx context.Context, req models.AddCartItemRequest) error
	UpdateCartItem(ctx context.Context, userID string, req models.UpdateCartItemRequest) error
	RemoveCartItem(ctx context.Context, userID, itemID, size string) error

	PlaceOrder(ctx context.Context, userID string, req models.OrderRequest) (*models.Order, error)
	GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error)
	ListUserOrders(ctx context.Context, userID string) ([]models.Order, error)
}

// APIError is returned for any non-success response.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Body)
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

// ErrorMessage returns the backend-supplied message carried by err, if any.
func ErrorMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return ""
}

type BackendClient struct {
	baseURL    string
	httpClient *http.Client
}

func NewBackendClient(baseURL string, timeout time.Duration) *BackendClient {
	return &BackendClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

var _ Backend = (*BackendClient)(nil)

// ListProducts calls GET /products
func (c *BackendClient) ListProducts(ctx context.Context) ([]models.Product, error) {
	var products []models.Product
	if err := c.do(ctx, http.MethodGet, "/products", "", nil, &products); err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	for i := range products {
		products[i] = models.NormalizeProduct(products[i])
	}
	return products, nil
}

// GetProduct calls GET /products/{productId}
func (c *BackendClient) GetProduct(ctx context.Context, productID string) (*models.Product, error) {
	var product models.Product
	if err := c.do(ctx, http.MethodGet, "/products/"+url.PathEscape(productID), "", nil, &product); err != nil {
		return nil, fmt.Errorf("failed to fetch product %s: %w", productID, err)
	}
	product = models.NormalizeProduct(product)
	return &product, nil
}

// VerifyUser calls GET /user/{userId}; any non-nil error means the session is invalid.
func (c *BackendClient) VerifyUser(ctx context.Context, userID string) error {
	if err := c.do(ctx, http.MethodGet, "/user/"+url.PathEscape(userID), userID, nil, nil); err != nil {
		return fmt.Errorf("failed to verify user %s: %w", userID, err)
	}
	return nil
}

// GetCart calls GET /cart/{userId}
func (c *BackendClient) GetCart(ctx context.Context, userID string) (models.CartItems, error) {
	var resp models.CartResponse
	if err := c.do(ctx, http.MethodGet, "/cart/"+url.PathEscape(userID), userID, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to fetch cart: %w", err)
	}
	if resp.Items == nil {
		return models.CartItems{}, nil
	}
	return resp.Items.Sanitized(), nil
}

// AddCartItem calls POST /cart
func (c *BackendClient) AddCartItem(ctx context.Context, req models.AddCartItemRequest) error {
	if err := c.do(ctx, http.MethodPost, "/cart", req.UserID, req, nil); err != nil {
		return fmt.Errorf("failed to save cart item: %w", err)
	}
	return nil
}

// UpdateCartItem calls PUT /cart/{userId}
func (c *BackendClient) UpdateCartItem(ctx context.Context, userID string, req models.UpdateCartItemRequest) error {
	if err := c.do(ctx, http.MethodPut, "/cart/"+url.PathEscape(userID), userID, req, nil); err != nil {
		return fmt.Errorf("failed to update cart item: %w", err)
	}
	return nil
}

// RemoveCartItem calls DELETE /cart/{userId}/{itemId}/{size}
func (c *BackendClient) RemoveCartItem(ctx context.Context, userID, itemID, size string) error {
	path := fmt.Sprintf("/cart/%s/%s/%s", url.PathEscape(userID), url.PathEscape(itemID), url.PathEscape(size))
	if err := c.do(ctx, http.MethodDelete, path, userID, nil, nil); err != nil {
		return fmt.Errorf("failed to remove cart item: %w", err)
	}
	return nil
}

// PlaceOrder calls POST /orders
func (c *BackendClient) PlaceOrder(ctx context.Context, userID string, req models.OrderRequest) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodPost, "/orders", userID, req, &order); err != nil {
		return nil, fmt.Errorf("failed to place order: %w", err)
	}
	return &order, nil
}

// GetOrder calls GET /orders/{orderId}
func (c *BackendClient) GetOrder(ctx context.Context, userID, orderID string) (*models.Order, error) {
	var order models.Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+url.PathEscape(orderID), userID, nil, &order); err != nil {
		return nil, fmt.Errorf("failed to fetch order %s: %w", orderID, err)
	}
	return &order, nil
}

// ListUserOrders calls GET /orders/user/{userId}. The route is not bearer-protected.
func (c *BackendClient) ListUserOrders(ctx context.Context, userID string) ([]models.Order, error) {
	var orders []models.Order
	if err := c.do(ctx, http.MethodGet, "/orders/user/"+url.PathEscape(userID), "", nil, &orders); err != nil {
		return nil, fmt.Errorf("failed to fetch orders: %w", err)
	}
	return orders, nil
}

// do sends one request. An empty bearer sends no Authorization header; a nil
// out discards the response body.
func (c *BackendClient) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var body io.Reader
	if in != nil {
		jsonData, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call backend: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
		var errResp models.ErrorResponse
		if json.Unmarshal(respBody, &errResp) == nil {
			apiErr.Message = errResp.Message
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
