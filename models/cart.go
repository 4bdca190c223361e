package models

// CartItems maps a product id to a map of size label to quantity.
// Every stored quantity is positive and no product maps to an empty size map.
type CartItems map[string]map[string]int

// Clone returns a deep copy so callers can mutate without aliasing c.
func (c CartItems) Clone() CartItems {
	out := make(CartItems, len(c))
	for productID, sizes := range c {
		copied := make(map[string]int, len(sizes))
		for size, qty := range sizes {
			copied[size] = qty
		}
		out[productID] = copied
	}
	return out
}

// Quantity reports the quantity stored for (productID, size).
func (c CartItems) Quantity(productID, size string) (int, bool) {
	sizes, ok := c[productID]
	if !ok {
		return 0, false
	}
	qty, ok := sizes[size]
	return qty, ok
}

// Count sums all quantities.
func (c CartItems) Count() int {
	count := 0
	for _, sizes := range c {
		for _, qty := range sizes {
			count += qty
		}
	}
	return count
}

// Sanitized drops non-positive quantities and empty product entries, as
// received carts are not trusted to hold the invariant.
func (c CartItems) Sanitized() CartItems {
	out := make(CartItems, len(c))
	for productID, sizes := range c {
		for size, qty := range sizes {
			if qty <= 0 {
				continue
			}
			if out[productID] == nil {
				out[productID] = make(map[string]int)
			}
			out[productID][size] = qty
		}
	}
	return out
}

type CartResponse struct {
	UserID string    `json:"userId,omitempty"`
	Items  CartItems `json:"items"`
}

type AddCartItemRequest struct {
	UserID   string `json:"userId" binding:"required"`
	ItemID   string `json:"itemId" binding:"required"`
	Size     string `json:"size" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}

type UpdateCartItemRequest struct {
	ItemID   string `json:"itemId" binding:"required"`
	Size     string `json:"size" binding:"required"`
	Quantity int    `json:"quantity" binding:"required,min=1"`
}
