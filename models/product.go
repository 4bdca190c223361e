package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

// DefaultSizes is applied when the backend omits sizes for a product.
var DefaultSizes = []string{"S", "M", "L", "XL"}

func init() {
	// The backend stores prices as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

type Product struct {
	ProductID   string          `json:"_id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	SubCategory string          `json:"subCategory"`
	Images      []string        `json:"image"`
	Sizes       []string        `json:"sizes"`
	Bestseller  bool            `json:"bestseller,omitempty"`
}

// UnmarshalJSON accepts "image" as either a single URL or a list of URLs.
func (p *Product) UnmarshalJSON(data []byte) error {
	type alias Product
	aux := struct {
		*alias
		Images json.RawMessage `json:"image"`
	}{alias: (*alias)(p)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	images, err := decodeImages(aux.Images)
	if err != nil {
		return fmt.Errorf("product %s: %w", p.ProductID, err)
	}
	p.Images = images
	return nil
}

func decodeImages(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	if raw[0] == '[' {
		var list []string
		if err := json.Unmarshal(raw, &list); err != nil {
			return nil, fmt.Errorf("invalid image list: %w", err)
		}
		return list, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err != nil {
		return nil, fmt.Errorf("invalid image: %w", err)
	}
	if single == "" {
		return []string{}, nil
	}
	return []string{single}, nil
}

// NormalizeProduct guarantees a non-nil image list and a non-empty size list.
func NormalizeProduct(p Product) Product {
	if p.Images == nil {
		p.Images = []string{}
	}
	if len(p.Sizes) == 0 {
		p.Sizes = slices.Clone(DefaultSizes)
	}
	return p
}

// Thumbnail returns the first image URL, or "" when the product has none.
func (p Product) Thumbnail() string {
	if len(p.Images) == 0 {
		return ""
	}
	return p.Images[0]
}
