// Package catalog filters, sorts and paginates the cached product list.
package catalog

import (
	"fmt"
	"slices"
	"strings"

	"storefront/models"
)

type SortType string

const (
	SortRelevant SortType = "relevant"
	SortLowHigh  SortType = "low-high"
	SortHighLow  SortType = "high-low"
)

const (
	PageSize     = 12
	RelatedLimit = 5
)

// ParseSort maps a sort name to a SortType. The empty string is relevant.
func ParseSort(s string) (SortType, error) {
	switch SortType(s) {
	case "", SortRelevant:
		return SortRelevant, nil
	case SortLowHigh, SortHighLow:
		return SortType(s), nil
	default:
		return "", fmt.Errorf("unknown sort type %q", s)
	}
}

// Filter is conjunctive. An empty Search, Categories or SubCategories places
// no constraint on that dimension.
type Filter struct {
	Search        string   `json:"search"`
	Categories    []string `json:"categories"`
	SubCategories []string `json:"subCategories"`
}

// Matches reports whether p passes every constraint of f. Search is a
// case-insensitive substring match on the product name.
func (f Filter) Matches(p models.Product) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
		return false
	}
	if len(f.Categories) > 0 && !slices.Contains(f.Categories, p.Category) {
		return false
	}
	if len(f.SubCategories) > 0 && !slices.Contains(f.SubCategories, p.SubCategory) {
		return false
	}
	return true
}

// Equal compares filters treating category lists as sets.
func (f Filter) Equal(o Filter) bool {
	return f.Search == o.Search &&
		sameSet(f.Categories, o.Categories) &&
		sameSet(f.SubCategories, o.SubCategories)
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for _, v := range a {
		if !slices.Contains(b, v) {
			return false
		}
	}
	for _, v := range b {
		if !slices.Contains(a, v) {
			return false
		}
	}
	return true
}

// Apply returns the products matching f in their original order.
func Apply(products []models.Product, f Filter) []models.Product {
	out := make([]models.Product, 0, len(products))
	for _, p := range products {
		if f.Matches(p) {
			out = append(out, p)
		}
	}
	return out
}

// Sort returns a reordered copy of products. Relevant keeps fetch order.
func Sort(products []models.Product, sortType SortType) []models.Product {
	out := slices.Clone(products)
	switch sortType {
	case SortLowHigh:
		slices.SortStableFunc(out, func(a, b models.Product) int { return a.Price.Cmp(b.Price) })
	case SortHighLow:
		slices.SortStableFunc(out, func(a, b models.Product) int { return b.Price.Cmp(a.Price) })
	}
	return out
}

type Page struct {
	Items      []models.Product `json:"items"`
	Number     int              `json:"page"`
	TotalPages int              `json:"totalPages"`
	TotalItems int              `json:"totalItems"`
}

// TotalPages is ceil(n / PageSize).
func TotalPages(n int) int {
	return (n + PageSize - 1) / PageSize
}

// ClampPage keeps page inside [1, TotalPages(n)]; an empty list has page 1.
func ClampPage(page, n int) int {
	if total := TotalPages(n); page > total {
		page = total
	}
	if page < 1 {
		page = 1
	}
	return page
}

// Paginate returns the given 1-based page of products.
func Paginate(products []models.Product, page int) Page {
	page = ClampPage(page, len(products))
	start := min((page-1)*PageSize, len(products))
	end := min(start+PageSize, len(products))
	return Page{
		Items:      products[start:end],
		Number:     page,
		TotalPages: TotalPages(len(products)),
		TotalItems: len(products),
	}
}

// Related returns up to limit products sharing p's category and
// sub-category, excluding p itself.
func Related(products []models.Product, p models.Product, limit int) []models.Product {
	out := []models.Product{}
	for _, candidate := range products {
		if len(out) == limit {
			break
		}
		if candidate.ProductID == p.ProductID {
			continue
		}
		if candidate.Category == p.Category && candidate.SubCategory == p.SubCategory {
			out = append(out, candidate)
		}
	}
	return out
}
