package mockbackend

import (
	"fmt"
	"slices"

	"storefront/models"

	"github.com/shopspring/decimal"
)

var (
	seedCategories    = []string{"Medicine", "Construction", "Hospitality"}
	seedSubCategories = []string{"Topwear", "Bottomwear", "Winterwear"}
)

// SeedProducts returns n deterministic demo products spread over the catalog's
// categories and sub-categories.
func SeedProducts(n int) []models.Product {
	products := make([]models.Product, 0, n)
	for i := 1; i <= n; i++ {
		products = append(products, models.Product{
			ProductID:   fmt.Sprintf("p%d", i),
			Name:        fmt.Sprintf("Uniform %03d", i),
			Description: "Durable workwear",
			Price:       decimal.NewFromInt(int64(50 + (i*37)%400)),
			Category:    seedCategories[i%len(seedCategories)],
			SubCategory: seedSubCategories[(i/len(seedCategories))%len(seedSubCategories)],
			Images:      []string{fmt.Sprintf("https://cdn.example.com/uniform-%03d.jpg", i)},
			Sizes:       slices.Clone(models.DefaultSizes),
			Bestseller:  i%7 == 0,
		})
	}
	return products
}

// SeedUsers returns the demo accounts accepted by the development backend.
func SeedUsers() []models.UserRecord {
	return []models.UserRecord{
		{ID: "u1", UserName: "demo", Email: "demo@example.com", Phone: "0825550100", Address: "1 Long Street"},
		{ID: "u2", UserName: "staff", Email: "staff@example.com"},
	}
}
