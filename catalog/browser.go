package catalog

import "storefront/models"

// Browser holds the collection view state: the source list, the active
// filter and sort, and the current page. Changing the filter or the source
// list returns to page 1; changing only the sort keeps the page.
// A Browser is not safe for concurrent use.
type Browser struct {
	products []models.Product
	filter   Filter
	sortType SortType
	page     int
	results  []models.Product
}

func NewBrowser() *Browser {
	b := &Browser{sortType: SortRelevant, page: 1}
	b.refresh()
	return b
}

func (b *Browser) SetProducts(products []models.Product) {
	b.products = products
	b.page = 1
	b.refresh()
}

func (b *Browser) SetFilter(f Filter) {
	if f.Equal(b.filter) {
		return
	}
	b.filter = f
	b.page = 1
	b.refresh()
}

func (b *Browser) SetSort(sortType SortType) {
	b.sortType = sortType
	b.refresh()
}

// GoTo moves to page, clamped to the available pages.
func (b *Browser) GoTo(page int) {
	b.page = ClampPage(page, len(b.results))
}

func (b *Browser) Next() { b.GoTo(b.page + 1) }
func (b *Browser) Prev() { b.GoTo(b.page - 1) }

func (b *Browser) Filter() Filter     { return b.filter }
func (b *Browser) SortType() SortType { return b.sortType }

// Results is the full filtered and sorted list.
func (b *Browser) Results() []models.Product { return b.results }

func (b *Browser) Current() Page {
	return Paginate(b.results, b.page)
}

func (b *Browser) refresh() {
	b.results = Sort(Apply(b.products, b.filter), b.sortType)
	b.page = ClampPage(b.page, len(b.results))
}
