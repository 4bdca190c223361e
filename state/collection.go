package state

import (
	"storefront/catalog"
	"storefront/models"
)

// SetSearch sets the shared search text. It filters the collection only while
// the search bar is shown.
func (s *Store) SetSearch(text string) {
	s.update(func() {
		s.search = text
		s.refilter()
	})
}

func (s *Store) SetShowSearch(visible bool) {
	s.update(func() {
		s.showSearch = visible
		s.refilter()
	})
}

// SetCollectionFilter replaces the selected categories and sub-categories.
// The collection returns to its first page when the filter changes.
func (s *Store) SetCollectionFilter(categories, subCategories []string) {
	s.update(func() {
		f := s.browser.Filter()
		f.Categories = categories
		f.SubCategories = subCategories
		s.browser.SetFilter(f)
	})
}

// SetSort reorders the collection and keeps the current page.
func (s *Store) SetSort(sortType catalog.SortType) {
	s.update(func() { s.browser.SetSort(sortType) })
}

func (s *Store) GoToPage(page int) {
	s.update(func() { s.browser.GoTo(page) })
}

func (s *Store) NextPage() {
	s.update(func() { s.browser.Next() })
}

func (s *Store) PrevPage() {
	s.update(func() { s.browser.Prev() })
}

func (s *Store) CollectionPage() catalog.Page {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.browser.Current()
}

func (s *Store) CollectionFilter() catalog.Filter {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.browser.Filter()
}

func (s *Store) CollectionSort() catalog.SortType {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.browser.SortType()
}

// Related returns cached products related to productID.
func (s *Store) Related(productID string) []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.productIndex[productID]
	if !ok {
		return []models.Product{}
	}
	return catalog.Related(s.products, p, catalog.RelatedLimit)
}

// refilter pushes the effective search text into the browser.
// Callers must hold s.mu.
func (s *Store) refilter() {
	f := s.browser.Filter()
	f.Search = ""
	if s.showSearch {
		f.Search = s.search
	}
	s.browser.SetFilter(f)
}
