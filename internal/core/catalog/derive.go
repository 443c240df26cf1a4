package catalog

import (
	"cmp"
	"slices"
	"strings"

	"github.com/niksmo/storefront/internal/core/domain"
)

// DeriveVisible computes the visible sequence for a locally held collection.
//
// Non-empty search text matches product names case-insensitively over the
// whole collection and ignores facets. Otherwise the category predicate and
// then the brand predicate are applied, "All" skipping its predicate. A sort
// direction, when set, is applied last and is stable. The collection is not
// modified.
func DeriveVisible(collection []domain.Product, s domain.FilterState) []domain.Product {
	var out []domain.Product

	if text := strings.TrimSpace(s.SearchText); text != "" {
		out = filter(collection, nameContains(text))
	} else {
		facets := domain.ProductFilter{Category: s.Category, Brand: s.Brand}
		out = filter(collection, facets.Match)
	}

	return SortStable(out, s.Sort)
}

// SortStable returns a copy of ps ordered by amount. Equal amounts keep
// their relative order.
func SortStable(ps []domain.Product, dir domain.SortDirection) []domain.Product {
	out := slices.Clone(ps)
	switch dir {
	case domain.SortAscending:
		slices.SortStableFunc(out, func(a, b domain.Product) int {
			return cmp.Compare(a.Amount, b.Amount)
		})
	case domain.SortDescending:
		slices.SortStableFunc(out, func(a, b domain.Product) int {
			return cmp.Compare(b.Amount, a.Amount)
		})
	}
	return out
}

func nameContains(text string) func(domain.Product) bool {
	needle := strings.ToLower(text)
	return func(p domain.Product) bool {
		return strings.Contains(strings.ToLower(p.Name), needle)
	}
}

func filter(ps []domain.Product, keep func(domain.Product) bool) []domain.Product {
	out := make([]domain.Product, 0, len(ps))
	for _, p := range ps {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
