package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FacetAll is the synthetic facet value that disables a facet predicate.
const FacetAll = "All"

type FacetKind int

const (
	FacetCategory FacetKind = iota
	FacetBrand
)

func (k FacetKind) String() string {
	switch k {
	case FacetCategory:
		return "category"
	case FacetBrand:
		return "brand"
	default:
		return "unknown"
	}
}

type SortDirection int

const (
	SortNone SortDirection = iota
	SortAscending
	SortDescending
)

func (d SortDirection) String() string {
	switch d {
	case SortAscending:
		return "asc"
	case SortDescending:
		return "desc"
	default:
		return "none"
	}
}

func ParseSortDirection(s string) (SortDirection, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "asc", "lowtohigh":
		return SortAscending, nil
	case "desc", "hightolow":
		return SortDescending, nil
	case "", "none":
		return SortNone, nil
	}
	return SortNone, fmt.Errorf("unknown sort direction %q", s)
}

type Facets struct {
	Categories []string
	Brands     []string
}

// DeriveFacets collects distinct categories and brands in first-seen order
// with [FacetAll] prepended.
func DeriveFacets(ps []Product) Facets {
	return Facets{
		Categories: distinct(ps, func(p Product) string { return p.Category }),
		Brands:     distinct(ps, func(p Product) string { return p.Brand }),
	}
}

func distinct(ps []Product, field func(Product) string) []string {
	seen := make(map[string]struct{}, len(ps))
	out := []string{FacetAll}
	for _, p := range ps {
		v := field(p)
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}

type PriceRange struct {
	Min float64
	Max float64
}

// ParsePriceRange parses "min-max", spaces around the dash are allowed.
func ParsePriceRange(s string) (PriceRange, error) {
	const op = "ParsePriceRange"

	minS, maxS, ok := strings.Cut(s, "-")
	if !ok {
		return PriceRange{}, fmt.Errorf("%s: %q: %w", op, s, ErrInvalidPriceRange)
	}

	lo, err := strconv.ParseFloat(strings.TrimSpace(minS), 64)
	if err != nil {
		return PriceRange{}, fmt.Errorf("%s: %q: %w", op, s, ErrInvalidPriceRange)
	}
	hi, err := strconv.ParseFloat(strings.TrimSpace(maxS), 64)
	if err != nil {
		return PriceRange{}, fmt.Errorf("%s: %q: %w", op, s, ErrInvalidPriceRange)
	}

	r := PriceRange{Min: lo, Max: hi}
	if err := r.Validate(); err != nil {
		return PriceRange{}, fmt.Errorf("%s: %w", op, err)
	}
	return r, nil
}

// Validate requires finite non-negative bounds with Min not above Max.
func (r PriceRange) Validate() error {
	if !finite(r.Min) || !finite(r.Max) {
		return fmt.Errorf("%v-%v: %w", r.Min, r.Max, ErrInvalidPriceRange)
	}
	if r.Min < 0 || r.Max < 0 || r.Min > r.Max {
		return fmt.Errorf("%v-%v: %w", r.Min, r.Max, ErrInvalidPriceRange)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Contains reports whether amount lies in the range, both bounds inclusive.
func (r PriceRange) Contains(amount float64) bool {
	return amount >= r.Min && amount <= r.Max
}

func (r PriceRange) String() string {
	return strconv.FormatFloat(r.Min, 'f', -1, 64) + "-" +
		strconv.FormatFloat(r.Max, 'f', -1, 64)
}

// ProductFilter is an AND-composed predicate. Empty and [FacetAll] fields
// are unset clauses.
type ProductFilter struct {
	Category string
	Brand    string
	Price    *PriceRange
}

func (f ProductFilter) Match(p Product) bool {
	if !facetMatch(f.Category, p.Category) || !facetMatch(f.Brand, p.Brand) {
		return false
	}
	if f.Price != nil && !f.Price.Contains(p.Amount) {
		return false
	}
	return true
}

func facetMatch(selected, value string) bool {
	return selected == "" || selected == FacetAll || selected == value
}

// FilterState is the transient catalog browsing state.
//
// Advanced is set while the visible sequence is the result of a remote filtered query.
type FilterState struct {
	Category    string
	Brand       string
	ActiveFacet FacetKind
	Sort        SortDirection
	SearchText  string
	Advanced    *ProductFilter
}

func DefaultFilterState() FilterState {
	return FilterState{
		Category:    FacetAll,
		Brand:       FacetAll,
		ActiveFacet: FacetCategory,
	}
}
