package domain_test

import (
	"math"
	"testing"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeriveFacets(t *testing.T) {
	ps := []domain.Product{
		{Name: "p1", Category: "Mobile", Brand: "Apple"},
		{Name: "p2", Category: "Watch", Brand: "Samsung"},
		{Name: "p3", Category: "Mobile", Brand: "Apple"},
		{Name: "p4", Category: "Laptop", Brand: "Google"},
	}

	f := domain.DeriveFacets(ps)
	assert.Equal(t, []string{"All", "Mobile", "Watch", "Laptop"}, f.Categories)
	assert.Equal(t, []string{"All", "Apple", "Samsung", "Google"}, f.Brands)

	t.Run("Empty", func(t *testing.T) {
		f := domain.DeriveFacets(nil)
		assert.Equal(t, []string{"All"}, f.Categories)
		assert.Equal(t, []string{"All"}, f.Brands)
	})
}

func TestParsePriceRange(t *testing.T) {
	tests := []struct {
		in      string
		want    domain.PriceRange
		wantErr bool
	}{
		{in: "100-500", want: domain.PriceRange{Min: 100, Max: 500}},
		{in: "0 - 100", want: domain.PriceRange{Min: 0, Max: 100}},
		{in: "1000 - 10000", want: domain.PriceRange{Min: 1000, Max: 10000}},
		{in: "9.5-9.5", want: domain.PriceRange{Min: 9.5, Max: 9.5}},
		{in: "500-100", wantErr: true},
		{in: "abc-100", wantErr: true},
		{in: "100", wantErr: true},
		{in: "", wantErr: true},
		{in: "NaN-NaN", wantErr: true},
		{in: "0-Inf", wantErr: true},
		{in: "-Inf-100", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := domain.ParsePriceRange(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, domain.ErrInvalidPriceRange)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPriceRangeContains(t *testing.T) {
	r := domain.PriceRange{Min: 100, Max: 500}
	assert.True(t, r.Contains(100))
	assert.True(t, r.Contains(500))
	assert.True(t, r.Contains(250))
	assert.False(t, r.Contains(99.99))
	assert.False(t, r.Contains(500.01))
	assert.Equal(t, "100-500", r.String())
}

func TestProductFilterMatch(t *testing.T) {
	p := domain.Product{Category: "Mobile", Brand: "Apple", Amount: 300}

	assert.True(t, domain.ProductFilter{}.Match(p))
	assert.True(t, domain.ProductFilter{Category: "Mobile"}.Match(p))
	assert.False(t, domain.ProductFilter{Category: "Watch"}.Match(p))
	assert.False(t, domain.ProductFilter{Category: "Mobile", Brand: "Sony"}.Match(p))
	assert.True(t, domain.ProductFilter{Price: &domain.PriceRange{Min: 100, Max: 500}}.Match(p))
	assert.False(t, domain.ProductFilter{Price: &domain.PriceRange{Min: 0, Max: 100}}.Match(p))
	assert.True(t, domain.ProductFilter{Category: domain.FacetAll, Brand: "Apple"}.Match(p))
	assert.False(t, domain.ProductFilter{Category: domain.FacetAll, Brand: "Sony"}.Match(p))
}

func TestPriceRangeValidate(t *testing.T) {
	assert.NoError(t, domain.PriceRange{Min: 0, Max: 0}.Validate())
	assert.ErrorIs(t, domain.PriceRange{Min: math.NaN(), Max: 100}.Validate(), domain.ErrInvalidPriceRange)
	assert.ErrorIs(t, domain.PriceRange{Min: 0, Max: math.Inf(1)}.Validate(), domain.ErrInvalidPriceRange)
	assert.ErrorIs(t, domain.PriceRange{Min: -1, Max: 100}.Validate(), domain.ErrInvalidPriceRange)
}

func TestParseSortDirection(t *testing.T) {
	d, err := domain.ParseSortDirection("lowToHigh")
	require.NoError(t, err)
	assert.Equal(t, domain.SortAscending, d)

	d, err = domain.ParseSortDirection("DESC")
	require.NoError(t, err)
	assert.Equal(t, domain.SortDescending, d)

	_, err = domain.ParseSortDirection("sideways")
	assert.Error(t, err)
}
