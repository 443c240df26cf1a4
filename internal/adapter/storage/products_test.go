package storage

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var productCols = []string{
	"id", "name", "category", "brand", "amount", "rating",
	"banner_image", "description", "active",
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db, mock
}

func productRows() *sqlmock.Rows {
	return sqlmock.NewRows(productCols).
		AddRow("p1", "iPhone 15", "Mobile", "Apple", 999.0, 4.7, "products/p1/banner.jpg", "desc", true).
		AddRow("p2", "Galaxy S24", "Mobile", "Samsung", 899.0, 4.6, "", "desc", true)
}

func TestProductsRepositoryReadActive(t *testing.T) {
	t.Run("Ok", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM products WHERE active = TRUE ORDER BY created_at ASC, id ASC OFFSET \$1 LIMIT \$2`).
			WithArgs(0, 20).
			WillReturnRows(productRows())

		ps, err := NewProductsRepository(db).ReadActive(t.Context(), 0, 20)
		require.NoError(t, err)
		require.Len(t, ps, 2)
		assert.Equal(t, "p1", ps[0].ID)
		assert.Equal(t, 999.0, ps[0].Amount)
		assert.Equal(t, "Samsung", ps[1].Brand)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("Empty", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM products`).
			WillReturnRows(sqlmock.NewRows(productCols))

		ps, err := NewProductsRepository(db).ReadActive(t.Context(), 40, 20)
		require.NoError(t, err)
		assert.NotNil(t, ps)
		assert.Empty(t, ps)
	})

	t.Run("QueryError", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM products`).WillReturnError(errors.New("conn reset"))

		_, err := NewProductsRepository(db).ReadActive(t.Context(), 0, 20)
		require.Error(t, err)
	})

	t.Run("CanceledContext", func(t *testing.T) {
		db, _ := newMock(t)
		ctx, cancel := context.WithCancel(t.Context())
		cancel()

		_, err := NewProductsRepository(db).ReadActive(ctx, 0, 20)
		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestProductsRepositoryReadProduct(t *testing.T) {
	t.Run("WithVariantsAndImages", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM products WHERE id = \$1 AND active = TRUE`).
			WithArgs("p1").
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow("p1", "iPhone 15", "Mobile", "Apple", 999.0, 4.7, "", "desc", true))
		mock.ExpectQuery(`FROM product_variants WHERE product_id = \$1`).
			WithArgs("p1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "size"}).
				AddRow("v1", "128GB").
				AddRow("v2", "256GB"))
		mock.ExpectQuery(`FROM product_images WHERE product_id = \$1`).
			WithArgs("p1").
			WillReturnRows(sqlmock.NewRows([]string{"id", "path", "is_primary"}).
				AddRow("i1", "products/p1/back.jpg", false).
				AddRow("i2", "products/p1/front.jpg", true))

		p, err := NewProductsRepository(db).ReadProduct(t.Context(), "p1")
		require.NoError(t, err)
		assert.Equal(t, "iPhone 15", p.Name)
		assert.Len(t, p.Variants, 2)
		img, ok := p.PrimaryImage()
		require.True(t, ok)
		assert.Equal(t, "i2", img.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("NoNestedData", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM products`).
			WillReturnRows(sqlmock.NewRows(productCols).
				AddRow("p1", "iPhone 15", "Mobile", "Apple", 999.0, 4.7, "", "", true))
		mock.ExpectQuery(`FROM product_variants`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "size"}))
		mock.ExpectQuery(`FROM product_images`).
			WillReturnRows(sqlmock.NewRows([]string{"id", "path", "is_primary"}))

		p, err := NewProductsRepository(db).ReadProduct(t.Context(), "p1")
		require.NoError(t, err)
		assert.Empty(t, p.Variants)
		_, ok := p.PrimaryImage()
		assert.False(t, ok)
	})

	t.Run("NotFound", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(`FROM products`).
			WithArgs("missing").
			WillReturnError(sql.ErrNoRows)

		_, err := NewProductsRepository(db).ReadProduct(t.Context(), "missing")
		require.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestFilterQuery(t *testing.T) {
	tests := []struct {
		name     string
		filter   domain.ProductFilter
		wantSQL  []string
		wantArgs []any
	}{
		{
			name:     "Empty",
			filter:   domain.ProductFilter{},
			wantArgs: []any{50},
		},
		{
			name:     "AllIsUnset",
			filter:   domain.ProductFilter{Category: domain.FacetAll, Brand: domain.FacetAll},
			wantArgs: []any{50},
		},
		{
			name:     "Category",
			filter:   domain.ProductFilter{Category: "Watch"},
			wantSQL:  []string{"AND category = $1", "LIMIT $2"},
			wantArgs: []any{"Watch", 50},
		},
		{
			name: "AllClauses",
			filter: domain.ProductFilter{
				Category: "Mobile",
				Brand:    "Apple",
				Price:    &domain.PriceRange{Min: 100, Max: 1000},
			},
			wantSQL: []string{
				"AND category = $1",
				"AND brand = $2",
				"AND amount BETWEEN $3 AND $4",
				"LIMIT $5",
			},
			wantArgs: []any{"Mobile", "Apple", 100.0, 1000.0, 50},
		},
		{
			name:     "PriceOnly",
			filter:   domain.ProductFilter{Price: &domain.PriceRange{Min: 0, Max: 300}},
			wantSQL:  []string{"AND amount BETWEEN $1 AND $2"},
			wantArgs: []any{0.0, 300.0, 50},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := filterQuery(tt.filter, 50)
			assert.Contains(t, query, "WHERE active = TRUE")
			for _, s := range tt.wantSQL {
				assert.Contains(t, query, s)
			}
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestProductsRepositoryReadFiltered(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(`AND brand = \$1 AND amount BETWEEN \$2 AND \$3`).
		WithArgs("Samsung", 100.0, 900.0, 50).
		WillReturnRows(sqlmock.NewRows(productCols).
			AddRow("p2", "Galaxy S24", "Mobile", "Samsung", 899.0, 4.6, "", "", true))

	f := domain.ProductFilter{Brand: "Samsung", Price: &domain.PriceRange{Min: 100, Max: 900}}
	ps, err := NewProductsRepository(db).ReadFiltered(t.Context(), f, 50)
	require.NoError(t, err)
	require.Len(t, ps, 1)
	assert.Equal(t, "p2", ps[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductsRepositorySearchProducts(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta(`(name ILIKE $1 OR category ILIKE $1 OR brand ILIKE $1)`)).
		WithArgs(`%50\%%`, 20).
		WillReturnRows(sqlmock.NewRows(productCols))

	ps, err := NewProductsRepository(db).SearchProducts(t.Context(), " 50% ", 20)
	require.NoError(t, err)
	assert.Empty(t, ps)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestProductsRepositoryAddImage(t *testing.T) {
	t.Run("Primary", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs("p1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectExec(`UPDATE product_images SET is_primary = FALSE`).
			WithArgs("p1").
			WillReturnResult(sqlmock.NewResult(0, 2))
		mock.ExpectQuery(`INSERT INTO product_images`).
			WithArgs("img-1", "p1", "products/p1/front.jpg", true).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("img-1"))
		mock.ExpectCommit()

		img, err := NewProductsRepository(db).AddImage(t.Context(), "p1", domain.ProductImage{
			ID: "img-1", Path: "products/p1/front.jpg", Primary: true,
		})
		require.NoError(t, err)
		assert.Equal(t, "img-1", img.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ExistingPathKeepsID", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT EXISTS`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(`INSERT INTO product_images`).
			WithArgs(sqlmock.AnyArg(), "p1", "products/p1/side.jpg", false).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("old-id"))
		mock.ExpectCommit()

		img, err := NewProductsRepository(db).AddImage(t.Context(), "p1", domain.ProductImage{
			Path: "products/p1/side.jpg",
		})
		require.NoError(t, err)
		assert.Equal(t, "old-id", img.ID)
		require.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("UnknownProduct", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT EXISTS`).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		_, err := NewProductsRepository(db).AddImage(t.Context(), "nope", domain.ProductImage{
			Path: "products/nope/a.jpg",
		})
		require.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, mock.ExpectationsWereMet())
	})
}
