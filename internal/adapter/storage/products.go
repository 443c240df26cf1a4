package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.ProductsStorage = (*ProductsRepository)(nil)

const productColumns = `
	id, name, category, brand, amount::float8, rating::float8,
	banner_image, description, active`

const productOrder = ` ORDER BY created_at ASC, id ASC`

type ProductsRepository struct {
	sqldb sqldb
}

func NewProductsRepository(sqldb sqldb) ProductsRepository {
	return ProductsRepository{sqldb}
}

func (r ProductsRepository) ReadActive(
	ctx context.Context, offset, limit int,
) ([]domain.Product, error) {
	const op = "ProductsRepository.ReadActive"

	query := `SELECT` + productColumns + `
		FROM products
		WHERE active = TRUE` + productOrder + `
		OFFSET $1 LIMIT $2;`

	ps, err := r.queryProducts(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

// ReadProduct returns an active product with its variants and images.
func (r ProductsRepository) ReadProduct(
	ctx context.Context, id string,
) (domain.Product, error) {
	const op = "ProductsRepository.ReadProduct"

	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	query := `SELECT` + productColumns + `
		FROM products
		WHERE id = $1 AND active = TRUE;`

	p, err := scanProduct(r.sqldb.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Product{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
		}
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	p.Variants, err = r.readVariants(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	p.Images, err = r.readImages(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}

	return p, nil
}

// ReadFiltered AND-composes the set clauses of f over the active products.
func (r ProductsRepository) ReadFiltered(
	ctx context.Context, f domain.ProductFilter, limit int,
) ([]domain.Product, error) {
	const op = "ProductsRepository.ReadFiltered"

	query, args := filterQuery(f, limit)
	ps, err := r.queryProducts(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

// SearchProducts matches text in the name, category or brand ignoring case.
func (r ProductsRepository) SearchProducts(
	ctx context.Context, text string, limit int,
) ([]domain.Product, error) {
	const op = "ProductsRepository.SearchProducts"

	query := `SELECT` + productColumns + `
		FROM products
		WHERE active = TRUE
			AND (name ILIKE $1 OR category ILIKE $1 OR brand ILIKE $1)` + productOrder + `
		LIMIT $2;`

	pattern := "%" + escapeLike(strings.TrimSpace(text)) + "%"
	ps, err := r.queryProducts(ctx, query, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

// AddImage records an image of an existing product. A primary image demotes
// the product's other images. Re-adding a path updates its primary flag.
func (r ProductsRepository) AddImage(
	ctx context.Context, productID string, img domain.ProductImage,
) (domain.ProductImage, error) {
	const op = "ProductsRepository.AddImage"

	if err := ctx.Err(); err != nil {
		return domain.ProductImage{}, fmt.Errorf("%s: %w", op, err)
	}

	if img.ID == "" {
		img.ID = uuid.NewString()
	}

	err := inTx(ctx, r.sqldb, op, func(tx *sql.Tx) error {
		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1);`, productID,
		).Scan(&exists)
		if err != nil {
			return err
		}
		if !exists {
			return domain.ErrNotFound
		}

		if img.Primary {
			_, err := tx.ExecContext(ctx,
				`UPDATE product_images SET is_primary = FALSE WHERE product_id = $1;`,
				productID,
			)
			if err != nil {
				return err
			}
		}

		query := `
			INSERT INTO product_images (id, product_id, path, is_primary)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (product_id, path) DO UPDATE SET
				is_primary = EXCLUDED.is_primary
			RETURNING id;`

		return tx.QueryRowContext(ctx, query,
			img.ID, productID, img.Path, img.Primary,
		).Scan(&img.ID)
	})
	if err != nil {
		return domain.ProductImage{}, fmt.Errorf("%s: %w", op, err)
	}

	slog.Debug("product image stored", "op", op, "productID", productID, "path", img.Path)
	return img, nil
}

func (r ProductsRepository) queryProducts(
	ctx context.Context, query string, args ...any,
) (ps []domain.Product, err error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	rows, err := r.sqldb.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, rows.Close())
	}()

	ps = []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		ps = append(ps, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ps, nil
}

func (r ProductsRepository) readVariants(
	ctx context.Context, productID string,
) (vs []domain.ProductVariant, err error) {
	rows, err := r.sqldb.QueryContext(ctx,
		`SELECT id, size FROM product_variants WHERE product_id = $1 ORDER BY id;`,
		productID,
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, rows.Close())
	}()

	vs = []domain.ProductVariant{}
	for rows.Next() {
		var v domain.ProductVariant
		if err := rows.Scan(&v.ID, &v.Size); err != nil {
			return nil, err
		}
		vs = append(vs, v)
	}
	return vs, rows.Err()
}

func (r ProductsRepository) readImages(
	ctx context.Context, productID string,
) (imgs []domain.ProductImage, err error) {
	rows, err := r.sqldb.QueryContext(ctx,
		`SELECT id, path, is_primary FROM product_images WHERE product_id = $1 ORDER BY path;`,
		productID,
	)
	if err != nil {
		return nil, err
	}
	defer func() {
		err = errors.Join(err, rows.Close())
	}()

	imgs = []domain.ProductImage{}
	for rows.Next() {
		var img domain.ProductImage
		if err := rows.Scan(&img.ID, &img.Path, &img.Primary); err != nil {
			return nil, err
		}
		imgs = append(imgs, img)
	}
	return imgs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (domain.Product, error) {
	var p domain.Product
	err := s.Scan(
		&p.ID, &p.Name, &p.Category, &p.Brand, &p.Amount, &p.Rating,
		&p.BannerImage, &p.Description, &p.Active,
	)
	return p, err
}

func filterQuery(f domain.ProductFilter, limit int) (string, []any) {
	var (
		b    strings.Builder
		args []any
	)

	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}

	b.WriteString(`SELECT` + productColumns + `
		FROM products
		WHERE active = TRUE`)

	if f.Category != "" && f.Category != domain.FacetAll {
		b.WriteString(" AND category = " + arg(f.Category))
	}
	if f.Brand != "" && f.Brand != domain.FacetAll {
		b.WriteString(" AND brand = " + arg(f.Brand))
	}
	if f.Price != nil {
		b.WriteString(" AND amount BETWEEN " + arg(f.Price.Min) + " AND " + arg(f.Price.Max))
	}

	b.WriteString(productOrder)
	b.WriteString(" LIMIT " + arg(limit) + ";")

	return b.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
