package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path"
	"strings"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.CatalogService = (*CatalogService)(nil)

const (
	defaultPageSize    = 20
	defaultMaxPageSize = 100
)

type CatalogOpt func(*catalogOpts) error

type catalogOpts struct {
	cache       port.ProductsCache
	images      port.ImageStorage
	searches    port.SearchEventsProducer
	popularity  port.SearchPopularityReader
	pageSize    int
	maxPageSize int
	now         func() time.Time
}

// CatalogCacheOpt serves the first active page through c.
func CatalogCacheOpt(c port.ProductsCache) CatalogOpt {
	return func(o *catalogOpts) error {
		if c == nil {
			return errors.New("products cache is nil")
		}
		o.cache = c
		return nil
	}
}

func CatalogImagesOpt(s port.ImageStorage) CatalogOpt {
	return func(o *catalogOpts) error {
		if s == nil {
			return errors.New("image storage is nil")
		}
		o.images = s
		return nil
	}
}

func CatalogSearchEventsOpt(p port.SearchEventsProducer) CatalogOpt {
	return func(o *catalogOpts) error {
		if p == nil {
			return errors.New("search events producer is nil")
		}
		o.searches = p
		return nil
	}
}

func CatalogPopularityOpt(r port.SearchPopularityReader) CatalogOpt {
	return func(o *catalogOpts) error {
		if r == nil {
			return errors.New("popularity reader is nil")
		}
		o.popularity = r
		return nil
	}
}

func CatalogPageSizeOpt(pageSize, maxPageSize int) CatalogOpt {
	return func(o *catalogOpts) error {
		if pageSize <= 0 || maxPageSize < pageSize {
			return fmt.Errorf("invalid page size %d/%d", pageSize, maxPageSize)
		}
		o.pageSize = pageSize
		o.maxPageSize = maxPageSize
		return nil
	}
}

func CatalogClockOpt(now func() time.Time) CatalogOpt {
	return func(o *catalogOpts) error {
		if now == nil {
			return errors.New("clock is nil")
		}
		o.now = now
		return nil
	}
}

// CatalogService serves product reads, image uploads and search popularity.
type CatalogService struct {
	storage port.ProductsStorage
	catalogOpts
}

func NewCatalogService(
	storage port.ProductsStorage, opts ...CatalogOpt,
) (*CatalogService, error) {
	const op = "NewCatalogService"

	if storage == nil {
		return nil, fmt.Errorf("%s: products storage is nil", op)
	}

	o := catalogOpts{
		pageSize:    defaultPageSize,
		maxPageSize: defaultMaxPageSize,
		now:         time.Now,
	}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &CatalogService{storage: storage, catalogOpts: o}, nil
}

func (s *CatalogService) FetchActive(
	ctx context.Context, offset, limit int,
) ([]domain.Product, error) {
	const op = "CatalogService.FetchActive"
	log := slog.With("op", op)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	offset = max(offset, 0)
	limit = s.clampLimit(limit)

	cacheable := s.cache != nil && offset == 0
	if cacheable {
		ps, ok, err := s.cache.GetPage(ctx, offset, limit)
		switch {
		case err != nil:
			log.Warn("failed to read cached page", "err", err)
		case ok:
			return ps, nil
		}
	}

	ps, err := s.storage.ReadActive(ctx, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if cacheable {
		if err := s.cache.SetPage(ctx, offset, limit, ps); err != nil {
			log.Warn("failed to cache page", "err", err)
		}
	}
	return ps, nil
}

func (s *CatalogService) FetchByID(ctx context.Context, id string) (domain.Product, error) {
	const op = "CatalogService.FetchByID"

	if strings.TrimSpace(id) == "" {
		return domain.Product{}, fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}

	p, err := s.storage.ReadProduct(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (s *CatalogService) FetchFiltered(
	ctx context.Context, f domain.ProductFilter,
) ([]domain.Product, error) {
	const op = "CatalogService.FetchFiltered"

	if f.Price != nil {
		if err := f.Price.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	ps, err := s.storage.ReadFiltered(ctx, f, s.maxPageSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return ps, nil
}

// Search matches text against name, category and brand. Blank text returns
// the first active page. A successful search is reported as a search event;
// a failed report is only logged.
func (s *CatalogService) Search(
	ctx context.Context, uid, text string,
) ([]domain.Product, error) {
	const op = "CatalogService.Search"

	text = strings.TrimSpace(text)
	if text == "" {
		return s.FetchActive(ctx, 0, s.pageSize)
	}

	ps, err := s.storage.SearchProducts(ctx, text, s.maxPageSize)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.reportSearch(ctx, uid, text)
	return ps, nil
}

func (s *CatalogService) reportSearch(ctx context.Context, uid, text string) {
	const op = "CatalogService.reportSearch"

	if s.searches == nil {
		return
	}

	ev := domain.SearchEvent{Term: text, UID: uid, OccurredAt: s.now()}
	if err := s.searches.ProduceSearch(ctx, ev); err != nil {
		slog.Warn("failed to report search", "op", op, "err", err)
	}
}

// UploadImage stores the image under products/{id}/{name} and records it on
// the product. A primary image demotes the previous one.
func (s *CatalogService) UploadImage(
	ctx context.Context,
	productID, name, contentType string,
	r io.Reader,
	size int64,
	primary bool,
) (domain.ProductImage, error) {
	const op = "CatalogService.UploadImage"

	if s.images == nil {
		return domain.ProductImage{}, fmt.Errorf("%s: %w", op, domain.ErrUnavailable)
	}

	if name == "" || path.Base(name) != name || name == "." || name == ".." {
		return domain.ProductImage{}, fmt.Errorf(
			"%s: %w: image name %q", op, domain.ErrInvalidArgument, name,
		)
	}

	if _, err := s.storage.ReadProduct(ctx, productID); err != nil {
		return domain.ProductImage{}, fmt.Errorf("%s: %w", op, err)
	}

	objPath := path.Join("products", productID, name)
	if err := s.images.PutImage(ctx, objPath, contentType, r, size); err != nil {
		return domain.ProductImage{}, fmt.Errorf("%s: %w", op, err)
	}

	img, err := s.storage.AddImage(ctx, productID, domain.ProductImage{
		Path:    objPath,
		Primary: primary,
	})
	if err != nil {
		return domain.ProductImage{}, fmt.Errorf("%s: %w", op, err)
	}

	slog.Info("image uploaded", "op", op, "productID", productID, "path", objPath)
	return img, nil
}

func (s *CatalogService) Popularity(ctx context.Context, term string) (int64, error) {
	const op = "CatalogService.Popularity"

	if s.popularity == nil {
		return 0, fmt.Errorf("%s: %w", op, domain.ErrUnavailable)
	}

	term = domain.NormalizeTerm(term)
	if term == "" {
		return 0, nil
	}

	n, err := s.popularity.Popularity(ctx, term)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return n, nil
}

func (s *CatalogService) clampLimit(limit int) int {
	switch {
	case limit <= 0:
		return s.pageSize
	case limit > s.maxPageSize:
		return s.maxPageSize
	default:
		return limit
	}
}
