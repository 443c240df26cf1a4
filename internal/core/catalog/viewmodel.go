// Package catalog holds the client side product browsing state: the loaded
// collection, its facets, the active filter and sort state, and the sequence
// of products currently shown.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

const DefaultPageSize = 20

type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusReady
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "idle"
	}
}

// View is a copy of the view-model state safe to hand to a renderer.
type View struct {
	Status Status
	Items  []domain.Product
	Facets domain.Facets
	Filter domain.FilterState
	Err    error
}

type Opt func(*options) error

type options struct {
	pageSize int
	timeout  time.Duration
}

func PageSizeOpt(n int) Opt {
	return func(o *options) error {
		if n <= 0 {
			return errors.New("page size must be positive")
		}
		o.pageSize = n
		return nil
	}
}

// RequestTimeoutOpt bounds every remote call. An expired call is a fetch failure.
func RequestTimeoutOpt(d time.Duration) Opt {
	return func(o *options) error {
		if d < 0 {
			return errors.New("negative request timeout")
		}
		o.timeout = d
		return nil
	}
}

// ViewModel owns the loaded product collection. It is safe for concurrent
// use; remote calls run without holding the lock and only the most recent
// request may publish its result.
//
// Two tickets are kept. loadTicket orders collection loads and viewTicket
// orders every change of the visible sequence, so a local operation never
// drops a collection that is still being fetched.
type ViewModel struct {
	query    port.ProductQuery
	pageSize int
	timeout  time.Duration

	mu         sync.Mutex
	loadTicket uint64
	viewTicket uint64
	status     Status
	err        error
	loaded     bool
	collection []domain.Product
	facets     domain.Facets
	state      domain.FilterState
	visible    []domain.Product
}

func NewViewModel(query port.ProductQuery, opts ...Opt) (*ViewModel, error) {
	const op = "NewViewModel"

	if query == nil {
		return nil, fmt.Errorf("%s: product query is nil", op)
	}

	o := options{pageSize: DefaultPageSize}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &ViewModel{
		query:    query,
		pageSize: o.pageSize,
		timeout:  o.timeout,
		facets:   domain.DeriveFacets(nil),
		state:    domain.DefaultFilterState(),
	}, nil
}

// Load fetches the active products and replaces the whole state with the
// unfiltered collection in source order. When a facet, search, sort or
// advanced filter ran while fetching, the collection and facets are still
// installed but the newer filter state is kept and re-applied.
func (vm *ViewModel) Load(ctx context.Context) error {
	const op = "ViewModel.Load"
	log := slog.With("op", op)

	load, view := vm.beginLoad()

	ps, err := fetch(ctx, vm.timeout, func(ctx context.Context) ([]domain.Product, error) {
		return vm.query.FetchActive(ctx, 0, vm.pageSize)
	})

	vm.mu.Lock()
	defer vm.mu.Unlock()

	if load != vm.loadTicket {
		log.Debug("stale response dropped", "ticket", load)
		return fmt.Errorf("%s: %w", op, domain.ErrSuperseded)
	}

	if err != nil {
		vm.loaded = false
		vm.collection = nil
	} else {
		vm.loaded = true
		vm.collection = ps
	}
	vm.facets = domain.DeriveFacets(vm.collection)

	if view == vm.viewTicket {
		vm.state = domain.DefaultFilterState()
		vm.visible = DeriveVisible(vm.collection, vm.state)
	} else {
		log.Debug("keeping newer filter state", "ticket", view)
		if vm.state.Advanced == nil {
			vm.visible = DeriveVisible(vm.collection, vm.state)
		}
	}

	if err != nil {
		vm.fail(err)
		log.Warn("failed to load products", "err", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	vm.status = StatusReady
	vm.err = nil

	log.Debug("products loaded", "nProducts", len(ps))
	return nil
}

// SelectFacet sets the category or brand facet. Switching the active facet
// kind resets the other one to "All". Search text and an advanced filter
// result are dropped in favour of the local facet view.
func (vm *ViewModel) SelectFacet(kind domain.FacetKind, value string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vm.viewTicket++

	if kind != vm.state.ActiveFacet {
		vm.state.Category = domain.FacetAll
		vm.state.Brand = domain.FacetAll
		vm.state.ActiveFacet = kind
	}

	switch kind {
	case domain.FacetCategory:
		vm.state.Category = value
	case domain.FacetBrand:
		vm.state.Brand = value
	}

	vm.state.SearchText = ""
	vm.state.Advanced = nil
	vm.rederive()
}

// Search matches names over the full collection. Empty text restores the
// facet view.
func (vm *ViewModel) Search(text string) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vm.viewTicket++
	vm.state.SearchText = text
	vm.state.Advanced = nil
	vm.rederive()
}

// ApplySort stable-sorts the current visible sequence by amount.
func (vm *ViewModel) ApplySort(dir domain.SortDirection) {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	vm.viewTicket++
	vm.state.Sort = dir

	if dir == domain.SortNone && vm.state.Advanced == nil {
		vm.rederive()
		return
	}

	vm.visible = SortStable(vm.visible, dir)
	vm.settleLocal()
}

// ApplyAdvancedFilter replaces the visible sequence with the result of a
// remote filtered query. The result is not merged into the loaded collection.
func (vm *ViewModel) ApplyAdvancedFilter(ctx context.Context, f domain.ProductFilter) error {
	const op = "ViewModel.ApplyAdvancedFilter"
	log := slog.With("op", op)

	if f.Price != nil {
		if err := f.Price.Validate(); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	ticket := vm.beginView()

	ps, err := fetch(ctx, vm.timeout, func(ctx context.Context) ([]domain.Product, error) {
		return vm.query.FetchFiltered(ctx, f)
	})

	vm.mu.Lock()
	defer vm.mu.Unlock()

	if ticket != vm.viewTicket {
		log.Debug("stale response dropped", "ticket", ticket)
		return fmt.Errorf("%s: %w", op, domain.ErrSuperseded)
	}

	vm.state.Advanced = &f
	vm.state.SearchText = ""
	vm.state.Sort = domain.SortNone

	if err != nil {
		vm.visible = nil
		vm.fail(err)
		log.Warn("failed to fetch filtered products", "err", err)
		return fmt.Errorf("%s: %w", op, err)
	}

	vm.visible = ps
	vm.status = StatusReady
	vm.err = nil
	return nil
}

// Detail fetches one product with its variants and images. It does not
// touch the browsing state.
func (vm *ViewModel) Detail(ctx context.Context, id string) (domain.Product, error) {
	const op = "ViewModel.Detail"

	ctx, cancel := withTimeout(ctx, vm.timeout)
	defer cancel()

	p, err := vm.query.FetchByID(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return p, nil
}

func (vm *ViewModel) Snapshot() View {
	vm.mu.Lock()
	defer vm.mu.Unlock()

	s := vm.state
	if s.Advanced != nil {
		adv := *s.Advanced
		s.Advanced = &adv
	}

	return View{
		Status: vm.status,
		Items:  slices.Clone(vm.visible),
		Facets: domain.Facets{
			Categories: slices.Clone(vm.facets.Categories),
			Brands:     slices.Clone(vm.facets.Brands),
		},
		Filter: s,
		Err:    vm.err,
	}
}

func (vm *ViewModel) beginLoad() (load, view uint64) {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.loadTicket++
	vm.viewTicket++
	vm.status = StatusLoading
	vm.err = nil
	return vm.loadTicket, vm.viewTicket
}

func (vm *ViewModel) beginView() uint64 {
	vm.mu.Lock()
	defer vm.mu.Unlock()
	vm.viewTicket++
	vm.status = StatusLoading
	vm.err = nil
	return vm.viewTicket
}

func (vm *ViewModel) fail(err error) {
	vm.status = StatusFailed
	vm.err = err
}

// rederive must be called with vm.mu held.
func (vm *ViewModel) rederive() {
	vm.visible = DeriveVisible(vm.collection, vm.state)
	vm.settleLocal()
}

func (vm *ViewModel) settleLocal() {
	switch {
	case vm.loaded:
		vm.status = StatusReady
		vm.err = nil
	case vm.status == StatusLoading:
		vm.status = StatusIdle
	}
}

func fetch(
	ctx context.Context,
	timeout time.Duration,
	fn func(context.Context) ([]domain.Product, error),
) ([]domain.Product, error) {
	ctx, cancel := withTimeout(ctx, timeout)
	defer cancel()

	ps, err := fn(ctx)
	if err != nil {
		return nil, err
	}
	if ps == nil {
		ps = []domain.Product{}
	}
	return ps, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d > 0 {
		return context.WithTimeout(ctx, d)
	}
	return context.WithCancel(ctx)
}
