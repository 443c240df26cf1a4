package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.OrderService = (*OrderService)(nil)

type OrderOpt func(*orderOpts) error

type orderOpts struct {
	events port.OrderEventsProducer
	now    func() time.Time
}

// OrderEventsOpt publishes placed orders instead of mailing them inline.
// The confirmation is then sent by the order events consumer.
func OrderEventsOpt(p port.OrderEventsProducer) OrderOpt {
	return func(o *orderOpts) error {
		if p == nil {
			return errors.New("order events producer is nil")
		}
		o.events = p
		return nil
	}
}

func OrderClockOpt(now func() time.Time) OrderOpt {
	return func(o *orderOpts) error {
		if now == nil {
			return errors.New("clock is nil")
		}
		o.now = now
		return nil
	}
}

// OrderService prices a cart from the stored products and places the order.
type OrderService struct {
	products port.ProductsStorage
	notifier port.OrderNotifier
	orderOpts
}

func NewOrderService(
	products port.ProductsStorage,
	notifier port.OrderNotifier,
	opts ...OrderOpt,
) (*OrderService, error) {
	const op = "NewOrderService"

	switch {
	case products == nil:
		return nil, fmt.Errorf("%s: products storage is nil", op)
	case notifier == nil:
		return nil, fmt.Errorf("%s: order notifier is nil", op)
	}

	o := orderOpts{now: time.Now}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	return &OrderService{products: products, notifier: notifier, orderOpts: o}, nil
}

func (s *OrderService) PlaceOrder(
	ctx context.Context, who domain.Identity, items []domain.OrderItem,
) (domain.Order, error) {
	const op = "OrderService.PlaceOrder"
	log := slog.With("op", op)

	if !who.EmailVerified {
		return domain.Order{}, fmt.Errorf("%s: %w", op, domain.ErrUnverified)
	}

	priced, err := s.price(ctx, items)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	id, err := domain.NewOrderID()
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}

	o := domain.Order{
		ID:       id,
		UID:      who.UID,
		Email:    who.Email,
		Name:     who.DisplayName,
		Items:    priced,
		PlacedAt: s.now().UTC(),
	}
	o.Summary = domain.Summarize(o.Total())

	if s.events != nil {
		if err := s.events.ProduceOrder(ctx, o); err != nil {
			return domain.Order{}, fmt.Errorf("%s: %w", op, err)
		}
	} else if err := s.notifier.SendOrderConfirmation(ctx, o); err != nil {
		log.Warn("failed to send order confirmation", "orderID", o.ID, "err", err)
	}

	log.Info("order placed", "orderID", o.ID, "uid", o.UID, "sum", o.Summary.Sum)
	return o, nil
}

// price replaces client supplied names and amounts with the stored ones.
func (s *OrderService) price(
	ctx context.Context, items []domain.OrderItem,
) ([]domain.OrderItem, error) {
	if len(items) == 0 {
		return nil, fmt.Errorf("%w: empty order", domain.ErrInvalidArgument)
	}

	priced := make([]domain.OrderItem, len(items))
	for i, it := range items {
		if it.Quantity <= 0 {
			return nil, fmt.Errorf(
				"%w: quantity %d of %q", domain.ErrInvalidArgument, it.Quantity, it.ProductID,
			)
		}

		p, err := s.products.ReadProduct(ctx, it.ProductID)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return nil, fmt.Errorf("%w: unknown product %q", domain.ErrInvalidArgument, it.ProductID)
			}
			return nil, err
		}

		if !hasSize(p, it.Size) {
			return nil, fmt.Errorf(
				"%w: size %q of %q", domain.ErrInvalidArgument, it.Size, it.ProductID,
			)
		}

		priced[i] = domain.OrderItem{
			ProductID: p.ID,
			Name:      p.Name,
			Size:      it.Size,
			Quantity:  it.Quantity,
			Amount:    p.Amount,
		}
	}
	return priced, nil
}

// hasSize accepts any size, including none, for products without variants.
func hasSize(p domain.Product, size string) bool {
	if len(p.Variants) == 0 {
		return true
	}
	return slices.ContainsFunc(p.Variants, func(v domain.ProductVariant) bool {
		return v.Size == size
	})
}
