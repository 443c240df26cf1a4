package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.SearchPopularityView = (*SearchPopularityView)(nil)

// A SearchPopularityView serves the counts of the popularity group table.
type SearchPopularityView struct {
	gv *goka.View
}

func NewSearchPopularityView(
	seedBrokers []string, group string, opts ...goka.ViewOption,
) (*SearchPopularityView, error) {
	const op = "NewSearchPopularityView"

	gv, err := goka.NewView(
		seedBrokers,
		goka.GroupTable(goka.Group(group)),
		countCodec{},
		opts...,
	)
	if err != nil {
		return nil, opErr(err, op)
	}

	return &SearchPopularityView{gv}, nil
}

func (v *SearchPopularityView) Run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	const op = "SearchPopularityView.Run"
	log := slog.With("op", op)

	defer wg.Done()

	go func() {
		defer stopFn()
		if err := v.gv.Run(ctx); err != nil {
			log.Error("stopped", "err", err)
			return
		}
		log.Info("stopped")
	}()

	log.Info("running")
}

func (v *SearchPopularityView) Close() {
	slog.Info("view stops with its context", "op", "SearchPopularityView.Close")
}

// Popularity returns how many searches were counted for term. It fails with
// domain.ErrUnavailable until the table is recovered.
func (v *SearchPopularityView) Popularity(ctx context.Context, term string) (int64, error) {
	const op = "SearchPopularityView.Popularity"

	if err := ctx.Err(); err != nil {
		return 0, opErr(err, op)
	}

	if !v.gv.Recovered() {
		return 0, opErr(domain.ErrUnavailable, op)
	}

	val, err := v.gv.Get(domain.NormalizeTerm(term))
	if err != nil {
		return 0, opErr(err, op)
	}
	if val == nil {
		return 0, nil
	}

	n, ok := val.(int64)
	if !ok {
		return 0, opErr(fmt.Errorf("%w: %T", ErrInvalidValueType, val), op)
	}
	return n, nil
}
