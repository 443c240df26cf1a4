package kafka

import (
	"context"
	"log/slog"

	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/pkg/schema"
)

var _ port.SearchEventsProducer = (*SearchEventsEmitter)(nil)

// A SearchEventsEmitter emits search events keyed by the normalized term,
// so that all events of one term land in one partition of the counter.
type SearchEventsEmitter struct {
	ge *goka.Emitter
}

func NewSearchEventsEmitter(
	seedBrokers []string,
	stream string,
	searchEventSerde Serde,
	opts ...goka.EmitterOption,
) (*SearchEventsEmitter, error) {
	const op = "NewSearchEventsEmitter"

	ge, err := goka.NewEmitter(
		seedBrokers,
		goka.Stream(stream),
		newSearchEventCodec(searchEventSerde),
		opts...,
	)
	if err != nil {
		return nil, opErr(err, op)
	}
	return &SearchEventsEmitter{ge}, nil
}

func (e *SearchEventsEmitter) ProduceSearch(
	ctx context.Context, ev domain.SearchEvent,
) error {
	const op = "SearchEventsEmitter.ProduceSearch"

	if err := ctx.Err(); err != nil {
		return opErr(err, op)
	}

	s := e.toSchema(ev)
	if s.Term == "" {
		return nil
	}

	promise, err := e.ge.Emit(s.Term, s)
	if err != nil {
		return opErr(err, op)
	}

	done := make(chan error, 1)
	promise.Then(func(err error) {
		done <- err
	})

	select {
	case err := <-done:
		if err != nil {
			return opErr(err, op)
		}
		return nil
	case <-ctx.Done():
		return opErr(ctx.Err(), op)
	}
}

func (e *SearchEventsEmitter) Close() {
	const op = "SearchEventsEmitter.Close"
	log := slog.With("op", op)

	log.Info("closing emitter...")
	if err := e.ge.Finish(); err != nil {
		log.Error("failed to finish gracefully", "err", err)
		return
	}
	log.Info("emitter is closed")
}

func (e *SearchEventsEmitter) toSchema(ev domain.SearchEvent) schema.SearchEventV1 {
	return searchEventToSchemaV1(ev)
}
