package kafka

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"sync"

	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/pkg/schema"
)

var _ port.SearchPopularityProcessor = (*SearchPopularityProcessor)(nil)

// A processor is used for composition.
//
// Running and closing the underlying [goka.Processor]
type processor struct {
	opPrefix string
	gp       *goka.Processor
}

func (p *processor) run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	const op = "run"
	log := slog.With("op", makeOp(p.opPrefix, op))

	defer wg.Done()

	go p.runProc(ctx, stopFn)

	log.Info("preparing...")
	p.waitForReady(ctx)
	log.Info("running")
}

func (p *processor) runProc(ctx context.Context, stopFn context.CancelFunc) {
	const op = "run"
	log := slog.With("op", makeOp(p.opPrefix, op))

	defer stopFn()

	err := p.gp.Run(ctx)
	if err != nil {
		log.Error("stopped", "err", err)
		return
	}
	log.Info("stopped")
}

func (p *processor) waitForReady(ctx context.Context) {
	const op = "waitForReady"
	log := slog.With("op", makeOp(p.opPrefix, op))

	err := p.gp.WaitForReadyContext(ctx)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		log.Error("fall down while preparing", "err", err)
		return
	}
}

func (p *processor) close() {
	const op = "close"
	log := slog.With("op", makeOp(p.opPrefix, op))

	log.Info("closing processor...")
	p.gp.Stop()
	log.Info("processor is closed")
}

// A searchEventCodec used for serde [schema.SearchEventV1]
type searchEventCodec struct {
	serde Serde
}

func newSearchEventCodec(s Serde) searchEventCodec {
	return searchEventCodec{s}
}

func (c searchEventCodec) Encode(v any) ([]byte, error) {
	const op = "searchEventCodec.Encode"
	if _, ok := v.(schema.SearchEventV1); !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return c.serde.Encode(v)
}

func (c searchEventCodec) Decode(data []byte) (any, error) {
	const op = "searchEventCodec.Decode"
	var s schema.SearchEventV1
	err := c.serde.Decode(data, &s)
	if err != nil {
		return nil, opErr(err, op)
	}
	return s, nil
}

// A countCodec used for serde the int64 counter of the group table
type countCodec struct{}

func (countCodec) Encode(v any) ([]byte, error) {
	const op = "countCodec.Encode"
	n, ok := v.(int64)
	if !ok {
		return nil, opErr(ErrInvalidValueType, op)
	}
	return strconv.AppendInt(nil, n, 10), nil
}

func (countCodec) Decode(data []byte) (any, error) {
	const op = "countCodec.Decode"
	n, err := strconv.ParseInt(string(data), 10, 64)
	if err != nil {
		return nil, opErr(err, op)
	}
	return n, nil
}

// A SearchPopularityProcessor counts search events per term
// from the stream topic into its group table.
type SearchPopularityProcessor struct {
	opPrefix string
	proc     processor
}

func NewSearchPopularityProc(
	seedBrokers []string,
	inputStream string,
	group string,
	searchEventSerde Serde,
	opts ...goka.ProcessorOption,
) (*SearchPopularityProcessor, error) {
	const op = "NewSearchPopularityProc"

	p := &SearchPopularityProcessor{opPrefix: "SearchPopularityProcessor"}

	gg := goka.DefineGroup(goka.Group(group),
		goka.Input(
			goka.Stream(inputStream),
			newSearchEventCodec(searchEventSerde),
			p.processFn,
		),
		goka.Persist(countCodec{}),
	)

	opts = append([]goka.ProcessorOption{withNonlogProcOpt()}, opts...)
	gp, err := goka.NewProcessor(seedBrokers, gg, opts...)
	if err != nil {
		return nil, opErr(err, op)
	}

	p.proc = processor{opPrefix: p.opPrefix, gp: gp}
	return p, nil
}

func (p *SearchPopularityProcessor) Run(
	ctx context.Context, stopFn context.CancelFunc, wg *sync.WaitGroup,
) {
	p.proc.run(ctx, stopFn, wg)
}

func (p *SearchPopularityProcessor) Close() {
	p.proc.close()
}

func (p *SearchPopularityProcessor) processFn(ctx goka.Context, msg any) {
	const op = "processFn"

	var n int64
	if v, ok := ctx.Value().(int64); ok {
		n = v
	}
	n++
	ctx.SetValue(n)

	event, _ := msg.(schema.SearchEventV1)
	slog.Debug("search counted",
		"op", makeOp(p.opPrefix, op),
		"term", ctx.Key(),
		"uid", event.UID,
		"count", n,
	)
}
