package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

type ConsumerOpt func(*consumerOpts) error

func ConsumerClientOpt(
	seedBrokers []string, topic, group string, sec Security,
) ConsumerOpt {
	return func(co *consumerOpts) error {
		kopts := append([]kgo.Opt{
			kgo.SeedBrokers(seedBrokers...),
			kgo.ConsumeTopics(topic),
			kgo.ConsumerGroup(group),
			kgo.DisableAutoCommit(),
		}, sec.ClientOpts()...)

		cl, err := kgo.NewClient(kopts...)
		if err != nil {
			return err
		}
		co.cl = cl
		return nil
	}
}

// ConsumerWithClientOpt sets a prepared client.
func ConsumerWithClientOpt(cl ConsumerClient) ConsumerOpt {
	return func(co *consumerOpts) error {
		if cl == nil {
			return errors.New("consumer client is nil")
		}
		co.cl = cl
		return nil
	}
}

func ConsumerDecoderOpt(decoder Decoder) ConsumerOpt {
	return func(co *consumerOpts) error {
		if decoder == nil {
			return errors.New("decoder is nil")
		}
		co.decoder = decoder
		return nil
	}
}

func ConsumerNotifierOpt(n port.OrderNotifier) ConsumerOpt {
	return func(co *consumerOpts) error {
		if n == nil {
			return errors.New("order notifier is nil")
		}
		co.notifier = n
		return nil
	}
}

type consumerOpts struct {
	cl       ConsumerClient
	decoder  Decoder
	notifier port.OrderNotifier
}

func (co *consumerOpts) apply(opts ...ConsumerOpt) error {
	for _, opt := range opts {
		if err := opt(co); err != nil {
			return err
		}
	}
	if co.cl == nil || co.decoder == nil || co.notifier == nil {
		return ErrTooFewOpts
	}
	return nil
}

type consumerParent interface {
	processFetches(context.Context, kgo.Fetches) error
}

// A consumer is used for composition.
//
// Fetching records from kafka broker and closing underlying [kgo.Client].
type consumer struct {
	opPrefix      string
	parent        consumerParent
	cl            ConsumerClient
	slowDownTimer *time.Timer
}

func (c consumer) run(ctx context.Context) {
	const op = "run"
	log := slog.With("op", makeOp(c.opPrefix, op))

	log.Info("running")

	for {
		select {
		case <-ctx.Done():
			log.Info("stopped")
			return
		default:
			err := c.consume(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					continue
				}
				log.Error("failed to consume", "err", err)
				c.slowDown(ctx)
			}
		}
	}
}

func (c consumer) consume(ctx context.Context) error {
	const op = "consume"

	fetches, err := c.pollFetches(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}

	if fetches.Empty() {
		return nil
	}

	err = c.parent.processFetches(ctx, fetches)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}

	err = c.commit(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

func (c consumer) pollFetches(ctx context.Context) (kgo.Fetches, error) {
	const op = "pollFetches"

	fetches := c.cl.PollFetches(ctx)
	if err := fetches.Err0(); err != nil {
		return nil, opErr(err, c.opPrefix, op)
	}

	err := c.handleFetchesErrs(fetches)
	if err != nil {
		return nil, opErr(err, c.opPrefix, op)
	}

	return fetches, nil
}

func (c consumer) handleFetchesErrs(fetches kgo.Fetches) error {
	var errsMessages []string
	fetches.EachError(func(t string, p int32, err error) {
		if err != nil {
			errMsg := fmt.Sprintf(
				"topic %q partition %d: %q", t, p, err,
			)
			errsMessages = append(errsMessages, errMsg)
		}
	})

	if len(errsMessages) != 0 {
		return errors.New(strings.Join(errsMessages, "; "))
	}
	return nil
}

func (c consumer) slowDown(ctx context.Context) {
	c.slowDownTimer.Reset(1 * time.Second)
	select {
	case <-c.slowDownTimer.C:
	case <-ctx.Done():
	}
}

func (c consumer) commit(ctx context.Context) error {
	const op = "commit"

	err := ctx.Err()
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}

	err = c.cl.CommitUncommittedOffsets(ctx)
	if err != nil {
		return opErr(err, c.opPrefix, op)
	}
	return nil
}

func (c consumer) close() {
	const op = "close"
	log := slog.With("op", makeOp(c.opPrefix, op))

	c.slowDownTimer.Stop()

	log.Info("closing consumer...")
	c.cl.Close()
	log.Info("consumer is closed")
}

// An OrderMailerConsumer consumes placed orders
// then sends the confirmation email for each of them.
type OrderMailerConsumer struct {
	opPrefix string
	consumer consumer
	notifier port.OrderNotifier
	decoder  Decoder
}

func NewOrderMailerConsumer(opts ...ConsumerOpt) (*OrderMailerConsumer, error) {
	const op = "NewOrderMailerConsumer"

	var options consumerOpts
	if err := options.apply(opts...); err != nil {
		return nil, opErr(err, op)
	}

	c := &OrderMailerConsumer{
		opPrefix: "OrderMailerConsumer",
		notifier: options.notifier,
		decoder:  options.decoder,
	}

	c.consumer = consumer{
		opPrefix:      c.opPrefix,
		parent:        c,
		cl:            options.cl,
		slowDownTimer: time.NewTimer(0),
	}

	return c, nil
}

// Run starts polling in a separate goroutine that returns when ctx is done.
func (c *OrderMailerConsumer) Run(
	ctx context.Context, _ context.CancelFunc, wg *sync.WaitGroup,
) {
	defer wg.Done()
	go c.consumer.run(ctx)
}

func (c *OrderMailerConsumer) Close() {
	c.consumer.close()
}

// processFetches never fails on a single order: a broken record or an
// undelivered email is logged and its offset is committed with the batch.
func (c *OrderMailerConsumer) processFetches(
	ctx context.Context, fetches kgo.Fetches,
) error {
	const op = "processFetches"
	log := slog.With("op", makeOp(c.opPrefix, op))

	for _, o := range c.toDomain(fetches) {
		if err := ctx.Err(); err != nil {
			return opErr(err, c.opPrefix, op)
		}
		err := c.notifier.SendOrderConfirmation(ctx, o)
		if err != nil {
			log.Error("failed to send order confirmation",
				"orderID", o.ID, "err", err)
			continue
		}
		log.Debug("order confirmation sent", "orderID", o.ID)
	}
	return nil
}

func (c *OrderMailerConsumer) toDomain(
	fetches kgo.Fetches,
) (vs []domain.Order) {
	const op = "toDomain"
	log := slog.With("op", makeOp(c.opPrefix, op))

	fetches.EachRecord(func(r *kgo.Record) {
		v, err := c.decodeRecValue(r)
		if err != nil {
			log.Error(
				"failed to decode value",
				"err", opErr(err, c.opPrefix, op),
			)
			return
		}
		vs = append(vs, v)
	})
	return vs
}

func (c *OrderMailerConsumer) decodeRecValue(
	r *kgo.Record,
) (domain.Order, error) {
	var s schema.OrderEventV1
	err := c.decoder.Decode(r.Value, &s)
	if err != nil {
		return domain.Order{}, err
	}
	return schemaV1ToOrder(s), nil
}
