package kafka

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"

	"github.com/lovoo/goka"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/pkg/schema"
	"github.com/twmb/franz-go/pkg/kgo"
)

var (
	ErrTooFewOpts       = errors.New("too few options")
	ErrInvalidValueType = errors.New("invalid value type")
)

type ProducerOpt func(*producerOpts) error

type producerOpts struct {
	cl      ProducerClient
	encoder Encoder
}

func ProducerClientOpt(
	ctx context.Context, seedBrokers []string, topic string, sec Security,
) ProducerOpt {
	return func(opts *producerOpts) error {
		kopts := append([]kgo.Opt{
			kgo.SeedBrokers(seedBrokers...),
			kgo.DefaultProduceTopicAlways(),
			kgo.DefaultProduceTopic(topic),
			kgo.RequiredAcks(kgo.AllISRAcks()),
		}, sec.ClientOpts()...)

		cl, err := kgo.NewClient(kopts...)
		if err != nil {
			return err
		}

		if err := cl.Ping(ctx); err != nil {
			cl.Close()
			return err
		}
		opts.cl = cl
		return nil
	}
}

// ProducerWithClientOpt sets a prepared client.
func ProducerWithClientOpt(cl ProducerClient) ProducerOpt {
	return func(opts *producerOpts) error {
		if cl == nil {
			return errors.New("producer client is nil")
		}
		opts.cl = cl
		return nil
	}
}

func ProducerEncoderOpt(encoder Encoder) ProducerOpt {
	return func(opts *producerOpts) error {
		if encoder == nil {
			return errors.New("encoder is nil")
		}
		opts.encoder = encoder
		return nil
	}
}

func (po *producerOpts) apply(opts ...ProducerOpt) error {
	for _, opt := range opts {
		if err := opt(po); err != nil {
			return err
		}
	}
	if po.cl == nil || po.encoder == nil {
		return ErrTooFewOpts
	}
	return nil
}

type ProducerClient interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
	Close()
}

type ConsumerClient interface {
	PollFetches(context.Context) kgo.Fetches
	CommitUncommittedOffsets(context.Context) error
	Close()
}

type Encoder interface {
	Encode(v any) ([]byte, error)
}

type Decoder interface {
	Decode(b []byte, v any) error
}

type Serde interface {
	Encoder
	Decoder
}

func withNonlogProcOpt() goka.ProcessorOption {
	return goka.WithLogger(log.New(io.Discard, "", 0))
}

func makeOp(s ...string) string {
	return strings.Join(s, ".")
}

func opErr(err error, op ...string) error {
	return fmt.Errorf("%s: %w", makeOp(op...), err)
}

func searchEventToSchemaV1(v domain.SearchEvent) (s schema.SearchEventV1) {
	s.Term = domain.NormalizeTerm(v.Term)
	s.UID = v.UID
	s.OccurredAt = v.OccurredAt.UTC()
	return
}

func orderToSchemaV1(v domain.Order) (s schema.OrderEventV1) {
	s.OrderID = v.ID
	s.UID = v.UID
	s.Email = v.Email
	s.Name = v.Name
	s.Total = v.Summary.Total
	s.Discount = v.Summary.Discount
	s.DeliveryFee = v.Summary.DeliveryFee
	s.Sum = v.Summary.Sum
	s.PlacedAt = v.PlacedAt.UTC()

	s.Items = make([]schema.OrderEventItemV1, len(v.Items))
	for i, it := range v.Items {
		s.Items[i] = schema.OrderEventItemV1{
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Quantity:  it.Quantity,
			Amount:    it.Amount,
		}
	}
	return
}

func schemaV1ToOrder(s schema.OrderEventV1) (v domain.Order) {
	v.ID = s.OrderID
	v.UID = s.UID
	v.Email = s.Email
	v.Name = s.Name
	v.Summary = domain.OrderSummary{
		Total:       s.Total,
		Discount:    s.Discount,
		DeliveryFee: s.DeliveryFee,
		Sum:         s.Sum,
	}
	v.PlacedAt = s.PlacedAt

	v.Items = make([]domain.OrderItem, len(s.Items))
	for i, it := range s.Items {
		v.Items[i] = domain.OrderItem{
			ProductID: it.ProductID,
			Name:      it.Name,
			Size:      it.Size,
			Quantity:  it.Quantity,
			Amount:    it.Amount,
		}
	}
	return
}
