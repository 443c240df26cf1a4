package schema_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/niksmo/storefront/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSchemaIdentifier struct {
	mock.Mock
}

func (c *MockSchemaIdentifier) DetermineID(
	ctx context.Context, subject string, avroSchemaText string,
) (id int, err error) {
	args := c.Called(ctx, subject, avroSchemaText)
	return args.Int(0), args.Error(1)
}

func TestSerdeSearchEventV1(t *testing.T) {
	t.Run("NoOpts", func(t *testing.T) {
		_, err := schema.NewSerdeSearchEventV1(t.Context())
		require.ErrorIs(t, err, schema.ErrTooFewOpts)
	})

	t.Run("OneOpt", func(t *testing.T) {
		_, err := schema.NewSerdeSearchEventV1(
			t.Context(),
			schema.SchemaIdentifierOpt(new(MockSchemaIdentifier)),
		)
		require.ErrorIs(t, err, schema.ErrTooFewOpts)
	})

	t.Run("IdentifierFails", func(t *testing.T) {
		si := new(MockSchemaIdentifier)
		subject := schema.ValueSubject("searches")
		si.On("DetermineID", t.Context(), subject, schema.SearchEventSchemaTextV1).
			Return(0, errors.New("registry down"))

		_, err := schema.NewSerdeSearchEventV1(
			t.Context(),
			schema.SubjectOpt(subject),
			schema.SchemaIdentifierOpt(si),
		)
		require.Error(t, err)
		si.AssertExpectations(t)
	})

	t.Run("EncodeDecode", func(t *testing.T) {
		si := new(MockSchemaIdentifier)
		subject := schema.ValueSubject("searches")
		si.On("DetermineID", t.Context(), subject, schema.SearchEventSchemaTextV1).
			Return(7, nil)

		serde, err := schema.NewSerdeSearchEventV1(
			t.Context(),
			schema.SubjectOpt(subject),
			schema.SchemaIdentifierOpt(si),
		)
		require.NoError(t, err)

		in := schema.SearchEventV1{
			Term:       "galaxy",
			UID:        "u1",
			OccurredAt: time.UnixMilli(1_700_000_000_000).UTC(),
		}
		data, err := serde.Encode(in)
		require.NoError(t, err)
		require.Greater(t, len(data), 5)
		assert.Equal(t, byte(0), data[0])

		var out schema.SearchEventV1
		require.NoError(t, serde.Decode(data, &out))
		assert.Equal(t, in.Term, out.Term)
		assert.Equal(t, in.UID, out.UID)
		assert.True(t, in.OccurredAt.Equal(out.OccurredAt))
	})
}

func TestSerdeOrderEventV1(t *testing.T) {
	si := new(MockSchemaIdentifier)
	subject := schema.ValueSubject("orders")
	si.On("DetermineID", t.Context(), subject, schema.OrderEventSchemaTextV1).
		Return(3, nil)

	serde, err := schema.NewSerdeOrderEventV1(
		t.Context(),
		schema.SubjectOpt(subject),
		schema.SchemaIdentifierOpt(si),
	)
	require.NoError(t, err)

	in := schema.OrderEventV1{
		OrderID: "123456789012",
		UID:     "u1",
		Email:   "u1@example.com",
		Name:    "Ann",
		Items: []schema.OrderEventItemV1{
			{ProductID: "p1", Name: "Galaxy S24", Size: "256GB", Quantity: 2, Amount: 899},
		},
		Total:       1798,
		Discount:    359.6,
		DeliveryFee: 15,
		Sum:         1453.4,
		PlacedAt:    time.UnixMilli(1_700_000_000_000).UTC(),
	}

	data, err := serde.Encode(in)
	require.NoError(t, err)

	var out schema.OrderEventV1
	require.NoError(t, serde.Decode(data, &out))
	assert.Equal(t, in.OrderID, out.OrderID)
	assert.Equal(t, in.Name, out.Name)
	assert.Equal(t, in.Items, out.Items)
	assert.Equal(t, in.Sum, out.Sum)
	assert.True(t, in.PlacedAt.Equal(out.PlacedAt))
}
