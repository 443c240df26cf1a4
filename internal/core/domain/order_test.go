package domain_test

import (
	"testing"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSummarize(t *testing.T) {
	s := domain.Summarize(100)
	assert.Equal(t, 100.0, s.Total)
	assert.Equal(t, 20.0, s.Discount)
	assert.Equal(t, 15.0, s.DeliveryFee)
	assert.Equal(t, 95.0, s.Sum)

	s = domain.Summarize(19.99)
	assert.Equal(t, 4.0, s.Discount)
	assert.Equal(t, 30.99, s.Sum)
}

func TestOrderTotal(t *testing.T) {
	o := domain.Order{Items: []domain.OrderItem{
		{Amount: 10, Quantity: 2},
		{Amount: 5.5, Quantity: 1},
	}}
	assert.Equal(t, 25.5, o.Total())
}

func TestNewOrderID(t *testing.T) {
	seen := make(map[string]struct{})
	for range 100 {
		id, err := domain.NewOrderID()
		require.NoError(t, err)
		require.Len(t, id, 12)
		assert.NotEqual(t, byte('0'), id[0])
		for _, c := range id {
			assert.True(t, c >= '0' && c <= '9')
		}
		seen[id] = struct{}{}
	}
	assert.Greater(t, len(seen), 90)
}
