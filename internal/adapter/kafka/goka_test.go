package kafka

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/lovoo/goka"
	"github.com/lovoo/goka/tester"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/pkg/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testSearchStream = "search-events"
	testGroup        = "search-popularity"
)

func TestSearchPopularityProcessor(t *testing.T) {
	gkt := tester.New(t)

	p, err := NewSearchPopularityProc(
		[]string{}, testSearchStream, testGroup, jsonSerde{},
		goka.WithTester(gkt),
	)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go p.Run(ctx, cancel, &wg)
	wg.Wait()

	for _, term := range []string{"galaxy", "galaxy", "pixel"} {
		gkt.Consume(testSearchStream, term, schema.SearchEventV1{
			Term: term, UID: "u1", OccurredAt: time.Now().UTC(),
		})
	}

	table := goka.GroupTable(goka.Group(testGroup))
	assert.Equal(t, int64(2), gkt.TableValue(table, "galaxy"))
	assert.Equal(t, int64(1), gkt.TableValue(table, "pixel"))
	assert.Nil(t, gkt.TableValue(table, "watch"))

	cancel()
	p.Close()
}

func TestSearchEventsEmitter(t *testing.T) {
	gkt := tester.New(t)
	tracker := gkt.NewQueueTracker(testSearchStream)

	e, err := NewSearchEventsEmitter(
		[]string{}, testSearchStream, jsonSerde{},
		goka.WithEmitterTester(gkt),
	)
	require.NoError(t, err)
	defer e.Close()

	now := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

	err = e.ProduceSearch(t.Context(), domain.SearchEvent{Term: "  Galaxy S24 ", UID: "u1", OccurredAt: now})
	require.NoError(t, err)

	key, value, ok := tracker.Next()
	require.True(t, ok)
	assert.Equal(t, "galaxy s24", key)
	assert.Equal(t, schema.SearchEventV1{Term: "galaxy s24", UID: "u1", OccurredAt: now}, value)

	err = e.ProduceSearch(t.Context(), domain.SearchEvent{Term: "   ", UID: "u1", OccurredAt: now})
	require.NoError(t, err)

	_, _, ok = tracker.Next()
	assert.False(t, ok)
}

func TestSearchPopularityView(t *testing.T) {
	gkt := tester.New(t)

	v, err := NewSearchPopularityView([]string{}, testGroup, goka.WithViewTester(gkt))
	require.NoError(t, err)

	_, err = v.Popularity(t.Context(), "galaxy")
	require.ErrorIs(t, err, domain.ErrUnavailable)

	gkt.SetTableValue(goka.GroupTable(goka.Group(testGroup)), "galaxy", int64(3))

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	v.Run(ctx, cancel, &wg)
	wg.Wait()

	require.Eventually(t, func() bool {
		_, err := v.Popularity(t.Context(), "galaxy")
		return err == nil
	}, time.Second, 10*time.Millisecond)

	n, err := v.Popularity(t.Context(), "  GALAXY ")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = v.Popularity(t.Context(), "unknown")
	require.NoError(t, err)
	assert.Zero(t, n)

	v.Close()
}
