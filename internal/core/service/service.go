// Package service implements the storefront API use cases over the
// outbound ports.
package service

import (
	"context"
	"sync"

	"github.com/niksmo/storefront/internal/core/port"
)

type runnerCloser interface {
	Run(context.Context, context.CancelFunc, *sync.WaitGroup)
	Close()
}

var (
	_ runnerCloser = (port.SearchPopularityProcessor)(nil)
	_ runnerCloser = (port.SearchPopularityView)(nil)
	_ runnerCloser = (port.OrderMailerConsumer)(nil)
)

// Background runs the event driven components next to the API. Nil
// components are skipped, so a deployment without a broker runs nothing.
type Background struct {
	components []runnerCloser
}

func NewBackground(
	popularityProc port.SearchPopularityProcessor,
	popularityView port.SearchPopularityView,
	orderMailer port.OrderMailerConsumer,
) Background {
	var b Background
	if popularityProc != nil {
		b.components = append(b.components, popularityProc)
	}
	if popularityView != nil {
		b.components = append(b.components, popularityView)
	}
	if orderMailer != nil {
		b.components = append(b.components, orderMailer)
	}
	return b
}

// Run runs the components in separate goroutines.
//
// Blocks current goroutine while components is preparing to ready state.
func (b Background) Run(ctx context.Context, stopFn context.CancelFunc) {
	var wg sync.WaitGroup
	wg.Add(len(b.components))
	for _, c := range b.components {
		go c.Run(ctx, stopFn, &wg)
	}
	wg.Wait()
}

func (b Background) Close() {
	for _, c := range b.components {
		c.Close()
	}
}
