// Package session decides whether the client runs in the public or the
// private area from the identity provider's change events.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

const defaultRefreshTimeout = 10 * time.Second

type Mode int32

const (
	ModeLoading Mode = iota
	ModePublic
	ModePrivate
)

func (m Mode) String() string {
	switch m {
	case ModePublic:
		return "public"
	case ModePrivate:
		return "private"
	default:
		return "loading"
	}
}

type State struct {
	Mode     Mode
	Identity *domain.Identity
}

type Opt func(*options) error

type options struct {
	refreshTimeout time.Duration
	onChange       func(State)
}

func RefreshTimeoutOpt(d time.Duration) Opt {
	return func(o *options) error {
		if d <= 0 {
			return errors.New("refresh timeout must be positive")
		}
		o.refreshTimeout = d
		return nil
	}
}

// OnChangeOpt registers fn to observe every published state. Calls are
// serialized in publication order.
func OnChangeOpt(fn func(State)) Opt {
	return func(o *options) error {
		if fn == nil {
			return errors.New("change observer is nil")
		}
		o.onChange = fn
		return nil
	}
}

// Gate holds the current signed in identity. The identity lives in a single
// atomic slot with one writer, the resolution of the latest event.
type Gate struct {
	stream         port.IdentityStream
	refreshTimeout time.Duration
	onChange       func(State)

	identity atomic.Pointer[domain.Identity]
	mode     atomic.Int32
	ticket   atomic.Uint64

	publishMu sync.Mutex

	lifeMu      sync.Mutex
	running     bool
	ctx         context.Context
	cancel      context.CancelFunc
	unsubscribe func()
	wg          sync.WaitGroup
}

func NewGate(stream port.IdentityStream, opts ...Opt) (*Gate, error) {
	const op = "NewGate"

	if stream == nil {
		return nil, fmt.Errorf("%s: identity stream is nil", op)
	}

	o := options{refreshTimeout: defaultRefreshTimeout}
	for _, opt := range opts {
		if err := opt(&o); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	g := &Gate{
		stream:         stream,
		refreshTimeout: o.refreshTimeout,
		onChange:       o.onChange,
	}
	g.mode.Store(int32(ModeLoading))
	return g, nil
}

// Start subscribes to the identity stream. Events are resolved in their own
// goroutines until Stop is called or ctx is done.
func (g *Gate) Start(ctx context.Context) error {
	const op = "Gate.Start"

	g.lifeMu.Lock()
	if g.running {
		g.lifeMu.Unlock()
		return fmt.Errorf("%s: already started", op)
	}
	g.ctx, g.cancel = context.WithCancel(ctx)
	g.running = true
	g.lifeMu.Unlock()

	// the stream may deliver the current identity from inside Subscribe
	unsubscribe, err := g.stream.Subscribe(g.dispatch)

	g.lifeMu.Lock()
	defer g.lifeMu.Unlock()

	if err != nil {
		g.running = false
		g.cancel()
		return fmt.Errorf("%s: %w", op, err)
	}
	g.unsubscribe = unsubscribe

	slog.Debug("session gate started", "op", op)
	return nil
}

// Stop unsubscribes and waits for in-flight resolutions to return.
func (g *Gate) Stop() {
	const op = "Gate.Stop"

	g.lifeMu.Lock()
	if !g.running {
		g.lifeMu.Unlock()
		return
	}
	g.running = false
	unsubscribe, cancel := g.unsubscribe, g.cancel
	g.unsubscribe = nil
	g.lifeMu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	cancel()
	g.wg.Wait()

	slog.Debug("session gate stopped", "op", op)
}

// dispatch takes a ticket in arrival order and resolves the event
// asynchronously so that a newer event can supersede a slow refresh.
func (g *Gate) dispatch(ev port.IdentityEvent) {
	g.lifeMu.Lock()
	ctx := g.ctx
	running := g.running
	if running {
		g.wg.Add(1)
	}
	g.lifeMu.Unlock()

	if !running {
		return
	}

	ticket := g.ticket.Add(1)
	go func() {
		defer g.wg.Done()
		g.resolve(ctx, ticket, ev)
	}()
}

// OnIdentityChanged resolves ev synchronously. It is what the subscription
// runs for every event.
func (g *Gate) OnIdentityChanged(ctx context.Context, ev port.IdentityEvent) {
	g.resolve(ctx, g.ticket.Add(1), ev)
}

func (g *Gate) resolve(ctx context.Context, ticket uint64, ev port.IdentityEvent) {
	const op = "Gate.resolve"
	log := slog.With("op", op, "ticket", ticket)

	raw := ev.Identity
	if raw == nil {
		g.publish(ticket, nil)
		return
	}

	refreshCtx, cancel := context.WithTimeout(ctx, g.refreshTimeout)
	err := raw.Reload(refreshCtx)
	cancel()

	if g.ticket.Load() != ticket {
		log.Debug("superseded")
		return
	}

	if err != nil {
		log.Warn("identity refresh failed, treating as signed out", "err", err)
		g.publish(ticket, nil)
		return
	}

	if !raw.EmailVerified() {
		if ev.Origin == port.OriginSignIn {
			if err := raw.SignOut(ctx); err != nil {
				log.Warn("failed to sign out unverified identity", "err", err)
			}
		}
		log.Info("identity is not verified")
		g.publish(ticket, nil)
		return
	}

	id := raw.Identity()
	id.EmailVerified = true
	g.publish(ticket, &id)
}

func (g *Gate) publish(ticket uint64, id *domain.Identity) {
	g.publishMu.Lock()
	defer g.publishMu.Unlock()

	if g.ticket.Load() != ticket {
		return
	}

	mode := ModePublic
	if id != nil {
		mode = ModePrivate
	}

	g.identity.Store(id)
	g.mode.Store(int32(mode))

	if g.onChange != nil {
		g.onChange(State{Mode: mode, Identity: id})
	}
}

// Identity returns the signed in identity or nil.
func (g *Gate) Identity() *domain.Identity {
	return g.identity.Load()
}

func (g *Gate) Mode() Mode {
	return Mode(g.mode.Load())
}

func (g *Gate) State() State {
	g.publishMu.Lock()
	defer g.publishMu.Unlock()
	return State{Mode: g.Mode(), Identity: g.Identity()}
}
