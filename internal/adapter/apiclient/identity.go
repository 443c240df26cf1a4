package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/niksmo/storefront/internal/adapter/httphandler"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

var _ port.RawIdentity = (*rawIdentity)(nil)

// rawIdentity is the session principal as last seen by the client. Its
// verification flag is whatever the server said at sign in or last reload.
type rawIdentity struct {
	c     *Client
	token string

	mu sync.Mutex
	id domain.Identity
}

func (r *rawIdentity) Identity() domain.Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id
}

func (r *rawIdentity) EmailVerified() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.id.EmailVerified
}

// Reload fetches the current identity from the server and caches it.
func (r *rawIdentity) Reload(ctx context.Context) error {
	const op = "rawIdentity.Reload"

	var resp httphandler.Identity
	if err := r.c.get(ctx, "/v1/auth/me", nil, r.token, &resp); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	id := toDomainIdentity(resp)
	r.mu.Lock()
	r.id = id
	r.mu.Unlock()

	if err := r.c.persistIdentity(ctx, id); err != nil {
		slog.Warn("failed to cache identity", "op", op, "err", err)
	}
	return nil
}

func (r *rawIdentity) SignOut(ctx context.Context) error {
	return r.c.signOut(ctx, r)
}

// Subscribe registers fn for identity changes. After Restore, fn is called
// with the current identity before Subscribe returns. fn must not call back
// into the client synchronously.
func (c *Client) Subscribe(fn func(port.IdentityEvent)) (func(), error) {
	const op = "Client.Subscribe"

	if fn == nil {
		return nil, fmt.Errorf("%s: callback is nil", op)
	}

	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	id := c.nextSub
	c.nextSub++
	c.subs[id] = fn
	restored, current := c.restored, c.current
	c.mu.Unlock()

	if restored {
		fn(makeEvent(current, port.OriginRestore))
	}

	return func() {
		c.mu.Lock()
		delete(c.subs, id)
		c.mu.Unlock()
	}, nil
}

// Restore loads the persisted session and announces it. A missing session
// is announced as nobody signed in.
func (c *Client) Restore(ctx context.Context) error {
	const op = "Client.Restore"

	token, err := c.store.Get(ctx, tokenKey)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		c.setCurrent(nil, true)
		c.emit(nil, port.OriginRestore)
		return nil
	case err != nil:
		return fmt.Errorf("%s: %w", op, err)
	}

	r := &rawIdentity{c: c, token: token}
	if s, err := c.store.Get(ctx, identityKey); err == nil {
		var cached httphandler.Identity
		if json.Unmarshal([]byte(s), &cached) == nil {
			r.id = toDomainIdentity(cached)
		}
	}

	c.setCurrent(r, true)
	c.emit(r, port.OriginRestore)
	return nil
}

// SignUp registers a new user. The user stays signed out until the email
// is verified and they sign in.
func (c *Client) SignUp(ctx context.Context, email, password, name string) (domain.Identity, error) {
	const op = "Client.SignUp"

	req := httphandler.SignUpRequest{Email: email, Password: password, Name: name}
	var resp httphandler.Identity
	if err := c.send(ctx, http.MethodPost, "/v1/auth/signup", "", req, &resp); err != nil {
		return domain.Identity{}, fmt.Errorf("%s: %w", op, err)
	}
	return toDomainIdentity(resp), nil
}

func (c *Client) SignIn(ctx context.Context, email, password string) (domain.Identity, error) {
	const op = "Client.SignIn"

	req := httphandler.SignInRequest{Email: email, Password: password}
	var resp httphandler.SignInResponse
	if err := c.send(ctx, http.MethodPost, "/v1/auth/signin", "", req, &resp); err != nil {
		return domain.Identity{}, fmt.Errorf("%s: %w", op, err)
	}

	id := toDomainIdentity(resp.Identity)
	r := &rawIdentity{c: c, token: resp.Token, id: id}

	if err := c.store.Set(ctx, tokenKey, resp.Token); err != nil {
		return domain.Identity{}, fmt.Errorf("%s: %w", op, err)
	}
	if err := c.persistIdentity(ctx, id); err != nil {
		slog.Warn("failed to cache identity", "op", op, "err", err)
	}

	c.setCurrent(r, true)
	c.emit(r, port.OriginSignIn)
	return id, nil
}

// SignOut ends the current session. Signing out while nobody is signed in
// is a no-op.
func (c *Client) SignOut(ctx context.Context) error {
	c.mu.Lock()
	r := c.current
	c.mu.Unlock()

	if r == nil {
		return nil
	}
	return c.signOut(ctx, r)
}

func (c *Client) signOut(ctx context.Context, r *rawIdentity) error {
	const op = "Client.signOut"

	c.mu.Lock()
	if c.current != r {
		c.mu.Unlock()
		return nil
	}
	c.current = nil
	c.mu.Unlock()

	if err := c.send(ctx, http.MethodPost, "/v1/auth/signout", r.token, struct{}{}, nil); err != nil {
		slog.Debug("server sign out failed", "op", op, "err", err)
	}

	var errs []error
	for _, key := range []string{tokenKey, identityKey} {
		if err := c.store.Remove(ctx, key); err != nil {
			errs = append(errs, err)
		}
	}

	c.emit(nil, port.OriginSignOut)

	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// Token returns the current session token or an empty string.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current == nil {
		return ""
	}
	return c.current.token
}

func (c *Client) setCurrent(r *rawIdentity, restored bool) {
	c.mu.Lock()
	c.current = r
	c.restored = c.restored || restored
	c.mu.Unlock()
}

func (c *Client) emit(r *rawIdentity, origin port.Origin) {
	c.emitMu.Lock()
	defer c.emitMu.Unlock()

	c.mu.Lock()
	subs := make([]func(port.IdentityEvent), 0, len(c.subs))
	for _, fn := range c.subs {
		subs = append(subs, fn)
	}
	c.mu.Unlock()

	ev := makeEvent(r, origin)
	for _, fn := range subs {
		fn(ev)
	}
}

func (c *Client) persistIdentity(ctx context.Context, id domain.Identity) error {
	b, err := json.Marshal(fromDomainIdentity(id))
	if err != nil {
		return err
	}
	return c.store.Set(ctx, identityKey, string(b))
}

func makeEvent(r *rawIdentity, origin port.Origin) port.IdentityEvent {
	if r == nil {
		return port.IdentityEvent{Origin: origin}
	}
	return port.IdentityEvent{Identity: r, Origin: origin}
}
