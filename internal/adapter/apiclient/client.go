// Package apiclient talks to the storefront API on behalf of the shopper
// client. It is the client side product query and identity provider.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/niksmo/storefront/internal/adapter/httphandler"
	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
	"github.com/niksmo/storefront/pkg/retry"
)

const (
	tokenKey    = "sessionToken"
	identityKey = "sessionIdentity"
)

var errRetryable = errors.New("retryable")

var (
	_ port.ProductQuery   = (*Client)(nil)
	_ port.IdentityStream = (*Client)(nil)
)

type Opt func(*opts) error

type opts struct {
	httpClient *http.Client
	retry      retry.RetryConfig
}

func HTTPClientOpt(hc *http.Client) Opt {
	return func(o *opts) error {
		if hc == nil {
			return errors.New("http client is nil")
		}
		o.httpClient = hc
		return nil
	}
}

// RetryOpt sets the policy for idempotent reads. Writes are sent once.
func RetryOpt(c retry.RetryConfig) Opt {
	return func(o *opts) error {
		o.retry = c
		return nil
	}
}

// Client is safe for concurrent use. Identity change events are delivered
// synchronously in the order the changes happen.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
	store      port.KVStore
	retry      retry.RetryConfig

	mu       sync.Mutex
	current  *rawIdentity
	restored bool
	subs     map[int]func(port.IdentityEvent)
	nextSub  int
	emitMu   sync.Mutex
}

func New(baseURL string, store port.KVStore, options ...Opt) (*Client, error) {
	const op = "apiclient.New"

	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("%s: unsupported scheme %q", op, u.Scheme)
	}
	if store == nil {
		return nil, fmt.Errorf("%s: store is nil", op)
	}

	o := opts{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retry: retry.RetryConfig{
			MaxAttempts: 3,
			Backoff:     retry.ExponentialBackoff(200 * time.Millisecond),
		},
	}
	for _, opt := range options {
		if err := opt(&o); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}
	o.retry.ShouldRetry = isRetryable

	return &Client{
		baseURL:    u,
		httpClient: o.httpClient,
		store:      store,
		retry:      o.retry,
		subs:       make(map[int]func(port.IdentityEvent)),
	}, nil
}

func isRetryable(err error) bool {
	return errors.Is(err, errRetryable)
}

func (c *Client) FetchActive(ctx context.Context, offset, limit int) ([]domain.Product, error) {
	const op = "Client.FetchActive"

	q := url.Values{}
	q.Set("offset", fmt.Sprint(offset))
	q.Set("limit", fmt.Sprint(limit))

	var ps []httphandler.Product
	if err := c.get(ctx, "/v1/products", q, "", &ps); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return toDomainProducts(ps), nil
}

func (c *Client) FetchByID(ctx context.Context, id string) (domain.Product, error) {
	const op = "Client.FetchByID"

	var p httphandler.Product
	if err := c.get(ctx, "/v1/products/"+url.PathEscape(id), nil, "", &p); err != nil {
		return domain.Product{}, fmt.Errorf("%s: %w", op, err)
	}
	return toDomainProduct(p), nil
}

func (c *Client) FetchFiltered(ctx context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	const op = "Client.FetchFiltered"

	q := url.Values{}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Brand != "" {
		q.Set("brand", f.Brand)
	}
	if f.Price != nil {
		q.Set("price", f.Price.String())
	}

	var ps []httphandler.Product
	if err := c.get(ctx, "/v1/products/filter", q, "", &ps); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return toDomainProducts(ps), nil
}

// Search sends the session token when there is one, so that the search
// is attributed to the signed in user.
func (c *Client) Search(ctx context.Context, text string) ([]domain.Product, error) {
	const op = "Client.Search"

	q := url.Values{}
	q.Set("q", text)

	var ps []httphandler.Product
	if err := c.get(ctx, "/v1/products/search", q, c.Token(), &ps); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return toDomainProducts(ps), nil
}

func (c *Client) Popularity(ctx context.Context, term string) (int64, error) {
	const op = "Client.Popularity"

	q := url.Values{}
	q.Set("term", term)

	var resp httphandler.PopularityResponse
	if err := c.get(ctx, "/v1/search/popular", q, "", &resp); err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return resp.Count, nil
}

// PlaceOrder checks out items as the signed in user.
func (c *Client) PlaceOrder(ctx context.Context, items []domain.OrderItem) (domain.Order, error) {
	const op = "Client.PlaceOrder"

	req := httphandler.OrderRequest{Items: make([]httphandler.OrderItem, len(items))}
	for i, it := range items {
		req.Items[i] = httphandler.OrderItem{
			ProductID: it.ProductID,
			Size:      it.Size,
			Quantity:  it.Quantity,
		}
	}

	var resp httphandler.OrderResponse
	err := c.send(ctx, http.MethodPost, "/v1/orders", c.Token(), req, &resp)
	if err != nil {
		return domain.Order{}, fmt.Errorf("%s: %w", op, err)
	}
	return toDomainOrder(resp), nil
}

func (c *Client) SaveProfile(ctx context.Context, p domain.Profile) error {
	const op = "Client.SaveProfile"

	req := httphandler.ProfileRequest{Name: p.Name, PhotoURL: p.PhotoURL, Phone: p.Phone}
	if err := c.send(ctx, http.MethodPut, "/v1/profile", c.Token(), req, nil); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, token string, out any) error {
	return retry.Do(ctx, c.retry, func() error {
		req, err := c.newRequest(ctx, http.MethodGet, path, q, token, nil)
		if err != nil {
			return err
		}
		return c.do(req, out)
	})
}

func (c *Client) send(ctx context.Context, method, path, token string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := c.newRequest(ctx, method, path, nil, token, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// newRequest joins path to the base URL. Path segments taken from user
// input must be escaped by the caller.
func (c *Client) newRequest(
	ctx context.Context, method, path string, q url.Values, token string, body io.Reader,
) (*http.Request, error) {
	u := c.baseURL.JoinPath(path)
	if q != nil {
		u.RawQuery = q.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if req.Context().Err() != nil {
			return err
		}
		return fmt.Errorf("%w: %w", errRetryable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return statusError(resp)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// statusError restores the domain sentinel the server answered with.
func statusError(resp *http.Response) error {
	var body httphandler.ErrorResponse
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body)

	for _, s := range []error{
		domain.ErrNotFound,
		domain.ErrAlreadyExists,
		domain.ErrInvalidCredentials,
		domain.ErrInvalidToken,
		domain.ErrUnverified,
		domain.ErrInvalidPriceRange,
		domain.ErrInvalidArgument,
	} {
		if body.Error == s.Error() {
			return s
		}
	}

	switch code := resp.StatusCode; {
	case code == http.StatusNotFound:
		return domain.ErrNotFound
	case code == http.StatusUnauthorized:
		return domain.ErrInvalidToken
	case code == http.StatusForbidden:
		return domain.ErrUnverified
	case code == http.StatusServiceUnavailable:
		return fmt.Errorf("%w: %w", errRetryable, domain.ErrUnavailable)
	case code == http.StatusTooManyRequests || code >= http.StatusInternalServerError:
		return fmt.Errorf("%w: unexpected status %d", errRetryable, code)
	case code == http.StatusBadRequest:
		return fmt.Errorf("%w: %s", domain.ErrInvalidArgument, body.Error)
	default:
		return fmt.Errorf("unexpected status %d", code)
	}
}
