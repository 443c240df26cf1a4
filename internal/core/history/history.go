// Package history keeps the most recent search terms in a local key-value store.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/niksmo/storefront/internal/core/domain"
	"github.com/niksmo/storefront/internal/core/port"
)

const (
	Key        = "searchHistory"
	MaxEntries = 5
)

type History struct {
	store port.KVStore
	mu    sync.Mutex
}

func New(store port.KVStore) *History {
	return &History{store: store}
}

// Load returns the stored terms, most recent first.
func (h *History) Load(ctx context.Context) ([]string, error) {
	const op = "History.Load"

	h.mu.Lock()
	defer h.mu.Unlock()

	terms, err := h.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return terms, nil
}

// Save puts term in front of the history. Terms already present are kept
// where they are and the history is capped at [MaxEntries].
func (h *History) Save(ctx context.Context, term string) ([]string, error) {
	const op = "History.Save"

	term = strings.TrimSpace(term)

	h.mu.Lock()
	defer h.mu.Unlock()

	terms, err := h.read(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if term == "" || slices.Contains(terms, term) {
		return terms, nil
	}

	terms = slices.Insert(terms, 0, term)
	if len(terms) > MaxEntries {
		terms = terms[:MaxEntries]
	}

	b, err := json.Marshal(terms)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := h.store.Set(ctx, Key, string(b)); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return terms, nil
}

func (h *History) Clear(ctx context.Context) error {
	const op = "History.Clear"

	h.mu.Lock()
	defer h.mu.Unlock()

	if err := h.store.Remove(ctx, Key); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (h *History) read(ctx context.Context) ([]string, error) {
	raw, err := h.store.Get(ctx, Key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return []string{}, nil
		}
		return nil, err
	}

	var terms []string
	if err := json.Unmarshal([]byte(raw), &terms); err != nil {
		return nil, err
	}
	if terms == nil {
		terms = []string{}
	}
	return terms, nil
}
