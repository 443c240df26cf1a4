package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/niksmo/storefront/config"
	"github.com/niksmo/storefront/internal/adapter/apiclient"
	"github.com/niksmo/storefront/internal/adapter/localstore"
	"github.com/niksmo/storefront/internal/core/catalog"
	"github.com/niksmo/storefront/internal/core/history"
	"github.com/niksmo/storefront/internal/core/session"
	"github.com/niksmo/storefront/internal/shopper"
	"github.com/niksmo/storefront/pkg/retry"
	"github.com/niksmo/storefront/pkg/sigctx"
)

func main() {
	sigCtx, stop := sigctx.NotifyContext(context.Background())
	defer stop()

	cfg := config.Load()
	initLogger(cfg.LogLevel)

	store := openStore(cfg.Shopper.HistoryPath)
	defer store.Close()

	client, err := apiclient.New(cfg.Shopper.APIURL, store,
		apiclient.RetryOpt(retry.RetryConfig{
			MaxAttempts: 3,
			Backoff:     retry.ExponentialBackoff(cfg.Shopper.RequestTimeout / 20),
		}),
	)
	if err != nil {
		fallDown(err)
	}

	vm, err := catalog.NewViewModel(client, catalog.RequestTimeoutOpt(cfg.Shopper.RequestTimeout))
	if err != nil {
		fallDown(err)
	}

	var sh *shopper.Shell
	gate, err := session.NewGate(client,
		session.RefreshTimeoutOpt(cfg.Shopper.RefreshTimeout),
		session.OnChangeOpt(func(s session.State) { sh.OnState(s) }),
	)
	if err != nil {
		fallDown(err)
	}

	sh = shopper.NewShell(client, gate, vm, history.New(store), os.Stdout, cfg.Shopper.RequestTimeout)

	if err := gate.Start(sigCtx); err != nil {
		fallDown(err)
	}
	defer gate.Stop()

	if err := client.Restore(sigCtx); err != nil {
		fallDown(err)
	}

	fmt.Println("storefront shopper, type help for commands")
	if err := sh.Run(sigCtx, os.Stdin); err != nil {
		slog.Error("input failed", "err", err)
	}
}

func initLogger(level slog.Level) {
	opts := &slog.HandlerOptions{Level: level}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, opts)))
}

// openStore falls back to the user config dir, then to memory.
func openStore(dir string) *localstore.Store {
	if dir == "" {
		if base, err := os.UserConfigDir(); err == nil {
			dir = filepath.Join(base, "storefront-shopper")
		}
	}

	if dir != "" {
		s, err := localstore.Open(dir)
		if err == nil {
			return s
		}
		slog.Warn("local store is unavailable, nothing will be kept", "dir", dir, "err", err)
	}

	s, err := localstore.OpenMemory()
	if err != nil {
		fallDown(err)
	}
	return s
}

func fallDown(err error) {
	panic(err)
}
