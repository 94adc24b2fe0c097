package main

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"ai-textassist-be/internal/client/api"
	"ai-textassist-be/internal/client/entitlement"
	"ai-textassist-be/internal/client/kvstore"
	"ai-textassist-be/internal/client/ledger"
	"ai-textassist-be/internal/client/session"
	"ai-textassist-be/internal/client/storebridge"
	"ai-textassist-be/internal/pkg/logger"
)

type options struct {
	home    string
	baseURL string
}

// app is the client wiring for one command invocation.
type app struct {
	log     *logger.ZapLogger
	cache   *entitlement.Cache
	client  *api.Client
	ledger  *ledger.Ledger
	sandbox *storebridge.SandboxStore
	bridge  *storebridge.Bridge
	runner  *session.Runner

	stopListener context.CancelFunc
}

func defaultHome() string {
	if dir := os.Getenv("TEXTASSIST_HOME"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".textassist"
	}
	return filepath.Join(home, ".textassist")
}

func defaultBaseURL() string {
	if u := os.Getenv("TEXTASSIST_API_URL"); u != "" {
		return u
	}
	return "http://localhost:3000"
}

func newApp(opts options) (*app, error) {
	store, err := kvstore.NewFileStore(opts.home)
	if err != nil {
		return nil, err
	}
	log := logger.NewIsolatedLogger(filepath.Join(opts.home, "textassist.log"))

	cache := entitlement.NewCache(store, logger.NewWatermillAdapter(log, "ENTITLEMENT_CACHE"))
	if err := cache.Restore(); err != nil {
		log.Warn("CLI", "Discarding unreadable entitlement snapshot", map[string]interface{}{"error": err.Error()})
		_ = cache.Clear()
	}

	client := api.NewClient(opts.baseURL, store, cache)
	l := ledger.New(store)
	sandbox := storebridge.NewSandboxStore(store)

	return &app{
		log:     log,
		cache:   cache,
		client:  client,
		ledger:  l,
		sandbox: sandbox,
		bridge:  storebridge.NewBridge(sandbox, client, l, cache, log, storebridge.DefaultRetryConfig()),
		runner:  session.NewRunner(),
	}, nil
}

// start launches the purchase-update listener for the lifetime of the command.
func (a *app) start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	a.stopListener = cancel
	go a.bridge.Run(ctx)
}

// stop ends the listener and waits for the syncs it started.
func (a *app) stop() {
	if a.stopListener == nil {
		return
	}
	a.stopListener()
	a.stopListener = nil
	a.bridge.Wait()
}

// replayOnStart retries purchases queued by an earlier run. Failures stay queued.
func (a *app) replayOnStart(ctx context.Context, w io.Writer) {
	if !a.client.HasToken() {
		return
	}
	n, err := a.bridge.ReplayUnsynced(ctx)
	if err != nil {
		a.log.Warn("CLI", "Startup replay failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if n > 0 {
		info.Fprintf(w, "Synced %d pending purchase(s)\n", n)
	}
}

func (a *app) Close() {
	a.stop()
	a.sandbox.Close()
	_ = a.cache.Close()
	_ = a.log.Sync()
}
