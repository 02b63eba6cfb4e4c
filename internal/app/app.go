// Package app wires configuration, logging, credentials and providers into
// a ready bridge. The CLI and the shared library both start here.
package app

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"docbridge/internal/bridge"
	"docbridge/internal/config"
	"docbridge/internal/constants"
	"docbridge/internal/logging"
	"docbridge/internal/metrics"
	"docbridge/internal/registry"
	"docbridge/internal/secret"
)

// Options adjust startup. Zero values use the configuration as loaded.
type Options struct {
	ConfigPath  string
	Debug       bool
	MetricsAddr string
}

// App holds everything a running bridge owns.
type App struct {
	Config   *config.Config
	Registry *registry.Registry
	Bridge   *bridge.Bridge
	Boundary *bridge.Boundary

	metricsServer *http.Server
}

// Open loads the configuration, initializes logging and registers every
// configured provider. Providers that fail to start are logged and skipped.
func Open(ctx context.Context, opts Options) (*App, error) {
	var manager config.ManagerInterface = config.NewManager()
	if opts.ConfigPath != "" {
		manager = config.NewManagerWithPath(opts.ConfigPath)
	}
	cfg, err := manager.Load()
	if err != nil {
		return nil, err
	}
	if opts.Debug {
		cfg.Log.Level = "debug"
	}
	if opts.MetricsAddr != "" {
		cfg.Metrics.Addr = opts.MetricsAddr
	}
	if err := logging.Init(cfg.Log); err != nil {
		return nil, err
	}
	logging.Debug("configuration loaded", zap.String("path", manager.Path()))

	store, err := secret.Open(constants.KeyringServiceName)
	if err != nil {
		logging.Warn("keyring unavailable, credentials will not persist", zap.Error(err))
	}

	reg := registry.New(store)
	reg.Load(ctx, cfg.Providers)

	b := bridge.New(reg)
	a := &App{
		Config:   cfg,
		Registry: reg,
		Bridge:   b,
		Boundary: bridge.NewBoundary(b).WithContext(ctx),
	}
	if cfg.Metrics.Addr != "" {
		a.serveMetrics(cfg.Metrics.Addr)
	}
	return a, nil
}

func (a *App) serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	a.metricsServer = &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := a.metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.Warn("metrics server stopped", zap.String("addr", addr), zap.Error(err))
		}
	}()
	logging.Info("serving metrics", zap.String("addr", addr))
}

// Close releases providers, stops the metrics server and flushes logs.
func (a *App) Close() error {
	if a.metricsServer != nil {
		a.metricsServer.Close()
	}
	err := a.Registry.Close()
	logging.Sync()
	return err
}
