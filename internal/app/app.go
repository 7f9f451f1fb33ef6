// Package app wires config, transport, stores, chart surfaces and the sync
// session into one runnable unit.
package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"chartsync/internal/chart"
	cscfg "chartsync/internal/config"
	"chartsync/internal/gateway/binance"
	"chartsync/internal/logger"
	"chartsync/internal/series"
	"chartsync/internal/store/seriesdump"
	"chartsync/internal/store/synclog"
	synchttp "chartsync/internal/transport/http"
)

type App struct {
	cfg     *cscfg.Config
	source  *binance.Source
	hub     *chart.Broadcaster
	session *series.Session
	httpSrv *synchttp.Server

	syncLog *synclog.Store
	dump    *seriesdump.Store
}

// New builds the application object without starting anything.
func New(ctx context.Context, cfg *cscfg.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("nil config")
	}
	logger.SetLevel(cfg.App.LogLevel)

	source, err := binance.New(binance.Config{
		RESTBaseURL:  cfg.Market.RESTBaseURL,
		HTTPTimeout:  time.Duration(cfg.Market.HTTPTimeout) * time.Second,
		Transport:    binance.TransportMode(cfg.Market.Transport),
		Symbol:       cfg.Market.Symbol,
		ProxyEnabled: cfg.Market.ProxyEnabled,
		RESTProxyURL: cfg.Market.RESTProxyURL,
	})
	if err != nil {
		return nil, fmt.Errorf("building market source: %w", err)
	}

	symbol, err := source.CurrentSymbol(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving symbol: %w", err)
	}

	a := &App{cfg: cfg, source: source}

	if path := cfg.Store.SyncLogPath; path != "" {
		a.syncLog, err = synclog.New(path)
		if err != nil {
			return nil, fmt.Errorf("opening sync log: %w", err)
		}
	}
	if path := cfg.Store.SnapshotPath; path != "" {
		a.dump, err = seriesdump.New(path)
		if err != nil {
			return nil, fmt.Errorf("opening series dump: %w", err)
		}
	}

	a.hub = chart.NewBroadcaster()

	initial, ok := series.ParseGranularity(cfg.Sync.DefaultGranularity)
	if !ok {
		return nil, fmt.Errorf("unknown default granularity %q", cfg.Sync.DefaultGranularity)
	}
	var sink series.EventSink
	if a.syncLog != nil {
		sink = a.syncLog
	}
	a.session = series.NewSession(series.SessionOptions{
		Symbol:        symbol,
		Initial:       initial,
		Surface:       a.hub,
		Source:        source,
		Events:        sink,
		DebounceQuiet: time.Duration(cfg.Sync.DebounceMs) * time.Millisecond,
		ResizeWindow:  time.Duration(cfg.Sync.ResizeWindowMs) * time.Millisecond,
	})

	if cfg.HTTP.Enabled {
		a.httpSrv, err = synchttp.NewServer(synchttp.ServerConfig{
			Addr:    cfg.HTTP.Addr,
			Session: a.session,
			Hub:     a.hub,
			SyncLog: a.syncLog,
		})
		if err != nil {
			return nil, fmt.Errorf("building http server: %w", err)
		}
	}

	logger.Infof("✓ chartsync ready symbol=%s granularity=%s http=%v", symbol, initial, cfg.HTTP.Enabled)
	return a, nil
}

// Session exposes the sync session (for tests and replay harnesses).
func (a *App) Session() *series.Session { return a.session }

// Run starts the session and the HTTP server, blocking until ctx cancels.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.session == nil {
		return fmt.Errorf("app not initialized")
	}
	group, ctx := errgroup.WithContext(ctx)

	if a.httpSrv != nil {
		group.Go(func() error {
			if err := a.httpSrv.Start(ctx); err != nil {
				return fmt.Errorf("http server error: %w", err)
			}
			return nil
		})
	}
	group.Go(func() error {
		err := a.session.Run(ctx)
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	})

	err := group.Wait()
	a.shutdown()
	return err
}

func (a *App) shutdown() {
	if a.dump != nil && a.session != nil {
		dctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if derr := a.dump.Dump(dctx, a.session.Symbol(), string(a.session.Active()), a.session.Snapshot()); derr != nil {
			logger.Warnf("[app] series dump failed: %v", derr)
		}
		cancel()
		_ = a.dump.Close()
	}
	if a.syncLog != nil {
		_ = a.syncLog.Close()
	}
	if a.hub != nil {
		a.hub.Close()
	}
	if a.source != nil {
		_ = a.source.Close()
	}
}
