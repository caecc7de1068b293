// Package app composes the engine with fx: every component is provided
// once and started in dependency order through the lifecycle hooks.
package app

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/ignaciov/matechat/internal/bus"
	"github.com/ignaciov/matechat/internal/config"
	"github.com/ignaciov/matechat/internal/conn"
	"github.com/ignaciov/matechat/internal/label"
	"github.com/ignaciov/matechat/internal/lock"
	"github.com/ignaciov/matechat/internal/logging"
	"github.com/ignaciov/matechat/internal/outbox"
	"github.com/ignaciov/matechat/internal/roster"
	"github.com/ignaciov/matechat/internal/session"
	"github.com/ignaciov/matechat/internal/store"
	intsync "github.com/ignaciov/matechat/internal/sync"
	"github.com/ignaciov/matechat/internal/transport"
	"github.com/ignaciov/matechat/internal/tui"
	"github.com/ignaciov/matechat/internal/window"
)

// Params holds the resolved session configuration passed to the fx module.
type Params struct {
	SessionName string
	Token       session.Token
	Config      *config.Config
}

// Module returns the fx module composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("matechat",
		fx.Supply(p),
		fx.Provide(
			provideLogger,
			provideBus,
			provideMachine,
			provideLock,
			provideStore,
			provideTransport,
			provideManager,
			provideRegistry,
			provideFetcher,
			provideWindow,
			provideLabelChannel,
			provideSyncEngine,
			provideSender,
			provideTUI,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLogger(p Params) (*zap.Logger, error) {
	return logging.New(session.LogPath(p.SessionName), p.SessionName)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideMachine(b *bus.Bus) *conn.Machine {
	return conn.NewMachine(b)
}

func provideLock(p Params, logger *zap.Logger) (*lock.Lock, error) {
	if err := session.EnsureDir(p.SessionName); err != nil {
		return nil, err
	}
	logger.Info("acquiring session lock", zap.String("session", p.SessionName))
	l, err := lock.Acquire(session.Dir(p.SessionName))
	if err != nil {
		return nil, err
	}
	logger.Info("session lock acquired")
	return l, nil
}

func provideStore(p Params, logger *zap.Logger) (*store.DB, error) {
	dbPath := session.CacheDBPath(p.SessionName)
	db, err := store.Open(dbPath)
	if err != nil {
		return nil, err
	}
	result, err := db.Migrate()
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	if result.Changed {
		logger.Info("migrations applied", zap.Uint("version", result.Version))
	} else {
		logger.Info("migrations up to date", zap.Uint("version", result.Version))
	}
	logger.Info("cache initialized", zap.String("path", dbPath))
	return db, nil
}

func provideTransport(p Params, b *bus.Bus, logger *zap.Logger) *transport.Client {
	return transport.New(p.Config.GatewayURL, p.Token, p.Config.ReconnectAttempts, b, logger)
}

func provideManager(t *transport.Client, m *conn.Machine, b *bus.Bus, logger *zap.Logger) *conn.Manager {
	return conn.NewManager(t, m, b, logger)
}

func provideRegistry(b *bus.Bus, logger *zap.Logger) *roster.Registry {
	return roster.New(b, logger)
}

func provideFetcher(t *transport.Client) *window.GatewayFetcher {
	return window.NewGatewayFetcher(t)
}

func provideWindow(p Params, f *window.GatewayFetcher, b *bus.Bus, logger *zap.Logger) *window.Window {
	return window.New(f, window.Options{
		InitialPageSize: p.Config.InitialPageSize,
		OlderPageSize:   p.Config.OlderPageSize,
		FetchTimeout:    p.Config.FetchTimeout(),
	}, b, logger)
}

func provideLabelChannel(t *transport.Client, logger *zap.Logger) *label.Channel {
	return label.NewChannel(t, logger)
}

func provideSyncEngine(db *store.DB, b *bus.Bus, logger *zap.Logger) *intsync.Engine {
	return intsync.NewEngine(db, b, logger)
}

func provideSender(db *store.DB, t *transport.Client, m *conn.Machine, b *bus.Bus, logger *zap.Logger) *outbox.Sender {
	return outbox.NewSender(db, t, m, b, logger)
}

func provideTUI(p Params, b *bus.Bus, mgr *conn.Manager, r *roster.Registry, w *window.Window, lc *label.Channel, db *store.DB) *tui.App {
	return tui.NewApp(tui.Deps{
		SessionName:     p.SessionName,
		BottomThreshold: p.Config.BottomThreshold,
		Bus:             b,
		Manager:         mgr,
		Registry:        r,
		Window:          w,
		Labels:          lc,
		DB:              db,
	})
}

func registerLifecycle(lc fx.Lifecycle, lk *lock.Lock, mgr *conn.Manager, reg *roster.Registry, w *window.Window, engine *intsync.Engine, sender *outbox.Sender, logger *zap.Logger) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			// Consumers first so no push outruns its subscriber.
			engine.Start(context.Background())
			reg.Start(context.Background())
			w.Start(context.Background())
			sender.Start(context.Background())
			mgr.Start(context.Background())
			return nil
		},
		OnStop: func(_ context.Context) error {
			mgr.Stop()
			sender.Stop()
			w.Stop()
			reg.Stop()
			engine.Stop()
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("client stopped")
			return nil
		},
	})
}
