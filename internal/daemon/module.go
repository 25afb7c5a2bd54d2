package daemon

import (
	"context"

	"github.com/matheus3301/chatline/internal/api"
	"github.com/matheus3301/chatline/internal/bus"
	"github.com/matheus3301/chatline/internal/cipher"
	"github.com/matheus3301/chatline/internal/config"
	"github.com/matheus3301/chatline/internal/events"
	"github.com/matheus3301/chatline/internal/ingest"
	"github.com/matheus3301/chatline/internal/lock"
	"github.com/matheus3301/chatline/internal/logging"
	"github.com/matheus3301/chatline/internal/paths"
	"github.com/matheus3301/chatline/internal/population"
	"github.com/matheus3301/chatline/internal/status"
	"github.com/matheus3301/chatline/internal/store"
	"github.com/matheus3301/chatline/internal/transport"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Params holds the resolved daemon configuration passed to the fx module.
type Params struct {
	Root       string         // data directory; empty = paths.DefaultRoot()
	SocketPath string         // optional override for testing; empty = use default
	Config     *config.Config // optional; nil = load from Root/config.toml and the environment
}

// Module returns the fx module for the daemon, composing all providers and lifecycle hooks.
func Module(p Params) fx.Option {
	return fx.Module("daemon",
		fx.Supply(p),
		fx.Provide(
			provideLayout,
			provideConfig,
			provideLogger,
			provideBus,
			provideStateMachine,
			provideLock,
			provideStore,
			provideCodec,
			provideEventServer,
			provideRefresher,
			provideIngest,
			provideTransport,
			provideChatService,
			provideMessageService,
			provideConnectionService,
			NewServer,
		),
		fx.Invoke(registerLifecycle),
	)
}

func provideLayout(p Params) (paths.Layout, error) {
	root := p.Root
	if root == "" {
		root = paths.DefaultRoot()
	}
	l := paths.New(root)
	if err := l.EnsureDirs(); err != nil {
		return paths.Layout{}, err
	}
	return l, nil
}

func provideConfig(p Params, l paths.Layout) (*config.Config, error) {
	if p.Config != nil {
		return p.Config, nil
	}
	cfg, err := config.Load(l.ConfigPath())
	if err != nil {
		return nil, err
	}
	if err := config.ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func provideLogger(l paths.Layout, cfg *config.Config) (*zap.Logger, error) {
	return logging.New(l.LogPath(), cfg.Log.Level)
}

func provideBus() *bus.Bus {
	return bus.New()
}

func provideStateMachine(b *bus.Bus) *status.Machine {
	return status.NewMachine(b)
}

func provideLock(l paths.Layout, logger *zap.Logger) (*lock.Lock, error) {
	logger.Info("acquiring daemon lock", zap.String("path", l.LockPath()))
	lk, err := lock.Acquire(l.LockPath())
	if err != nil {
		return nil, err
	}
	logger.Info("daemon lock acquired")
	return lk, nil
}

// provideStore depends on the lock so the database is never opened by two daemons.
func provideStore(l paths.Layout, _ *lock.Lock, logger *zap.Logger) (*store.DB, error) {
	dbPath := l.DBPath()
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
	logger.Info("store initialized", zap.String("path", dbPath))
	return db, nil
}

func provideCodec() cipher.Codec {
	return cipher.Prefix{}
}

func provideEventServer(cfg *config.Config, logger *zap.Logger) *events.Server {
	return events.New(events.Config{
		Addr:              cfg.Events.Addr,
		FirstMessageDelay: cfg.Events.FirstMessageDelay.Duration,
		MinMessageDelay:   cfg.Events.MinMessageDelay.Duration,
		MaxMessageDelay:   cfg.Events.MaxMessageDelay.Duration,
		HeartbeatInterval: cfg.Events.HeartbeatInterval.Duration,
	}, logger)
}

func provideRefresher(db *store.DB, srv *events.Server, cfg *config.Config, logger *zap.Logger) *population.Refresher {
	return population.NewRefresher(db, srv, cfg.Events.RefreshInterval.Duration, logger)
}

func provideIngest(db *store.DB, b *bus.Bus, codec cipher.Codec, logger *zap.Logger) *ingest.Engine {
	return ingest.NewEngine(db, b, codec, logger)
}

func provideTransport(cfg *config.Config, engine *ingest.Engine, machine *status.Machine, logger *zap.Logger) *transport.Client {
	tc := transport.DefaultConfig()
	tc.BackoffBase = cfg.Transport.BackoffBase.Duration
	tc.BackoffMax = cfg.Transport.BackoffMax.Duration
	tc.BackoffJitter = cfg.Transport.BackoffJitter.Duration
	tc.HeartbeatTimeout = cfg.Transport.HeartbeatTimeout.Duration
	return transport.New(tc, transport.WebSocketDialer{URL: cfg.Transport.URL}, engine, machine, logger)
}

func provideChatService(db *store.DB, engine *ingest.Engine, refresher *population.Refresher, codec cipher.Codec, cfg *config.Config, logger *zap.Logger) *api.ChatService {
	seed := store.SeedConfig{
		Chats:    cfg.Store.SeedChats,
		Messages: cfg.Store.SeedMessages,
		Window:   cfg.Store.SeedWindow.Duration,
	}
	return api.NewChatService(db, engine, refresher, codec, seed, cfg.Gateway.MaxPageSize, logger.Named("api"))
}

func provideMessageService(db *store.DB, b *bus.Bus, cfg *config.Config) *api.MessageService {
	return api.NewMessageService(db, b, cfg.Gateway.MaxPageSize)
}

func provideConnectionService(client *transport.Client, srv *events.Server, engine *ingest.Engine, b *bus.Bus, db *store.DB, cfg *config.Config) *api.ConnectionService {
	var dropper api.Dropper
	if cfg.Events.Enabled {
		dropper = srv
	}
	return api.NewConnectionService(client, dropper, engine, b, db)
}

func registerLifecycle(
	lc fx.Lifecycle,
	cfg *config.Config,
	srv *Server,
	lk *lock.Lock,
	db *store.DB,
	eventSrv *events.Server,
	refresher *population.Refresher,
	client *transport.Client,
	logger *zap.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(_ context.Context) error {
			if cfg.Events.Enabled {
				if err := eventSrv.Start(); err != nil {
					return err
				}
				// Seeds the population before the first session can ask for a message.
				refresher.Start(context.Background())
			} else {
				logger.Info("embedded event server disabled")
			}

			// Start gRPC server in background.
			go func() {
				if err := srv.Start(); err != nil {
					logger.Error("gRPC server error", zap.Error(err))
				}
			}()

			if cfg.Transport.AutoConnect {
				logger.Info("auto-connecting", zap.String("url", cfg.Transport.URL))
				client.Connect()
			}
			return nil
		},
		OnStop: func(ctx context.Context) error {
			client.Close()
			srv.Stop(ctx)
			if cfg.Events.Enabled {
				refresher.Stop()
				if err := eventSrv.Stop(ctx); err != nil {
					logger.Warn("error stopping event server", zap.Error(err))
				}
			}
			if err := db.Close(); err != nil {
				logger.Warn("error closing store", zap.Error(err))
			}
			if err := lk.Release(); err != nil {
				logger.Warn("error releasing lock", zap.Error(err))
			}
			logger.Info("daemon stopped")
			_ = logger.Sync()
			return nil
		},
	})
}
