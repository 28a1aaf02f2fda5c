package main

import (
	"context"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"github.com/koba/cqlbridge/internal/auth"
	"github.com/koba/cqlbridge/internal/bridge"
	"github.com/koba/cqlbridge/internal/config"
	"github.com/koba/cqlbridge/internal/database"
	"github.com/koba/cqlbridge/internal/executor"
	"github.com/koba/cqlbridge/internal/logging"
	"github.com/koba/cqlbridge/internal/metrics"
	"github.com/koba/cqlbridge/internal/storage"
	"github.com/koba/cqlbridge/internal/translate"
)

// app holds the components a command runs with
type app struct {
	config  config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	engine  *translate.Engine
	service *bridge.Service

	authority auth.Authority
	sqlAuth   *auth.SQLAuthority
	cache     *auth.Cache
	hook      *executor.KeyspaceAccessHook

	closers []func()
}

// newApp builds the components from configuration. The Cassandra session
// is only opened when execute is set.
func newApp(ctx context.Context, execute bool) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Development)
	if err != nil {
		return nil, err
	}

	a := &app{config: cfg, logger: logger, metrics: metrics.New()}
	a.closers = append(a.closers, func() { _ = logger.Sync() })

	a.engine = translate.NewEngine(translate.Options{
		Replication: translate.Replication{
			Class:      cfg.Replication.Class,
			Factor:     cfg.Replication.Factor,
			DataCenter: cfg.Replication.DataCenter,
		},
		DefaultLimit: cfg.Translate.DefaultLimit,
		Logger:       logger,
		Metrics:      a.metrics,
	})

	if err := a.openAuthority(ctx); err != nil {
		a.Close()
		return nil, err
	}

	opts := bridge.Options{Engine: a.engine, Logger: logger}
	if a.cache != nil {
		opts.Guard = auth.NewGuard(a.cache, auth.GuardOptions{
			AllowUnannotated: cfg.Authority.AllowUnannotated,
			Logger:           logger,
		})
	}
	if execute && opts.Guard == nil {
		a.Close()
		return nil, errors.WithHint(
			errors.New("exec requires a permission authority"),
			"set authority.type to http or sql in the configuration file")
	}
	if execute {
		store, err := storage.Open(storage.Config{
			Hosts:          cfg.Cassandra.Hosts,
			Keyspace:       cfg.Cassandra.Keyspace,
			Consistency:    cfg.Cassandra.Consistency,
			Timeout:        cfg.Cassandra.Timeout,
			ConnectTimeout: cfg.Cassandra.ConnectTimeout,
			Username:       cfg.Cassandra.Username,
			Password:       cfg.Cassandra.Password,
		}, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.closers = append(a.closers, store.Close)

		coordinator := executor.NewCoordinator(store, logger, a.metrics)
		if a.authority != nil {
			a.hook = executor.NewKeyspaceAccessHook(a.authority, logger, a.metrics)
			coordinator.AddHook(a.hook)
		}
		opts.Coordinator = coordinator
	}
	a.service = bridge.New(opts)
	return a, nil
}

func (a *app) openAuthority(ctx context.Context) error {
	cfg := a.config.Authority
	switch cfg.Type {
	case config.AuthorityNone:
		return nil
	case config.AuthorityHTTP:
		authority, err := auth.NewHTTPAuthority(cfg.URL, nil, cfg.Timeout)
		if err != nil {
			return err
		}
		a.authority = authority
	case config.AuthoritySQL:
		db, err := database.Open(ctx, cfg.Database)
		if err != nil {
			return errors.Wrap(err, "failed to open permission database")
		}
		a.closers = append(a.closers, func() { _ = db.Close() })
		authority, err := auth.NewSQLAuthority(ctx, db)
		if err != nil {
			return err
		}
		a.authority = authority
		a.sqlAuth = authority
	default:
		return errors.Newf("unknown authority type %q", cfg.Type)
	}

	cache, err := auth.NewCache(a.authority, auth.CacheOptions{
		TTL:     a.config.Cache.TTL,
		Size:    a.config.Cache.Size,
		Logger:  a.logger,
		Metrics: a.metrics,
	})
	if err != nil {
		return err
	}
	a.cache = cache
	return nil
}

// Close waits for pending notifications, writes metrics and releases
// connections in reverse order of opening.
func (a *app) Close() {
	if a.hook != nil {
		a.hook.Wait()
	}
	if metricsFile != "" {
		if err := a.metrics.WriteTextfile(metricsFile); err != nil {
			a.logger.Warn("failed to write metrics", zap.String("path", metricsFile), zap.Error(err))
		}
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}
