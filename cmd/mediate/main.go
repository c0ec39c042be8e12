// Command mediate serves the MEDIATE catalogue API with its moderation workflow.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/mediate-project/mediate/internal/api"
	"github.com/mediate-project/mediate/internal/config"
	"github.com/mediate-project/mediate/internal/db"
	"github.com/mediate-project/mediate/internal/db/migrations"
	"github.com/mediate-project/mediate/internal/dbpool"
	"github.com/mediate-project/mediate/internal/domain"
	"github.com/mediate-project/mediate/internal/memstore"
	"github.com/mediate-project/mediate/internal/metrics"
	"github.com/mediate-project/mediate/internal/moderation"
	"github.com/mediate-project/mediate/internal/schema"
	"github.com/mediate-project/mediate/internal/service"
	"github.com/mediate-project/mediate/internal/store"
	"github.com/mediate-project/mediate/internal/ws"
)

const (
	shutdownTimeout   = 15 * time.Second
	pendingInterval   = 30 * time.Second
	readHeaderTimeout = 10 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "mediate:", err)
		os.Exit(1)
	}
}

// backend is the storage the engine runs on.
type backend struct {
	pool      *dbpool.Pool // nil on the memory backend
	tx        domain.TxRunner
	users     domain.UserStore
	publisher domain.EventPublisher
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	log := cfg.NewLogger()
	log.WithFields(logrus.Fields{
		"version": config.Version,
		"storage": cfg.StorageBackend,
	}).Info("starting mediate")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	reg := schema.Default()
	codec := schema.NewCodec(reg)
	hub := ws.NewHub(log)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	be, err := openBackend(gctx, g, cfg, log, codec, hub)
	if err != nil {
		stop()
		_ = g.Wait()

		return err
	}

	if be.pool != nil {
		defer be.pool.Close()

		metrics.RegisterPool(be.pool.Usage)
	}

	policies, err := loadPolicies(cfg.PolicyFile, reg)
	if err != nil {
		stop()
		_ = g.Wait()

		return err
	}

	engine := moderation.New(be.tx, codec, policies, log, moderation.WithPublisher(be.publisher))

	if _, err := service.EnsureBootstrapUser(gctx, be.users, cfg.BootstrapAPIKey.Value(), log); err != nil {
		stop()
		_ = g.Wait()

		return err
	}

	router := api.NewRouter(gctx, &api.RouterDeps{
		Log:            log,
		Pool:           be.pool,
		Hub:            hub,
		Moderation:     engine,
		Catalogue:      service.NewCatalogueService(be.tx, log),
		Entities:       reg,
		Users:          be.users,
		CORSOrigins:    cfg.CORSOrigins,
		Version:        config.Version,
		Backend:        cfg.StorageBackend,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	})

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	metricsSrv := &http.Server{
		Addr:              cfg.MetricsAddr(),
		Handler:           promhttp.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
	}

	g.Go(func() error { return serve(log, "api", srv) })
	g.Go(func() error { return serve(log, "metrics", metricsSrv) })

	g.Go(func() error {
		trackPending(gctx, engine, log)
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownTimeout)
		defer cancel()

		return errors.Join(srv.Shutdown(shutdownCtx), metricsSrv.Shutdown(shutdownCtx))
	})

	if err := g.Wait(); err != nil {
		return err
	}

	log.Info("mediate stopped")

	return nil
}

func serve(log *logrus.Logger, name string, srv *http.Server) error {
	log.WithFields(logrus.Fields{"server": name, "addr": srv.Addr}).Info("listening")

	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("%s server: %w", name, err)
	}

	return nil
}

// openBackend connects the configured storage. On PostgreSQL events travel
// through pg_notify so every server instance sees them; in memory a queue
// worker hands them to the hub.
func openBackend(
	ctx context.Context, g *errgroup.Group, cfg *config.Config, log *logrus.Logger, codec *schema.Codec, hub *ws.Hub,
) (*backend, error) {
	if cfg.StorageBackend == config.BackendMemory {
		log.Warn("using in-memory storage; data is lost on exit")

		st := memstore.New(codec)
		worker := service.NewEventWorker(log, cfg.EventQueueSize, hub)

		g.Go(func() error {
			worker.Run(ctx)
			return nil
		})

		return &backend{tx: st, users: st, publisher: worker}, nil
	}

	pool, err := dbpool.NewPool(ctx, cfg.DatabaseURL.Value(), cfg.DBMaxConns)
	if err != nil {
		return nil, err
	}

	if err := db.RunMigrations(ctx, pool, log, migrations.FS); err != nil {
		pool.Close()

		return nil, err
	}

	base := store.Base{Pool: pool, Log: log}

	bridge := db.NewNotifyBridge(log, pool, hub, store.EventChannel)
	if err := bridge.Start(ctx); err != nil {
		pool.Close()

		return nil, err
	}

	return &backend{
		pool:      pool,
		tx:        store.NewUnitOfWork(base),
		users:     store.NewUserStore(base),
		publisher: store.NewEventNotifier(base),
	}, nil
}

func loadPolicies(path string, reg *schema.Registry) (*moderation.Policies, error) {
	if path == "" {
		return moderation.DefaultPolicies(reg)
	}

	return moderation.LoadPolicyFile(path, reg)
}

// trackPending keeps the pending-records gauge fresh between stats requests.
// Engine.Stats sets the gauge as a side effect.
func trackPending(ctx context.Context, engine *moderation.Engine, log *logrus.Logger) {
	ticker := time.NewTicker(pendingInterval)
	defer ticker.Stop()

	for {
		if _, err := engine.Stats(ctx); err != nil && ctx.Err() == nil {
			log.WithError(err).Warn("refreshing pending gauge")
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
