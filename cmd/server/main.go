package main // Entry point package

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4" // Echo web framework
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/iliyamo/school-event-seating/internal/config" // Internal config loader
	"github.com/iliyamo/school-event-seating/internal/database"
	"github.com/iliyamo/school-event-seating/internal/handler"
	"github.com/iliyamo/school-event-seating/internal/logger"
	"github.com/iliyamo/school-event-seating/internal/metrics"
	"github.com/iliyamo/school-event-seating/internal/middleware"
	"github.com/iliyamo/school-event-seating/internal/queue"
	"github.com/iliyamo/school-event-seating/internal/repository"
	"github.com/iliyamo/school-event-seating/internal/router" // Internal router setup
	"github.com/iliyamo/school-event-seating/internal/seed"
	"github.com/iliyamo/school-event-seating/internal/service"
	"github.com/iliyamo/school-event-seating/internal/utils"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load() // Load environment config
	log := logger.New(cfg.Env)
	slog.SetDefault(log)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	alloc, err := config.LoadAllocationConfig()
	if err != nil {
		return err
	}

	store, pinger, closeStore, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer closeStore()

	pinHash := cfg.AdminPINHash
	if pinHash == "" {
		if pinHash, err = utils.HashPIN(cfg.AdminPIN, cfg.BcryptCost); err != nil {
			return fmt.Errorf("hash admin pin: %w", err)
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	opts := []service.Option{service.WithMetrics(m), service.WithLogger(log)}
	if cfg.RabbitURL != "" {
		opts = append(opts, service.WithPublisher(queue.NewPublisher(cfg.RabbitURL, log)))
	} else {
		log.Info("RABBITMQ_URL not set, registration events disabled")
	}
	svc := service.New(store, opts...)

	rdb := config.NewRedisClient(ctx)
	if rdb == nil {
		log.Warn("redis unavailable, rate limiting and chart cache disabled")
	} else {
		defer rdb.Close()
	}
	limit, cache, purge := redisMiddleware(rdb, log)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(middleware.RequestLogger(log))

	router.RegisterRoutes(e, pinger, reg)
	router.RegisterPublic(e, handler.NewPublicHandler(svc, alloc.SelfServiceMinRow, purge), limit, cache)
	router.RegisterAdmin(e, handler.NewAdminHandler(svc, pinHash, cfg.JWTSecret, cfg.AdminTokenTTL(), purge), cfg.JWTSecret, limit)

	g, gctx := errgroup.WithContext(ctx)
	addr := ":" + cfg.Port
	g.Go(func() error {
		log.Info("listening", "addr", addr, "env", cfg.Env, "store", cfg.StoreDriver)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return e.Shutdown(sctx)
	})
	if cfg.TicketConsumerEnabled && cfg.RabbitURL != "" {
		consumer := queue.NewConsumer(cfg.RabbitURL, cfg.TicketLogPath, log)
		g.Go(func() error { return consumer.Run(gctx) })
	}
	err = g.Wait()

	cctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if cerr := svc.Close(cctx); cerr != nil {
		log.Warn("registration events left undelivered", "error", cerr)
	}
	return err
}

// openStore returns the configured store, a database pinger for the health
// check (nil for the memory store) and a close function.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (repository.Store, handler.Pinger, func(), error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		mem := repository.NewInMemoryStore()
		n, err := seed.Provision(ctx, mem, seed.DefaultLayout(), false)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Warn("using in-memory store, data is lost on restart", "seats", n)
		return mem, nil, func() {}, nil
	case config.StoreMySQL:
	default:
		return nil, nil, nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}

	db, err := database.Open(ctx, database.Options{
		User: cfg.DB.User, Pass: cfg.DB.Pass,
		Host: cfg.DB.Host, Port: cfg.DB.Port, Name: cfg.DB.Name,
		MaxOpenConns:    cfg.DB.MaxOpenConns,
		ConnMaxLifetime: cfg.DB.ConnMaxLifetime,
	})
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect database: %w", err)
	}
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			_ = db.Close()
			return nil, nil, nil, err
		}
	}
	return repository.NewMySQLStore(db), db, func() { _ = db.Close() }, nil
}

// redisMiddleware builds the sign up rate limiter, the public chart cache
// and the cache purger.  With a nil client the first two pass requests
// through and the purger does nothing.
func redisMiddleware(rdb *redis.Client, log *slog.Logger) (limit, cache echo.MiddlewareFunc, purge handler.ChangeNotifier) {
	cacheCfg := config.LoadCacheConfig()
	limit = middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log)
	cache = middleware.NewRedisCache(cacheCfg, rdb, log)
	purge = handler.ChangeNotifier(middleware.NewCachePurger(cacheCfg, rdb, log))
	return limit, cache, purge
}
