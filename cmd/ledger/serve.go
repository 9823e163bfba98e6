package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-kit/log"
	"github.com/go-kit/log/level"
	_ "github.com/lib/pq"
	goredis "github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/eaglebank/ledger/internal/command"
	"github.com/eaglebank/ledger/internal/config"
	"github.com/eaglebank/ledger/internal/handler"
	"github.com/eaglebank/ledger/internal/ledger"
	"github.com/eaglebank/ledger/internal/query"
	"github.com/eaglebank/ledger/internal/repository"
	"github.com/eaglebank/ledger/shared/events"
	"github.com/eaglebank/ledger/shared/middleware"
	sharedredis "github.com/eaglebank/ledger/shared/redis"
)

const shutdownTimeout = 10 * time.Second

// CreateServeCmd creates the serve command. Flag defaults come from the environment.
func CreateServeCmd() *cobra.Command {
	cfg := config.Load()

	var cmd = cobra.Command{
		Use:   "serve",
		Short: "start the ledger HTTP service",
		Long:  `start the ledger HTTP service, backed by PostgreSQL when a database URL is given and by memory otherwise.`,

		Args: cobra.NoArgs,

		Run: run,
	}
	cmd.Flags().StringP("port", "p", cfg.Port, "listen port")
	cmd.Flags().String("database-url", cfg.DatabaseURL, "PostgreSQL connection URL (empty: in-memory store)")
	cmd.Flags().String("redis-addr", cfg.Redis.Addr, "Redis address for the read model and events (empty: disabled)")
	cmd.Flags().String("redis-password", cfg.Redis.Password, "Redis password")
	cmd.Flags().Int("redis-db", cfg.Redis.DB, "Redis database")
	cmd.Flags().String("log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	cmd.Flags().String("events-group", cfg.Events.Group, "consumer group projecting account events")
	cmd.Flags().String("events-consumer", cfg.Events.Consumer, "consumer name within the events group")
	return &cmd
}

func run(cmd *cobra.Command, args []string) {
	if err := execute(cmd, args); err != nil {
		fmt.Fprintln(cmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

func execute(cmd *cobra.Command, _ []string) error {
	cfg, err := configFromFlags(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger(cmd.ErrOrStderr(), cfg.LogLevel)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, closeStore, err := openStore(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	var (
		rdb         *sharedredis.Client
		redisClient *goredis.Client
		publisher   command.EventPublisher
	)
	if cfg.Redis.Addr != "" {
		rdb, err = sharedredis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
		if err != nil {
			return err
		}
		defer rdb.Close()
		redisClient = rdb.Client
		publisher = events.NewPublisher(redisClient)
		_ = level.Info(logger).Log("msg", "redis read model and events enabled", "addr", cfg.Redis.Addr)
	}

	// --- CQRS wiring ---
	core := ledger.New(store, log.With(logger, "component", "ledger"))
	readRepo := repository.NewAccountReadRepository(core, redisClient, logger)
	commandSvc := command.NewLedgerCommandService(core, publisher, logger)
	querySvc := query.NewAccountQueryService(readRepo, core)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.LoggingMiddleware(logger))
	router.GET("/health", func(c *gin.Context) {
		if rdb != nil && !rdb.Healthy(c.Request.Context()) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": "unreachable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	handler.NewLedgerHandler(commandSvc, querySvc).RegisterRoutes(router)

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_ = level.Info(logger).Log("msg", "ledger service starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		_ = level.Info(logger).Log("msg", "shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if redisClient != nil {
		projector := query.NewAccountProjector(readRepo, logger)
		subscriber := events.NewSubscriber(redisClient, events.SubscriberConfig{
			Group:    cfg.Events.Group,
			Consumer: cfg.Events.Consumer,
			Stream:   events.AccountEventsStream,
			Handler:  projector.HandleAccountEvent,
			Logger:   logger,
		})
		g.Go(func() error {
			if err := subscriber.Start(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("account events subscriber: %w", err)
			}
			return nil
		})
	}

	return g.Wait()
}

// openStore connects to PostgreSQL and migrates the schema, or falls back to
// the in-memory store when no database URL is configured.
func openStore(ctx context.Context, databaseURL string, logger log.Logger) (ledger.AccountStore, func(), error) {
	if databaseURL == "" {
		_ = level.Warn(logger).Log("msg", "no database configured, accounts are kept in memory")
		return repository.NewMemoryAccountRepository(), func() {}, nil
	}

	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("failed to ping database: %w", err)
	}
	if err := repository.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}
	return repository.NewAccountRepository(db), func() { db.Close() }, nil
}

func configFromFlags(cmd *cobra.Command) (*config.Config, error) {
	var (
		cfg config.Config
		err error
	)
	flags := cmd.Flags()
	if cfg.Port, err = flags.GetString("port"); err != nil {
		return nil, err
	}
	if cfg.DatabaseURL, err = flags.GetString("database-url"); err != nil {
		return nil, err
	}
	if cfg.Redis.Addr, err = flags.GetString("redis-addr"); err != nil {
		return nil, err
	}
	if cfg.Redis.Password, err = flags.GetString("redis-password"); err != nil {
		return nil, err
	}
	if cfg.Redis.DB, err = flags.GetInt("redis-db"); err != nil {
		return nil, err
	}
	if cfg.LogLevel, err = flags.GetString("log-level"); err != nil {
		return nil, err
	}
	if cfg.Events.Group, err = flags.GetString("events-group"); err != nil {
		return nil, err
	}
	if cfg.Events.Consumer, err = flags.GetString("events-consumer"); err != nil {
		return nil, err
	}
	return &cfg, nil
}
