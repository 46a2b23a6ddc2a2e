package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"backend-bodytune/internal/config"
	"backend-bodytune/internal/db"
	"backend-bodytune/internal/ingest"
	"backend-bodytune/internal/logging"
	"backend-bodytune/internal/server"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var mainDepsProvider = defaultDeps
var mainRunner = realMain

func main() {
	mainRunner(mainDepsProvider())
}

type RunFunc func(context.Context, config.Config, *zap.Logger, *pgxpool.Pool, *redis.Client, *nats.Conn, <-chan os.Signal, ListenFunc) error

type mainDeps struct {
	args            []string
	loadConfig      func() config.Config
	newLogger       func(config.Config) (*zap.Logger, error)
	migrate         func(postgresURL string) error
	connectPostgres func(config.Config) (*pgxpool.Pool, error)
	connectRedis    func(config.Config) *redis.Client
	connectNATS     func(url string) (*nats.Conn, error)
	notify          func(chan<- os.Signal, ...os.Signal)
	run             RunFunc
	exit            func(int)
}

func defaultDeps() mainDeps {
	return mainDeps{
		args:       os.Args[1:],
		loadConfig: config.Load,
		newLogger: func(cfg config.Config) (*zap.Logger, error) {
			return logging.New(cfg.LogLevel, cfg.LogDevelopment)
		},
		migrate:         db.Migrate,
		connectPostgres: db.ConnectPostgres,
		connectRedis:    db.ConnectRedis,
		connectNATS:     ingest.Connect,
		notify:          signal.Notify,
		run:             Run,
		exit:            os.Exit,
	}
}

func realMain(deps mainDeps) {
	root := newRootCmd(deps)
	root.SetArgs(deps.args)
	if err := root.Execute(); err != nil {
		deps.exit(1)
	}
}

func serve(deps mainDeps) error {
	cfg := deps.loadConfig()
	log, err := deps.newLogger(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.AutoMigrate {
		if err := deps.migrate(cfg.PostgresURL); err != nil {
			log.Warn("migration failed", zap.Error(err))
		}
	}

	pg, err := deps.connectPostgres(cfg)
	if err != nil {
		log.Warn("postgres connection failed", zap.Error(err))
	}

	rdb := deps.connectRedis(cfg)

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = deps.connectNATS(cfg.NATSURL)
		if err != nil {
			log.Warn("nats connection failed, fix ingest disabled", zap.Error(err))
			nc = nil
		}
	}

	signals := make(chan os.Signal, 1)
	deps.notify(signals, syscall.SIGINT, syscall.SIGTERM)

	if err := deps.run(context.Background(), cfg, log, pg, rdb, nc, signals, nil); err != nil {
		log.Error("server exited with error", zap.Error(err))
		return err
	}
	return nil
}

type ListenFunc func(app *fiber.App, addr string) error

var defaultListen ListenFunc = func(app *fiber.App, addr string) error {
	return app.Listen(addr)
}

var shutdownFn = func(app *fiber.App, ctx context.Context) error {
	return app.ShutdownWithContext(ctx)
}

// Run starts the HTTP server and waits for termination signals.
func Run(ctx context.Context, cfg config.Config, log *zap.Logger, pg *pgxpool.Pool, rdb *redis.Client, nc *nats.Conn, signals <-chan os.Signal, listen ListenFunc) error {
	if log == nil {
		log = zap.NewNop()
	}
	srv := server.NewServer(cfg, pg, rdb, log)

	var bridge *ingest.Bridge
	if nc != nil {
		bridge = ingest.NewBridge(nc, cfg.NATSSubject, srv.Tracking, log)
		if err := bridge.Start(); err != nil {
			log.Warn("fix ingest disabled", zap.Error(err))
			bridge = nil
		}
	}

	if listen == nil {
		listen = defaultListen
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- listen(srv.App, cfg.ServerPort)
	}()

	select {
	case <-signals:
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			srv.Close()
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := shutdownFn(srv.App, shutdownCtx)
	if bridge != nil {
		_ = bridge.Close()
	}
	srv.Close()
	if err != nil {
		return err
	}
	if nc != nil {
		nc.Close()
	}
	if pg != nil {
		pg.Close()
	}
	if rdb != nil {
		_ = rdb.Close()
	}
	log.Info("server stopped")
	return nil
}
