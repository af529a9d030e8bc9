package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/Leganyst/slot-scheduler/internal/api"
	"github.com/Leganyst/slot-scheduler/internal/calendar"
	"github.com/Leganyst/slot-scheduler/internal/config"
	"github.com/Leganyst/slot-scheduler/internal/db"
	"github.com/Leganyst/slot-scheduler/internal/logger"
	"github.com/Leganyst/slot-scheduler/internal/model"
	"github.com/Leganyst/slot-scheduler/internal/ops"
	"github.com/Leganyst/slot-scheduler/internal/repository"
	"github.com/Leganyst/slot-scheduler/internal/service"
)

const shutdownTimeout = 15 * time.Second

func main() {
	// .env необязателен
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "slot-scheduler",
		Usage: "Appointment board: events, one-hour slots and token-gated bookings.",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		slog.Error("Application failed", "error", err)
		os.Exit(1)
	}
}

// openDB: конфиг БД из env, подключение, миграции.
func openDB(log *slog.Logger) (*gorm.DB, func(), error) {
	dbCfg, err := config.LoadDBConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("load db config: %w", err)
	}

	gormDB, err := db.NewGormDB(dbCfg)
	if err != nil {
		return nil, nil, fmt.Errorf("init db: %w", err)
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, nil, fmt.Errorf("sql DB: %w", err)
	}
	closeFn := func() { _ = sqlDB.Close() }

	if err := model.AutoMigrate(gormDB); err != nil {
		closeFn()
		return nil, nil, fmt.Errorf("auto migrate: %w", err)
	}
	log.Info("database ready", "driver", dbCfg.Driver)
	return gormDB, closeFn, nil
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "Apply schema migrations and exit.",
		Action: func(c *cli.Context) error {
			log := logger.New(os.Getenv("LOG_LEVEL"))
			_, closeFn, err := openDB(log)
			if err != nil {
				return err
			}
			closeFn()
			return nil
		},
	}
}

func serveCommand() *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Run the HTTP API and the ops gRPC server.",
		Action: func(c *cli.Context) error {
			appCfg, err := config.LoadAppConfig()
			if err != nil {
				return fmt.Errorf("load app config: %w", err)
			}
			log := logger.New(appCfg.LogLevel)
			slog.SetDefault(log)

			loc, err := calendar.LoadLocation(appCfg.DisplayTimeZone)
			if err != nil {
				return err
			}

			// ops-сервер поднимается раньше БД и до миграций отвечает NOT_SERVING.
			opsSrv := ops.NewServer(log)
			lis, err := net.Listen("tcp", appCfg.GRPCAddr)
			if err != nil {
				return fmt.Errorf("listen %s: %w", appCfg.GRPCAddr, err)
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				return opsSrv.Serve(lis)
			})

			gormDB, closeFn, err := openDB(log)
			if err != nil {
				opsSrv.Shutdown()
				_ = g.Wait()
				return err
			}
			defer closeFn()

			svc := service.NewSchedulingService(repository.NewStore(gormDB), service.WithLogger(log))
			h := api.NewHandler(svc, appCfg.PublicBaseURL, loc, log)
			e := api.NewServer(h, api.ServerConfig{
				RequestTimeout:     appCfg.RequestTimeout,
				RateLimitPerSecond: appCfg.RateLimitPerSecond,
			}, log)

			g.Go(func() error {
				log.Info("HTTP server listening", "addr", appCfg.HTTPAddr)
				if err := e.Start(appCfg.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("http serve: %w", err)
				}
				return nil
			})
			opsSrv.SetServing(true)

			g.Go(func() error {
				<-gctx.Done()
				log.Info("shutting down servers...")
				opsSrv.SetServing(false)

				shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				err := e.Shutdown(shutdownCtx)
				opsSrv.Shutdown()
				return err
			})

			return g.Wait()
		},
	}
}
