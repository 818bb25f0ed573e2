package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.uber.org/fx"
	"gorm.io/gorm"

	"leadrouter/internal/bootstrap/config"
	"leadrouter/internal/bootstrap/database"
	"leadrouter/internal/bootstrap/logging"
	sqliterepo "leadrouter/internal/infrastructure/persistence/sqlite/repository"
	sqliteuow "leadrouter/internal/infrastructure/persistence/sqlite/uow"
	memoryqueue "leadrouter/internal/infrastructure/queue/memory"
	natsqueue "leadrouter/internal/infrastructure/queue/nats"
	"leadrouter/internal/ports"
	"leadrouter/internal/usecase/allocation"
)

var Module = fx.Options(
	fx.Provide(provideConfig),
	fx.Provide(provideDatabase),
	fx.Provide(provideApp),
	fx.Provide(
		fx.Annotate(
			sqliterepo.NewRoutingRepository,
			fx.As(new(ports.RoutingRepository)),
		),
	),
	fx.Provide(
		fx.Annotate(
			sqliteuow.NewUnitOfWork,
			fx.As(new(ports.UnitOfWork)),
		),
	),
	fx.Provide(provideTaskQueue),
	fx.Provide(provideAllocatorConfig),
	fx.Provide(allocation.NewService),
	fx.Provide(provideRunner),
)

type configParams struct {
	fx.In

	Ctx        context.Context
	ConfigFile string `name:"configFile"`
}

func provideConfig(p configParams) (config.Config, error) {
	ctx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))
	return config.Load(ctx, p.ConfigFile)
}

func provideDatabase(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (*gorm.DB, error) {
	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.fx"))

	db, err := database.Open(logCtx, cfg.Database)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	})

	return db, nil
}

func provideApp(cfg config.Config, db *gorm.DB) *App {
	return &App{
		Config: cfg,
		DB:     db,
	}
}

func provideTaskQueue(lc fx.Lifecycle, ctx context.Context, cfg config.Config) (ports.TaskQueue, error) {
	switch strings.ToLower(cfg.Queue.Driver) {
	case "", "memory":
		return memoryqueue.NewQueue(memoryqueue.DefaultConfig()), nil
	case "nats":
		queue, err := natsqueue.New(ctx, natsqueue.Config{
			URL:     cfg.Queue.URL,
			Stream:  cfg.Queue.Stream,
			Subject: cfg.Queue.Subject,
			Durable: cfg.Queue.Durable,
		})
		if err != nil {
			return nil, err
		}
		lc.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				queue.Close()
				return nil
			},
		})
		return queue, nil
	default:
		return nil, fmt.Errorf("unsupported queue driver %q", cfg.Queue.Driver)
	}
}

func provideAllocatorConfig(cfg config.Config) allocation.Config {
	return allocation.Config{
		Workers:            cfg.Allocator.Workers,
		RereadLimit:        cfg.Allocator.RereadLimit,
		RereadDelay:        cfg.Allocator.RereadDelay,
		CapacityRetryDelay: cfg.Allocator.CapacityRetryDelay,
	}
}

func provideRunner(service *allocation.Service, queue ports.TaskQueue, cfg config.Config) *allocation.Runner {
	return allocation.NewRunner(service, queue, cfg.Allocator.Workers)
}
