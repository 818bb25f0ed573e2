package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"leadrouter/internal/bootstrap/logging"
	"leadrouter/internal/errs"
)

type Config struct {
	App       AppConfig       `mapstructure:"app"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Queue     QueueConfig     `mapstructure:"queue"`
	Allocator AllocatorConfig `mapstructure:"allocator"`
	HTTP      HTTPConfig      `mapstructure:"http"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

type DatabaseConfig struct {
	Driver string `mapstructure:"driver"`
	DSN    string `mapstructure:"dsn"`
}

type QueueConfig struct {
	// Driver is "memory" (in-process, default) or "nats" (JetStream).
	Driver  string `mapstructure:"driver"`
	URL     string `mapstructure:"url"`
	Stream  string `mapstructure:"stream"`
	Subject string `mapstructure:"subject"`
	Durable string `mapstructure:"durable"`
}

type AllocatorConfig struct {
	Workers            int           `mapstructure:"workers"`
	RereadLimit        int           `mapstructure:"reread_limit"`
	RereadDelay        time.Duration `mapstructure:"reread_delay"`
	CapacityRetryDelay time.Duration `mapstructure:"capacity_retry_delay"`
}

type HTTPConfig struct {
	Addr string `mapstructure:"addr"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("LR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("queue_driver", cfg.Queue.Driver),
	)

	return cfg, nil
}

func validate(cfg Config) error {
	if cfg.Database.DSN == "" {
		return errors.New("database.dsn is required")
	}

	switch strings.ToLower(cfg.Queue.Driver) {
	case "memory":
	case "nats":
		if cfg.Queue.URL == "" {
			return errors.New("queue.url is required for the nats driver")
		}
	default:
		return fmt.Errorf("unsupported queue driver %q", cfg.Queue.Driver)
	}

	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "leadrouter")
	v.SetDefault("app.env", "local")

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "data/leadrouter.sqlite")

	v.SetDefault("queue.driver", "memory")
	v.SetDefault("queue.stream", "LEADROUTER")
	v.SetDefault("queue.subject", "leadrouter.allocate")
	v.SetDefault("queue.durable", "allocator")

	v.SetDefault("allocator.workers", 4)
	v.SetDefault("allocator.reread_limit", 3)
	v.SetDefault("allocator.reread_delay", time.Second)
	v.SetDefault("allocator.capacity_retry_delay", 3*time.Second)

	v.SetDefault("http.addr", ":8080")
}
