// Command sessiond is a small HTTP service that runs the session layer
// described by a session configuration descriptor.
//
// The descriptor comes from the YAML file named by SESSION_CONFIG_FILE or,
// when unset, from SESSION_* environment variables.
package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrymomot/sessionkit"
	"github.com/dmitrymomot/sessionkit/internal"
	"github.com/dmitrymomot/sessionkit/pkg/config"
	"github.com/dmitrymomot/sessionkit/pkg/logger"
)

// appConfig holds the process settings that are not part of the descriptor.
type appConfig struct {
	Address         string        `env:"ADDRESS" envDefault:":8080"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`
	ConfigFile      string        `env:"SESSION_CONFIG_FILE"`
	Log             logger.Config
}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("sessiond stopped", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var app appConfig
	if err := config.Env(&app); err != nil {
		return err
	}

	log := logger.NewWithConfig(app.Log, os.Stdout,
		logger.StringExtractor("request_id", middleware.GetReqID),
		logger.SessionExtractor(),
		logger.UserIDExtractor(),
	).With(slog.String("app", "sessiond"))

	cfg, err := loadDescriptor(app.ConfigFile)
	if err != nil {
		return err
	}

	kit, err := sessionkit.New(ctx, cfg, sessionkit.WithLogger(log))
	if err != nil {
		return err
	}

	return internal.RunServer(ctx, newRouter(kit, log),
		internal.Address(app.Address),
		internal.Logger(log),
		internal.ShutdownTimeout(app.ShutdownTimeout),
		internal.StartupHook(kit.Start),
		internal.ShutdownHook(kit.Close),
	)
}

func loadDescriptor(path string) (config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
