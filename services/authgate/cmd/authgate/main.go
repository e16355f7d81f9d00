// services/authgate/cmd/authgate/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	commoncfg "github.com/YaganovValera/storefront-auth/common/config"
	"github.com/YaganovValera/storefront-auth/common/logger"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/app"
	"github.com/YaganovValera/storefront-auth/services/authgate/internal/config"
)

func main() {
	var configPath, envPath string
	pflag.StringVar(&configPath, "config", "", "path to config file (optional)")
	pflag.StringVar(&envPath, "env-file", ".env", "path to .env file (optional)")
	pflag.Parse()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	secrets, err := commoncfg.LoadEnv(ctx, envPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "env load error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init error: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	log.Info("starting authgate",
		zap.String("service.name", cfg.ServiceName),
		zap.String("service.version", cfg.ServiceVersion),
		zap.String("environment", cfg.Environment),
		zap.String("config.path", configPath),
		zap.Int("secrets.applied", secrets),
	)

	if err := app.Run(ctx, cfg, log); err != nil {
		if errors.Is(err, context.Canceled) {
			log.Info("authgate: shutdown complete")
		} else {
			log.Error("authgate exited with error", zap.Error(err))
			os.Exit(1)
		}
	}

	log.Info("authgate shut down cleanly")
}
