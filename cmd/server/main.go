package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"deployer-backend/internal/app"
	"deployer-backend/internal/config"
	"deployer-backend/internal/pkg/logger"
)

func main() {
	// .env is optional
	envErr := godotenv.Load()

	cfg := config.LoadConfig()
	appLogger, err := logger.NewLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	if envErr != nil {
		appLogger.Debug("No .env file loaded, using environment", zap.Error(envErr))
	}

	a, err := app.New(cfg, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialise", zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.Serve(ctx); err != nil {
		appLogger.Fatal("Server stopped", zap.Error(err))
	}
}
