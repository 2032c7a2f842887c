package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quiverhq/quiver/internal/app"
	"github.com/quiverhq/quiver/internal/common"
)

func main() {
	configPath := os.Getenv("QUIVER_CONFIG")

	a, err := app.NewApp(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize app: %v\n", err)
		os.Exit(1)
	}

	if err := a.StartRefresh(); err != nil {
		a.Logger.Fatal().Err(err).Msg("Failed to start scheduled refresh")
	}

	a.Logger.Info().
		Str("version", common.GetFullVersion()).
		Str("environment", a.Config.Environment).
		Msg("Quiver daemon ready")

	// Wait for shutdown signal
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	a.Logger.Info().Str("signal", sig.String()).Msg("Shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		a.Logger.Error().Err(err).Msg("Shutdown error")
		os.Exit(1)
	}
}
