package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/bilgisen/newscurator/internal/app"
)

func main() {
	cfg, log, err := app.Bootstrap()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize application")
	}

	_, err = a.Runner.Ingest(ctx)
	if cerr := a.Close(); cerr != nil {
		log.Error().Err(cerr).Msg("Error closing application")
	}
	if err != nil {
		log.Error().Err(err).Msg("Ingestion failed")
		os.Exit(1)
	}
}
