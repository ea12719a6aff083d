package main

import (
    "context"
    "os"
    "os/signal"
    "syscall"
    "time"

    "github.com/bilgisen/newscurator/internal/api"
    "github.com/bilgisen/newscurator/internal/app"
    "github.com/bilgisen/newscurator/internal/middleware"
    "github.com/bilgisen/newscurator/internal/scheduler"
    "github.com/gofiber/fiber/v2"
    "github.com/gofiber/fiber/v2/middleware/recover"
)

func main() {
    // Load configuration and initialize logger
    cfg, log, err := app.Bootstrap()
    if err != nil {
        log.Fatal().Err(err).Msg("Failed to load configuration")
    }

    log.Info().Str("env", cfg.Env).Msg("Starting application...")

    // Cancelled on shutdown so background runs stop with the server
    baseCtx, cancelRuns := context.WithCancel(context.Background())
    defer cancelRuns()

    a, err := app.New(baseCtx, cfg, log)
    if err != nil {
        log.Fatal().Err(err).Msg("Failed to initialize application")
    }
    defer func() {
        log.Info().Msg("Closing stores...")
        if err := a.Close(); err != nil {
            log.Error().Err(err).Msg("Error closing stores")
        }
    }()

    // Optional cron schedule for ingest followed by promote
    var sched *scheduler.Scheduler
    var nextRun func() string
    if cfg.ScheduleCron != "" {
        sched, err = scheduler.New(cfg.ScheduleCron, a.Runner.IngestThenPromote, log)
        if err != nil {
            log.Fatal().Err(err).Str("cron", cfg.ScheduleCron).Msg("Invalid schedule")
        }
        sched.Start()
        nextRun = sched.Next
        log.Info().Str("cron", cfg.ScheduleCron).Str("next", sched.Next()).Msg("Scheduler started")
    }

    if cfg.AdminAPIKey == "" {
        log.Warn().Msg("ADMIN_API_KEY not set, admin endpoints are open")
    }

    // Create Fiber app with custom config
    server := fiber.New(fiber.Config{
        ReadTimeout:  cfg.HTTPTimeout,
        WriteTimeout: cfg.HTTPTimeout,
        IdleTimeout:  120 * time.Second,
        ErrorHandler: middleware.ErrorHandler,
    })

    // Global middleware
    server.Use(recover.New())
    server.Use(middleware.RequestLogger())

    api.SetupRoutes(server, api.NewHandlers(api.Deps{
        Candidates:  a.Stores.Candidates,
        Approved:    a.Stores.Approved,
        Runner:      a.Runner,
        BaseContext: baseCtx,
        NextRun:     nextRun,
    }), cfg.AdminAPIKey)

    // Start server in a goroutine
    go func() {
        log.Info().Str("port", cfg.Port).Msg("Starting server")
        if err := server.Listen(":" + cfg.Port); err != nil {
            log.Fatal().Err(err).Msg("Server error")
        }
    }()

    // Wait for interrupt signal to gracefully shut down the server
    quit := make(chan os.Signal, 1)
    signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
    <-quit

    log.Info().Msg("Shutting down server...")

    if sched != nil {
        sched.Stop()
    }
    cancelRuns()

    // Create a deadline for graceful shutdown
    ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
    defer cancel()

    if err := server.ShutdownWithContext(ctx); err != nil {
        log.Error().Err(err).Msg("Server forced to shutdown")
    }

    log.Info().Msg("Server exited properly")
}
