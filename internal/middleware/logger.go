package middleware

import (
    "time"

    "github.com/bilgisen/newscurator/internal/logger"
    "github.com/gofiber/fiber/v2"
    "github.com/rs/zerolog"
)

// LoggerConfig defines the config for the logger middleware
type LoggerConfig struct {
    // Skip defines a function to skip middleware.
    // Optional. Default: nil
    Next func(c *fiber.Ctx) bool

    // Logger is the zerolog logger instance to use.
    // If not provided, the default logger will be used.
    Logger *zerolog.Logger
}

// NewLogger logs one line per request, at warn level for 4xx responses and
// error level for 5xx
func NewLogger(cfg LoggerConfig) fiber.Handler {
    if cfg.Logger == nil {
        cfg.Logger = logger.Get()
    }

    return func(c *fiber.Ctx) error {
        // Skip middleware if Next returns true
        if cfg.Next != nil && cfg.Next(c) {
            return c.Next()
        }

        start := time.Now()
        err := c.Next()
        latency := time.Since(start)

        // The error handler has not run yet, so derive the final status here
        status := c.Response().StatusCode()
        if err != nil {
            status = fiber.StatusInternalServerError
            if fe, ok := err.(*fiber.Error); ok {
                status = fe.Code
            }
        }

        var event *zerolog.Event
        switch {
        case status >= fiber.StatusInternalServerError:
            event = cfg.Logger.Error()
        case status >= fiber.StatusBadRequest:
            event = cfg.Logger.Warn()
        default:
            event = cfg.Logger.Info()
        }

        event.
            Str("method", c.Method()).
            Str("path", c.Path()).
            Int("status", status).
            Str("ip", c.IP()).
            Dur("latency", latency).
            Err(err).
            Msg("request")

        return err
    }
}

// RequestLogger logs with the global logger, skipping health probes
func RequestLogger() fiber.Handler {
    return NewLogger(LoggerConfig{
        Next: func(c *fiber.Ctx) bool {
            return c.Path() == "/api/v1/health"
        },
    })
}
