package logger

import (
    "fmt"
    "io"
    "os"
    "path/filepath"
    "strings"
    "sync"
    "time"

    "github.com/rs/zerolog"
)

var (
    once   sync.Once
    logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
)

// Config holds the configuration for the logger
type Config struct {
    Level  string
    Output string // "stdout", "stderr", or file path
    Pretty bool   // Enable pretty logging for development
}

// Init initializes the global logger. Only the first call has an effect.
func Init(cfg Config) error {
    var err error
    once.Do(func() {
        logger, err = New(cfg)
        if err != nil {
            return
        }
        zerolog.DefaultContextLogger = &logger
    })
    return err
}

// New builds a logger without touching the global one
func New(cfg Config) (zerolog.Logger, error) {
    // Set log level
    level, parseErr := zerolog.ParseLevel(strings.ToLower(cfg.Level))
    if parseErr != nil || cfg.Level == "" {
        level = zerolog.InfoLevel
    }

    // Set time format
    zerolog.TimeFieldFormat = time.RFC3339Nano

    output, err := openOutput(cfg.Output)
    if err != nil {
        return zerolog.Nop(), err
    }

    // Create logger
    var l zerolog.Logger
    if cfg.Pretty {
        l = zerolog.New(zerolog.ConsoleWriter{
            Out:        output,
            TimeFormat: "2006-01-02 15:04:05",
        })
    } else {
        l = zerolog.New(output)
    }

    return l.Level(level).With().Timestamp().Logger(), nil
}

func openOutput(target string) (io.Writer, error) {
    switch target {
    case "", "stdout":
        return os.Stdout, nil
    case "stderr":
        return os.Stderr, nil
    }

    // Try to create the directory if it doesn't exist
    dir := filepath.Dir(target)
    if dir != "." && dir != string(filepath.Separator) {
        if err := os.MkdirAll(dir, 0755); err != nil {
            return nil, fmt.Errorf("failed to create log directory: %w", err)
        }
    }

    file, err := os.OpenFile(target, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
    if err != nil {
        return nil, fmt.Errorf("failed to open log file: %w", err)
    }
    return file, nil
}

// Get returns the logger instance
func Get() *zerolog.Logger {
    return &logger
}

// WithRun returns a child of base tagged with a job run. A nil base uses
// the global logger.
func WithRun(base *zerolog.Logger, job, runID string) zerolog.Logger {
    if base == nil {
        base = &logger
    }
    return base.With().
        Str("job", job).
        Str("run_id", runID).
        Logger()
}
