package middleware

import (
    "crypto/subtle"
    "errors"
    "strings"

    "github.com/bilgisen/newscurator/internal/logger"
    "github.com/gofiber/fiber/v2"
)

var (
    errMissingKey = errors.New("missing API key")
    errInvalidKey = errors.New("invalid API key")
)

// AuthConfig defines the config for the auth middleware
type AuthConfig struct {
    // Skip defines a function to skip middleware.
    // Optional. Default: nil
    Next func(c *fiber.Ctx) bool

    // Validator is a function to validate the API key.
    // Required.
    Validator func(key string) (bool, error)

    // ErrorHandler defines a function which is executed for an invalid API key.
    // Optional. Default: 401 for a missing key, 403 for a wrong one
    ErrorHandler fiber.ErrorHandler

    // Header is the header key where to get the API key from.
    // Optional. Default: "X-API-Key"
    Header string
}

// ConfigDefault is the default config
var ConfigDefault = AuthConfig{
    Next: nil,
    ErrorHandler: func(c *fiber.Ctx, err error) error {
        logger.Get().Warn().
            Str("method", c.Method()).
            Str("path", c.Path()).
            Str("ip", c.IP()).
            Err(err).
            Msg("Authentication failed")

        if errors.Is(err, errMissingKey) {
            return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
                "error": "API key is required",
            })
        }
        return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
            "error": "Admin access required",
        })
    },
    Header: "X-API-Key",
}

// NewAuth creates a new middleware handler
func NewAuth(config AuthConfig) fiber.Handler {
    cfg := config
    if cfg.ErrorHandler == nil {
        cfg.ErrorHandler = ConfigDefault.ErrorHandler
    }
    if cfg.Header == "" {
        cfg.Header = ConfigDefault.Header
    }

    return func(c *fiber.Ctx) error {
        // Don't execute middleware if Next returns true
        if cfg.Next != nil && cfg.Next(c) {
            return c.Next()
        }

        authHeader := c.Get(cfg.Header)
        if authHeader == "" {
            return cfg.ErrorHandler(c, errMissingKey)
        }

        // For "Bearer " prefixed tokens
        token := strings.TrimPrefix(authHeader, "Bearer ")

        valid, err := cfg.Validator(token)
        if err != nil {
            return cfg.ErrorHandler(c, err)
        }
        if !valid {
            return cfg.ErrorHandler(c, errInvalidKey)
        }

        return c.Next()
    }
}

// AdminOnly guards admin routes with a shared key. An empty key disables the
// check, which is only meant for local runs.
func AdminOnly(adminKey string) fiber.Handler {
    return NewAuth(AuthConfig{
        Next: func(c *fiber.Ctx) bool {
            return adminKey == ""
        },
        Validator: func(key string) (bool, error) {
            return subtle.ConstantTimeCompare([]byte(key), []byte(adminKey)) == 1, nil
        },
    })
}
