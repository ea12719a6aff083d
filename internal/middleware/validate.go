package middleware

import (
    "errors"
    "net/http"

    "github.com/bilgisen/newscurator/internal/logger"
    "github.com/go-playground/validator/v10"
    "github.com/gofiber/fiber/v2"
)

// QueryParamsKey is where ValidateQueryParams stores the parsed params
const QueryParamsKey = "queryParams"

var validate = validator.New()

// ValidateQueryParams parses query parameters into a fresh value from
// newParams and validates it. The result is stored under QueryParamsKey.
func ValidateQueryParams(newParams func() interface{}) fiber.Handler {
    return func(c *fiber.Ctx) error {
        params := newParams()

        // Parse query parameters into the provided struct
        if err := c.QueryParser(params); err != nil {
            return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
                "error": "Invalid query parameters",
                "msg":   err.Error(),
            })
        }

        // Validate the struct
        if err := validate.Struct(params); err != nil {
            var verrs validator.ValidationErrors
            if !errors.As(err, &verrs) {
                return err
            }
            fields := make(map[string]string, len(verrs))
            for _, fe := range verrs {
                fields[fe.Field()] = fe.Tag()
            }

            return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
                "error":  "Invalid query parameters",
                "fields": fields,
            })
        }

        c.Locals(QueryParamsKey, params)
        return c.Next()
    }
}

// ErrorHandler is a middleware that handles errors in a consistent way
func ErrorHandler(c *fiber.Ctx, err error) error {
    // Default status code
    code := fiber.StatusInternalServerError

    // Check if it's a fiber error
    var fe *fiber.Error
    if errors.As(err, &fe) {
        code = fe.Code
    }

    // Log the error
    logger.Get().Error().
        Err(err).
        Str("method", c.Method()).
        Str("path", c.Path()).
        Int("status", code).
        Msg("HTTP error")

    // Return JSON response
    return c.Status(code).JSON(fiber.Map{
        "error": http.StatusText(code),
    })
}
