package serverutils

import (
	"errors"

	"github.com/gofiber/fiber/v2"
)

// APIError carries an HTTP status with a client-safe message. Internal error
// detail stays in the logs, never in the response body.
type APIError struct {
	Code    int    `json:"-"`
	Message string `json:"error"`
}

func (e *APIError) Error() string {
	return e.Message
}

func NewValidationError(message string) *APIError {
	return &APIError{Code: fiber.StatusBadRequest, Message: message}
}

func NewUnauthorizedError() *APIError {
	return &APIError{Code: fiber.StatusUnauthorized, Message: "Unauthorized"}
}

func NewInternalError() *APIError {
	return &APIError{Code: fiber.StatusInternalServerError, Message: "Internal server error"}
}

// ErrorHandlerMiddleware converts errors returned by handlers into the JSON
// error envelope. Unknown errors are masked as internal errors.
func ErrorHandlerMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}

		var apiErr *APIError
		if errors.As(err, &apiErr) {
			return c.Status(apiErr.Code).JSON(fiber.Map{"error": apiErr.Message})
		}

		var fiberErr *fiber.Error
		if errors.As(err, &fiberErr) {
			return c.Status(fiberErr.Code).JSON(fiber.Map{"error": fiberErr.Message})
		}

		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Internal server error"})
	}
}
