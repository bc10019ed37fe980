package middleware

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"
)

// ErrorHandler renders errors as JSON {message}. Errors that are not
// *fiber.Error are logged and reported as a generic 500.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "Something went wrong"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			reqID, _ := c.Locals(LocalRequestID).(string)
			logger.Error("unhandled error", slog.String("path", c.Path()), slog.String("request_id", reqID), slog.Any("error", err))
		}
		return c.Status(code).JSON(fiber.Map{"message": message})
	}
}
