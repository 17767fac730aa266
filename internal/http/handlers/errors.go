package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"md2docx/internal/infra/logging"
)

// ErrorHandler renders every error as {"error": message, "code": status}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	msg := "Internal Server Error"

	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
		msg = fe.Message
	} else if err != nil {
		msg = err.Error()
	}

	logging.Warn("Request failed", "path", c.Path(), "status", code, "request_id", requestID(c))

	return c.Status(code).JSON(fiber.Map{
		"error": msg,
		"code":  code,
	})
}
