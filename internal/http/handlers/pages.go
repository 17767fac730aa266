package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"md2docx/internal/ui"
)

// HandleIndex serves the pre-rendered front-end page.
func HandleIndex(page *ui.Page) fiber.Handler {
	return func(c *fiber.Ctx) error {
		c.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
		return c.Send(page.HTML())
	}
}

// HandlePrompt serves the reference prompt as plain text.
func HandlePrompt(c *fiber.Ctx) error {
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.SendString(ui.Prompt())
}

// HandleMetrics exposes the default Prometheus registry.
func HandleMetrics() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
