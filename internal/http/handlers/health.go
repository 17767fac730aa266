package handlers

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/gofiber/fiber/v2"

	"md2docx/internal/infra/logging"
	"md2docx/internal/pandoc"
)

const (
	healthTimeout = 10 * time.Second
	headBytes     = 400
)

// VersionChecker runs the converter's version query.
type VersionChecker interface {
	Version(ctx context.Context) (pandoc.Result, error)
}

// HandleHealth reports whether pandoc can be executed. It always answers
// 200; failures are described in the body.
func HandleHealth(vc VersionChecker) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()

		res, err := vc.Version(ctx)
		if err != nil {
			logging.Warn("pandoc health check failed", "error", err)
			return c.JSON(fiber.Map{
				"ok":    false,
				"error": err.Error(),
			})
		}
		return c.JSON(fiber.Map{
			"ok":                 res.ExitCode == 0,
			"pandoc_rc":          res.ExitCode,
			"pandoc_stdout_head": head(res.Stdout, headBytes),
			"pandoc_stderr_head": head(res.Stderr, headBytes),
		})
	}
}

// head returns at most n bytes of s without splitting a UTF-8 sequence.
func head(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}
