package handlers

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"md2docx/internal/domain"
	"md2docx/internal/infra/metrics"
	"md2docx/internal/ui"
)

func TestHandleIndexAndPrompt(t *testing.T) {
	page, err := ui.NewPage(domain.Limits{MaxMarkdownBytes: 10, MaxReferenceBytes: 20})
	require.NoError(t, err)

	app := fiber.New()
	app.Get("/", HandleIndex(page))
	app.Get("/prompt", HandlePrompt)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, fiber.MIMETextHTMLCharsetUTF8, resp.Header.Get("Content-Type"))
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "<form")

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/prompt", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, fiber.MIMETextPlainCharsetUTF8, resp.Header.Get("Content-Type"))
	body, _ = io.ReadAll(resp.Body)
	assert.Equal(t, ui.Prompt(), string(body))
}

func TestHandleMetrics(t *testing.T) {
	metrics.Conversions.WithLabelValues("convert", metrics.OutcomeOK).Inc()

	app := fiber.New()
	app.Get("/metrics", HandleMetrics())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), "md2docx_conversions_total")
}

func TestErrorHandler_PlainError(t *testing.T) {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Get("/boom", func(c *fiber.Ctx) error { return io.ErrUnexpectedEOF })

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/boom", nil))
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, io.ErrUnexpectedEOF.Error(), decodeJSON(t, resp)["error"])
}
