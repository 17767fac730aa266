package server

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/monitor"

	"md2docx/internal/config"
	"md2docx/internal/domain"
	"md2docx/internal/http/handlers"
	"md2docx/internal/http/middleware"
	"md2docx/internal/infra/cache"
	"md2docx/internal/pandoc"
	"md2docx/internal/ui"
)

// Deps are the collaborators the HTTP layer needs. Converter is required;
// Cache and Tokens may be nil.
type Deps struct {
	Config    config.Config
	Converter *pandoc.Converter
	Cache     *cache.ResultCache
	Tokens    middleware.TokenStore
	Storage   fiber.Storage
}

// New creates and configures a new Fiber app instance.
func New(deps Deps) (*fiber.App, error) {
	cfg := deps.Config

	page, err := ui.NewPage(domain.Limits{
		MaxMarkdownBytes:  cfg.Limits.MaxMarkdownBytes,
		MaxReferenceBytes: cfg.Limits.MaxReferenceBytes,
	})
	if err != nil {
		return nil, err
	}

	app := fiber.New(fiber.Config{
		Prefork:               cfg.Server.Prefork,
		DisableStartupMessage: true,
		BodyLimit:             cfg.Limits.BodyLimit,
		ErrorHandler:          handlers.ErrorHandler,
	})

	middleware.Register(app, cfg, middleware.Deps{Tokens: deps.Tokens, Storage: deps.Storage})
	registerRoutes(app, cfg, deps, page)

	// Ensure all responses, including 404s, return JSON
	app.Use(func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusNotFound, "Not Found")
	})

	return app, nil
}

func registerRoutes(app *fiber.App, cfg config.Config, deps Deps, page *ui.Page) {
	svc := handlers.NewConversionService(cfg, deps.Converter, deps.Cache)

	app.Get("/", handlers.HandleIndex(page))
	app.Get("/prompt", handlers.HandlePrompt)
	app.Get("/health", handlers.HandleHealth(deps.Converter))
	app.Post("/convert", svc.HandleConvert)
	app.Post("/convert_html", svc.HandleConvertHTML)

	if cfg.Metrics.Enabled {
		app.Get(cfg.Metrics.Path, handlers.HandleMetrics())
		app.Get("/monitor", monitor.New())
	}
}
