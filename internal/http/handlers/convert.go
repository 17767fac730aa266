package handlers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/valyala/fasthttp"

	"md2docx/internal/config"
	"md2docx/internal/domain"
	"md2docx/internal/infra/cache"
	"md2docx/internal/infra/logging"
	"md2docx/internal/infra/metrics"
	"md2docx/internal/pandoc"
	"md2docx/internal/workspace"
)

const (
	endpointConvert     = "convert"
	endpointConvertHTML = "convert_html"
)

// ConversionService bundles configuration and dependencies for conversions.
type ConversionService struct {
	Converter *pandoc.Converter
	Cache     *cache.ResultCache
	Limits    domain.Limits
	WorkDir   string
}

// NewConversionService creates a ConversionService from configuration.
// rc may be nil to disable result caching.
func NewConversionService(cfg config.Config, conv *pandoc.Converter, rc *cache.ResultCache) *ConversionService {
	return &ConversionService{
		Converter: conv,
		Cache:     rc,
		Limits: domain.Limits{
			MaxMarkdownBytes:  cfg.Limits.MaxMarkdownBytes,
			MaxReferenceBytes: cfg.Limits.MaxReferenceBytes,
		},
		WorkDir: cfg.Pandoc.WorkDir,
	}
}

// HandleConvert turns the submitted Markdown into a .docx attachment.
func (svc *ConversionService) HandleConvert(c *fiber.Ctx) error {
	req, err := svc.extractRequest(c, true)
	if err != nil {
		metrics.Conversions.WithLabelValues(endpointConvert, metrics.OutcomeTooLarge).Inc()
		return err
	}

	filename := req.Filename()
	key := cache.Key(cache.KindDocx, svc.Converter.Settings(), req.Markdown, req.Reference)
	if cached := svc.Cache.Get(c.UserContext(), key); cached != nil {
		metrics.CacheHits.WithLabelValues(string(cache.KindDocx)).Inc()
		metrics.Conversions.WithLabelValues(endpointConvert, metrics.OutcomeCached).Inc()
		return sendDocx(c, filename, cached)
	}

	doc, err := svc.renderDocx(c.UserContext(), req)
	if err != nil {
		metrics.Conversions.WithLabelValues(endpointConvert, metrics.OutcomeFailed).Inc()
		logging.Error("DOCX conversion failed", "error", err, "request_id", requestID(c))
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
	svc.Cache.Set(c.UserContext(), key, doc)
	metrics.Conversions.WithLabelValues(endpointConvert, metrics.OutcomeOK).Inc()

	logging.Info("DOCX generated", "filename", filename, "bytes", len(doc), "request_id", requestID(c))
	return sendDocx(c, filename, doc)
}

// HandleConvertHTML returns an HTML/MathML fragment for clipboard pasting.
// The stem and reference fields are accepted but ignored.
func (svc *ConversionService) HandleConvertHTML(c *fiber.Ctx) error {
	req, err := svc.extractRequest(c, false)
	if err != nil {
		metrics.Conversions.WithLabelValues(endpointConvertHTML, metrics.OutcomeTooLarge).Inc()
		return err
	}

	key := cache.Key(cache.KindHTML, svc.Converter.Settings(), req.Markdown, nil)
	fragment := svc.Cache.Get(c.UserContext(), key)
	if fragment != nil {
		metrics.CacheHits.WithLabelValues(string(cache.KindHTML)).Inc()
		metrics.Conversions.WithLabelValues(endpointConvertHTML, metrics.OutcomeCached).Inc()
	} else {
		out, err := svc.renderFragment(c.UserContext(), req)
		if err != nil {
			metrics.Conversions.WithLabelValues(endpointConvertHTML, metrics.OutcomeFailed).Inc()
			logging.Error("HTML fragment conversion failed", "error", err, "request_id", requestID(c))
			return fiber.NewError(fiber.StatusInternalServerError, err.Error())
		}
		fragment = []byte(out)
		svc.Cache.Set(c.UserContext(), key, fragment)
		metrics.Conversions.WithLabelValues(endpointConvertHTML, metrics.OutcomeOK).Inc()
	}

	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Send(fragment)
}

// extractRequest reads the form and enforces the payload caps before any
// file is staged.
func (svc *ConversionService) extractRequest(c *fiber.Ctx, withReference bool) (domain.ConversionRequest, error) {
	if isMultipart(c) {
		if _, err := c.MultipartForm(); err != nil {
			return domain.ConversionRequest{}, fiber.NewError(fiber.StatusBadRequest, "cannot parse multipart form: "+err.Error())
		}
	}

	req := domain.ConversionRequest{
		Markdown: c.FormValue("md"),
		Stem:     c.FormValue("stem"),
	}

	if withReference {
		ref, err := svc.readReference(c)
		if err != nil {
			return req, err
		}
		req.Reference = ref
	}

	if err := req.Validate(svc.Limits); err != nil {
		if errors.Is(err, domain.ErrPayloadTooLarge) {
			return req, fiber.NewError(fiber.StatusRequestEntityTooLarge, err.Error())
		}
		return req, fiber.NewError(fiber.StatusBadRequest, err.Error())
	}
	return req, nil
}

func isMultipart(c *fiber.Ctx) bool {
	ct := strings.ToLower(string(c.Request().Header.ContentType()))
	return strings.HasPrefix(ct, fiber.MIMEMultipartForm)
}

// readReference returns the uploaded template, or nil when none was sent.
func (svc *ConversionService) readReference(c *fiber.Ctx) ([]byte, error) {
	fh, err := c.FormFile("reference")
	switch {
	case errors.Is(err, fasthttp.ErrMissingFile), errors.Is(err, fasthttp.ErrNoMultipartForm):
		return nil, nil
	case err != nil:
		return nil, fiber.NewError(fiber.StatusBadRequest, "cannot read reference upload: "+err.Error())
	}
	return readUpload(fh, int64(svc.Limits.MaxReferenceBytes))
}

// readUpload reads a template upload, enforcing limit when it is positive.
// An empty or unnamed file part counts as no template.
func readUpload(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	if fh == nil || fh.Filename == "" || fh.Size == 0 {
		return nil, nil
	}

	if limit > 0 && fh.Size > limit {
		return nil, fiber.NewError(fiber.StatusRequestEntityTooLarge,
			fmt.Sprintf("%v: reference document is %d bytes, limit is %d", domain.ErrPayloadTooLarge, fh.Size, limit))
	}

	f, err := fh.Open()
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "cannot read reference upload: "+err.Error())
	}
	defer f.Close()

	var r io.Reader = f
	if limit > 0 {
		// One extra byte lets Validate see an oversized body if Size lied.
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "cannot read reference upload: "+err.Error())
	}
	return data, nil
}

func (svc *ConversionService) renderDocx(ctx context.Context, req domain.ConversionRequest) ([]byte, error) {
	ws, err := workspace.New(svc.WorkDir)
	if err != nil {
		return nil, err
	}
	defer closeWorkspace(ws)

	mdPath, err := ws.WriteMarkdown(req.Markdown)
	if err != nil {
		return nil, err
	}
	var refPath string
	if req.HasReference() {
		if refPath, err = ws.WriteReference(req.Reference); err != nil {
			return nil, err
		}
	}

	out := ws.OutputPath()
	start := time.Now()
	err = svc.Converter.ToDocx(ctx, mdPath, out, refPath)
	metrics.PandocDuration.WithLabelValues("docx").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	return ws.ReadFile(out)
}

func (svc *ConversionService) renderFragment(ctx context.Context, req domain.ConversionRequest) (string, error) {
	ws, err := workspace.New(svc.WorkDir)
	if err != nil {
		return "", err
	}
	defer closeWorkspace(ws)

	mdPath, err := ws.WriteMarkdown(req.Markdown)
	if err != nil {
		return "", err
	}

	start := time.Now()
	out, err := svc.Converter.ToHTMLFragment(ctx, mdPath)
	metrics.PandocDuration.WithLabelValues("html").Observe(time.Since(start).Seconds())
	return out, err
}

func closeWorkspace(ws *workspace.Workspace) {
	dir := ws.Dir
	if err := ws.Close(); err != nil {
		logging.Warn("Workspace cleanup failed", "dir", dir, "error", err)
	}
}

func sendDocx(c *fiber.Ctx, filename string, doc []byte) error {
	c.Set(fiber.HeaderContentType, domain.DocxContentType)
	c.Set(fiber.HeaderContentDisposition, contentDisposition(filename))
	return c.Send(doc)
}

// contentDisposition builds an attachment header with an ASCII fallback and
// an RFC 5987 encoded name for non-ASCII stems.
func contentDisposition(filename string) string {
	fallback := strings.Map(func(r rune) rune {
		if r < 0x20 || r > 0x7e || r == '"' || r == '\\' {
			return '_'
		}
		return r
	}, filename)
	return fmt.Sprintf(`attachment; filename="%s"; filename*=UTF-8''%s`, fallback, url.PathEscape(filename))
}

func requestID(c *fiber.Ctx) string {
	if id := c.Get(fiber.HeaderXRequestID); id != "" {
		return id
	}
	return c.GetRespHeader(fiber.HeaderXRequestID)
}
