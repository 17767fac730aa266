package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"md2docx/internal/config"
	"md2docx/internal/pandoc"
)

// fakeRunner stands in for the pandoc binary. When docx is set and the
// invocation succeeds it writes docx to the -o path.
type fakeRunner struct {
	mu       sync.Mutex
	calls    [][]string
	stdout   string
	stderr   string
	exitCode int
	err      error
	docx     []byte
}

func (f *fakeRunner) Run(_ context.Context, name string, args ...string) (pandoc.Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))

	if f.err == nil && f.exitCode == 0 && f.docx != nil {
		for i, a := range args {
			if a == "-o" && i+1 < len(args) {
				if err := os.WriteFile(args[i+1], f.docx, 0o600); err != nil {
					return pandoc.Result{}, err
				}
			}
		}
	}
	return pandoc.Result{Stdout: f.stdout, Stderr: f.stderr, ExitCode: f.exitCode}, f.err
}

func (f *fakeRunner) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeRunner) lastCall() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return nil
	}
	return f.calls[len(f.calls)-1]
}

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg := config.Default()
	cfg.Limits.MaxMarkdownBytes = 1024
	cfg.Limits.MaxReferenceBytes = 2048
	cfg.Pandoc.WorkDir = t.TempDir()
	cfg.Pandoc.Timeout = 5 * time.Second
	return cfg
}

func newTestService(t *testing.T, runner pandoc.Runner) (*ConversionService, config.Config) {
	t.Helper()
	cfg := testConfig(t)
	conv := pandoc.NewConverter(cfg.Pandoc)
	conv.Runner = runner
	return NewConversionService(cfg, conv, nil), cfg
}

func newTestApp(svc *ConversionService) *fiber.App {
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler})
	app.Post("/convert", svc.HandleConvert)
	app.Post("/convert_html", svc.HandleConvertHTML)
	return app
}

type formFile struct {
	field, name string
	data        []byte
}

func multipartRequest(t *testing.T, path string, fields map[string]string, files ...formFile) *http.Request {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			t.Fatalf("write field: %v", err)
		}
	}
	for _, f := range files {
		fw, err := w.CreateFormFile(f.field, f.name)
		if err != nil {
			t.Fatalf("create form file: %v", err)
		}
		if _, err := fw.Write(f.data); err != nil {
			t.Fatalf("write form file: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func decodeJSON(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
	return out
}

func assertWorkDirEmpty(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read workdir: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("expected workspace cleanup, found %d entries", len(entries))
	}
}
