// Package pandoc invokes the pandoc CLI to turn Markdown into Word documents
// or HTML/MathML fragments.
package pandoc

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"md2docx/internal/config"
	"md2docx/internal/domain"
)

// DefaultFromFormat enables dollar and backslash delimited TeX math plus raw
// TeX passthrough.
const DefaultFromFormat = "markdown+tex_math_dollars+tex_math_single_backslash+raw_tex"

// Converter builds pandoc command lines and checks their results.
type Converter struct {
	Path       string
	FromFormat string
	// Timeout bounds each invocation; zero means no limit beyond ctx.
	Timeout time.Duration
	Runner  Runner
}

// NewConverter creates a Converter with a real command runner.
func NewConverter(cfg config.PandocConfig) *Converter {
	return &Converter{
		Path:       cfg.Path,
		FromFormat: cfg.FromFormat,
		Timeout:    cfg.Timeout,
		Runner:     ExecRunner{},
	}
}

func (c *Converter) path() string {
	if c.Path == "" {
		return "pandoc"
	}
	return c.Path
}

func (c *Converter) fromFormat() string {
	if c.FromFormat == "" {
		return DefaultFromFormat
	}
	return c.FromFormat
}

// Settings identifies the binary and input format that shape the output.
func (c *Converter) Settings() string {
	return c.path() + "\x00" + c.fromFormat()
}

// DocxArgs returns the argument list used by ToDocx.
func (c *Converter) DocxArgs(inputPath, outputPath, referencePath string) []string {
	args := []string{
		inputPath,
		"-f", c.fromFormat(),
		"-t", "docx",
		"-o", outputPath,
		"--standalone",
	}
	if referencePath != "" {
		args = append(args, "--reference-doc", referencePath)
	}
	return args
}

// HTMLArgs returns the argument list used by ToHTMLFragment.
func (c *Converter) HTMLArgs(inputPath string) []string {
	return []string{
		inputPath,
		"-f", c.fromFormat(),
		"-t", "html",
		"--mathml",
		"--wrap=none",
	}
}

func (c *Converter) run(ctx context.Context, args []string) (Result, error) {
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	return c.Runner.Run(ctx, c.path(), args...)
}

// ToDocx converts the Markdown file at inputPath into a .docx at outputPath.
// referencePath is optional. The conversion succeeds only if pandoc exits
// with status zero and outputPath exists afterwards.
func (c *Converter) ToDocx(ctx context.Context, inputPath, outputPath, referencePath string) error {
	args := c.DocxArgs(inputPath, outputPath, referencePath)
	res, err := c.run(ctx, args)
	if err != nil {
		return c.failure(args, res, err)
	}
	if res.ExitCode != 0 {
		return c.failure(args, res, nil)
	}
	if _, statErr := os.Stat(outputPath); statErr != nil {
		if errors.Is(statErr, os.ErrNotExist) {
			return c.failure(args, res, domain.ErrOutputMissing)
		}
		return c.failure(args, res, statErr)
	}
	return nil
}

// ToHTMLFragment converts the Markdown file at inputPath into an HTML
// fragment with MathML math. Empty output is an error.
func (c *Converter) ToHTMLFragment(ctx context.Context, inputPath string) (string, error) {
	args := c.HTMLArgs(inputPath)
	res, err := c.run(ctx, args)
	if err != nil {
		return "", c.failure(args, res, err)
	}
	if res.ExitCode != 0 {
		return "", c.failure(args, res, nil)
	}
	if strings.TrimSpace(res.Stdout) == "" {
		return "", c.failure(args, res, domain.ErrEmptyOutput)
	}
	return res.Stdout, nil
}

// Version runs pandoc --version. The error is non-nil only if the binary
// could not be run at all.
func (c *Converter) Version(ctx context.Context) (Result, error) {
	return c.run(ctx, []string{"--version"})
}

func (c *Converter) failure(args []string, res Result, err error) *ConversionError {
	return &ConversionError{
		Command:  append([]string{c.path()}, args...),
		ExitCode: res.ExitCode,
		Stdout:   res.Stdout,
		Stderr:   res.Stderr,
		Err:      err,
	}
}
