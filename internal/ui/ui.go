// Package ui renders the single-page front-end and the reference prompt.
package ui

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"

	"md2docx/internal/domain"
)

//go:embed index.html.tmpl
var indexTemplate string

//go:embed prompt.txt
var prompt string

// Prompt returns the instructions for producing pandoc-friendly Markdown.
func Prompt() string {
	return prompt
}

type pageData struct {
	Prompt            string
	MaxMarkdownBytes  int
	MaxReferenceBytes int
}

// Page is the rendered index page. It is rendered once at startup since none
// of its inputs change while the process runs.
type Page struct {
	html []byte
}

// NewPage renders the index template with the prompt and payload limits.
func NewPage(limits domain.Limits) (*Page, error) {
	tmpl, err := template.New("index").Parse(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("parse index template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, pageData{
		Prompt:            prompt,
		MaxMarkdownBytes:  limits.MaxMarkdownBytes,
		MaxReferenceBytes: limits.MaxReferenceBytes,
	}); err != nil {
		return nil, fmt.Errorf("render index template: %w", err)
	}
	return &Page{html: buf.Bytes()}, nil
}

// HTML returns the rendered page.
func (p *Page) HTML() []byte {
	return p.html
}
