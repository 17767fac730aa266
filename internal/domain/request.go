package domain

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultStem names the output when the client supplies none.
const DefaultStem = "output"

// maxStemRunes bounds the filename stem so the Content-Disposition header
// and the staged file names stay reasonable.
const maxStemRunes = 120

// DocxContentType is the media type of Word documents.
const DocxContentType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

// Limits are the payload caps applied before any conversion work starts.
type Limits struct {
	MaxMarkdownBytes  int
	MaxReferenceBytes int
}

// ConversionRequest is one form submission. It lives for a single request.
type ConversionRequest struct {
	Markdown string
	Stem     string
	// Reference is the optional reference.docx template; nil when absent.
	Reference []byte
}

// HasReference reports whether a template was uploaded.
func (r ConversionRequest) HasReference() bool {
	return len(r.Reference) > 0
}

// Filename returns the attachment name for the produced document.
func (r ConversionRequest) Filename() string {
	return SanitizeStem(r.Stem) + ".docx"
}

// Validate checks the payload sizes against limits. A zero limit disables
// the corresponding check.
func (r ConversionRequest) Validate(l Limits) error {
	if l.MaxMarkdownBytes > 0 && len(r.Markdown) > l.MaxMarkdownBytes {
		return fmt.Errorf("%w: markdown is %d bytes, limit is %d", ErrPayloadTooLarge, len(r.Markdown), l.MaxMarkdownBytes)
	}
	if l.MaxReferenceBytes > 0 && len(r.Reference) > l.MaxReferenceBytes {
		return fmt.Errorf("%w: reference document is %d bytes, limit is %d", ErrPayloadTooLarge, len(r.Reference), l.MaxReferenceBytes)
	}
	return nil
}

// SanitizeStem turns user input into a safe filename stem. It never returns
// an empty string.
func SanitizeStem(stem string) string {
	stem = strings.TrimSpace(stem)
	if !utf8.ValidString(stem) {
		stem = strings.ToValidUTF8(stem, "")
	}

	var b strings.Builder
	n := 0
	for _, r := range stem {
		if n == maxStemRunes {
			break
		}
		switch {
		case r == '-' || r == '_' || r == '.' || r == ' ':
			b.WriteRune(r)
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
		n++
	}

	out := strings.TrimSpace(strings.TrimLeft(b.String(), ". "))
	out = strings.TrimRight(out, ". ")
	if out == "" {
		return DefaultStem
	}
	return out
}
