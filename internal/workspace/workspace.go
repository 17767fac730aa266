// Package workspace stages per-request files in a private temporary directory.
package workspace

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	markdownName  = "input.md"
	referenceName = "reference.docx"
	outputName    = "result.docx"
)

// Workspace is a temporary directory owned by a single request. Close removes
// it and everything in it.
type Workspace struct {
	Dir string
}

// New creates a workspace under base, or under os.TempDir() when base is empty.
func New(base string) (*Workspace, error) {
	if base != "" {
		if err := os.MkdirAll(base, 0o700); err != nil {
			return nil, fmt.Errorf("cannot create workspace base %s: %w", base, err)
		}
	}
	dir, err := os.MkdirTemp(base, "md2docx-*")
	if err != nil {
		return nil, fmt.Errorf("cannot create workspace: %w", err)
	}
	return &Workspace{Dir: dir}, nil
}

// WriteMarkdown stores the Markdown input as UTF-8 and returns its path.
func (w *Workspace) WriteMarkdown(md string) (string, error) {
	return w.write(markdownName, []byte(md))
}

// WriteReference stores the reference template and returns its path.
func (w *Workspace) WriteReference(data []byte) (string, error) {
	return w.write(referenceName, data)
}

// OutputPath returns where the converter should write the document. The name
// is fixed so a user-chosen stem can never collide with the staged inputs.
func (w *Workspace) OutputPath() string {
	return filepath.Join(w.Dir, outputName)
}

// ReadFile reads a file produced inside the workspace.
func (w *Workspace) ReadFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

// Close removes the workspace. It is safe to call more than once.
func (w *Workspace) Close() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	err := os.RemoveAll(w.Dir)
	w.Dir = ""
	return err
}

func (w *Workspace) write(name string, data []byte) (string, error) {
	path := filepath.Join(w.Dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("cannot stage %s: %w", name, err)
	}
	return path, nil
}
