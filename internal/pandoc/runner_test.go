//go:build !windows

package pandoc

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExecRunner_CapturesStreamsAndExitCode(t *testing.T) {
	res, err := ExecRunner{}.Run(context.Background(), "/bin/sh", "-c", "echo out; echo err 1>&2; exit 3")
	require.NoError(t, err)
	assert.Equal(t, "out\n", res.Stdout)
	assert.Equal(t, "err\n", res.Stderr)
	assert.Equal(t, 3, res.ExitCode)
}

func TestExecRunner_Success(t *testing.T) {
	res, err := ExecRunner{}.Run(context.Background(), "/bin/sh", "-c", "printf ok")
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "ok", res.Stdout)
}

func TestExecRunner_MissingBinary(t *testing.T) {
	_, err := ExecRunner{}.Run(context.Background(), "/definitely/missing/pandoc", "--version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "starting /definitely/missing/pandoc")
}

func TestExecRunner_TimeoutKillsProcessGroup(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	// The child sleep shares the group and keeps stdout open; it must die too.
	_, err := ExecRunner{}.Run(ctx, "/bin/sh", "-c", "sleep 30 & sleep 30")
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestConverter_TimeoutSurfacesAsConversionError(t *testing.T) {
	script := filepath.Join(t.TempDir(), "hung-pandoc")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nsleep 30\n"), 0o755))

	c := &Converter{Path: script, Timeout: 100 * time.Millisecond, Runner: ExecRunner{}}
	_, err := c.ToHTMLFragment(context.Background(), "in.md")
	require.Error(t, err)

	var convErr *ConversionError
	require.True(t, errors.As(err, &convErr))
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, script, convErr.Command[0])
}
