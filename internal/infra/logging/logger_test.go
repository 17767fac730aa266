package logging

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

// setupTestLogger configures a logger with a custom writer for tests
func setupTestLogger(output *bytes.Buffer, level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	SetLoggerForTest(zerolog.New(output).With().Timestamp().Logger().Level(lvl))
}

func TestInfoLogging(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "info")

	Info("test message", "foo", 42, "bar", true)

	logOutput := buf.String()
	if !strings.Contains(logOutput, "test message") {
		t.Error("Expected log message not found in output")
	}
	if !strings.Contains(logOutput, `"foo":42`) || !strings.Contains(logOutput, `"bar":true`) {
		t.Error("Expected key-value pairs not found in output")
	}
}

func TestWarnLogging(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "warn")

	Warn("something odd", "code", 99)

	if !strings.Contains(buf.String(), "something odd") || !strings.Contains(buf.String(), `"code":99`) {
		t.Error("Warn log output missing expected content")
	}
}

func TestErrorLogging_ErrorValues(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "error")

	Error("pandoc failed", "error", errors.New("exit status 1"))

	if !strings.Contains(buf.String(), `"error":"exit status 1"`) {
		t.Errorf("expected error value rendered as string, got %s", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "warn")

	Info("hidden")
	Debug("hidden too")

	if buf.Len() != 0 {
		t.Errorf("expected no output below warn, got %s", buf.String())
	}
}

func TestSetLogLevel(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "warn")

	SetLogLevel("info")
	Info("should be visible")

	if !strings.Contains(buf.String(), "should be visible") {
		t.Error("Expected info log after SetLogLevel not found")
	}
}

func TestDanglingKeyDoesNotPanic(t *testing.T) {
	var buf bytes.Buffer
	setupTestLogger(&buf, "info")

	SetLogLevel("invalid-level")
	Info("hello", "k", "v", "dangling")

	if !strings.Contains(buf.String(), `"dangling":null`) {
		t.Errorf("expected dangling key logged as null, got %s", buf.String())
	}
}

func TestInitLoggerWritesFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "md2docx.log")
	InitLogger(logFile, 1, 1, 1, false, "invalid")
	t.Cleanup(func() { SetLoggerForTest(zerolog.New(os.Stdout)) })

	Info("written to file", "k", "v")

	data, err := os.ReadFile(logFile)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), "written to file") {
		t.Errorf("expected log line in file, got %s", data)
	}
}
