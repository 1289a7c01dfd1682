package obs

import (
	"bytes"
	"strings"
	"testing"
)

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(WARN, &buf)

	logger.Info("should not appear")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below WARN, got %q", buf.String())
	}

	logger.Warn("should appear")
	if !strings.Contains(buf.String(), "should appear") {
		t.Fatalf("expected warning in output, got %q", buf.String())
	}
}

func TestWithFieldsMerges(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(DEBUG, &buf).WithField("component", "dispatcher")

	logger.Info("built", map[string]interface{}{"labels": 4})
	out := buf.String()
	if !strings.Contains(out, "component=dispatcher") {
		t.Fatalf("expected component field in output, got %q", out)
	}
	if !strings.Contains(out, "labels=4") {
		t.Fatalf("expected labels field in output, got %q", out)
	}
}

func TestLogOperationReportsSuccessAndFailure(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(INFO, &buf)

	if err := logger.LogOperation("build", func() error { return nil }); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(buf.String(), "operation completed: build") {
		t.Fatalf("expected completion message, got %q", buf.String())
	}

	buf.Reset()
	sentinel := errOp{}
	if err := logger.LogOperation("build", func() error { return sentinel }); err != sentinel {
		t.Fatalf("expected sentinel error to propagate, got %v", err)
	}
	if !strings.Contains(buf.String(), "operation failed: build") {
		t.Fatalf("expected failure message, got %q", buf.String())
	}
}

type errOp struct{}

func (errOp) Error() string { return "boom" }

func TestParseLogLevelDefaultsToInfo(t *testing.T) {
	if got := ParseLogLevel("nonsense"); got != INFO {
		t.Fatalf("ParseLogLevel(nonsense) = %v, want INFO", got)
	}
	if got := ParseLogLevel("debug"); got != DEBUG {
		t.Fatalf("ParseLogLevel(debug) = %v, want DEBUG", got)
	}
}
