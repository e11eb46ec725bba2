package logging

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func TestStageLogsAtDebug(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), New("debug", &buf))

	Stage(ctx, "TRANSFORM", "evaluating variable expressions")

	out := buf.String()
	if !strings.Contains(out, "\"level\":\"debug\"") {
		t.Errorf("expected a debug-level log line, got %q", out)
	}
	if !strings.Contains(out, "\"stage\":\"TRANSFORM\"") {
		t.Errorf("expected a stage field, got %q", out)
	}
}

func TestStageErrorLogsAtError(t *testing.T) {
	var buf bytes.Buffer
	ctx := WithContext(context.Background(), New("debug", &buf))

	StageError(ctx, "FIT", errBoom{})

	out := buf.String()
	if !strings.Contains(out, "\"level\":\"error\"") {
		t.Errorf("expected an error-level log line, got %q", out)
	}
}

type errBoom struct{}

func (errBoom) Error() string { return "boom" }

func TestFromContextFallsBackToNopLogger(t *testing.T) {
	logger := FromContext(context.Background())
	// Should not panic, and should produce no output since it's a no-op logger.
	logger.Info().Msg("this should not print")
}
