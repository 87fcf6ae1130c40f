package simlog

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/arthursmith001/coresim/internal/simerr"
)

func TestHandleTagsComponentFromContext(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, true)

	ctx := WithComponent(context.Background(), 2, 1)
	logger.InfoContext(ctx, "thread step failed")

	if !strings.Contains(buf.String(), "core[2/1]") {
		t.Fatalf("log line %q missing core/thread tag", buf.String())
	}
}

func TestHandleOmitsComponentWhenUntagged(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, true)

	logger.Info("simulation complete")

	if strings.Contains(buf.String(), "core[") {
		t.Fatalf("log line %q should not carry a component tag", buf.String())
	}
}

func TestHandleTagsSimerrKind(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, true)

	wrapped := fmt.Errorf("executing DIV: %w", simerr.ErrDivisionByZero)
	logger.Error("thread step failed", "err", wrapped)

	if !strings.Contains(buf.String(), "kind=division-by-zero") {
		t.Fatalf("log line %q missing kind tag", buf.String())
	}
}

func TestHandleOmitsKindForUnrelatedErrors(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, slog.LevelInfo, true)

	logger.Error("cannot load program", "err", fmt.Errorf("open x: no such file"))

	if strings.Contains(buf.String(), "kind=") {
		t.Fatalf("log line %q should not carry a kind tag", buf.String())
	}
}

func TestSetDebugTogglesStderrMirror(t *testing.T) {
	h := NewHandler(nil, slog.LevelInfo, false)
	h.SetDebug(true)
	if !h.debug {
		t.Fatalf("SetDebug(true) did not take effect")
	}
}
