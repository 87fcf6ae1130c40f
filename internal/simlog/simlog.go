/*
 * coresim - Wrapper for slog, adapted from the S370 project's logger.
 */

// Package simlog adapts the project's slog.Handler wrapper to a simulator
// that runs many cores and threads concurrently: every record is tagged
// with the core/thread it came from (when the caller attaches one via
// WithComponent) and, when a logged error wraps one of internal/simerr's
// sentinel kinds, with that kind's short name, so a shared log stream from
// several goroutines stays attributable to one execution context.
package simlog

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/arthursmith001/coresim/internal/simerr"
)

type componentKey struct{}

// component identifies the core/thread a log record was emitted from.
type component struct {
	core   int
	thread int
}

// WithComponent returns a context tagging every record logged through it
// with the given core and thread index, so concurrent cores' interleaved
// log lines can be told apart.
func WithComponent(ctx context.Context, core, thread int) context.Context {
	return context.WithValue(ctx, componentKey{}, component{core: core, thread: thread})
}

var kindNames = []struct {
	err  error
	name string
}{
	{simerr.ErrInvalidPC, "invalid-pc"},
	{simerr.ErrStackUnderflow, "stack-underflow"},
	{simerr.ErrInvalidRegister, "invalid-register"},
	{simerr.ErrDivisionByZero, "division-by-zero"},
	{simerr.ErrUnknownOpcode, "unknown-opcode"},
	{simerr.ErrMemoryOutOfRange, "memory-out-of-range"},
}

// kindTag returns the short name of the simerr sentinel err wraps, or ""
// if err is nil or doesn't wrap one of them.
func kindTag(err error) string {
	if err == nil {
		return ""
	}
	for _, k := range kindNames {
		if errors.Is(err, k.err) {
			return k.name
		}
	}
	return ""
}

// Handler is a slog.Handler that writes formatted text to an optional
// sink, and mirrors to stderr whenever debug mode is on or the record is
// above debug level.
type Handler struct {
	out   io.Writer
	h     slog.Handler
	mu    *sync.Mutex
	debug bool
}

func (h *Handler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.h.Enabled(ctx, level)
}

func (h *Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &Handler{h: h.h.WithAttrs(attrs), mu: h.mu, out: h.out, debug: h.debug}
}

func (h *Handler) WithGroup(name string) slog.Handler {
	return &Handler{h: h.h.WithGroup(name), mu: h.mu, out: h.out, debug: h.debug}
}

func (h *Handler) Handle(ctx context.Context, r slog.Record) error {
	level := r.Level.String() + ":"
	formattedTime := r.Time.Format("2006/01/02 15:04:05")

	strs := []string{formattedTime, level}
	if c, ok := ctx.Value(componentKey{}).(component); ok {
		strs = append(strs, "core["+strconv.Itoa(c.core)+"/"+strconv.Itoa(c.thread)+"]")
	}
	strs = append(strs, r.Message)

	if r.NumAttrs() != 0 {
		r.Attrs(func(a slog.Attr) bool {
			strs = append(strs, a.Value.String())
			if err, ok := a.Value.Any().(error); ok {
				if kind := kindTag(err); kind != "" {
					strs = append(strs, "kind="+kind)
				}
			}
			return true
		})
	}
	result := strings.Join(strs, " ") + "\n"
	b := []byte(result)

	h.mu.Lock()
	defer h.mu.Unlock()

	var err error
	if h.out != nil {
		_, err = h.out.Write(b)
	}
	if h.debug || r.Level > slog.LevelDebug {
		_, err = os.Stderr.Write(b)
	}
	return err
}

// SetDebug toggles stderr mirroring of debug-level records.
func (h *Handler) SetDebug(debug bool) {
	h.debug = debug
}

// NewHandler builds a Handler writing to sink at the given level.
func NewHandler(sink io.Writer, level slog.Level, debug bool) *Handler {
	return &Handler{
		out:   sink,
		h:     slog.NewTextHandler(sink, &slog.HandlerOptions{Level: level}),
		mu:    &sync.Mutex{},
		debug: debug,
	}
}

// New builds a ready-to-use *slog.Logger over NewHandler, defaulting the
// sink to io.Discard when nil so slog.NewTextHandler never receives one.
func New(sink io.Writer, level slog.Level, debug bool) *slog.Logger {
	if sink == nil {
		sink = io.Discard
	}
	return slog.New(NewHandler(sink, level, debug))
}
