// Package linear prints build progress one line at a time. It is the output of
// CI runs, of the watch session and of any run whose stderr is not a terminal.
package linear

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/muesli/termenv"
	"go.trai.ch/extbuild/internal/adapters/telemetry"
	"go.trai.ch/extbuild/internal/core/ports"
	"go.trai.ch/extbuild/internal/ui/output"
	"go.trai.ch/extbuild/internal/ui/style"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer writes task output to stdout and task progress to stderr. Every
// line names its task, so the interleaved output of concurrent bundles stays
// readable:
//
//	[build:popup] Starting...
//	[build:css] Error: expected "}".
//	[build:css] ! Continued after failure: ...
//	[build] ✓ Completed in 412ms
type Renderer struct {
	stdout io.Writer
	stderr io.Writer
	output *termenv.Output

	mu    sync.Mutex
	tasks map[string]*task // by span ID
}

type task struct {
	name    string
	started time.Time
	// partial holds output after the last newline until the task writes more.
	partial bytes.Buffer
}

// NewRenderer creates a new Renderer. Nil writers default to the process streams.
func NewRenderer(stdout, stderr io.Writer) *Renderer {
	if stdout == nil {
		stdout = os.Stdout
	}
	if stderr == nil {
		stderr = os.Stderr
	}

	return &Renderer{
		stdout: stdout,
		stderr: stderr,
		output: output.New(stderr),
		tasks:  make(map[string]*task),
	}
}

// Start is a no-op; lines are written as events arrive.
func (r *Renderer) Start(_ context.Context) error {
	return nil
}

// Stop prints the unterminated output of tasks that are still running.
func (r *Renderer) Stop() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range r.tasks {
		r.flushLocked(t)
	}
	return nil
}

// Wait is a no-op; lines are written as events arrive.
func (r *Renderer) Wait() error {
	return nil
}

// OnPlanEmit announces the run, e.g. "Planning 6 task(s) for build".
func (r *Renderer) OnPlanEmit(tasks []string, _ map[string][]string, targets []string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.stderr, "Planning %d task(s) for %s\n", len(tasks), strings.Join(targets, ", "))
}

// OnTaskStart announces a task.
func (r *Renderer) OnTaskStart(spanID, _, name string, startTime time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tasks[spanID] = &task{name: name, started: startTime}
	r.progressLocked(name, "Starting...")
}

// OnTaskLog prints every complete line of esbuild, sass or packager output.
// A trailing partial line waits for the rest of it.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[spanID]
	if !ok {
		return
	}

	t.partial.Write(data)
	for {
		line, err := t.partial.ReadBytes('\n')
		if err != nil {
			t.partial.Reset()
			t.partial.Write(line)
			return
		}
		r.printLocked(t.name, line)
	}
}

// OnTaskComplete prints the task's remaining output and its outcome.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error, cached bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[spanID]
	if !ok {
		return
	}
	delete(r.tasks, spanID)

	r.flushLocked(t)
	r.progressLocked(t.name, r.outcome(endTime.Sub(t.started).Round(time.Millisecond), err, cached))
}

// outcome describes how a task ended. Tolerated failures, such as a
// stylesheet that did not compile, are told apart from failures that stop
// the build.
func (r *Renderer) outcome(took time.Duration, err error, cached bool) string {
	symbol := func(s string, c termenv.Color) string {
		return r.output.String(s).Foreground(c).String()
	}

	switch {
	case telemetry.IsTolerated(err):
		return fmt.Sprintf("%s Continued after failure: %v", symbol(style.Warning, termenv.ANSIYellow), err)
	case err != nil:
		return fmt.Sprintf("%s Failed after %v: %v", symbol(style.Cross, termenv.ANSIRed), took, err)
	case cached:
		return symbol(style.Tilde, termenv.ANSIYellow) + " Cached"
	default:
		return fmt.Sprintf("%s Completed in %v", symbol(style.Check, termenv.ANSIGreen), took)
	}
}

// progressLocked writes a progress line to stderr with a faint task prefix.
// Must be called with r.mu held.
func (r *Renderer) progressLocked(name, msg string) {
	prefix := r.output.String("[" + name + "]").Faint().String()
	_, _ = fmt.Fprintf(r.stderr, "%s %s\n", prefix, msg)
}

// flushLocked prints whatever partial line a task left behind.
// Must be called with r.mu held.
func (r *Renderer) flushLocked(t *task) {
	if t.partial.Len() > 0 {
		r.printLocked(t.name, t.partial.Bytes())
		t.partial.Reset()
	}
}

// printLocked writes one line of task output to stdout. Blank lines are
// dropped. Must be called with r.mu held.
func (r *Renderer) printLocked(name string, line []byte) {
	line = bytes.TrimSuffix(line, []byte("\n"))
	line = bytes.TrimSuffix(line, []byte("\r"))
	if len(line) == 0 {
		return
	}
	_, _ = fmt.Fprintf(r.stdout, "[%s] %s\n", name, line)
}
