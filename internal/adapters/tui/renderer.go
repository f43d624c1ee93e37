package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.trai.ch/extbuild/internal/adapters/telemetry"
	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/extbuild/internal/core/ports"
)

var _ ports.Renderer = (*Renderer)(nil)

// Renderer drives a Model through a Bubble Tea program.
type Renderer struct {
	program *tea.Program
	errCh   chan error
}

// NewRenderer creates a renderer for model.
func NewRenderer(model *Model, opts ...tea.ProgramOption) *Renderer {
	return &Renderer{
		program: tea.NewProgram(model, opts...),
		errCh:   make(chan error, 1),
	}
}

// Start runs the program in the background.
func (r *Renderer) Start(_ context.Context) error {
	go func() {
		final, err := r.program.Run()
		if err == nil {
			if m, ok := final.(*Model); ok && m.Interrupted() {
				err = domain.ErrBuildInterrupted
			}
		}
		r.errCh <- err
	}()
	return nil
}

// Stop asks the program to quit after drawing its last frame.
func (r *Renderer) Stop() error {
	r.program.Quit()
	return nil
}

// Wait blocks until the program has exited. It returns
// domain.ErrBuildInterrupted when the user aborted the run.
func (r *Renderer) Wait() error {
	return <-r.errCh
}

// OnPlanEmit resets the task list.
func (r *Renderer) OnPlanEmit(tasks []string, deps map[string][]string, targets []string) {
	r.program.Send(telemetry.MsgInitTasks{
		Tasks:        tasks,
		Dependencies: deps,
		Targets:      targets,
	})
}

// OnTaskStart marks a task as running.
func (r *Renderer) OnTaskStart(spanID, parentID, name string, startTime time.Time) {
	r.program.Send(telemetry.MsgTaskStart{
		SpanID:    spanID,
		ParentID:  parentID,
		Name:      name,
		StartTime: startTime,
	})
}

// OnTaskLog appends output to the task's pane.
func (r *Renderer) OnTaskLog(spanID string, data []byte) {
	buf := make([]byte, len(data))
	copy(buf, data)
	r.program.Send(telemetry.MsgTaskLog{SpanID: spanID, Data: buf})
}

// OnTaskComplete records the outcome of a task.
func (r *Renderer) OnTaskComplete(spanID string, endTime time.Time, err error, cached bool) {
	r.program.Send(telemetry.MsgTaskComplete{
		SpanID:  spanID,
		EndTime: endTime,
		Err:     err,
		Cached:  cached,
	})
}

// Program returns the underlying program.
func (r *Renderer) Program() *tea.Program {
	return r.program
}
