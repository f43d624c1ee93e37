package tui_test

import (
	"errors"
	"io"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/extbuild/internal/adapters/telemetry"
	"go.trai.ch/extbuild/internal/adapters/tui"
)

var planTasks = []string{"build:popup", "build:css", "build"}

func newModel(t *testing.T) *tui.Model {
	t.Helper()
	t.Setenv("NO_COLOR", "1")

	m := tui.NewModel(io.Discard)
	send(m, telemetry.MsgInitTasks{Tasks: planTasks, Targets: []string{"build"}})
	return m
}

func send(m *tui.Model, msg tea.Msg) tea.Cmd {
	_, cmd := m.Update(msg)
	return cmd
}

func keyMsg(s string) tea.KeyMsg {
	switch s {
	case "up":
		return tea.KeyMsg{Type: tea.KeyUp}
	case "down":
		return tea.KeyMsg{Type: tea.KeyDown}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	case "ctrl+c":
		return tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
}

func TestModel_TaskLifecycle(t *testing.T) {
	m := newModel(t)
	start := time.Now()

	for _, name := range planTasks {
		assert.Equal(t, "pending", m.StatusOf(name))
	}

	send(m, telemetry.MsgTaskStart{SpanID: "s1", Name: "build:popup", StartTime: start})
	assert.Equal(t, "running", m.StatusOf("build:popup"))
	assert.Equal(t, "build:popup", m.SelectedName(), "selection follows the running task")

	send(m, telemetry.MsgTaskLog{SpanID: "s1", Data: []byte("bundled popup.js\n")})
	assert.Positive(t, m.PaneOf("build:popup").Lines())

	send(m, telemetry.MsgTaskComplete{SpanID: "s1", EndTime: start.Add(time.Second)})
	assert.Equal(t, "done", m.StatusOf("build:popup"))

	send(m, telemetry.MsgTaskStart{SpanID: "s2", Name: "build:css", StartTime: start})
	send(m, telemetry.MsgTaskComplete{SpanID: "s2", EndTime: start, Cached: true})
	assert.Equal(t, "cached", m.StatusOf("build:css"))

	send(m, telemetry.MsgTaskStart{SpanID: "s3", Name: "build", StartTime: start})
	send(m, telemetry.MsgTaskComplete{SpanID: "s3", EndTime: start, Err: errors.New("boom")})
	assert.Equal(t, "failed", m.StatusOf("build"))
}

func TestModel_ToleratedStylesheet(t *testing.T) {
	m := newModel(t)
	send(m, tea.WindowSizeMsg{Width: 120, Height: 40})
	start := time.Now()

	send(m, telemetry.MsgTaskStart{SpanID: "s1", Name: "build:css", StartTime: start})
	send(m, telemetry.MsgTaskComplete{
		SpanID:  "s1",
		EndTime: start,
		Err:     &telemetry.ToleratedError{Reason: "failed to compile stylesheet"},
	})
	assert.Equal(t, "tolerated", m.StatusOf("build:css"))
	assert.Contains(t, m.View(), "! build:css")
}

func TestModel_UnknownSpansAreIgnored(t *testing.T) {
	m := newModel(t)

	send(m, telemetry.MsgTaskStart{SpanID: "s1", Name: "make:chrome"})
	send(m, telemetry.MsgTaskLog{SpanID: "s1", Data: []byte("ignored")})
	send(m, telemetry.MsgTaskComplete{SpanID: "s1", Err: errors.New("boom")})

	for _, name := range planTasks {
		assert.Equal(t, "pending", m.StatusOf(name))
	}
}

func TestModel_Navigation(t *testing.T) {
	m := newModel(t)
	send(m, tea.WindowSizeMsg{Width: 120, Height: 40})

	send(m, keyMsg("down"))
	assert.Equal(t, "build:css", m.SelectedName())
	assert.False(t, m.Following())

	send(m, telemetry.MsgTaskStart{SpanID: "s1", Name: "build", StartTime: time.Now()})
	assert.Equal(t, "build:css", m.SelectedName(), "manual selection is kept")

	send(m, keyMsg("k"))
	assert.Equal(t, "build:popup", m.SelectedName())
	send(m, keyMsg("up"))
	assert.Equal(t, "build:popup", m.SelectedName(), "selection stops at the first task")

	send(m, keyMsg("esc"))
	assert.True(t, m.Following())
	assert.Equal(t, "build", m.SelectedName(), "follow jumps to the running task")
}

func TestModel_WindowSizeResizesPanes(t *testing.T) {
	m := newModel(t)
	send(m, tea.WindowSizeMsg{Width: 100, Height: 30})

	pane := m.PaneOf("build:popup")
	require.NotNil(t, pane)
	assert.Greater(t, pane.Height(), 1)
	assert.Less(t, pane.Height(), 30)

	send(m, telemetry.MsgInitTasks{Tasks: []string{"clean"}})
	assert.Equal(t, pane.Height(), m.PaneOf("clean").Height(), "new plans reuse the known size")
}

func TestModel_Quit(t *testing.T) {
	for _, k := range []string{"q", "ctrl+c"} {
		t.Run(k, func(t *testing.T) {
			m := newModel(t)

			cmd := send(m, keyMsg(k))
			require.NotNil(t, cmd)
			assert.IsType(t, tea.QuitMsg{}, cmd())
			assert.True(t, m.Interrupted())
		})
	}
}

func TestModel_View(t *testing.T) {
	m := newModel(t)
	assert.Equal(t, "Initializing...", m.View())

	send(m, tea.WindowSizeMsg{Width: 120, Height: 20})
	start := time.Now()
	send(m, telemetry.MsgTaskStart{SpanID: "s1", Name: "build:popup", StartTime: start})
	send(m, telemetry.MsgTaskLog{SpanID: "s1", Data: []byte("popup.js  1.2kb")})
	send(m, telemetry.MsgTaskComplete{SpanID: "s1", EndTime: start.Add(250 * time.Millisecond)})

	view := m.View()
	assert.Contains(t, view, "TASKS")
	assert.Contains(t, view, "LOGS: build:popup (Following)")
	assert.Contains(t, view, "✓ build:popup (250ms)")
	assert.Contains(t, view, "○ build:css")
	assert.Contains(t, view, "popup.js")
	assert.Contains(t, view, "1/3")
}
