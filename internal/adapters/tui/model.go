// Package tui provides the interactive terminal view of a build run.
package tui

import (
	"io"
	"os"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/extbuild/internal/adapters/telemetry"
	"go.trai.ch/extbuild/internal/ui/output"
)

const (
	taskListWidthRatio = 0.3
	logPaneBorderWidth = 4
)

type taskStatus int

const (
	statusPending taskStatus = iota
	statusRunning
	statusDone
	statusCached
	statusTolerated
	statusFailed
)

func (s taskStatus) String() string {
	switch s {
	case statusRunning:
		return "running"
	case statusDone:
		return "done"
	case statusCached:
		return "cached"
	case statusTolerated:
		return "tolerated"
	case statusFailed:
		return "failed"
	default:
		return "pending"
	}
}

func (s taskStatus) finished() bool {
	return s >= statusDone
}

type taskRow struct {
	name   string
	status taskStatus
	pane   *Pane
	start  time.Time
	took   time.Duration
}

// Model is the Bubble Tea model listing the planned tasks next to the output
// of the selected one.
type Model struct {
	tasks   []*taskRow
	byName  map[string]*taskRow
	bySpan  map[string]*taskRow
	targets []string

	selected    int
	listOffset  int
	listHeight  int
	logWidth    int
	logHeight   int
	follow      bool
	interrupted bool

	keys keyMap
	help help.Model
}

// NewModel creates a model whose colors match the capabilities of w.
func NewModel(w io.Writer) *Model {
	if w == nil {
		w = os.Stdout
	}
	lipgloss.SetColorProfile(output.New(w).Profile)

	return &Model{
		byName: make(map[string]*taskRow),
		bySpan: make(map[string]*taskRow),
		follow: true,
		keys:   defaultKeys(),
		help:   help.New(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Interrupted reports whether the user asked to abort the run.
func (m *Model) Interrupted() bool {
	return m.interrupted
}

// Update implements tea.Model.
//
//nolint:cyclop // one case per message type
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.layout(msg.Width, msg.Height)

	case telemetry.MsgInitTasks:
		m.reset(msg.Tasks, msg.Targets)

	case telemetry.MsgTaskStart:
		row, ok := m.byName[msg.Name]
		if !ok {
			break
		}
		row.status = statusRunning
		row.start = msg.StartTime
		m.bySpan[msg.SpanID] = row
		if m.follow {
			m.selectRow(row)
		}

	case telemetry.MsgTaskLog:
		if row, ok := m.bySpan[msg.SpanID]; ok {
			_, _ = row.pane.Write(msg.Data)
		}

	case telemetry.MsgTaskComplete:
		row, ok := m.bySpan[msg.SpanID]
		if !ok {
			break
		}
		switch {
		case telemetry.IsTolerated(msg.Err):
			row.status = statusTolerated
		case msg.Err != nil:
			row.status = statusFailed
		case msg.Cached:
			row.status = statusCached
		default:
			row.status = statusDone
		}
		if !row.start.IsZero() {
			row.took = msg.EndTime.Sub(row.start)
		}
	}

	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.interrupted = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		if m.selected > 0 {
			m.selected--
			m.follow = false
			m.ensureVisible()
		}

	case key.Matches(msg, m.keys.Down):
		if m.selected < len(m.tasks)-1 {
			m.selected++
			m.follow = false
			m.ensureVisible()
		}

	case key.Matches(msg, m.keys.Follow):
		m.follow = true
		for _, row := range m.tasks {
			if row.status == statusRunning {
				m.selectRow(row)
				break
			}
		}

	default:
		if row := m.selectedRow(); row != nil {
			row.pane.Scroll(msg.String())
		}
	}

	return m, nil
}

func (m *Model) reset(tasks, targets []string) {
	m.tasks = make([]*taskRow, len(tasks))
	m.byName = make(map[string]*taskRow, len(tasks))
	m.bySpan = make(map[string]*taskRow)
	m.targets = targets
	m.selected = 0
	m.listOffset = 0

	for i, name := range tasks {
		row := &taskRow{name: name, pane: NewPane()}
		if m.logWidth > 0 && m.logHeight > 0 {
			row.pane.Resize(m.logWidth, m.logHeight)
		}
		m.tasks[i] = row
		m.byName[name] = row
	}
}

func (m *Model) layout(width, height int) {
	listWidth := int(float64(width) * taskListWidthRatio)
	m.logWidth = width - listWidth - logPaneBorderWidth
	m.help.Width = width

	footer := 1
	m.logHeight = height - lipgloss.Height(titleStyle.Render("LOGS")) - footer
	m.listHeight = height - lipgloss.Height(titleStyle.Render("TASKS")+"\n\n") - footer
	m.ensureVisible()

	for _, row := range m.tasks {
		row.pane.Resize(m.logWidth, m.logHeight)
	}
}

func (m *Model) selectRow(target *taskRow) {
	for i, row := range m.tasks {
		if row == target {
			m.selected = i
			m.ensureVisible()
			return
		}
	}
}

func (m *Model) selectedRow() *taskRow {
	if m.selected >= 0 && m.selected < len(m.tasks) {
		return m.tasks[m.selected]
	}
	return nil
}

func (m *Model) ensureVisible() {
	if m.listHeight <= 0 {
		return
	}
	if m.selected < m.listOffset {
		m.listOffset = m.selected
	} else if m.selected >= m.listOffset+m.listHeight {
		m.listOffset = m.selected - m.listHeight + 1
	}
}
