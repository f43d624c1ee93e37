package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"go.trai.ch/extbuild/internal/ui/style"
)

const msRound = time.Millisecond

// View implements tea.Model.
func (m *Model) View() string {
	if m.listHeight <= 0 {
		return "Initializing..."
	}

	return lipgloss.JoinVertical(
		lipgloss.Left,
		lipgloss.JoinHorizontal(lipgloss.Top, m.taskList(), m.logPane()),
		m.footer(),
	)
}

func (m *Model) taskList() string {
	var s strings.Builder
	s.WriteString(titleStyle.Render("TASKS") + "\n\n")

	end := min(m.listOffset+m.listHeight, len(m.tasks))
	for i := min(m.listOffset, end); i < end; i++ {
		s.WriteString(m.renderRow(i, m.tasks[i]) + "\n")
	}

	return listStyle.Render(s.String())
}

func (m *Model) renderRow(index int, row *taskRow) string {
	rowStyle := statusStyle(row.status)
	cursor := "  "
	if index == m.selected {
		cursor = selectedStyle.Render("> ")
		if !row.status.finished() {
			rowStyle = selectedStyle
		}
	}

	content := statusIcon(row.status) + " " + row.name
	if row.status.finished() && row.took > 0 {
		content += fmt.Sprintf(" (%s)", row.took.Round(msRound))
	}
	return cursor + rowStyle.Render(content)
}

func (m *Model) logPane() string {
	row := m.selectedRow()
	if row == nil {
		return logStyle.Render(titleStyle.Render("LOGS (Waiting...)"))
	}

	mode := "Manual"
	if m.follow {
		mode = "Following"
	}
	title := titleStyle
	if row.status == statusFailed {
		title = failureTitleStyle
	}

	return logStyle.Render(lipgloss.JoinVertical(
		lipgloss.Left,
		title.Render(fmt.Sprintf("LOGS: %s (%s)", row.name, mode)),
		row.pane.View(),
	))
}

func (m *Model) footer() string {
	finished := 0
	for _, row := range m.tasks {
		if row.status.finished() {
			finished++
		}
	}
	progress := taskPendingStyle.Render(fmt.Sprintf("%d/%d ", finished, len(m.tasks)))
	return progress + m.help.View(m.keys)
}

func statusIcon(s taskStatus) string {
	switch s {
	case statusRunning:
		return "●"
	case statusDone:
		return style.Check
	case statusCached:
		return style.Tilde
	case statusTolerated:
		return style.Warning
	case statusFailed:
		return style.Cross
	default:
		return "○"
	}
}

func statusStyle(s taskStatus) lipgloss.Style {
	switch s {
	case statusRunning:
		return taskRunningStyle
	case statusDone:
		return taskDoneStyle
	case statusCached:
		return taskCachedStyle
	case statusTolerated:
		return taskToleratedStyle
	case statusFailed:
		return taskFailedStyle
	default:
		return taskPendingStyle
	}
}
