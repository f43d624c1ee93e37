package app

import (
	"fmt"
	"io"

	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/extbuild/internal/ui/output"
)

// writeTasks prints one line per task, prerequisites first, followed by the
// watch service aliases.
func writeTasks(w io.Writer, graph *domain.Graph) error {
	out := output.New(w)

	width := len(DefaultTask)
	for task := range graph.Tasks() {
		width = max(width, len(task.Name.String()))
	}

	line := func(name, kind, deps, children string) error {
		padded := fmt.Sprintf("%-*s", width, name)
		_, err := fmt.Fprintf(w, "%s  %-7s  after: %s  runs: %s\n", out.String(padded).Bold(), kind, deps, children)
		return err
	}

	for task := range graph.Walk() {
		if err := line(task.Name.String(), string(task.Kind), joinNames(task.Dependencies), joinNames(task.Children)); err != nil {
			return err
		}
	}
	if err := line(WatchTask, "service", BuildTask, "-"); err != nil {
		return err
	}
	return line(DefaultTask, "alias", "-", WatchTask)
}
