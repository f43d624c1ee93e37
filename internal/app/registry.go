package app

import (
	"strings"

	"go.trai.ch/extbuild/internal/core/domain"
)

// Fixed task names.
const (
	CleanTask   = "clean"
	BuildTask   = "build"
	MakeTask    = "make"
	StylesTask  = "build:css"
	WatchTask   = "watch"
	DefaultTask = "default"
)

// IsWatchTarget reports whether name starts the watch service instead of naming a task.
func IsWatchTarget(name string) bool {
	return name == WatchTask || name == DefaultTask
}

// NewRegistry builds the task graph for project. Tasks are registered in the
// order they are listed: clean, the build tasks, then the make tasks.
func NewRegistry(project *domain.Project) (*domain.Graph, error) {
	clean := &domain.Task{
		Name:   domain.NewInternedString(CleanTask),
		Kind:   domain.KindClean,
		Policy: domain.PolicyPropagate,
	}
	tasks := []*domain.Task{clean}

	build := &domain.Task{
		Name:   domain.NewInternedString(BuildTask),
		Kind:   domain.KindGroup,
		Policy: domain.PolicyPropagate,
	}
	for _, script := range project.Scripts {
		task := &domain.Task{
			Name:   domain.NewInternedString("build:" + script),
			Kind:   domain.KindBundle,
			Policy: domain.PolicyPropagate,
			Target: &domain.BuildTarget{
				Root:   project.Root,
				Entry:  project.ScriptEntry(script),
				Output: project.ScriptOutput(script),
				Transform: domain.Transform{
					Target:  project.Target,
					Aliases: project.Aliases,
				},
			},
		}
		clean.Paths = append(clean.Paths, domain.NewInternedString(project.Abs(task.Target.Output)))
		build.Children = append(build.Children, task.Name)
		tasks = append(tasks, task)
	}

	styles := &domain.Task{
		Name:   domain.NewInternedString(StylesTask),
		Kind:   domain.KindStyles,
		Policy: domain.PolicyContinue,
		Target: &domain.BuildTarget{
			Root:         project.Root,
			Entry:        project.Styles.Entry,
			Output:       project.Styles.Output,
			IncludePaths: project.Styles.IncludePaths,
			Compiler:     project.Styles.Binary,
		},
	}
	if project.Styles.FailOnError {
		styles.Policy = domain.PolicyPropagate
	}
	build.Children = append(build.Children, styles.Name)
	tasks = append(tasks, styles, build)

	conf := project.PackageConfig()
	conf.Source = project.Abs(conf.Source)
	conf.Output = project.Abs(conf.Output)
	conf.Config = project.Abs(conf.Config)

	mk := &domain.Task{
		Name:         domain.NewInternedString(MakeTask),
		Kind:         domain.KindGroup,
		Policy:       domain.PolicyPropagate,
		Dependencies: []domain.InternedString{build.Name},
	}
	for _, vendor := range project.Vendors {
		task := &domain.Task{
			Name:    domain.NewInternedString("make:" + vendor.String()),
			Kind:    domain.KindPackage,
			Policy:  domain.PolicyPropagate,
			Vendor:  vendor,
			Package: conf,
		}
		mk.Children = append(mk.Children, task.Name)
		tasks = append(tasks, task)
	}
	tasks = append(tasks, mk)

	g := domain.NewGraph()
	g.SetRoot(project.Root)
	for _, task := range tasks {
		if err := g.AddTask(task); err != nil {
			return nil, err
		}
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return g, nil
}

func joinNames(names []domain.InternedString) string {
	if len(names) == 0 {
		return "-"
	}
	return strings.Join(domain.Strings(names), ", ")
}
