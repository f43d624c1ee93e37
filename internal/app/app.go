// Package app implements the application layer for extbuild.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"

	tea "github.com/charmbracelet/bubbletea"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.trai.ch/extbuild/internal/adapters/detector"
	"go.trai.ch/extbuild/internal/adapters/linear"
	"go.trai.ch/extbuild/internal/adapters/telemetry"
	"go.trai.ch/extbuild/internal/adapters/tui"
	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/extbuild/internal/core/ports"
	"go.trai.ch/extbuild/internal/engine/devloop"
	"go.trai.ch/extbuild/internal/engine/scheduler"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// App represents the main application logic.
type App struct {
	configLoader ports.ConfigLoader
	runner       ports.TaskRunner
	logger       ports.Logger
	store        ports.BuildInfoStore
	hasher       ports.Hasher
	watcher      ports.Watcher
	reloader     ports.Reloader
	stdout       io.Writer
	stderr       io.Writer
}

// New creates a new App instance.
func New(
	loader ports.ConfigLoader,
	runner ports.TaskRunner,
	log ports.Logger,
	store ports.BuildInfoStore,
	hasher ports.Hasher,
	watcher ports.Watcher,
	reloader ports.Reloader,
) *App {
	return &App{
		configLoader: loader,
		runner:       runner,
		logger:       log,
		store:        store,
		hasher:       hasher,
		watcher:      watcher,
		reloader:     reloader,
		stdout:       os.Stdout,
		stderr:       os.Stderr,
	}
}

// WithOutput redirects task progress and task output.
// This is primarily used for testing.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	NoCache     bool
	Quiet       bool
	Parallelism int
	OutputMode  detector.OutputMode
}

// Run executes the specified tasks. The watch and default targets start the
// watch service once every other target has completed.
func (a *App) Run(ctx context.Context, targetNames []string, opts RunOptions) error {
	if len(targetNames) == 0 {
		return domain.ErrNoTargetsSpecified
	}

	project, graph, err := a.load()
	if err != nil {
		return err
	}

	tasks := slices.DeleteFunc(slices.Clone(targetNames), IsWatchTarget)
	if len(tasks) > 0 {
		if _, err := a.execute(ctx, graph, tasks, opts); err != nil {
			return a.reportQuiet(err, opts)
		}
	}

	if len(tasks) == len(targetNames) {
		return nil
	}
	return a.watch(ctx, project, graph, opts)
}

// Watch builds the project, then rebuilds and live reloads on change until ctx is cancelled.
func (a *App) Watch(ctx context.Context, opts RunOptions) error {
	return a.Run(ctx, []string{WatchTask}, opts)
}

func (a *App) watch(ctx context.Context, project *domain.Project, graph *domain.Graph, opts RunOptions) error {
	// The interactive view would compete with the watch log for the terminal.
	opts.OutputMode = detector.ModeLinear
	build := func(ctx context.Context) error {
		_, err := a.execute(ctx, graph, []string{BuildTask}, opts)
		return err
	}

	if err := build(ctx); err != nil {
		return a.reportQuiet(err, opts)
	}

	svc := devloop.NewService(a.watcher, a.reloader, a.logger, build, devloop.Config{
		Root:     project.Root,
		Skip:     []string{project.Packages},
		Addr:     fmt.Sprintf("127.0.0.1:%d", project.LiveReloadPort),
		Debounce: project.Watch.Debounce,
		Reload:   project.Watch.Reload,
		Rebuild:  project.Watch.Rebuild,
	})
	if err := svc.Run(ctx); err != nil {
		return err
	}
	// Watching only ends on cancellation, which callers report as an interrupt.
	return ctx.Err()
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	// Cache also removes the build info store.
	Cache bool
}

// Clean removes the generated bundles and, optionally, the build cache.
func (a *App) Clean(ctx context.Context, options CleanOptions) error {
	project, graph, err := a.load()
	if err != nil {
		return err
	}

	var errs error
	if _, err := a.execute(ctx, graph, []string{CleanTask}, RunOptions{
		NoCache:    true,
		OutputMode: detector.ModeLinear,
	}); err != nil {
		errs = errors.Join(errs, err)
	}

	if options.Cache {
		a.logger.Info("removing build info store...")
		if err := a.store.Clear(project.Root); err != nil {
			errs = errors.Join(errs, zerr.Wrap(err, "failed to remove build info store"))
		} else {
			a.logger.Info("removed build info store")
		}
	}
	return errs
}

// Tasks writes the task registry to w.
func (a *App) Tasks(_ context.Context, w io.Writer) error {
	_, graph, err := a.load()
	if err != nil {
		return err
	}
	return writeTasks(w, graph)
}

func (a *App) load() (*domain.Project, *domain.Graph, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, zerr.Wrap(err, "failed to determine working directory")
	}

	project, err := a.configLoader.Load(cwd)
	if err != nil {
		return nil, nil, zerr.Wrap(err, "failed to load configuration")
	}

	graph, err := NewRegistry(project)
	if err != nil {
		return nil, nil, err
	}
	return project, graph, nil
}

// execute runs the scheduler and the renderer side by side for one run.
func (a *App) execute(
	ctx context.Context,
	graph *domain.Graph,
	targetNames []string,
	opts RunOptions,
) ([]domain.Result, error) {
	var (
		renderer ports.Renderer
		tracer   ports.Tracer
	)
	if opts.Quiet {
		tracer = telemetry.NewNoOpTracer()
	} else {
		renderer = a.newRenderer(opts.OutputMode)

		// Spans end in the bridge, which reports them to the renderer.
		provider := sdktrace.NewTracerProvider(
			sdktrace.WithSpanProcessor(telemetry.NewBridge(renderer)),
		)
		defer func() {
			_ = provider.Shutdown(context.WithoutCancel(ctx))
		}()
		tracer = telemetry.NewOTelTracer(provider.Tracer(telemetry.InstrumentationName), renderer)
	}

	sched := scheduler.NewScheduler(a.runner, a.store, a.hasher, tracer, a.logger)

	var results []domain.Result
	g, gctx := errgroup.WithContext(ctx)

	if renderer != nil {
		g.Go(func() error {
			if err := renderer.Start(gctx); err != nil {
				return err
			}
			return renderer.Wait()
		})
	}

	g.Go(func() error {
		defer func() {
			if renderer != nil {
				_ = renderer.Stop()
			}
		}()

		var err error
		results, err = sched.Run(gctx, graph, targetNames, scheduler.Options{
			Parallelism: opts.Parallelism,
			NoCache:     opts.NoCache,
		})
		return err
	})

	return results, g.Wait()
}

// reportQuiet logs failed tasks of a quiet run, which has no renderer to
// report them. Rebuilds in watch mode are logged by the watch service instead.
func (a *App) reportQuiet(err error, opts RunOptions) error {
	if opts.Quiet && errors.Is(err, domain.ErrBuildExecutionFailed) {
		a.logger.Error(err)
	}
	return err
}

func (a *App) newRenderer(mode detector.OutputMode) ports.Renderer {
	if detector.Resolve(detector.DetectEnvironment(a.stdout), mode) == detector.ModeTUI {
		return tui.NewRenderer(tui.NewModel(a.stdout), tea.WithOutput(a.stdout))
	}
	return linear.NewRenderer(a.stdout, a.stderr)
}
