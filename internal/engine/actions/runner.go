// Package actions dispatches a task to the adapter that performs its action.
package actions

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/extbuild/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.TaskRunner = (*Runner)(nil)

// Runner implements ports.TaskRunner.
type Runner struct {
	bundler  ports.Bundler
	compiler ports.StyleCompiler
	packager ports.Packager
}

// NewRunner creates a new Runner.
func NewRunner(bundler ports.Bundler, compiler ports.StyleCompiler, packager ports.Packager) *Runner {
	return &Runner{
		bundler:  bundler,
		compiler: compiler,
		packager: packager,
	}
}

// Run executes the task's action and returns the input files it consumed.
func (r *Runner) Run(ctx context.Context, task *domain.Task, log io.Writer) ([]string, error) {
	switch task.Kind {
	case domain.KindGroup:
		return nil, nil
	case domain.KindClean:
		return nil, clean(task.Paths, log)
	case domain.KindBundle:
		if task.Target == nil {
			return nil, zerr.With(domain.ErrInvalidConfig, "task", task.Name.String())
		}
		res, err := r.bundler.Bundle(ctx, task.Target.Clone(), log)
		if err != nil {
			return nil, err
		}
		return res.Inputs, nil
	case domain.KindStyles:
		if task.Target == nil {
			return nil, zerr.With(domain.ErrInvalidConfig, "task", task.Name.String())
		}
		return r.compiler.Compile(ctx, task.Target.Clone(), log)
	case domain.KindPackage:
		archive, err := r.packager.Make(ctx, task.Vendor, task.Package)
		if err != nil {
			return nil, err
		}
		_, _ = fmt.Fprintf(log, "wrote %s\n", archive)
		return nil, nil
	default:
		return nil, zerr.With(domain.ErrInvalidTaskKind, "kind", string(task.Kind))
	}
}

// clean removes every path; files that are already gone are not an error.
func clean(paths []domain.InternedString, log io.Writer) error {
	var errs error
	for _, p := range paths {
		path := p.String()
		err := os.Remove(path)
		switch {
		case err == nil:
			_, _ = fmt.Fprintf(log, "deleted %s\n", path)
		case errors.Is(err, fs.ErrNotExist):
		default:
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, domain.ErrCleanFailed.Error()), "path", path))
		}
	}
	return errs
}
