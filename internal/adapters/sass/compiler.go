// Package sass compiles stylesheets with the sass command line tool.
package sass

import (
	"bytes"
	"context"
	"io"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/charmbracelet/x/ansi"
	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/extbuild/internal/core/ports"
	"go.trai.ch/zerr"
)

// DefaultBinary is used when a target names no compiler.
const DefaultBinary = "sass"

var _ ports.StyleCompiler = (*Compiler)(nil)

// Compiler implements ports.StyleCompiler on top of an Executor.
type Compiler struct {
	executor ports.Executor
}

// NewCompiler creates a new Compiler.
func NewCompiler(executor ports.Executor) *Compiler {
	return &Compiler{executor: executor}
}

// Compile runs the compiler on target.Entry and writes the CSS to target.Output.
// Nothing is written when the compiler fails.
func (c *Compiler) Compile(ctx context.Context, target domain.BuildTarget, log io.Writer) ([]string, error) {
	entry := domain.ParsePath(target.Entry)
	out := domain.ParsePath(target.Output)

	binary := target.Compiler
	if binary == "" {
		binary = DefaultBinary
	}

	args := []string{binary, "--no-source-map", "--style=expanded"}
	for _, inc := range target.IncludePaths {
		args = append(args, "--load-path="+filepath.Join(target.Root, inc))
	}
	args = append(args, filepath.Join(target.Root, entry.Dir, entry.Base))

	cmd := &domain.Command{
		Args: args,
		Dir:  target.Root,
		Path: []string{filepath.Join(target.Root, "node_modules", ".bin")},
	}

	var css, diag bytes.Buffer
	stderr := io.Writer(&diag)
	if log != nil {
		stderr = io.MultiWriter(&diag, log)
	}

	if err := c.executor.Execute(ctx, cmd, &css, stderr); err != nil {
		failure := zerr.With(zerr.Wrap(err, domain.ErrStyleCompileFailed.Error()), "entry", target.Entry)
		if d := strings.TrimSpace(ansi.Strip(diag.String())); d != "" {
			failure = zerr.With(failure, "diagnostics", d)
		}
		return nil, failure
	}

	outDir := filepath.Join(target.Root, out.Dir)
	if err := os.MkdirAll(outDir, domain.DirPerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStyleCompileFailed.Error()), "output", target.Output)
	}
	if err := os.WriteFile(filepath.Join(outDir, out.Base), css.Bytes(), domain.FilePerm); err != nil {
		return nil, zerr.With(zerr.Wrap(err, domain.ErrStyleCompileFailed.Error()), "output", target.Output)
	}

	return stylesheetInputs(target)
}

// stylesheetInputs lists the entry and every stylesheet the include paths make importable.
func stylesheetInputs(target domain.BuildTarget) ([]string, error) {
	inputs := []string{filepath.ToSlash(filepath.Clean(target.Entry))}

	fsys := os.DirFS(target.Root)
	for _, inc := range target.IncludePaths {
		pattern := path.Join(filepath.ToSlash(filepath.Clean(inc)), "**", "*.{scss,sass,css}")
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, zerr.With(zerr.Wrap(err, domain.ErrStyleCompileFailed.Error()), "pattern", pattern)
		}
		inputs = append(inputs, matches...)
	}

	slices.Sort(inputs)
	return slices.Compact(inputs), nil
}
