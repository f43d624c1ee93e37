package ports

import (
	"context"
	"io"

	"go.trai.ch/extbuild/internal/core/domain"
)

//go:generate mockgen -source=actions.go -destination=mocks/mock_actions.go -package=mocks

// BundleResult describes a bundle esbuild wrote.
type BundleResult struct {
	// Output is the path of the written bundle.
	Output string
	// Inputs lists every source file the bundle was built from.
	Inputs []string
}

// Bundler builds one script entry into one output file.
type Bundler interface {
	// Bundle runs the fixed transform chain on target.Entry and writes target.Output.
	// Warnings are written to log.
	Bundle(ctx context.Context, target domain.BuildTarget, log io.Writer) (BundleResult, error)
}

// StyleCompiler compiles one stylesheet entry into one CSS file.
type StyleCompiler interface {
	// Compile writes target.Output only when compilation succeeds and returns the
	// stylesheets that were read. Compiler diagnostics are written to log.
	Compile(ctx context.Context, target domain.BuildTarget, log io.Writer) ([]string, error)
}

// Packager runs the packaging routine of one vendor.
type Packager interface {
	// Make stages and archives the built tree for vendor and returns the archive path.
	Make(ctx context.Context, vendor domain.Vendor, conf domain.PackageConfig) (string, error)
}

// TaskRunner performs the action of a single task.
type TaskRunner interface {
	// Run executes the task's action and returns the input files it consumed.
	Run(ctx context.Context, task *domain.Task, log io.Writer) ([]string, error)
}
