package domain

import (
	"maps"
	"slices"
)

// ActionKind identifies what a task does when it runs.
type ActionKind string

const (
	// KindGroup is a no-op aggregate; it completes once its children complete.
	KindGroup ActionKind = "group"
	// KindClean removes generated files.
	KindClean ActionKind = "clean"
	// KindBundle bundles one script entry into one output file.
	KindBundle ActionKind = "bundle"
	// KindStyles compiles one stylesheet entry into one CSS file.
	KindStyles ActionKind = "styles"
	// KindPackage packages the built tree for one vendor.
	KindPackage ActionKind = "package"
)

// ErrorPolicy decides what a task failure does to the rest of the run.
type ErrorPolicy string

const (
	// PolicyPropagate fails the run and cancels everything not yet started.
	PolicyPropagate ErrorPolicy = "propagate"
	// PolicyContinue logs the failure and reports the task as completed.
	PolicyContinue ErrorPolicy = "continue"
)

// Transform configures the bundle transform chain. The chain itself is fixed:
// syntax down-levelling, then import aliasing, then inline stylesheets.
type Transform struct {
	// Target is the ECMAScript version the bundle is down-levelled to.
	Target string
	// Aliases maps module paths to replacements.
	Aliases map[string]string
}

// BuildTarget describes a single entry → output transformation.
// Entry, Output and IncludePaths are relative to Root.
type BuildTarget struct {
	Root         string
	Entry        string
	Output       string
	IncludePaths []string
	// Compiler is the external program used by styles tasks.
	Compiler  string
	Transform Transform
}

// Clone returns a deep copy so an action can own its descriptor.
func (b *BuildTarget) Clone() BuildTarget {
	c := *b
	c.IncludePaths = slices.Clone(b.IncludePaths)
	c.Transform.Aliases = maps.Clone(b.Transform.Aliases)
	return c
}

// Task represents a unit of work in the build graph.
// It uses InternedString for fields that are frequently repeated to save memory.
type Task struct {
	Name InternedString
	Kind ActionKind

	// Dependencies must complete before the task starts.
	Dependencies []InternedString
	// Children run concurrently once the dependencies are done; the task
	// completes when every child has completed.
	Children []InternedString

	Policy ErrorPolicy

	// Target is set for bundle and styles tasks.
	Target *BuildTarget
	// Vendor and Package are set for package tasks.
	Vendor  Vendor
	Package PackageConfig
	// Paths lists the files removed by clean tasks.
	Paths []InternedString
}

// Cacheable reports whether the task's outputs can be tracked by the build cache.
func (t *Task) Cacheable() bool {
	return t.Target != nil && (t.Kind == KindBundle || t.Kind == KindStyles)
}

// Tolerant reports whether a failure of the task is swallowed.
func (t *Task) Tolerant() bool {
	return t.Policy == PolicyContinue
}
