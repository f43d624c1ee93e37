// Package esbuild bundles extension scripts with the esbuild Go API.
package esbuild

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/evanw/esbuild/pkg/api"
	"github.com/tidwall/gjson"
	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/extbuild/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.Bundler = (*Bundler)(nil)

var esTargets = map[string]api.Target{
	"es5":    api.ES5,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
	"es2023": api.ES2023,
	"es2024": api.ES2024,
	"esnext": api.ESNext,
}

// Bundler implements ports.Bundler.
type Bundler struct{}

// NewBundler creates a new Bundler.
func NewBundler() *Bundler {
	return &Bundler{}
}

// Bundle builds target.Entry into a single IIFE at target.Output.
// The transform chain runs in order: down-levelling to the configured
// ECMAScript version, import aliasing, then inlining of imported stylesheets.
func (b *Bundler) Bundle(ctx context.Context, target domain.BuildTarget, log io.Writer) (ports.BundleResult, error) {
	entry := domain.ParsePath(target.Entry)
	out := domain.ParsePath(target.Output)
	entryPath := filepath.Join(target.Root, entry.Dir, entry.Base)
	outfile := filepath.Join(target.Root, out.Dir, out.Base)

	fail := func(err error) (ports.BundleResult, error) {
		return ports.BundleResult{}, zerr.With(zerr.Wrap(err, domain.ErrBundleFailed.Error()), "entry", target.Entry)
	}

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if _, err := os.Stat(entryPath); err != nil {
		return fail(err)
	}

	esTarget, ok := esTargets[target.Transform.Target]
	if !ok {
		return fail(zerr.With(domain.ErrInvalidConfig, "target", target.Transform.Target))
	}

	aliases, aliasInputs, err := resolveAliases(target.Root, target.Transform.Aliases, log)
	if err != nil {
		return fail(err)
	}

	var (
		mu        sync.Mutex
		cssInputs []string
	)
	collect := func(paths ...string) {
		mu.Lock()
		defer mu.Unlock()
		cssInputs = append(cssInputs, paths...)
	}

	buildCtx, ctxErr := api.Context(api.BuildOptions{
		EntryPoints:   []string{entryPath},
		Outfile:       outfile,
		AbsWorkingDir: target.Root,
		Bundle:        true,
		Write:         true,
		Metafile:      true,
		Format:        api.FormatIIFE,
		Platform:      api.PlatformBrowser,
		Target:        esTarget,
		Alias:         aliases,
		Plugins:       []api.Plugin{inlineCSSPlugin(target.Root, collect)},
		LogLevel:      api.LogLevelSilent,
	})
	if ctxErr != nil {
		return fail(diagnostics(ctxErr.Errors))
	}
	defer buildCtx.Dispose()

	stop := context.AfterFunc(ctx, buildCtx.Cancel)
	defer stop()

	result := buildCtx.Rebuild()
	writeWarnings(log, result.Warnings)

	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	if len(result.Errors) > 0 {
		return fail(diagnostics(result.Errors))
	}

	inputs := metafileInputs(target.Root, result.Metafile)
	inputs = append(inputs, cssInputs...)
	inputs = append(inputs, aliasInputs...)
	slices.Sort(inputs)

	return ports.BundleResult{
		Output: target.Output,
		Inputs: slices.Compact(inputs),
	}, nil
}

// diagnostics turns esbuild messages into a single error carrying the formatted output.
func diagnostics(msgs []api.Message) error {
	formatted := api.FormatMessages(msgs, api.FormatMessagesOptions{
		Kind: api.ErrorMessage,
	})
	return errors.New(strings.TrimSpace(strings.Join(formatted, "")))
}

func writeWarnings(log io.Writer, msgs []api.Message) {
	if log == nil || len(msgs) == 0 {
		return
	}
	for _, msg := range api.FormatMessages(msgs, api.FormatMessagesOptions{
		Kind: api.WarningMessage,
	}) {
		_, _ = io.WriteString(log, msg)
	}
}

// metafileInputs lists the files recorded in an esbuild metafile, relative to root.
// Entries in plugin namespaces have no file on disk and are skipped.
func metafileInputs(root, metafile string) []string {
	var inputs []string
	gjson.Get(metafile, "inputs").ForEach(func(key, _ gjson.Result) bool {
		path := key.String()
		abs := path
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(root, path)
		}
		if info, err := os.Stat(abs); err == nil && info.Mode().IsRegular() {
			if rel, err := filepath.Rel(root, abs); err == nil {
				path = rel
			}
			inputs = append(inputs, filepath.ToSlash(path))
		}
		return true
	})
	return inputs
}
