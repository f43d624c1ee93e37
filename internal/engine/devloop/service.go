// Package devloop implements the watch service: live reload on output changes
// and serialized rebuilds on source changes.
package devloop

import (
	"context"
	"fmt"
	"time"

	"go.trai.ch/extbuild/internal/adapters/watcher"
	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/extbuild/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// BuildFunc rebuilds the project.
type BuildFunc func(ctx context.Context) error

// Config configures a watch session. Globs are relative to Root.
type Config struct {
	Root     string
	Skip     []string
	Addr     string
	Debounce time.Duration
	Reload   []string
	Rebuild  []string
}

// Service watches the project until its context is cancelled.
type Service struct {
	watcher  ports.Watcher
	reloader ports.Reloader
	logger   ports.Logger
	build    BuildFunc
	cfg      Config
}

// NewService creates a new watch service.
func NewService(w ports.Watcher, r ports.Reloader, logger ports.Logger, build BuildFunc, cfg Config) *Service {
	if cfg.Debounce <= 0 {
		cfg.Debounce = domain.DefaultDebounce
	}
	return &Service{
		watcher:  w,
		reloader: r,
		logger:   logger,
		build:    build,
		cfg:      cfg,
	}
}

// Run serves live reload clients and reacts to file changes. It returns nil
// once ctx is cancelled, or the first error that prevents watching.
func (s *Service) Run(ctx context.Context) error {
	reloadFilter := watcher.NewFilter(s.cfg.Root, s.cfg.Reload)
	rebuildFilter := watcher.NewFilter(s.cfg.Root, s.cfg.Rebuild)
	for _, f := range []*watcher.Filter{reloadFilter, rebuildFilter} {
		if pattern, ok := f.Validate(); !ok {
			return zerr.With(domain.ErrInvalidConfig, "pattern", pattern)
		}
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return s.reloader.Serve(ctx, s.cfg.Addr)
	})

	if err := s.watcher.Start(ctx, s.cfg.Root, s.cfg.Skip); err != nil {
		return joinCancel(err, g)
	}
	defer func() {
		_ = s.watcher.Stop()
	}()

	queue := newBuildQueue(s.build, s.logger)
	g.Go(func() error {
		queue.run(ctx)
		return nil
	})

	reloads := watcher.NewDebouncer(s.cfg.Debounce, s.reload)
	rebuilds := watcher.NewDebouncer(s.cfg.Debounce, func([]string) { queue.request() })
	defer reloads.Stop()
	defer rebuilds.Stop()

	s.logger.Info(fmt.Sprintf("watching %s for changes", s.cfg.Root))

	g.Go(func() error {
		for event := range s.watcher.Events() {
			if reloadFilter.Match(event.Path) {
				reloads.Add(event.Path)
			}
			if rebuildFilter.Match(event.Path) {
				rebuilds.Add(event.Path)
			}
		}
		// Outputs written just before shutdown still reach connected clients.
		reloads.Flush()
		return nil
	})

	return g.Wait()
}

// reload notifies clients of one batch. A single path lets clients swap a
// stylesheet in place; several paths ask for a full reload.
func (s *Service) reload(paths []string) {
	path := ""
	if len(paths) == 1 {
		path = paths[0]
	}
	s.reloader.Reload(path)
}

// joinCancel waits for the goroutines already started once err has stopped the run.
func joinCancel(err error, g *errgroup.Group) error {
	g.Go(func() error { return err })
	return g.Wait()
}
