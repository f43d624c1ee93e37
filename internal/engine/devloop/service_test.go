package devloop_test

import (
	"context"
	"errors"
	"iter"
	"sync/atomic"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/extbuild/internal/core/ports"
	"go.trai.ch/extbuild/internal/core/ports/mocks"
	"go.trai.ch/extbuild/internal/engine/devloop"
	"go.uber.org/mock/gomock"
)

const (
	root   = "/project"
	window = 500 * time.Millisecond
)

type harness struct {
	watcher  *mocks.MockWatcher
	reloader *mocks.MockReloader
	logger   *mocks.MockLogger
	events   chan ports.WatchEvent
	builds   atomic.Int32
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	ctrl := gomock.NewController(t)
	h := &harness{
		watcher:  mocks.NewMockWatcher(ctrl),
		reloader: mocks.NewMockReloader(ctrl),
		logger:   mocks.NewMockLogger(ctrl),
		events:   make(chan ports.WatchEvent, 16),
	}
	h.logger.EXPECT().Info(gomock.Any()).AnyTimes()
	h.watcher.EXPECT().Stop().Return(nil).AnyTimes()
	h.watcher.EXPECT().Events().Return(iter.Seq[ports.WatchEvent](func(yield func(ports.WatchEvent) bool) {
		for e := range h.events {
			if !yield(e) {
				return
			}
		}
	})).AnyTimes()
	return h
}

func (h *harness) expectServe() {
	h.reloader.EXPECT().Serve(gomock.Any(), "127.0.0.1:35729").DoAndReturn(
		func(ctx context.Context, _ string) error {
			<-ctx.Done()
			return nil
		},
	)
}

func (h *harness) service(build devloop.BuildFunc) *devloop.Service {
	if build == nil {
		build = func(context.Context) error {
			h.builds.Add(1)
			return nil
		}
	}
	return devloop.NewService(h.watcher, h.reloader, h.logger, build, devloop.Config{
		Root:     root,
		Skip:     []string{"build"},
		Addr:     "127.0.0.1:35729",
		Debounce: window,
		Reload:   []string{"app/scripts/**/*.js", "app/styles/**/*"},
		Rebuild:  []string{"src/scripts/**/*.js", "src/styles/**/*.scss"},
	})
}

// start runs the service in the background and returns a function that stops
// it and reports its result.
func (h *harness) start(t *testing.T, svc *devloop.Service) func() error {
	t.Helper()
	h.watcher.EXPECT().Start(gomock.Any(), root, []string{"build"}).Return(nil)

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()
	synctest.Wait()

	return func() error {
		cancel()
		close(h.events)
		return <-done
	}
}

func (h *harness) send(paths ...string) {
	for _, p := range paths {
		h.events <- ports.WatchEvent{Path: p, Operation: ports.OpWrite}
	}
}

func TestService_ReloadBurstYieldsOneNotification(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)
		h.expectServe()
		stop := h.start(t, h.service(nil))

		h.reloader.EXPECT().Reload("").Times(1)
		h.send(root+"/app/scripts/popup_bundle.js", root+"/app/scripts/content_bundle.js")
		time.Sleep(window / 2)
		h.send(root + "/app/styles/main.css")
		time.Sleep(window + time.Millisecond)
		synctest.Wait()

		h.reloader.EXPECT().Reload(root + "/app/styles/main.css").Times(1)
		h.send(root+"/app/styles/main.css", root+"/app/styles/main.css")
		time.Sleep(window + time.Millisecond)
		synctest.Wait()

		require.NoError(t, stop())
		assert.Zero(t, h.builds.Load())
	})
}

func TestService_SourceBurstYieldsOneBuild(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)
		h.expectServe()
		stop := h.start(t, h.service(nil))

		h.send(root+"/src/scripts/popup.js", root+"/src/scripts/content.js", root+"/src/styles/main.scss")
		time.Sleep(window / 2)
		h.send(root + "/src/scripts/popup.js")
		time.Sleep(window + time.Millisecond)
		synctest.Wait()

		assert.Equal(t, int32(1), h.builds.Load())
		require.NoError(t, stop())
	})
}

func TestService_PendingReloadIsFlushedOnShutdown(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)
		h.expectServe()
		stop := h.start(t, h.service(nil))

		h.reloader.EXPECT().Reload(root + "/app/styles/main.css").Times(1)
		h.send(root + "/app/styles/main.css")
		require.NoError(t, stop())

		time.Sleep(2 * window)
		synctest.Wait()
	})
}

func TestService_UnwatchedPathsAreIgnored(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)
		h.expectServe()
		stop := h.start(t, h.service(nil))

		h.send(root+"/README.md", root+"/src/styles/main.css", "/elsewhere/src/scripts/a.js")
		time.Sleep(window + time.Millisecond)
		synctest.Wait()

		assert.Zero(t, h.builds.Load())
		require.NoError(t, stop())
	})
}

func TestService_RebuildsAreSerialized(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)
		h.expectServe()

		var running, overlapped atomic.Bool
		build := func(context.Context) error {
			if !running.CompareAndSwap(false, true) {
				overlapped.Store(true)
			}
			h.builds.Add(1)
			time.Sleep(5 * time.Second)
			running.Store(false)
			return nil
		}
		stop := h.start(t, h.service(build))

		h.send(root + "/src/scripts/popup.js")
		time.Sleep(window + time.Second)
		// The first build is running; two more bursts queue a single follow-up.
		h.send(root + "/src/scripts/content.js")
		time.Sleep(window + time.Second)
		h.send(root + "/src/scripts/options.js")
		time.Sleep(20 * time.Second)
		synctest.Wait()

		assert.Equal(t, int32(2), h.builds.Load())
		assert.False(t, overlapped.Load())
		require.NoError(t, stop())
	})
}

func TestService_BuildFailureIsLogged(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)
		h.expectServe()

		boom := errors.New("bundle failed")
		var calls atomic.Int32
		stop := h.start(t, h.service(func(context.Context) error {
			calls.Add(1)
			return boom
		}))

		h.logger.EXPECT().Error(boom).Times(2)
		h.send(root + "/src/scripts/popup.js")
		time.Sleep(window + time.Millisecond)
		synctest.Wait()
		h.send(root + "/src/scripts/popup.js")
		time.Sleep(window + time.Millisecond)
		synctest.Wait()

		assert.Equal(t, int32(2), calls.Load())
		require.NoError(t, stop())
	})
}

func TestService_WatcherStartFailure(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)
		h.expectServe()

		startErr := errors.New("failed to start file watcher")
		h.watcher.EXPECT().Start(gomock.Any(), root, gomock.Any()).Return(startErr)

		err := h.service(nil).Run(t.Context())
		require.ErrorIs(t, err, startErr)
	})
}

func TestService_ReloadServerFailure(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		h := newHarness(t)

		listenErr := errors.New("failed to start live-reload server")
		h.reloader.EXPECT().Serve(gomock.Any(), gomock.Any()).Return(listenErr)
		h.watcher.EXPECT().Start(gomock.Any(), root, gomock.Any()).Return(nil).AnyTimes()
		close(h.events)

		err := h.service(nil).Run(t.Context())
		require.ErrorIs(t, err, listenErr)
	})
}

func TestService_InvalidPattern(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	svc := devloop.NewService(h.watcher, h.reloader, h.logger, nil, devloop.Config{
		Root:   root,
		Reload: []string{"app/[scripts"},
	})

	err := svc.Run(context.Background())
	require.ErrorContains(t, err, "invalid configuration")
}
