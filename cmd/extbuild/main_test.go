package main

import (
	"bytes"
	"context"
	"errors"
	"iter"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.trai.ch/extbuild/internal/app"
	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/extbuild/internal/core/ports"
	"go.trai.ch/extbuild/internal/core/ports/mocks"
	"go.uber.org/mock/gomock"
)

type testDeps struct {
	loader   *mocks.MockConfigLoader
	logger   *mocks.MockLogger
	runner   *mocks.MockTaskRunner
	store    *mocks.MockBuildInfoStore
	hasher   *mocks.MockHasher
	watcher  *mocks.MockWatcher
	reloader *mocks.MockReloader
}

func newProvider(t *testing.T) (ComponentProvider, testDeps) {
	t.Helper()
	ctrl := gomock.NewController(t)
	d := testDeps{
		loader:   mocks.NewMockConfigLoader(ctrl),
		logger:   mocks.NewMockLogger(ctrl),
		runner:   mocks.NewMockTaskRunner(ctrl),
		store:    mocks.NewMockBuildInfoStore(ctrl),
		hasher:   mocks.NewMockHasher(ctrl),
		watcher:  mocks.NewMockWatcher(ctrl),
		reloader: mocks.NewMockReloader(ctrl),
	}

	application := app.New(
		d.loader,
		d.runner,
		d.logger,
		d.store,
		d.hasher,
		d.watcher,
		d.reloader,
	).WithOutput(&bytes.Buffer{}, &bytes.Buffer{})

	provider := func(_ context.Context) (*app.Components, func(), error) {
		return &app.Components{
			App:    application,
			Logger: d.logger,
		}, func() {}, nil
	}
	return provider, d
}

// TestRun_Success verifies that the run function returns 0 when the command succeeds.
func TestRun_Success(t *testing.T) {
	provider, _ := newProvider(t)

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"version"}, stderr, provider)
	assert.Equal(t, 0, exitCode)
}

// TestRun_ProviderError verifies that initialization failures are printed without a logger.
func TestRun_ProviderError(t *testing.T) {
	provider := func(_ context.Context) (*app.Components, func(), error) {
		return nil, nil, errors.New("init failed")
	}

	stderr := new(bytes.Buffer)
	exitCode := run(context.Background(), []string{"build"}, stderr, provider)
	assert.Equal(t, 1, exitCode)
	assert.Equal(t, "Error: init failed\n", stderr.String())
}

// TestRun_ConfigError verifies that configuration errors are logged and fail the process.
func TestRun_ConfigError(t *testing.T) {
	t.Chdir(t.TempDir())
	provider, d := newProvider(t)

	d.loader.EXPECT().Load(gomock.Any()).Return(nil, domain.ErrConfigParseFailed)
	d.logger.EXPECT().Error(gomock.Any()).Do(func(err error) {
		assert.ErrorContains(t, err, "failed to load configuration")
	})

	exitCode := run(context.Background(), []string{"build"}, new(bytes.Buffer), provider)
	assert.Equal(t, 1, exitCode)
}

// TestRun_BuildFailure verifies that task failures exit non-zero without a second report.
func TestRun_BuildFailure(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)
	t.Setenv("NO_COLOR", "1")
	provider, d := newProvider(t)

	d.loader.EXPECT().Load(gomock.Any()).Return(domain.DefaultProject(root), nil)
	d.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, errors.New("boom"))

	exitCode := run(context.Background(), []string{"make:chrome"}, new(bytes.Buffer), provider)
	assert.Equal(t, 1, exitCode)
}

// TestRun_WatchInterrupted verifies that stopping the watch service with a
// signal exits with the interrupt status.
func TestRun_WatchInterrupted(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)
	t.Setenv("NO_COLOR", "1")
	provider, d := newProvider(t)

	ctx, cancel := context.WithCancel(t.Context())
	defer cancel()

	d.loader.EXPECT().Load(gomock.Any()).Return(domain.DefaultProject(root), nil)
	d.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil).AnyTimes()
	d.store.EXPECT().Get(root, gomock.Any()).Return(nil, nil).AnyTimes()
	d.store.EXPECT().Put(root, gomock.Any()).Return(nil).AnyTimes()
	d.hasher.EXPECT().ComputeInputHash(gomock.Any(), gomock.Any(), root).Return("in", nil).AnyTimes()
	d.hasher.EXPECT().ComputeOutputHash(gomock.Any(), root).Return("out", nil).AnyTimes()

	// The signal arrives once the service reports that it is watching.
	d.logger.EXPECT().Info(gomock.Any()).Do(func(msg string) {
		if strings.HasPrefix(msg, "watching ") {
			cancel()
		}
	}).AnyTimes()

	served := make(chan struct{})
	d.reloader.EXPECT().Serve(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) error {
			<-ctx.Done()
			close(served)
			return nil
		},
	)
	d.watcher.EXPECT().Start(gomock.Any(), root, gomock.Any()).Return(nil)
	d.watcher.EXPECT().Stop().Return(nil).AnyTimes()
	d.watcher.EXPECT().Events().Return(iter.Seq[ports.WatchEvent](func(func(ports.WatchEvent) bool) {
		<-served
	}))

	exitCode := run(ctx, []string{"--ci", "watch"}, new(bytes.Buffer), provider)
	assert.Equal(t, exitInterrupted, exitCode)
}

// TestRun_InterruptedBuild verifies that a build cancelled before it finishes
// exits with the interrupt status.
func TestRun_InterruptedBuild(t *testing.T) {
	root := t.TempDir()
	t.Chdir(root)
	t.Setenv("NO_COLOR", "1")
	provider, d := newProvider(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	d.loader.EXPECT().Load(gomock.Any()).Return(domain.DefaultProject(root), nil)
	d.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, context.Canceled).AnyTimes()
	d.logger.EXPECT().Info(gomock.Any()).AnyTimes()

	exitCode := run(ctx, []string{"--ci", "make:chrome"}, new(bytes.Buffer), provider)
	assert.Equal(t, exitInterrupted, exitCode)
}

// TestRun_UnknownCommandFlag verifies that CLI usage errors are reported.
func TestRun_UnknownCommandFlag(t *testing.T) {
	provider, d := newProvider(t)
	d.logger.EXPECT().Error(gomock.Any())

	exitCode := run(context.Background(), []string{"--bogus"}, new(bytes.Buffer), provider)
	assert.Equal(t, 1, exitCode)
}
