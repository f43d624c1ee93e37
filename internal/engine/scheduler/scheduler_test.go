package scheduler_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"testing/synctest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/extbuild/internal/adapters/telemetry"
	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/extbuild/internal/core/ports"
	"go.trai.ch/extbuild/internal/core/ports/mocks"
	"go.trai.ch/extbuild/internal/engine/scheduler"
	"go.uber.org/mock/gomock"
)

const testRoot = "/tmp/root"

type schedulerTestMocks struct {
	runner *mocks.MockTaskRunner
	store  *mocks.MockBuildInfoStore
	hasher *mocks.MockHasher
	tracer *mocks.MockTracer
	span   *mocks.MockSpan
	logger *mocks.MockLogger
}

// setupSchedulerTest creates a scheduler and common mocks.
func setupSchedulerTest(t *testing.T) (*scheduler.Scheduler, schedulerTestMocks) {
	t.Helper()
	ctrl := gomock.NewController(t)
	m := schedulerTestMocks{
		runner: mocks.NewMockTaskRunner(ctrl),
		store:  mocks.NewMockBuildInfoStore(ctrl),
		hasher: mocks.NewMockHasher(ctrl),
		tracer: mocks.NewMockTracer(ctrl),
		span:   mocks.NewMockSpan(ctrl),
		logger: mocks.NewMockLogger(ctrl),
	}

	m.span.EXPECT().End().AnyTimes()
	m.tracer.EXPECT().Start(gomock.Any(), gomock.Any()).DoAndReturn(
		func(ctx context.Context, _ string) (context.Context, ports.Span) {
			return ctx, m.span
		},
	).AnyTimes()
	m.tracer.EXPECT().EmitPlan(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).AnyTimes()

	s := scheduler.NewScheduler(m.runner, m.store, m.hasher, m.tracer, m.logger)
	return s, m
}

func groupTask(name string, deps ...string) *domain.Task {
	return &domain.Task{
		Name:         domain.NewInternedString(name),
		Kind:         domain.KindGroup,
		Dependencies: domain.NewInternedStrings(deps),
	}
}

func bundleTask(name string) *domain.Task {
	return &domain.Task{
		Name: domain.NewInternedString(name),
		Kind: domain.KindBundle,
		Target: &domain.BuildTarget{
			Root:   testRoot,
			Entry:  "src/scripts/" + name + ".js",
			Output: "app/scripts/" + name + "_bundle.js",
		},
	}
}

func newGraph(t *testing.T, tasks ...*domain.Task) *domain.Graph {
	t.Helper()
	g := domain.NewGraph()
	g.SetRoot(testRoot)
	for _, task := range tasks {
		require.NoError(t, g.AddTask(task))
	}
	return g
}

func statuses(results []domain.Result) map[string]domain.TaskStatus {
	out := make(map[string]domain.TaskStatus, len(results))
	for _, r := range results {
		out[r.Task.String()] = r.Status
	}
	return out
}

func TestRun_DependencyOrder(t *testing.T) {
	t.Parallel()
	s, m := setupSchedulerTest(t)
	g := newGraph(t, groupTask("a"), groupTask("b", "a"), groupTask("c", "b"))

	var (
		mu    sync.Mutex
		order []string
	)
	m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, task *domain.Task, _ io.Writer) ([]string, error) {
			mu.Lock()
			defer mu.Unlock()
			order = append(order, task.Name.String())
			return nil, nil
		},
	).Times(3)

	results, err := s.Run(context.Background(), g, []string{"c"}, scheduler.Options{Parallelism: 4})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b", "c"}, order)
	require.Len(t, results, 3)
	for _, r := range results {
		assert.Equal(t, domain.StatusCompleted, r.Status, r.Task.String())
		assert.NoError(t, r.Err)
	}
}

func TestRun_ChildrenCompleteBeforeParent(t *testing.T) {
	t.Parallel()
	s, m := setupSchedulerTest(t)
	parent := groupTask("build")
	parent.Children = domain.NewInternedStrings([]string{"one", "two"})
	g := newGraph(t, parent, groupTask("one"), groupTask("two"))

	var (
		mu   sync.Mutex
		seen []string
	)
	m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, task *domain.Task, _ io.Writer) ([]string, error) {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, task.Name.String())
			return nil, nil
		},
	).Times(3)

	_, err := s.Run(context.Background(), g, []string{"build"}, scheduler.Options{})
	require.NoError(t, err)
	require.Len(t, seen, 3)
	assert.Equal(t, "build", seen[2])
}

func TestRun_PropagateFailureSkipsRemainingTasks(t *testing.T) {
	t.Parallel()
	s, m := setupSchedulerTest(t)
	g := newGraph(t, groupTask("a"), groupTask("b", "a"), groupTask("c"))

	boom := errors.New("boom")
	m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, boom).Times(1)
	m.span.EXPECT().RecordError(boom)

	results, err := s.Run(context.Background(), g, []string{"b", "c"}, scheduler.Options{Parallelism: 1})
	require.Error(t, err)
	require.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
	require.ErrorIs(t, err, boom)
	assert.ErrorContains(t, err, "task execution failed")

	assert.Equal(t, map[string]domain.TaskStatus{
		"a": domain.StatusFailed,
		"b": domain.StatusSkipped,
		"c": domain.StatusSkipped,
	}, statuses(results))
	for _, r := range results {
		if r.Status == domain.StatusSkipped {
			assert.ErrorIs(t, r.Err, domain.ErrTaskSkipped)
		}
	}
}

func TestRun_InFlightTasksFinishAfterFailure(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		s, m := setupSchedulerTest(t)
		g := newGraph(t, groupTask("fail"), groupTask("slow"), groupTask("after", "slow"))

		failed := make(chan struct{})
		m.span.EXPECT().RecordError(gomock.Any())
		m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(_ context.Context, task *domain.Task, _ io.Writer) ([]string, error) {
				if task.Name.String() == "fail" {
					close(failed)
					return nil, errors.New("boom")
				}
				<-failed
				time.Sleep(time.Second)
				return nil, nil
			},
		).Times(2)

		results, err := s.Run(t.Context(), g, []string{"fail", "after"}, scheduler.Options{Parallelism: 2})
		require.Error(t, err)
		assert.Equal(t, map[string]domain.TaskStatus{
			"fail":  domain.StatusFailed,
			"slow":  domain.StatusCompleted,
			"after": domain.StatusSkipped,
		}, statuses(results))
	})
}

func TestRun_ContinuePolicyToleratesFailure(t *testing.T) {
	t.Parallel()
	s, m := setupSchedulerTest(t)
	css := groupTask("build:css")
	css.Policy = domain.PolicyContinue
	g := newGraph(t, css, groupTask("build", "build:css"))

	m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, task *domain.Task, _ io.Writer) ([]string, error) {
			if task.Name.String() == "build:css" {
				return nil, errors.New("undefined variable")
			}
			return nil, nil
		},
	).Times(2)
	m.span.EXPECT().SetAttribute(telemetry.AttrToleratedError, "undefined variable")
	m.logger.EXPECT().Warn(gomock.Any()).Do(func(msg string) {
		assert.Contains(t, msg, "build:css failed, continuing: undefined variable")
	})

	results, err := s.Run(context.Background(), g, []string{"build"}, scheduler.Options{})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, domain.StatusCompleted, results[0].Status)
	assert.True(t, results[0].Tolerated)
	require.Error(t, results[0].Err)
	assert.Equal(t, domain.StatusCompleted, results[1].Status)
	assert.False(t, results[1].Tolerated)
}

func TestRun_CacheHit(t *testing.T) {
	t.Parallel()
	s, m := setupSchedulerTest(t)
	task := bundleTask("popup")
	g := newGraph(t, task)

	inputs := []string{"src/scripts/popup.js"}
	m.store.EXPECT().Get(testRoot, "popup").Return(&domain.BuildInfo{
		TaskName:   "popup",
		InputHash:  "in",
		OutputHash: "out",
		Inputs:     inputs,
	}, nil)
	m.hasher.EXPECT().ComputeInputHash(gomock.Any(), inputs, testRoot).Return("in", nil)
	m.hasher.EXPECT().ComputeOutputHash([]string{task.Target.Output}, testRoot).Return("out", nil)
	m.span.EXPECT().SetAttribute(telemetry.AttrCached, true)

	results, err := s.Run(context.Background(), g, []string{"popup"}, scheduler.Options{})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, domain.StatusCached, results[0].Status)
}

func TestRun_CacheMissRecordsBuildInfo(t *testing.T) {
	t.Parallel()
	s, m := setupSchedulerTest(t)
	task := bundleTask("popup")
	g := newGraph(t, task)

	inputs := []string{"src/scripts/popup.js", "src/scripts/lib.js"}
	gomock.InOrder(
		m.store.EXPECT().Get(testRoot, "popup").Return(&domain.BuildInfo{InputHash: "old"}, nil),
		m.hasher.EXPECT().ComputeInputHash(gomock.Any(), gomock.Nil(), testRoot).Return("new", nil),
		m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).Return(inputs, nil),
		m.hasher.EXPECT().ComputeInputHash(gomock.Any(), inputs, testRoot).Return("in", nil),
		m.hasher.EXPECT().ComputeOutputHash([]string{task.Target.Output}, testRoot).Return("out", nil),
		m.store.EXPECT().Put(testRoot, gomock.Cond(func(info domain.BuildInfo) bool {
			return info.TaskName == "popup" && info.InputHash == "in" &&
				info.OutputHash == "out" && len(info.Inputs) == 2
		})).Return(nil),
	)

	results, err := s.Run(context.Background(), g, []string{"popup"}, scheduler.Options{})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, results[0].Status)
}

func TestRun_NoCacheSkipsLookup(t *testing.T) {
	t.Parallel()
	s, m := setupSchedulerTest(t)
	task := bundleTask("content")
	g := newGraph(t, task)

	m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).Return([]string{"src/scripts/content.js"}, nil)
	m.hasher.EXPECT().ComputeInputHash(gomock.Any(), gomock.Any(), testRoot).Return("in", nil)
	m.hasher.EXPECT().ComputeOutputHash(gomock.Any(), testRoot).Return("out", nil)
	m.store.EXPECT().Put(testRoot, gomock.Any()).Return(nil)

	results, err := s.Run(context.Background(), g, []string{"content"}, scheduler.Options{NoCache: true})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, results[0].Status)
}

func TestRun_StoreFailureOnlyWarns(t *testing.T) {
	t.Parallel()
	s, m := setupSchedulerTest(t)
	g := newGraph(t, bundleTask("options"))

	m.store.EXPECT().Get(testRoot, "options").Return(nil, errors.New("corrupt"))
	m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil, nil)
	m.hasher.EXPECT().ComputeInputHash(gomock.Any(), gomock.Any(), testRoot).Return("in", nil)
	m.hasher.EXPECT().ComputeOutputHash(gomock.Any(), testRoot).Return("out", nil)
	m.store.EXPECT().Put(testRoot, gomock.Any()).Return(errors.New("disk full"))
	m.logger.EXPECT().Warn(gomock.Any()).Do(func(msg string) {
		assert.Contains(t, msg, "build cache not updated: disk full")
	})

	_, err := s.Run(context.Background(), g, []string{"options"}, scheduler.Options{})
	require.NoError(t, err)
}

func TestRun_ParallelismRunsIndependentTasksTogether(t *testing.T) {
	t.Parallel()
	synctest.Test(t, func(t *testing.T) {
		s, m := setupSchedulerTest(t)
		g := newGraph(t, groupTask("one"), groupTask("two"))

		var started sync.WaitGroup
		started.Add(2)
		m.runner.EXPECT().Run(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, *domain.Task, io.Writer) ([]string, error) {
				started.Done()
				started.Wait()
				return nil, nil
			},
		).Times(2)

		_, err := s.Run(t.Context(), g, []string{"one", "two"}, scheduler.Options{Parallelism: 2})
		require.NoError(t, err)
	})
}

func TestRun_CancelledContext(t *testing.T) {
	t.Parallel()
	s, _ := setupSchedulerTest(t)
	g := newGraph(t, groupTask("a"), groupTask("b", "a"))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := s.Run(ctx, g, []string{"b"}, scheduler.Options{})
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, err, domain.ErrBuildExecutionFailed)
	assert.Equal(t, map[string]domain.TaskStatus{
		"a": domain.StatusSkipped,
		"b": domain.StatusSkipped,
	}, statuses(results))
}

func TestRun_UnknownTarget(t *testing.T) {
	t.Parallel()
	s, _ := setupSchedulerTest(t)
	g := newGraph(t, groupTask("a"))

	_, err := s.Run(context.Background(), g, []string{"missing"}, scheduler.Options{})
	require.ErrorContains(t, err, "task not found")
}
