// Package scheduler runs the tasks of a plan concurrently in prerequisite order.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"go.trai.ch/extbuild/internal/adapters/telemetry"
	"go.trai.ch/extbuild/internal/core/domain"
	"go.trai.ch/extbuild/internal/core/ports"
	"go.trai.ch/zerr"
)

// Options configures a single run.
type Options struct {
	// Parallelism caps the number of concurrently running tasks. Zero means runtime.NumCPU().
	Parallelism int
	// NoCache runs every task even when the build cache proves it current.
	NoCache bool
}

// Scheduler manages the execution of tasks in the dependency graph.
type Scheduler struct {
	runner ports.TaskRunner
	store  ports.BuildInfoStore
	hasher ports.Hasher
	tracer ports.Tracer
	logger ports.Logger
}

// NewScheduler creates a new Scheduler with the given dependencies.
func NewScheduler(
	runner ports.TaskRunner,
	store ports.BuildInfoStore,
	hasher ports.Hasher,
	tracer ports.Tracer,
	logger ports.Logger,
) *Scheduler {
	return &Scheduler{
		runner: runner,
		store:  store,
		hasher: hasher,
		tracer: tracer,
		logger: logger,
	}
}

// Run executes the plan for targetNames and returns one result per planned task
// in plan order.
//
// A failing propagate task stops new tasks from starting; tasks already running
// finish, and everything left becomes Skipped. The returned error then joins
// domain.ErrBuildExecutionFailed with the task errors.
func (s *Scheduler) Run(
	ctx context.Context,
	graph *domain.Graph,
	targetNames []string,
	opts Options,
) ([]domain.Result, error) {
	plan, err := graph.Plan(targetNames)
	if err != nil {
		return nil, err
	}

	planned := domain.Strings(plan.Tasks())
	s.tracer.EmitPlan(ctx, planned, plan.DependencyMap(), targetNames)

	state := s.newRunState(ctx, graph, plan, opts)
	state.runExecutionLoop()

	return state.results(), state.err()
}

type result struct {
	task      domain.InternedString
	err       error
	cached    bool
	inputs    []string
	inputHash string
	duration  time.Duration
}

type runState struct {
	s           *Scheduler
	ctx         context.Context
	graph       *domain.Graph
	plan        *domain.Plan
	inDegree    map[domain.InternedString]int
	ready       []domain.InternedString
	active      int
	aborted     bool
	parallelism int
	noCache     bool
	resultsCh   chan result
	outcomes    map[domain.InternedString]domain.Result
	errs        error
}

func (s *Scheduler) newRunState(ctx context.Context, graph *domain.Graph, plan *domain.Plan, opts Options) *runState {
	parallelism := opts.Parallelism
	if parallelism <= 0 {
		parallelism = runtime.NumCPU()
	}

	state := &runState{
		s:           s,
		ctx:         ctx,
		graph:       graph,
		plan:        plan,
		inDegree:    make(map[domain.InternedString]int, plan.Len()),
		parallelism: parallelism,
		noCache:     opts.NoCache,
		resultsCh:   make(chan result, plan.Len()),
		outcomes:    make(map[domain.InternedString]domain.Result, plan.Len()),
	}

	for _, name := range plan.Tasks() {
		degree := len(plan.Prerequisites(name))
		state.inDegree[name] = degree
		if degree == 0 {
			state.ready = append(state.ready, name)
		}
	}
	return state
}

func (state *runState) runExecutionLoop() {
	for {
		state.schedule()
		if state.active == 0 {
			return
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-state.ctx.Done():
			// Stop scheduling; wait for in-flight tasks to report back.
			res := <-state.resultsCh
			state.handleResult(res)
		}
	}
}

func (state *runState) canSchedule() bool {
	return !state.aborted && state.ctx.Err() == nil
}

func (state *runState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && state.canSchedule() {
		name := state.ready[0]
		state.ready = state.ready[1:]

		task, _ := state.graph.GetTask(name)
		state.active++

		go state.executeTask(&task)
	}
}

func (state *runState) executeTask(t *domain.Task) {
	start := time.Now()

	// The span ends before the result is sent so renderers see the task
	// complete before the run does.
	res := func() result {
		ctx, span := state.s.tracer.Start(state.ctx, t.Name.String())
		defer span.End()

		cacheable := t.Cacheable()
		if cacheable && !state.noCache && state.s.isCached(t, state.graph.Root()) {
			span.SetAttribute(telemetry.AttrCached, true)
			return result{task: t.Name, cached: true}
		}

		inputs, err := state.s.runner.Run(ctx, t, span)
		if err != nil {
			if t.Tolerant() {
				span.SetAttribute(telemetry.AttrToleratedError, err.Error())
			} else {
				span.RecordError(err)
			}
			return result{task: t.Name, err: err}
		}

		res := result{task: t.Name, inputs: inputs}
		if cacheable {
			hash, hashErr := state.s.hasher.ComputeInputHash(t, inputs, state.graph.Root())
			if hashErr != nil {
				state.s.logger.Warn(fmt.Sprintf("%s: build cache not updated: %v", t.Name, hashErr))
			}
			res.inputHash = hash
		}
		return res
	}()

	res.duration = time.Since(start)
	state.resultsCh <- res
}

func (state *runState) handleResult(res result) {
	state.active--
	task, _ := state.graph.GetTask(res.task)

	outcome := domain.Result{Task: res.task, Duration: res.duration}

	switch {
	case res.err != nil && task.Tolerant():
		state.s.logger.Warn(fmt.Sprintf("%s failed, continuing: %v", res.task, res.err))
		outcome.Status = domain.StatusCompleted
		outcome.Err = res.err
		outcome.Tolerated = true
	case res.err != nil:
		outcome.Status = domain.StatusFailed
		outcome.Err = res.err
		state.aborted = true
		state.errs = errors.Join(state.errs, zerr.With(
			zerr.Wrap(res.err, domain.ErrTaskExecutionFailed.Error()),
			"task", res.task.String(),
		))
	case res.cached:
		outcome.Status = domain.StatusCached
	default:
		outcome.Status = domain.StatusCompleted
		if res.inputHash != "" {
			state.s.record(&task, res, state.graph.Root())
		}
	}

	state.outcomes[res.task] = outcome

	if !outcome.Status.Done() {
		return
	}
	for _, dep := range state.plan.Dependents(res.task) {
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 {
			state.ready = append(state.ready, dep)
		}
	}
}

// results reports every planned task, marking those that never ran as Skipped.
func (state *runState) results() []domain.Result {
	out := make([]domain.Result, 0, state.plan.Len())
	for _, name := range state.plan.Tasks() {
		outcome, ok := state.outcomes[name]
		if !ok {
			outcome = domain.Result{Task: name, Status: domain.StatusSkipped, Err: domain.ErrTaskSkipped}
		}
		out = append(out, outcome)
	}
	return out
}

func (state *runState) err() error {
	errs := state.errs
	if ctxErr := state.ctx.Err(); ctxErr != nil {
		errs = errors.Join(errs, ctxErr)
	}
	if errs == nil {
		return nil
	}
	return errors.Join(domain.ErrBuildExecutionFailed, errs)
}

// isCached reports whether the stored build info still describes the task's
// inputs and outputs. Any error is treated as a cache miss.
func (s *Scheduler) isCached(task *domain.Task, root string) bool {
	info, err := s.store.Get(root, task.Name.String())
	if err != nil || info == nil {
		return false
	}

	hash, err := s.hasher.ComputeInputHash(task, info.Inputs, root)
	if err != nil || hash != info.InputHash {
		return false
	}

	outputHash, err := s.hasher.ComputeOutputHash([]string{task.Target.Output}, root)
	if err != nil {
		return false
	}
	return outputHash == info.OutputHash
}

// record stores the build info of a successful task. Failures only cost a cache miss.
func (s *Scheduler) record(task *domain.Task, res result, root string) {
	outputHash, err := s.hasher.ComputeOutputHash([]string{task.Target.Output}, root)
	if err != nil {
		s.logger.Warn(fmt.Sprintf("%s: build cache not updated: %v", task.Name, err))
		return
	}

	err = s.store.Put(root, domain.BuildInfo{
		TaskName:   task.Name.String(),
		InputHash:  res.inputHash,
		OutputHash: outputHash,
		Inputs:     res.inputs,
		Timestamp:  time.Now(),
	})
	if err != nil {
		s.logger.Warn(fmt.Sprintf("%s: build cache not updated: %v", task.Name, err))
	}
}
