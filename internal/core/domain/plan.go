package domain

import (
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Plan is the set of tasks a run executes together with their effective prerequisites.
//
// A task's effective prerequisites are its dependencies and its children. In addition,
// every child inherits the dependencies of the parent that pulled it into the run, so
// "make" runs "build" before any "make:*" child while "make:chrome" on its own does not.
type Plan struct {
	order         []InternedString
	prerequisites map[InternedString][]InternedString
	dependents    map[InternedString][]InternedString
}

// Plan computes the execution plan for the given targets.
func (g *Graph) Plan(targetNames []string) (*Plan, error) {
	if len(targetNames) == 0 {
		return nil, ErrNoTargetsSpecified
	}
	if err := g.Validate(); err != nil {
		return nil, err
	}

	targets := make([]InternedString, 0, len(targetNames))
	for _, raw := range targetNames {
		name := NewInternedString(raw)
		if _, ok := g.tasks[name]; !ok {
			return nil, zerr.With(ErrTaskNotFound, "task", raw)
		}
		targets = append(targets, name)
	}

	b := planBuilder{
		graph:     g,
		prereqs:   make(map[InternedString][]InternedString),
		inherited: make(map[InternedString][]InternedString),
	}
	for _, t := range targets {
		b.visit(t, nil)
	}

	p := &Plan{
		prerequisites: b.prereqs,
		dependents:    make(map[InternedString][]InternedString, len(b.seen)),
	}
	for _, name := range b.seen {
		for _, pre := range b.prereqs[name] {
			p.dependents[pre] = append(p.dependents[pre], name)
		}
	}

	if err := p.sort(b.seen); err != nil {
		return nil, err
	}
	return p, nil
}

type planBuilder struct {
	graph     *Graph
	seen      []InternedString
	prereqs   map[InternedString][]InternedString
	inherited map[InternedString][]InternedString
}

// visit records name in the plan with the given inherited prerequisites.
// A task is revisited whenever its inherited set grows so the growth reaches its children.
func (b *planBuilder) visit(name InternedString, inherit []InternedString) {
	_, known := b.prereqs[name]
	grew := false
	for _, dep := range inherit {
		if !slices.Contains(b.inherited[name], dep) {
			b.inherited[name] = append(b.inherited[name], dep)
			grew = true
		}
	}
	if known && !grew {
		return
	}

	task := b.graph.tasks[name]
	if !known {
		b.seen = append(b.seen, name)
		b.prereqs[name] = appendUnique(nil, edges(&task)...)
	}
	b.prereqs[name] = appendUnique(b.prereqs[name], b.inherited[name]...)

	for _, dep := range task.Dependencies {
		b.visit(dep, nil)
	}

	childInherit := appendUnique(slices.Clone(task.Dependencies), b.inherited[name]...)
	for _, child := range task.Children {
		b.visit(child, childInherit)
	}
}

func appendUnique(dst []InternedString, items ...InternedString) []InternedString {
	for _, it := range items {
		if !slices.Contains(dst, it) {
			dst = append(dst, it)
		}
	}
	return dst
}

// sort orders the plan topologically, keeping discovery order among independent tasks.
func (p *Plan) sort(seen []InternedString) error {
	inDegree := make(map[InternedString]int, len(seen))
	for _, name := range seen {
		inDegree[name] = len(p.prerequisites[name])
	}

	var ready []InternedString
	for _, name := range seen {
		if inDegree[name] == 0 {
			ready = append(ready, name)
		}
	}

	p.order = make([]InternedString, 0, len(seen))
	for len(ready) > 0 {
		name := ready[0]
		ready = ready[1:]
		p.order = append(p.order, name)
		for _, dep := range p.dependents[name] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				ready = append(ready, dep)
			}
		}
	}

	if len(p.order) != len(seen) {
		var stuck []string
		for _, name := range seen {
			if inDegree[name] > 0 {
				stuck = append(stuck, name.String())
			}
		}
		return zerr.With(ErrCycleDetected, "cycle", strings.Join(stuck, ", "))
	}
	return nil
}

// Tasks returns every task of the plan in execution order.
func (p *Plan) Tasks() []InternedString {
	return p.order
}

// Len returns the number of tasks in the plan.
func (p *Plan) Len() int {
	return len(p.order)
}

// Contains reports whether name is part of the plan.
func (p *Plan) Contains(name InternedString) bool {
	_, ok := p.prerequisites[name]
	return ok
}

// Prerequisites returns the effective prerequisites of name.
func (p *Plan) Prerequisites(name InternedString) []InternedString {
	return p.prerequisites[name]
}

// Dependents returns the tasks of the plan waiting on name.
func (p *Plan) Dependents(name InternedString) []InternedString {
	return p.dependents[name]
}

// DependencyMap returns the plan's prerequisites keyed by task name.
func (p *Plan) DependencyMap() map[string][]string {
	out := make(map[string][]string, len(p.order))
	for _, name := range p.order {
		pre := p.prerequisites[name]
		deps := make([]string, len(pre))
		for i, d := range pre {
			deps[i] = d.String()
		}
		out[name.String()] = deps
	}
	return out
}
