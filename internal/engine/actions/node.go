package actions

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/extbuild/internal/adapters/esbuild"
	"go.trai.ch/extbuild/internal/adapters/packager"
	"go.trai.ch/extbuild/internal/adapters/sass"
	"go.trai.ch/extbuild/internal/core/ports"
)

// NodeID is the unique identifier for the task runner Graft node.
const NodeID graft.ID = "engine.actions"

func init() {
	graft.Register(graft.Node[ports.TaskRunner]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{esbuild.NodeID, sass.NodeID, packager.NodeID},
		Run: func(ctx context.Context) (ports.TaskRunner, error) {
			bundler, err := graft.Dep[ports.Bundler](ctx)
			if err != nil {
				return nil, err
			}
			compiler, err := graft.Dep[ports.StyleCompiler](ctx)
			if err != nil {
				return nil, err
			}
			pkg, err := graft.Dep[ports.Packager](ctx)
			if err != nil {
				return nil, err
			}
			return NewRunner(bundler, compiler, pkg), nil
		},
	})
}
