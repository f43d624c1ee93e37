package devloop

import (
	"context"

	"go.trai.ch/extbuild/internal/core/ports"
)

// buildQueue runs builds one at a time. Requests made while a build runs
// collapse into a single follow-up build.
type buildQueue struct {
	build   BuildFunc
	logger  ports.Logger
	pending chan struct{}
}

func newBuildQueue(build BuildFunc, logger ports.Logger) *buildQueue {
	return &buildQueue{
		build:   build,
		logger:  logger,
		pending: make(chan struct{}, 1),
	}
}

func (q *buildQueue) request() {
	select {
	case q.pending <- struct{}{}:
	default:
	}
}

func (q *buildQueue) run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-q.pending:
			if err := q.build(ctx); err != nil && ctx.Err() == nil {
				q.logger.Error(err)
			}
		}
	}
}
