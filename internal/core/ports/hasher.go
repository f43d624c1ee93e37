package ports

import "go.trai.ch/extbuild/internal/core/domain"

// Hasher defines the interface for computing hashes.
//
//go:generate mockgen -source=hasher.go -destination=mocks/mock_hasher.go -package=mocks
type Hasher interface {
	// ComputeInputHash hashes the task definition together with the content of inputs.
	ComputeInputHash(task *domain.Task, inputs []string, root string) (string, error)

	// ComputeOutputHash hashes the content of outputs.
	ComputeOutputHash(outputs []string, root string) (string, error)
}
