package ports

import (
	"context"
	"io"

	"go.trai.ch/extbuild/internal/core/domain"
)

// Executor defines the interface for running external programs.
//
//go:generate mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks
type Executor interface {
	// Execute runs cmd to completion.
	//
	// stdout receives the program's standard output untouched; stderr receives
	// its diagnostics. It returns an error if the program cannot start or exits non-zero.
	Execute(ctx context.Context, cmd *domain.Command, stdout, stderr io.Writer) error
}
