package ports

import "context"

// Reloader notifies connected browsers that the built extension changed.
//
//go:generate mockgen -source=reloader.go -destination=mocks/mock_reloader.go -package=mocks
type Reloader interface {
	// Serve listens on addr and accepts clients until ctx is cancelled.
	Serve(ctx context.Context, addr string) error
	// Reload sends one reload notification to every connected client.
	// An empty path asks for a full reload.
	Reload(path string)
}
