package server

import "context"

// Server defines the common lifecycle contract for transport servers managed
// by this package.
type Server interface {
	// RunServer serves until a termination signal arrives.
	RunServer()

	// Run serves until ctx is done, then shuts down.
	Run(ctx context.Context)

	// Shutdown gracefully stops the server and frees associated resources.
	Shutdown()
}
