package secondary

import (
	"context"
	"io"

	"gitlab.com/coderunner.net/internal/domain"
)

// Launcher materializes source code into an isolated execution unit and
// starts it. Any error returned is an infrastructure error.
type Launcher interface {
	// Launch writes the source to a fresh scratch area and starts the program.
	// Output is written to stdout/stderr until the unit exits.
	Launch(ctx context.Context, spec domain.LaunchSpec, stdout, stderr io.Writer) (ExecutionUnit, error)

	// Name identifies the isolation backend
	Name() string
}

// ExecutionUnit is a running program together with every process it spawned.
type ExecutionUnit interface {
	// Wait blocks until the program has exited and its output is flushed.
	Wait() (domain.ExitInfo, error)

	// Terminate forcibly kills the whole unit. Safe to call more than once.
	Terminate() error

	// Release frees the scratch area and any isolation resources. It must be
	// called exactly once on every path after a successful Launch.
	Release() error
}
