package supervisor

import (
	"context"

	"gitlab.com/coderunner.net/internal/domain"
)

// ISupervisor owns one execution from launch to a terminal outcome.
type ISupervisor interface {
	// Run returns an outcome for every program-level result. A non-nil error
	// means the engine itself failed and no verdict should be produced.
	Run(ctx context.Context, spec domain.LaunchSpec) (domain.Outcome, error)
}
