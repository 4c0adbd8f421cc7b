package secondary

import (
	"context"

	"gitlab.com/examgrid-2026.net/internal/domain"
)

// CloudProvisioner launches and releases the compute instances that run the
// judging backend.
type CloudProvisioner interface {
	// Launch requests a new instance of the given class and returns its
	// identifier and reachable address.
	Launch(ctx context.Context, class domain.InstanceClass) (*domain.Instance, error)

	// Terminate releases an instance. Terminating an already-terminated or
	// unknown instance is a no-op.
	Terminate(ctx context.Context, instanceID string) error
}
