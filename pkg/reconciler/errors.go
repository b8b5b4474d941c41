package reconciler

import (
	"fmt"

	"github.com/cloudtun/cloudtun/pkg/types"
)

// PreconditionError reports an operation requested while the deployment is
// in a lifecycle state that does not permit it. No side effects have
// occurred when it is returned.
type PreconditionError struct {
	Op    string
	State types.LifecycleState
}

func (e *PreconditionError) Error() string {
	return fmt.Sprintf("cannot %s while the endpoint is %s", e.Op, e.State)
}

// BootTimeoutError reports an instance that reached running but never
// published its public key within the polling bound. The identity stays
// provisioning so a later retry can resume from here.
type BootTimeoutError struct {
	Instance string
	Attempts int
}

func (e *BootTimeoutError) Error() string {
	return fmt.Sprintf("instance %s: no public key in boot output after %d attempts, inspect the serial console", e.Instance, e.Attempts)
}
