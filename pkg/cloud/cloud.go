package cloud

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudtun/cloudtun/pkg/types"
)

// CreateSpec describes the instance a Create call should provision.
type CreateSpec struct {
	Name        string
	Zone        string
	MachineType string
	NetworkTier string
	Tags        []string
	BootScript  string
}

// Instance is the provider's view of one compute instance.
type Instance struct {
	Name       string
	Status     types.InstanceStatus
	ExternalIP string
}

// Gateway is the imperative command surface against the cloud provider.
// Every call is keyed by instance name and zone, and every call is safe
// against a missing instance: implementations return *NotFoundError, they
// never panic or invent state.
type Gateway interface {
	Create(ctx context.Context, spec CreateSpec) error
	Delete(ctx context.Context, name, zone string) error
	Start(ctx context.Context, name, zone string) error
	Stop(ctx context.Context, name, zone string) error
	Describe(ctx context.Context, name, zone string) (*Instance, error)

	// BootOutput returns the instance's serial console contents. The boot
	// script emits the server public key there as a "[PUBLIC_KEY] <key>"
	// line once setup completes.
	BootOutput(ctx context.Context, name, zone string) (string, error)
}

// NotFoundError reports that the named instance does not exist at the
// provider. The reconciler treats it as drift, never as a fatal error.
type NotFoundError struct {
	Name string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("instance %q not found", e.Name)
}

// TransientError wraps a provider call that failed for reasons unrelated to
// resource existence (network, timeout, quota). Callers retry with backoff
// before surfacing it.
type TransientError struct {
	Op  string
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("provider %s failed: %v", e.Op, e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is, or wraps, a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
