package types

import (
	"fmt"
	"time"
)

// ServerIdentity describes one deployed VPN endpoint instance.
type ServerIdentity struct {
	InstanceName string    `json:"instance_name"`
	Region       string    `json:"region"`
	Zone         string    `json:"zone"`
	MachineType  string    `json:"machine_type"`
	NetworkTier  string    `json:"network_tier"`
	PublicIP     string    `json:"public_ip,omitempty"`
	PublicKey    string    `json:"public_key,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Resolved reports whether the identity is complete enough to connect
// against: both the public IP and the server public key are known.
func (s *ServerIdentity) Resolved() bool {
	return s != nil && s.PublicIP != "" && s.PublicKey != ""
}

// Endpoint renders the host:port peer endpoint for the given listen port.
func (s *ServerIdentity) Endpoint(port int) string {
	return fmt.Sprintf("%s:%d", s.PublicIP, port)
}

// Peer is one authorized client device.
type Peer struct {
	Name      string `yaml:"name" json:"name"`
	PublicKey string `yaml:"public_key" json:"public_key"`
	AllowedIP string `yaml:"allowed_ip" json:"allowed_ip"`
}

// StateRecord is the durable snapshot of what the manager believes about the
// remote endpoint and the local connection. It is advisory: the reconciler
// re-validates it against the provider and the local tunnel before any
// decision with side effects.
type StateRecord struct {
	Server         *ServerIdentity `json:"server,omitempty"`
	Connected      bool            `json:"connected"`
	LastReconciled time.Time       `json:"last_reconciled"`
}

// LifecycleState is the derived state of the managed deployment.
type LifecycleState string

const (
	StateAbsent              LifecycleState = "absent"
	StateProvisioning        LifecycleState = "provisioning"
	StateStopped             LifecycleState = "stopped"
	StateRunningDisconnected LifecycleState = "running-disconnected"
	StateRunningConnected    LifecycleState = "running-connected"
)

// InstanceStatus is the provider-reported run state of an instance.
type InstanceStatus string

const (
	InstanceRunning InstanceStatus = "running"
	InstanceStopped InstanceStatus = "stopped"
	InstancePending InstanceStatus = "pending"
	InstanceUnknown InstanceStatus = "unknown"
)

// Snapshot is what every engine operation hands back to the presentation
// layer: the derived lifecycle state plus any self-healing side effects the
// operation performed.
type Snapshot struct {
	State    LifecycleState  `json:"state"`
	Server   *ServerIdentity `json:"server,omitempty"`
	TunnelUp bool            `json:"tunnel_up"`

	// Drifted is set when any two of the state record, the provider, the
	// tunnel controller and the client config disagreed about identity or
	// address during reconciliation.
	Drifted bool `json:"drifted,omitempty"`

	// Repaired is set when the local client config was auto-patched to
	// match observed provider state.
	Repaired bool `json:"repaired,omitempty"`

	// EgressIP is the caller's observed public address, populated by
	// status checks only.
	EgressIP string   `json:"egress_ip,omitempty"`
	Country  string   `json:"country,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}
