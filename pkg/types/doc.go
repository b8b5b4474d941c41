/*
Package types defines the core data structures used throughout cloudtun.

It contains the domain model shared by every other package: the server
identity describing one deployed VPN endpoint, the authorized client peers,
the durable state record, the derived lifecycle states and the snapshot
returned by engine operations.

# Lifecycle

A deployment moves through a small set of derived states:

	absent → provisioning → running-disconnected ⇄ running-connected
	                      ↘ stopped ↗

Delete returns the deployment to absent from any state with a recorded
identity; the delete call is synchronous, so no intermediate state is
observable.

States are never stored verbatim; the reconciler derives them on every
operation from the state record, the cloud provider and the local tunnel.
The stored StateRecord is advisory and must be re-validated before any
decision that costs money or changes connectivity.
*/
package types
