/*
Package reconciler is the heart of the manager: it computes the
authoritative lifecycle state of the deployment by cross-checking three
sources, and drives transitions between states.

The sources are the durable state record, the cloud provider and the
local tunnel interface. The record is advisory only. Before any operation
with side effects, the engine re-derives state from the live sources and
corrects the record to match:

	Absent -> Provisioning -> Stopped <-> Running-Disconnected <-> Running-Connected
	   ^                                         |
	   +--------------- Deleting <---------------+

Two self-healing rules keep the tool usable after out-of-band changes.
An instance the provider no longer knows clears the recorded identity
without issuing a delete. A running instance whose address or key
disagrees with the record or the client config wins: the record is
corrected and the config repatched, with the divergence surfaced on the
returned snapshot as the Drifted and Repaired flags.

Deployment is a sequence of individually idempotent steps. The identity
is persisted immediately after the create call is acknowledged, so any
later failure, including a boot key that never appears, leaves a
provisioning record a retry can resume from. A partially created instance
is never deleted automatically; that decision belongs to the operator.
*/
package reconciler
