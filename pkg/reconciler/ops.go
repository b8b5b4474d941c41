package reconciler

import (
	"context"
	"fmt"
	"os"

	"github.com/cloudtun/cloudtun/pkg/cloud"
	"github.com/cloudtun/cloudtun/pkg/types"
	"github.com/cloudtun/cloudtun/pkg/wireguard"
)

// Deploy provisions a new endpoint, or resumes a provisioning one. The
// steps after the create call are each idempotent: a crash or cancellation
// leaves a provisioning identity behind that a retry picks up, and a
// partially created instance is never deleted automatically.
func (e *Engine) Deploy(ctx context.Context) (*types.Snapshot, error) {
	snap, err := e.Reconcile(ctx)
	if err != nil {
		return nil, err
	}

	switch snap.State {
	case types.StateAbsent:
	case types.StateProvisioning:
		e.logger.Info().Msg("Resuming interrupted deployment")
		return e.finishProvisioning(ctx)
	default:
		return nil, &PreconditionError{Op: "deploy", State: snap.State}
	}

	script, err := e.bootScript()
	if err != nil {
		return nil, err
	}

	name := e.cfg.InstanceName()
	e.logger.Info().
		Str("instance", name).
		Str("zone", e.cfg.Zone).
		Str("machine_type", e.cfg.MachineType).
		Msg("Creating instance")

	err = e.cloud.Create(ctx, cloud.CreateSpec{
		Name:        name,
		Zone:        e.cfg.Zone,
		MachineType: e.cfg.MachineType,
		NetworkTier: e.cfg.NetworkTier,
		Tags:        e.cfg.FirewallTags,
		BootScript:  script,
	})
	if err != nil {
		return nil, err
	}

	rec, err := e.store.Load()
	if err != nil {
		return nil, err
	}
	rec.Server = &types.ServerIdentity{
		InstanceName: name,
		Region:       e.cfg.Region,
		Zone:         e.cfg.Zone,
		MachineType:  e.cfg.MachineType,
		NetworkTier:  e.cfg.NetworkTier,
		CreatedAt:    e.now(),
	}
	if err := e.store.Save(rec); err != nil {
		return nil, err
	}

	return e.finishProvisioning(ctx)
}

// finishProvisioning carries a provisioning identity to resolved: wait for
// running, capture the boot key, persist, patch the client config.
func (e *Engine) finishProvisioning(ctx context.Context) (*types.Snapshot, error) {
	rec, err := e.store.Load()
	if err != nil {
		return nil, err
	}
	server := rec.Server
	if server == nil {
		return nil, &PreconditionError{Op: "resume deployment", State: types.StateAbsent}
	}

	e.logger.Info().Str("instance", server.InstanceName).Msg("Waiting for instance to run")
	var observed *cloud.Instance
	done, err := e.poll(ctx, runningBackoff, func(ctx context.Context) (bool, error) {
		inst, err := e.cloud.Describe(ctx, server.InstanceName, server.Zone)
		if err != nil {
			return false, err
		}
		observed = inst
		return inst.Status == types.InstanceRunning && inst.ExternalIP != "", nil
	})
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, fmt.Errorf("instance %s did not reach running within the polling bound", server.InstanceName)
	}

	e.logger.Info().
		Str("instance", server.InstanceName).
		Str("ip", observed.ExternalIP).
		Msg("Instance running, waiting for boot key")

	var key string
	done, err = e.poll(ctx, bootBackoff, func(ctx context.Context) (bool, error) {
		out, err := e.cloud.BootOutput(ctx, server.InstanceName, server.Zone)
		if err != nil {
			return false, err
		}
		k, ok := wireguard.ParseBootPublicKey(out)
		if ok {
			key = k
		}
		return ok, nil
	})
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, &BootTimeoutError{Instance: server.InstanceName, Attempts: bootBackoff.attempts}
	}

	server.PublicIP = observed.ExternalIP
	server.PublicKey = key
	if err := e.store.Save(rec); err != nil {
		return nil, err
	}

	if err := wireguard.PatchClientConfig(e.cfg.ClientConfig, key, server.Endpoint(e.cfg.ListenPort)); err != nil {
		return nil, err
	}
	e.logger.Info().
		Str("endpoint", server.Endpoint(e.cfg.ListenPort)).
		Msg("Deployment complete, client config updated")

	return e.Reconcile(ctx)
}

// Start boots a stopped instance. The resulting state is re-derived rather
// than assumed, since the provider is free to report something else.
func (e *Engine) Start(ctx context.Context) (*types.Snapshot, error) {
	snap, err := e.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	if snap.State != types.StateStopped {
		return nil, &PreconditionError{Op: "start", State: snap.State}
	}
	if err := e.cloud.Start(ctx, snap.Server.InstanceName, snap.Server.Zone); err != nil {
		return nil, err
	}
	done, err := e.poll(ctx, runningBackoff, func(ctx context.Context) (bool, error) {
		inst, err := e.cloud.Describe(ctx, snap.Server.InstanceName, snap.Server.Zone)
		if err != nil {
			return false, err
		}
		return inst.Status == types.InstanceRunning && inst.ExternalIP != "", nil
	})
	if err != nil {
		return nil, err
	}
	if !done {
		return nil, fmt.Errorf("instance %s did not reach running within the polling bound", snap.Server.InstanceName)
	}
	return e.Reconcile(ctx)
}

// Stop halts a running instance. An active tunnel is torn down first so
// the interface does not keep routing traffic at a dead endpoint.
func (e *Engine) Stop(ctx context.Context) (*types.Snapshot, error) {
	snap, err := e.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	switch snap.State {
	case types.StateRunningConnected, types.StateRunningDisconnected:
	default:
		return nil, &PreconditionError{Op: "stop", State: snap.State}
	}
	if snap.TunnelUp {
		if err := e.tunnel.Down(ctx); err != nil {
			return nil, err
		}
	}
	if err := e.cloud.Stop(ctx, snap.Server.InstanceName, snap.Server.Zone); err != nil {
		return nil, err
	}
	return e.Reconcile(ctx)
}

// Delete removes the instance and clears the recorded identity. The client
// config is deliberately left alone; the next deploy repatches it. An
// instance already gone at the provider still clears the identity.
func (e *Engine) Delete(ctx context.Context) (*types.Snapshot, error) {
	rec, err := e.store.Load()
	if err != nil {
		return nil, err
	}
	if rec.Server == nil {
		return nil, &PreconditionError{Op: "delete", State: types.StateAbsent}
	}
	if e.tunnel.IsUp() {
		if err := e.tunnel.Down(ctx); err != nil {
			return nil, err
		}
	}

	e.logger.Info().Str("instance", rec.Server.InstanceName).Msg("Deleting instance")
	if err := e.cloud.Delete(ctx, rec.Server.InstanceName, rec.Server.Zone); err != nil && !cloud.IsNotFound(err) {
		return nil, err
	}

	rec.Server = nil
	rec.Connected = false
	rec.LastReconciled = e.now()
	if err := e.store.Save(rec); err != nil {
		return nil, err
	}
	return e.Reconcile(ctx)
}

// Connect brings the tunnel up. It refuses to run against anything but a
// resolved, running, disconnected endpoint, and refuses a drifted peer
// section that could not be repaired.
func (e *Engine) Connect(ctx context.Context) (*types.Snapshot, error) {
	snap, err := e.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	if snap.State != types.StateRunningDisconnected {
		return nil, &PreconditionError{Op: "connect", State: snap.State}
	}
	if snap.Drifted && !snap.Repaired {
		return nil, fmt.Errorf("client config drifted from the deployed endpoint and could not be repaired")
	}
	if err := e.tunnel.Up(ctx); err != nil {
		return nil, err
	}
	return e.Reconcile(ctx)
}

// Disconnect tears the tunnel down. Tearing down an already-down tunnel is
// a no-op.
func (e *Engine) Disconnect(ctx context.Context) (*types.Snapshot, error) {
	if err := e.tunnel.Down(ctx); err != nil {
		return nil, err
	}
	return e.Reconcile(ctx)
}

// StatusCheck reconciles and additionally resolves the caller's public
// egress address, flagging a connected tunnel whose traffic does not leave
// through the endpoint. Lookup failures degrade the view, they do not fail
// the check.
func (e *Engine) StatusCheck(ctx context.Context) (*types.Snapshot, error) {
	snap, err := e.Reconcile(ctx)
	if err != nil {
		return nil, err
	}
	info, err := e.egress.Lookup(ctx)
	if err != nil {
		snap.Warnings = append(snap.Warnings, "egress lookup failed: "+err.Error())
		return snap, nil
	}
	snap.EgressIP = info.IP
	snap.Country = info.Country
	if snap.State == types.StateRunningConnected && snap.Server.Resolved() && info.IP != snap.Server.PublicIP {
		snap.Warnings = append(snap.Warnings,
			fmt.Sprintf("tunnel is up but egress %s does not match endpoint %s", info.IP, snap.Server.PublicIP))
	}
	return snap, nil
}

// bootScript loads the configured script, or falls back to the built-in
// one, and splices the rendered peer directives in.
func (e *Engine) bootScript() (string, error) {
	script := wireguard.DefaultBootScript()
	if e.cfg.BootScript != "" {
		data, err := os.ReadFile(e.cfg.BootScript)
		if err != nil {
			return "", fmt.Errorf("reading boot script: %w", err)
		}
		script = string(data)
	}
	return wireguard.RenderBootScript(script, e.cfg.Peers)
}
