package reconciler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/cloudtun/cloudtun/pkg/cloud"
	"github.com/cloudtun/cloudtun/pkg/config"
	"github.com/cloudtun/cloudtun/pkg/ipinfo"
	"github.com/cloudtun/cloudtun/pkg/log"
	"github.com/cloudtun/cloudtun/pkg/storage"
	"github.com/cloudtun/cloudtun/pkg/types"
	"github.com/cloudtun/cloudtun/pkg/wireguard"
)

// EgressLookup resolves the public address local traffic currently leaves
// through. Used by status checks only.
type EgressLookup interface {
	Lookup(ctx context.Context) (*ipinfo.Info, error)
}

// Engine cross-checks the state store, the cloud gateway and the tunnel
// controller to derive the authoritative lifecycle state, and drives
// transitions between states. Its operations are not re-entrant; the
// command surface invokes one at a time.
type Engine struct {
	cfg    *config.Config
	store  storage.Store
	cloud  cloud.Gateway
	tunnel wireguard.Controller
	egress EgressLookup
	logger zerolog.Logger

	sleep func(context.Context, time.Duration) error
	now   func() time.Time
}

// New assembles an engine over the given collaborators.
func New(cfg *config.Config, store storage.Store, gateway cloud.Gateway, tunnel wireguard.Controller, egress EgressLookup) *Engine {
	return &Engine{
		cfg:    cfg,
		store:  store,
		cloud:  gateway,
		tunnel: tunnel,
		egress: egress,
		logger: log.WithComponent("reconciler"),
		sleep:  sleepContext,
		now:    time.Now,
	}
}

// Reconcile derives the current lifecycle state from live sources and
// corrects the state store wherever cached state diverges from observed
// reality. The provider is authoritative for instance existence and run
// state; the tunnel controller is authoritative for the connection flag
// only. A missing state record is rebuilt from the provider, since the
// instance name is deterministic.
func (e *Engine) Reconcile(ctx context.Context) (*types.Snapshot, error) {
	rec, err := e.store.Load()
	if err != nil {
		return nil, err
	}

	snap := &types.Snapshot{TunnelUp: e.tunnel.IsUp()}

	inst, err := e.cloud.Describe(ctx, e.cfg.InstanceName(), e.cfg.Zone)
	switch {
	case cloud.IsNotFound(err):
		if rec.Server != nil {
			e.logger.Warn().
				Str("instance", rec.Server.InstanceName).
				Msg("Recorded instance no longer exists, clearing identity")
			rec.Server = nil
			snap.Drifted = true
		}
		snap.State = types.StateAbsent
		if snap.TunnelUp {
			snap.Warnings = append(snap.Warnings, "local tunnel is up but no endpoint exists, run disconnect")
		}
	case err != nil:
		return nil, err
	default:
		if rec.Server == nil {
			e.logger.Warn().
				Str("instance", inst.Name).
				Msg("Found unrecorded instance, rebuilding identity")
			rec.Server = &types.ServerIdentity{
				InstanceName: inst.Name,
				Region:       e.cfg.Region,
				Zone:         e.cfg.Zone,
				MachineType:  e.cfg.MachineType,
				NetworkTier:  e.cfg.NetworkTier,
				CreatedAt:    e.now(),
			}
			snap.Drifted = true
		}
		e.observe(ctx, rec, inst, snap)
	}

	rec.Connected = snap.State == types.StateRunningConnected
	rec.LastReconciled = e.now()
	if err := e.store.Save(rec); err != nil {
		return nil, err
	}
	snap.Server = rec.Server
	return snap, nil
}

// observe folds the provider's live view of an existing instance into the
// state record, repairing the cached address and the client config when
// they lag behind observed reality.
func (e *Engine) observe(ctx context.Context, rec *types.StateRecord, inst *cloud.Instance, snap *types.Snapshot) {
	server := rec.Server

	if inst.ExternalIP != "" && inst.ExternalIP != server.PublicIP {
		if server.PublicIP != "" {
			e.logger.Warn().
				Str("cached", server.PublicIP).
				Str("observed", inst.ExternalIP).
				Msg("Instance address changed, correcting cached identity")
			snap.Drifted = true
		}
		server.PublicIP = inst.ExternalIP
	}

	switch inst.Status {
	case types.InstanceRunning:
		if !server.Resolved() {
			// Create acknowledged but the boot key was never
			// captured. Try once here; deploy retries with backoff.
			if out, err := e.cloud.BootOutput(ctx, server.InstanceName, server.Zone); err == nil {
				if key, ok := wireguard.ParseBootPublicKey(out); ok {
					server.PublicKey = key
				}
			}
		}
		if !server.Resolved() {
			snap.State = types.StateProvisioning
			return
		}
		e.repairClientConfig(server, snap)
		if snap.TunnelUp {
			snap.State = types.StateRunningConnected
		} else {
			snap.State = types.StateRunningDisconnected
		}
	case types.InstanceStopped:
		snap.State = types.StateStopped
		if snap.TunnelUp {
			snap.Warnings = append(snap.Warnings, "local tunnel is up while the instance is stopped")
		}
	case types.InstancePending:
		snap.State = types.StateProvisioning
	default:
		snap.State = types.StateProvisioning
		snap.Warnings = append(snap.Warnings, "provider reported an unknown instance status")
	}
}

// repairClientConfig re-patches the peer section when it disagrees with
// the resolved identity. Reconciliation itself never fails on a malformed
// local file, but an unverifiable peer section is drift that a repair did
// not resolve, which blocks the connect path.
func (e *Engine) repairClientConfig(server *types.ServerIdentity, snap *types.Snapshot) {
	sec, err := wireguard.ReadPeer(e.cfg.ClientConfig)
	if err != nil {
		snap.Drifted = true
		snap.Warnings = append(snap.Warnings, "client config unreadable: "+err.Error())
		return
	}
	endpoint := server.Endpoint(e.cfg.ListenPort)
	if sec.PublicKey == server.PublicKey && sec.Endpoint == endpoint {
		return
	}
	snap.Drifted = true
	if err := wireguard.PatchClientConfig(e.cfg.ClientConfig, server.PublicKey, endpoint); err != nil {
		snap.Warnings = append(snap.Warnings, "client config repair failed: "+err.Error())
		return
	}
	e.logger.Info().
		Str("endpoint", endpoint).
		Msg("Repaired client config to match observed identity")
	snap.Repaired = true
}
