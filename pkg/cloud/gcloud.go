package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"

	"github.com/cloudtun/cloudtun/pkg/log"
	"github.com/cloudtun/cloudtun/pkg/types"
)

// runner executes one gcloud invocation and returns its stdout. Injected so
// tests can exercise command construction and error classification without a
// gcloud binary.
type runner func(ctx context.Context, args ...string) (string, error)

// GCloud implements Gateway by spawning the gcloud CLI. The typed contract
// hides the shell-out: callers only ever see Instances and classified errors.
type GCloud struct {
	project string
	run     runner
	logger  zerolog.Logger
}

// NewGCloud creates a gateway for the given project.
func NewGCloud(project string) *GCloud {
	g := &GCloud{
		project: project,
		logger:  log.WithComponent("cloud"),
	}
	g.run = g.execGcloud
	return g
}

func (g *GCloud) execGcloud(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "gcloud", args...)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	g.logger.Debug().Str("args", strings.Join(args, " ")).Msg("invoking gcloud")
	if err := cmd.Run(); err != nil {
		return "", fmt.Errorf("%s: %w", strings.TrimSpace(stderr.String()), err)
	}
	return stdout.String(), nil
}

// classify turns a raw gcloud failure into the gateway's error taxonomy.
// gcloud reports a missing instance with an HTTP 404 in its error text.
func classify(op, name string, err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "not found") || strings.Contains(msg, "404") {
		return &NotFoundError{Name: name}
	}
	return &TransientError{Op: op, Err: err}
}

func (g *GCloud) instanceArgs(verb, name, zone string, extra ...string) []string {
	args := []string{
		"compute", "instances", verb, name,
		"--project", g.project,
		"--zone", zone,
		"--quiet",
	}
	return append(args, extra...)
}

// Create provisions a new instance with the boot script attached as GCE
// startup-script metadata. The script is passed through a temp file to keep
// its contents off the command line.
func (g *GCloud) Create(ctx context.Context, spec CreateSpec) error {
	scriptFile, err := os.CreateTemp("", "cloudtun-boot-*.sh")
	if err != nil {
		return fmt.Errorf("failed to stage boot script: %w", err)
	}
	defer os.Remove(scriptFile.Name())

	if _, err := scriptFile.WriteString(spec.BootScript); err != nil {
		scriptFile.Close()
		return fmt.Errorf("failed to stage boot script: %w", err)
	}
	if err := scriptFile.Close(); err != nil {
		return fmt.Errorf("failed to stage boot script: %w", err)
	}

	args := g.instanceArgs("create", spec.Name, spec.Zone,
		"--machine-type", spec.MachineType,
		"--network-tier", spec.NetworkTier,
		"--tags", strings.Join(spec.Tags, ","),
		"--image-family", "debian-12",
		"--image-project", "debian-cloud",
		"--can-ip-forward",
		"--metadata-from-file", "startup-script="+scriptFile.Name(),
	)
	if _, err := g.run(ctx, args...); err != nil {
		return classify("create", spec.Name, err)
	}
	g.logger.Info().Str("instance", spec.Name).Str("zone", spec.Zone).Msg("instance created")
	return nil
}

func (g *GCloud) Delete(ctx context.Context, name, zone string) error {
	if _, err := g.run(ctx, g.instanceArgs("delete", name, zone)...); err != nil {
		return classify("delete", name, err)
	}
	g.logger.Info().Str("instance", name).Msg("instance deleted")
	return nil
}

func (g *GCloud) Start(ctx context.Context, name, zone string) error {
	if _, err := g.run(ctx, g.instanceArgs("start", name, zone)...); err != nil {
		return classify("start", name, err)
	}
	return nil
}

func (g *GCloud) Stop(ctx context.Context, name, zone string) error {
	if _, err := g.run(ctx, g.instanceArgs("stop", name, zone)...); err != nil {
		return classify("stop", name, err)
	}
	return nil
}

// Describe fetches the instance's status and external address.
func (g *GCloud) Describe(ctx context.Context, name, zone string) (*Instance, error) {
	out, err := g.run(ctx, g.instanceArgs("describe", name, zone, "--format", "json")...)
	if err != nil {
		return nil, classify("describe", name, err)
	}
	return parseInstance(name, []byte(out))
}

// BootOutput reads serial port 1, where the startup script logs.
func (g *GCloud) BootOutput(ctx context.Context, name, zone string) (string, error) {
	args := []string{
		"compute", "instances", "get-serial-port-output", name,
		"--project", g.project,
		"--zone", zone,
		"--port", "1",
	}
	out, err := g.run(ctx, args...)
	if err != nil {
		return "", classify("get-serial-port-output", name, err)
	}
	return out, nil
}

// describeResponse is the subset of the GCE instance resource we consume.
type describeResponse struct {
	Status            string `json:"status"`
	NetworkInterfaces []struct {
		AccessConfigs []struct {
			NatIP string `json:"natIP"`
		} `json:"accessConfigs"`
	} `json:"networkInterfaces"`
}

func parseInstance(name string, data []byte) (*Instance, error) {
	var resp describeResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &TransientError{Op: "describe", Err: fmt.Errorf("unparseable response: %w", err)}
	}

	inst := &Instance{
		Name:   name,
		Status: normalizeStatus(resp.Status),
	}
	if len(resp.NetworkInterfaces) > 0 && len(resp.NetworkInterfaces[0].AccessConfigs) > 0 {
		inst.ExternalIP = resp.NetworkInterfaces[0].AccessConfigs[0].NatIP
	}
	return inst, nil
}

// normalizeStatus maps GCE status strings onto the manager's view. GCE
// reports a stopped instance as TERMINATED.
func normalizeStatus(raw string) types.InstanceStatus {
	switch strings.ToUpper(raw) {
	case "RUNNING":
		return types.InstanceRunning
	case "TERMINATED", "STOPPED", "SUSPENDED":
		return types.InstanceStopped
	case "PROVISIONING", "STAGING", "PENDING":
		return types.InstancePending
	default:
		return types.InstanceUnknown
	}
}
