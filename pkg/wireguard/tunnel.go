package wireguard

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog"
	"golang.zx2c4.com/wireguard/wgctrl"

	"github.com/cloudtun/cloudtun/pkg/log"
)

// ToolError reports a wg-quick invocation that exited non-zero, carrying
// the tool's combined output for diagnosis.
type ToolError struct {
	Cmd    string
	Output string
	Err    error
}

func (e *ToolError) Error() string {
	out := strings.TrimSpace(e.Output)
	if out == "" {
		return fmt.Sprintf("%s: %v", e.Cmd, e.Err)
	}
	return fmt.Sprintf("%s: %v: %s", e.Cmd, e.Err, out)
}

func (e *ToolError) Unwrap() error { return e.Err }

// Controller manages the local tunnel interface.
type Controller interface {
	// Up brings the tunnel up. It is a no-op when the interface already
	// exists.
	Up(ctx context.Context) error
	// Down tears the tunnel down. It is a no-op when the interface does
	// not exist.
	Down(ctx context.Context) error
	// IsUp reports whether the tunnel interface currently exists.
	IsUp() bool
}

// WgQuick drives the tunnel through the wg-quick tool and observes it
// through the kernel WireGuard interface.
type WgQuick struct {
	configPath string
	iface      string
	logger     zerolog.Logger
}

// NewWgQuick returns a controller for the interface defined by the client
// configuration at configPath.
func NewWgQuick(configPath, iface string) *WgQuick {
	return &WgQuick{
		configPath: configPath,
		iface:      iface,
		logger:     log.WithComponent("wireguard"),
	}
}

func (w *WgQuick) IsUp() bool {
	client, err := wgctrl.New()
	if err != nil {
		return false
	}
	defer client.Close()
	_, err = client.Device(w.iface)
	return err == nil
}

func (w *WgQuick) Up(ctx context.Context) error {
	if w.IsUp() {
		w.logger.Debug().Str("interface", w.iface).Msg("Tunnel already up")
		return nil
	}
	if err := w.run(ctx, "up"); err != nil {
		return err
	}
	w.logger.Info().Str("interface", w.iface).Msg("Tunnel up")
	return nil
}

func (w *WgQuick) Down(ctx context.Context) error {
	if !w.IsUp() {
		w.logger.Debug().Str("interface", w.iface).Msg("Tunnel already down")
		return nil
	}
	if err := w.run(ctx, "down"); err != nil {
		return err
	}
	w.logger.Info().Str("interface", w.iface).Msg("Tunnel down")
	return nil
}

func (w *WgQuick) run(ctx context.Context, verb string) error {
	cmd := exec.CommandContext(ctx, "wg-quick", verb, w.configPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return &ToolError{
			Cmd:    fmt.Sprintf("wg-quick %s %s", verb, w.configPath),
			Output: string(out),
			Err:    err,
		}
	}
	return nil
}
