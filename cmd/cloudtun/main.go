package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cloudtun/cloudtun/pkg/cloud"
	"github.com/cloudtun/cloudtun/pkg/config"
	"github.com/cloudtun/cloudtun/pkg/ipinfo"
	"github.com/cloudtun/cloudtun/pkg/log"
	"github.com/cloudtun/cloudtun/pkg/reconciler"
	"github.com/cloudtun/cloudtun/pkg/storage"
	"github.com/cloudtun/cloudtun/pkg/types"
	"github.com/cloudtun/cloudtun/pkg/wireguard"
)

var (
	// Version information (set via ldflags during build)
	Version   = "dev"
	Commit    = "unknown"
	BuildTime = "unknown"
)

var (
	configPath   string
	verbose      bool
	jsonOutput   bool
	connectAfter bool
	forceDelete  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "cloudtun",
	Short: "Cloudtun - personal WireGuard endpoint manager for GCP",
	Long: `Cloudtun provisions a single-tenant WireGuard endpoint on a Google Cloud
compute instance and keeps the local client configuration synchronized
with it across the instance lifecycle.

Run without a subcommand for the interactive menu.`,
	Version: Version,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := log.InfoLevel
		if verbose {
			level = log.DebugLevel
		}
		log.Init(log.Config{Level: level, JSONOutput: jsonOutput})
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		return runMenu()
	},
}

func init() {
	rootCmd.SetVersionTemplate(fmt.Sprintf(
		"Cloudtun version %s\nCommit: %s\nBuilt: %s\n",
		Version, Commit, BuildTime,
	))

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultPath(), "deployment config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "machine readable output")

	deployCmd.Flags().BoolVar(&connectAfter, "connect", false, "bring the tunnel up once deployment completes")
	deleteCmd.Flags().BoolVarP(&forceDelete, "force", "f", false, "skip the confirmation prompt")

	rootCmd.AddCommand(deployCmd)
	rootCmd.AddCommand(startCmd)
	rootCmd.AddCommand(stopCmd)
	rootCmd.AddCommand(deleteCmd)
	rootCmd.AddCommand(connectCmd)
	rootCmd.AddCommand(disconnectCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(viewConfigCmd)
}

// app bundles the engine and its collaborators for one invocation.
type app struct {
	cfg    *config.Config
	store  *storage.BoltStore
	engine *reconciler.Engine
}

func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	store, err := storage.NewBoltStore(config.DataDir(configPath))
	if err != nil {
		return nil, err
	}
	engine := reconciler.New(cfg, store,
		cloud.NewGCloud(cfg.Project),
		wireguard.NewWgQuick(cfg.ClientConfig, cfg.InterfaceName()),
		ipinfo.NewClient(cfg.IPInfoURL),
	)
	return &app{cfg: cfg, store: store, engine: engine}, nil
}

func (a *app) Close() {
	a.store.Close()
}

// runOp runs one engine operation with interrupt handling and prints the
// resulting snapshot.
func runOp(fn func(context.Context, *app) (*types.Snapshot, error)) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	snap, err := fn(ctx, a)
	if err != nil {
		return err
	}
	return printSnapshot(snap)
}

func printSnapshot(snap *types.Snapshot) error {
	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(snap)
	}
	fmt.Println(renderSnapshot(snap))
	return nil
}

var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Provision the endpoint instance and update the client config",
	Long: `Create the compute instance, wait for it to boot, capture the server's
public key from its boot output and patch the local client configuration.

A deployment interrupted after the create call can be resumed by running
deploy again. Partially created instances are never deleted automatically.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(func(ctx context.Context, a *app) (*types.Snapshot, error) {
			snap, err := a.engine.Deploy(ctx)
			if err != nil {
				return nil, err
			}
			if connectAfter {
				return a.engine.Connect(ctx)
			}
			return snap, nil
		})
	},
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the stopped endpoint instance",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(func(ctx context.Context, a *app) (*types.Snapshot, error) {
			return a.engine.Start(ctx)
		})
	},
}

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the endpoint instance, disconnecting first if needed",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(func(ctx context.Context, a *app) (*types.Snapshot, error) {
			return a.engine.Stop(ctx)
		})
	},
}

var deleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Delete the endpoint instance",
	Long: `Delete the compute instance and clear the recorded identity. The local
client configuration is left untouched so a later deploy can reuse it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if !forceDelete && !confirmDelete(a.cfg.InstanceName()) {
			fmt.Println("Aborted.")
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		snap, err := a.engine.Delete(ctx)
		if err != nil {
			return err
		}
		return printSnapshot(snap)
	},
}

var connectCmd = &cobra.Command{
	Use:   "connect",
	Short: "Bring the local tunnel up",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(func(ctx context.Context, a *app) (*types.Snapshot, error) {
			return a.engine.Connect(ctx)
		})
	},
}

var disconnectCmd = &cobra.Command{
	Use:   "disconnect",
	Short: "Tear the local tunnel down",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(func(ctx context.Context, a *app) (*types.Snapshot, error) {
			return a.engine.Disconnect(ctx)
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Reconcile state and show where egress traffic actually exits",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runOp(func(ctx context.Context, a *app) (*types.Snapshot, error) {
			return a.engine.StatusCheck(ctx)
		})
	},
}

var viewConfigCmd = &cobra.Command{
	Use:   "view-config",
	Short: "Print the client configuration file verbatim",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		data, err := os.ReadFile(cfg.ClientConfig)
		if err != nil {
			return err
		}
		fmt.Print(string(data))
		return nil
	},
}

func confirmDelete(name string) bool {
	fmt.Printf("This permanently deletes instance %s. Continue? [y/N] ", name)
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
