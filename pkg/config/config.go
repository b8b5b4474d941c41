package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cloudtun/cloudtun/pkg/types"
)

// Config holds the deployment settings for one managed VPN endpoint. It is
// read from a YAML file and never written back by the manager; the mutable
// state lives in the state store.
type Config struct {
	Project        string       `yaml:"project"`
	Region         string       `yaml:"region"`
	Zone           string       `yaml:"zone"`
	MachineType    string       `yaml:"machine_type"`
	NetworkTier    string       `yaml:"network_tier"`
	InstancePrefix string       `yaml:"instance_prefix"`
	FirewallTags   []string     `yaml:"firewall_tags"`
	ListenPort     int          `yaml:"listen_port"`
	ClientConfig   string       `yaml:"client_config"`
	BootScript     string       `yaml:"boot_script,omitempty"`
	IPInfoURL      string       `yaml:"ip_info_url"`
	Peers          []types.Peer `yaml:"peers"`
}

// Defaults mirror the values a fresh deployment is expected to work with.
const (
	DefaultMachineType    = "e2-micro"
	DefaultNetworkTier    = "PREMIUM"
	DefaultInstancePrefix = "vpn-server"
	DefaultListenPort     = 51820
	DefaultClientConfig   = "/etc/wireguard/wg0.conf"
	DefaultIPInfoURL      = "https://ipinfo.io/json"
)

// DefaultPath returns the default config file location.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(home, ".cloudtun", "config.yaml")
}

// DataDir returns the directory holding the state database, derived from
// the config file location so one config maps to one deployment.
func DataDir(configPath string) string {
	return filepath.Dir(configPath)
}

// Load reads and validates the config file at path.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.MachineType == "" {
		c.MachineType = DefaultMachineType
	}
	if c.NetworkTier == "" {
		c.NetworkTier = DefaultNetworkTier
	}
	if c.InstancePrefix == "" {
		c.InstancePrefix = DefaultInstancePrefix
	}
	if len(c.FirewallTags) == 0 {
		c.FirewallTags = []string{"wireguard"}
	}
	if c.ListenPort == 0 {
		c.ListenPort = DefaultListenPort
	}
	if c.ClientConfig == "" {
		c.ClientConfig = DefaultClientConfig
	}
	if c.IPInfoURL == "" {
		c.IPInfoURL = DefaultIPInfoURL
	}
}

// Validate checks the invariants the reconciler depends on: a project and
// location to deploy into, and a peer set with no duplicate keys or
// duplicate internal addresses.
func (c *Config) Validate() error {
	if c.Project == "" {
		return fmt.Errorf("config: project is required")
	}
	if c.Region == "" || c.Zone == "" {
		return fmt.Errorf("config: region and zone are required")
	}
	if !strings.HasPrefix(c.Zone, c.Region) {
		return fmt.Errorf("config: zone %q does not belong to region %q", c.Zone, c.Region)
	}

	seenKeys := make(map[string]string)
	seenIPs := make(map[string]string)
	for _, p := range c.Peers {
		if p.Name == "" || p.PublicKey == "" || p.AllowedIP == "" {
			return fmt.Errorf("config: peer %q must have name, public_key and allowed_ip", p.Name)
		}
		if other, ok := seenKeys[p.PublicKey]; ok {
			return fmt.Errorf("config: peers %q and %q share a public key", other, p.Name)
		}
		if other, ok := seenIPs[p.AllowedIP]; ok {
			return fmt.Errorf("config: peers %q and %q share address %s", other, p.Name, p.AllowedIP)
		}
		seenKeys[p.PublicKey] = p.Name
		seenIPs[p.AllowedIP] = p.Name
	}
	return nil
}

// InstanceName derives the deterministic instance name for this deployment:
// prefix, region, and the zone letter. Deterministic naming is what lets the
// reconciler rebuild a lost state record from the provider alone.
func (c *Config) InstanceName() string {
	parts := strings.Split(c.Zone, "-")
	zoneLetter := parts[len(parts)-1]
	return fmt.Sprintf("%s-%s-%s", c.InstancePrefix, c.Region, zoneLetter)
}

// InterfaceName returns the local tunnel interface name wg-quick derives
// from the client config file name (wg0.conf → wg0).
func (c *Config) InterfaceName() string {
	base := filepath.Base(c.ClientConfig)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
