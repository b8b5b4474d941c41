package wireguard

import (
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudtun/cloudtun/pkg/types"
)

// PeerPlaceholder is the token a boot script carries where the rendered
// peer directives are spliced in.
const PeerPlaceholder = "# PEER_CONFIG_PLACEHOLDER"

// PublicKeyMarker prefixes the line on which the booted server publishes
// its WireGuard public key to the serial console.
const PublicKeyMarker = "[PUBLIC_KEY] "

//go:embed startup.sh
var defaultBootScript string

// DefaultBootScript returns the built-in server bootstrap script. It
// contains PeerPlaceholder and emits the server public key on a
// PublicKeyMarker line when the instance finishes booting.
func DefaultBootScript() string {
	return defaultBootScript
}

// RenderBootPeers produces one "wg set" directive per peer, in declaration
// order. An empty peer set renders to an empty string.
func RenderBootPeers(peers []types.Peer) string {
	var b strings.Builder
	for _, p := range peers {
		fmt.Fprintf(&b, "wg set wg0 peer %s allowed-ips %s\n", p.PublicKey, p.AllowedIP)
	}
	return b.String()
}

// RenderBootScript substitutes the peer directives for PeerPlaceholder in
// script. Scripts without the placeholder are rejected rather than
// silently dropping the peer set.
func RenderBootScript(script string, peers []types.Peer) (string, error) {
	if !strings.Contains(script, PeerPlaceholder) {
		return "", fmt.Errorf("boot script is missing the %q token", PeerPlaceholder)
	}
	return strings.Replace(script, PeerPlaceholder, strings.TrimRight(RenderBootPeers(peers), "\n"), 1), nil
}

// ParseBootPublicKey scans serial console output for the first
// PublicKeyMarker line and returns the key that follows the marker.
func ParseBootPublicKey(output string) (string, bool) {
	for _, line := range strings.Split(output, "\n") {
		idx := strings.Index(line, PublicKeyMarker)
		if idx < 0 {
			continue
		}
		key := strings.TrimSpace(line[idx+len(PublicKeyMarker):])
		if key != "" {
			return key, true
		}
	}
	return "", false
}
