package wireguard

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cloudtun/cloudtun/pkg/types"
)

func TestRenderBootPeers(t *testing.T) {
	tests := []struct {
		name  string
		peers []types.Peer
		want  string
	}{
		{
			name:  "empty set",
			peers: nil,
			want:  "",
		},
		{
			name: "single peer",
			peers: []types.Peer{
				{Name: "laptop", PublicKey: "KEY1=", AllowedIP: "10.0.0.2/32"},
			},
			want: "wg set wg0 peer KEY1= allowed-ips 10.0.0.2/32\n",
		},
		{
			name: "declaration order preserved",
			peers: []types.Peer{
				{Name: "phone", PublicKey: "KEY2=", AllowedIP: "10.0.0.3/32"},
				{Name: "laptop", PublicKey: "KEY1=", AllowedIP: "10.0.0.2/32"},
			},
			want: "wg set wg0 peer KEY2= allowed-ips 10.0.0.3/32\n" +
				"wg set wg0 peer KEY1= allowed-ips 10.0.0.2/32\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, RenderBootPeers(tt.peers))
		})
	}
}

func TestRenderBootScript(t *testing.T) {
	peers := []types.Peer{
		{Name: "laptop", PublicKey: "KEY1=", AllowedIP: "10.0.0.2/32"},
	}

	script := "setup\n" + PeerPlaceholder + "\nfinish\n"
	rendered, err := RenderBootScript(script, peers)
	require.NoError(t, err)
	assert.Equal(t, "setup\nwg set wg0 peer KEY1= allowed-ips 10.0.0.2/32\nfinish\n", rendered)

	_, err = RenderBootScript("no token here\n", peers)
	assert.Error(t, err)
}

func TestRenderBootScriptDefault(t *testing.T) {
	script := DefaultBootScript()
	require.Contains(t, script, PeerPlaceholder)
	require.Contains(t, script, PublicKeyMarker)

	rendered, err := RenderBootScript(script, []types.Peer{
		{Name: "laptop", PublicKey: "KEY1=", AllowedIP: "10.0.0.2/32"},
	})
	require.NoError(t, err)
	assert.NotContains(t, rendered, PeerPlaceholder)
	assert.Contains(t, rendered, "wg set wg0 peer KEY1= allowed-ips 10.0.0.2/32")
}

func TestParseBootPublicKey(t *testing.T) {
	tests := []struct {
		name   string
		output string
		want   string
		found  bool
	}{
		{
			name:   "key present",
			output: "booting...\n[PUBLIC_KEY] SERVERPUB=\ndone\n",
			want:   "SERVERPUB=",
			found:  true,
		},
		{
			name:   "console prefix before marker",
			output: "Aug 26 10:00:01 vpn startup: [PUBLIC_KEY] SERVERPUB=",
			want:   "SERVERPUB=",
			found:  true,
		},
		{
			name:   "not yet emitted",
			output: "booting...\ninstalling wireguard\n",
			found:  false,
		},
		{
			name:   "marker without key",
			output: "[PUBLIC_KEY] \n",
			found:  false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, found := ParseBootPublicKey(tt.output)
			assert.Equal(t, tt.found, found)
			assert.Equal(t, tt.want, key)
		})
	}
}

func TestParseBootPublicKeyTrimsWhitespace(t *testing.T) {
	key, found := ParseBootPublicKey("[PUBLIC_KEY] SERVERPUB= \r")
	require.True(t, found)
	assert.Equal(t, "SERVERPUB=", key)
	assert.False(t, strings.ContainsAny(key, " \r"))
}
