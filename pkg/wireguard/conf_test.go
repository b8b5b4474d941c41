package wireguard

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConf = `# client tunnel
[Interface]
PrivateKey = CLIENTPRIV=
Address = 10.0.0.2/32
DNS = 1.1.1.1

[Peer]
PublicKey = OLDKEY=
AllowedIPs = 0.0.0.0/0
Endpoint = 198.51.100.1:51820
PersistentKeepalive = 25
`

func writeConf(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wg0.conf")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestPatchClientConfig(t *testing.T) {
	path := writeConf(t, sampleConf)

	require.NoError(t, PatchClientConfig(path, "NEWKEY=", "203.0.113.9:51820"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, `# client tunnel
[Interface]
PrivateKey = CLIENTPRIV=
Address = 10.0.0.2/32
DNS = 1.1.1.1

[Peer]
PublicKey = NEWKEY=
AllowedIPs = 0.0.0.0/0
Endpoint = 203.0.113.9:51820
PersistentKeepalive = 25
`, string(data))
}

func TestPatchClientConfigIdempotent(t *testing.T) {
	path := writeConf(t, sampleConf)

	require.NoError(t, PatchClientConfig(path, "NEWKEY=", "203.0.113.9:51820"))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, PatchClientConfig(path, "NEWKEY=", "203.0.113.9:51820"))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, string(first), string(second))
}

func TestPatchClientConfigPreservesFormatting(t *testing.T) {
	conf := "[Peer]\n  PublicKey=OLDKEY=\n\tEndpoint  =\t198.51.100.1:51820\n# trailing comment\n"
	path := writeConf(t, conf)

	require.NoError(t, PatchClientConfig(path, "NEWKEY=", "203.0.113.9:51820"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "[Peer]\n  PublicKey=NEWKEY=\n\tEndpoint  =\t203.0.113.9:51820\n# trailing comment\n", string(data))
}

func TestPatchClientConfigFirstPeerOnly(t *testing.T) {
	conf := sampleConf + `
[Peer]
PublicKey = SECONDKEY=
Endpoint = 192.0.2.50:51820
`
	path := writeConf(t, conf)

	require.NoError(t, PatchClientConfig(path, "NEWKEY=", "203.0.113.9:51820"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "PublicKey = NEWKEY=")
	assert.Contains(t, string(data), "PublicKey = SECONDKEY=")
	assert.Contains(t, string(data), "Endpoint = 192.0.2.50:51820")
	assert.NotContains(t, string(data), "OLDKEY=")
}

func TestPatchClientConfigFormatErrors(t *testing.T) {
	tests := []struct {
		name    string
		conf    string
		missing string
	}{
		{
			name:    "no peer section",
			conf:    "[Interface]\nPrivateKey = CLIENTPRIV=\n",
			missing: "[Peer] section",
		},
		{
			name:    "no public key",
			conf:    "[Peer]\nEndpoint = 198.51.100.1:51820\n",
			missing: "PublicKey directive",
		},
		{
			name:    "no endpoint",
			conf:    "[Peer]\nPublicKey = OLDKEY=\n",
			missing: "Endpoint directive",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeConf(t, tt.conf)
			err := PatchClientConfig(path, "NEWKEY=", "203.0.113.9:51820")

			var formatErr *ConfigFormatError
			require.ErrorAs(t, err, &formatErr)
			assert.Equal(t, tt.missing, formatErr.Missing)

			data, readErr := os.ReadFile(path)
			require.NoError(t, readErr)
			assert.Equal(t, tt.conf, string(data), "file must be untouched on error")
		})
	}
}

func TestPatchClientConfigPreservesMode(t *testing.T) {
	path := writeConf(t, sampleConf)
	require.NoError(t, os.Chmod(path, 0600))

	require.NoError(t, PatchClientConfig(path, "NEWKEY=", "203.0.113.9:51820"))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
}

func TestReadPeer(t *testing.T) {
	path := writeConf(t, sampleConf)

	sec, err := ReadPeer(path)
	require.NoError(t, err)
	assert.Equal(t, "OLDKEY=", sec.PublicKey)
	assert.Equal(t, "198.51.100.1:51820", sec.Endpoint)
	assert.Equal(t, "198.51.100.1", sec.EndpointHost())
}

func TestReadPeerMissingSection(t *testing.T) {
	path := writeConf(t, "[Interface]\nPrivateKey = CLIENTPRIV=\n")

	_, err := ReadPeer(path)
	var formatErr *ConfigFormatError
	assert.True(t, errors.As(err, &formatErr))
}
