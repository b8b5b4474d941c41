package wireguard

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
)

// ConfigFormatError reports a client configuration file that lacks the
// section or directive an update needs. The file is never modified when
// this error is returned.
type ConfigFormatError struct {
	Path    string
	Missing string
}

func (e *ConfigFormatError) Error() string {
	return fmt.Sprintf("wireguard config %s: missing %s", e.Path, e.Missing)
}

// PeerSection holds the values read from the first [Peer] section of a
// client configuration file.
type PeerSection struct {
	PublicKey string
	Endpoint  string
}

// EndpointHost returns the host portion of the peer endpoint, or the whole
// value when it carries no port.
func (p PeerSection) EndpointHost() string {
	host, _, err := net.SplitHostPort(p.Endpoint)
	if err != nil {
		return p.Endpoint
	}
	return host
}

// ReadPeer extracts PublicKey and Endpoint from the first [Peer] section
// of the file at path.
func ReadPeer(path string) (PeerSection, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return PeerSection{}, fmt.Errorf("reading wireguard config: %w", err)
	}
	var sec PeerSection
	inPeer := false
	for _, line := range strings.Split(string(data), "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			if inPeer {
				break
			}
			inPeer = trimmed == "[Peer]"
			continue
		}
		if !inPeer {
			continue
		}
		if v, ok := directiveValue(line, "PublicKey"); ok {
			sec.PublicKey = v
		}
		if v, ok := directiveValue(line, "Endpoint"); ok {
			sec.Endpoint = v
		}
	}
	if !inPeer && sec == (PeerSection{}) {
		return PeerSection{}, &ConfigFormatError{Path: path, Missing: "[Peer] section"}
	}
	return sec, nil
}

// PatchClientConfig rewrites the PublicKey and Endpoint values in the
// first [Peer] section of the file at path. Every other byte of the file
// is preserved, including comments, blank lines and the whitespace around
// the patched directives. The file is replaced atomically via a temp file
// in the same directory. Patching with values already present is a no-op
// that leaves the file byte-identical.
func PatchClientConfig(path, publicKey, endpoint string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading wireguard config: %w", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("reading wireguard config: %w", err)
	}

	lines := strings.Split(string(data), "\n")
	inPeer := false
	sawPeer := false
	patchedKey := false
	patchedEndpoint := false
	for i, line := range lines {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "[") {
			if inPeer {
				inPeer = false
			} else if trimmed == "[Peer]" && !sawPeer {
				inPeer = true
				sawPeer = true
			}
			continue
		}
		if !inPeer {
			continue
		}
		if _, ok := directiveValue(line, "PublicKey"); ok && !patchedKey {
			lines[i] = replaceValue(line, publicKey)
			patchedKey = true
		}
		if _, ok := directiveValue(line, "Endpoint"); ok && !patchedEndpoint {
			lines[i] = replaceValue(line, endpoint)
			patchedEndpoint = true
		}
	}

	if !sawPeer {
		return &ConfigFormatError{Path: path, Missing: "[Peer] section"}
	}
	if !patchedKey {
		return &ConfigFormatError{Path: path, Missing: "PublicKey directive"}
	}
	if !patchedEndpoint {
		return &ConfigFormatError{Path: path, Missing: "Endpoint directive"}
	}

	return writeAtomic(path, []byte(strings.Join(lines, "\n")), info.Mode())
}

// directiveValue reports whether line is a "key = value" directive for the
// given key, returning the trimmed value.
func directiveValue(line, key string) (string, bool) {
	trimmed := strings.TrimLeft(line, " \t")
	if !strings.HasPrefix(trimmed, key) {
		return "", false
	}
	rest := strings.TrimLeft(trimmed[len(key):], " \t")
	if !strings.HasPrefix(rest, "=") {
		return "", false
	}
	return strings.TrimSpace(rest[1:]), true
}

// replaceValue swaps the value of a directive line while keeping the key,
// the separator and the surrounding whitespace exactly as written.
func replaceValue(line, value string) string {
	eq := strings.Index(line, "=")
	rest := line[eq+1:]
	trimmed := strings.TrimLeft(rest, " \t")
	ws := rest[:len(rest)-len(trimmed)]
	return line[:eq+1] + ws + value
}

func writeAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("writing wireguard config: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing wireguard config: %w", err)
	}
	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("writing wireguard config: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing wireguard config: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("writing wireguard config: %w", err)
	}
	return nil
}
