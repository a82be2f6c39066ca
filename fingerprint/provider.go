package fingerprint

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/byblosmedia/bybx-activation/interfaces"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/host"
	"github.com/stretchr/testify/mock"
)

// HostProvider derives a fingerprint from the local machine: the OS host
// identifier, platform, and CPU model, hashed into an opaque token. The token
// is stable across invocations on the same installation.
type HostProvider struct{}

// CurrentFingerprint probes the host and returns its fingerprint token.
func (p *HostProvider) CurrentFingerprint(ctx context.Context) (interfaces.Fingerprint, error) {
	info, err := host.InfoWithContext(ctx)
	if err != nil {
		return "", fmt.Errorf("could not probe host info: %w", err)
	}

	h := sha256.New()
	io.WriteString(h, info.HostID)
	io.WriteString(h, info.Platform)
	io.WriteString(h, info.PlatformFamily)

	// CPU details harden the token against cloned host IDs. Best effort: some
	// platforms expose no CPU info to unprivileged processes.
	if cpus, err := cpu.InfoWithContext(ctx); err == nil {
		for _, c := range cpus {
			io.WriteString(h, c.VendorID)
			io.WriteString(h, c.ModelName)
		}
	}

	return interfaces.Fingerprint(hex.EncodeToString(h.Sum(nil))), nil
}

// RemoteProvider obtains the fingerprint from a local probe service, for
// installations where the device identity is issued by a separate agent.
type RemoteProvider struct {
	// Address is the base URL of the probe service.
	Address string

	// Client is the HTTP client to use; http.DefaultClient when nil.
	Client *http.Client
}

// CurrentFingerprint fetches the token from the probe service.
func (p *RemoteProvider) CurrentFingerprint(ctx context.Context) (interfaces.Fingerprint, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/fingerprint", p.Address), nil)
	if err != nil {
		return "", fmt.Errorf("could not initialize request: %w", err)
	}

	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("calling fingerprint probe: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading fingerprint from response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fingerprint probe returned status %d: %s", resp.StatusCode, string(body))
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", fmt.Errorf("fingerprint probe returned an empty token")
	}

	return interfaces.Fingerprint(token), nil
}

// StaticProvider returns a fixed token. Used for development and for callers
// that manage device identity externally.
type StaticProvider struct {
	Token interfaces.Fingerprint
}

// CurrentFingerprint returns the configured token.
func (p *StaticProvider) CurrentFingerprint(ctx context.Context) (interfaces.Fingerprint, error) {
	if p.Token == "" {
		return "", fmt.Errorf("no fingerprint token configured")
	}
	return p.Token, nil
}

// MockProvider implements a mock FingerprintProvider for testing.
// The behavior is determined by how the mock is configured in tests.
type MockProvider struct {
	mock.Mock
}

// CurrentFingerprint implements the FingerprintProvider interface for testing.
func (m *MockProvider) CurrentFingerprint(ctx context.Context) (interfaces.Fingerprint, error) {
	args := m.Called(ctx)
	return args.Get(0).(interfaces.Fingerprint), args.Error(1)
}
