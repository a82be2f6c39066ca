package activationhandler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/byblosmedia/bybx-activation/api"
	"github.com/byblosmedia/bybx-activation/interfaces"
	"github.com/stretchr/testify/mock"
)

// Client implements api.ActivationProvider against a remote activation
// service. Every failure is mapped into the core error taxonomy before being
// returned: transport failures become KindActivationNetwork, explicit denials
// (4xx) become KindActivationRejected with the server's message preserved
// verbatim, and everything else becomes KindActivationServer.
type Client struct {
	// ServerAddr is the base URL of the activation service.
	ServerAddr string

	// HTTPClient is the HTTP client to use; http.DefaultClient when nil.
	HTTPClient *http.Client
}

// Bind registers the (order, product, device) triple for the first time and
// returns the content key.
func (c *Client) Bind(ctx context.Context, orderNumber string, productID int32, fingerprint interfaces.Fingerprint) (interfaces.KeyHex, error) {
	return c.post(ctx, api.BondPath, orderNumber, productID, fingerprint)
}

// Verify re-confirms a previously bound device and re-issues the same key.
func (c *Client) Verify(ctx context.Context, orderNumber string, productID int32, fingerprint interfaces.Fingerprint) (interfaces.KeyHex, error) {
	return c.post(ctx, api.VerifyPath, orderNumber, productID, fingerprint)
}

func (c *Client) post(ctx context.Context, path string, orderNumber string, productID int32, fingerprint interfaces.Fingerprint) (interfaces.KeyHex, error) {
	body, err := json.Marshal(api.ActivationRequest{
		OrderNumber: orderNumber,
		ProductID:   productID,
		Fingerprint: fingerprint.String(),
	})
	if err != nil {
		return "", interfaces.NewCoreError(interfaces.KindActivationNetwork, "could not encode activation request", err)
	}

	url := strings.TrimSuffix(c.ServerAddr, "/") + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", interfaces.NewCoreError(interfaces.KindActivationNetwork, "could not initialize activation request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	client := c.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return "", interfaces.NewCoreError(interfaces.KindCancelled, "activation cancelled", ctx.Err())
		}
		return "", interfaces.NewCoreError(interfaces.KindActivationNetwork, "activation service unreachable", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", interfaces.NewCoreError(interfaces.KindActivationNetwork, "could not read activation response", err)
	}

	switch {
	case resp.StatusCode >= 500:
		return "", interfaces.NewCoreError(interfaces.KindActivationServer,
			fmt.Sprintf("activation service error %d", resp.StatusCode), nil)
	case resp.StatusCode >= 400:
		// The denial reason is shown to the user verbatim.
		return "", interfaces.NewCoreError(interfaces.KindActivationRejected,
			strings.TrimSpace(string(respBody)), nil)
	case resp.StatusCode != http.StatusOK:
		return "", interfaces.NewCoreError(interfaces.KindActivationServer,
			fmt.Sprintf("unexpected activation response %d", resp.StatusCode), nil)
	}

	var parsed api.ActivationResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", interfaces.NewCoreError(interfaces.KindActivationServer, "malformed activation response", err)
	}
	if parsed.DecryptionKey == "" {
		return "", interfaces.NewCoreError(interfaces.KindActivationServer, "activation response carries no key", nil)
	}

	return parsed.DecryptionKey, nil
}

// MockProvider implements a mock api.ActivationProvider for testing.
// The behavior is determined by how the mock is configured in tests.
type MockProvider struct {
	mock.Mock
}

// Bind implements the ActivationProvider interface for testing.
func (m *MockProvider) Bind(ctx context.Context, orderNumber string, productID int32, fingerprint interfaces.Fingerprint) (interfaces.KeyHex, error) {
	args := m.Called(ctx, orderNumber, productID, fingerprint)
	return args.Get(0).(interfaces.KeyHex), args.Error(1)
}

// Verify implements the ActivationProvider interface for testing.
func (m *MockProvider) Verify(ctx context.Context, orderNumber string, productID int32, fingerprint interfaces.Fingerprint) (interfaces.KeyHex, error) {
	args := m.Called(ctx, orderNumber, productID, fingerprint)
	return args.Get(0).(interfaces.KeyHex), args.Error(1)
}
