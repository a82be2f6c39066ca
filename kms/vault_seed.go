package kms

import (
	"context"
	"fmt"
	"strings"

	vault "github.com/hashicorp/vault/api"
)

// VaultSeedSource loads the master seed from a HashiCorp Vault KV v2 secret.
// The secret is expected to carry a hex-encoded seed under the "seed" field.
type VaultSeedSource struct {
	client    *vault.Client
	mountPath string
	dataPath  string
}

// NewVaultSeedSource creates a seed source for the given Vault server.
//
// Parameters:
//   - address: Vault server address (e.g. https://vault.example.com:8200)
//   - token: Vault token with read access to the secret
//   - mountPath: KV v2 mount path (e.g. "secret")
//   - dataPath: path of the seed secret within the mount
func NewVaultSeedSource(address, token, mountPath, dataPath string) (*VaultSeedSource, error) {
	config := vault.DefaultConfig()
	config.Address = address

	client, err := vault.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}
	client.SetToken(token)

	return &VaultSeedSource{
		client:    client,
		mountPath: strings.TrimSuffix(mountPath, "/"),
		dataPath:  strings.Trim(dataPath, "/"),
	}, nil
}

// Load fetches and decodes the master seed.
func (s *VaultSeedSource) Load(ctx context.Context) ([]byte, error) {
	secret, err := s.client.KVv2(s.mountPath).Get(ctx, s.dataPath)
	if err != nil {
		return nil, fmt.Errorf("could not read seed from vault: %w", err)
	}

	raw, ok := secret.Data["seed"].(string)
	if !ok {
		return nil, fmt.Errorf("vault secret %s/%s has no string 'seed' field", s.mountPath, s.dataPath)
	}

	return SeedFromHex(raw)
}
