package flags

import (
	"context"
	"errors"

	"github.com/byblosmedia/bybx-activation/kms"
	"github.com/urfave/cli/v2"
)

// LoadSeed resolves the master seed from whichever seed flag is set, in order
// of precedence: seed-hex, seed-file, vault.
func LoadSeed(ctx context.Context, cCtx *cli.Context) ([]byte, error) {
	if seedHex := cCtx.String(SeedHexFlag.Name); seedHex != "" {
		return kms.SeedFromHex(seedHex)
	}
	if seedFile := cCtx.String(SeedFileFlag.Name); seedFile != "" {
		return kms.SeedFromFile(seedFile)
	}
	if vaultAddr := cCtx.String(VaultAddrFlag.Name); vaultAddr != "" {
		source, err := kms.NewVaultSeedSource(
			vaultAddr,
			cCtx.String(VaultTokenFlag.Name),
			cCtx.String(VaultMountFlag.Name),
			cCtx.String(VaultPathFlag.Name),
		)
		if err != nil {
			return nil, err
		}
		return source.Load(ctx)
	}
	return nil, errors.New("a master seed is required: set --seed-hex, --seed-file, or --vault-addr")
}
