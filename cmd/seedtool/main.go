package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/byblosmedia/bybx-activation/cmd/flags"
	"github.com/byblosmedia/bybx-activation/kms"
	"github.com/byblosmedia/bybx-activation/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "seedtool",
		Usage: "Manage the master seed: generate, split into shares, recombine",
		Commands: []*cli.Command{
			{
				Name:   "generate",
				Usage:  "generate a fresh random master seed and print it hex-encoded",
				Action: runGenerate,
			},
			{
				Name:  "split",
				Usage: "split the master seed into Shamir shares",
				Flags: append([]cli.Flag{
					&cli.IntFlag{
						Name:  "shares",
						Value: 5,
						Usage: "number of shares to produce",
					},
					&cli.IntFlag{
						Name:  "threshold",
						Value: 3,
						Usage: "shares required to reconstruct the seed",
					},
					&cli.StringFlag{
						Name:  "store-uri",
						Usage: "storage URI to write shares to; prints to stdout when empty",
					},
				}, append(flags.SeedFlags, flags.LogJsonFlag, flags.LogDebugFlag, flags.LogServiceFlag)...),
				Action: runSplit,
			},
			{
				Name:  "combine",
				Usage: "reconstruct the master seed from hex-encoded shares",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:  "share",
						Usage: "hex-encoded share; repeat for each share",
					},
					&cli.StringFlag{
						Name:  "store-uri",
						Usage: "storage URI to read shares from instead of --share",
					},
					&cli.IntFlag{
						Name:  "share-count",
						Usage: "number of share blobs to read from storage",
					},
					flags.LogJsonFlag,
					flags.LogDebugFlag,
					flags.LogServiceFlag,
				},
				Action: runCombine,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runGenerate(cCtx *cli.Context) error {
	seed := make([]byte, kms.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		return fmt.Errorf("could not generate seed: %w", err)
	}
	fmt.Println(hex.EncodeToString(seed))
	return nil
}

func runSplit(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	ctx := context.Background()

	seed, err := flags.LoadSeed(ctx, cCtx)
	if err != nil {
		return err
	}

	shares, err := kms.SplitSeed(seed, cCtx.Int("shares"), cCtx.Int("threshold"))
	if err != nil {
		return err
	}

	storeURI := cCtx.String("store-uri")
	if storeURI == "" {
		for i, share := range shares {
			fmt.Printf("share %d: %s\n", i+1, hex.EncodeToString(share))
		}
		return nil
	}

	backend, err := storage.NewFactory(logger).BackendFor(storeURI)
	if err != nil {
		return err
	}
	for i, share := range shares {
		name := shareBlobName(i)
		if err := backend.Store(ctx, name, []byte(hex.EncodeToString(share))); err != nil {
			return fmt.Errorf("could not store %s: %w", name, err)
		}
		logger.Info("Share stored", "blob", name, "backend", backend.Name())
	}
	return nil
}

func runCombine(cCtx *cli.Context) error {
	logger := flags.SetupLogger(cCtx)
	ctx := context.Background()

	var encoded []string
	if storeURI := cCtx.String("store-uri"); storeURI != "" {
		count := cCtx.Int("share-count")
		if count < 2 {
			return fmt.Errorf("--share-count is required with --store-uri")
		}
		backend, err := storage.NewFactory(logger).BackendFor(storeURI)
		if err != nil {
			return err
		}
		for i := 0; i < count; i++ {
			data, err := backend.Fetch(ctx, shareBlobName(i))
			if err != nil {
				return fmt.Errorf("could not fetch %s: %w", shareBlobName(i), err)
			}
			encoded = append(encoded, strings.TrimSpace(string(data)))
		}
	} else {
		encoded = cCtx.StringSlice("share")
	}

	shares := make([][]byte, 0, len(encoded))
	for i, s := range encoded {
		share, err := hex.DecodeString(strings.TrimSpace(s))
		if err != nil {
			return fmt.Errorf("share %d is not valid hex: %w", i+1, err)
		}
		shares = append(shares, share)
	}

	seed, err := kms.CombineSeed(shares)
	if err != nil {
		return err
	}

	fmt.Println(hex.EncodeToString(seed))
	return nil
}

func shareBlobName(i int) string {
	return fmt.Sprintf("seed-shares/share-%d", i+1)
}
