package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/byblosmedia/bybx-activation/cmd/flags"
	"github.com/byblosmedia/bybx-activation/envelope"
	"github.com/byblosmedia/bybx-activation/kms"
	"github.com/urfave/cli/v2"
)

var sealerFlags = append([]cli.Flag{
	&cli.StringFlag{
		Name:     "order-number",
		Required: true,
		Usage:    "marketplace order number the content belongs to",
	},
	&cli.IntFlag{
		Name:     "product-id",
		Required: true,
		Usage:    "product identifier within the order",
	},
	&cli.StringFlag{
		Name:     "input",
		Required: true,
		Usage:    "plaintext content file to seal",
	},
	&cli.StringFlag{
		Name:     "output",
		Required: true,
		Usage:    "destination path for the sealed .bybx file",
	},
}, append(flags.SeedFlags, flags.LogJsonFlag, flags.LogDebugFlag, flags.LogServiceFlag)...)

func main() {
	app := &cli.App{
		Name:  "sealer",
		Usage: "Seal content into a BYBX envelope",
		Flags: sealerFlags,
		Action: func(cCtx *cli.Context) error {
			orderNumber := cCtx.String("order-number")
			productID := int32(cCtx.Int("product-id"))
			input := cCtx.String("input")
			output := cCtx.String("output")

			logger := flags.SetupLogger(cCtx)
			ctx := context.Background()

			seed, err := flags.LoadSeed(ctx, cCtx)
			if err != nil {
				return err
			}
			deriver, err := kms.NewSimpleKeyDeriver(seed)
			if err != nil {
				return err
			}

			keyHex, err := deriver.ContentKey(orderNumber, productID)
			if err != nil {
				return err
			}
			key, err := keyHex.Decode()
			if err != nil {
				return err
			}
			defer key.Destroy()

			plaintext, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("could not read %s: %w", input, err)
			}

			sealed, err := envelope.Seal(orderNumber, productID, plaintext, key)
			if err != nil {
				return err
			}

			if err := os.WriteFile(output, sealed, 0644); err != nil {
				return fmt.Errorf("could not write %s: %w", output, err)
			}

			logger.Info("Content sealed",
				"orderNumber", orderNumber,
				"productId", productID,
				"output", output,
				"bytes", len(sealed))
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
