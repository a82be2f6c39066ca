package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/byblosmedia/bybx-activation/api/activationhandler"
	"github.com/byblosmedia/bybx-activation/cmd/flags"
	"github.com/byblosmedia/bybx-activation/httpserver"
	"github.com/byblosmedia/bybx-activation/interfaces"
	"github.com/byblosmedia/bybx-activation/kms"
	"github.com/byblosmedia/bybx-activation/ledger"
	"github.com/byblosmedia/bybx-activation/storage"
	"github.com/urfave/cli/v2"
)

var serverFlags = append([]cli.Flag{
	&cli.StringFlag{
		Name:  "listen-addr",
		Value: "127.0.0.1:8080",
		Usage: "address to listen on for the activation API",
	},
	&cli.StringFlag{
		Name:  "ledger-dir",
		Value: "",
		Usage: "directory for the persistent binding ledger; in-memory when empty",
	},
	&cli.StringSliceFlag{
		Name:  "snapshot-uri",
		Usage: "storage URI (file://, s3://, ipfs://) for ledger snapshots; may repeat",
	},
	&cli.StringFlag{
		Name:  "snapshot-name",
		Value: "ledger-snapshot.json",
		Usage: "blob name for ledger snapshots",
	},
	&cli.BoolFlag{
		Name:  "restore-snapshot",
		Value: false,
		Usage: "restore bindings from the snapshot blob on startup",
	},
}, append(flags.SeedFlags, flags.CommonFlags...)...)

func main() {
	app := &cli.App{
		Name:  "activationserver",
		Usage: "Serve the BYBX activation API",
		Flags: serverFlags,
		Action: func(cCtx *cli.Context) error {
			listenAddr := cCtx.String("listen-addr")
			ledgerDir := cCtx.String("ledger-dir")
			snapshotURIs := cCtx.StringSlice("snapshot-uri")
			snapshotName := cCtx.String("snapshot-name")
			restoreSnapshot := cCtx.Bool("restore-snapshot")

			logger := flags.SetupLogger(cCtx)
			ctx := context.Background()

			seed, err := flags.LoadSeed(ctx, cCtx)
			if err != nil {
				logger.Error("Failed to load master seed", "err", err)
				return err
			}

			deriver, err := kms.NewSimpleKeyDeriver(seed)
			if err != nil {
				logger.Error("Failed to initialize key deriver", "err", err)
				return err
			}

			var bindings interfaces.BindingLedger
			if ledgerDir != "" {
				logger.Info("Opening binding ledger", "dir", ledgerDir)
				bindings, err = ledger.NewBadgerLedger(ledgerDir, logger)
				if err != nil {
					logger.Error("Failed to open binding ledger", "err", err)
					return err
				}
			} else {
				logger.Warn("No ledger-dir configured, bindings will not survive restarts")
				bindings = ledger.NewMemoryLedger()
			}
			defer bindings.Close()

			var snapshots interfaces.Storage
			if len(snapshotURIs) > 0 {
				factory := storage.NewFactory(logger)
				snapshots, err = factory.MultiBackendFor(snapshotURIs)
				if err != nil {
					logger.Error("Failed to configure snapshot storage", "err", err)
					return err
				}
				logger.Info("Snapshot storage configured", "location", snapshots.LocationURI())
			}

			if restoreSnapshot && snapshots != nil {
				data, err := snapshots.Fetch(ctx, snapshotName)
				if err != nil {
					logger.Error("Failed to fetch ledger snapshot", "err", err)
					return err
				}
				if err := bindings.Restore(ctx, data); err != nil {
					logger.Error("Failed to restore ledger snapshot", "err", err)
					return err
				}
			}

			handler := activationhandler.NewHandler(bindings, deriver, logger)

			cfg := flags.ConfigureServer(cCtx, logger, listenAddr)
			server, err := httpserver.New(cfg, handler)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}

			logger.Info("Starting server")
			server.RunInBackground()

			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()

			if snapshots != nil {
				data, err := bindings.Snapshot(ctx)
				if err != nil {
					logger.Error("Failed to snapshot ledger", "err", err)
				} else if err := snapshots.Store(ctx, snapshotName, data); err != nil {
					logger.Error("Failed to store ledger snapshot", "err", err)
				} else {
					logger.Info("Ledger snapshot stored", "blob", snapshotName)
				}
			}

			logger.Info("Server shutdown complete")
			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
