package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/byblosmedia/bybx-activation/activation"
	"github.com/byblosmedia/bybx-activation/api/activationhandler"
	"github.com/byblosmedia/bybx-activation/cmd/flags"
	"github.com/byblosmedia/bybx-activation/fingerprint"
	"github.com/byblosmedia/bybx-activation/interfaces"
	"github.com/byblosmedia/bybx-activation/resolver"
	"github.com/urfave/cli/v2"
)

var unlockFlags = append([]cli.Flag{
	&cli.StringFlag{
		Name:  "server-addr",
		Value: "http://127.0.0.1:8080",
		Usage: "base URL of the activation service",
	},
	&cli.StringFlag{
		Name:  "discover-domain",
		Usage: "DNS SRV domain to discover the activation service; overrides server-addr",
	},
	&cli.StringFlag{
		Name:  "dns-server",
		Usage: "DNS server for discovery, host:port",
	},
	&cli.StringFlag{
		Name:  "fingerprint",
		Usage: "fixed device fingerprint token; probes the host when empty",
	},
	&cli.StringFlag{
		Name:  "output",
		Usage: "write plaintext to this file instead of stdout",
	},
}, []cli.Flag{flags.LogJsonFlag, flags.LogDebugFlag, flags.LogServiceFlag}...)

func main() {
	app := &cli.App{
		Name:      "unlock",
		Usage:     "Activate and decrypt a BYBX protected file",
		ArgsUsage: "<file.bybx>",
		Flags:     unlockFlags,
		Action:    runUnlock,
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func runUnlock(cCtx *cli.Context) error {
	if cCtx.NArg() != 1 {
		return fmt.Errorf("expected exactly one BYBX file argument")
	}
	path := cCtx.Args().First()

	logger := flags.SetupLogger(cCtx)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("could not read %s: %w", path, err)
	}

	serverAddr := cCtx.String("server-addr")
	if domain := cCtx.String("discover-domain"); domain != "" {
		r := &resolver.ServiceResolver{DNSServer: cCtx.String("dns-server")}
		endpoints, err := r.Resolve(domain)
		if err != nil {
			return fmt.Errorf("service discovery failed: %w", err)
		}
		serverAddr = endpoints[0].URL()
		logger.Info("Discovered activation service", "endpoint", serverAddr)
	}

	var fingerprints interfaces.FingerprintProvider = &fingerprint.HostProvider{}
	if token := cCtx.String("fingerprint"); token != "" {
		fingerprints = &fingerprint.StaticProvider{Token: interfaces.Fingerprint(token)}
	}

	orch := &activation.Orchestrator{
		Fingerprints: fingerprints,
		Activation:   &activationhandler.Client{ServerAddr: serverAddr},
		Log:          logger,
	}

	sink := activation.SinkFunc(func(ctx context.Context, content activation.Content) error {
		output := cCtx.String("output")
		if output == "" {
			_, err := os.Stdout.Write(content.Plaintext)
			return err
		}
		if err := os.WriteFile(output, content.Plaintext, 0600); err != nil {
			return err
		}
		logger.Info("Content unlocked",
			"content", content.ContentName,
			"output", output,
			"bytes", len(content.Plaintext))
		return nil
	})

	if err := orch.OpenEnvelope(ctx, raw, filepath.Base(path), sink); err != nil {
		kind := interfaces.KindOf(err)
		logger.Error("Unlock failed", "kind", kind.String(), "retryable", kind.Retryable(), "err", err)
		return err
	}
	return nil
}
