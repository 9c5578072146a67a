// (c) 2024-2025, Mysten Labs, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// poolexec submits a batch of parallel payments through the executor
// service, one worker pool per in-flight transaction.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"sync"

	"github.com/ethereum/go-ethereum/log"
	gethmetrics "github.com/ethereum/go-ethereum/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/urfave/cli/v2"

	"github.com/mystenlabs/objectpool/client"
	"github.com/mystenlabs/objectpool/config"
	"github.com/mystenlabs/objectpool/executor"
	"github.com/mystenlabs/objectpool/metrics/prometheus"
	"github.com/mystenlabs/objectpool/signer"
	"github.com/mystenlabs/objectpool/txbuilder"
	"github.com/mystenlabs/objectpool/types"
)

var (
	configFlag = &cli.StringFlag{
		Name:  "config",
		Usage: "Path to the configuration file",
	}
	rpcURLFlag = &cli.StringFlag{
		Name:  "rpc-url",
		Usage: "Full node RPC endpoint (overrides the configuration file)",
	}
	seedFlag = &cli.StringFlag{
		Name:    "seed",
		Usage:   "Hex-encoded 32-byte signer seed",
		EnvVars: []string{"OBJECTPOOL_SEED"},
	}
	recipientFlag = &cli.StringFlag{
		Name:  "recipient",
		Usage: "Address receiving the payments",
	}
	amountFlag = &cli.Uint64Flag{
		Name:  "amount",
		Usage: "Payment amount per transaction",
		Value: 1_000_000,
	}
	countFlag = &cli.IntFlag{
		Name:  "count",
		Usage: "Number of transactions to submit in parallel",
		Value: 5,
	}
	metricsAddrFlag = &cli.StringFlag{
		Name:  "metrics-addr",
		Usage: "Serve prometheus metrics on this address (empty = disabled)",
	}
)

var app = &cli.App{
	Name:  "poolexec",
	Usage: "parallel payment submitter backed by owned-object worker pools",
	Flags: []cli.Flag{
		configFlag,
		rpcURLFlag,
		seedFlag,
		recipientFlag,
		amountFlag,
		countFlag,
		metricsAddrFlag,
	},
	Action: run,
}

func main() {
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	cfg, err := config.Load(c.String(configFlag.Name))
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	if url := c.String(rpcURLFlag.Name); url != "" {
		cfg.RPCURL = url
	}
	if cfg.RPCURL == "" {
		return fmt.Errorf("no RPC endpoint configured (--%s)", rpcURLFlag.Name)
	}
	if err := config.SetupLogger(cfg); err != nil {
		return fmt.Errorf("configuring logger: %w", err)
	}
	if addr := c.String(metricsAddrFlag.Name); addr != "" {
		go serveMetrics(addr)
	}

	s, err := signer.FromHexSeed(c.String(seedFlag.Name))
	if err != nil {
		return fmt.Errorf("deriving signer: %w", err)
	}
	recipient := types.Address(c.String(recipientFlag.Name))
	if recipient == "" {
		return fmt.Errorf("no recipient configured (--%s)", recipientFlag.Name)
	}

	ctx := c.Context
	rpc, err := client.DialContext(ctx, cfg.RPCURL)
	if err != nil {
		return fmt.Errorf("dialing %s: %w", cfg.RPCURL, err)
	}
	defer rpc.Close()

	svc, err := executor.New(ctx, s, rpc, executor.Config{
		WorkerAcquireTimeout: cfg.WorkerAcquireTimeout,
		DefaultRetries:       cfg.DefaultRetries,
		MaxInFlight:          cfg.MaxInFlight,
	})
	if err != nil {
		return err
	}
	defer svc.Close()

	count := c.Int(countFlag.Name)
	amount := c.Uint64(amountFlag.Name)
	log.Info("Submitting payments", "count", count, "amount", amount, "recipient", recipient)

	var wg sync.WaitGroup
	errs := make([]error, count)
	for i := 0; i < count; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = pay(ctx, svc, recipient, amount)
		}(i)
	}
	wg.Wait()

	failed := 0
	for _, err := range errs {
		if err != nil {
			failed++
			log.Error("Payment failed", "err", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d payments failed", failed, count)
	}
	log.Info("All payments executed", "count", count)
	return nil
}

func pay(ctx context.Context, svc *executor.Service, recipient types.Address, amount uint64) error {
	tx := txbuilder.New()
	split := tx.SplitCoins(txbuilder.GasCoin, []txbuilder.Argument{tx.Pure(amount)})
	tx.TransferObjects([]txbuilder.Argument{split}, tx.Pure(recipient))

	res, err := svc.Execute(ctx, tx)
	if err != nil {
		return err
	}
	log.Info("Payment executed", "digest", res.Digest)
	return nil
}

func serveMetrics(addr string) {
	gatherer := prometheus.NewGatherer(gethmetrics.DefaultRegistry)
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
	log.Info("Serving metrics", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("Metrics server stopped", "err", err)
	}
}
