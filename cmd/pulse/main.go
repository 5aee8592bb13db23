// Command pulse runs a Proof-of-Life consensus node: it serves the HTTP
// API, gossips heartbeats and blocks over libp2p, and produces blocks on
// a fixed interval from whatever heartbeats cleared admission.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/urfave/cli/v2"

	"github.com/AMCarbonaro/PULSE/consensus"
	"github.com/AMCarbonaro/PULSE/internal/flags"
	"github.com/AMCarbonaro/PULSE/log"
	"github.com/AMCarbonaro/PULSE/node"
	"github.com/AMCarbonaro/PULSE/params"
)

var gitCommit = ""
var gitDate = ""

var (
	portFlag = &cli.IntFlag{
		Name:     "port",
		Usage:    "HTTP API port",
		Value:    params.DefaultHTTPPort,
		Category: flags.APICategory,
	}
	p2pPortFlag = &cli.IntFlag{
		Name:     "p2p-port",
		Usage:    "libp2p listen port",
		Value:    params.DefaultP2PPort,
		Category: flags.NetworkingCategory,
	}
	dataDirFlag = &cli.StringFlag{
		Name:     "data-dir",
		Usage:    "data directory for the chain and account ledger (empty for in-memory only)",
		Value:    params.DefaultDataDir,
		Category: flags.StorageCategory,
	}
	thresholdFlag = &cli.IntFlag{
		Name:     "threshold",
		Usage:    "minimum live heartbeats required before a block may be formed",
		Value:    params.DefaultNThreshold,
		Category: flags.ConsensusCategory,
	}
	intervalFlag = &cli.Uint64Flag{
		Name:     "interval",
		Usage:    "block production interval, in milliseconds",
		Value:    params.DefaultBlockIntervalMs,
		Category: flags.ConsensusCategory,
	}
	peersFlag = &cli.StringFlag{
		Name:     "peers",
		Usage:    "comma-separated peer multiaddrs to dial on startup (e.g. /ip4/1.2.3.4/tcp/4001)",
		Category: flags.NetworkingCategory,
	}
	simulateFlag = &cli.BoolFlag{
		Name:     "simulate",
		Usage:    "run three synthetic heartbeat devices against the local engine",
		Category: flags.MiscCategory,
	}
	jsonLogFlag = &cli.BoolFlag{
		Name:     "log.json",
		Usage:    "emit structured JSON logs instead of the plain-text terminal format",
		Category: flags.LoggingCategory,
	}
)

func main() {
	app := flags.NewApp(gitCommit, gitDate, "a Proof-of-Life consensus node")
	app.Flags = []cli.Flag{
		portFlag, p2pPortFlag, dataDirFlag, thresholdFlag, intervalFlag,
		peersFlag, simulateFlag, jsonLogFlag,
	}
	app.Action = run

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(c *cli.Context) error {
	if c.Bool(jsonLogFlag.Name) {
		log.SetDefault(slog.New(log.JSONHandler(os.Stdout)))
	}

	cfg := node.Config{
		Consensus: consensusConfigFromFlags(c),
		DataDir:   c.String(dataDirFlag.Name),
		HTTPAddr:  fmt.Sprintf(":%d", c.Int(portFlag.Name)),
		P2PListen: fmt.Sprintf("/ip4/0.0.0.0/tcp/%d", c.Int(p2pPortFlag.Name)),
		Version:   flags.VersionWithCommit(gitCommit, gitDate),
		Peers:     splitPeers(c.String(peersFlag.Name)),
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	n, err := node.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("pulse: build node: %w", err)
	}
	if err := n.Start(); err != nil {
		return fmt.Errorf("pulse: start node: %w", err)
	}

	if c.Bool(simulateFlag.Name) {
		go runSimulation(ctx, n)
	}

	log.Info("pulse node running", "http_port", c.Int(portFlag.Name), "p2p_port", c.Int(p2pPortFlag.Name))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	log.Info("shutting down")
	return n.Stop()
}

func consensusConfigFromFlags(c *cli.Context) consensus.Config {
	cfg := consensus.DefaultConfig()
	cfg.NThreshold = c.Int(thresholdFlag.Name)
	cfg.BlockIntervalMs = c.Uint64(intervalFlag.Name)
	return cfg
}

func splitPeers(raw string) []string {
	if raw == "" {
		return nil
	}
	var peers []string
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			peers = append(peers, p)
		}
	}
	return peers
}
