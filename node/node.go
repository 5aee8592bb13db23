// Package node wires storage, consensus, biometrics, network, and the
// event log into a single running Proof-of-Life node and owns its
// background goroutines: block production, P2P ingress, and stale
// continuity cleanup.
package node

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AMCarbonaro/PULSE/api"
	"github.com/AMCarbonaro/PULSE/biometrics"
	"github.com/AMCarbonaro/PULSE/consensus"
	"github.com/AMCarbonaro/PULSE/eventlog"
	"github.com/AMCarbonaro/PULSE/log"
	"github.com/AMCarbonaro/PULSE/network"
	"github.com/AMCarbonaro/PULSE/storage"
)

// cleanupSweepFactor sets the stale-continuity sweep period as a multiple
// of the heartbeat freshness window: infrequent enough to be cheap, often
// enough that a departed device's continuity clock doesn't linger.
const cleanupSweepFactor = 2

// Lifecycle is satisfied by anything node.Node starts and stops as a unit.
type Lifecycle interface {
	Start() error
	Stop() error
}

// Config gathers everything needed to assemble a Node.
type Config struct {
	Consensus consensus.Config
	DataDir   string
	HTTPAddr  string
	P2PListen string
	Version   string
	Peers     []string
}

// Node is a fully assembled Proof-of-Life node: a consensus engine, a P2P
// handle, an HTTP API, and an event log, plus the goroutines that tie them
// together.
type Node struct {
	cfg Config

	store storage.Store

	engine *consensus.Engine
	net    *network.Node
	events *eventlog.Log
	broadc *eventlog.Broadcaster

	httpSrv *http.Server

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New opens storage (falling back to an in-memory store if the on-disk
// store cannot be opened), restores the consensus engine from whatever
// chain is already persisted, and assembles the API and network layers
// without starting any goroutines yet.
func New(ctx context.Context, cfg Config) (*Node, error) {
	store, err := openStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	bio := biometrics.NewValidator()

	blocks, err := store.LoadAllBlocks()
	if err != nil {
		return nil, fmt.Errorf("node: load blocks: %w", err)
	}
	accounts, err := store.LoadAllAccounts()
	if err != nil {
		return nil, fmt.Errorf("node: load accounts: %w", err)
	}
	engine, err := consensus.RestoreEngine(cfg.Consensus, store, bio, blocks, accounts)
	if err != nil {
		return nil, fmt.Errorf("node: restore engine: %w", err)
	}
	instanceID := uuid.New().String()
	log.Info("restored chain", "height", engine.ChainHeight(), "instance_id", instanceID)

	netNode, err := network.New(ctx, cfg.P2PListen)
	if err != nil {
		return nil, fmt.Errorf("node: start network: %w", err)
	}

	events := eventlog.NewLog()
	events.Push(eventlog.NodeStarted(nowMs(), cfg.Version, engine.ChainHeight()))
	broadc := eventlog.NewBroadcaster()

	server := api.NewServer(engine, netNode.Handle(), events, broadc, cfg.Version)

	n := &Node{
		cfg:    cfg,
		store:  store,
		engine: engine,
		net:    netNode,
		events: events,
		broadc: broadc,
		httpSrv: &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: server.Handler(),
		},
	}
	return n, nil
}

// openStore opens the on-disk store at dir; if that fails it logs loudly
// and falls back to an in-memory store so the node can still run.
func openStore(dir string) (storage.Store, error) {
	if dir == "" {
		return storage.NewMemStore(), nil
	}
	store, err := storage.Open(dir)
	if err != nil {
		log.Error("failed to open persistent storage, falling back to in-memory store", "dir", dir, "err", err)
		return storage.NewMemStore(), nil
	}
	return store, nil
}

// Start boots the network, HTTP, block production, ingress, and cleanup
// goroutines. It returns once the HTTP listener is confirmed bound.
func (n *Node) Start() error {
	ctx, cancel := context.WithCancel(context.Background())
	n.cancel = cancel

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.net.Run(ctx)
	}()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.runBlockTicker(ctx)
	}()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.runIngress(ctx)
	}()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.runCleanupSweep(ctx)
	}()

	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		n.runPeerBootstrap(ctx)
	}()

	ln, err := newListener(n.httpSrv.Addr)
	if err != nil {
		cancel()
		return fmt.Errorf("node: listen http: %w", err)
	}
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		if err := n.httpSrv.Serve(ln); err != nil && err != http.ErrServerClosed {
			log.Error("http server stopped", "err", err)
		}
	}()

	log.Info("node started", "http_addr", n.httpSrv.Addr, "peer_id", n.net.Handle().PeerID())
	return nil
}

// Stop signals every background goroutine to exit, shuts down the HTTP
// server, flushes storage, and waits for everything to finish.
func (n *Node) Stop() error {
	if n.cancel != nil {
		n.cancel()
	}
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := n.httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("http server shutdown", "err", err)
	}
	n.wg.Wait()
	if err := n.store.Flush(); err != nil {
		log.Error("flush storage on shutdown", "err", err)
	}
	return n.store.Close()
}

// Engine exposes the consensus engine for callers that need direct access
// (the simulate mode in cmd/pulse submits heartbeats this way).
func (n *Node) Engine() *consensus.Engine { return n.engine }

var _ Lifecycle = (*Node)(nil)

func nowMs() uint64 { return uint64(time.Now().UnixMilli()) }
