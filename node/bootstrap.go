package node

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/AMCarbonaro/PULSE/eventlog"
	"github.com/AMCarbonaro/PULSE/log"
	"github.com/AMCarbonaro/PULSE/types"
)

// bootstrapSettleDelay gives the local swarm a moment to finish coming up
// before dialing configured peers.
const bootstrapSettleDelay = 2 * time.Second

// commonAPIPorts are tried against each configured peer's IP when its
// HTTP port isn't otherwise known; useful for multiple local nodes run
// against the default port ladder during development.
var commonAPIPorts = []int{8080, 8081, 8082, 3000}

const bootstrapHTTPTimeout = 3 * time.Second

// blocksEnvelope mirrors the api package's {success, data: {blocks}}
// response shape, decoded structurally rather than by importing api (the
// dependency would run the wrong way: api depends on consensus/network,
// not the other way around).
type blocksEnvelope struct {
	Success bool `json:"success"`
	Data    struct {
		Blocks []types.PulseBlock `json:"blocks"`
	} `json:"data"`
}

// runPeerBootstrap dials every configured peer over P2P, then tries an
// HTTP pull of their chain (faster than waiting on a gossip round trip for
// a node joining a running network), falling back to a gossip chain-sync
// request if no peer answered over HTTP.
func (n *Node) runPeerBootstrap(ctx context.Context) {
	if len(n.cfg.Peers) == 0 {
		return
	}
	select {
	case <-ctx.Done():
		return
	case <-time.After(bootstrapSettleDelay):
	}

	for _, addr := range n.cfg.Peers {
		if err := n.net.Dial(ctx, addr); err != nil {
			log.Warn("failed to dial configured peer", "addr", addr, "err", err)
		}
	}

	for _, addr := range n.cfg.Peers {
		ip, ok := ip4FromMultiaddr(addr)
		if !ok {
			continue
		}
		if n.tryHTTPSync(ip) {
			return
		}
	}

	log.Info("HTTP chain sync found no peer, falling back to gossip sync request", "local_height", n.engine.ChainHeight())
	n.net.Handle().RequestSync(n.engine.ChainHeight() + 1)
}

func (n *Node) tryHTTPSync(ip string) bool {
	client := &http.Client{Timeout: bootstrapHTTPTimeout}
	for _, port := range commonAPIPorts {
		url := fmt.Sprintf("http://%s:%d/blocks?offset=0&limit=200", ip, port)
		resp, err := client.Get(url)
		if err != nil {
			continue
		}
		var env blocksEnvelope
		decodeErr := json.NewDecoder(resp.Body).Decode(&env)
		resp.Body.Close()
		if decodeErr != nil || !env.Success || len(env.Data.Blocks) == 0 {
			continue
		}
		if err := n.engine.ReplaceChain(env.Data.Blocks); err != nil {
			log.Warn("http chain sync candidate rejected", "url", url, "err", err)
			continue
		}
		log.Info("chain synced over http from peer", "url", url, "height", n.engine.ChainHeight())
		n.broadc.Broadcast(eventlog.StatsEvent(n.engine.Stats()))
		return true
	}
	return false
}

// ip4FromMultiaddr extracts the IPv4 host from a "/ip4/<ip>/tcp/<port>"
// style multiaddr.
func ip4FromMultiaddr(addr string) (string, bool) {
	parts := strings.Split(addr, "/")
	for i := 0; i+1 < len(parts); i++ {
		if parts[i] == "ip4" && strings.Count(parts[i+1], ".") == 3 {
			return parts[i+1], true
		}
	}
	return "", false
}
