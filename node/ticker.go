package node

import (
	"context"
	"time"

	"github.com/AMCarbonaro/PULSE/consensus"
	"github.com/AMCarbonaro/PULSE/eventlog"
	"github.com/AMCarbonaro/PULSE/log"
)

// runBlockTicker forms a block every BlockIntervalMs and, on success,
// broadcasts it to peers and pushes the resulting events. TryCreateBlock
// has already released the consensus write lock by the time it returns,
// so a slow or backed-up gossip publish never holds up the next tick.
func (n *Node) runBlockTicker(ctx context.Context) {
	interval := time.Duration(n.cfg.Consensus.BlockIntervalMs) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.tick()
		}
	}
}

func (n *Node) tick() {
	if poolSize := n.engine.HeartbeatPoolSize(); poolSize > 0 {
		n.broadc.Broadcast(eventlog.HeartbeatCountEvent(poolSize))
	}

	block, err := n.engine.TryCreateBlock()
	if err != nil {
		log.Debug("block not formed this tick", "err", err)
		return
	}
	if block == nil {
		return
	}

	n.net.Handle().BroadcastBlock(*block)

	ts := nowMs()
	for _, hb := range block.Heartbeats {
		n.events.Push(eventlog.HeartbeatReceived(ts, hb.DevicePubkey, hb.HeartRate, hb.Weight()))
	}
	reward := consensus.RewardAtHeight(n.cfg.Consensus, block.Index)
	n.events.Push(eventlog.BlockCreated(ts, block.Index, block.BlockHash, block.NLive, block.TotalWeight, block.Security, reward))

	n.broadc.Broadcast(eventlog.NewBlockEvent(*block))
	n.broadc.Broadcast(eventlog.StatsEvent(n.engine.Stats()))

	log.Info("block created", "index", block.Index, "n_live", block.NLive, "weight", block.TotalWeight)
}
