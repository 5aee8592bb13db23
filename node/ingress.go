package node

import (
	"context"
	"errors"

	"github.com/AMCarbonaro/PULSE/consensus"
	"github.com/AMCarbonaro/PULSE/eventlog"
	"github.com/AMCarbonaro/PULSE/log"
	"github.com/AMCarbonaro/PULSE/network"
)

// runIngress drains decoded P2P messages and applies them against the
// local consensus engine. A peer block that extends past the local tip
// triggers a chain-sync request rather than being rejected outright.
func (n *Node) runIngress(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-n.net.Handle().Inbound:
			n.handleInbound(msg)
		}
	}
}

func (n *Node) handleInbound(msg network.Message) {
	switch msg.Kind {
	case network.MessageHeartbeat:
		if err := n.engine.ReceiveHeartbeat(msg.Heartbeat); err != nil {
			log.Debug("rejected peer heartbeat", "peer", msg.PeerID, "err", err)
			return
		}
		n.events.Push(eventlog.HeartbeatReceived(nowMs(), msg.Heartbeat.DevicePubkey, msg.Heartbeat.HeartRate, msg.Heartbeat.Weight()))

	case network.MessageBlock:
		if err := n.engine.ReceiveBlock(msg.Block); err != nil {
			if errors.Is(err, consensus.ErrInvalidPreviousHash) && msg.Block.Index > n.engine.ChainHeight() {
				log.Info("peer block is ahead of local chain, requesting sync", "peer", msg.PeerID, "peer_height", msg.Block.Index, "local_height", n.engine.ChainHeight())
				n.net.Handle().RequestSync(n.engine.ChainHeight() + 1)
				return
			}
			log.Debug("rejected peer block", "peer", msg.PeerID, "err", err)
			return
		}
		n.broadc.Broadcast(eventlog.NewBlockEvent(msg.Block))
		n.broadc.Broadcast(eventlog.StatsEvent(n.engine.Stats()))

	case network.MessageSyncRequest:
		all := n.engine.Blocks()
		if msg.FromHeight >= uint64(len(all)) {
			return
		}
		n.net.Handle().RespondSync(all[msg.FromHeight:])

	case network.MessageSyncResponse:
		if err := n.engine.ReplaceChain(msg.Blocks); err != nil {
			log.Debug("chain sync response did not replace local chain", "peer", msg.PeerID, "err", err)
			return
		}
		log.Info("replaced local chain from peer", "peer", msg.PeerID, "new_height", n.engine.ChainHeight())
		n.broadc.Broadcast(eventlog.StatsEvent(n.engine.Stats()))
	}
}
