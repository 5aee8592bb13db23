// Package network implements authenticated gossip transport for
// Proof-of-Life heartbeats, blocks, and chain-sync requests over libp2p.
// Other goroutines publish and receive gossip through a Handle's buffered
// channels, never a shared lock on the swarm itself; Node.Dial is the one
// call that reaches the libp2p host directly from the caller's goroutine.
package network

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/libp2p/go-libp2p"
	p2pcrypto "github.com/libp2p/go-libp2p/core/crypto"
	"github.com/libp2p/go-libp2p/core/host"
	libp2pnetwork "github.com/libp2p/go-libp2p/core/network"
	"github.com/libp2p/go-libp2p/core/peer"
	"github.com/libp2p/go-libp2p/p2p/discovery/mdns"
	pubsub "github.com/libp2p/go-libp2p-pubsub"

	"github.com/AMCarbonaro/PULSE/log"
	"github.com/AMCarbonaro/PULSE/types"
)

const mdnsServiceTag = "pulse-network-discovery"

// Node owns the libp2p host, the gossipsub router, and mDNS discovery. It
// runs its own event loop on Run and exposes a Handle for every other
// goroutine to talk to it.
type Node struct {
	host   host.Host
	pubsub *pubsub.PubSub

	heartbeatTopic *pubsub.Topic
	blockTopic     *pubsub.Topic
	syncTopic      *pubsub.Topic

	heartbeatSub *pubsub.Subscription
	blockSub     *pubsub.Subscription
	syncSub      *pubsub.Subscription

	handle *Handle
}

// New creates a libp2p host listening on listenAddr (a multiaddr string
// such as "/ip4/0.0.0.0/tcp/4001"), subscribes to all three fixed topics,
// and starts local peer discovery via mDNS.
func New(ctx context.Context, listenAddr string) (*Node, error) {
	priv, _, err := p2pcrypto.GenerateEd25519Key(nil)
	if err != nil {
		return nil, fmt.Errorf("network: generate identity: %w", err)
	}

	h, err := libp2p.New(
		libp2p.ListenAddrStrings(listenAddr),
		libp2p.Identity(priv),
	)
	if err != nil {
		return nil, fmt.Errorf("network: create host: %w", err)
	}

	params := pubsub.DefaultGossipSubParams()
	params.D = 2
	params.Dlo = 1
	params.Dout = 1
	params.Dhi = 12

	ps, err := pubsub.NewGossipSub(ctx, h,
		pubsub.WithMessageSigning(true),
		pubsub.WithStrictSignatureVerification(true),
		pubsub.WithGossipSubParams(params),
	)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("network: create gossipsub: %w", err)
	}

	heartbeatTopic, err := ps.Join(HeartbeatTopic)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("network: join heartbeat topic: %w", err)
	}
	blockTopic, err := ps.Join(BlockTopic)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("network: join block topic: %w", err)
	}
	syncTopic, err := ps.Join(ChainSyncTopic)
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("network: join chain-sync topic: %w", err)
	}

	heartbeatSub, err := heartbeatTopic.Subscribe()
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("network: subscribe heartbeat topic: %w", err)
	}
	blockSub, err := blockTopic.Subscribe()
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("network: subscribe block topic: %w", err)
	}
	syncSub, err := syncTopic.Subscribe()
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("network: subscribe chain-sync topic: %w", err)
	}

	n := &Node{
		host:           h,
		pubsub:         ps,
		heartbeatTopic: heartbeatTopic,
		blockTopic:     blockTopic,
		syncTopic:      syncTopic,
		heartbeatSub:   heartbeatSub,
		blockSub:       blockSub,
		syncSub:        syncSub,
		handle:         NewHandle(h.ID().String()),
	}

	h.Network().Notify(&libp2pnetwork.NotifyBundle{
		ConnectedF: func(_ libp2pnetwork.Network, c libp2pnetwork.Conn) {
			n.handle.addPeer(c.RemotePeer().String())
		},
		DisconnectedF: func(_ libp2pnetwork.Network, c libp2pnetwork.Conn) {
			n.handle.removePeer(c.RemotePeer().String())
		},
	})

	discovery, err := mdns.NewMdnsService(h, mdnsServiceTag, &peerNotifee{host: h})
	if err != nil {
		h.Close()
		return nil, fmt.Errorf("network: start mdns discovery: %w", err)
	}
	if err := discovery.Start(); err != nil {
		h.Close()
		return nil, fmt.Errorf("network: mdns start: %w", err)
	}

	log.Info("network node started", "peer_id", n.handle.localPeerID, "listen", listenAddr)
	return n, nil
}

// Handle returns the channel-based interface other goroutines use to talk
// to this node.
func (n *Node) Handle() *Handle { return n.handle }

// Dial connects to a peer given its full multiaddr (including /p2p/<id>).
func (n *Node) Dial(ctx context.Context, addr string) error {
	info, err := peer.AddrInfoFromString(addr)
	if err != nil {
		return fmt.Errorf("network: parse peer address: %w", err)
	}
	if err := n.host.Connect(ctx, *info); err != nil {
		return fmt.Errorf("network: dial peer: %w", err)
	}
	return nil
}

// Run drains command requests into gossip publishes and forwards decoded
// topic messages into the Handle's Inbound channel until ctx is canceled.
// Publishing happens only on Run's goroutine and subscription reads only
// on the per-topic read loops it starts; the host itself is also reached by
// Dial and by mDNS discovery callbacks, from their own goroutines.
func (n *Node) Run(ctx context.Context) {
	go n.readLoop(ctx, n.heartbeatSub, n.decodeHeartbeat)
	go n.readLoop(ctx, n.blockSub, n.decodeBlock)
	go n.readLoop(ctx, n.syncSub, n.decodeSync)

	for {
		select {
		case <-ctx.Done():
			n.shutdown()
			return
		case cmd := <-n.handle.commands:
			n.dispatch(ctx, cmd)
		}
	}
}

func (n *Node) dispatch(ctx context.Context, cmd command) {
	var err error
	switch cmd.kind {
	case cmdPublishHeartbeat:
		err = n.publish(ctx, n.heartbeatTopic, cmd.heartbeat)
	case cmdPublishBlock:
		err = n.publish(ctx, n.blockTopic, cmd.block)
	case cmdPublishSyncRequest:
		err = n.publish(ctx, n.syncTopic, syncEnvelope{Kind: kindRequest, FromHeight: cmd.fromHeight})
	case cmdPublishSyncResponse:
		payload, marshalErr := json.Marshal(cmd.blocks)
		if marshalErr != nil {
			log.Error("network: marshal sync response blocks", "err", marshalErr)
			return
		}
		err = n.publish(ctx, n.syncTopic, syncEnvelope{Kind: kindResponse, Blocks: payload})
	}
	if err != nil {
		log.Error("network: publish failed", "err", err)
	}
}

func (n *Node) publish(ctx context.Context, topic *pubsub.Topic, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}
	return topic.Publish(ctx, data)
}

func (n *Node) readLoop(ctx context.Context, sub *pubsub.Subscription, decode func(libp2pPeerID string, data []byte) (Message, bool)) {
	for {
		msg, err := sub.Next(ctx)
		if err != nil {
			return
		}
		if msg.ReceivedFrom == n.host.ID() {
			continue
		}
		decoded, ok := decode(msg.ReceivedFrom.String(), msg.Data)
		if !ok {
			continue
		}
		select {
		case n.handle.Inbound <- decoded:
		default:
			log.Warn("network: inbound channel full, dropping message", "kind", decoded.Kind)
		}
	}
}

func (n *Node) decodeHeartbeat(peerID string, data []byte) (Message, bool) {
	var hb types.Heartbeat
	if err := json.Unmarshal(data, &hb); err != nil {
		return Message{}, false
	}
	return Message{Kind: MessageHeartbeat, Heartbeat: hb, PeerID: peerID}, true
}

func (n *Node) decodeBlock(peerID string, data []byte) (Message, bool) {
	var b types.PulseBlock
	if err := json.Unmarshal(data, &b); err != nil {
		return Message{}, false
	}
	return Message{Kind: MessageBlock, Block: b, PeerID: peerID}, true
}

func (n *Node) decodeSync(peerID string, data []byte) (Message, bool) {
	var env syncEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Message{}, false
	}
	switch env.Kind {
	case kindRequest:
		return Message{Kind: MessageSyncRequest, FromHeight: env.FromHeight, PeerID: peerID}, true
	case kindResponse:
		var blocks []types.PulseBlock
		if err := json.Unmarshal(env.Blocks, &blocks); err != nil {
			return Message{}, false
		}
		return Message{Kind: MessageSyncResponse, Blocks: blocks, PeerID: peerID}, true
	default:
		return Message{}, false
	}
}

func (n *Node) shutdown() {
	n.heartbeatSub.Cancel()
	n.blockSub.Cancel()
	n.syncSub.Cancel()
	n.heartbeatTopic.Close()
	n.blockTopic.Close()
	n.syncTopic.Close()
	if err := n.host.Close(); err != nil {
		log.Error("network: host close", "err", err)
	}
}

// peerNotifee bridges mDNS peer discovery into libp2p's connection manager.
type peerNotifee struct {
	host host.Host
}

func (p *peerNotifee) HandlePeerFound(info peer.AddrInfo) {
	if err := p.host.Connect(context.Background(), info); err != nil {
		log.Debug("network: mdns-discovered peer connect failed", "peer", info.ID.String(), "err", err)
	}
}
