package node

import (
	"context"
	"time"
)

// runCleanupSweep periodically evicts continuity tracking for devices that
// stopped sending heartbeats, at a period proportional to the heartbeat
// freshness window so it never races a still-warm device's own timeout.
func (n *Node) runCleanupSweep(ctx context.Context) {
	period := time.Duration(n.cfg.Consensus.MaxHeartbeatAgeMs) * cleanupSweepFactor * time.Millisecond
	ticker := time.NewTicker(period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n.engine.CleanupStaleContinuity()
		}
	}
}
