package consensus

// staleContinuityFactor multiplies MaxHeartbeatAgeMs to decide how long a
// non-pulsing device's continuity bookkeeping is kept around before it is
// evicted, giving a brief grace period for a device that is just between
// heartbeats rather than truly gone.
const staleContinuityFactor = 2

// CleanupStaleContinuity evicts continuity and duplicate-hash bookkeeping
// for devices that are neither currently pulsing nor within the grace
// window of their last admitted heartbeat, and forwards the surviving
// active set to the biometric validator so it can do the same. Gating on
// last-seen rather than continuity start means a device that keeps
// pulsing regularly never loses its continuity bookkeeping just because
// the pool happened to be empty at a sweep instant; only a device that
// has genuinely gone quiet for staleAfter is evicted.
func (e *Engine) CleanupStaleContinuity() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	staleAfter := e.config.MaxHeartbeatAgeMs * staleContinuityFactor

	for pubkey, seenAt := range e.lastSeen {
		if _, pulsing := e.heartbeatPool[pubkey]; pulsing {
			continue
		}
		if saturatingSub(now, seenAt) > staleAfter {
			delete(e.continuityStart, pubkey)
			delete(e.lastHeartbeatHash, pubkey)
			delete(e.lastSeen, pubkey)
		}
	}

	active := make([]string, 0, len(e.heartbeatPool))
	for pubkey := range e.heartbeatPool {
		active = append(active, pubkey)
	}
	e.bio.Cleanup(active)
}
