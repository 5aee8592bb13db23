package consensus

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/AMCarbonaro/PULSE/types"
)

// ReceiveHeartbeat admits a signed heartbeat into the pool, replacing any
// prior heartbeat from the same device.
func (e *Engine) ReceiveHeartbeat(hb types.Heartbeat) error {
	now := e.now()
	if saturatingSub(now, hb.Timestamp) > e.config.MaxHeartbeatAgeMs {
		return ErrStaleHeartbeat
	}
	if err := verifyHeartbeatSignature(hb); err != nil {
		return err
	}
	if hb.HeartRate < 30 || hb.HeartRate > 220 {
		return fmt.Errorf("%w: %d", ErrInvalidHeartRate, hb.HeartRate)
	}

	result := e.bio.Validate(hb.DevicePubkey, hb.HeartRate, hb.Motion.Magnitude(), hb.Temperature)
	if !result.IsValid {
		return fmt.Errorf("%w: %s", ErrBiometricValidationFailed, result.Reason)
	}

	signable, err := hb.SignableBytes()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCrypto, err)
	}
	sum := sha256.Sum256(signable)
	h := hex.EncodeToString(sum[:])

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.lastHeartbeatHash[hb.DevicePubkey] == h {
		return ErrStaleHeartbeat
	}
	e.lastHeartbeatHash[hb.DevicePubkey] = h

	if _, ok := e.continuityStart[hb.DevicePubkey]; !ok {
		e.continuityStart[hb.DevicePubkey] = now
	}
	e.lastSeen[hb.DevicePubkey] = now

	e.heartbeatPool[hb.DevicePubkey] = hb
	return nil
}
