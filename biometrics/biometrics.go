// Package biometrics analyzes heart-rate variability and motion history to
// separate live humans from synthetic or replayed sensor data, and folds
// that variability into entropy usable for block-level randomness.
package biometrics

import (
	"crypto/sha256"
	"encoding/binary"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru"
)

const (
	// maxHRHistory and maxMotionHistory bound how much history is kept per
	// device (~5 minutes at 5s heartbeat intervals).
	maxHRHistory     = 60
	maxMotionHistory = 60

	// maxTrackedDevices bounds the validator's memory against an unbounded
	// population of distinct device pubkeys between Cleanup sweeps.
	maxTrackedDevices = 16384

	// confidenceAcceptThreshold is the minimum confidence score a heartbeat
	// must reach to be considered plausibly from a live human.
	confidenceAcceptThreshold = 0.3
)

// Result is the outcome of validating one heartbeat's biometric plausibility.
type Result struct {
	IsValid     bool
	Confidence  float64
	Reason      string
	EntropyBits []byte
	HRVSDNN     float64
}

type deviceHistory struct {
	mu     sync.Mutex
	hr     []uint16
	motion []float64
}

// Validator tracks per-device heart rate and motion history to detect
// synthetic or spoofed biometric signals.
type Validator struct {
	devices *lru.Cache
}

// NewValidator creates a biometric validator bounded to maxTrackedDevices
// concurrently tracked device histories.
func NewValidator() *Validator {
	cache, _ := lru.New(maxTrackedDevices)
	return &Validator{devices: cache}
}

func (v *Validator) history(devicePubkey string) *deviceHistory {
	if h, ok := v.devices.Get(devicePubkey); ok {
		return h.(*deviceHistory)
	}
	h := &deviceHistory{}
	v.devices.Add(devicePubkey, h)
	return h
}

// Validate scores a heartbeat's biometric plausibility and extracts entropy
// from its natural measurement noise.
func (v *Validator) Validate(devicePubkey string, heartRate uint16, motionMagnitude float64, temperature float32) Result {
	if heartRate < 30 || heartRate > 220 {
		return Result{
			IsValid: false,
			Reason:  "heart rate outside physiological bounds",
		}
	}

	confidence := 1.0
	var reasons []string

	if temperature < 33.0 || temperature > 42.0 {
		confidence *= 0.3
		reasons = append(reasons, "temperature outside human range")
	}

	h := v.history(devicePubkey)
	h.mu.Lock()
	defer h.mu.Unlock()

	h.hr = append(h.hr, heartRate)
	if len(h.hr) > maxHRHistory {
		h.hr = h.hr[len(h.hr)-maxHRHistory:]
	}
	h.motion = append(h.motion, motionMagnitude)
	if len(h.motion) > maxMotionHistory {
		h.motion = h.motion[len(h.motion)-maxMotionHistory:]
	}

	var hrvSDNN float64
	if len(h.hr) >= 5 {
		hrvSDNN = sdnnUint16(h.hr)
	}

	if len(h.hr) >= 10 {
		if hrvSDNN < 0.5 {
			confidence *= 0.2
			reasons = append(reasons, "HRV too low, possible synthetic signal")
		}
		if hrvSDNN > 40.0 {
			confidence *= 0.4
			reasons = append(reasons, "HRV too high, possible random noise")
		}
		if isPeriodic(h.hr) {
			confidence *= 0.3
			reasons = append(reasons, "heart rate shows periodic pattern")
		}
	}

	if len(h.hr) >= 10 && len(h.motion) >= 10 {
		avgHR := meanUint16(h.hr)
		avgMotion := meanFloat64(h.motion)

		if avgHR > 130.0 && avgMotion < 0.05 {
			confidence *= 0.5
			reasons = append(reasons, "heart rate and motion mismatch")
		}

		motionSDNN := sdnnFloat64(h.motion)
		if motionSDNN < 0.001 && avgMotion > 0.01 {
			confidence *= 0.4
			reasons = append(reasons, "motion too constant, possible synthetic")
		}
	}

	entropy := extractEntropy(heartRate, motionMagnitude, hrvSDNN)

	isValid := confidence >= confidenceAcceptThreshold
	var reason string
	if len(reasons) > 0 {
		reason = joinReasons(reasons)
	}
	if !isValid {
		return Result{IsValid: false, Confidence: confidence, Reason: reason, EntropyBits: entropy, HRVSDNN: hrvSDNN}
	}
	return Result{IsValid: true, Confidence: confidence, Reason: reason, EntropyBits: entropy, HRVSDNN: hrvSDNN}
}

// Cleanup drops tracked history for devices not present in activePubkeys.
func (v *Validator) Cleanup(activePubkeys []string) {
	active := make(map[string]struct{}, len(activePubkeys))
	for _, k := range activePubkeys {
		active[k] = struct{}{}
	}
	for _, key := range v.devices.Keys() {
		pubkey := key.(string)
		if _, ok := active[pubkey]; !ok {
			v.devices.Remove(pubkey)
		}
	}
}

// AggregateEntropy combines recent HR and motion history across all tracked
// devices into a single 32-byte entropy pool for block-level randomness.
func (v *Validator) AggregateEntropy() []byte {
	hasher := sha256.New()
	for _, key := range v.devices.Keys() {
		pubkey := key.(string)
		raw, ok := v.devices.Peek(pubkey)
		if !ok {
			continue
		}
		h := raw.(*deviceHistory)
		h.mu.Lock()
		hasher.Write([]byte(pubkey))
		for _, hr := range h.hr {
			var b [2]byte
			binary.LittleEndian.PutUint16(b[:], hr)
			hasher.Write(b[:])
		}
		for _, m := range h.motion {
			var b [8]byte
			binary.LittleEndian.PutUint64(b[:], floatBits(m))
			hasher.Write(b[:])
		}
		h.mu.Unlock()
	}
	return hasher.Sum(nil)
}

func extractEntropy(heartRate uint16, motionMag float64, hrv float64) []byte {
	hasher := sha256.New()
	var hrBytes [2]byte
	binary.LittleEndian.PutUint16(hrBytes[:], heartRate)
	hasher.Write(hrBytes[:])

	var motionBytes [8]byte
	binary.LittleEndian.PutUint64(motionBytes[:], floatBits(motionMag))
	hasher.Write(motionBytes[:])

	var hrvBytes [8]byte
	binary.LittleEndian.PutUint64(hrvBytes[:], floatBits(hrv))
	hasher.Write(hrvBytes[:])

	var nanosBytes [8]byte
	binary.LittleEndian.PutUint64(nanosBytes[:], uint64(time.Now().UnixNano()))
	hasher.Write(nanosBytes[:])

	return hasher.Sum(nil)
}

func joinReasons(reasons []string) string {
	out := reasons[0]
	for _, r := range reasons[1:] {
		out += "; " + r
	}
	return out
}
