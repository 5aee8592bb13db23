package consensus

import (
	"errors"
	"math"
	"testing"

	"github.com/AMCarbonaro/PULSE/types"
)

func TestGenesisBlock(t *testing.T) {
	e, _ := newTestEngine(t)
	if e.ChainHeight() != 0 {
		t.Fatalf("expected genesis height 0, got %d", e.ChainHeight())
	}
	genesis := e.LatestBlock()
	if genesis.PreviousHash != genesisPreviousHash {
		t.Fatalf("unexpected genesis previous hash: %s", genesis.PreviousHash)
	}
	want, err := genesis.ComputeHash()
	if err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	if want != genesis.BlockHash {
		t.Fatalf("genesis block hash does not match its own contents")
	}
}

func TestReceiveHeartbeatThenFormBlock(t *testing.T) {
	e, clock := newTestEngine(t)
	dev := newTestDevice(t)

	hb := dev.heartbeat(t, clock.now(), 72, types.Motion{X: 0.1}, 36.7)
	if err := e.ReceiveHeartbeat(hb); err != nil {
		t.Fatalf("ReceiveHeartbeat: %v", err)
	}
	if e.HeartbeatPoolSize() != 1 {
		t.Fatalf("expected 1 pulsing device, got %d", e.HeartbeatPoolSize())
	}

	block, err := e.TryCreateBlock()
	if err != nil {
		t.Fatalf("TryCreateBlock: %v", err)
	}
	if block == nil {
		t.Fatal("expected a block to form")
	}
	if block.Index != 1 {
		t.Fatalf("expected block index 1, got %d", block.Index)
	}
	if block.NLive != 1 {
		t.Fatalf("expected n_live 1, got %d", block.NLive)
	}

	// The heartbeat was received and the block formed in the same tick, so
	// its continuity factor is 0: the device has not yet been pulsing for
	// any of the continuity window.
	wantWeight := hb.WeightWithContinuity(0)
	if math.Abs(block.TotalWeight-wantWeight) > 1e-9 {
		t.Fatalf("expected total_weight %f, got %f", wantWeight, block.TotalWeight)
	}

	wantHash, err := block.ComputeHash()
	if err != nil {
		t.Fatalf("ComputeHash: %v", err)
	}
	if wantHash != block.BlockHash {
		t.Fatalf("block hash does not match its own contents")
	}

	reward := RewardAtHeight(e.config, block.Index)
	if balance := e.Balance(dev.pubhex); math.Abs(balance-reward) > 1e-9 {
		t.Fatalf("expected sole pulsing device to earn the full reward %f, got %f", reward, balance)
	}
	if e.HeartbeatPoolSize() != 0 {
		t.Fatal("expected heartbeat pool to clear after block formation")
	}
}

func TestProportionalRewardSplitAcrossTwoDevices(t *testing.T) {
	e, clock := newTestEngine(t)
	e.config.NThreshold = 2
	a := newTestDevice(t)
	b := newTestDevice(t)

	hbA := a.heartbeat(t, clock.now(), 150, types.Motion{X: 1.5}, 37.0)
	hbB := b.heartbeat(t, clock.now(), 65, types.Motion{X: 0.05}, 36.5)
	if err := e.ReceiveHeartbeat(hbA); err != nil {
		t.Fatalf("ReceiveHeartbeat a: %v", err)
	}
	if err := e.ReceiveHeartbeat(hbB); err != nil {
		t.Fatalf("ReceiveHeartbeat b: %v", err)
	}

	block, err := e.TryCreateBlock()
	if err != nil {
		t.Fatalf("TryCreateBlock: %v", err)
	}
	if block == nil {
		t.Fatal("expected a block to form with two devices pulsing")
	}

	reward := RewardAtHeight(e.config, block.Index)
	balA := e.Balance(a.pubhex)
	balB := e.Balance(b.pubhex)
	if math.Abs(balA+balB-reward) > 1e-9 {
		t.Fatalf("expected balances to sum to the block reward %f, got %f+%f=%f", reward, balA, balB, balA+balB)
	}
	if balA <= balB {
		t.Fatalf("expected device with higher HR and motion to earn more: a=%f b=%f", balA, balB)
	}
}

func TestConstantHeartRateEventuallyRejected(t *testing.T) {
	e, clock := newTestEngine(t)
	dev := newTestDevice(t)

	var lastErr error
	for i := 0; i < 16; i++ {
		clock.advance(1000)
		hb := dev.heartbeat(t, clock.now(), 72, types.Motion{X: 0.1}, 36.7)
		lastErr = e.ReceiveHeartbeat(hb)
	}
	if !errors.Is(lastErr, ErrBiometricValidationFailed) {
		t.Fatalf("expected constant heart rate to eventually fail biometric validation, got %v", lastErr)
	}
}

func TestDuplicateHeartbeatRejected(t *testing.T) {
	e, clock := newTestEngine(t)
	dev := newTestDevice(t)

	hb := dev.heartbeat(t, clock.now(), 72, types.Motion{X: 0.1}, 36.7)
	if err := e.ReceiveHeartbeat(hb); err != nil {
		t.Fatalf("first ReceiveHeartbeat: %v", err)
	}
	if err := e.ReceiveHeartbeat(hb); err == nil {
		t.Fatal("expected duplicate heartbeat to be rejected")
	}
}

func TestRewardHalving(t *testing.T) {
	cfg := DefaultConfig()
	tests := []struct {
		height uint64
		want   float64
	}{
		{0, cfg.InitialRewardPerBlock},
		{cfg.HalvingInterval - 1, cfg.InitialRewardPerBlock},
		{cfg.HalvingInterval, cfg.InitialRewardPerBlock / 2},
		{cfg.HalvingInterval * 2, cfg.InitialRewardPerBlock / 4},
		{cfg.HalvingInterval * 100, cfg.MinRewardPerBlock},
	}
	for _, tc := range tests {
		got := RewardAtHeight(cfg, tc.height)
		if math.Abs(got-tc.want) > 1e-9 {
			t.Fatalf("RewardAtHeight(%d): want %f, got %f", tc.height, tc.want, got)
		}
	}
}

func TestReplaceChainAcceptsHeavierChain(t *testing.T) {
	e, clock := newTestEngine(t)
	dev := newTestDevice(t)

	hb := dev.heartbeat(t, clock.now(), 72, types.Motion{X: 0.1}, 36.7)
	if err := e.ReceiveHeartbeat(hb); err != nil {
		t.Fatalf("ReceiveHeartbeat: %v", err)
	}
	if _, err := e.TryCreateBlock(); err != nil {
		t.Fatalf("TryCreateBlock: %v", err)
	}
	localWeight := e.CumulativeWeight()

	heavy, clockHeavy := newTestEngine(t)
	devs := []testDevice{newTestDevice(t), newTestDevice(t), newTestDevice(t)}
	heavy.config.NThreshold = 3
	for _, d := range devs {
		hb := d.heartbeat(t, clockHeavy.now(), 150, types.Motion{X: 2.0}, 37.0)
		if err := heavy.ReceiveHeartbeat(hb); err != nil {
			t.Fatalf("ReceiveHeartbeat heavy: %v", err)
		}
	}
	if _, err := heavy.TryCreateBlock(); err != nil {
		t.Fatalf("TryCreateBlock heavy: %v", err)
	}
	candidate := heavy.Blocks()
	if heavy.CumulativeWeight() <= localWeight {
		t.Fatalf("test setup expects the candidate chain to be heavier: heavy=%f local=%f", heavy.CumulativeWeight(), localWeight)
	}

	if err := e.ReplaceChain(candidate); err != nil {
		t.Fatalf("ReplaceChain: %v", err)
	}
	if e.ChainHeight() != heavy.ChainHeight() {
		t.Fatalf("expected chain to adopt candidate height %d, got %d", heavy.ChainHeight(), e.ChainHeight())
	}
	reward := RewardAtHeight(heavy.config, candidate[len(candidate)-1].Index)
	var replayedTotal float64
	for _, d := range devs {
		balance := e.Balance(d.pubhex)
		if balance <= 0 {
			t.Fatalf("expected replayed chain to credit candidate device %s", d.pubhex)
		}
		if directBalance := heavy.Balance(d.pubhex); math.Abs(balance-directBalance) > 1e-9 {
			t.Fatalf("replayed balance for %s (%f) does not match the producing node's balance (%f)", d.pubhex, balance, directBalance)
		}
		replayedTotal += balance
	}
	if math.Abs(replayedTotal-reward) > 1e-9 {
		t.Fatalf("expected replayed balances to sum to the block reward %f, got %f", reward, replayedTotal)
	}
}

func TestReplaceChainRejectsLighterChain(t *testing.T) {
	e, clock := newTestEngine(t)
	devs := []testDevice{newTestDevice(t), newTestDevice(t)}
	e.config.NThreshold = 2
	for _, d := range devs {
		hb := d.heartbeat(t, clock.now(), 150, types.Motion{X: 2.0}, 37.0)
		if err := e.ReceiveHeartbeat(hb); err != nil {
			t.Fatalf("ReceiveHeartbeat: %v", err)
		}
	}
	if _, err := e.TryCreateBlock(); err != nil {
		t.Fatalf("TryCreateBlock: %v", err)
	}

	light, clockLight := newTestEngine(t)
	dev := newTestDevice(t)
	hb := dev.heartbeat(t, clockLight.now(), 60, types.Motion{}, 36.5)
	if err := light.ReceiveHeartbeat(hb); err != nil {
		t.Fatalf("ReceiveHeartbeat light: %v", err)
	}
	if _, err := light.TryCreateBlock(); err != nil {
		t.Fatalf("TryCreateBlock light: %v", err)
	}

	if err := e.ReplaceChain(light.Blocks()); !errors.Is(err, ErrLighterChain) {
		t.Fatalf("expected ErrLighterChain, got %v", err)
	}
}

func TestCleanupStaleContinuityEvictsInactiveDevices(t *testing.T) {
	e, clock := newTestEngine(t)
	dev := newTestDevice(t)
	hb := dev.heartbeat(t, clock.now(), 72, types.Motion{X: 0.1}, 36.7)
	if err := e.ReceiveHeartbeat(hb); err != nil {
		t.Fatalf("ReceiveHeartbeat: %v", err)
	}
	if _, ok := e.continuityStart[dev.pubhex]; !ok {
		t.Fatal("expected continuity bookkeeping to be recorded")
	}
	if _, err := e.TryCreateBlock(); err != nil {
		t.Fatalf("TryCreateBlock: %v", err)
	}

	clock.advance(e.config.MaxHeartbeatAgeMs*staleContinuityFactor + 1)
	e.CleanupStaleContinuity()
	if _, ok := e.continuityStart[dev.pubhex]; ok {
		t.Fatal("expected stale continuity bookkeeping to be evicted")
	}
}
