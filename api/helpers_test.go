package api

import (
	"crypto/ecdsa"
	"testing"

	"github.com/AMCarbonaro/PULSE/biometrics"
	"github.com/AMCarbonaro/PULSE/consensus"
	"github.com/AMCarbonaro/PULSE/crypto"
	"github.com/AMCarbonaro/PULSE/eventlog"
	"github.com/AMCarbonaro/PULSE/network"
	"github.com/AMCarbonaro/PULSE/storage"
	"github.com/AMCarbonaro/PULSE/types"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := consensus.DefaultConfig()
	cfg.NThreshold = 1
	engine, err := consensus.NewEngine(cfg, storage.NewMemStore(), biometrics.NewValidator())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	handle := network.NewHandle("test-peer")
	events := eventlog.NewLog()
	broadcaster := eventlog.NewBroadcaster()
	return NewServer(engine, handle, events, broadcaster, "test-version")
}

type testDevice struct {
	priv   *ecdsa.PrivateKey
	pubhex string
}

func newTestDevice(t *testing.T) testDevice {
	t.Helper()
	priv, err := crypto.GenerateKey()
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	return testDevice{priv: priv, pubhex: crypto.PubkeyToHex(&priv.PublicKey)}
}

func (d testDevice) heartbeat(t *testing.T, ts uint64, hr uint16, motion types.Motion, temp float32) types.Heartbeat {
	t.Helper()
	hb := types.Heartbeat{
		Timestamp:    ts,
		HeartRate:    hr,
		Motion:       motion,
		Temperature:  temp,
		DevicePubkey: d.pubhex,
	}
	signable, err := hb.SignableBytes()
	if err != nil {
		t.Fatalf("SignableBytes: %v", err)
	}
	sig, err := crypto.Sign(signable, d.priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	hb.Signature = sig
	return hb
}

func (d testDevice) transaction(t *testing.T, recipient string, amount float64, ts uint64, txID string) types.Transaction {
	t.Helper()
	tx := types.Transaction{
		TxID:            txID,
		SenderPubkey:    d.pubhex,
		RecipientPubkey: recipient,
		Amount:          amount,
		Timestamp:       ts,
	}
	signable, err := tx.SignableBytes()
	if err != nil {
		t.Fatalf("SignableBytes: %v", err)
	}
	sig, err := crypto.Sign(signable, d.priv)
	if err != nil {
		t.Fatalf("Sign: %v", err)
	}
	tx.Signature = sig
	return tx
}
