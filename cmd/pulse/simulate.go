package main

import (
	"context"
	"crypto/ecdsa"
	"math/rand"
	"time"

	"github.com/AMCarbonaro/PULSE/crypto"
	"github.com/AMCarbonaro/PULSE/log"
	"github.com/AMCarbonaro/PULSE/node"
	"github.com/AMCarbonaro/PULSE/types"
)

const (
	simulatedDeviceCount  = 3
	simulateTick          = 2 * time.Second
	simulateBaseHeartRate = 70.0
	simulateActivityRange = 60.0
	simulateBaseTemp      = 36.5
)

type simDevice struct {
	priv   *ecdsa.PrivateKey
	pubhex string
}

// runSimulation submits heartbeats from three synthetic devices directly
// to the local engine, for exercising block production without real
// hardware. Intended for local development only.
func runSimulation(ctx context.Context, n *node.Node) {
	devices := make([]simDevice, 0, simulatedDeviceCount)
	for i := 0; i < simulatedDeviceCount; i++ {
		priv, err := crypto.GenerateKey()
		if err != nil {
			log.Error("simulate: generate device key", "err", err)
			return
		}
		pubhex := crypto.PubkeyToHex(&priv.PublicKey)
		devices = append(devices, simDevice{priv: priv, pubhex: pubhex})
		log.Info("simulate: device ready", "index", i, "pubkey_prefix", pubhex[:16])
	}

	ticker := time.NewTicker(simulateTick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, d := range devices {
				hb := d.randomHeartbeat()
				if err := n.Engine().ReceiveHeartbeat(hb); err != nil {
					log.Debug("simulate: heartbeat rejected", "err", err)
				}
			}
		}
	}
}

func (d simDevice) randomHeartbeat() types.Heartbeat {
	activity := rand.Float64() * 0.5
	hb := types.Heartbeat{
		Timestamp:    uint64(time.Now().UnixMilli()),
		HeartRate:    uint16(simulateBaseHeartRate + activity*simulateActivityRange + float64(rand.Intn(10))),
		Motion: types.Motion{
			X: rand.Float64()*0.4 - 0.2 + activity*0.5,
			Y: rand.Float64()*0.4 - 0.2 + activity*0.3,
			Z: rand.Float64()*0.2 - 0.1 + activity*0.2,
		},
		Temperature:  float32(simulateBaseTemp + rand.Float64() - 0.5),
		DevicePubkey: d.pubhex,
	}
	signable, err := hb.SignableBytes()
	if err != nil {
		return hb
	}
	sig, err := crypto.Sign(signable, d.priv)
	if err != nil {
		return hb
	}
	hb.Signature = sig
	return hb
}
