package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// deviceKeyfile is the on-disk shape of a generated device key: a bare
// hex-encoded secp256k1 keypair, no passphrase, no KDF. A PULSE device's
// identity on the wire is its public key hex, so the keyfile exists only
// to avoid retyping a private key by hand.
type deviceKeyfile struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey"`
}

func writeKeyfile(path string, kf deviceKeyfile) error {
	data, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal keyfile: %w", err)
	}
	data = append(data, '\n')
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("write keyfile %s: %w", path, err)
	}
	return nil
}

func readKeyfile(path string) (deviceKeyfile, error) {
	var kf deviceKeyfile
	data, err := os.ReadFile(path)
	if err != nil {
		return kf, fmt.Errorf("read keyfile %s: %w", path, err)
	}
	if err := json.Unmarshal(data, &kf); err != nil {
		return kf, fmt.Errorf("parse keyfile %s: %w", path, err)
	}
	return kf, nil
}

func mustPrintJSON(v interface{}) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to marshal json:", err)
		os.Exit(1)
	}
	fmt.Println(string(data))
}
