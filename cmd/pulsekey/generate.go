package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v2"

	"github.com/AMCarbonaro/PULSE/crypto"
)

const defaultKeyfileName = "devicekey.json"

type outputGenerate struct {
	PublicKey string `json:"publicKey"`
}

var commandGenerate = &cli.Command{
	Name:      "generate",
	Usage:     "generate a new device keypair",
	ArgsUsage: "[ <keyfile> ]",
	Description: `
Generate a new secp256k1 device keypair and write it to a keyfile in plain
hex. The public key is the device's identity: it is what a heartbeat
carries as device_pubkey and a transaction as sender_pubkey, so there is
no separate address to derive.`,
	Flags: []cli.Flag{jsonFlag},
	Action: func(ctx *cli.Context) error {
		keyfilepath := ctx.Args().First()
		if keyfilepath == "" {
			keyfilepath = defaultKeyfileName
		}
		if _, err := os.Stat(keyfilepath); err == nil {
			return fmt.Errorf("keyfile already exists at %s", keyfilepath)
		} else if !os.IsNotExist(err) {
			return fmt.Errorf("checking keyfile %s: %w", keyfilepath, err)
		}

		priv, err := crypto.GenerateKey()
		if err != nil {
			return fmt.Errorf("generate key: %w", err)
		}
		pubhex := crypto.PubkeyToHex(&priv.PublicKey)
		privhex := hex.EncodeToString(crypto.FromECDSA(priv))

		if err := os.MkdirAll(filepath.Dir(keyfilepath), 0700); err != nil && filepath.Dir(keyfilepath) != "." {
			return fmt.Errorf("create directory for %s: %w", keyfilepath, err)
		}
		if err := writeKeyfile(keyfilepath, deviceKeyfile{PublicKey: pubhex, PrivateKey: privhex}); err != nil {
			return err
		}

		out := outputGenerate{PublicKey: pubhex}
		if ctx.Bool(jsonFlag.Name) {
			mustPrintJSON(out)
		} else {
			fmt.Println("Device keyfile written to", keyfilepath)
			fmt.Println("Public key:", out.PublicKey)
		}
		return nil
	},
}
