package main

import (
	"encoding/hex"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/urfave/cli/v2"

	"github.com/AMCarbonaro/PULSE/crypto"
)

type outputInspect struct {
	PublicKey  string `json:"publicKey"`
	PrivateKey string `json:"privateKey,omitempty"`
}

var privateFlag = &cli.BoolFlag{
	Name:  "private",
	Usage: "include the private key in the output",
}

var commandInspect = &cli.Command{
	Name:      "inspect",
	Usage:     "inspect a device keyfile",
	ArgsUsage: "<keyfile>",
	Description: `
Print the public key (and, with --private, the private key) stored in a
device keyfile. Handle --private output with care: it is the device's
entire identity, no passphrase stands between it and a forged heartbeat.`,
	Flags: []cli.Flag{jsonFlag, privateFlag},
	Action: func(ctx *cli.Context) error {
		keyfilepath := ctx.Args().First()
		if keyfilepath == "" {
			return fmt.Errorf("keyfile path required")
		}
		kf, err := readKeyfile(keyfilepath)
		if err != nil {
			return err
		}
		if _, err := crypto.HexToPubkey(kf.PublicKey); err != nil {
			return fmt.Errorf("keyfile %s has an invalid public key: %w", keyfilepath, err)
		}
		privBytes, err := hex.DecodeString(kf.PrivateKey)
		if err != nil {
			return fmt.Errorf("keyfile %s has an invalid private key: %w", keyfilepath, err)
		}
		if _, err := crypto.ToECDSA(privBytes); err != nil {
			return fmt.Errorf("keyfile %s has an invalid private key: %w", keyfilepath, err)
		}

		out := outputInspect{PublicKey: kf.PublicKey}
		if ctx.Bool(privateFlag.Name) {
			out.PrivateKey = kf.PrivateKey
		}

		if ctx.Bool(jsonFlag.Name) {
			mustPrintJSON(out)
		} else {
			table := tablewriter.NewWriter(os.Stdout)
			table.SetHeader([]string{"Field", "Value"})
			table.SetAutoWrapText(false)
			table.Append([]string{"Public key", out.PublicKey})
			if out.PrivateKey != "" {
				table.Append([]string{"Private key", out.PrivateKey})
			}
			table.Render()
		}
		return nil
	},
}
