// Command pulsekey generates and inspects device identity keys: a bare
// secp256k1 keypair, hex-encoded, with no keystore encryption. A PULSE
// device is identified directly by its public key hex, so there is no
// address derivation or passphrase-protected keystore to manage.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/AMCarbonaro/PULSE/internal/flags"
)

var gitCommit = ""
var gitDate = ""

var jsonFlag = &cli.BoolFlag{
	Name:  "json",
	Usage: "output JSON instead of human-readable format",
}

func main() {
	app := flags.NewApp(gitCommit, gitDate, "a device key generator/inspector for PULSE")
	app.Commands = []*cli.Command{
		commandGenerate,
		commandInspect,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
