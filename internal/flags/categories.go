package flags

import "github.com/urfave/cli/v2"

const (
	ConsensusCategory  = "CONSENSUS"
	BiometricCategory  = "BIOMETRICS"
	StorageCategory    = "STORAGE"
	AccountCategory    = "ACCOUNT"
	APICategory        = "API AND CONSOLE"
	NetworkingCategory = "NETWORKING"
	LoggingCategory    = "LOGGING AND DEBUGGING"
	MiscCategory       = "MISC"
	DeprecatedCategory = "ALIASED (deprecated)"
)

func init() {
	cli.HelpFlag.(*cli.BoolFlag).Category = MiscCategory
	cli.VersionFlag.(*cli.BoolFlag).Category = MiscCategory
}
