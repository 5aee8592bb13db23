package flags

import "github.com/urfave/cli/v2"

// NewApp creates a urfave/cli App with the version/usage/commit boilerplate
// every pulse binary shares, so each cmd/ package only has to set Commands
// and Flags.
func NewApp(gitCommit, gitDate, usage string) *cli.App {
	app := cli.NewApp()
	app.EnableBashCompletion = true
	app.Version = VersionWithCommit(gitCommit, gitDate)
	app.Usage = usage
	app.Copyright = "Copyright 2025 The PULSE Authors"
	return app
}

// VersionWithCommit appends a short build commit and date to a base
// version string, when available.
func VersionWithCommit(gitCommit, gitDate string) string {
	version := baseVersion
	if len(gitCommit) >= 8 {
		version += "-" + gitCommit[:8]
	}
	if gitDate != "" {
		version += "-" + gitDate
	}
	return version
}

const baseVersion = "0.1.0"
