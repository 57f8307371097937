// Package main implements the pyresolve CLI. It indexes Python workspaces,
// resolves imports and manages the pyresolved daemon.
package main

import (
	"os"

	"github.com/l3aro/pyresolve/cmd/pyresolve/commands"
)

var version = "dev"

func main() {
	commands.RootCmd.Version = version
	commands.RootCmd.SetVersionTemplate("pyresolve version {{.Version}}\n")

	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
