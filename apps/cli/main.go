package main

import "github.com/abdul-hamid-achik/hitbench/apps/cli/cmd"

// Set with -ldflags "-X main.version=... -X main.buildTime=..."
var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	cmd.Execute(version, buildTime)
}
