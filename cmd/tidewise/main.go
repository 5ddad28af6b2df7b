// Package main provides the tidewise command line tool.
package main

import (
	"github.com/tidewise/tidewise/internal/cli"
)

// Version and BuildTime are set at compile time via ldflags.
var (
	Version   = "dev"
	BuildTime = "unknown"
)

func main() {
	cli.Execute(cli.BuildInfo{Version: Version, BuildTime: BuildTime})
}
