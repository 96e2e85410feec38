// Command searchproxy runs the authenticated Brave Search gateway and its
// operator CLI.
package main

import (
	"fmt"
	"os"

	"github.com/hackclub/searchproxy/cmd/searchproxy/cli"
)

// Overridden via -ldflags at release time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := cli.Execute(version, commit, date); err != nil {
		fmt.Fprintln(os.Stderr, "searchproxy:", err)
		os.Exit(1)
	}
}
