// Command foldctl is the administrative CLI for an embedded foldcore store:
// it drives schema lifecycle, transform registration, ad-hoc query/mutate
// calls, and crypto initialization directly against a bbolt file, with no
// server process in between.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/platinummonkey/foldcore/pkg/foldctl"
)

func main() {
	rootCmd := foldctl.NewRootCommand()

	flag.Parse()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
