// Package main provides the optics CLI tool.
//
// Usage:
//
//	optics [flags] <command>
//
// Commands:
//
//	fit        - build the ordering and extract clusters at --eps
//	extract    - fit, then re-extract at --eps-prime
//	hierarchy  - fit, then extract the cluster tree
//	demo       - cluster synthetic Gaussian blobs
//	version    - print version information
package main

import (
	"fmt"
	"os"

	"github.com/TrevorS/optics/cmd/optics/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
