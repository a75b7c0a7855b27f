// Package main provides the entry point for the polychat CLI.
package main

import (
	"fmt"
	"os"

	"github.com/polychat/polychat/cmd/polychat/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
