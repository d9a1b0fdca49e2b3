package main

import (
	"os"

	"github.com/bcrosbie/noose/internal/cli"
)

// noose opens the terminal UI; flags are the noose-cli persistent flags.
func main() {
	args := append([]string{"tui"}, os.Args[1:]...)
	if err := cli.Execute(args, os.Stdout, os.Stderr); err != nil {
		os.Exit(1)
	}
}
