package main

import (
	"fmt"
	"os"

	"github.com/sgzwiz/oblc/cmd/oblc/cmd"
)

func main() {
	os.Exit(run())
}

// run executes the CLI and returns the process exit code, factored out of
// main so testscript can invoke it in-process as a simulated "oblc" binary.
func run() int {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}
