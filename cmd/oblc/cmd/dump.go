package cmd

import (
	"fmt"
	"os"

	"github.com/sgzwiz/oblc/internal/target"
	"github.com/spf13/cobra"
)

var dumpCmd = &cobra.Command{
	Use:   "dump <bytecode-file>",
	Short: "Read a compiled bytecode file and pretty-print its intermediate program",
	Args:  cobra.ExactArgs(1),
	RunE:  runDump,
}

func init() {
	rootCmd.AddCommand(dumpCmd)
}

func runDump(_ *cobra.Command, args []string) error {
	filename := args[0]
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	prog, err := target.Read(data)
	if err != nil {
		return fmt.Errorf("reading bytecode: %w", err)
	}

	fmt.Println(prog.Dump())
	return nil
}
