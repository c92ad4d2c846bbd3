package cmd

import (
	"fmt"

	"github.com/sgzwiz/oblc/internal/linker"
	"github.com/spf13/cobra"
)

var linkCmd = &cobra.Command{
	Use:   "link <library...>",
	Short: "Load one or more libraries and list their contents",
	Long: `A debugging aid over internal/linker: loads the given library files and
prints every class, method, and enum they contribute, without running the
context analyzer or emitter.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runLink,
}

func init() {
	rootCmd.AddCommand(linkCmd)
}

func runLink(_ *cobra.Command, args []string) error {
	l := linker.New()
	l.SearchRoot = searchRoot()
	if err := l.LoadPaths(args); err != nil {
		return err
	}

	for _, c := range l.AllClasses() {
		kind := "class"
		if c.Interface() {
			kind = "interface"
		}
		fmt.Printf("%s %s (id=%d)\n", kind, c.RefName(), c.ID())
		for _, m := range c.AllMethods() {
			fmt.Printf("  method %s (id=%d, native=%v)\n", m.EncodedName(), m.ID(), m.IsNative())
		}
	}
	for _, e := range l.AllEnums() {
		fmt.Printf("enum %s (%d items)\n", e.Name, len(e.Items))
	}
	return nil
}
