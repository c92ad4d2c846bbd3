package cmd

import (
	"fmt"
	"os"

	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/lexer"
	"github.com/sgzwiz/oblc/internal/parser"
	"github.com/spf13/cobra"
)

var parseCmd = &cobra.Command{
	Use:   "parse <file>",
	Short: "Parse a source file and dump the resulting AST",
	Args:  cobra.ExactArgs(1),
	RunE:  runParse,
}

func init() {
	rootCmd.AddCommand(parseCmd)
}

func runParse(_ *cobra.Command, args []string) error {
	filename := args[0]
	content, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("reading %s: %w", filename, err)
	}

	p := parser.New(lexer.New(filename, string(content)))
	prog := p.ParseProgram()

	if errs := p.Errors(); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintln(os.Stderr, e)
		}
		return fmt.Errorf("parsing failed with %d error(s)", len(errs))
	}

	dumpProgram(prog)
	return nil
}

// dumpProgram prints a tree view of prog's bundles/classes/methods, in the
// teacher's indent-by-depth style (cmd/dwscript/cmd/parse.go's dumpASTNode)
// rather than a full expression-level dump — this command's job is
// orientation, not completeness.
func dumpProgram(prog *ast.Program) {
	for _, b := range prog.Bundles {
		name := b.Name
		if name == "" {
			name = "<default>"
		}
		fmt.Printf("bundle %s\n", name)
		for _, e := range b.EnumList {
			fmt.Printf("  enum %s (%d items)\n", e.Name, len(e.Items))
		}
		for _, c := range b.ClassList {
			dumpClass(c, "  ")
		}
	}
}

func dumpClass(c *ast.Class, indent string) {
	kind := "class"
	if c.IsInterface {
		kind = "interface"
	}
	extra := ""
	if c.ParentName != "" {
		extra = " from " + c.ParentName
	}
	fmt.Printf("%s%s %s%s\n", indent, kind, c.Name, extra)
	for _, f := range c.Fields {
		fmt.Printf("%s  field %s: %s\n", indent, f.Name, f.Type)
	}
	for _, m := range c.Methods {
		dumpMethod(m, indent+"  ")
	}
}

func dumpMethod(m *ast.Method, indent string) {
	params := make([]string, len(m.Declarations))
	for i, p := range m.Declarations {
		params[i] = fmt.Sprintf("%s:%s", p.Name, p.Type)
	}
	fmt.Printf("%smethod %s(%v) ~ %s (%d statements)\n", indent, m.SimpleName, params, m.ReturnType, len(m.Statements))
}
