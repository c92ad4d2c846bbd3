package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/diag"
	"github.com/sgzwiz/oblc/internal/emit"
	"github.com/sgzwiz/oblc/internal/ir"
	"github.com/sgzwiz/oblc/internal/lexer"
	"github.com/sgzwiz/oblc/internal/linker"
	"github.com/sgzwiz/oblc/internal/parser"
	"github.com/sgzwiz/oblc/internal/semantic"
	"github.com/sgzwiz/oblc/internal/target"
	"github.com/spf13/cobra"
)

var (
	compileSources   string
	compileLibraries string
	compileOutput    string
	compileDebug     bool
)

var compileCmd = &cobra.Command{
	Use:   "compile [file...]",
	Short: "Compile source files to a bytecode library, web, or executable",
	Long: `Runs the full pipeline — lex, parse, link, analyze, emit, write — over
one or more source files and produces a .obl (library), .obw (web), or
.obe (executable) bytecode file, selected by the output file's extension.`,
	RunE: runCompile,
}

func init() {
	rootCmd.AddCommand(compileCmd)

	compileCmd.Flags().StringVar(&compileSources, "sources", "", "comma-separated source file list (in addition to positional args)")
	compileCmd.Flags().StringVar(&compileLibraries, "libraries", "", "comma-separated library file list")
	compileCmd.Flags().StringVarP(&compileOutput, "output", "o", "", "output file (.obl/.obw/.obe)")
	compileCmd.Flags().BoolVar(&compileDebug, "debug", false, "include line numbers and declaration names in the output")
}

func runCompile(_ *cobra.Command, args []string) error {
	m, err := loadManifest()
	if err != nil {
		return err
	}

	sources := mergeList(args, splitCSV(compileSources), m.Sources)
	if len(sources) == 0 {
		return fmt.Errorf("no source files given")
	}
	libraries := mergeList(nil, splitCSV(compileLibraries), m.Libraries)
	output := firstNonEmpty(compileOutput, m.Output)
	debug := compileDebug || m.Debug

	flavor, err := flavorOf(output)
	if err != nil {
		return err
	}

	prog, err := loadSources(sources)
	if err != nil {
		return err
	}
	prog.IsLibrary = flavor == ir.FlavorLibrary
	prog.IsWeb = flavor == ir.FlavorWeb

	l := linker.New()
	l.SearchRoot = searchRoot()
	if err := l.LoadPaths(libraries); err != nil {
		return err
	}

	a := semantic.New(prog, l)
	if err := a.Run(); err != nil {
		return err
	}
	if !a.Diags.Empty() {
		return reportDiagnostics(a.Diags)
	}

	e := emit.New(prog, l, flavor, debug)
	out, err := e.Emit()
	if err != nil {
		return err
	}

	data, err := target.Write(out)
	if err != nil {
		return fmt.Errorf("writing bytecode: %w", err)
	}
	if err := os.WriteFile(output, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", output, err)
	}

	fmt.Printf("Compiled %d source file(s) -> %s\n", len(sources), output)
	return nil
}

// flavorOf maps the output file's extension to the target flavor, a fatal
// mismatch being one of spec.md §6.3's explicit error cases.
func flavorOf(output string) (ir.Flavor, error) {
	switch strings.ToLower(filepath.Ext(output)) {
	case ".obl":
		return ir.FlavorLibrary, nil
	case ".obw":
		return ir.FlavorWeb, nil
	case ".obe":
		return ir.FlavorExecutable, nil
	default:
		return 0, fmt.Errorf("output file %q must end in .obl, .obw, or .obe", output)
	}
}

// loadSources parses every file independently (each gets its own lexer) and
// merges their bundles into a single program, preserving source-file order
// for parsing and bundle order for registration (spec.md §5's ordering
// rule).
func loadSources(paths []string) (*ast.Program, error) {
	prog := ast.NewProgram()
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		p := parser.New(lexer.New(path, string(content)))
		fileProg := p.ParseProgram()
		if errs := p.Errors(); len(errs) > 0 {
			for _, e := range errs {
				fmt.Fprintln(os.Stderr, e)
			}
			return nil, fmt.Errorf("parsing %s failed with %d error(s)", path, len(errs))
		}
		prog.Bundles = append(prog.Bundles, fileProg.Bundles...)
		for name := range fileProg.Uses {
			prog.Uses[name] = true
		}
	}
	return prog, nil
}

func reportDiagnostics(bag *diag.Bag) error {
	if jsonDiags {
		out, err := bag.ToJSON()
		if err != nil {
			return err
		}
		fmt.Println(out)
	} else {
		fmt.Fprint(os.Stderr, bag.Format())
	}
	return fmt.Errorf("compilation failed with %d diagnostic(s)", bag.Len())
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// mergeList combines positional args, a flag's comma-separated values, and
// the manifest's list for the same concern, flags and args taking priority
// over the manifest so a one-off override never requires editing oblc.yaml.
func mergeList(args, flagValues, manifestValues []string) []string {
	if len(args) > 0 || len(flagValues) > 0 {
		return append(append([]string{}, args...), flagValues...)
	}
	return manifestValues
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
