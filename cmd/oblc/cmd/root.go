// Package cmd implements the oblc CLI surface of spec.md §6.3, relaying the
// four flags the core cares about (sources, libraries, output, debug) plus
// the OBL_LIB_PATH search root, in the teacher's one-file-per-subcommand
// cobra layout (cmd/dwscript/cmd/{compile,run,lex,parse}.go).
package cmd

import (
	"fmt"
	"os"

	"github.com/goccy/go-yaml"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
)

var rootCmd = &cobra.Command{
	Use:   "oblc",
	Short: "Objeck bytecode language compiler",
	Long: `oblc is the front-end and bytecode emitter of an Objeck-family
compiler: external lexer/parser, library linker, context analyzer,
intermediate emitter, and binary target writer.`,
	Version: Version,
}

// manifest mirrors oblc.yaml: the same four core flags, so a multi-file
// program doesn't need a giant comma-joined command line (SPEC_FULL.md
// "Configuration").
type manifest struct {
	Sources   []string `yaml:"sources"`
	Libraries []string `yaml:"libraries"`
	Output    string   `yaml:"output"`
	Debug     bool     `yaml:"debug"`
}

var (
	manifestPath string
	libPathFlag  string
	jsonDiags    bool
)

func init() {
	rootCmd.PersistentFlags().StringVar(&manifestPath, "manifest", "oblc.yaml", "project manifest file (optional)")
	rootCmd.PersistentFlags().StringVar(&libPathFlag, "lib-path", "", "library search root (overrides OBL_LIB_PATH)")
	rootCmd.PersistentFlags().BoolVar(&jsonDiags, "json", false, "emit diagnostics as JSON instead of plain text")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// loadManifest reads manifestPath if it exists, returning a zero manifest
// (not an error) when the file is simply absent — it is always optional.
func loadManifest() (manifest, error) {
	var m manifest
	data, err := os.ReadFile(manifestPath)
	if err != nil {
		if os.IsNotExist(err) {
			return m, nil
		}
		return m, fmt.Errorf("reading manifest %s: %w", manifestPath, err)
	}
	if err := yaml.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parsing manifest %s: %w", manifestPath, err)
	}
	return m, nil
}

// searchRoot resolves the library search root: the --lib-path flag first,
// then OBL_LIB_PATH (possibly populated from a .env file at startup), so a
// library name with no directory component can be found under it (§4.1).
func searchRoot() string {
	if libPathFlag != "" {
		return libPathFlag
	}
	return os.Getenv("OBL_LIB_PATH")
}

