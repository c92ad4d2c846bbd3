package main

import (
	"os"
	"testing"

	"github.com/rogpeppe/go-internal/testscript"
)

// TestMain re-execs the test binary as the "oblc" command whenever a script
// line names it, so each command a .txtar script runs gets its own process
// and its own fresh package-level flag state.
func TestMain(m *testing.M) {
	os.Exit(testscript.RunMain(m, map[string]func() int{
		"oblc": run,
	}))
}

// TestScripts runs the CLI end-to-end against the .txtar fixtures in
// testdata/script, exercising part of the documented surface of spec.md
// §6.3: the lex/parse/compile/dump subcommands, compiling to an .obe
// executable, and the extension-mismatch fatal error.
func TestScripts(t *testing.T) {
	testscript.Run(t, testscript.Params{
		Dir: "testdata/script",
	})
}
