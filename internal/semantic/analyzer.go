// Package semantic implements the context analyzer of spec.md §4.3: the
// resolver/type-checker that is the hard engineering surface of this
// compiler. It registers classes, resolves parents and interfaces, expands
// default-parameter methods, encodes signatures, and analyzes every enum,
// class, method, statement, and expression in the program, decorating the
// parse tree in place.
package semantic

import (
	"fmt"

	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/diag"
	"github.com/sgzwiz/oblc/internal/linker"
	"github.com/sgzwiz/oblc/internal/symtab"
	"github.com/sgzwiz/oblc/internal/token"
)

// RootClassName is the root of every class hierarchy; a class with no
// explicit parent implicitly derives from it (spec.md §4.3 step 5), unless
// it IS the root (compiling the system bundle).
const RootClassName = "System.Base"

// Analyzer runs the top-level sequence of spec.md §4.3 over a parsed
// program, optionally linked against precompiled libraries.
type Analyzer struct {
	Prog   *ast.Program
	Link   *linker.Linker // nil when compiling the system bundle itself
	Diags  *diag.Bag
	Syms   *symtab.Manager

	compilingSystemBundle bool

	mainMethod    *ast.Method
	mainClass     *ast.Class
	requestMethod *ast.Method
	requestClass  *ast.Class

	loopDepth int
}

// New creates an Analyzer for prog, optionally backed by a populated
// linker.Linker (nil if compiling the system bundle, per spec.md §4.3 step
// 1's carve-out).
func New(prog *ast.Program, l *linker.Linker) *Analyzer {
	return &Analyzer{
		Prog:                  prog,
		Link:                  l,
		Diags:                 diag.NewBag(),
		Syms:                  symtab.NewManager(),
		compilingSystemBundle: l == nil,
	}
}

// Run executes the full top-level sequence of spec.md §4.3. The returned
// error is non-nil only for a structural failure (e.g. no bundles); ordinary
// semantic problems are recorded in a.Diags, never returned as an error, so
// emission can be suppressed by checking a.Diags.Empty() afterward.
func (a *Analyzer) Run() error {
	if len(a.Prog.Bundles) == 0 {
		return fmt.Errorf("semantic: program has no bundles to analyze")
	}

	a.checkUses()
	a.expandDefaultParams()
	a.encodeSignatures()
	a.resolveParents()
	a.associateMethods()

	for _, b := range a.Prog.Bundles {
		a.analyzeBundle(b)
	}

	a.checkAnonymousClasses()
	a.checkEntryPoint()

	return nil
}

// checkUses verifies every name in the program's uses set resolves either
// to a bundle of the program itself or to a bundle contributed by a linked
// library (spec.md §4.3 step 2).
func (a *Analyzer) checkUses() {
	for name := range a.Prog.Uses {
		if name == "" {
			continue
		}
		found := false
		for _, b := range a.Prog.Bundles {
			if b.Name == name {
				found = true
				break
			}
		}
		if !found && a.Link != nil {
			if _, ok := a.Link.LookupBundle(name); ok {
				found = true
			}
		}
		if !found {
			a.Diags.Add(token.Position{}, diag.NameResolution, msgBundleUndefined, name)
		}
	}
}

// usesList flattens the program's uses set into a slice for the linker's
// uses-fallback lookups (spec.md §4.1).
func (a *Analyzer) usesList() []string {
	out := make([]string, 0, len(a.Prog.Uses))
	for name := range a.Prog.Uses {
		out = append(out, name)
	}
	return out
}

// findClass resolves a name against program classes first, then libraries,
// returning the uniform ast.ClassRef view (spec.md §9 Design Notes).
func (a *Analyzer) findClass(name string) (ast.ClassRef, bool) {
	if c := a.Prog.FindClass(name); c != nil {
		return c, true
	}
	if a.Link != nil {
		if lc, ok := a.Link.LookupClass(name, a.usesList()); ok {
			return lc, true
		}
	}
	return nil, false
}
