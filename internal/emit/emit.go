// Package emit implements the intermediate emitter of spec.md §4.4: it
// walks a fully analyzed *ast.Program (every reference resolved, every
// expression's evaluation type attached by internal/semantic) and lowers it
// to an *ir.Program of linear stack-machine instructions, ready for
// internal/target to serialize.
package emit

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/maruel/natural"
	"golang.org/x/text/unicode/norm"

	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/ir"
	"github.com/sgzwiz/oblc/internal/linker"
)

// Emitter lowers one analyzed program to its intermediate form.
type Emitter struct {
	Prog   *ast.Program
	Link   *linker.Linker // nil when compiling the system bundle itself
	Flavor ir.Flavor
	Debug  bool

	chars  *ast.LiteralPool
	ints   *ast.LiteralPool
	floats *ast.LiteralPool

	// classID holds every class's emission-assigned id: referenced library
	// classes first, then program classes (§4.4 "Class/method id
	// assignment"). ast.Class.ID is also set to its own entry as a
	// convenience for callers that only have the program-class pointer.
	classID map[ast.ClassRef]int
}

// New creates an Emitter for prog. l may be nil (compiling the system
// bundle itself has no linked libraries).
func New(prog *ast.Program, l *linker.Linker, flavor ir.Flavor, debug bool) *Emitter {
	return &Emitter{
		Prog:    prog,
		Link:    l,
		Flavor:  flavor,
		Debug:   debug,
		chars:   prog.CharStrings,
		ints:    prog.IntStrings,
		floats:  prog.FloatStrings,
		classID: map[ast.ClassRef]int{},
	}
}

// Emit runs the full sequence of spec.md §4.4 and returns the lowered
// program. The only errors returned are fatal ones the original compiler
// also treats as fatal (a frame-budget overflow, a missing entry point);
// ordinary semantic problems must already have been caught by
// internal/semantic before Emit is ever called.
func (e *Emitter) Emit() (*ir.Program, error) {
	out := &ir.Program{Flavor: e.Flavor, Debug: e.Debug}

	if e.Link != nil {
		e.Link.ResolveExternalMethodCalls(e.chars, e.ints, e.floats)
		for _, le := range e.Link.AllEnums() {
			out.Enums = append(out.Enums, &ir.Enum{Name: le.Name, Offset: le.Offset, Items: append([]ir.EnumItem(nil), le.Items...)})
		}
	}

	e.assignClassIDs()

	for _, b := range e.Prog.Bundles {
		if e.Flavor == ir.FlavorLibrary {
			out.BundleNames = append(out.BundleNames, b.Name)
		}
		for _, en := range b.EnumList {
			out.Enums = append(out.Enums, &ir.Enum{Name: en.Name, Offset: en.Offset, Items: cloneEnumItems(en.Items)})
		}
	}

	for _, c := range e.Prog.AllClasses() {
		irClass, err := e.emitClass(c)
		if err != nil {
			return nil, err
		}
		out.Classes = append(out.Classes, irClass)
	}

	if e.Flavor == ir.FlavorExecutable {
		if e.Prog.EntryClass == nil || e.Prog.EntryMethod == nil {
			return nil, fmt.Errorf("emit: executable program has no resolved entry point")
		}
		out.EntryClassID = e.classID[e.Prog.EntryClass]
		out.EntryMethodID = e.Prog.EntryMethod.ID
		if ref, ok := e.findClass("System.String"); ok {
			out.StringClassID = e.idOf(ref)
		}
	}

	out.CharStrings = e.chars.Values()
	out.IntStrings = intPoolValues(e.ints)
	out.FloatStrings = floatPoolValues(e.floats)

	return out, nil
}

func cloneEnumItems(items []*ast.EnumItem) []ir.EnumItem {
	out := make([]ir.EnumItem, len(items))
	for i, it := range items {
		out[i] = ir.EnumItem{Name: it.Name, ID: it.ID}
	}
	return out
}

func intPoolValues(pool *ast.LiteralPool) []int32 {
	vals := pool.Values()
	out := make([]int32, len(vals))
	for i, v := range vals {
		n, _ := strconv.ParseInt(v, 10, 64)
		out[i] = int32(n)
	}
	return out
}

func floatPoolValues(pool *ast.LiteralPool) []float64 {
	vals := pool.Values()
	out := make([]float64, len(vals))
	for i, v := range vals {
		f, _ := strconv.ParseFloat(v, 64)
		out[i] = f
	}
	return out
}

// findClass mirrors the analyzer's name resolution (program classes, then
// linked libraries), needed here only to locate System.String for the
// executable header's StringClassID (§6.1).
func (e *Emitter) findClass(name string) (ast.ClassRef, bool) {
	if c := e.Prog.FindClass(name); c != nil {
		return c, true
	}
	if e.Link != nil {
		if lc, ok := e.Link.LookupClass(name, e.usesList()); ok {
			return lc, true
		}
	}
	return nil, false
}

func (e *Emitter) usesList() []string {
	out := make([]string, 0, len(e.Prog.Uses))
	for name := range e.Prog.Uses {
		out = append(out, name)
	}
	return out
}

func (e *Emitter) idOf(ref ast.ClassRef) int {
	if c, ok := ref.(*ast.Class); ok {
		return c.ID
	}
	return e.classID[ref]
}

// assignClassIDs implements "Library classes are numbered first (only
// those referenced or all, if compiling a library), then program classes"
// (§4.4). Ids are reassigned fresh on every emission rather than reused
// from each library's own file, since a program's referenced-library set
// is renumbered into one contiguous space: the same deterministic rule
// (natural order by name) lets a virtual machine independently recompute
// the identical numbering from the same set of loaded libraries, without
// this compiler having to re-serialize any library's already-compiled
// bytecode into the executable (see DESIGN.md "Library linking model").
func (e *Emitter) assignClassIDs() {
	var libClasses []*linker.LibraryClass
	if e.Link != nil {
		if e.Flavor == ir.FlavorLibrary {
			libClasses = e.Link.AllClasses()
		} else {
			libClasses = e.referencedLibraryClasses()
		}
	}
	sort.Slice(libClasses, func(i, j int) bool {
		return natural.Less(libClasses[i].RefName(), libClasses[j].RefName())
	})

	next := 0
	for _, lc := range libClasses {
		e.classID[lc] = next
		next++
	}
	for _, c := range e.Prog.AllClasses() {
		c.ID = next
		e.classID[c] = next
		next++
		for i, m := range c.Methods {
			m.ID = i
		}
	}
}

// referencedLibraryClasses collects every library class this program's
// classes actually name: as a resolved parent or interface, or as the
// owner of a resolved library method call, closed transitively over each
// found class's own library parent/interface chain.
func (e *Emitter) referencedLibraryClasses() []*linker.LibraryClass {
	seen := map[*linker.LibraryClass]bool{}
	var out []*linker.LibraryClass

	var add func(ast.ClassRef)
	add = func(ref ast.ClassRef) {
		lc, ok := ref.(*linker.LibraryClass)
		if !ok || lc == nil || seen[lc] {
			return
		}
		seen[lc] = true
		out = append(out, lc)
		if lc.ParentRef != nil {
			add(lc.ParentRef)
		}
		for _, iface := range lc.InterfaceRefs {
			add(iface)
		}
	}

	for _, c := range e.Prog.AllClasses() {
		if c.ParentLibrary != nil {
			add(c.ParentLibrary)
		}
		for _, iface := range c.InterfacesLibrary {
			add(iface)
		}
		for _, m := range c.Methods {
			walkExpressionsIn(m.Statements, func(expr ast.Expression) {
				mc, ok := expr.(*ast.MethodCall)
				if !ok || mc.ResolvedLibraryMethod == nil {
					return
				}
				if lm, ok := mc.ResolvedLibraryMethod.(*linker.Method); ok {
					add(lm.Owner)
				}
			})
		}
	}
	return out
}

// internNFC interns s into pool after Unicode NFC normalization, so two
// source literals that are codepoint-distinct but canonically equivalent
// (e.g. combining-mark vs. precomposed form) collapse to one pool entry
// (spec.md §3's "character-wise" literal-pool equality invariant, applied
// at the one point literals actually enter the pool).
func internNFC(pool *ast.LiteralPool, s string) int {
	return pool.Intern(norm.NFC.String(s))
}

// frameOverflowErr mirrors internal/target's frameOverflowError (§4.4 step
// 2): reject a method whose computed frame exceeds the fixed budget with a
// fatal, human-readable error before any instructions for it are written.
func frameOverflowErr(methodName string, size, budget int) error {
	return fmt.Errorf("method %s needs a %s local frame, exceeding the %s budget",
		methodName, humanize.Bytes(uint64(size)), humanize.Bytes(uint64(budget)))
}
