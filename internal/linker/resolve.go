package linker

import (
	"strconv"

	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/ir"
)

// ResolveExternalClasses walks every loaded library class and links its
// parent-name/implements-list to other library classes, adding the child
// back-edge on the resolved parent (§4.1 "Post-load linking"). A name that
// resolves to a program class instead is left unresolved here — deciding
// that is the analyzer's job, since the program could still supply it.
func (l *Linker) ResolveExternalClasses() {
	for _, lc := range l.classes {
		if lc.class.ParentName != "" {
			if parent, ok := l.classes[lc.class.ParentName]; ok {
				lc.ParentRef = parent
				parent.Children = append(parent.Children, lc)
			}
		}
		for _, ifaceName := range lc.class.InterfaceNames {
			if iface, ok := l.classes[ifaceName]; ok {
				lc.InterfaceRefs = append(lc.InterfaceRefs, iface)
			}
		}
	}
}

// ResolveExternalMethodCalls merges every loaded library's char-/int-/float-
// string pools into the given program pools by value equality, then
// rewrites every instruction that referenced a library-local pool index to
// point at the merged index (§4.1 "Post-load linking", §9 worked example
// "Cross-library string interning").
//
// Instructions that reference a literal pool use the convention: IntOp1
// holds the local index, IntOp2 tags which pool (0 = char, 1 = int, 2 =
// float) — only OpLoadString instructions carry this shape.
func (l *Linker) ResolveExternalMethodCalls(progChars, progInts, progFloats *ast.LiteralPool) {
	for _, u := range l.units {
		charRemap := remapChars(u.prog.CharStrings, progChars)
		intRemap := remapInts(u.prog.IntStrings, progInts)
		floatRemap := remapFloats(u.prog.FloatStrings, progFloats)

		for _, lc := range u.classes {
			for _, m := range lc.class.Methods {
				rewritePoolRefs(m.Instructions, charRemap, intRemap, floatRemap)
			}
		}
	}
}

func remapChars(local []string, dst *ast.LiteralPool) []int {
	remap := make([]int, len(local))
	for i, v := range local {
		remap[i] = dst.Intern(v)
	}
	return remap
}

func remapInts(local []int32, dst *ast.LiteralPool) []int {
	remap := make([]int, len(local))
	for i, v := range local {
		remap[i] = dst.Intern(strconv.FormatInt(int64(v), 10))
	}
	return remap
}

func remapFloats(local []float64, dst *ast.LiteralPool) []int {
	remap := make([]int, len(local))
	for i, v := range local {
		remap[i] = dst.Intern(strconv.FormatFloat(v, 'g', -1, 64))
	}
	return remap
}

func rewritePoolRefs(instrs []ir.Instruction, charRemap, intRemap, floatRemap []int) {
	for i := range instrs {
		if instrs[i].Op != ir.OpLoadString {
			continue
		}
		local := int(instrs[i].IntOp1)
		switch instrs[i].IntOp2 {
		case 0:
			if local < len(charRemap) {
				instrs[i].IntOp1 = int32(charRemap[local])
			}
		case 1:
			if local < len(intRemap) {
				instrs[i].IntOp1 = int32(intRemap[local])
			}
		case 2:
			if local < len(floatRemap) {
				instrs[i].IntOp1 = int32(floatRemap[local])
			}
		}
	}
}

// LookupClass searches for name directly, then (when not found) with each
// uses-prefix prepended in turn — the "uses-list fallback" of §4.1.
func (l *Linker) LookupClass(name string, uses []string) (*LibraryClass, bool) {
	if c, ok := l.classes[name]; ok {
		return c, true
	}
	for _, prefix := range uses {
		if prefix == "" {
			continue
		}
		if c, ok := l.classes[prefix+"."+name]; ok {
			return c, true
		}
	}
	return nil, false
}

// LookupEnum mirrors LookupClass for library-defined enums.
func (l *Linker) LookupEnum(name string, uses []string) (*LibraryEnum, bool) {
	if e, ok := l.enums[name]; ok {
		return e, true
	}
	for _, prefix := range uses {
		if prefix == "" {
			continue
		}
		if e, ok := l.enums[prefix+"."+name]; ok {
			return e, true
		}
	}
	return nil, false
}

// LookupBundle reports whether name is a bundle contributed by any loaded
// library, returning the class names it carries.
func (l *Linker) LookupBundle(name string) ([]string, bool) {
	classes, ok := l.bundles[name]
	return classes, ok
}

// AllClasses returns every loaded library class, for the emitter's class-id
// assignment pass (§4.4: "Library classes are numbered first").
func (l *Linker) AllClasses() []*LibraryClass {
	out := make([]*LibraryClass, 0, len(l.classes))
	for _, c := range l.classes {
		out = append(out, c)
	}
	return out
}

// AllEnums returns every loaded library enum, unpruned, in map iteration
// order. Enum values are inlined as plain integers at each use site, so
// there is no referenced subset to compute; the emitter copies the full
// linked set into the intermediate program.
func (l *Linker) AllEnums() []*LibraryEnum {
	out := make([]*LibraryEnum, 0, len(l.enums))
	for _, e := range l.enums {
		out = append(out, e)
	}
	return out
}
