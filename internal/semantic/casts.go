package semantic

import (
	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/linker"
)

// numericRank orders the numeric scalar kinds from narrowest to widest,
// Float being the widest (spec.md §4.3 "Method-call resolution" step 3).
func numericRank(k ast.Kind) int {
	switch k {
	case ast.KindByte:
		return 0
	case ast.KindChar:
		return 1
	case ast.KindInt:
		return 2
	case ast.KindFloat:
		return 3
	}
	return -1
}

// classInterfaces returns the direct interfaces declared on ref, branching
// on the program/library tag (ref is exactly one of *ast.Class or
// *linker.LibraryClass, spec.md §9 Design Notes).
func classInterfaces(ref ast.ClassRef) []ast.ClassRef {
	switch v := ref.(type) {
	case *ast.Class:
		out := make([]ast.ClassRef, 0, len(v.InterfacesProgram)+len(v.InterfacesLibrary))
		for _, p := range v.InterfacesProgram {
			out = append(out, p)
		}
		out = append(out, v.InterfacesLibrary...)
		return out
	case *linker.LibraryClass:
		return append([]ast.ClassRef(nil), v.InterfaceRefs...)
	}
	return nil
}

// isAncestorOrImplements walks sub's parent chain (and each ancestor's
// direct interfaces) looking for targetName, covering both up-cast
// directions the `As(T)` rule in spec.md §4.3 "Casts" allows.
func isAncestorOrImplements(sub ast.ClassRef, targetName string) bool {
	for cur := sub; cur != nil; cur = cur.RefParent() {
		if cur.RefName() == targetName {
			return true
		}
		for _, iface := range classInterfaces(cur) {
			if iface.RefName() == targetName {
				return true
			}
		}
	}
	return false
}

// relatedClasses reports whether from and to are related by inheritance (in
// either direction) or one implements the other as an interface.
func (a *Analyzer) relatedClasses(fromName, toName string) bool {
	if fromName == toName {
		return true
	}
	fromRef, fok := a.findClass(fromName)
	toRef, tok := a.findClass(toName)
	if fok && isAncestorOrImplements(fromRef, toName) {
		return true
	}
	if tok && isAncestorOrImplements(toRef, fromName) {
		return true
	}
	return false
}

// castAllowed implements spec.md §4.3 "Casts": `As(T)` on a class expression
// is accepted iff related by inheritance or interface; numeric casts are
// always accepted between numeric kinds; nil is assignable into any class
// slot; everything else involving Bool/Nil/Function-ref is rejected.
func (a *Analyzer) castAllowed(from, to *ast.Type) bool {
	if from == nil || to == nil {
		return false
	}
	if from.Kind == ast.KindNil && to.Kind == ast.KindClass && to.Dimension >= 0 {
		return true
	}
	if from.Kind == ast.KindClass && to.Kind == ast.KindClass && from.Dimension == to.Dimension {
		return a.relatedClasses(from.ClassName, to.ClassName)
	}
	if from.IsNumeric() && to.IsNumeric() {
		return true
	}
	return false
}

// scoreArg implements the per-argument scoring of spec.md §4.3 step 3:
// 0 exact match, 1 widening, -1 no match.
func (a *Analyzer) scoreArg(declared, actual *ast.Type) int {
	if declared == nil || actual == nil {
		return -1
	}
	if declared.Equals(actual) {
		return 0
	}
	if actual.Kind == ast.KindNil && declared.Kind == ast.KindClass {
		return 1
	}
	if declared.Dimension == actual.Dimension && declared.IsNumeric() && actual.IsNumeric() {
		if numericRank(actual.Kind) <= numericRank(declared.Kind) {
			return 1
		}
		return -1
	}
	if declared.Dimension == actual.Dimension && declared.Kind == ast.KindClass && actual.Kind == ast.KindClass {
		actualRef, ok := a.findClass(actual.ClassName)
		if ok && isAncestorOrImplements(actualRef, declared.ClassName) {
			return 1
		}
		return -1
	}
	if declared.Kind == ast.KindVar || actual.Kind == ast.KindVar {
		return 1
	}
	return -1
}
