// Package linker implements the library loader of spec.md §4.1: it reads
// previously compiled library files, reconstructs their class/method/enum
// tables, and exposes the search operations the context analyzer uses to
// resolve names against linked libraries rather than the program under
// compilation.
package linker

import (
	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/ir"
)

// LibraryClass is the library-side half of the ast.ClassRef two-variant
// (spec.md §9 Design Notes): every resolved parent/interface slot is exactly
// one of *ast.Class or *LibraryClass, never both.
type LibraryClass struct {
	class *ir.Class

	ParentRef     ast.ClassRef // resolved by ResolveExternalClasses, may stay nil
	InterfaceRefs []ast.ClassRef
	Children      []ast.ClassRef

	methodsBySimple map[string][]*Method
	methodsByKey    map[string]*Method
	// methodsInOrder preserves the declaration order of the originating
	// library file, so AllMethods can list this class's methods without
	// depending on Go's unordered map iteration.
	methodsInOrder []*Method
}

func newLibraryClass(c *ir.Class) *LibraryClass {
	lc := &LibraryClass{
		class:           c,
		methodsBySimple: map[string][]*Method{},
		methodsByKey:    map[string]*Method{},
	}
	for _, m := range c.Methods {
		lm := newMethod(lc, m)
		lc.methodsByKey[m.EncodedName] = lm
		lc.methodsInOrder = append(lc.methodsInOrder, lm)
		simple := simpleNameOf(m.EncodedName)
		lc.methodsBySimple[simple] = append(lc.methodsBySimple[simple], lm)
	}
	return lc
}

func (l *LibraryClass) RefName() string   { return l.class.Name }
func (l *LibraryClass) Virtual() bool     { return l.class.IsVirtual }
func (l *LibraryClass) Interface() bool   { return l.class.IsInterface }
func (l *LibraryClass) FromLibrary() bool { return true }

func (l *LibraryClass) RefParent() ast.ClassRef { return l.ParentRef }

// FindMethods implements ast.ClassRef: look up by the method's unqualified
// (simple) name, mirroring ast.Class.FindMethods for the analyzer's method-
// resolution code, which never special-cases the origin beyond the tag.
func (l *LibraryClass) FindMethods(simpleName string) []ast.MethodRef {
	ms := l.methodsBySimple[simpleName]
	out := make([]ast.MethodRef, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out
}

// AllMethods returns every method of this class in the originating file's
// declaration order; the `oblc link` listing uses it.
func (l *LibraryClass) AllMethods() []*Method { return l.methodsInOrder }

// ID is the library-assigned class id from the file that was loaded; it is
// replaced by a fresh program-wide id during emission (§4.4).
func (l *LibraryClass) ID() int { return l.class.ID }

// ParentName is the raw (unresolved) parent name read from the file.
func (l *LibraryClass) ParentName() string { return l.class.ParentName }

// InterfaceNames is the raw (unresolved) implements-list read from the file.
func (l *LibraryClass) InterfaceNames() []string { return l.class.InterfaceNames }

// Underlying exposes the raw intermediate class record.
func (l *LibraryClass) Underlying() *ir.Class { return l.class }

// Method is a library method, re-deriving its parameter/return types from
// the encoded name stored in the file (§4.1 "Method parameter encodings are
// re-parsed from the mangled method name").
type Method struct {
	Owner *LibraryClass
	raw   *ir.Method

	ParamTypes []*ast.Type
	ReturnType *ast.Type
}

func simpleNameOf(encodedName string) string {
	// "Class:Simple:params" -> "Simple"
	start := -1
	for i := 0; i < len(encodedName); i++ {
		if encodedName[i] == ':' {
			if start == -1 {
				start = i + 1
				continue
			}
			return encodedName[start:i]
		}
	}
	return encodedName
}

// ID is the library-assigned method id; kept stable across emissions since
// dispatch only requires it to be unique within its owning class, never
// globally (spec.md §4.4 "Dispatch").
func (m *Method) ID() int { return m.raw.ID }

// EncodedName is the file's "Class:Simple:params" key.
func (m *Method) EncodedName() string { return m.raw.EncodedName }

// Instructions exposes the raw operand-record list loaded from the file.
func (m *Method) Instructions() []ir.Instruction { return m.raw.Instructions }

// IsNative reports whether this method is a native (VM-trap) method.
func (m *Method) IsNative() bool { return m.raw.IsNative }

// ParamTypeList implements ast.MethodRef.
func (m *Method) ParamTypeList() []*ast.Type { return m.ParamTypes }

// RetType implements ast.MethodRef.
func (m *Method) RetType() *ast.Type { return m.ReturnType }

// IsStaticRef implements ast.MethodRef.
func (m *Method) IsStaticRef() bool { return m.raw.IsStatic }

// LibraryEnum mirrors ast.Enum for a library-defined enum.
type LibraryEnum struct {
	Name   string
	Offset int
	Items  []ir.EnumItem
}
