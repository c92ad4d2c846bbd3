package ast

import "github.com/sgzwiz/oblc/internal/token"

// ClassRef is the uniform, tag-branched view the analyzer and emitter use
// over a resolved parent/interface slot that is "exactly one of ProgramClass
// or LibraryClass" (spec.md §9, Design Notes). ast.Class implements it
// directly; internal/linker.LibraryClass implements it for library-side
// classes, so analyzer code never has to special-case the origin beyond a
// single branch at the lookup site.
type ClassRef interface {
	RefName() string
	Virtual() bool
	Interface() bool
	RefParent() ClassRef
	FindMethods(simpleName string) []MethodRef
	FromLibrary() bool
}

// MethodRef is the uniform overload-resolution candidate view spanning
// program methods (*Method) and library methods (*linker.Method): just
// enough surface for scoring and dispatch without requiring a single
// concrete Method type across the program/library boundary (spec.md §9
// Design Notes).
type MethodRef interface {
	ParamTypeList() []*Type
	RetType() *Type
	IsStaticRef() bool
}

// Program is the compilation root (spec.md §3).
type Program struct {
	Bundles []*Bundle
	Uses    map[string]bool // the program's "uses" set; always contains the default bundle

	CharStrings  *LiteralPool
	IntStrings   *LiteralPool
	FloatStrings *LiteralPool

	EntryClass  *Class
	EntryMethod *Method

	// IsLibrary / IsWeb select the entry-point requirement (invariant 5) and
	// the target-writer magic number (spec.md §6.1).
	IsLibrary bool
	IsWeb     bool
}

func NewProgram() *Program {
	return &Program{
		Uses:         map[string]bool{"": true},
		CharStrings:  NewLiteralPool(),
		IntStrings:   NewLiteralPool(),
		FloatStrings: NewLiteralPool(),
	}
}

// FindClass searches every bundle of the program for a class by fully
// qualified name.
func (p *Program) FindClass(name string) *Class {
	for _, b := range p.Bundles {
		if c, ok := b.Classes[name]; ok {
			return c
		}
	}
	return nil
}

// FindEnum searches every bundle for an enum by name.
func (p *Program) FindEnum(name string) *Enum {
	for _, b := range p.Bundles {
		if e, ok := b.Enums[name]; ok {
			return e
		}
	}
	return nil
}

// AllClasses returns every program class across every bundle, bundle order
// then declaration order (spec.md §5 ordering rule).
func (p *Program) AllClasses() []*Class {
	var out []*Class
	for _, b := range p.Bundles {
		out = append(out, b.ClassList...)
	}
	return out
}

// Bundle is a named namespace (spec.md §3). The empty name denotes the
// default namespace.
type Bundle struct {
	Name      string
	ClassList []*Class
	EnumList  []*Enum
	Classes   map[string]*Class
	Enums     map[string]*Enum
}

func NewBundle(name string) *Bundle {
	return &Bundle{Name: name, Classes: map[string]*Class{}, Enums: map[string]*Enum{}}
}

func (b *Bundle) AddClass(c *Class) {
	b.ClassList = append(b.ClassList, c)
	b.Classes[c.Name] = c
}

func (b *Bundle) AddEnum(e *Enum) {
	b.EnumList = append(b.EnumList, e)
	b.Enums[e.Name] = e
}

// Class mirrors spec.md §3's Class record.
type Class struct {
	Name       string
	ParentName string

	// Invariant 1: exactly one of these is non-nil once resolved, never both.
	ParentProgram *Class
	ParentLibrary ClassRef

	Children []*Class // back-edges from children that resolved this class as parent

	InterfaceNames   []string
	InterfacesProgram []*Class
	InterfacesLibrary []ClassRef

	IsInterface bool
	IsVirtual   bool
	Called      bool // set by the analyzer on every analyzed class; emission does not read it

	ID int

	File string
	Line int

	Fields  []*FieldDecl
	Methods []*Method

	// AnonymousOf is non-nil when this class was synthesized at a `new`
	// call site for an anonymous class (spec.md §4.3 bullet 8).
	AnonymousOf *MethodCall

	// MethodsBySimpleName supports overload lookup by unqualified name
	// (spec.md §4.3 step 6).
	MethodsBySimpleName map[string][]*Method
	MethodsByEncoded    map[string]*Method

	// Scope holds the class's bound symbol-table scope. Typed as interface{}
	// to avoid an ast<->symtab import cycle (symtab.Scope embeds *ast.Type
	// values); the semantic package is the only reader/writer and type-
	// asserts it back to *symtab.Scope.
	Scope interface{}
}

// NewClassDecl creates an empty Class declaration node, named distinctly
// from Type's NewClass (a *Type constructor for class-typed values).
func NewClassDecl(name string) *Class {
	return &Class{
		Name:                name,
		MethodsBySimpleName: map[string][]*Method{},
		MethodsByEncoded:    map[string]*Method{},
	}
}

func (c *Class) RefName() string   { return c.Name }
func (c *Class) Virtual() bool     { return c.IsVirtual }
func (c *Class) Interface() bool   { return c.IsInterface }
func (c *Class) FromLibrary() bool { return false }

// RefParent implements ClassRef, returning whichever of the two resolved
// parent slots is set (invariant 1 guarantees at most one is).
func (c *Class) RefParent() ClassRef {
	if c.ParentProgram != nil {
		return c.ParentProgram
	}
	if c.ParentLibrary != nil {
		return c.ParentLibrary
	}
	return nil
}

func (c *Class) FindMethods(simpleName string) []MethodRef {
	ms := c.MethodsBySimpleName[simpleName]
	out := make([]MethodRef, len(ms))
	for i, m := range ms {
		out[i] = m
	}
	return out
}

// AddMethod registers a method in both the class's method list and its
// by-encoded-name and by-simple-name indexes.
func (c *Class) AddMethod(m *Method) {
	m.Owner = c
	c.Methods = append(c.Methods, m)
	c.MethodsByEncoded[m.EncodedName] = m
	c.MethodsBySimpleName[m.SimpleName] = append(c.MethodsBySimpleName[m.SimpleName], m)
}

// FieldDecl is a class or instance field declaration.
type FieldDecl struct {
	Name   string
	Type   *Type
	Static bool
	Pos    token.Position
}

// MethodKind enumerates the four method visibility/constructor kinds of
// spec.md §3.
type MethodKind int

const (
	MethodPublic MethodKind = iota
	MethodPrivate
	MethodNewPublic
	MethodNewPrivate
)

func (k MethodKind) IsConstructor() bool { return k == MethodNewPublic || k == MethodNewPrivate }

// Method mirrors spec.md §3's Method record.
type Method struct {
	ParsedName  string // "ClassName:SimpleName"
	SimpleName  string
	EncodedName string // "ClassName:SimpleName:<encoded-param-types>", set after §4.3 step 4

	Kind MethodKind

	Static   bool
	Virtual  bool
	Native   bool
	Function bool // static free function

	Declarations []*ParamDecl
	ReturnType   *Type
	Statements   []Statement // nil if Virtual

	Scope interface{} // see Class.Scope
	ID    int
	Owner *Class

	// FrameSize is computed by the emitter (spec.md §4.4 step 1).
	FrameSize int

	Pos token.Position

	// ExpandedFrom is set on a synthetic overload produced by default-
	// parameter expansion (spec.md §4.3 step 3), pointing at the original.
	ExpandedFrom *Method
	// DefaultsUsed holds the literal default values appended when this
	// synthetic overload forwards to the full-arity method.
	DefaultsUsed []Expression
}

// ParamTypeList implements MethodRef.
func (m *Method) ParamTypeList() []*Type {
	out := make([]*Type, len(m.Declarations))
	for i, d := range m.Declarations {
		out[i] = d.Type
	}
	return out
}

// RetType implements MethodRef.
func (m *Method) RetType() *Type { return m.ReturnType }

// IsStaticRef implements MethodRef.
func (m *Method) IsStaticRef() bool { return m.Static }

// ParamDecl is a parameter or local variable declaration.
type ParamDecl struct {
	Name    string
	Type    *Type
	Default Expression // nil unless this parameter has a default value
	Pos     token.Position
}

// Enum mirrors spec.md §3's Enum record; enums compile to integer values.
type Enum struct {
	Name   string
	Offset int
	Items  []*EnumItem
}

type EnumItem struct {
	Name string
	ID   int
}
