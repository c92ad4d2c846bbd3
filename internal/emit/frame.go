package emit

import (
	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/ir"
	"github.com/sgzwiz/oblc/internal/symtab"
)

// frameLayout is the result of spec.md §4.4 step 1: a slot index per local
// (parameters first, then locals in declaration order, then the synthetic
// `#concat#` accumulator if the method needs one), plus the declaration
// table the target writer serializes alongside the method.
type frameLayout struct {
	slots   map[string]int
	size    int
	decls   []ir.Declaration
	usesCat bool
}

// slotWidth implements "Integers/pointers take one slot, floats take two,
// function-ref values take two" (spec.md §4.4 step 1).
func slotWidth(t *ast.Type) int {
	if t == nil {
		return 1
	}
	if t.Dimension == 0 && t.Kind == ast.KindFunc {
		return 2
	}
	if t.Dimension == 0 && t.Kind == ast.KindFloat {
		return 2
	}
	return 1
}

// paramKindOf maps a surface type to the wire ParamKind tag lifted from the
// original compiler's sys.h ParamType enumeration (ir.go's doc comment).
func paramKindOf(t *ast.Type) ir.ParamKind {
	if t == nil {
		return ir.ParamObj
	}
	if t.Kind == ast.KindFunc {
		return ir.ParamFunc
	}
	if t.Dimension > 0 {
		switch t.Kind {
		case ast.KindByte:
			return ir.ParamByteAry
		case ast.KindChar:
			return ir.ParamCharAry
		case ast.KindInt, ast.KindBool:
			return ir.ParamIntAry
		case ast.KindFloat:
			return ir.ParamFloatAry
		default:
			return ir.ParamObjAry
		}
	}
	switch t.Kind {
	case ast.KindChar:
		return ir.ParamChar
	case ast.KindFloat:
		return ir.ParamFloat
	case ast.KindClass:
		return ir.ParamObj
	default: // Bool, Byte, Int, Nil, Var
		return ir.ParamInt
	}
}

// concatAccumulatorType is the slot type installed for a method's synthetic
// `#concat#` local: a System.String reference, one slot wide.
func concatAccumulatorType() *ast.Type { return ast.NewClass("System.String", 0) }

// arrayLitAccumulatorType is the slot type installed for a method's
// synthetic `#arraylit#` local, used to hold an array literal's reference
// while its elements are stored one at a time (no OpDup exists). When a
// method contains more than one array literal with different element
// types, the slot keeps the first one's type; execution is unaffected
// since the slot only ever holds one opaque array reference at a time.
func arrayLitAccumulatorType(t *ast.Type) *ast.Type {
	if t == nil {
		return ast.NewClass("System.Array", 1)
	}
	return t
}

// selectAccumulatorType is the slot type installed for a method's synthetic
// `#select#` local: the select statement's discriminant, held so the
// comparison tree can re-load it without re-evaluating the discriminant
// expression.
func selectAccumulatorType() *ast.Type { return ast.NewScalar(ast.KindInt) }

// firstStaticArrayType returns the evaluation type of the first array
// literal found in stmts, or nil if none.
func firstStaticArrayType(stmts []ast.Statement) *ast.Type {
	var found *ast.Type
	walkExpressionsIn(stmts, func(e ast.Expression) {
		if found != nil {
			return
		}
		if sa, ok := e.(*ast.StaticArray); ok {
			found = sa.EvalType()
		}
	})
	return found
}

// usesSelect reports whether stmts contains a select statement anywhere,
// including nested inside if/loop/critical bodies.
func usesSelect(stmts []ast.Statement) bool {
	found := false
	walkStatements(stmts, func(s ast.Statement) {
		if _, ok := s.(*ast.SelectStatement); ok {
			found = true
		}
	})
	return found
}

// computeFrame walks m's declarations (parameters, then every nested local
// declaration in source order, then the `#concat#` accumulator if needed)
// assigning each a contiguous slot (§4.4 step 1). Narrowed types are read
// back from the method's archived scope so a `Var`-declared local that was
// later narrowed to Float correctly claims two slots.
func computeFrame(m *ast.Method) frameLayout {
	scope, _ := m.Scope.(*symtab.Scope)

	fl := frameLayout{slots: map[string]int{}}
	assign := func(name string, t *ast.Type) {
		fl.slots[name] = fl.size
		fl.size += slotWidth(t)
		fl.decls = append(fl.decls, ir.Declaration{Kind: paramKindOf(t), Name: name})
	}

	for _, p := range m.Declarations {
		assign(p.Name, resolvedType(scope, p.Name, p.Type))
	}

	walkStatements(m.Statements, func(s ast.Statement) {
		d, ok := s.(*ast.Declaration)
		if !ok {
			return
		}
		for _, decl := range d.Decls {
			assign(decl.Name, resolvedType(scope, decl.Name, decl.Type))
		}
	})

	if usesConcatAccumulator(m.Statements) {
		fl.usesCat = true
		assign("#concat#", concatAccumulatorType())
	}

	if t := firstStaticArrayType(m.Statements); t != nil {
		assign("#arraylit#", arrayLitAccumulatorType(t))
	}

	if usesSelect(m.Statements) {
		assign("#select#", selectAccumulatorType())
	}

	return fl
}

// resolvedType prefers the symbol table's (possibly narrowed) type over the
// declared one, falling back to declared when the scope has no entry (e.g.
// a virtual method with no body, never reaching the frame pass in practice).
func resolvedType(scope *symtab.Scope, name string, declared *ast.Type) *ast.Type {
	if scope == nil {
		return declared
	}
	if e, ok := scope.Lookup(name); ok && e.Type != nil {
		return e.Type
	}
	return declared
}

// paramCount implements "Parameter count expands to reflect this (function-
// refs count as two)" (§4.4 step 1): the sum of slot widths over the
// method's own declared parameters, not its locals.
func paramCount(m *ast.Method) int {
	n := 0
	for _, p := range m.Declarations {
		n += slotWidth(p.Type)
	}
	return n
}
