// Package ast is the parse-tree data model the compiler core operates on
// (spec.md §3). The tree itself is produced by an external parser/lexer
// pair (spec.md §1); this package only fixes the node shapes the context
// analyzer decorates in place and the intermediate emitter later reads.
package ast

import "fmt"

// Kind tags a Type's variant.
type Kind int

const (
	KindNil Kind = iota
	KindBool
	KindByte
	KindChar
	KindInt
	KindFloat
	KindClass
	KindFunc
	KindVar // type-inference placeholder, narrowed exactly once (invariant 3)
)

// Type is the tagged record described in spec.md §3. Every type carries a
// dimension (0 = scalar, >=1 = array of that many dimensions).
type Type struct {
	Kind      Kind
	ClassName string  // valid when Kind == KindClass
	Params    []*Type // valid when Kind == KindFunc
	Return    *Type   // valid when Kind == KindFunc

	Dimension int

	encoded string // cached structural identity for KindFunc, see mangle.EncodeFuncType
}

// Encoded returns (and memoizes) the structural class-name identity a
// function type uses as its class name field, per spec.md §4.3 "Dynamic
// function calls": m.(<param-encoding>)~<return-encoding>.
func (t *Type) Encoded(encode func(*Type) string) string {
	if t.Kind != KindFunc {
		return ""
	}
	if t.encoded == "" {
		t.encoded = encode(t)
	}
	return t.encoded
}

func NewScalar(k Kind) *Type              { return &Type{Kind: k} }
func NewArray(k Kind, dim int) *Type      { return &Type{Kind: k, Dimension: dim} }
func NewClass(name string, dim int) *Type { return &Type{Kind: KindClass, ClassName: name, Dimension: dim} }
func NewFunc(params []*Type, ret *Type) *Type {
	return &Type{Kind: KindFunc, Params: params, Return: ret}
}
func NewVar() *Type { return &Type{Kind: KindVar} }

// IsNumeric reports whether the type is one of the scalar numeric kinds.
func (t *Type) IsNumeric() bool {
	return t.Dimension == 0 && (t.Kind == KindByte || t.Kind == KindChar || t.Kind == KindInt || t.Kind == KindFloat)
}

// Equals reports exact type identity, dimension included.
func (t *Type) Equals(o *Type) bool {
	if t == nil || o == nil {
		return t == o
	}
	if t.Kind != o.Kind || t.Dimension != o.Dimension {
		return false
	}
	switch t.Kind {
	case KindClass:
		return t.ClassName == o.ClassName
	case KindFunc:
		if len(t.Params) != len(o.Params) || !t.Return.Equals(o.Return) {
			return false
		}
		for i := range t.Params {
			if !t.Params[i].Equals(o.Params[i]) {
				return false
			}
		}
		return true
	default:
		return true
	}
}

func (t *Type) String() string {
	if t == nil {
		return "<nil>"
	}
	base := ""
	switch t.Kind {
	case KindNil:
		base = "Nil"
	case KindBool:
		base = "Bool"
	case KindByte:
		base = "Byte"
	case KindChar:
		base = "Char"
	case KindInt:
		base = "Int"
	case KindFloat:
		base = "Float"
	case KindClass:
		base = t.ClassName
	case KindFunc:
		base = "Func"
	case KindVar:
		base = "Var"
	}
	for i := 0; i < t.Dimension; i++ {
		base += "[]"
	}
	return base
}

func (t *Type) GoString() string { return fmt.Sprintf("Type(%s)", t.String()) }
