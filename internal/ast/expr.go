package ast

import "github.com/sgzwiz/oblc/internal/token"

// Expression is any node the analyzer assigns an evaluation type to.
type Expression interface {
	exprNode()
	Position() token.Position
	// EvalType returns the type installed by the analyzer (nil before
	// analysis runs).
	EvalType() *Type
	SetEvalType(*Type)
}

type exprBase struct {
	Pos token.Position
	Typ *Type
}

func (e *exprBase) exprNode()             {}
func (e *exprBase) Position() token.Position { return e.Pos }
func (e *exprBase) EvalType() *Type        { return e.Typ }
func (e *exprBase) SetEvalType(t *Type)    { e.Typ = t }

// LiteralKind tags the scalar literal expression variants.
type LiteralKind int

const (
	LitNil LiteralKind = iota
	LitBool
	LitByte
	LitChar
	LitInt
	LitFloat
)

// Literal is a scalar constant expression.
type Literal struct {
	exprBase
	Kind  LiteralKind
	Raw   string // source text, used as the literal-pool key
	Bool  bool
	Int   int64
	Float float64
}

// CallType enumerates what a MethodCall node represents (spec.md §3).
type CallType int

const (
	CallMethod CallType = iota
	CallNewInstance
	CallNewArray
	CallParent
	CallEnum
	CallFunctionDef // captures a function-reference literal, e.g. `m(x:Int)~Int`
)

// VarRef is a variable reference, optionally indexed, cast, and chained
// into a method call (spec.md §3).
type VarRef struct {
	exprBase
	Name    string
	Indices []Expression

	Cast   *Type // non-nil if `As(T)` was applied
	TypeOf *Type // non-nil if this is `TypeOf(T)` rather than a variable load

	Chain *MethodCall // optional subsequent `.Method(...)` call

	// ResolvedEntry is filled in by the analyzer; typed as interface{} to
	// avoid an ast<->symtab cycle (see symtab.Entry).
	ResolvedEntry interface{}
}

// MethodCall is the centerpiece call-site node (spec.md §3, §4.3).
type MethodCall struct {
	exprBase
	VariableName string // receiver variable/literal name, "" if none
	MethodName   string
	Type         CallType

	CallingParams []Expression

	// FuncReturnType is set when Type == CallFunctionDef.
	FuncReturnType *Type
	FuncParamTypes []*Type

	Chain *MethodCall // next call in a `.A().B().C()` chain

	EnumItem *EnumItem

	// ResolvedMethod / ResolvedLibraryMethod mirror the program/library
	// split described in spec.md §9 for the selected overload.
	ResolvedMethod        *Method
	ResolvedLibraryMethod interface{} // *linker.LibraryMethod, set by semantic

	// OriginalClass is used for `parent.Method()` super dispatch: the
	// concrete class the call was written in, not the resolved parent.
	OriginalClass *Class

	// ArgCasts holds the implicit conversion installed per argument after
	// overload selection (spec.md §4.3 step 5); parallel to CallingParams.
	ArgCasts []*Type
}

// Calculated is a binary arithmetic/comparison/logical expression.
type Calculated struct {
	exprBase
	Op    token.Kind
	Left  Expression
	Right Expression
	// LeftCast / RightCast hold implicit widening casts installed by the
	// analyzer (spec.md §4.3 "calculated expressions").
	LeftCast  *Type
	RightCast *Type
}

// Ternary is `cond ? ifExpr : elseExpr`.
type Ternary struct {
	exprBase
	Cond Expression
	If   Expression
	Else Expression
}

// StringSegmentKind tags a CharString segment.
type StringSegmentKind int

const (
	SegmentLiteral StringSegmentKind = iota
	SegmentVariable
)

// StringSegment is one piece of an interpolated character string.
type StringSegment struct {
	Kind   StringSegmentKind
	Text   string     // valid when Kind == SegmentLiteral; interned into the char pool
	Expr   Expression // valid when Kind == SegmentVariable
	// ToStringMethod is resolved by the analyzer: the ToString method of
	// Expr's class (or wrapper class) used to stringify Expr (spec.md §4.4
	// "Character strings").
	ToStringMethod *Method
}

// CharString is a character-string literal, a list of literal and variable
// segments (spec.md §3).
type CharString struct {
	exprBase
	Segments []StringSegment
}

// StaticArray is an array literal `[e1, e2, ...]`.
type StaticArray struct {
	exprBase
	Elements []Expression
}

var (
	_ Expression = (*Literal)(nil)
	_ Expression = (*VarRef)(nil)
	_ Expression = (*MethodCall)(nil)
	_ Expression = (*Calculated)(nil)
	_ Expression = (*Ternary)(nil)
	_ Expression = (*CharString)(nil)
	_ Expression = (*StaticArray)(nil)
)
