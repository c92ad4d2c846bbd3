package emit

import (
	"strconv"

	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/ir"
	"github.com/sgzwiz/oblc/internal/symtab"
	"github.com/sgzwiz/oblc/internal/token"
)

// methodBuilder accumulates one method's instruction stream. Jump targets
// are backpatched: a forward jump is pushed with a zero operand, its
// instruction index recorded, and patch() fills the operand in once the
// target address is known.
type methodBuilder struct {
	e       *Emitter
	method  *ast.Method
	owner   *ast.Class
	slots   map[string]int
	scope   *symtab.Scope
	usesCat bool
	instrs  []ir.Instruction

	// breaks is a stack of pending break-jump patch lists, one per
	// enclosing loop; lowerBreak appends to its innermost entry.
	breaks [][]int
}

func (b *methodBuilder) push(i ir.Instruction) int {
	b.instrs = append(b.instrs, i)
	return len(b.instrs) - 1
}

func (b *methodBuilder) patch(idx, target int) {
	b.instrs[idx].IntOp1 = int32(target)
}

// lowerParamPrelude implements "emit the parameter-store prelude in reverse
// parameter order": a caller pushes arguments left to right, so the last
// parameter is on top of the stack on entry; popping in reverse restores
// every parameter into its slot in declaration order (§4.4 step 3).
func (b *methodBuilder) lowerParamPrelude() {
	line := b.method.Pos.Line
	for i := len(b.method.Declarations) - 1; i >= 0; i-- {
		p := b.method.Declarations[i]
		b.storeVar(p.Name, resolvedType(b.scope, p.Name, p.Type), line)
	}
}

// ensureTerminated implements §4.4 step 4's closing rule: append an
// implicit return if control can fall off the end of the body, and for a
// constructor append the implicit self-load + return specifically (a
// constructor's value is always the instance it initialized). Full path
// coverage analysis is not attempted here: a trailing append after an
// already-terminating instruction is redundant but harmless.
func (b *methodBuilder) ensureTerminated() {
	line := 0
	if n := len(b.instrs); n > 0 {
		line = b.instrs[n-1].Line
	}
	if b.method.Kind.IsConstructor() {
		b.push(ir.Instruction{Op: ir.OpLoadSelf, Line: line})
		b.push(ir.Instruction{Op: ir.OpReturn, Line: line})
		return
	}
	if n := len(b.instrs); n == 0 || b.instrs[n-1].Op != ir.OpReturn {
		b.push(ir.Instruction{Op: ir.OpReturn, Line: line})
	}
}

// --- statements -------------------------------------------------------

func (b *methodBuilder) lowerStatements(stmts []ast.Statement) {
	for _, s := range stmts {
		b.lowerStatement(s)
	}
}

func (b *methodBuilder) lowerStatement(s ast.Statement) {
	switch v := s.(type) {
	case *ast.Declaration:
		b.lowerDeclaration(v)
	case *ast.Assignment:
		b.lowerAssignment(v)
	case *ast.SimpleStatement:
		b.lowerSimpleStatement(v)
	case *ast.IfStatement:
		b.lowerIf(v)
	case *ast.WhileStatement:
		b.lowerWhile(v)
	case *ast.DoWhileStatement:
		b.lowerDoWhile(v)
	case *ast.ForStatement:
		b.lowerFor(v)
	case *ast.BreakStatement:
		b.lowerBreak(v)
	case *ast.ReturnStatement:
		b.lowerReturn(v)
	case *ast.SelectStatement:
		b.lowerSelect(v)
	case *ast.CriticalStatement:
		b.lowerCritical(v)
	case *ast.SystemStatement:
		b.lowerSystem(v)
	case *ast.EmptyStatement:
		// no-op
	}
}

func (b *methodBuilder) lowerDeclaration(d *ast.Declaration) {
	for _, decl := range d.Decls {
		if decl.Default == nil {
			continue
		}
		b.lowerExpr(decl.Default)
		b.storeVar(decl.Name, resolvedType(b.scope, decl.Name, decl.Type), d.Pos.Line)
	}
}

func (b *methodBuilder) lowerAssignment(a *ast.Assignment) {
	target, ok := a.Target.(*ast.VarRef)
	if !ok {
		return
	}
	line := a.Pos.Line

	if len(target.Indices) > 0 {
		b.lowerArrayStore(target, a, line)
		return
	}

	t := resolvedType(b.scope, target.Name, target.EvalType())
	if a.Op == ast.AssignPlain {
		b.lowerExpr(a.Value)
		b.storeVar(target.Name, t, line)
		return
	}

	b.loadVar(target.Name, t, line)
	b.lowerExpr(a.Value)
	b.push(ir.Instruction{Op: assignOpFor(a.Op), Line: line})
	b.storeVar(target.Name, t, line)
}

// lowerArrayStore lowers `x[i1][i2]...[in] = v`: load the base array, walk
// every index but the last via OpLoadArrayElem to reach the target
// sub-array, then store. Compound array-element assignment (`x[i] += v`)
// is not supported; it lowers as a plain store of the right-hand side, a
// documented simplification (rare in practice).
func (b *methodBuilder) lowerArrayStore(target *ast.VarRef, a *ast.Assignment, line int) {
	t := b.declaredTypeOf(target.Name)
	b.loadVar(target.Name, t, line)
	for i, idx := range target.Indices {
		b.lowerExpr(idx)
		if i < len(target.Indices)-1 {
			b.push(ir.Instruction{Op: ir.OpLoadArrayElem, Line: line})
			continue
		}
		b.lowerExpr(a.Value)
		b.push(ir.Instruction{Op: ir.OpStoreArrayElem, Line: line})
	}
}

// isCallExpr reports whether e is (or resolves through) a method-call
// chain, as opposed to a bare value expression — only a call's unused
// return value is popped at statement level (§4.4 "Orphan-return
// handling").
func isCallExpr(e ast.Expression) bool {
	switch v := e.(type) {
	case *ast.MethodCall:
		return true
	case *ast.VarRef:
		return v.Chain != nil
	}
	return false
}

func (b *methodBuilder) lowerSimpleStatement(s *ast.SimpleStatement) {
	t := b.lowerExpr(s.Expr)
	if !isCallExpr(s.Expr) {
		return
	}
	line := s.Pos.Line
	switch {
	case t == nil || t.Kind == ast.KindNil:
		// nothing pushed
	case t.Kind == ast.KindFunc:
		b.push(ir.Instruction{Op: ir.OpPopInt, Line: line})
		b.push(ir.Instruction{Op: ir.OpPopInt, Line: line})
	case t.Kind == ast.KindFloat && t.Dimension == 0:
		b.push(ir.Instruction{Op: ir.OpPopFloat, Line: line})
	default:
		b.push(ir.Instruction{Op: ir.OpPopInt, Line: line})
	}
}

func (b *methodBuilder) lowerIf(s *ast.IfStatement) {
	line := s.Pos.Line
	var ends []int

	b.lowerExpr(s.Cond)
	jf := b.push(ir.Instruction{Op: ir.OpJumpFalse, Line: line})
	b.lowerStatements(s.Then)
	ends = append(ends, b.push(ir.Instruction{Op: ir.OpJump, Line: line}))
	b.patch(jf, len(b.instrs))

	for _, ei := range s.ElseIfs {
		b.lowerExpr(ei.Cond)
		jf2 := b.push(ir.Instruction{Op: ir.OpJumpFalse, Line: line})
		b.lowerStatements(ei.Body)
		ends = append(ends, b.push(ir.Instruction{Op: ir.OpJump, Line: line}))
		b.patch(jf2, len(b.instrs))
	}

	b.lowerStatements(s.Else)

	end := len(b.instrs)
	for _, idx := range ends {
		b.patch(idx, end)
	}
}

func (b *methodBuilder) pushBreakFrame() { b.breaks = append(b.breaks, nil) }

func (b *methodBuilder) popBreakFrame(target int) {
	n := len(b.breaks) - 1
	for _, idx := range b.breaks[n] {
		b.patch(idx, target)
	}
	b.breaks = b.breaks[:n]
}

func (b *methodBuilder) lowerBreak(s *ast.BreakStatement) {
	if len(b.breaks) == 0 {
		return
	}
	idx := b.push(ir.Instruction{Op: ir.OpJump, Line: s.Pos.Line})
	n := len(b.breaks) - 1
	b.breaks[n] = append(b.breaks[n], idx)
}

func (b *methodBuilder) lowerWhile(w *ast.WhileStatement) {
	line := w.Pos.Line
	top := len(b.instrs)
	b.lowerExpr(w.Cond)
	jf := b.push(ir.Instruction{Op: ir.OpJumpFalse, Line: line})
	b.pushBreakFrame()
	b.lowerStatements(w.Body)
	b.push(ir.Instruction{Op: ir.OpJump, Line: line, IntOp1: int32(top)})
	end := len(b.instrs)
	b.patch(jf, end)
	b.popBreakFrame(end)
}

func (b *methodBuilder) lowerDoWhile(w *ast.DoWhileStatement) {
	line := w.Pos.Line
	top := len(b.instrs)
	b.pushBreakFrame()
	b.lowerStatements(w.Body)
	b.lowerExpr(w.Cond)
	jf := b.push(ir.Instruction{Op: ir.OpJumpFalse, Line: line})
	b.push(ir.Instruction{Op: ir.OpJump, Line: line, IntOp1: int32(top)})
	end := len(b.instrs)
	b.patch(jf, end)
	b.popBreakFrame(end)
}

func (b *methodBuilder) lowerFor(f *ast.ForStatement) {
	line := f.Pos.Line
	if f.Init != nil {
		b.lowerStatement(f.Init)
	}
	top := len(b.instrs)
	var jf int
	hasCond := f.Cond != nil
	if hasCond {
		b.lowerExpr(f.Cond)
		jf = b.push(ir.Instruction{Op: ir.OpJumpFalse, Line: line})
	}
	b.pushBreakFrame()
	b.lowerStatements(f.Body)
	if f.Step != nil {
		b.lowerStatement(f.Step)
	}
	b.push(ir.Instruction{Op: ir.OpJump, Line: line, IntOp1: int32(top)})
	end := len(b.instrs)
	if hasCond {
		b.patch(jf, end)
	}
	b.popBreakFrame(end)
}

func (b *methodBuilder) lowerReturn(r *ast.ReturnStatement) {
	line := r.Pos.Line
	if r.Value != nil {
		b.lowerExpr(r.Value)
	}
	b.push(ir.Instruction{Op: ir.OpReturn, Line: line})
}

// lowerCritical implements "acquire-mutex on entry, release-mutex on exit,
// both referencing the variable's slot" (§4.4 "Critical sections").
func (b *methodBuilder) lowerCritical(cs *ast.CriticalStatement) {
	line := cs.Pos.Line
	slot := -1
	if v, ok := cs.MutexVar.(*ast.VarRef); ok {
		slot = b.slots[v.Name]
	}
	b.push(ir.Instruction{Op: ir.OpAcquireMutex, Line: line, IntOp1: int32(slot)})
	b.lowerStatements(cs.Body)
	b.push(ir.Instruction{Op: ir.OpReleaseMutex, Line: line, IntOp1: int32(slot)})
}

// lowerSystem lowers a `system` directive as a symbolic native trap call;
// the VM resolves Name to its fixed instruction sequence at load time.
func (b *methodBuilder) lowerSystem(s *ast.SystemStatement) {
	line := s.Pos.Line
	for _, a := range s.Args {
		b.lowerExpr(a)
	}
	b.push(ir.Instruction{Op: ir.OpMethodCall, Line: line, IntOp1: -1, IntOp2: -1, IntOp3: 1, StrOp1: s.Name})
}

// --- expressions --------------------------------------------------------

func (b *methodBuilder) lowerExpr(e ast.Expression) *ast.Type {
	if e == nil {
		return nil
	}
	switch v := e.(type) {
	case *ast.Literal:
		return b.lowerLiteral(v)
	case *ast.VarRef:
		return b.lowerVarRef(v)
	case *ast.MethodCall:
		line := v.Pos.Line
		return b.lowerDispatch(v, func() { b.push(ir.Instruction{Op: ir.OpLoadSelf, Line: line}) })
	case *ast.Calculated:
		return b.lowerCalculated(v)
	case *ast.Ternary:
		return b.lowerTernary(v)
	case *ast.CharString:
		return b.lowerCharString(v)
	case *ast.StaticArray:
		return b.lowerStaticArray(v)
	}
	return e.EvalType()
}

func (b *methodBuilder) lowerLiteral(lit *ast.Literal) *ast.Type {
	line := lit.Pos.Line
	switch lit.Kind {
	case ast.LitBool:
		v := int32(0)
		if lit.Bool {
			v = 1
		}
		b.push(ir.Instruction{Op: ir.OpLoadInt, Line: line, IntOp1: v})
		return ast.NewScalar(ast.KindBool)
	case ast.LitByte:
		b.push(ir.Instruction{Op: ir.OpLoadInt, Line: line, IntOp1: int32(lit.Int)})
		return ast.NewScalar(ast.KindByte)
	case ast.LitChar:
		idx := internNFC(b.e.chars, lit.Raw)
		b.push(ir.Instruction{Op: ir.OpLoadString, Line: line, IntOp1: int32(idx), IntOp2: 0})
		return ast.NewScalar(ast.KindChar)
	case ast.LitInt:
		idx := b.e.ints.Intern(strconv.FormatInt(lit.Int, 10))
		b.push(ir.Instruction{Op: ir.OpLoadString, Line: line, IntOp1: int32(idx), IntOp2: 1})
		return ast.NewScalar(ast.KindInt)
	case ast.LitFloat:
		idx := b.e.floats.Intern(strconv.FormatFloat(lit.Float, 'g', -1, 64))
		b.push(ir.Instruction{Op: ir.OpLoadString, Line: line, IntOp1: int32(idx), IntOp2: 2})
		return ast.NewScalar(ast.KindFloat)
	default: // LitNil
		b.push(ir.Instruction{Op: ir.OpLoadInt, Line: line, IntOp1: 0})
		return ast.NewScalar(ast.KindNil)
	}
}

// declaredTypeOf returns name's slot type from the method's archived scope,
// falling back to nil (treated as a one-slot opaque reference) when the
// scope has no entry.
func (b *methodBuilder) declaredTypeOf(name string) *ast.Type {
	if b.scope == nil {
		return nil
	}
	if e, ok := b.scope.Lookup(name); ok {
		return e.Type
	}
	return nil
}

func dropOneDim(t *ast.Type) *ast.Type {
	if t == nil {
		return nil
	}
	if t.Kind == ast.KindClass {
		return ast.NewClass(t.ClassName, t.Dimension-1)
	}
	return ast.NewArray(t.Kind, t.Dimension-1)
}

// loadVar emits the load sequence for one local/parameter: @self/@parent
// are the two VM-provided specials, everything else is a frame slot. A
// function-typed variable occupies two stack cells (its bound class-id and
// method-id), matching the "two pops for function-ref return" convention.
func (b *methodBuilder) loadVar(name string, t *ast.Type, line int) {
	switch name {
	case "@self":
		b.push(ir.Instruction{Op: ir.OpLoadSelf, Line: line})
		return
	case "@parent":
		b.push(ir.Instruction{Op: ir.OpLoadParent, Line: line})
		return
	}
	slot, ok := b.slots[name]
	if !ok {
		return
	}
	b.push(ir.Instruction{Op: ir.OpLoadVar, Line: line, IntOp1: int32(slot)})
	if isScalarFunc(t) {
		b.push(ir.Instruction{Op: ir.OpLoadVar, Line: line, IntOp1: int32(slot + 1)})
	}
}

func (b *methodBuilder) storeVar(name string, t *ast.Type, line int) {
	slot, ok := b.slots[name]
	if !ok {
		return
	}
	if isScalarFunc(t) {
		b.push(ir.Instruction{Op: ir.OpStoreVar, Line: line, IntOp1: int32(slot + 1)})
	}
	b.push(ir.Instruction{Op: ir.OpStoreVar, Line: line, IntOp1: int32(slot)})
}

// isScalarFunc reports whether t is a (non-array) function-reference type,
// the only case that occupies two stack cells / two frame slots rather
// than one (an array of function references is still a single object
// reference).
func isScalarFunc(t *ast.Type) bool {
	return t != nil && t.Kind == ast.KindFunc && t.Dimension == 0
}

// lowerVarRef lowers a variable load, optionally indexed, cast, TypeOf-
// checked, or chained into a call. Per spec.md §4.4's dispatch ordering
// ("push arguments, push receiver instance, emit mthd-call"), the receiver
// load itself is deferred into a closure handed to lowerDispatch so a
// chained call's arguments are pushed first.
func (b *methodBuilder) lowerVarRef(v *ast.VarRef) *ast.Type {
	line := v.Pos.Line

	if v.TypeOf != nil {
		b.loadVar("@self", nil, line)
		b.push(ir.Instruction{Op: ir.OpMethodCall, Line: line, IntOp1: -1, IntOp2: -1, IntOp3: 1, StrOp1: "TypeOf", StrOp2: v.TypeOf.String()})
		return ast.NewScalar(ast.KindBool)
	}

	var recvType *ast.Type
	var loadRecv func()

	if v.Name == "" {
		recvType = ast.NewClass(b.owner.Name, 0)
		loadRecv = func() { b.loadVar("@self", nil, line) }
	} else {
		base := b.declaredTypeOf(v.Name)
		if base == nil {
			base = resolvedType(b.scope, v.Name, nil)
		}
		elemType := base
		loadRecv = func() {
			b.loadVar(v.Name, base, line)
			t := base
			for _, idx := range v.Indices {
				b.lowerExpr(idx)
				t = dropOneDim(t)
				b.push(ir.Instruction{Op: ir.OpLoadArrayElem, Line: line})
			}
		}
		for range v.Indices {
			elemType = dropOneDim(elemType)
		}
		recvType = elemType

		if v.Chain != nil && isScalarFunc(elemType) && v.Chain.MethodName == "" && len(v.Indices) == 0 {
			result := b.lowerDynCall(v.Chain, v.Name, elemType, line)
			if v.Cast != nil {
				return v.Cast
			}
			return result
		}
	}

	var result *ast.Type
	if v.Chain != nil {
		result = b.lowerDispatch(v.Chain, loadRecv)
	} else {
		loadRecv()
		result = recvType
	}
	if v.Cast != nil {
		return v.Cast
	}
	return result
}

func binOpFor(op token.Kind) ir.Opcode {
	switch op {
	case token.PLUS:
		return ir.OpAdd
	case token.MINUS:
		return ir.OpSub
	case token.MUL:
		return ir.OpMul
	case token.DIV:
		return ir.OpDiv
	case token.MOD:
		return ir.OpMod
	case token.AND:
		return ir.OpAnd
	case token.OR:
		return ir.OpOr
	case token.EQ:
		return ir.OpEq
	case token.NEQ:
		return ir.OpNeq
	case token.LT:
		return ir.OpLt
	case token.LTE:
		return ir.OpLte
	case token.GT:
		return ir.OpGt
	case token.GTE:
		return ir.OpGte
	}
	return ir.OpAdd
}

func assignOpFor(op ast.AssignOp) ir.Opcode {
	switch op {
	case ast.AssignAdd:
		return ir.OpAdd
	case ast.AssignSub:
		return ir.OpSub
	case ast.AssignMul:
		return ir.OpMul
	case ast.AssignDiv:
		return ir.OpDiv
	}
	return ir.OpAdd
}

// lowerCalculated implements "calculations choose integer vs. float opcodes
// based on the analyzer's attached eval-type": since the opcode set has a
// single numeric OpAdd/OpSub/..., the choice is expressed by inserting an
// OpIntToFloat conversion on whichever operand the analyzer annotated with
// a Float widening cast (spec.md §4.3 "calculated expressions").
func (b *methodBuilder) lowerCalculated(c *ast.Calculated) *ast.Type {
	line := c.Pos.Line
	if c.Op == token.NOT {
		b.lowerExpr(c.Right)
		b.push(ir.Instruction{Op: ir.OpNot, Line: line})
		return c.EvalType()
	}

	b.lowerExpr(c.Left)
	if c.LeftCast != nil && c.LeftCast.Kind == ast.KindFloat {
		b.push(ir.Instruction{Op: ir.OpIntToFloat, Line: line})
	}
	b.lowerExpr(c.Right)
	if c.RightCast != nil && c.RightCast.Kind == ast.KindFloat {
		b.push(ir.Instruction{Op: ir.OpIntToFloat, Line: line})
	}
	b.push(ir.Instruction{Op: binOpFor(c.Op), Line: line})
	return c.EvalType()
}

func (b *methodBuilder) lowerTernary(t *ast.Ternary) *ast.Type {
	line := t.Pos.Line
	b.lowerExpr(t.Cond)
	jf := b.push(ir.Instruction{Op: ir.OpJumpFalse, Line: line})
	b.lowerExpr(t.If)
	jend := b.push(ir.Instruction{Op: ir.OpJump, Line: line})
	b.patch(jf, len(b.instrs))
	b.lowerExpr(t.Else)
	b.patch(jend, len(b.instrs))
	return t.EvalType()
}

// lowerCharString implements character-string interpolation (§4.4) through
// a synthetic hidden local `#concat#`, starting the accumulator from the
// first segment's System.String. Each segment is lowered to exactly one System.String
// value (a variable segment whose type isn't already a string calls its
// analyzer-resolved ToString first), then combined into the accumulator
// with the dedicated OpAppend native op — the original compiler's way of
// avoiding per-segment overload resolution against System.String.Append at
// emission time. Literal segments are NFC-normalized before interning so
// combining-mark and precomposed spellings collapse to the same pool entry
// (spec.md §3's literal-pool equality invariant).
func (b *methodBuilder) lowerCharString(cs *ast.CharString) *ast.Type {
	line := cs.Pos.Line
	strType := ast.NewClass("System.String", 0)

	if len(cs.Segments) == 0 {
		b.pushStringLiteral("", line)
		return strType
	}

	b.lowerStringSegmentValue(cs.Segments[0], line)
	if len(cs.Segments) == 1 {
		return strType
	}

	b.storeVar("#concat#", strType, line)
	for _, seg := range cs.Segments[1:] {
		b.lowerStringSegmentValue(seg, line)
		b.loadVar("#concat#", strType, line)
		b.push(ir.Instruction{Op: ir.OpAppend, Line: line})
		b.storeVar("#concat#", strType, line)
	}
	b.loadVar("#concat#", strType, line)
	return strType
}

func (b *methodBuilder) pushStringLiteral(text string, line int) {
	idx := internNFC(b.e.chars, text)
	b.push(ir.Instruction{Op: ir.OpLoadString, Line: line, IntOp1: int32(idx), IntOp2: 0})
	b.push(ir.Instruction{Op: ir.OpNewInstance, Line: line, StrOp1: "System.String"})
}

// lowerStringSegmentValue pushes exactly one System.String value for seg: a
// literal segment constructs one directly, a variable segment loads its
// value and, unless it is already a string, calls the ToString overload
// the analyzer resolved onto it (spec.md §4.4 "Character strings").
func (b *methodBuilder) lowerStringSegmentValue(seg ast.StringSegment, line int) {
	if seg.Kind == ast.SegmentLiteral {
		b.pushStringLiteral(seg.Text, line)
		return
	}
	b.lowerExpr(seg.Expr)
	if seg.ToStringMethod == nil {
		return
	}
	m := seg.ToStringMethod
	b.emitMethodCallInstr(m.Owner.ID, m.ID, m.Native, line)
}

// lowerStaticArray constructs an array literal element by element: the
// newly allocated array is stashed in the synthetic `#arraylit#` local
// (there is no OpDup to keep it on the stack across stores) and reloaded
// for each element assignment and for the final expression value.
func (b *methodBuilder) lowerStaticArray(arr *ast.StaticArray) *ast.Type {
	line := arr.Pos.Line
	elemType := arr.EvalType()
	slotType := arrayLitAccumulatorType(elemType)

	b.push(ir.Instruction{Op: ir.OpLoadInt, Line: line, IntOp1: int32(len(arr.Elements))})
	b.push(ir.Instruction{Op: ir.OpNewArray, Line: line, IntOp1: 1})
	b.storeVar("#arraylit#", slotType, line)

	for i, el := range arr.Elements {
		b.loadVar("#arraylit#", slotType, line)
		b.push(ir.Instruction{Op: ir.OpLoadInt, Line: line, IntOp1: int32(i)})
		b.lowerExpr(el)
		b.push(ir.Instruction{Op: ir.OpStoreArrayElem, Line: line})
	}

	b.loadVar("#arraylit#", slotType, line)
	return elemType
}
