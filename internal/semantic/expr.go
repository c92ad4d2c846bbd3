package semantic

import (
	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/diag"
	"github.com/sgzwiz/oblc/internal/linker"
)

// wrapperClassName maps a basic scalar/array type to the built-in library
// class that owns its methods (spec.md §4.3 "Method-call resolution" step
// 1: "basic types route to built-in wrapper classes; arrays route to the
// base-array class").
func wrapperClassName(t *ast.Type) string {
	if t.Dimension > 0 {
		return "System.Array"
	}
	switch t.Kind {
	case ast.KindBool:
		return "System.Bool"
	case ast.KindByte:
		return "System.Byte"
	case ast.KindChar:
		return "System.Char"
	case ast.KindInt:
		return "System.Int"
	case ast.KindFloat:
		return "System.Float"
	}
	return ""
}

// analyzeExpression resolves e's evaluation type, decorating the node in
// place, and returns that type (spec.md §4.3 "Expression typing").
func (a *Analyzer) analyzeExpression(e ast.Expression) *ast.Type {
	if e == nil {
		return nil
	}
	var t *ast.Type
	switch v := e.(type) {
	case *ast.Literal:
		t = a.analyzeLiteral(v)
	case *ast.VarRef:
		t = a.analyzeVarRef(v)
	case *ast.Calculated:
		t = a.analyzeCalculated(v)
	case *ast.Ternary:
		t = a.analyzeTernary(v)
	case *ast.CharString:
		t = a.analyzeCharString(v)
	case *ast.StaticArray:
		t = a.analyzeStaticArray(v)
	case *ast.MethodCall:
		t = a.resolveMethodCall(v, nil)
	}
	e.SetEvalType(t)
	return t
}

func (a *Analyzer) analyzeLiteral(lit *ast.Literal) *ast.Type {
	switch lit.Kind {
	case ast.LitBool:
		return ast.NewScalar(ast.KindBool)
	case ast.LitByte:
		return ast.NewScalar(ast.KindByte)
	case ast.LitChar:
		return ast.NewScalar(ast.KindChar)
	case ast.LitInt:
		return ast.NewScalar(ast.KindInt)
	case ast.LitFloat:
		return ast.NewScalar(ast.KindFloat)
	default:
		return ast.NewScalar(ast.KindNil)
	}
}

func dropDimension(t *ast.Type) *ast.Type {
	if t.Kind == ast.KindClass {
		return ast.NewClass(t.ClassName, t.Dimension-1)
	}
	return ast.NewArray(t.Kind, t.Dimension-1)
}

// analyzeVarRef resolves a variable/self/parent load, applies indices, an
// `As(T)` cast, and a chained method call in turn (spec.md §3's VarRef
// shape, §4.3 "Expression typing").
func (a *Analyzer) analyzeVarRef(v *ast.VarRef) *ast.Type {
	if v.TypeOf != nil {
		if v.TypeOf.Kind != ast.KindClass {
			a.Diags.Add(v.Pos, diag.TypeError, msgTypeOfNotClass)
		}
		return ast.NewScalar(ast.KindBool)
	}

	var cur *ast.Type
	if v.Name != "" {
		if entry, ok := a.Syms.Lookup(v.Name); ok {
			v.ResolvedEntry = entry
			entry.Refs = append(entry.Refs, v)
			cur = entry.Type
		} else if ref, ok := a.findClass(v.Name); ok {
			cur = ast.NewClass(ref.RefName(), 0)
		} else {
			a.Diags.Add(v.Pos, diag.NameResolution, msgUndefinedClass)
			cur = ast.NewScalar(ast.KindNil)
		}
	} else if entry, ok := a.Syms.Lookup("@self"); ok {
		cur = entry.Type
	} else {
		cur = ast.NewScalar(ast.KindNil)
	}

	for _, idx := range v.Indices {
		it := a.analyzeExpression(idx)
		if it == nil || !it.IsNumeric() || it.Kind == ast.KindFloat {
			a.Diags.Add(idx.Position(), diag.TypeError, msgInvalidArrayIndexType)
		}
		if cur == nil || cur.Dimension <= 0 {
			a.Diags.Add(v.Pos, diag.TypeError, msgDimensionMismatch)
			continue
		}
		cur = dropDimension(cur)
	}

	if v.Cast != nil {
		if !a.castAllowed(cur, v.Cast) {
			a.Diags.Add(v.Pos, diag.TypeError, msgCastUninitialized)
		}
		cur = v.Cast
	}

	if v.Chain != nil {
		cur = a.resolveMethodCall(v.Chain, cur)
	}

	return cur
}

// selectOverload implements spec.md §4.3 step 3: score every candidate
// against the call-site argument types, reject any with a -1, and return
// the minimal-sum match (the first encountered on a tie, which favors the
// declaration order a parser preserves exact matches in).
func (a *Analyzer) selectOverload(candidates []ast.MethodRef, args []*ast.Type) ast.MethodRef {
	var best ast.MethodRef
	bestScore := -1
	for _, cand := range candidates {
		params := cand.ParamTypeList()
		if len(params) != len(args) {
			continue
		}
		sum := 0
		ok := true
		for i, p := range params {
			s := a.scoreArg(p, args[i])
			if s < 0 {
				ok = false
				break
			}
			sum += s
		}
		if !ok {
			continue
		}
		if best == nil || sum < bestScore {
			best, bestScore = cand, sum
		}
	}
	return best
}

func (a *Analyzer) bindResolvedMethod(call *ast.MethodCall, chosen ast.MethodRef) {
	switch m := chosen.(type) {
	case *ast.Method:
		call.ResolvedMethod = m
	case *linker.Method:
		call.ResolvedLibraryMethod = m
	}
}

// resolveMethodCall implements spec.md §4.3's method-call resolution
// algorithm over call, with receiver the already-resolved type call is
// chained off (nil for a bare, self-receiver call).
func (a *Analyzer) resolveMethodCall(call *ast.MethodCall, receiver *ast.Type) *ast.Type {
	args := make([]*ast.Type, len(call.CallingParams))
	for i, p := range call.CallingParams {
		args[i] = a.analyzeExpression(p)
	}

	switch call.Type {
	case ast.CallNewInstance:
		return a.resolveNewInstance(call, args)
	case ast.CallNewArray:
		return a.resolveNewArray(call)
	case ast.CallParent:
		return a.resolveParentCall(call, args)
	case ast.CallEnum:
		return ast.NewScalar(ast.KindInt)
	case ast.CallFunctionDef:
		return ast.NewFunc(call.FuncParamTypes, call.FuncReturnType)
	default:
		return a.resolveInstanceCall(call, receiver, args)
	}
}

func (a *Analyzer) resolveNewInstance(call *ast.MethodCall, args []*ast.Type) *ast.Type {
	ref, ok := a.findClass(call.MethodName)
	if !ok {
		a.Diags.Add(call.Pos, diag.NameResolution, msgUndefinedClass)
		return ast.NewScalar(ast.KindNil)
	}
	if ref.Virtual() {
		a.Diags.Add(call.Pos, diag.TypeError, msgCannotInstantiateVirt)
	}
	if chosen := a.selectOverload(ref.FindMethods("New"), args); chosen != nil {
		a.bindResolvedMethod(call, chosen)
	} else if len(ref.FindMethods("New")) > 0 {
		a.Diags.Add(call.Pos, diag.Overload, msgNoOverloadFound, call.MethodName)
	}
	result := ast.NewClass(ref.RefName(), 0)
	if call.Chain != nil {
		return a.resolveMethodCall(call.Chain, result)
	}
	return result
}

func (a *Analyzer) resolveNewArray(call *ast.MethodCall) *ast.Type {
	for _, p := range call.CallingParams {
		t := a.analyzeExpression(p)
		if t == nil || !t.IsNumeric() || t.Kind == ast.KindFloat {
			a.Diags.Add(p.Position(), diag.TypeError, msgInvalidArrayDecl)
		}
	}
	dim := len(call.CallingParams)
	if dim == 0 {
		dim = 1
	}
	var result *ast.Type
	if ref, ok := a.findClass(call.MethodName); ok {
		result = ast.NewClass(ref.RefName(), dim)
	} else {
		result = ast.NewClass(call.MethodName, dim)
	}
	if call.Chain != nil {
		return a.resolveMethodCall(call.Chain, result)
	}
	return result
}

func (a *Analyzer) resolveParentCall(call *ast.MethodCall, args []*ast.Type) *ast.Type {
	if call.OriginalClass == nil {
		a.Diags.Add(call.Pos, diag.Inheritance, msgClassHasNoParent)
		return ast.NewScalar(ast.KindNil)
	}
	parentRef := call.OriginalClass.RefParent()
	if parentRef == nil {
		a.Diags.Add(call.Pos, diag.Inheritance, msgClassHasNoParent)
		return ast.NewScalar(ast.KindNil)
	}
	candidates := parentRef.FindMethods(call.MethodName)
	chosen := a.selectOverload(candidates, args)
	if chosen == nil {
		a.Diags.Add(call.Pos, diag.Overload, msgNoOverloadFound, call.MethodName)
		return ast.NewScalar(ast.KindNil)
	}
	a.bindResolvedMethod(call, chosen)
	result := chosen.RetType()
	if call.Chain != nil {
		return a.resolveMethodCall(call.Chain, result)
	}
	return result
}

// resolveInstanceCall implements step 1 (receiver-type routing, including
// the built-in wrapper classes) and step 2 (walking to the parent class
// when the receiver's own class carries no candidate).
func (a *Analyzer) resolveInstanceCall(call *ast.MethodCall, receiver *ast.Type, args []*ast.Type) *ast.Type {
	if receiver == nil {
		if entry, ok := a.Syms.Lookup("@self"); ok {
			receiver = entry.Type
		}
	}
	if receiver == nil {
		a.Diags.Add(call.Pos, diag.NameResolution, msgNoOverloadFound, call.MethodName)
		return ast.NewScalar(ast.KindNil)
	}

	className := receiver.ClassName
	if receiver.Kind != ast.KindClass || receiver.Dimension > 0 {
		className = wrapperClassName(receiver)
	}
	ref, ok := a.findClass(className)
	if !ok {
		a.Diags.Add(call.Pos, diag.NameResolution, msgUndefinedClass)
		return ast.NewScalar(ast.KindNil)
	}

	var candidates []ast.MethodRef
	for cur := ref; cur != nil; cur = cur.RefParent() {
		candidates = cur.FindMethods(call.MethodName)
		if len(candidates) > 0 {
			break
		}
	}

	chosen := a.selectOverload(candidates, args)
	if chosen == nil {
		a.Diags.Add(call.Pos, diag.Overload, msgNoOverloadFound, call.MethodName)
		return ast.NewScalar(ast.KindNil)
	}
	a.bindResolvedMethod(call, chosen)

	params := chosen.ParamTypeList()
	call.ArgCasts = make([]*ast.Type, len(args))
	for i, declared := range params {
		if !declared.Equals(args[i]) {
			call.ArgCasts[i] = declared
		}
	}

	result := chosen.RetType()
	if call.Chain != nil {
		return a.resolveMethodCall(call.Chain, result)
	}
	return result
}

// analyzeCalculated implements spec.md §4.3 "calculated expressions":
// resolve both operands, reject an incompatible pairing, and install an
// implicit widening cast on the narrower side when one is numeric-widening
// the other.
func (a *Analyzer) analyzeCalculated(c *ast.Calculated) *ast.Type {
	lt := a.analyzeExpression(c.Left)
	rt := a.analyzeExpression(c.Right)
	if lt == nil || rt == nil {
		return ast.NewScalar(ast.KindNil)
	}

	if c.Op.IsComparison() {
		if lt.IsNumeric() && rt.IsNumeric() && numericRank(lt.Kind) != numericRank(rt.Kind) {
			if numericRank(lt.Kind) < numericRank(rt.Kind) {
				c.LeftCast = rt
			} else {
				c.RightCast = lt
			}
		}
		return ast.NewScalar(ast.KindBool)
	}

	if lt.IsNumeric() && rt.IsNumeric() {
		if numericRank(lt.Kind) >= numericRank(rt.Kind) {
			if numericRank(lt.Kind) != numericRank(rt.Kind) {
				c.RightCast = lt
			}
			return lt
		}
		c.LeftCast = rt
		return rt
	}
	if lt.Kind == ast.KindBool && rt.Kind == ast.KindBool {
		return ast.NewScalar(ast.KindBool)
	}
	a.Diags.Add(c.Pos, diag.TypeError, msgInvalidClassOrAssign)
	return lt
}

// analyzeTernary unifies the if/else branch types, per spec.md §3's Ternary
// node; a Bool condition is required.
func (a *Analyzer) analyzeTernary(t *ast.Ternary) *ast.Type {
	a.checkBoolCond(t.Cond)
	ifType := a.analyzeExpression(t.If)
	elseType := a.analyzeExpression(t.Else)
	if ifType != nil && elseType != nil && ifType.Equals(elseType) {
		return ifType
	}
	if ifType != nil && ifType.IsNumeric() && elseType != nil && elseType.IsNumeric() {
		if numericRank(ifType.Kind) >= numericRank(elseType.Kind) {
			return ifType
		}
		return elseType
	}
	return ifType
}

// analyzeCharString resolves every interpolated segment's expression and
// the ToString method of its class or wrapper class (spec.md §4.4
// "Character strings"); the result is always the string class.
func (a *Analyzer) analyzeCharString(cs *ast.CharString) *ast.Type {
	for i := range cs.Segments {
		seg := &cs.Segments[i]
		if seg.Kind != ast.SegmentVariable {
			continue
		}
		t := a.analyzeExpression(seg.Expr)
		if t == nil {
			continue
		}
		toStringClass := t.ClassName
		if t.Kind != ast.KindClass || t.Dimension > 0 {
			toStringClass = wrapperClassName(t)
		}
		if ref, ok := a.findClass(toStringClass); ok {
			if ms := ref.FindMethods("ToString"); len(ms) > 0 {
				if pm, ok := ms[0].(*ast.Method); ok {
					seg.ToStringMethod = pm
				}
			}
		}
	}
	return ast.NewClass("System.String", 0)
}

// analyzeStaticArray resolves every element, requiring a single consistent
// element type, and returns an array one dimension up from it (spec.md §3's
// StaticArray node, invariant "array element types must match").
func (a *Analyzer) analyzeStaticArray(arr *ast.StaticArray) *ast.Type {
	var elem *ast.Type
	for _, e := range arr.Elements {
		t := a.analyzeExpression(e)
		if t == nil {
			continue
		}
		if elem == nil {
			elem = t
			continue
		}
		if !elem.Equals(t) && !a.castAllowed(t, elem) {
			a.Diags.Add(e.Position(), diag.TypeError, msgArrayElemMismatch)
		}
	}
	if elem == nil {
		elem = ast.NewScalar(ast.KindNil)
	}
	return dimensionUp(elem)
}

func dimensionUp(t *ast.Type) *ast.Type {
	if t.Kind == ast.KindClass {
		return ast.NewClass(t.ClassName, t.Dimension+1)
	}
	return ast.NewArray(t.Kind, t.Dimension+1)
}
