package emit

import (
	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/ir"
	"github.com/sgzwiz/oblc/internal/linker"
)

// lowerDispatch lowers one call-site node and its chain, implementing
// spec.md §4.4's three dispatch shapes. loadRecv, when non-nil, emits the
// receiver-loading code for a plain instance call; it runs AFTER the call's
// own arguments are pushed ("push arguments, push receiver instance, emit
// mthd-call"). A nil loadRecv on a CallMethod node means this call is a
// chain continuation: its receiver is already on the stack, left there by
// the previous call in the chain (a documented simplification: strict
// arguments-then-receiver ordering is only guaranteed for a chain's first
// call, not its continuations).
func (b *methodBuilder) lowerDispatch(call *ast.MethodCall, loadRecv func()) *ast.Type {
	line := call.Pos.Line

	switch call.Type {
	case ast.CallNewArray:
		return b.lowerNewArray(call, line)
	case ast.CallEnum:
		id := int32(0)
		if call.EnumItem != nil {
			id = int32(call.EnumItem.ID)
		}
		b.push(ir.Instruction{Op: ir.OpLoadInt, Line: line, IntOp1: id})
		return b.chainNext(call, ast.NewScalar(ast.KindInt))
	case ast.CallFunctionDef:
		classID, methodID, _ := b.functionRefTarget(call)
		b.push(ir.Instruction{Op: ir.OpLoadInt, Line: line, IntOp1: int32(classID)})
		b.push(ir.Instruction{Op: ir.OpLoadInt, Line: line, IntOp1: int32(methodID)})
		return b.chainNext(call, ast.NewFunc(call.FuncParamTypes, call.FuncReturnType))
	case ast.CallNewInstance:
		return b.lowerNewInstance(call, line)
	case ast.CallParent:
		return b.lowerCall(call, line, func() { b.loadVar("@parent", nil, line) })
	default:
		return b.lowerCall(call, line, loadRecv)
	}
}

func (b *methodBuilder) chainNext(call *ast.MethodCall, result *ast.Type) *ast.Type {
	if call.Chain == nil {
		return result
	}
	return b.lowerDispatch(call.Chain, nil)
}

// pushArgs pushes every calling parameter, widening an Int argument to
// Float when ArgCasts records that the chosen overload expects Float there
// (spec.md §4.3 step 5, §4.4 "Expression lowering").
func (b *methodBuilder) pushArgs(call *ast.MethodCall) {
	line := call.Pos.Line
	for i, p := range call.CallingParams {
		b.lowerExpr(p)
		if i < len(call.ArgCasts) && call.ArgCasts[i] != nil && call.ArgCasts[i].Kind == ast.KindFloat {
			b.push(ir.Instruction{Op: ir.OpIntToFloat, Line: line})
		}
	}
}

func (b *methodBuilder) lowerNewInstance(call *ast.MethodCall, line int) *ast.Type {
	b.pushArgs(call)
	className := call.MethodName
	b.push(ir.Instruction{Op: ir.OpNewInstance, Line: line, StrOp1: className})
	result := ast.NewClass(className, 0)

	switch {
	case call.ResolvedMethod != nil:
		m := call.ResolvedMethod
		b.emitMethodCallInstr(m.Owner.ID, m.ID, m.Native, line)
	case call.ResolvedLibraryMethod != nil:
		if lm, ok := call.ResolvedLibraryMethod.(*linker.Method); ok {
			b.emitLibraryCallInstr(lm, line)
		}
	}
	return b.chainNext(call, result)
}

func (b *methodBuilder) lowerNewArray(call *ast.MethodCall, line int) *ast.Type {
	for _, p := range call.CallingParams {
		b.lowerExpr(p)
	}
	dim := len(call.CallingParams)
	if dim == 0 {
		dim = 1
	}
	b.push(ir.Instruction{Op: ir.OpNewArray, Line: line, IntOp1: int32(dim), StrOp1: call.MethodName})
	return b.chainNext(call, ast.NewClass(call.MethodName, dim))
}

func (b *methodBuilder) lowerCall(call *ast.MethodCall, line int, loadRecv func()) *ast.Type {
	b.pushArgs(call)
	if loadRecv != nil {
		loadRecv()
	}

	var result *ast.Type
	switch {
	case call.ResolvedMethod != nil:
		m := call.ResolvedMethod
		b.emitMethodCallInstr(m.Owner.ID, m.ID, m.Native, line)
		result = m.ReturnType
	case call.ResolvedLibraryMethod != nil:
		if lm, ok := call.ResolvedLibraryMethod.(*linker.Method); ok {
			b.emitLibraryCallInstr(lm, line)
			result = lm.ReturnType
		}
	}
	if result == nil {
		result = ast.NewScalar(ast.KindNil)
	}
	return b.chainNext(call, result)
}

// emitMethodCallInstr is the "static method call" dispatch shape: arguments
// and receiver are already on the stack; this just appends the resolved
// class-id/method-id/native-flag operand record.
func (b *methodBuilder) emitMethodCallInstr(classID, methodID int, native bool, line int) {
	nativeFlag := int32(0)
	if native {
		nativeFlag = 1
	}
	b.push(ir.Instruction{Op: ir.OpMethodCall, Line: line, IntOp1: int32(classID), IntOp2: int32(methodID), IntOp3: nativeFlag})
}

// emitLibraryCallInstr is the "library call" dispatch shape: symbolic
// (class name, method name) operands when compiling into a library itself,
// replaced by this emission's resolved class-id/method-id when compiling
// into a final executable (spec.md §4.4 "Dispatch").
func (b *methodBuilder) emitLibraryCallInstr(lm *linker.Method, line int) {
	native := int32(0)
	if lm.IsNative() {
		native = 1
	}
	if b.e.Flavor == ir.FlavorLibrary {
		b.push(ir.Instruction{Op: ir.OpMethodCall, Line: line, IntOp3: native, StrOp1: lm.Owner.RefName(), StrOp2: lm.EncodedName()})
		return
	}
	b.push(ir.Instruction{Op: ir.OpMethodCall, Line: line, IntOp1: int32(b.e.classID[lm.Owner]), IntOp2: int32(lm.ID()), IntOp3: native})
}

// functionRefTarget resolves the (class-id, method-id) pair a
// function-reference literal captures (spec.md §4.4's "Dynamic function
// call" receiver), per the "two pops for function-ref return" convention:
// a function reference is modeled as that pair, pushed and popped together.
func (b *methodBuilder) functionRefTarget(call *ast.MethodCall) (classID, methodID int, ok bool) {
	switch {
	case call.ResolvedMethod != nil:
		return call.ResolvedMethod.Owner.ID, call.ResolvedMethod.ID, true
	case call.ResolvedLibraryMethod != nil:
		if lm, ok := call.ResolvedLibraryMethod.(*linker.Method); ok {
			return b.e.classID[lm.Owner], lm.ID(), true
		}
	}
	return -1, -1, false
}

// lowerDynCall lowers a call through a function-typed variable: push
// arguments, load the function-ref variable (its two-cell class-id/
// method-id pair), emit dyn-mthd-call(param-count, return-kind). funcType
// is the variable's own declared/narrowed type, not its EvalType() (which
// the analyzer has already overwritten with the call's return type).
func (b *methodBuilder) lowerDynCall(call *ast.MethodCall, funcVarName string, funcType *ast.Type, line int) *ast.Type {
	b.pushArgs(call)
	b.loadVar(funcVarName, funcType, line)

	retKind := int32(0)
	if funcType != nil && funcType.Kind == ast.KindFunc && funcType.Return != nil {
		retKind = int32(paramKindOf(funcType.Return))
	}
	b.push(ir.Instruction{Op: ir.OpDynMethodCall, Line: line, IntOp1: int32(len(call.CallingParams)), IntOp2: retKind})

	result := ast.NewScalar(ast.KindNil)
	if funcType != nil && funcType.Kind == ast.KindFunc {
		result = funcType.Return
	}
	return b.chainNext(call, result)
}
