package emit

import (
	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/ir"
	"github.com/sgzwiz/oblc/internal/mangle"
	"github.com/sgzwiz/oblc/internal/symtab"
	"github.com/sgzwiz/oblc/internal/token"
)

// emitMethod implements spec.md §4.4's four per-method emission steps.
func (e *Emitter) emitMethod(owner *ast.Class, m *ast.Method) (*ir.Method, error) {
	fl := computeFrame(m)
	if fl.size > ir.DefaultFrameBudget {
		return nil, frameOverflowErr(m.ParsedName, fl.size, ir.DefaultFrameBudget)
	}

	scope, _ := m.Scope.(*symtab.Scope)
	b := &methodBuilder{e: e, method: m, owner: owner, slots: fl.slots, scope: scope, usesCat: fl.usesCat}
	b.lowerParamPrelude()
	b.lowerStatements(m.Statements)
	b.ensureTerminated()

	return &ir.Method{
		ID:            m.ID,
		Name:          m.ParsedName,
		EncodedName:   m.EncodedName,
		EncodedReturn: mangle.EncodeType(m.ReturnType),
		Kind:          int(m.Kind),
		IsStatic:      m.Static,
		IsVirtual:     m.Virtual,
		HasAndOr:      hasAndOr(m.Statements),
		IsNative:      m.Native,
		IsFunction:    m.Function,
		ParamCount:    paramCount(m),
		FrameSize:     fl.size,
		Declarations:  fl.decls,
		Instructions:  b.instrs,
	}, nil
}

// hasAndOr reports whether m's body contains a short-circuiting `&&`/`||`
// calculated expression, a flag the original VM uses to pick its
// conditional-jump evaluation strategy rather than always pushing both
// operands (ir.Method.HasAndOr doc comment).
func hasAndOr(stmts []ast.Statement) bool {
	found := false
	walkExpressionsIn(stmts, func(expr ast.Expression) {
		if c, ok := expr.(*ast.Calculated); ok {
			switch c.Op {
			case token.AND, token.OR:
				found = true
			}
		}
	})
	return found
}
