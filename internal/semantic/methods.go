package semantic

import (
	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/diag"
	"github.com/sgzwiz/oblc/internal/token"
)

// isEntryPointShape reports whether decls match the canonical entry-point
// signature of spec.md §4.3 step 9: a single String-array parameter.
func isEntryPointShape(decls []*ast.ParamDecl) bool {
	if len(decls) != 1 {
		return false
	}
	t := decls[0].Type
	return t.Kind == ast.KindClass && t.ClassName == "System.String" && t.Dimension == 1
}

// analyzeMethod walks a method's declarations, then its statements if the
// method is non-virtual, checking the structural rules of spec.md §4.3
// "Method analysis" and resolving every statement/expression's evaluation
// type.
func (a *Analyzer) analyzeMethod(c *ast.Class, m *ast.Method) {
	a.Syms.NewParseScope()
	for _, d := range m.Declarations {
		a.Syms.AddEntry(d.Name, d.Type, false, true, false)
	}

	if m.Static && m.SimpleName == "Main" && isEntryPointShape(m.Declarations) {
		a.recordMain(c, m)
	}
	if m.Static && m.SimpleName == "Request" && isEntryPointShape(m.Declarations) {
		a.recordRequest(c, m)
	}

	if !m.Virtual {
		a.loopDepth = 0
		if m.Kind.IsConstructor() && c.ParentProgram != nil && c.ParentName != RootClassName && !c.IsInterface {
			if !beginsWithParentCall(m.Statements) {
				a.Diags.Add(m.Pos, diag.Syntactic, msgParentCallRequired)
			}
		}

		for _, s := range m.Statements {
			a.analyzeStatement(s)
		}

		if !a.compilingSystemBundle && !m.Function && !m.Kind.IsConstructor() &&
			!(m.ReturnType.Kind == ast.KindNil && m.ReturnType.Dimension == 0) &&
			!endsWithReturn(m.Statements) {
			a.Diags.Add(m.Pos, diag.TypeError, msgMissingReturn)
		}
	}

	m.Scope = a.Syms.PreviousParseScope(m.EncodedName)
}

func beginsWithParentCall(stmts []ast.Statement) bool {
	if len(stmts) == 0 {
		return false
	}
	s, ok := stmts[0].(*ast.SimpleStatement)
	if !ok {
		return false
	}
	call, ok := s.Expr.(*ast.MethodCall)
	return ok && call.Type == ast.CallParent
}

func endsWithReturn(stmts []ast.Statement) bool {
	if len(stmts) == 0 {
		return false
	}
	_, ok := stmts[len(stmts)-1].(*ast.ReturnStatement)
	return ok
}

func (a *Analyzer) recordMain(c *ast.Class, m *ast.Method) {
	if a.Prog.IsLibrary || a.Prog.IsWeb {
		a.Diags.Add(m.Pos, diag.TypeError, msgMainInLibraryOrWeb)
		return
	}
	if a.mainMethod != nil {
		a.Diags.Add(m.Pos, diag.TypeError, msgMainAlreadyDefined)
		return
	}
	a.mainMethod, a.mainClass = m, c
}

func (a *Analyzer) recordRequest(c *ast.Class, m *ast.Method) {
	if !a.Prog.IsWeb {
		return
	}
	if a.requestMethod != nil {
		a.Diags.Add(m.Pos, diag.TypeError, msgRequestAlreadyDefined)
		return
	}
	a.requestMethod, a.requestClass = m, c
}

// checkEntryPoint confirms the required entry point exists for the target
// artifact flavor (spec.md §4.3 step 9, invariant 5).
func (a *Analyzer) checkEntryPoint() {
	switch {
	case a.Prog.IsWeb:
		if a.requestMethod == nil {
			a.Diags.Add(token.Position{}, diag.TypeError, msgRequestNotDefined)
			return
		}
		a.Prog.EntryClass, a.Prog.EntryMethod = a.requestClass, a.requestMethod
	case a.Prog.IsLibrary:
		// libraries carry no entry point.
	default:
		if a.mainMethod == nil {
			a.Diags.Add(token.Position{}, diag.TypeError, msgMainNotDefined)
			return
		}
		a.Prog.EntryClass, a.Prog.EntryMethod = a.mainClass, a.mainMethod
	}
}
