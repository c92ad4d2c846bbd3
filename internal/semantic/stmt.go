package semantic

import (
	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/diag"
	"github.com/sgzwiz/oblc/internal/symtab"
)

// mutexClassName is the concurrency library's mutex class; a critical
// section's guard variable must resolve to this type (spec.md §4.3
// "Statement-level checks").
const mutexClassName = "System.Concurrency.Mutex"

// analyzeStatement dispatches on the concrete statement kind, implementing
// spec.md §4.3 "Statement-level checks".
func (a *Analyzer) analyzeStatement(s ast.Statement) {
	switch v := s.(type) {
	case *ast.Declaration:
		a.analyzeDeclaration(v)
	case *ast.Assignment:
		a.analyzeAssignment(v)
	case *ast.SimpleStatement:
		a.analyzeExpression(v.Expr)
	case *ast.IfStatement:
		a.analyzeIf(v)
	case *ast.WhileStatement:
		a.analyzeWhile(v)
	case *ast.DoWhileStatement:
		a.analyzeDoWhile(v)
	case *ast.ForStatement:
		a.analyzeFor(v)
	case *ast.BreakStatement:
		if a.loopDepth <= 0 {
			a.Diags.Add(v.Pos, diag.Syntactic, msgBreakOutsideLoop)
		}
	case *ast.ReturnStatement:
		if v.Value != nil {
			a.analyzeExpression(v.Value)
		}
	case *ast.SelectStatement:
		a.analyzeSelect(v)
	case *ast.CriticalStatement:
		a.analyzeCritical(v)
	case *ast.SystemStatement:
		for _, arg := range v.Args {
			a.analyzeExpression(arg)
		}
	case *ast.EmptyStatement:
		// nothing to check.
	}
}

func (a *Analyzer) analyzeStatements(stmts []ast.Statement) {
	for _, s := range stmts {
		a.analyzeStatement(s)
	}
}

func (a *Analyzer) analyzeDeclaration(d *ast.Declaration) {
	for _, decl := range d.Decls {
		if decl.Default != nil {
			a.analyzeExpression(decl.Default)
		}
		a.Syms.AddEntry(decl.Name, decl.Type, false, true, false)
	}
}

// analyzeAssignment resolves both sides, then narrows the target's symbol-
// table entry the first time a Var-typed local is assigned (spec.md
// invariant 3, §4.2).
func (a *Analyzer) analyzeAssignment(asn *ast.Assignment) {
	targetType := a.analyzeExpression(asn.Target)
	valueType := a.analyzeExpression(asn.Value)

	if ref, ok := asn.Target.(*ast.VarRef); ok {
		if entry, ok := ref.ResolvedEntry.(*symtab.Entry); ok && entry.Type.Kind == ast.KindVar {
			entry.Narrow(valueType)
			return
		}
	}

	if targetType != nil && valueType != nil && !targetType.Equals(valueType) && !a.castAllowed(valueType, targetType) {
		a.Diags.Add(asn.Pos, diag.TypeError, msgInvalidClassOrAssign)
	}
}

func (a *Analyzer) checkBoolCond(cond ast.Expression) {
	t := a.analyzeExpression(cond)
	if t == nil || t.Kind != ast.KindBool || t.Dimension != 0 {
		a.Diags.Add(cond.Position(), diag.TypeError, msgExpectedBoolExpr)
	}
}

func (a *Analyzer) analyzeIf(v *ast.IfStatement) {
	a.checkBoolCond(v.Cond)
	a.analyzeStatements(v.Then)
	for _, ei := range v.ElseIfs {
		a.checkBoolCond(ei.Cond)
		a.analyzeStatements(ei.Body)
	}
	a.analyzeStatements(v.Else)
}

func (a *Analyzer) analyzeWhile(v *ast.WhileStatement) {
	a.checkBoolCond(v.Cond)
	a.loopDepth++
	a.analyzeStatements(v.Body)
	a.loopDepth--
}

func (a *Analyzer) analyzeDoWhile(v *ast.DoWhileStatement) {
	a.loopDepth++
	a.analyzeStatements(v.Body)
	a.loopDepth--
	a.checkBoolCond(v.Cond)
}

func (a *Analyzer) analyzeFor(v *ast.ForStatement) {
	if v.Init != nil {
		a.analyzeStatement(v.Init)
	}
	if v.Cond != nil {
		a.checkBoolCond(v.Cond)
	}
	a.loopDepth++
	a.analyzeStatements(v.Body)
	if v.Step != nil {
		a.analyzeStatement(v.Step)
	}
	a.loopDepth--
}

// analyzeSelect implements spec.md's select-statement rules: integer-typed
// discriminant, literal-integer or enum-item labels, no duplicate labels,
// at most one `other` branch.
func (a *Analyzer) analyzeSelect(v *ast.SelectStatement) {
	t := a.analyzeExpression(v.Discriminant)
	if t == nil || !t.IsNumeric() || t.Kind == ast.KindFloat {
		a.Diags.Add(v.Discriminant.Position(), diag.TypeError, msgSelectDiscriminantType)
	}

	seen := map[int64]bool{}
	otherSeen := false
	for _, c := range v.Cases {
		if c.IsOther {
			if otherSeen {
				a.Diags.Add(v.Pos, diag.Syntactic, msgDuplicateSelectLabel)
			}
			otherSeen = true
		}
		for _, label := range c.Labels {
			if seen[label] {
				a.Diags.Add(v.Pos, diag.Syntactic, msgDuplicateSelectLabel)
			}
			seen[label] = true
		}
		a.analyzeStatements(c.Body)
	}
}

// analyzeCritical requires the guard expression to resolve to the
// concurrency library's mutex class (spec.md §4.4 "Critical sections").
func (a *Analyzer) analyzeCritical(v *ast.CriticalStatement) {
	t := a.analyzeExpression(v.MutexVar)
	if t == nil || t.Kind != ast.KindClass || t.Dimension != 0 || !a.relatedClasses(t.ClassName, mutexClassName) {
		a.Diags.Add(v.Pos, diag.TypeError, msgCriticalRequiresMutex)
	}
	a.analyzeStatements(v.Body)
}
