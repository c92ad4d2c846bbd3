package emit

import "github.com/sgzwiz/oblc/internal/ast"

// walkStatements visits stmts and every nested statement reachable through
// if/while/do-while/for/select/critical bodies, in source order. It is the
// single traversal shared by the frame-size pass (which needs every
// Declaration in the method, regardless of nesting depth, since this
// compiler keeps one flat per-method frame) and by the library-class
// reference-collection pass (emit.go).
func walkStatements(stmts []ast.Statement, visit func(ast.Statement)) {
	for _, s := range stmts {
		visit(s)
		switch v := s.(type) {
		case *ast.IfStatement:
			walkStatements(v.Then, visit)
			for _, ei := range v.ElseIfs {
				walkStatements(ei.Body, visit)
			}
			walkStatements(v.Else, visit)
		case *ast.WhileStatement:
			walkStatements(v.Body, visit)
		case *ast.DoWhileStatement:
			walkStatements(v.Body, visit)
		case *ast.ForStatement:
			if v.Init != nil {
				walkStatements([]ast.Statement{v.Init}, visit)
			}
			walkStatements(v.Body, visit)
			if v.Step != nil {
				walkStatements([]ast.Statement{v.Step}, visit)
			}
		case *ast.SelectStatement:
			for _, c := range v.Cases {
				walkStatements(c.Body, visit)
			}
		case *ast.CriticalStatement:
			walkStatements(v.Body, visit)
		}
	}
}

// walkExpressionsIn calls visit for every expression reachable from stmts,
// including expressions nested in call argument lists and chained calls.
// Used to find char-string interpolation sites (frame.go) and every
// resolved library reference (emit.go) without writing two near-identical
// tree walks.
func walkExpressionsIn(stmts []ast.Statement, visit func(ast.Expression)) {
	var visitExpr func(ast.Expression)
	var visitCall func(*ast.MethodCall)

	visitCall = func(mc *ast.MethodCall) {
		if mc == nil {
			return
		}
		visit(mc)
		for _, p := range mc.CallingParams {
			visitExpr(p)
		}
		visitCall(mc.Chain)
	}

	visitExpr = func(e ast.Expression) {
		if e == nil {
			return
		}
		visit(e)
		switch v := e.(type) {
		case *ast.VarRef:
			for _, idx := range v.Indices {
				visitExpr(idx)
			}
			visitCall(v.Chain)
		case *ast.MethodCall:
			visitCall(v)
		case *ast.Calculated:
			visitExpr(v.Left)
			visitExpr(v.Right)
		case *ast.Ternary:
			visitExpr(v.Cond)
			visitExpr(v.If)
			visitExpr(v.Else)
		case *ast.CharString:
			for _, seg := range v.Segments {
				if seg.Kind == ast.SegmentVariable {
					visitExpr(seg.Expr)
				}
			}
		case *ast.StaticArray:
			for _, el := range v.Elements {
				visitExpr(el)
			}
		}
	}

	walkStatements(stmts, func(s ast.Statement) {
		switch v := s.(type) {
		case *ast.Declaration:
			for _, d := range v.Decls {
				visitExpr(d.Default)
			}
		case *ast.Assignment:
			visitExpr(v.Target)
			visitExpr(v.Value)
		case *ast.SimpleStatement:
			visitExpr(v.Expr)
		case *ast.IfStatement:
			visitExpr(v.Cond)
			for _, ei := range v.ElseIfs {
				visitExpr(ei.Cond)
			}
		case *ast.WhileStatement:
			visitExpr(v.Cond)
		case *ast.DoWhileStatement:
			visitExpr(v.Cond)
		case *ast.ForStatement:
			visitExpr(v.Cond)
		case *ast.ReturnStatement:
			visitExpr(v.Value)
		case *ast.SelectStatement:
			visitExpr(v.Discriminant)
		case *ast.CriticalStatement:
			visitExpr(v.MutexVar)
		case *ast.SystemStatement:
			for _, a := range v.Args {
				visitExpr(a)
			}
		}
	})
}

// usesConcatAccumulator reports whether stmts contains any interpolated
// character string (more than one segment), which needs the synthetic
// `#concat#` hidden local (spec.md §4.4 "Expression lowering").
func usesConcatAccumulator(stmts []ast.Statement) bool {
	found := false
	walkExpressionsIn(stmts, func(e ast.Expression) {
		if cs, ok := e.(*ast.CharString); ok && len(cs.Segments) > 1 {
			found = true
		}
	})
	return found
}
