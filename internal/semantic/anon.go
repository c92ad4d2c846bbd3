package semantic

import (
	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/diag"
)

// checkAnonymousClasses implements spec.md §4.3 step 8: verify that every
// anonymous class supplies an implementation method matching the call-site
// signature captured at its point of construction. Per §9's worked note,
// the exact signature to match is the constructor call (`new Interface(...)`)
// captured on the class at synthesis time, not traversal order.
func (a *Analyzer) checkAnonymousClasses() {
	for _, b := range a.Prog.Bundles {
		for _, c := range b.ClassList {
			if c.AnonymousOf == nil {
				continue
			}
			a.checkAnonymousClass(c)
		}
	}
}

func (a *Analyzer) checkAnonymousClass(c *ast.Class) {
	call := c.AnonymousOf

	args := make([]*ast.Type, len(call.CallingParams))
	for i, p := range call.CallingParams {
		args[i] = p.EvalType()
	}

	var candidates []ast.MethodRef
	for _, m := range c.MethodsBySimpleName["New"] {
		candidates = append(candidates, m)
	}
	if len(candidates) == 0 {
		// No explicit constructor: the implicit nullary New matches only a
		// nullary call.
		if len(args) == 0 {
			return
		}
		a.Diags.Add(call.Pos, diag.Overload, msgAnonymousSigMissing)
		return
	}
	if a.selectOverload(candidates, args) == nil {
		a.Diags.Add(call.Pos, diag.Overload, msgAnonymousSigMissing)
	}
}
