package semantic

import (
	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/diag"
	"github.com/sgzwiz/oblc/internal/mangle"
	"github.com/sgzwiz/oblc/internal/token"
)

// expandDefaultParams walks declarations right-to-left for every class
// method; each trailing declaration with an initializer generates a
// synthetic overload whose body forwards to the full-arity method with the
// captured defaults appended (spec.md §4.3 step 3).
func (a *Analyzer) expandDefaultParams() {
	for _, b := range a.Prog.Bundles {
		for _, c := range b.ClassList {
			original := append([]*ast.Method(nil), c.Methods...)
			for _, m := range original {
				a.expandMethodDefaults(c, m)
			}
		}
	}
}

func (a *Analyzer) expandMethodDefaults(c *ast.Class, m *ast.Method) {
	firstDefault := -1
	for i, d := range m.Declarations {
		if d.Default != nil {
			firstDefault = i
			break
		}
	}
	if firstDefault == -1 {
		return
	}
	for i := firstDefault; i < len(m.Declarations); i++ {
		if m.Declarations[i].Default == nil {
			a.Diags.Add(m.Declarations[i].Pos, diag.Syntactic, msgNonTrailingDefault)
			return
		}
	}
	if m.Virtual || c.IsInterface {
		a.Diags.Add(m.Pos, diag.Syntactic, msgVirtualDefaultParam)
		return
	}

	trailingCount := len(m.Declarations) - firstDefault
	for drop := 1; drop <= trailingCount; drop++ {
		keep := len(m.Declarations) - drop
		synthetic := &ast.Method{
			ParsedName:   m.ParsedName,
			SimpleName:   m.SimpleName,
			Kind:         m.Kind,
			Static:       m.Static,
			Function:     m.Function,
			Declarations: append([]*ast.ParamDecl(nil), m.Declarations[:keep]...),
			ReturnType:   m.ReturnType,
			Pos:          m.Pos,
			ExpandedFrom: m,
			DefaultsUsed: defaultsOf(m.Declarations[keep:]),
		}
		synthetic.Statements = []ast.Statement{a.buildForwardingCall(c, m, synthetic)}
		c.AddMethod(synthetic)
	}
}

func defaultsOf(decls []*ast.ParamDecl) []ast.Expression {
	out := make([]ast.Expression, len(decls))
	for i, d := range decls {
		out[i] = d.Default
	}
	return out
}

// buildForwardingCall synthesizes `return @self.Simple(p1, p2, ..., defaults...)`
// (or a bare call for a Nil-returning method) for a default-parameter
// overload expansion.
func (a *Analyzer) buildForwardingCall(c *ast.Class, target, synthetic *ast.Method) ast.Statement {
	args := make([]ast.Expression, 0, len(target.Declarations))
	for _, d := range synthetic.Declarations {
		v := &ast.VarRef{Name: d.Name}
		v.Pos = d.Pos
		args = append(args, v)
	}
	args = append(args, synthetic.DefaultsUsed...)

	call := &ast.MethodCall{MethodName: target.SimpleName, Type: ast.CallMethod, CallingParams: args, OriginalClass: c}
	call.Pos = synthetic.Pos

	if synthetic.ReturnType != nil && synthetic.ReturnType.Kind == ast.KindNil && synthetic.ReturnType.Dimension == 0 {
		s := &ast.SimpleStatement{Expr: call}
		s.Pos = synthetic.Pos
		return s
	}
	s := &ast.ReturnStatement{Value: call}
	s.Pos = synthetic.Pos
	return s
}

// encodeSignatures re-encodes every method's signature using fully qualified
// class names, so overload keys are stable across bundles (spec.md §4.3
// step 4). The by-encoded-name and by-simple-name method indexes are rebuilt
// afterwards by associateMethods (step 6 "Associate methods").
func (a *Analyzer) encodeSignatures() {
	for _, b := range a.Prog.Bundles {
		for _, c := range b.ClassList {
			for _, m := range c.Methods {
				paramTypes := make([]*ast.Type, len(m.Declarations))
				for i, d := range m.Declarations {
					paramTypes[i] = d.Type
				}
				m.EncodedName = mangle.MethodKey(c.Name, m.SimpleName, paramTypes)
			}
		}
	}
}

// associateMethods rebuilds every class's method-lookup indexes now that
// encodeSignatures has assigned final encoded names (spec.md §4.3 step 6).
func (a *Analyzer) associateMethods() {
	for _, b := range a.Prog.Bundles {
		for _, c := range b.ClassList {
			c.MethodsByEncoded = map[string]*ast.Method{}
			c.MethodsBySimpleName = map[string][]*ast.Method{}
			for _, m := range c.Methods {
				c.MethodsByEncoded[m.EncodedName] = m
				c.MethodsBySimpleName[m.SimpleName] = append(c.MethodsBySimpleName[m.SimpleName], m)
			}
		}
	}
}

// resolveParents resolves each class's parent name and implements-list
// against program classes first, then libraries; a missing parent on a
// non-root class defers to the root class; inheriting from an interface is
// rejected (spec.md §4.3 step 5).
func (a *Analyzer) resolveParents() {
	for _, b := range a.Prog.Bundles {
		for _, c := range b.ClassList {
			a.resolveClassParent(c)
			a.resolveClassInterfaces(c)
		}
	}
}

func (a *Analyzer) resolveClassParent(c *ast.Class) {
	if c.Name == RootClassName {
		return
	}

	name := c.ParentName
	if name == "" && !a.compilingSystemBundle {
		name = RootClassName
	}
	if name == "" {
		return
	}

	ref, ok := a.findClass(name)
	if !ok {
		return // deferred: may become an analyzer error elsewhere, not here (§4.1)
	}
	if ref.Interface() {
		a.Diags.Add(token.Position{File: c.File, Line: c.Line}, diag.Inheritance, msgDerivedFromInterface)
		return
	}
	if pc, ok := ref.(*ast.Class); ok {
		c.ParentProgram = pc
		pc.Children = append(pc.Children, c)
	} else {
		c.ParentLibrary = ref
	}
}

func (a *Analyzer) resolveClassInterfaces(c *ast.Class) {
	for _, name := range c.InterfaceNames {
		ref, ok := a.findClass(name)
		if !ok {
			continue
		}
		if !ref.Interface() {
			a.Diags.Add(token.Position{File: c.File, Line: c.Line}, diag.Inheritance, msgExpectedInterface)
			continue
		}
		if pc, ok := ref.(*ast.Class); ok {
			c.InterfacesProgram = append(c.InterfacesProgram, pc)
		} else {
			c.InterfacesLibrary = append(c.InterfacesLibrary, ref)
		}
	}
}
