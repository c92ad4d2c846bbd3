package semantic

import (
	"testing"

	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/diag"
	"github.com/sgzwiz/oblc/internal/lexer"
	"github.com/sgzwiz/oblc/internal/linker"
	"github.com/sgzwiz/oblc/internal/parser"
)

// analyze lexes and parses src, runs the analyzer against an empty linker
// (so "from"-less classes silently fail to resolve System.Base rather than
// erroring — no system bundle is supplied by these tests), and returns the
// parsed program and the resulting diagnostics.
func analyze(t *testing.T, src string) (*ast.Program, *diag.Bag) {
	t.Helper()
	p := parser.New(lexer.New("test.obs", src))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		t.Fatalf("parse errors: %v", errs)
	}
	a := New(prog, linker.New())
	if err := a.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return prog, a.Diags
}

func findClass(prog *ast.Program, name string) *ast.Class {
	for _, b := range prog.Bundles {
		for _, c := range b.ClassList {
			if c.Name == name {
				return c
			}
		}
	}
	return nil
}

func findMethod(c *ast.Class, simpleName string) *ast.Method {
	for _, m := range c.Methods {
		if m.SimpleName == simpleName {
			return m
		}
	}
	return nil
}

func messages(bag *diag.Bag) []string {
	var out []string
	for _, d := range bag.Sorted() {
		out = append(out, d.Message)
	}
	return out
}

// TestOverloadResolutionPrefersExactMatch is spec.md §8 scenario 2: a call
// site with an Int argument must bind the Int overload over the Float one
// even though both are reachable by widening, because an exact match scores
// 0 and widening scores 1 (selectOverload, casts.go's scoreArg).
func TestOverloadResolutionPrefersExactMatch(t *testing.T) {
	src := `
class Program {
  function : Main(args : System.String[]) ~ Nil {
    Pick(1);
    return;
  }
  function : Pick(x : Int) ~ Nil {
    return;
  }
  function : Pick(x : Float) ~ Nil {
    return;
  }
}
`
	prog, diags := analyze(t, src)
	if !diags.Empty() {
		t.Fatalf("unexpected diagnostics: %v", messages(diags))
	}

	c := findClass(prog, "Program")
	if c == nil {
		t.Fatal("class Program not found")
	}
	main := findMethod(c, "Main")
	if main == nil {
		t.Fatal("method Main not found")
	}

	simple, ok := main.Statements[0].(*ast.SimpleStatement)
	if !ok {
		t.Fatalf("expected a simple statement, got %T", main.Statements[0])
	}
	v, ok := simple.Expr.(*ast.VarRef)
	if !ok || v.Chain == nil {
		t.Fatalf("expected a chained call, got %#v", simple.Expr)
	}
	chosen := v.Chain.ResolvedMethod
	if chosen == nil {
		t.Fatal("call was not resolved to a method")
	}
	if len(chosen.Declarations) != 1 || chosen.Declarations[0].Type.Kind != ast.KindInt {
		t.Fatalf("expected the Int overload, got param kind %v", chosen.Declarations[0].Type.Kind)
	}
}

// TestInterfaceImplementationGap is spec.md §8 scenario 3: an interface
// left unimplemented must produce exactly the original compiler's message,
// naming the interface rather than the method.
func TestInterfaceImplementationGap(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantMsgs []string
	}{
		{
			name: "missing implementation",
			src: `
interface Shape {
  virtual : public : Area() ~ Float;
}

class Square implements Shape {
  function : Main(args : System.String[]) ~ Nil {
    return;
  }
  method : public : SetSide(n : Int) ~ Nil {
    return;
  }
}
`,
			wantMsgs: []string{"Not all methods have been implemented for the interface: Shape"},
		},
		{
			name: "present implementation",
			src: `
interface Shape {
  virtual : public : Area() ~ Float;
}

class Square implements Shape {
  function : Main(args : System.String[]) ~ Nil {
    return;
  }
  method : public : Area() ~ Float {
    return 4.0;
  }
}
`,
			wantMsgs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			prog, diags := analyze(t, tt.src)
			got := messages(diags)
			if len(got) != len(tt.wantMsgs) {
				t.Fatalf("diagnostics = %v, want %v", got, tt.wantMsgs)
			}
			for i, want := range tt.wantMsgs {
				if got[i] != want {
					t.Errorf("diagnostic[%d] = %q, want %q", i, got[i], want)
				}
			}
			if len(tt.wantMsgs) == 0 {
				iface := findClass(prog, "Shape")
				square := findClass(prog, "Square")
				if !iface.Called {
					t.Error("Shape should be marked Called after a successful implementation check")
				}
				found := false
				for _, child := range iface.Children {
					if child == square {
						found = true
					}
				}
				if !found {
					t.Error("Square should appear in Shape.Children after a successful implementation check")
				}
			}
		})
	}
}

// TestVirtualClassDescendantGap exercises the plain-virtual-class
// counterpart of the interface check (checkVirtualClassImplementations),
// the descendant-walk over Children that was previously missing entirely.
func TestVirtualClassDescendantGap(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantMsgs []string
	}{
		{
			name: "missing override",
			src: `
class Animal {
  virtual : public : Speak() ~ Nil;
}

class Dog from Animal {
  function : Main(args : System.String[]) ~ Nil {
    return;
  }
  method : public : Fetch() ~ Nil {
    return;
  }
}
`,
			wantMsgs: []string{"Not all virtual methods have been implemented for the class/interface: Animal"},
		},
		{
			name: "overridden",
			src: `
class Animal {
  virtual : public : Speak() ~ Nil;
}

class Dog from Animal {
  function : Main(args : System.String[]) ~ Nil {
    return;
  }
  method : public : Speak() ~ Nil {
    return;
  }
}
`,
			wantMsgs: nil,
		},
		{
			name: "overridden two levels down through a virtual intermediate",
			src: `
class Animal {
  virtual : public : Speak() ~ Nil;
}

class Mammal from Animal {
  virtual : public : Nurse() ~ Nil;
}

class Dog from Mammal {
  function : Main(args : System.String[]) ~ Nil {
    return;
  }
  method : public : Speak() ~ Nil {
    return;
  }
  method : public : Nurse() ~ Nil {
    return;
  }
}
`,
			wantMsgs: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, diags := analyze(t, tt.src)
			got := messages(diags)
			if len(got) != len(tt.wantMsgs) {
				t.Fatalf("diagnostics = %v, want %v", got, tt.wantMsgs)
			}
			for i, want := range tt.wantMsgs {
				if got[i] != want {
					t.Errorf("diagnostic[%d] = %q, want %q", i, got[i], want)
				}
			}
		})
	}
}

// TestDefaultParameterExpansion is spec.md §8 scenario 4: a trailing
// default-valued parameter produces one synthetic, lower-arity overload per
// dropped trailing parameter, each forwarding to the full-arity method.
func TestDefaultParameterExpansion(t *testing.T) {
	src := `
class Program {
  function : Main(args : System.String[]) ~ Nil {
    return;
  }
  method : public : Combine(x : Int, y : Int := 5) ~ Int {
    return x;
  }
}
`
	prog, diags := analyze(t, src)
	if !diags.Empty() {
		t.Fatalf("unexpected diagnostics: %v", messages(diags))
	}

	c := findClass(prog, "Program")
	var combines []*ast.Method
	for _, m := range c.Methods {
		if m.SimpleName == "Combine" {
			combines = append(combines, m)
		}
	}
	if len(combines) != 2 {
		t.Fatalf("expected 2 Combine overloads (original + synthetic), got %d", len(combines))
	}

	var full, synthetic *ast.Method
	for _, m := range combines {
		if len(m.Declarations) == 2 {
			full = m
		} else {
			synthetic = m
		}
	}
	if full == nil || synthetic == nil {
		t.Fatalf("expected one 2-arity and one 1-arity overload, got arities %d and %d",
			len(combines[0].Declarations), len(combines[1].Declarations))
	}
	if synthetic.ExpandedFrom != full {
		t.Error("synthetic overload's ExpandedFrom should point back at the full-arity method")
	}
	if len(synthetic.DefaultsUsed) != 1 {
		t.Fatalf("expected 1 captured default, got %d", len(synthetic.DefaultsUsed))
	}
	if len(synthetic.Statements) != 1 {
		t.Fatalf("expected a single forwarding statement, got %d", len(synthetic.Statements))
	}
}

// TestClassCannotDeriveFromInterface covers the other half of invariant 1:
// a concrete class naming an interface in a `from` clause is always
// rejected, regardless of whether it also declares an `implements` clause.
func TestClassCannotDeriveFromInterface(t *testing.T) {
	src := `
interface Shape {
  virtual : public : Area() ~ Float;
}

class Square from Shape {
  function : Main(args : System.String[]) ~ Nil {
    return;
  }
  method : public : Area() ~ Float {
    return 4.0;
  }
}
`
	_, diags := analyze(t, src)
	got := messages(diags)
	if len(got) != 1 || got[0] != msgDerivedFromInterface {
		t.Fatalf("diagnostics = %v, want [%q]", got, msgDerivedFromInterface)
	}
}

// TestEntryPointRequirement is spec.md §4.3 step 9 / invariant 5: an
// executable without a Main function fails, a library never requires one.
func TestEntryPointRequirement(t *testing.T) {
	src := `
class Program {
  method : public : Helper() ~ Nil {
    return;
  }
}
`
	t.Run("executable requires Main", func(t *testing.T) {
		p := parser.New(lexer.New("test.obs", src))
		prog := p.ParseProgram()
		a := New(prog, linker.New())
		if err := a.Run(); err != nil {
			t.Fatalf("Run: %v", err)
		}
		got := messages(a.Diags)
		if len(got) != 1 || got[0] != msgMainNotDefined {
			t.Fatalf("diagnostics = %v, want [%q]", got, msgMainNotDefined)
		}
	})

	t.Run("library never requires Main", func(t *testing.T) {
		p := parser.New(lexer.New("test.obs", src))
		prog := p.ParseProgram()
		prog.IsLibrary = true
		a := New(prog, linker.New())
		if err := a.Run(); err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !a.Diags.Empty() {
			t.Fatalf("unexpected diagnostics: %v", messages(a.Diags))
		}
	})
}
