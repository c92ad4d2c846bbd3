package emit

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/ir"
	"github.com/sgzwiz/oblc/internal/lexer"
	"github.com/sgzwiz/oblc/internal/linker"
	"github.com/sgzwiz/oblc/internal/parser"
	"github.com/sgzwiz/oblc/internal/semantic"
)

// compile lexes, parses, analyzes, and emits src as a debugless executable
// against an empty linker, failing the test immediately on any parse or
// semantic error so a fixture typo surfaces as a clear failure rather than
// a confusing assertion mismatch later.
func compile(t *testing.T, src string) *ir.Program {
	t.Helper()
	p := parser.New(lexer.New("test.obs", src))
	prog := p.ParseProgram()
	require.Empty(t, p.Errors())

	a := semantic.New(prog, linker.New())
	require.NoError(t, a.Run())
	require.True(t, a.Diags.Empty(), "unexpected diagnostics: %v", a.Diags.Sorted())

	e := New(prog, nil, ir.FlavorExecutable, false)
	out, err := e.Emit()
	require.NoError(t, err)
	return out
}

func findIRMethod(out *ir.Program, className, simpleName string) *ir.Method {
	prefix := className + ":" + simpleName + ":"
	for _, c := range out.Classes {
		if c.Name != className {
			continue
		}
		for _, m := range c.Methods {
			if strings.HasPrefix(m.EncodedName, prefix) {
				return m
			}
		}
	}
	return nil
}

func countOp(instrs []ir.Instruction, op ir.Opcode) int {
	n := 0
	for _, i := range instrs {
		if i.Op == op {
			n++
		}
	}
	return n
}

// TestLowerSelectUsesBalancedTreeAboveCascadeThreshold is spec.md §8
// scenario 5: select.go's buildTree bisects a 5-label select into one
// comparison (OpLt) over two sub-cascades, rather than five sequential
// equality checks.
func TestLowerSelectUsesBalancedTreeAboveCascadeThreshold(t *testing.T) {
	src := `
class Program {
  function : Main(args : System.String[]) ~ Nil {
    x : Int;
    x := 3;
    select (x) {
      0 { return; }
      1 { return; }
      2 { return; }
      3 { return; }
      4 { return; }
      other { return; }
    }
    return;
  }
}
`
	out := compile(t, src)
	m := findIRMethod(out, "Program", "Main")
	require.NotNil(t, m)

	assert.Equal(t, 1, countOp(m.Instructions, ir.OpLt),
		"5 labels must bisect into exactly one tree comparison once hi-lo reaches buildTree's threshold of 4")
	assert.Equal(t, 5, countOp(m.Instructions, ir.OpEq),
		"every label still gets its own equality check inside the two sub-cascades")
}

// TestLowerSelectUsesCascadeBelowThreshold covers the complementary half of
// scenario 5: fewer than 4 labels never reach buildTree's bisection branch,
// so lowerSelect falls straight through to a linear equality cascade.
func TestLowerSelectUsesCascadeBelowThreshold(t *testing.T) {
	src := `
class Program {
  function : Main(args : System.String[]) ~ Nil {
    x : Int;
    x := 1;
    select (x) {
      0 { return; }
      1, 2 { return; }
    }
    return;
  }
}
`
	out := compile(t, src)
	m := findIRMethod(out, "Program", "Main")
	require.NotNil(t, m)

	assert.Equal(t, 0, countOp(m.Instructions, ir.OpLt),
		"3 labels stay below buildTree's hi-lo>=4 threshold, so no tree comparison is emitted")
	assert.Equal(t, 3, countOp(m.Instructions, ir.OpEq))
}

// TestComputeFrameWidensFloatParams pins frame.go's slotWidth rule: a Float
// parameter claims two slots, everything else claims one, so a method's
// frame size and expanded parameter count grow accordingly (spec.md §4.4
// step 1).
func TestComputeFrameWidensFloatParams(t *testing.T) {
	src := `
class Program {
  function : Main(args : System.String[]) ~ Nil {
    return;
  }
  method : public : Combine(a : Int, b : Float) ~ Int {
    return a;
  }
}
`
	p := parser.New(lexer.New("test.obs", src))
	prog := p.ParseProgram()
	require.Empty(t, p.Errors())
	a := semantic.New(prog, linker.New())
	require.NoError(t, a.Run())
	require.True(t, a.Diags.Empty())

	var combine *ast.Method
	for _, b := range prog.Bundles {
		for _, c := range b.ClassList {
			for _, m := range c.Methods {
				if m.SimpleName == "Combine" {
					combine = m
				}
			}
		}
	}
	require.NotNil(t, combine)

	fl := computeFrame(combine)
	assert.Equal(t, 3, fl.size, "Int param takes 1 slot, Float param takes 2")
	assert.Equal(t, 3, paramCount(combine))
}

// TestEnsureTerminatedAppendsImplicitReturn is spec.md §4.4 step 4's closing
// rule: a method body that falls off the end without an explicit return
// gets one appended.
func TestEnsureTerminatedAppendsImplicitReturn(t *testing.T) {
	src := `
class Program {
  function : Main(args : System.String[]) ~ Nil {
    return;
  }
  method : public : NoExplicitReturn() ~ Nil {
    x : Int;
    x := 1;
  }
}
`
	out := compile(t, src)
	m := findIRMethod(out, "Program", "NoExplicitReturn")
	require.NotNil(t, m)
	require.NotEmpty(t, m.Instructions)
	assert.Equal(t, ir.OpReturn, m.Instructions[len(m.Instructions)-1].Op)
}

// TestAssignClassIDsOrdersLibraryClassesBeforeProgramClasses exercises
// assignClassIDs's "library classes first, then program classes" rule
// (emit.go) in the degenerate no-library case: every program class still
// gets a contiguous, 0-based id.
func TestAssignClassIDsOrdersLibraryClassesBeforeProgramClasses(t *testing.T) {
	src := `
class Program {
  function : Main(args : System.String[]) ~ Nil {
    return;
  }
}

class Helper {
  method : public : Noop() ~ Nil {
    return;
  }
}
`
	out := compile(t, src)
	ids := map[string]int{}
	for _, c := range out.Classes {
		ids[c.Name] = c.ID
	}
	require.Contains(t, ids, "Program")
	require.Contains(t, ids, "Helper")
	assert.ElementsMatch(t, []int{0, 1}, []int{ids["Program"], ids["Helper"]})
}
