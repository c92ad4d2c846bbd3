package emit

import (
	"sort"

	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/ir"
)

// lowerSelect implements spec.md §4.4 "Select-statement lowering": a
// balanced comparison tree for four or more labels, a simple equality
// cascade for one to three, with `other` either a label of its own or the
// tree/cascade's default fallthrough. Cases are assumed non-fallthrough:
// each case body ends with an unconditional jump to the statement's end,
// matching the language's select/case semantics (no implicit fallthrough).
func (b *methodBuilder) lowerSelect(sel *ast.SelectStatement) {
	line := sel.Pos.Line

	b.lowerExpr(sel.Discriminant)
	b.storeVar("#select#", selectAccumulatorType(), line)

	type label struct {
		value int64
		c     *ast.SelectCase
	}
	var labels []label
	var otherCase *ast.SelectCase
	for _, c := range sel.Cases {
		if c.IsOther {
			otherCase = c
			continue
		}
		for _, v := range c.Labels {
			labels = append(labels, label{v, c})
		}
	}
	sort.Slice(labels, func(i, j int) bool { return labels[i].value < labels[j].value })

	jumpsToCase := map[*ast.SelectCase][]int{}
	var jumpsToDefault []int

	var buildCascade func(lo, hi int)
	buildCascade = func(lo, hi int) {
		for i := lo; i < hi; i++ {
			b.loadVar("#select#", selectAccumulatorType(), line)
			b.push(ir.Instruction{Op: ir.OpLoadInt, Line: line, IntOp1: int32(labels[i].value)})
			b.push(ir.Instruction{Op: ir.OpEq, Line: line})
			jf := b.push(ir.Instruction{Op: ir.OpJumpFalse, Line: line})
			jt := b.push(ir.Instruction{Op: ir.OpJump, Line: line})
			b.patch(jf, len(b.instrs))
			jumpsToCase[labels[i].c] = append(jumpsToCase[labels[i].c], jt)
		}
		jumpsToDefault = append(jumpsToDefault, b.push(ir.Instruction{Op: ir.OpJump, Line: line}))
	}

	var buildTree func(lo, hi int)
	buildTree = func(lo, hi int) {
		if hi-lo < 4 {
			buildCascade(lo, hi)
			return
		}
		mid := lo + (hi-lo)/2
		b.loadVar("#select#", selectAccumulatorType(), line)
		b.push(ir.Instruction{Op: ir.OpLoadInt, Line: line, IntOp1: int32(labels[mid].value)})
		b.push(ir.Instruction{Op: ir.OpLt, Line: line})
		jGoLow := b.push(ir.Instruction{Op: ir.OpJumpFalse, Line: line})
		buildTree(lo, mid)
		jSkipHigh := b.push(ir.Instruction{Op: ir.OpJump, Line: line})
		b.patch(jGoLow, len(b.instrs))
		buildTree(mid, hi)
		b.patch(jSkipHigh, len(b.instrs))
	}

	if len(labels) > 0 {
		buildTree(0, len(labels))
	} else {
		jumpsToDefault = append(jumpsToDefault, b.push(ir.Instruction{Op: ir.OpJump, Line: line}))
	}

	var jumpsToEnd []int
	for _, c := range sel.Cases {
		if c == otherCase {
			for _, idx := range jumpsToDefault {
				b.patch(idx, len(b.instrs))
			}
			jumpsToDefault = nil
		} else {
			for _, idx := range jumpsToCase[c] {
				b.patch(idx, len(b.instrs))
			}
		}
		b.lowerStatements(c.Body)
		jumpsToEnd = append(jumpsToEnd, b.push(ir.Instruction{Op: ir.OpJump, Line: line}))
	}

	end := len(b.instrs)
	for _, idx := range jumpsToEnd {
		b.patch(idx, end)
	}
	for _, idx := range jumpsToDefault {
		b.patch(idx, end)
	}
}
