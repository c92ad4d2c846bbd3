package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleProgram() *Program {
	return &Program{
		Flavor:        FlavorExecutable,
		Debug:         true,
		CharStrings:   []string{"hello"},
		IntStrings:    []int32{42},
		EntryClassID:  0,
		EntryMethodID: 0,
		Enums: []*Enum{
			{Name: "Weekday", Items: []EnumItem{{Name: "Mon", ID: 0}, {Name: "Tue", ID: 1}}},
		},
		Classes: []*Class{
			{
				ID:       0,
				Name:     "Program",
				ParentID: -1,
				Methods: []*Method{
					{
						ID:           0,
						Name:         "Program:Main:",
						EncodedName:  "Program:Main:",
						ParamCount:   1,
						Declarations: []Declaration{{Kind: ParamObjAry, Name: "args"}},
						Instructions: []Instruction{
							{Op: OpLoadString, IntOp1: 0},
							{Op: OpReturn},
							{Op: OpEndStmts},
						},
					},
				},
			},
		},
	}
}

func TestDumpRendersKeyFields(t *testing.T) {
	out := sampleProgram().Dump()
	require.NotEmpty(t, out)
	assert.Contains(t, out, "Program")
	assert.Contains(t, out, "Main")
	assert.Contains(t, out, "Weekday")
}

func TestOpEndStmtsTerminatesEveryMethodStream(t *testing.T) {
	prog := sampleProgram()
	for _, c := range prog.Classes {
		for _, m := range c.Methods {
			require.NotEmpty(t, m.Instructions)
			last := m.Instructions[len(m.Instructions)-1]
			assert.Equal(t, OpEndStmts, last.Op, "method %s must end with OpEndStmts (spec.md §6.1)", m.EncodedName)
		}
	}
}

func TestParamKindOrderingMatchesOriginalSysH(t *testing.T) {
	// lifted verbatim from the original compiler's sys.h ParamType
	// enumeration (ir.go's doc comment); a renumbering here would silently
	// corrupt every .obl/.obw/.obe file's declaration tables.
	assert.Equal(t, ParamKind(0), ParamChar)
	assert.Equal(t, ParamKind(1), ParamInt)
	assert.Equal(t, ParamKind(2), ParamFloat)
	assert.Equal(t, ParamKind(3), ParamByteAry)
	assert.Equal(t, ParamKind(4), ParamCharAry)
	assert.Equal(t, ParamKind(5), ParamIntAry)
	assert.Equal(t, ParamKind(6), ParamFloatAry)
	assert.Equal(t, ParamKind(7), ParamObj)
	assert.Equal(t, ParamKind(8), ParamObjAry)
	assert.Equal(t, ParamKind(9), ParamFunc)
}

func TestDefaultFrameBudgetMatchesOriginalLocalSize(t *testing.T) {
	assert.Equal(t, 192, DefaultFrameBudget)
}
