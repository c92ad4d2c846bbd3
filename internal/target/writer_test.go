package target

import (
	"fmt"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/stretchr/testify/require"

	"github.com/sgzwiz/oblc/internal/ir"
)

func sampleProgram(debug bool) *ir.Program {
	return &ir.Program{
		Flavor:        ir.FlavorExecutable,
		Debug:         debug,
		FloatStrings:  []float64{3.14},
		IntStrings:    []int32{42},
		CharStrings:   []string{"hello"},
		StringClassID: 0,
		EntryClassID:  1,
		EntryMethodID: 0,
		Enums: []*ir.Enum{
			{Name: "Color", Offset: 0, Items: []ir.EnumItem{{Name: "Red", ID: 0}, {Name: "Green", ID: 1}}},
		},
		Classes: []*ir.Class{
			{
				ID:                1,
				Name:              "Program",
				ParentID:          -1,
				InstanceSpaceSize: 1,
				InstanceFields:    []ir.Field{{Kind: ir.ParamInt, Name: "count"}},
				Methods: []*ir.Method{
					{
						ID:          0,
						Name:        "Program:Main:",
						EncodedName: "Program:Main:",
						IsStatic:    true,
						IsFunction:  true,
						FrameSize:   1,
						Instructions: []ir.Instruction{
							{Op: ir.OpLoadInt, Line: 1, IntOp1: 42},
							{Op: ir.OpStoreVar, Line: 1, IntOp1: 0},
							{Op: ir.OpReturn, Line: 1},
						},
					},
				},
			},
		},
	}
}

// TestWriteReadRoundTrip confirms the on-disk layout of §6.1 is its own
// inverse: writing a program and reading it back reproduces the checked
// fields, debug flag on or off. Without debug info, instruction line numbers
// are not written and read back as 0.
func TestWriteReadRoundTrip(t *testing.T) {
	for _, debug := range []bool{false, true} {
		t.Run(fmt.Sprintf("debug=%v", debug), func(t *testing.T) {
			prog := sampleProgram(debug)
			data, err := Write(prog)
			require.NoError(t, err)

			got, err := Read(data)
			require.NoError(t, err)

			require.Equal(t, prog.Flavor, got.Flavor)
			require.Equal(t, prog.FloatStrings, got.FloatStrings)
			require.Equal(t, prog.IntStrings, got.IntStrings)
			require.Equal(t, prog.CharStrings, got.CharStrings)
			require.Equal(t, prog.EntryClassID, got.EntryClassID)
			require.Equal(t, prog.EntryMethodID, got.EntryMethodID)
			require.Len(t, got.Enums, len(prog.Enums))
			require.Equal(t, prog.Enums[0].Name, got.Enums[0].Name)
			require.Len(t, got.Classes, 1)
			require.Equal(t, prog.Classes[0].Name, got.Classes[0].Name)
			want := append([]ir.Instruction(nil), prog.Classes[0].Methods[0].Instructions...)
			if !debug {
				for i := range want {
					want[i].Line = 0
				}
			}
			require.Equal(t, want, got.Classes[0].Methods[0].Instructions)
		})
	}
}

// TestWriteSnapshot pins the serialized byte layout with a snapshot so an
// accidental change to field order or width in §6.1's format shows up as a
// diff instead of a silent on-disk incompatibility.
func TestWriteSnapshot(t *testing.T) {
	data, err := Write(sampleProgram(true))
	require.NoError(t, err)
	snaps.MatchSnapshot(t, fmt.Sprintf("%d bytes: %x", len(data), data))
}
