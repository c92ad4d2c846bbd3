package linker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sgzwiz/oblc/internal/ast"
	"github.com/sgzwiz/oblc/internal/ir"
	"github.com/sgzwiz/oblc/internal/target"
)

func writeTestLibrary(t *testing.T, path string) {
	t.Helper()
	prog := &ir.Program{
		Flavor:      ir.FlavorLibrary,
		BundleNames: []string{"Collections"},
		CharStrings: []string{"hello"},
		IntStrings:  []int32{42},
		Enums: []*ir.Enum{
			{Name: "Collections.Order", Items: []ir.EnumItem{{Name: "Asc", ID: 0}, {Name: "Desc", ID: 1}}},
		},
		Classes: []*ir.Class{
			{
				ID:       0,
				Name:     "Collections.List",
				ParentID: -1,
				Methods: []*ir.Method{
					{
						ID:            0,
						EncodedName:   "Collections.List:Size:",
						EncodedReturn: "i",
						Instructions: []ir.Instruction{
							{Op: ir.OpLoadString, IntOp1: 0, IntOp2: 0}, // char pool ref
						},
					},
				},
			},
		},
	}
	data, err := target.Write(prog)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, data, 0o644))
}

func TestLoadAndLookup(t *testing.T) {
	dir := t.TempDir()
	libPath := filepath.Join(dir, "collections.obl")
	writeTestLibrary(t, libPath)

	l := New()
	require.NoError(t, l.LoadPaths([]string{libPath}))

	class, ok := l.LookupClass("Collections.List", nil)
	require.True(t, ok)
	require.Equal(t, "Collections.List", class.RefName())
	require.False(t, class.Virtual())
	require.True(t, class.FromLibrary())

	methods := class.FindMethods("Size")
	require.Len(t, methods, 1)
	require.True(t, methods[0].RetType().Equals(ast.NewScalar(ast.KindInt)))

	_, ok = l.LookupEnum("Collections.Order", nil)
	require.True(t, ok)

	names, ok := l.LookupBundle("Collections")
	require.True(t, ok)
	require.Contains(t, names, "Collections.List")
}

func TestLookupClassUsesFallback(t *testing.T) {
	dir := t.TempDir()
	libPath := filepath.Join(dir, "collections.obl")
	writeTestLibrary(t, libPath)

	l := New()
	require.NoError(t, l.LoadPaths([]string{libPath}))

	_, ok := l.LookupClass("List", nil)
	require.False(t, ok)

	found, ok := l.LookupClass("List", []string{"Collections"})
	require.True(t, ok)
	require.Equal(t, "Collections.List", found.RefName())
}

func TestResolveExternalMethodCallsRewritesPoolRefs(t *testing.T) {
	dir := t.TempDir()
	libPath := filepath.Join(dir, "collections.obl")
	writeTestLibrary(t, libPath)

	l := New()
	require.NoError(t, l.LoadPaths([]string{libPath}))
	l.ResolveExternalClasses()

	progChars := ast.NewLiteralPool()
	progChars.Intern("already-here") // offset the id so the rewrite is observable
	progInts := ast.NewLiteralPool()
	progFloats := ast.NewLiteralPool()

	l.ResolveExternalMethodCalls(progChars, progInts, progFloats)

	class, _ := l.LookupClass("Collections.List", nil)
	inst := class.class.Methods[0].Instructions[0]
	require.EqualValues(t, 1, inst.IntOp1) // "hello" now lands at merged id 1
}
