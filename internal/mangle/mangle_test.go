package mangle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sgzwiz/oblc/internal/ast"
)

func TestEncodeType(t *testing.T) {
	tests := []struct {
		name string
		typ  *ast.Type
		want string
	}{
		{"bool", ast.NewScalar(ast.KindBool), "l"},
		{"byte", ast.NewScalar(ast.KindByte), "b"},
		{"char", ast.NewScalar(ast.KindChar), "c"},
		{"int", ast.NewScalar(ast.KindInt), "i"},
		{"float", ast.NewScalar(ast.KindFloat), "f"},
		{"nil", ast.NewScalar(ast.KindNil), "n"},
		{"class", ast.NewClass("System.String", 0), "o.System.String"},
		{"class array", ast.NewClass("System.String", 1), "o.System.String*"},
		{"class 2d array", ast.NewClass("Collections.List", 2), "o.Collections.List**"},
		{"int array", ast.NewArray(ast.KindInt, 1), "i*"},
		{
			"function type",
			ast.NewFunc([]*ast.Type{ast.NewScalar(ast.KindInt), ast.NewScalar(ast.KindFloat)}, ast.NewScalar(ast.KindBool)),
			"m.(i,f,)~l",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, EncodeType(tt.typ))
		})
	}
}

func TestMethodKey(t *testing.T) {
	got := MethodKey("Program", "Pick", []*ast.Type{ast.NewScalar(ast.KindInt), ast.NewClass("System.String", 0)})
	assert.Equal(t, "Program:Pick:i,o.System.String,", got)
}

// TestDecodeParamsRoundTrip is spec.md §8's round-trip property: DecodeParams
// is the total inverse of EncodeParams over every string EncodeParams can
// produce.
func TestDecodeParamsRoundTrip(t *testing.T) {
	tests := []struct {
		name   string
		params []*ast.Type
	}{
		{"empty", nil},
		{"scalars", []*ast.Type{ast.NewScalar(ast.KindInt), ast.NewScalar(ast.KindBool), ast.NewScalar(ast.KindFloat)}},
		{"class", []*ast.Type{ast.NewClass("System.String", 0)}},
		{"class array", []*ast.Type{ast.NewClass("Collections.List", 2)}},
		{"mixed with array dims", []*ast.Type{
			ast.NewArray(ast.KindInt, 1),
			ast.NewClass("System.String", 1),
			ast.NewScalar(ast.KindChar),
		}},
		{"nested function type", []*ast.Type{
			ast.NewFunc([]*ast.Type{ast.NewScalar(ast.KindInt)}, ast.NewClass("System.String", 0)),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded := EncodeParams(tt.params)
			decoded := DecodeParams(encoded)
			require.Len(t, decoded, len(tt.params))
			for i, want := range tt.params {
				assert.Equal(t, EncodeType(want), EncodeType(decoded[i]), "param %d round-trip mismatch", i)
			}
		})
	}
}

func TestFormatInt(t *testing.T) {
	assert.Equal(t, "42", FormatInt(42))
	assert.Equal(t, "-7", FormatInt(-7))
}
