// Package mangle implements the name-mangling scheme of spec.md §6.2: the
// per-parameter type encoding used to build the method-table keys the
// semantic analyzer and emitter use as identifiers.
package mangle

import (
	"strconv"
	"strings"

	"github.com/sgzwiz/oblc/internal/ast"
)

// EncodeType renders a single type's per-parameter encoding: `l` Bool, `b`
// Byte, `c` Char, `i` Int, `f` Float, `n` Nil, `o.<FullClassName>` class,
// `m.(<params>)~<return>` function, with one `*` appended per array
// dimension.
func EncodeType(t *ast.Type) string {
	var sb strings.Builder
	switch t.Kind {
	case ast.KindBool:
		sb.WriteByte('l')
	case ast.KindByte:
		sb.WriteByte('b')
	case ast.KindChar:
		sb.WriteByte('c')
	case ast.KindInt:
		sb.WriteByte('i')
	case ast.KindFloat:
		sb.WriteByte('f')
	case ast.KindNil:
		sb.WriteByte('n')
	case ast.KindClass:
		sb.WriteString("o.")
		sb.WriteString(t.ClassName)
	case ast.KindFunc:
		sb.WriteString(EncodeFuncType(t))
	case ast.KindVar:
		sb.WriteByte('n') // unresolved placeholder; analyzer must narrow before encoding
	}
	for i := 0; i < t.Dimension; i++ {
		sb.WriteByte('*')
	}
	return sb.String()
}

// EncodeFuncType renders a function type's structural identity string,
// `m.(<params>)~<return>`, used both as the KindFunc encoding and as the
// cached class-name field spec.md §4.3 describes for first-contact
// function types.
func EncodeFuncType(t *ast.Type) string {
	var sb strings.Builder
	sb.WriteString("m.(")
	sb.WriteString(EncodeParams(t.Params))
	sb.WriteString(")~")
	sb.WriteString(EncodeType(t.Return))
	return sb.String()
}

// EncodeParams renders a parameter-type list, each terminated by a comma,
// per spec.md §6.2.
func EncodeParams(types []*ast.Type) string {
	var sb strings.Builder
	for _, t := range types {
		sb.WriteString(EncodeType(t))
		sb.WriteByte(',')
	}
	return sb.String()
}

// MethodKey builds the full method-table key `<FullClassName>:<SimpleName>:
// <param-encoding>` with no embedded whitespace (spec.md §6.2).
func MethodKey(className, simpleName string, paramTypes []*ast.Type) string {
	return className + ":" + simpleName + ":" + EncodeParams(paramTypes)
}

// ParsedParam is one decoded parameter-type segment, the inverse of
// EncodeType, used by the linker to re-derive a library method's parameter
// types from its stored encoded name (spec.md §4.1 "Load protocol").
type ParsedParam struct {
	Type *ast.Type
}

// DecodeParams is the inverse of EncodeParams: it splits a comma-terminated
// encoded parameter string back into types. It is total over every string
// EncodeParams can produce (the round-trip property of spec.md §8).
func DecodeParams(encoded string) []*ast.Type {
	var out []*ast.Type
	i := 0
	for i < len(encoded) {
		t, next := decodeOne(encoded, i)
		out = append(out, t)
		// consume the trailing comma
		if next < len(encoded) && encoded[next] == ',' {
			next++
		}
		i = next
	}
	return out
}

func decodeOne(s string, i int) (*ast.Type, int) {
	dim := 0
	switch s[i] {
	case 'l':
		return withDims(ast.NewScalar(ast.KindBool), s, i+1)
	case 'b':
		return withDims(ast.NewScalar(ast.KindByte), s, i+1)
	case 'c':
		return withDims(ast.NewScalar(ast.KindChar), s, i+1)
	case 'i':
		return withDims(ast.NewScalar(ast.KindInt), s, i+1)
	case 'f':
		return withDims(ast.NewScalar(ast.KindFloat), s, i+1)
	case 'n':
		return withDims(ast.NewScalar(ast.KindNil), s, i+1)
	case 'o':
		// o.<ClassName>, class name runs until ',' or '*'
		j := i + 2
		start := j
		for j < len(s) && s[j] != ',' && s[j] != '*' {
			j++
		}
		name := s[start:j]
		return withDims(ast.NewClass(name, 0), s, j)
	case 'm':
		// m.(<params>)~<return>
		j := i + 2 // skip "m."
		depth := 1
		j++ // skip '('
		start := j
		for j < len(s) && depth > 0 {
			switch s[j] {
			case '(':
				depth++
			case ')':
				depth--
			}
			if depth > 0 {
				j++
			}
		}
		paramsStr := s[start:j]
		j++ // skip ')'
		if j < len(s) && s[j] == '~' {
			j++
		}
		retTyp, next := decodeOne(s, j)
		return withDims(ast.NewFunc(DecodeParams(paramsStr), retTyp), s, next)
	}
	_ = dim
	return ast.NewScalar(ast.KindNil), i + 1
}

func withDims(t *ast.Type, s string, i int) (*ast.Type, int) {
	for i < len(s) && s[i] == '*' {
		t.Dimension++
		i++
	}
	return t, i
}

// FormatInt is a small helper kept here (rather than importing strconv at
// every call site in semantic/ir) because select-label and enum-id literal
// keys are built alongside mangled names in a few places.
func FormatInt(n int64) string { return strconv.FormatInt(n, 10) }
