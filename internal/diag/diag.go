// Package diag implements the line-keyed diagnostic collection described
// in spec.md §4.3/§7: "Collected in a map keyed by source-line number so
// that duplicate messages at the same line collapse and output is
// line-sorted." A non-empty Bag suppresses emission.
package diag

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"github.com/sgzwiz/oblc/internal/token"
)

// Kind classifies a diagnostic by the error-kind taxonomy of spec.md §7.
type Kind string

const (
	Syntactic      Kind = "syntactic"
	NameResolution Kind = "name-resolution"
	TypeError      Kind = "type"
	Inheritance    Kind = "inheritance"
	Overload       Kind = "overload"
	FrameBudget    Kind = "frame-budget"
	IO             Kind = "io"
)

// Diagnostic is a single recoverable compiler error.
type Diagnostic struct {
	Pos     token.Position
	Message string
	Kind    Kind
}

// String renders `<file>:<line>: <message>`, the user-visible format of
// spec.md §7.
func (d Diagnostic) String() string {
	file := d.Pos.File
	if file == "" {
		file = "<input>"
	}
	return fmt.Sprintf("%s:%d: %s", file, d.Pos.Line, d.Message)
}

// Bag is the line-keyed, deduplicating-by-line diagnostic multimap-but-
// really-a-map of spec.md §9 Design Notes: "by design" only the first
// diagnostic at a given line survives, to avoid diagnostic spam.
type Bag struct {
	byLine map[int]Diagnostic
}

func NewBag() *Bag { return &Bag{byLine: map[int]Diagnostic{}} }

// Add records a diagnostic, keeping only the first one seen at each line.
func (b *Bag) Add(pos token.Position, kind Kind, format string, args ...any) {
	if _, exists := b.byLine[pos.Line]; exists {
		return
	}
	b.byLine[pos.Line] = Diagnostic{Pos: pos, Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Empty reports whether no diagnostics were recorded; emission proceeds
// only when this is true (spec.md §4.3 step closing, §7).
func (b *Bag) Empty() bool { return len(b.byLine) == 0 }

// Len returns the number of distinct diagnostic lines.
func (b *Bag) Len() int { return len(b.byLine) }

// Sorted returns the diagnostics ordered by source line (spec.md §5, §7).
func (b *Bag) Sorted() []Diagnostic {
	lines := make([]int, 0, len(b.byLine))
	for l := range b.byLine {
		lines = append(lines, l)
	}
	sort.Ints(lines)
	out := make([]Diagnostic, 0, len(lines))
	for _, l := range lines {
		out = append(out, b.byLine[l])
	}
	return out
}

// Format renders every diagnostic, one per line, in line order.
func (b *Bag) Format() string {
	var sb strings.Builder
	for _, d := range b.Sorted() {
		sb.WriteString(d.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ToJSON renders the bag as a JSON array of {file,line,kind,message}
// objects, built incrementally with sjson rather than a bespoke struct +
// encoding/json marshaller, for the CLI's --json diagnostics mode.
func (b *Bag) ToJSON() (string, error) {
	json := "[]"
	var err error
	for i, d := range b.Sorted() {
		path := fmt.Sprintf("%d", i)
		json, err = sjson.Set(json, path+".file", d.Pos.File)
		if err != nil {
			return "", err
		}
		json, err = sjson.Set(json, path+".line", d.Pos.Line)
		if err != nil {
			return "", err
		}
		json, err = sjson.Set(json, path+".kind", string(d.Kind))
		if err != nil {
			return "", err
		}
		json, err = sjson.Set(json, path+".message", d.Message)
		if err != nil {
			return "", err
		}
	}
	return json, nil
}

// FromJSON parses the array ToJSON produces back into a Bag, the inverse of
// the CLI's --json output.
func FromJSON(data string) *Bag {
	b := NewBag()
	gjson.Parse(data).ForEach(func(_, v gjson.Result) bool {
		pos := token.Position{
			File: v.Get("file").String(),
			Line: int(v.Get("line").Int()),
		}
		b.Add(pos, Kind(v.Get("kind").String()), "%s", v.Get("message").String())
		return true
	})
	return b
}
