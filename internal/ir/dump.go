package ir

import "github.com/kr/pretty"

// Dump renders p as a multi-line, field-annotated dump via kr/pretty, for the
// oblc dump subcommand and for test-failure messages that need to show an
// entire intermediate program rather than a single diffed field.
func (p *Program) Dump() string {
	return pretty.Sprint(p)
}
