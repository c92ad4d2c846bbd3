package ast

// LiteralPool is a deduplicating, id-assigning map from a literal value to
// its pool index (spec.md §3, §9 Design Notes: "a global, deduplicated
// table of constant values referenced by index from instructions").
// Equality is value equality: character-wise for strings, as required by
// the canonical in-memory representation invariant in §9.
type LiteralPool struct {
	index  map[string]int
	values []string
}

func NewLiteralPool() *LiteralPool {
	return &LiteralPool{index: map[string]int{}}
}

// Intern returns the stable id for value, assigning the next contiguous id
// the first time it is seen (invariant: intern(x) = intern(y) iff x = y;
// ids are contiguous from 0).
func (p *LiteralPool) Intern(value string) int {
	if id, ok := p.index[value]; ok {
		return id
	}
	id := len(p.values)
	p.index[value] = id
	p.values = append(p.values, value)
	return id
}

// Lookup returns the id for a value without interning it.
func (p *LiteralPool) Lookup(value string) (int, bool) {
	id, ok := p.index[value]
	return id, ok
}

// Values returns the pool contents in id order.
func (p *LiteralPool) Values() []string { return p.values }

func (p *LiteralPool) Len() int { return len(p.values) }
