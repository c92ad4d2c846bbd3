// Package symtab implements the symbol table manager of spec.md §4.2: a
// stack of scopes per bundle, with class/method top-level scopes archived
// by name for later lookup (spec.md §3 Lifecycles).
package symtab

import "github.com/sgzwiz/oblc/internal/ast"

// Entry is one symbol-table record: a variable, parameter, or local.
// Variable expressions carry a back-pointer to their Entry; an Entry carries
// the list of all variable expressions referencing it, used to retroactively
// tighten a Var-typed entry's type after its first assignment (spec.md §3
// invariant 3, §4.2).
type Entry struct {
	Name    string
	Type    *ast.Type
	Static  bool
	Local   bool
	Self    bool // true for the two special entries, @self and @parent

	// NarrowedOnce guards invariant 3: a Var type may be narrowed exactly
	// once, at its first assignment.
	NarrowedOnce bool

	// Refs is the back-edge list: every *ast.VarRef whose ResolvedEntry
	// points here.
	Refs []*ast.VarRef
}

// Narrow installs t as this entry's type, enforcing invariant 3.
func (e *Entry) Narrow(t *ast.Type) bool {
	if e.Type != nil && e.Type.Kind != ast.KindVar {
		return false
	}
	if e.NarrowedOnce {
		return false
	}
	e.Type = t
	e.NarrowedOnce = true
	for _, ref := range e.Refs {
		ref.SetEvalType(t)
	}
	return true
}

// Scope is one lexical scope: a flat symbol map plus a link to its parent.
type Scope struct {
	symbols map[string]*Entry
	outer   *Scope
	// name is set when this scope is archived by PreviousParseScope so a
	// method's locals can be retrieved again after the scope is popped
	// (spec.md §4.2 "NewParseScope pushes; PreviousParseScope pops and
	// optionally archives the popped scope under name").
	name string
}

func newScope(outer *Scope) *Scope {
	return &Scope{symbols: map[string]*Entry{}, outer: outer}
}

// Manager is the per-bundle scope stack described in spec.md §4.2.
type Manager struct {
	current  *Scope
	archived map[string]*Scope
}

func NewManager() *Manager {
	return &Manager{archived: map[string]*Scope{}}
}

// NewParseScope pushes a new scope.
func (m *Manager) NewParseScope() {
	m.current = newScope(m.current)
}

// PreviousParseScope pops the current scope. If name is non-empty, the
// popped scope is archived under that name so the analyzer can retrieve a
// method's locals later (e.g. for frame-size computation in the emitter).
func (m *Manager) PreviousParseScope(name string) *Scope {
	popped := m.current
	if popped == nil {
		return nil
	}
	m.current = popped.outer
	if name != "" {
		popped.name = name
		m.archived[name] = popped
	}
	return popped
}

// Archived retrieves a previously archived scope by name.
func (m *Manager) Archived(name string) (*Scope, bool) {
	s, ok := m.archived[name]
	return s, ok
}

// Current returns the innermost live scope.
func (m *Manager) Current() *Scope { return m.current }

// AddEntry rejects duplicates in the current scope and returns a success
// flag, per spec.md §4.2.
func (m *Manager) AddEntry(name string, t *ast.Type, static, local, self bool) (*Entry, bool) {
	if m.current == nil {
		m.NewParseScope()
	}
	if _, exists := m.current.symbols[name]; exists {
		return nil, false
	}
	e := &Entry{Name: name, Type: t, Static: static, Local: local, Self: self}
	m.current.symbols[name] = e
	return e, true
}

// Lookup walks outward from the current scope.
func (m *Manager) Lookup(name string) (*Entry, bool) {
	for s := m.current; s != nil; s = s.outer {
		if e, ok := s.symbols[name]; ok {
			return e, true
		}
	}
	return nil, false
}

// LookupLocal looks up only in the current scope, without walking outward.
func (m *Manager) LookupLocal(name string) (*Entry, bool) {
	if m.current == nil {
		return nil, false
	}
	e, ok := m.current.symbols[name]
	return e, ok
}

// Lookup on a specific archived (or live) Scope, walking its own outer
// chain — used by the emitter when recomputing a method's locals from its
// archived scope (spec.md §4.4 step 1).
func (s *Scope) Lookup(name string) (*Entry, bool) {
	for cur := s; cur != nil; cur = cur.outer {
		if e, ok := cur.symbols[name]; ok {
			return e, true
		}
	}
	return nil, false
}

// Entries returns this scope's own symbols as a map; declaration order is
// not tracked here. Callers that need
// declaration order should walk ast.Method.Declarations and look each up
// individually, which is what the emitter's frame-size pass does.
func (s *Scope) Entries() map[string]*Entry { return s.symbols }

// DefineSelfAndParent installs the two special entries every class scope
// carries: @self (type = the class) and @parent (type = the class, but
// semantic checks follow the parent chain) — spec.md §4.2.
func (m *Manager) DefineSelfAndParent(classType *ast.Type) {
	m.AddEntry("@self", classType, false, false, true)
	m.AddEntry("@parent", classType, false, false, true)
}
