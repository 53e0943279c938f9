package sqlparse

import "strings"

// AliasEntry is one output-column binding: the declared (or implied)
// alias and the expression text it stands for, both lower-cased.
type AliasEntry struct {
	Alias string
	Expr  string
}

// AliasMap maps output aliases to their underlying expression text.
// Iteration order is declaration order; substitution depends on it.
type AliasMap struct {
	entries       []AliasEntry
	index         map[string]int
	subqueryLocal map[string]struct{}
}

func NewAliasMap() *AliasMap {
	return &AliasMap{
		index:         make(map[string]int),
		subqueryLocal: make(map[string]struct{}),
	}
}

// Put records alias -> expr. Re-declaring an alias overwrites the
// expression but keeps the alias's original position.
func (m *AliasMap) Put(alias, expr string) {
	if i, ok := m.index[alias]; ok {
		m.entries[i].Expr = expr
		return
	}
	m.index[alias] = len(m.entries)
	m.entries = append(m.entries, AliasEntry{Alias: alias, Expr: expr})
}

func (m *AliasMap) Get(alias string) (string, bool) {
	i, ok := m.index[alias]
	if !ok {
		return "", false
	}
	return m.entries[i].Expr, true
}

// Entries returns the bindings in declaration order.
func (m *AliasMap) Entries() []AliasEntry {
	return m.entries
}

func (m *AliasMap) Len() int {
	return len(m.entries)
}

// MarkSubqueryLocal flags an alias as a pass-through column local to a
// subquery; such aliases are excluded from SELECT synthesis.
func (m *AliasMap) MarkSubqueryLocal(alias string) {
	m.subqueryLocal[alias] = struct{}{}
}

func (m *AliasMap) IsSubqueryLocal(alias string) bool {
	_, ok := m.subqueryLocal[alias]
	return ok
}

// Substitute replaces the first matching alias expression found in s
// with its alias. The match policy is first-found in declaration
// order, not longest match; an unmatched token passes through
// unchanged.
func (m *AliasMap) Substitute(s string) string {
	for _, e := range m.entries {
		if e.Expr != "" && strings.Contains(s, e.Expr) {
			return strings.ReplaceAll(s, e.Expr, e.Alias)
		}
	}
	return s
}
