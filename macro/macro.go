// Package macro implements a parameterised, hygienic-on-labels macro
// preprocessor: %macro/%endmacro blocks are collected into a Table,
// and invocations are expanded with positional/named substitution and
// @@-prefixed label rewriting so a macro's local labels never collide
// across separate invocation sites.
package macro

import "fmt"

// Macro is one %macro ... %endmacro definition.
type Macro struct {
	Name   string
	Params []string
	Body   []string
}

// Table holds the macros discovered by a Collect scan.
type Table struct {
	macros map[string]*Macro
}

// NewTable creates an empty macro table.
func NewTable() *Table {
	return &Table{macros: make(map[string]*Macro)}
}

// Define registers a macro. Redefinition is an error: the preprocessor
// has no notion of overloads or shadowing.
func (t *Table) Define(m *Macro) error {
	if _, exists := t.macros[m.Name]; exists {
		return fmt.Errorf("macro %q already defined", m.Name)
	}
	t.macros[m.Name] = m
	return nil
}

// Lookup finds a macro by name (case-sensitive: invocations name macros
// exactly as %NAME).
func (t *Table) Lookup(name string) (*Macro, bool) {
	m, ok := t.macros[name]
	return m, ok
}

// reserved lists section markers that are never treated as macro
// invocations even though they begin with '%'. %string and %strings are
// accepted as aliases for %data and so must not be shadowed by a
// same-named macro either.
var reserved = map[string]bool{
	"asm": true, "data": true, "main": true, "entry": true, "endmacro": true,
	"macro": true, "string": true, "strings": true,
}

// IsReserved reports whether name (without the leading '%') is a section
// marker rather than a possible macro invocation.
func IsReserved(name string) bool {
	return reserved[name]
}
