// Copyright 2023 The Cellref Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package resolve

import "sort"

// A BindingKind classifies an external binding.
type BindingKind uint8

const (
	// KindValue is an ordinary value binding: reading it from another
	// cell is a reactive dependency.
	KindValue BindingKind = iota

	// KindModule is a module-like binding, typically the result of an
	// import. Importing the same module in two cells does not make one
	// depend on the other, so module bindings are never candidates.
	KindModule
)

var bindingKindNames = [...]string{
	KindValue:  "value",
	KindModule: "module",
}

func (k BindingKind) String() string {
	if int(k) < len(bindingKindNames) {
		return bindingKindNames[k]
	}
	return "value"
}

// A Binding describes one name supplied by the environment.
type Binding struct {
	// Cells are the identifiers of the cells that define the name.
	// Usually one; more than one means the definition is conflicting,
	// which is the environment's problem, not the resolver's.
	Cells []string

	Kind BindingKind
}

// A Table is the external binding table: every name the environment
// currently provides, keyed by name. It is supplied by the caller and
// never mutated by the resolver.
type Table map[string]Binding

// Candidates returns the set of names eligible for resolution from the
// perspective of the given cell: value bindings not owned by that cell
// and not owned by the designated non-reactive setup cell. setup may be
// empty. The filtering happens once, up front, so the traversals only
// ever consult the resulting set.
func (t Table) Candidates(cell, setup string) map[string]bool {
	cands := make(map[string]bool, len(t))
	for name, b := range t {
		if b.Kind != KindValue {
			continue
		}
		if ownedBy(b, cell) || (setup != "" && ownedBy(b, setup)) {
			continue
		}
		cands[name] = true
	}
	return cands
}

// Owners returns the identifiers of the cells defining name, sorted.
// It backs jump-to-definition: a resolved reference maps back to the
// cell(s) that produce its value. The result is nil if the name is not
// in the table.
func (t Table) Owners(name string) []string {
	b, ok := t[name]
	if !ok {
		return nil
	}
	owners := make([]string, len(b.Cells))
	copy(owners, b.Cells)
	sort.Strings(owners)
	return owners
}

func ownedBy(b Binding, cell string) bool {
	for _, c := range b.Cells {
		if c == cell {
			return true
		}
	}
	return false
}
