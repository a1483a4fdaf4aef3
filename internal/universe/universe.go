// Package universe implements the atom pool and scope manager: it
// translates a requested scope into validated per-signature cardinality
// bounds and allocates the finite, typed atom universe the solver searches
// over.
//
// Atoms are opaque identifiers. Only non-abstract (leaf) signatures own
// atoms; an abstract signature's extent is the union of its descendants'
// allocations, so subtype extents are disjoint by construction and exhaust
// the parent.
//
// The universe is immutable once built and safe to share by reference
// across parallel search branches.
package universe

import (
	"fmt"

	"github.com/eskang/RosAlloy/internal/ir"
)

// Atom is one typed, opaque domain individual. Sig names the atom's most
// specific signature; Idx is its position within that signature's
// allocation. Atoms compare by value.
type Atom struct {
	Sig string
	Idx int
}

// ID renders the atom's stable identifier, e.g. "Time$0".
func (a Atom) ID() string { return fmt.Sprintf("%s$%d", a.Sig, a.Idx) }

// Universe is the allocated atom pool for one analysis run.
type Universe struct {
	model *ir.Model
	table *Table
	// atoms holds each leaf signature's allocation, Max atoms per leaf.
	// Which prefix of an allocation is live in a given candidate instance
	// is the solver's first search decision.
	atoms map[string][]Atom
}

// New allocates the atom pool for a resolved scope table.
func New(m *ir.Model, table *Table) *Universe {
	atoms := make(map[string][]Atom, len(table.Entries))
	for _, e := range table.Entries {
		slots := make([]Atom, e.Max)
		for i := range slots {
			slots[i] = Atom{Sig: e.Sig, Idx: i}
		}
		atoms[e.Sig] = slots
	}
	return &Universe{model: m, table: table, atoms: atoms}
}

// Model returns the model this universe was allocated for.
func (u *Universe) Model() *ir.Model { return u.model }

// Table returns the resolved scope table.
func (u *Universe) Table() *Table { return u.table }

// Allocated returns every atom allocated to sig, including atoms of its
// subtypes, in deterministic order (leaves in declaration order, atoms by
// index). The returned slice is shared; callers must not modify it for
// leaf signatures and may modify the fresh slice returned for non-leaves.
func (u *Universe) Allocated(sig string) []Atom {
	if atoms, ok := u.atoms[sig]; ok {
		return atoms
	}
	var out []Atom
	for _, leaf := range u.model.Leaves() {
		if u.model.Descends(leaf.Name, sig) {
			out = append(out, u.atoms[leaf.Name]...)
		}
	}
	return out
}

// Count returns the number of atoms allocated to sig, subtypes included.
func (u *Universe) Count(sig string) int {
	return len(u.Allocated(sig))
}

// Total returns the number of atoms in the whole universe.
func (u *Universe) Total() int {
	n := 0
	for _, atoms := range u.atoms {
		n += len(atoms)
	}
	return n
}
