package solver

import (
	"github.com/eskang/RosAlloy/internal/ir"
	"github.com/eskang/RosAlloy/internal/relstore"
	"github.com/eskang/RosAlloy/internal/universe"
)

// buildStore sets up the store for one cardinality vector: leaf extents
// are pinned to the live prefix of their allocation, ordering relations
// are installed exactly, and every declared relation opens with an empty
// lower bound and an upper bound covering all well-typed tuples over the
// live atoms.
func (s *searcher) buildStore(v vector) *relstore.Store {
	vals := make(map[string]relstore.Bounds)

	live := make(map[string][]universe.Atom, len(v))
	for _, e := range s.uni.Table().Entries {
		atoms := s.uni.Allocated(e.Sig)[:v[e.Sig]]
		live[e.Sig] = atoms
		vals[e.Sig] = relstore.Exact(relstore.FromAtoms(atoms))
	}

	for _, sig := range s.model.Sigs {
		if sig.Ordered {
			installOrdering(vals, sig.Name, live[sig.Name])
		}
	}

	for _, r := range s.model.Rels {
		upper := relstore.NewTupleSet(s.candidates(r, live)...)
		vals[r.Name] = relstore.Range(relstore.EmptySet(), upper)
	}
	return relstore.NewStore(vals)
}

// installOrdering pins the total order over an ordered signature's live
// atoms: first and last are singletons, next links consecutive atoms, and
// prevs maps each atom to its strict predecessors.
func installOrdering(vals map[string]relstore.Bounds, sig string, atoms []universe.Atom) {
	first := relstore.EmptySet()
	last := relstore.EmptySet()
	next := relstore.EmptySet()
	prevs := relstore.EmptySet()
	if n := len(atoms); n > 0 {
		first = relstore.Singleton(atoms[0])
		last = relstore.Singleton(atoms[n-1])
		var nextTuples, prevTuples []relstore.Tuple
		for i := 0; i < n-1; i++ {
			nextTuples = append(nextTuples, relstore.Tuple{atoms[i], atoms[i+1]})
		}
		for i := 1; i < n; i++ {
			for j := 0; j < i; j++ {
				prevTuples = append(prevTuples, relstore.Tuple{atoms[i], atoms[j]})
			}
		}
		next = relstore.NewTupleSet(nextTuples...)
		prevs = relstore.NewTupleSet(prevTuples...)
	}
	vals[ir.OrderingRelName(sig, ir.OrdFirst)] = relstore.Exact(first)
	vals[ir.OrderingRelName(sig, ir.OrdLast)] = relstore.Exact(last)
	vals[ir.OrderingRelName(sig, ir.OrdNext)] = relstore.Exact(next)
	vals[ir.OrderingRelName(sig, ir.OrdPrevs)] = relstore.Exact(prevs)
}

// candidates enumerates every well-typed tuple of a relation over the
// live atoms, subtypes included for abstract columns.
func (s *searcher) candidates(r ir.Rel, live map[string][]universe.Atom) []relstore.Tuple {
	columns := make([][]universe.Atom, len(r.Columns))
	for i, col := range r.Columns {
		columns[i] = s.liveAtoms(col, live)
	}
	var out []relstore.Tuple
	var build func(prefix relstore.Tuple, col int)
	build = func(prefix relstore.Tuple, col int) {
		if col == len(columns) {
			t := make(relstore.Tuple, len(prefix))
			copy(t, prefix)
			out = append(out, t)
			return
		}
		for _, a := range columns[col] {
			build(append(prefix, a), col+1)
		}
	}
	build(nil, 0)
	return out
}

// liveAtoms returns the live atoms of a signature, unioning descendant
// leaves for non-leaf signatures.
func (s *searcher) liveAtoms(sig string, live map[string][]universe.Atom) []universe.Atom {
	if atoms, ok := live[sig]; ok {
		return atoms
	}
	var out []universe.Atom
	for _, leaf := range s.model.Leaves() {
		if s.model.Descends(leaf.Name, sig) {
			out = append(out, live[leaf.Name]...)
		}
	}
	return out
}

// buildInstance snapshots a fully decided store into a concrete instance.
// Signature extents cover abstract signatures; relation values include
// the installed ordering relations.
func (s *searcher) buildInstance(store *relstore.Store, v vector) *Instance {
	inst := &Instance{
		Sigs: make(map[string][]universe.Atom, len(s.model.Sigs)),
		Rels: make(map[string]relstore.TupleSet),
	}

	live := make(map[string][]universe.Atom, len(v))
	for _, e := range s.uni.Table().Entries {
		live[e.Sig] = s.uni.Allocated(e.Sig)[:v[e.Sig]]
	}
	for _, sig := range s.model.Sigs {
		inst.Sigs[sig.Name] = s.liveAtoms(sig.Name, live)
	}

	snap := store.Snapshot()
	for _, r := range s.model.Rels {
		inst.Rels[r.Name] = snap[r.Name]
	}
	for _, r := range s.model.OrderingRels() {
		inst.Rels[r.Name] = snap[r.Name]
	}
	return inst
}
