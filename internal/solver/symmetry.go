package solver

import (
	"github.com/eskang/RosAlloy/internal/relstore"
	"github.com/eskang/RosAlloy/internal/universe"
)

// symmetry prunes mirrored assignments. Atoms of an unordered leaf
// signature carry no structure of their own, so swapping two of them
// turns any assignment into an equivalent one. The search keeps only
// assignments whose decision vector is lexicographically minimal under
// adjacent atom swaps; every equivalence class retains its minimal
// members, so satisfiability within a cardinality vector is unchanged.
type symmetry struct {
	slots []symSlot
	// swaps holds one slot permutation per adjacent pair of
	// interchangeable atoms.
	swaps [][]int
}

// symSlot is one candidate tuple's position in the global decision
// vector.
type symSlot struct {
	rel   string
	tuple relstore.Tuple
}

// buildSymmetry fixes the global candidate order and the swap
// permutations for one cardinality vector. Ordered signatures are left
// alone, their atoms are distinguished by the ordering relations. Returns
// nil when no signature has two interchangeable atoms.
func (s *searcher) buildSymmetry(v vector, store *relstore.Store) *symmetry {
	sym := &symmetry{}
	pos := make(map[string]int)
	for _, r := range s.model.Rels {
		b, _ := store.Bounds(r.Name)
		for _, t := range s.decisionOrder(r, b.Upper.Tuples()) {
			pos[slotKey(r.Name, t)] = len(sym.slots)
			sym.slots = append(sym.slots, symSlot{rel: r.Name, tuple: t})
		}
	}
	for _, e := range s.uni.Table().Entries {
		if sig, ok := s.model.SigByName(e.Sig); ok && sig.Ordered {
			continue
		}
		atoms := s.uni.Allocated(e.Sig)[:v[e.Sig]]
		for i := 0; i+1 < len(atoms); i++ {
			sym.swaps = append(sym.swaps, sym.swapImage(pos, atoms[i], atoms[i+1]))
		}
	}
	if len(sym.swaps) == 0 {
		return nil
	}
	return sym
}

func slotKey(rel string, t relstore.Tuple) string {
	return rel + "\x00" + t.Key()
}

// swapImage maps every slot to the slot its tuple lands on when atoms a
// and b trade places. Candidate sets are cartesian products over live
// atoms, so the image of a candidate is always a candidate.
func (sym *symmetry) swapImage(pos map[string]int, a, b universe.Atom) []int {
	out := make([]int, len(sym.slots))
	for i, sl := range sym.slots {
		out[i] = pos[slotKey(sl.rel, swapAtoms(sl.tuple, a, b))]
	}
	return out
}

func swapAtoms(t relstore.Tuple, a, b universe.Atom) relstore.Tuple {
	touched := false
	for _, x := range t {
		if x == a || x == b {
			touched = true
			break
		}
	}
	if !touched {
		return t
	}
	out := make(relstore.Tuple, len(t))
	for i, x := range t {
		switch x {
		case a:
			out[i] = b
		case b:
			out[i] = a
		default:
			out[i] = x
		}
	}
	return out
}

// broken reports whether the decided part of the store already proves the
// assignment larger than one of its mirrors. The comparison walks the
// candidate order and stops at the first undecided slot, so only certain
// violations prune; a pruned branch always has a mirror the search still
// visits.
func (sym *symmetry) broken(store *relstore.Store) bool {
	if sym == nil {
		return false
	}
	bounds := make(map[string]relstore.Bounds, 8)
	val := func(i int) int8 {
		sl := sym.slots[i]
		b, ok := bounds[sl.rel]
		if !ok {
			b, _ = store.Bounds(sl.rel)
			bounds[sl.rel] = b
		}
		switch {
		case b.Lower.Contains(sl.tuple):
			return 1
		case !b.Upper.Contains(sl.tuple):
			return 0
		default:
			return -1
		}
	}

	for _, swap := range sym.swaps {
		for i := range sym.slots {
			x := val(i)
			if x < 0 {
				break
			}
			y := val(swap[i])
			if y < 0 {
				break
			}
			if x == y {
				continue
			}
			if x > y {
				return true
			}
			break
		}
	}
	return false
}
