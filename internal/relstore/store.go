package relstore

import "sort"

// Bounds is a partial relation value: tuples in Lower are definitely in
// the relation, tuples outside Upper are definitely out, and tuples in
// Upper but not Lower are undecided. The invariant Lower ⊆ Upper holds
// for every value the store ever sees.
type Bounds struct {
	Lower TupleSet
	Upper TupleSet
}

// Exact builds a fully decided value.
func Exact(ts TupleSet) Bounds {
	return Bounds{Lower: ts, Upper: ts}
}

// Range builds a partial value from an explicit lower and upper set.
func Range(lower, upper TupleSet) Bounds {
	return Bounds{Lower: lower, Upper: upper}
}

// Decided reports whether no tuple remains undecided.
func (b Bounds) Decided() bool {
	return b.Lower.Len() == b.Upper.Len()
}

// Undecided returns the tuples in Upper but not Lower, in deterministic
// order.
func (b Bounds) Undecided() TupleSet {
	return b.Upper.Diff(b.Lower)
}

// Include returns the value with tuple decided in.
func (b Bounds) Include(t Tuple) Bounds {
	return Bounds{Lower: b.Lower.With(t), Upper: b.Upper}
}

// Exclude returns the value with tuple decided out.
func (b Bounds) Exclude(t Tuple) Bounds {
	return Bounds{Lower: b.Lower, Upper: b.Upper.Without(t)}
}

// Store maps relation names to partial values and supports chronological
// backtracking through an undo trail. Mark captures the trail position
// before a sequence of Set calls; Undo rewinds to it, restoring every
// overwritten value in reverse order.
//
// A Store is not safe for concurrent use. Parallel search branches each
// take a Clone and mutate it privately.
type Store struct {
	vals  map[string]Bounds
	trail []trailEntry
}

type trailEntry struct {
	name string
	prev Bounds
}

// NewStore builds a store holding the given initial values.
func NewStore(initial map[string]Bounds) *Store {
	vals := make(map[string]Bounds, len(initial))
	for name, b := range initial {
		vals[name] = b
	}
	return &Store{vals: vals}
}

// Bounds returns the current value of a relation.
func (s *Store) Bounds(name string) (Bounds, bool) {
	b, ok := s.vals[name]
	return b, ok
}

// Set overwrites a relation's value, recording the previous value on the
// trail so Undo can restore it.
func (s *Store) Set(name string, b Bounds) {
	s.trail = append(s.trail, trailEntry{name: name, prev: s.vals[name]})
	s.vals[name] = b
}

// Mark returns the current trail position.
func (s *Store) Mark() int { return len(s.trail) }

// Undo rewinds the trail to a position previously returned by Mark.
func (s *Store) Undo(mark int) {
	for i := len(s.trail) - 1; i >= mark; i-- {
		e := s.trail[i]
		s.vals[e.name] = e.prev
	}
	s.trail = s.trail[:mark]
}

// Clone returns an independent copy with an empty trail. Tuple sets are
// immutable, so the copy shares them structurally.
func (s *Store) Clone() *Store {
	vals := make(map[string]Bounds, len(s.vals))
	for name, b := range s.vals {
		vals[name] = b
	}
	return &Store{vals: vals}
}

// Names returns the stored relation names in sorted order.
func (s *Store) Names() []string {
	names := make([]string, 0, len(s.vals))
	for name := range s.vals {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns the decided relation values, keyed by name. It must
// only be called once every relation is decided; undecided values panic.
func (s *Store) Snapshot() map[string]TupleSet {
	out := make(map[string]TupleSet, len(s.vals))
	for name, b := range s.vals {
		if !b.Decided() {
			panic("relstore: snapshot of undecided relation " + name)
		}
		out[name] = b.Lower
	}
	return out
}
