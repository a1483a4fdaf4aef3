// Package relstore implements the relation store: immutable tuple sets
// with pure relational operators, partial relation values as lower/upper
// bounds, and a backtracking store with an undo trail.
//
// Tuple sets are value-like: every operator returns a new set and never
// mutates its operands, so search branches can share them freely. The
// store itself is the only mutable piece, and its trail makes backtracking
// an O(1)-amortized pointer rewind rather than a deep copy.
package relstore

import (
	"sort"
	"strings"

	"github.com/eskang/RosAlloy/internal/universe"
)

// Tuple is an ordered list of atoms. Tuples are immutable after
// construction.
type Tuple []universe.Atom

// Key renders a stable identifier for the tuple, e.g. "Event$0,Time$1".
func (t Tuple) Key() string {
	ids := make([]string, len(t))
	for i, a := range t {
		ids[i] = a.ID()
	}
	return strings.Join(ids, ",")
}

// compareAtoms orders atoms by signature name, then index.
func compareAtoms(a, b universe.Atom) int {
	if a.Sig != b.Sig {
		if a.Sig < b.Sig {
			return -1
		}
		return 1
	}
	switch {
	case a.Idx < b.Idx:
		return -1
	case a.Idx > b.Idx:
		return 1
	default:
		return 0
	}
}

// compareTuples orders tuples element-wise; shorter tuples sort first.
func compareTuples(a, b Tuple) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := compareAtoms(a[i], b[i]); c != 0 {
			return c
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}

// TupleSet is an immutable, deterministically ordered set of same-arity
// tuples.
type TupleSet struct {
	elems []Tuple
}

// EmptySet is the empty tuple set.
func EmptySet() TupleSet { return TupleSet{} }

// NewTupleSet builds a set from tuples, deduplicating and sorting.
func NewTupleSet(tuples ...Tuple) TupleSet {
	b := newBuilder(len(tuples))
	for _, t := range tuples {
		b.add(t)
	}
	return b.set()
}

// Singleton builds a unary set holding one atom.
func Singleton(a universe.Atom) TupleSet {
	return NewTupleSet(Tuple{a})
}

// FromAtoms builds a unary set from a slice of atoms.
func FromAtoms(atoms []universe.Atom) TupleSet {
	b := newBuilder(len(atoms))
	for _, a := range atoms {
		b.add(Tuple{a})
	}
	return b.set()
}

// Len returns the number of tuples.
func (s TupleSet) Len() int { return len(s.elems) }

// Empty reports whether the set has no tuples.
func (s TupleSet) Empty() bool { return len(s.elems) == 0 }

// Tuples returns the tuples in deterministic order. The slice is shared;
// callers must not modify it.
func (s TupleSet) Tuples() []Tuple { return s.elems }

// Contains reports tuple membership.
func (s TupleSet) Contains(t Tuple) bool {
	i := sort.Search(len(s.elems), func(i int) bool {
		return compareTuples(s.elems[i], t) >= 0
	})
	return i < len(s.elems) && compareTuples(s.elems[i], t) == 0
}

// Equal reports set equality.
func (s TupleSet) Equal(o TupleSet) bool {
	if len(s.elems) != len(o.elems) {
		return false
	}
	for i := range s.elems {
		if compareTuples(s.elems[i], o.elems[i]) != 0 {
			return false
		}
	}
	return true
}

// SubsetOf reports whether every tuple of s is in o.
func (s TupleSet) SubsetOf(o TupleSet) bool {
	for _, t := range s.elems {
		if !o.Contains(t) {
			return false
		}
	}
	return true
}

// With returns s plus tuple.
func (s TupleSet) With(t Tuple) TupleSet {
	if s.Contains(t) {
		return s
	}
	b := newBuilder(len(s.elems) + 1)
	for _, e := range s.elems {
		b.add(e)
	}
	b.add(t)
	return b.set()
}

// Without returns s minus tuple.
func (s TupleSet) Without(t Tuple) TupleSet {
	if !s.Contains(t) {
		return s
	}
	b := newBuilder(len(s.elems) - 1)
	for _, e := range s.elems {
		if compareTuples(e, t) != 0 {
			b.add(e)
		}
	}
	return b.set()
}

// builder accumulates tuples and produces a sorted, deduplicated set.
type builder struct {
	elems []Tuple
	seen  map[string]bool
}

func newBuilder(capacity int) *builder {
	return &builder{
		elems: make([]Tuple, 0, capacity),
		seen:  make(map[string]bool, capacity),
	}
}

func (b *builder) add(t Tuple) {
	k := t.Key()
	if b.seen[k] {
		return
	}
	b.seen[k] = true
	b.elems = append(b.elems, t)
}

func (b *builder) set() TupleSet {
	sort.Slice(b.elems, func(i, j int) bool {
		return compareTuples(b.elems[i], b.elems[j]) < 0
	})
	return TupleSet{elems: b.elems}
}
