package relstore

import "github.com/eskang/RosAlloy/internal/universe"

// Union returns s ∪ o.
func (s TupleSet) Union(o TupleSet) TupleSet {
	if o.Empty() {
		return s
	}
	if s.Empty() {
		return o
	}
	b := newBuilder(len(s.elems) + len(o.elems))
	for _, t := range s.elems {
		b.add(t)
	}
	for _, t := range o.elems {
		b.add(t)
	}
	return b.set()
}

// Diff returns s \ o.
func (s TupleSet) Diff(o TupleSet) TupleSet {
	if s.Empty() || o.Empty() {
		return s
	}
	b := newBuilder(len(s.elems))
	for _, t := range s.elems {
		if !o.Contains(t) {
			b.add(t)
		}
	}
	return b.set()
}

// Intersect returns s ∩ o.
func (s TupleSet) Intersect(o TupleSet) TupleSet {
	if s.Empty() || o.Empty() {
		return EmptySet()
	}
	b := newBuilder(len(s.elems))
	for _, t := range s.elems {
		if o.Contains(t) {
			b.add(t)
		}
	}
	return b.set()
}

// Join returns the relational join of s and o: tuples (a1..an-1, b2..bm)
// for every a in s and b in o whose last and first atoms agree. Joining an
// n-ary set with an m-ary set yields an (n+m-2)-ary set; both operands
// must have arity at least 1 and their sum must exceed 2.
func (s TupleSet) Join(o TupleSet) TupleSet {
	if s.Empty() || o.Empty() {
		return EmptySet()
	}
	// Bucket the right operand by leading atom.
	byHead := make(map[universe.Atom][]Tuple, len(o.elems))
	for _, t := range o.elems {
		byHead[t[0]] = append(byHead[t[0]], t)
	}
	b := newBuilder(len(s.elems))
	for _, l := range s.elems {
		last := l[len(l)-1]
		for _, r := range byHead[last] {
			joined := make(Tuple, 0, len(l)+len(r)-2)
			joined = append(joined, l[:len(l)-1]...)
			joined = append(joined, r[1:]...)
			b.add(joined)
		}
	}
	return b.set()
}

// Product returns the cross product s -> o.
func (s TupleSet) Product(o TupleSet) TupleSet {
	if s.Empty() || o.Empty() {
		return EmptySet()
	}
	b := newBuilder(len(s.elems) * len(o.elems))
	for _, l := range s.elems {
		for _, r := range o.elems {
			t := make(Tuple, 0, len(l)+len(r))
			t = append(t, l...)
			t = append(t, r...)
			b.add(t)
		}
	}
	return b.set()
}

// Transpose reverses every tuple of a binary set.
func (s TupleSet) Transpose() TupleSet {
	b := newBuilder(len(s.elems))
	for _, t := range s.elems {
		b.add(Tuple{t[1], t[0]})
	}
	return b.set()
}

// Restrict keeps tuples whose atom at column col is in the unary set
// allowed.
func (s TupleSet) Restrict(col int, allowed TupleSet) TupleSet {
	b := newBuilder(len(s.elems))
	for _, t := range s.elems {
		if allowed.Contains(Tuple{t[col]}) {
			b.add(t)
		}
	}
	return b.set()
}
