package universe

import (
	"fmt"

	"github.com/eskang/RosAlloy/internal/ir"
)

// ScopeError reports an inconsistent or missing cardinality bound. Scope
// errors surface before any search starts and always name the offending
// signature.
type ScopeError struct {
	Sig    string
	Reason string
}

func (e *ScopeError) Error() string {
	return fmt.Sprintf("scope error for signature %q: %s", e.Sig, e.Reason)
}

func scopeErrf(sig, format string, args ...any) *ScopeError {
	return &ScopeError{Sig: sig, Reason: fmt.Sprintf(format, args...)}
}

// Entry is the resolved cardinality range for one leaf signature. A
// candidate instance uses between Min and Max atoms of the signature;
// Min == Max for exact scopes (one-signatures, ordered signatures, and
// explicit exact requests).
type Entry struct {
	Sig string
	Min int
	Max int
}

// Exact reports whether the entry pins the cardinality.
func (e Entry) Exact() bool { return e.Min == e.Max }

// Table is the resolved scope: one entry per leaf signature, in
// declaration order.
type Table struct {
	Entries []Entry
}

// Entry returns the resolved entry for a leaf signature.
func (t *Table) Entry(sig string) (Entry, bool) {
	for _, e := range t.Entries {
		if e.Sig == sig {
			return e, true
		}
	}
	return Entry{}, false
}

// MaxFor returns the upper bound for sig, summing leaves for non-leaf
// signatures.
func (t *Table) MaxFor(m *ir.Model, sig string) int {
	if e, ok := t.Entry(sig); ok {
		return e.Max
	}
	n := 0
	for _, e := range t.Entries {
		if m.Descends(e.Sig, sig) {
			n += e.Max
		}
	}
	return n
}

// Resolve validates a scope specification against the model's signature
// tree and produces the per-leaf cardinality table.
//
// Rules:
//   - one-signatures resolve to exactly 1; an explicit bound other than 1
//     is a contradiction, never silently adjusted.
//   - lone-signatures resolve to 0..1 (or exactly 0/1 when requested).
//   - ordered signatures are exact at their bound (the generated total
//     order fixes the extent) and must have at least one atom.
//   - other leaves resolve to 0..bound, or exactly bound when the spec
//     marks them exact.
//   - a leaf with neither an explicit bound nor a positive default is an
//     error: a missing bound must never default silently.
//   - an explicit bound on an abstract signature caps its children; child
//     maxima summing above it is an error.
func Resolve(spec ir.ScopeSpec, m *ir.Model) (*Table, error) {
	for sig := range spec.Bounds {
		if _, ok := m.SigByName(sig); !ok {
			return nil, scopeErrf(sig, "bound given for undeclared signature")
		}
	}
	for sig := range spec.Exact {
		if _, ok := m.SigByName(sig); !ok {
			return nil, scopeErrf(sig, "exact flag given for undeclared signature")
		}
	}

	table := &Table{}
	for _, s := range m.Leaves() {
		bound, explicit := spec.Bound(s.Name)
		if bound < 0 {
			return nil, scopeErrf(s.Name, "negative bound %d", bound)
		}

		var entry Entry
		switch {
		case s.Mult == ir.MultOne:
			if explicit && bound != 1 {
				return nil, scopeErrf(s.Name, "one-signature requested with scope %d", bound)
			}
			entry = Entry{Sig: s.Name, Min: 1, Max: 1}
		case s.Mult == ir.MultLone:
			if explicit && bound > 1 {
				return nil, scopeErrf(s.Name, "lone-signature requested with scope %d", bound)
			}
			max := 1
			if explicit {
				max = bound
			}
			min := 0
			if spec.Exact[s.Name] {
				min = max
			}
			entry = Entry{Sig: s.Name, Min: min, Max: max}
		case s.Ordered:
			if !explicit && spec.Default <= 0 {
				return nil, scopeErrf(s.Name, "no bound given and no default scope")
			}
			if bound == 0 {
				return nil, scopeErrf(s.Name, "ordered signature requires at least one atom")
			}
			entry = Entry{Sig: s.Name, Min: bound, Max: bound}
		default:
			if !explicit && spec.Default <= 0 {
				return nil, scopeErrf(s.Name, "no bound given and no default scope")
			}
			min := 0
			if spec.Exact[s.Name] {
				min = bound
			}
			entry = Entry{Sig: s.Name, Min: min, Max: bound}
		}
		table.Entries = append(table.Entries, entry)
	}

	// Explicit bounds on abstract signatures cap their descendants.
	for _, s := range m.Sigs {
		if !s.Abstract {
			continue
		}
		bound, explicit := spec.Bounds[s.Name]
		if !explicit {
			continue
		}
		sum := 0
		for _, e := range table.Entries {
			if m.Descends(e.Sig, s.Name) {
				sum += e.Max
			}
		}
		if sum > bound {
			return nil, scopeErrf(s.Name,
				"child cardinalities sum to %d, above the parent allocation %d", sum, bound)
		}
	}

	return table, nil
}
