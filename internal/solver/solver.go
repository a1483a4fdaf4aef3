// Package solver implements the bounded instance search: given a model, a
// goal formula, and a resolved scope, it either produces a concrete
// instance satisfying all facts and the goal, proves that none exists
// within the scope, or stops at its budget.
//
// The search runs in two layers. The outer layer enumerates cardinality
// vectors: one live-atom count per leaf signature, within the scope's
// range, smallest counts first. The inner layer is a chronological
// backtracking search over individual tuple decisions, pruned by
// three-valued fact evaluation: as soon as any fact is definitely false
// under the current bounds, the branch is abandoned. Decisions the facts
// already entail are propagated instead of branched on, and assignments
// that merely permute interchangeable atoms are visited once.
package solver

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync/atomic"
	"time"

	"github.com/eskang/RosAlloy/internal/eval"
	"github.com/eskang/RosAlloy/internal/ir"
	"github.com/eskang/RosAlloy/internal/relstore"
	"github.com/eskang/RosAlloy/internal/universe"
)

// Status is the result of a search.
type Status int

const (
	// StatusSat means a satisfying instance was found.
	StatusSat Status = iota
	// StatusUnsat means the whole scope was exhausted without one.
	StatusUnsat
	// StatusTimeout means the node or time budget ran out first.
	StatusTimeout
)

func (s Status) String() string {
	return [...]string{"sat", "unsat", "timeout"}[s]
}

// Instance is a concrete valuation: live atoms per signature and a
// decided tuple set per relation, ordering relations included.
type Instance struct {
	Sigs map[string][]universe.Atom
	Rels map[string]relstore.TupleSet
}

// Stats describes the work a search performed.
type Stats struct {
	// Nodes counts tuple decisions tried, across all branches.
	Nodes int64
	// Vectors counts cardinality vectors entered.
	Vectors int64
	Elapsed time.Duration
}

// Outcome is the full result of Solve.
type Outcome struct {
	Status   Status
	Instance *Instance
	Stats    Stats
}

// Budget limits a search. Zero fields mean unlimited.
type Budget struct {
	MaxNodes    int64
	MaxDuration time.Duration
}

// InvariantError reports that the final classical re-validation of a
// completed instance contradicted the incremental three-valued checks.
// It always indicates a solver defect, never a model problem.
type InvariantError struct {
	Fact string
	// Witness names the binding refuting the fact, when one atom does.
	Witness string
}

func (e *InvariantError) Error() string {
	if e.Witness != "" {
		return fmt.Sprintf("solver invariant violated: fact %q is false on a completed instance (witness %s)",
			e.Fact, e.Witness)
	}
	return fmt.Sprintf("solver invariant violated: fact %q is false on a completed instance", e.Fact)
}

// Option configures a search.
type Option func(*config)

type config struct {
	budget  Budget
	workers int
	log     *slog.Logger
}

// WithBudget bounds the search.
func WithBudget(b Budget) Option {
	return func(c *config) { c.budget = b }
}

// WithWorkers searches cardinality vectors on n goroutines. With one
// worker the search is fully deterministic; with more, which satisfying
// instance is found first may vary between runs.
func WithWorkers(n int) Option {
	return func(c *config) { c.workers = n }
}

// WithLogger sets the search's structured logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *config) { c.log = log }
}

// Solve searches the scope for an instance satisfying every fact of the
// model plus the goal formula. The model must have passed Validate and
// the table must come from universe.Resolve.
func Solve(ctx context.Context, m *ir.Model, goal ir.Formula, table *universe.Table, opts ...Option) (Outcome, error) {
	cfg := config{workers: 1, log: slog.Default()}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.workers < 1 {
		cfg.workers = 1
	}

	s := &searcher{
		model: m,
		uni:   universe.New(m, table),
		cfg:   cfg,
	}
	s.compileFacts(goal)

	start := time.Now()
	if cfg.budget.MaxDuration > 0 {
		s.deadline = start.Add(cfg.budget.MaxDuration)
	}

	vectors := enumerateVectors(table)
	s.cfg.log.Debug("search starting",
		"model", m.Name,
		"vectors", len(vectors),
		"workers", cfg.workers)

	var (
		inst *Instance
		err  error
	)
	if cfg.workers == 1 {
		inst, err = s.searchSequential(ctx, vectors)
	} else {
		inst, err = s.searchParallel(ctx, vectors)
	}

	out := Outcome{
		Stats: Stats{
			Nodes:   s.nodes.Load(),
			Vectors: s.vectors.Load(),
			Elapsed: time.Since(start),
		},
	}
	switch {
	case err != nil:
		if err == errBudget || err == errCanceled {
			out.Status = StatusTimeout
			return out, nil
		}
		return out, err
	case inst != nil:
		out.Status = StatusSat
		out.Instance = inst
	default:
		out.Status = StatusUnsat
	}
	return out, nil
}

// errBudget aborts the search tree when a budget runs out; Solve turns it
// into StatusTimeout. errCanceled does the same for context cancellation,
// which in parallel mode also stops the losing workers.
var (
	errBudget   = fmt.Errorf("solver: budget exhausted")
	errCanceled = fmt.Errorf("solver: search canceled")
)

type searcher struct {
	model *ir.Model
	uni   *universe.Universe
	cfg   config

	// facts holds the model's facts, one synthesized multiplicity fact
	// per constrained relation, and the goal, in stable check order.
	facts []ir.Fact
	// refs maps a relation name to the facts that mention it, so a tuple
	// decision re-checks only the facts it can affect.
	refs map[string][]int

	deadline time.Time
	nodes    atomic.Int64
	vectors  atomic.Int64
}

// compileFacts assembles the fact list and the relation-to-fact index.
func (s *searcher) compileFacts(goal ir.Formula) {
	s.facts = append(s.facts, s.model.Facts...)
	for _, r := range s.model.Rels {
		if f, ok := multiplicityFact(s.model, r); ok {
			s.facts = append(s.facts, f)
		}
	}
	s.facts = append(s.facts, ir.Fact{Name: "goal", Body: goal})

	s.refs = make(map[string][]int)
	for i, f := range s.facts {
		for _, name := range s.model.Refs(f.Body) {
			s.refs[name] = append(s.refs[name], i)
		}
	}
}

// multiplicityFact renders a relation's declared multiplicity as a
// quantified constraint on its last column: for every prefix, "one" means
// exactly one target and "lone" at most one.
func multiplicityFact(m *ir.Model, r ir.Rel) (ir.Fact, bool) {
	if r.Mult == ir.MultSet {
		return ir.Fact{}, false
	}
	target := ir.Expr(ir.Name(r.Name))
	for i := 0; i < len(r.Columns)-1; i++ {
		target = ir.Join(ir.Var(multVar(i)), target)
	}
	var body ir.Formula
	if r.Mult == ir.MultOne {
		body = ir.One(target)
	} else {
		body = ir.Lone(target)
	}
	for i := len(r.Columns) - 2; i >= 0; i-- {
		body = ir.All(multVar(i), ir.Name(r.Columns[i]), body)
	}
	return ir.Fact{Name: "mult/" + r.Name, Body: body}, true
}

func multVar(i int) string { return fmt.Sprintf("$m%d", i) }

// vector assigns a live-atom count to every leaf signature.
type vector map[string]int

// enumerateVectors lists every cardinality vector in the scope, leaves in
// declaration order with the last leaf varying fastest, so the all-minima
// vector comes first and counts grow lexicographically.
func enumerateVectors(table *universe.Table) []vector {
	vectors := []vector{{}}
	for _, e := range table.Entries {
		var next []vector
		for _, v := range vectors {
			for n := e.Min; n <= e.Max; n++ {
				grown := make(vector, len(v)+1)
				for k, c := range v {
					grown[k] = c
				}
				grown[e.Sig] = n
				next = append(next, grown)
			}
		}
		vectors = next
	}
	return vectors
}

func (s *searcher) searchSequential(ctx context.Context, vectors []vector) (*Instance, error) {
	for _, v := range vectors {
		inst, err := s.searchVector(ctx, v)
		if err != nil {
			return nil, err
		}
		if inst != nil {
			return inst, nil
		}
	}
	return nil, nil
}

// searchVector fixes one cardinality vector and runs the tuple-decision
// search under it. A nil instance with a nil error means the vector is
// exhausted.
func (s *searcher) searchVector(ctx context.Context, v vector) (*Instance, error) {
	s.vectors.Add(1)
	store := s.buildStore(v)
	ev := eval.New(s.model, store)
	sym := s.buildSymmetry(v, store)

	// Facts can already be settled by the extents alone.
	for _, f := range s.facts {
		if ev.Formula(f.Body, nil) == eval.False {
			return nil, nil
		}
	}
	if err := s.propagate(ctx, store, ev); err != nil {
		if err == errConflict {
			return nil, nil
		}
		return nil, err
	}
	if sym.broken(store) {
		return nil, nil
	}
	return s.decide(ctx, store, ev, v, sym)
}

// errConflict signals a dead branch during propagation.
var errConflict = fmt.Errorf("solver: propagation conflict")

// decide picks the next undecided tuple and branches on it, excluding
// first so minimal instances surface before padded ones.
func (s *searcher) decide(ctx context.Context, store *relstore.Store, ev *eval.Evaluator, v vector, sym *symmetry) (*Instance, error) {
	rel, tuple, ok := s.nextDecision(store)
	if !ok {
		return s.finish(store, ev, v)
	}

	for _, include := range []bool{false, true} {
		if err := s.spend(ctx); err != nil {
			return nil, err
		}
		mark := store.Mark()
		b, _ := store.Bounds(rel)
		if include {
			store.Set(rel, b.Include(tuple))
		} else {
			store.Set(rel, b.Exclude(tuple))
		}

		viable := s.recheck(ev, rel)
		if viable {
			if err := s.propagate(ctx, store, ev); err != nil {
				if err != errConflict {
					return nil, err
				}
				viable = false
			}
		}
		if viable && sym.broken(store) {
			viable = false
		}
		if viable {
			inst, err := s.decide(ctx, store, ev, v, sym)
			if err != nil {
				return nil, err
			}
			if inst != nil {
				return inst, nil
			}
		}
		store.Undo(mark)
	}
	return nil, nil
}

// nextDecision returns the first undecided tuple, scanning relations in
// declaration order and tuples in decision order.
func (s *searcher) nextDecision(store *relstore.Store) (string, relstore.Tuple, bool) {
	for _, r := range s.model.Rels {
		b, _ := store.Bounds(r.Name)
		undecided := b.Undecided()
		if undecided.Empty() {
			continue
		}
		tuples := s.decisionOrder(r, undecided.Tuples())
		return r.Name, tuples[0], true
	}
	return "", nil, false
}

// decisionOrder sorts candidate tuples with ordered-signature columns as
// the most significant keys, so the search sweeps time-like columns in
// chronological order and counterexample traces read front to back.
func (s *searcher) decisionOrder(r ir.Rel, tuples []relstore.Tuple) []relstore.Tuple {
	ordered := make([]int, 0, len(r.Columns))
	plain := make([]int, 0, len(r.Columns))
	for i, col := range r.Columns {
		if sig, ok := s.model.SigByName(col); ok && sig.Ordered {
			ordered = append(ordered, i)
		} else {
			plain = append(plain, i)
		}
	}
	keyCols := append(ordered, plain...)

	out := make([]relstore.Tuple, len(tuples))
	copy(out, tuples)
	sort.SliceStable(out, func(i, j int) bool {
		for _, c := range keyCols {
			a, b := out[i][c], out[j][c]
			if a.Sig != b.Sig {
				return a.Sig < b.Sig
			}
			if a.Idx != b.Idx {
				return a.Idx < b.Idx
			}
		}
		return false
	})
	return out
}

// recheck evaluates the facts that mention the changed relation; false
// means the branch is dead.
func (s *searcher) recheck(ev *eval.Evaluator, rel string) bool {
	for _, i := range s.refs[rel] {
		if ev.Formula(s.facts[i].Body, nil) == eval.False {
			return false
		}
	}
	return true
}

// propagate tightens bounds to a fixed point after a decision. Two rules
// fire: multiplicity unit propagation, and entailment probing on the
// decision frontier. Forced decisions are charged to the budget and
// re-check affected facts like explicit ones.
func (s *searcher) propagate(ctx context.Context, store *relstore.Store, ev *eval.Evaluator) error {
	for changed := true; changed; {
		changed = false
		forced, err := s.propagateMult(ctx, store, ev)
		if err != nil {
			return err
		}
		changed = changed || forced
		forced, err = s.probeFrontier(ctx, store, ev)
		if err != nil {
			return err
		}
		changed = changed || forced
	}
	return nil
}

// propagateMult runs multiplicity unit propagation: when a mult-one
// relation has exactly one candidate left for some prefix, that tuple is
// forced in. Prefixes are visited in tuple order, so forcing order and
// node accounting are identical across runs.
func (s *searcher) propagateMult(ctx context.Context, store *relstore.Store, ev *eval.Evaluator) (bool, error) {
	forced := false
	for _, r := range s.model.Rels {
		if r.Mult != ir.MultOne || len(r.Columns) < 2 {
			continue
		}
		b, _ := store.Bounds(r.Name)
		decided := make(map[string]bool)
		for _, t := range b.Lower.Tuples() {
			decided[prefixKey(t)] = true
		}
		var keys []string
		candidates := make(map[string][]relstore.Tuple)
		for _, t := range b.Undecided().Tuples() {
			k := prefixKey(t)
			if decided[k] {
				continue
			}
			if candidates[k] == nil {
				keys = append(keys, k)
			}
			candidates[k] = append(candidates[k], t)
		}
		for _, k := range keys {
			ts := candidates[k]
			if len(ts) != 1 {
				continue
			}
			if err := s.spend(ctx); err != nil {
				return false, err
			}
			b, _ = store.Bounds(r.Name)
			store.Set(r.Name, b.Include(ts[0]))
			if !s.recheck(ev, r.Name) {
				return false, errConflict
			}
			forced = true
		}
	}
	return forced, nil
}

// probeFrontier tries both sides of every undecided tuple of the first
// open relation: a side that already falsifies a referencing fact forces
// the other side. Probing only the frontier keeps the pass cheap; later
// relations are reached as the frontier advances, so chains of entailed
// decisions resolve without branching.
func (s *searcher) probeFrontier(ctx context.Context, store *relstore.Store, ev *eval.Evaluator) (bool, error) {
	forced := false
	for _, r := range s.model.Rels {
		b, _ := store.Bounds(r.Name)
		undecided := b.Undecided()
		if undecided.Empty() {
			continue
		}
		if len(s.refs[r.Name]) == 0 {
			break
		}
		for _, t := range s.decisionOrder(r, undecided.Tuples()) {
			b, _ = store.Bounds(r.Name)
			if b.Lower.Contains(t) || !b.Upper.Contains(t) {
				continue
			}
			f, err := s.probe(ctx, store, ev, r.Name, t)
			if err != nil {
				return false, err
			}
			forced = forced || f
		}
		break
	}
	return forced, nil
}

// probe tests one tuple in both directions. Three-valued evaluation is
// monotone, so a fact that is false with the tuple included stays false
// in every refinement that includes it; the tuple can be excluded for the
// whole branch, and symmetrically for inclusion.
func (s *searcher) probe(ctx context.Context, store *relstore.Store, ev *eval.Evaluator, rel string, t relstore.Tuple) (bool, error) {
	b, _ := store.Bounds(rel)

	mark := store.Mark()
	store.Set(rel, b.Include(t))
	viable := s.recheck(ev, rel)
	store.Undo(mark)
	if !viable {
		if err := s.spend(ctx); err != nil {
			return false, err
		}
		store.Set(rel, b.Exclude(t))
		if !s.recheck(ev, rel) {
			return false, errConflict
		}
		return true, nil
	}

	mark = store.Mark()
	store.Set(rel, b.Exclude(t))
	viable = s.recheck(ev, rel)
	store.Undo(mark)
	if !viable {
		if err := s.spend(ctx); err != nil {
			return false, err
		}
		store.Set(rel, b.Include(t))
		if !s.recheck(ev, rel) {
			return false, errConflict
		}
		return true, nil
	}
	return false, nil
}

func prefixKey(t relstore.Tuple) string {
	return relstore.Tuple(t[:len(t)-1]).Key()
}

// finish re-validates a fully decided store classically and builds the
// instance. The incremental checks make a false fact here impossible;
// if it happens anyway the search must not report a bogus instance.
func (s *searcher) finish(store *relstore.Store, ev *eval.Evaluator, v vector) (*Instance, error) {
	for _, f := range s.facts {
		if ev.Formula(f.Body, nil) != eval.True {
			inv := &InvariantError{Fact: f.Name}
			if w, ok := ev.FailingWitness(f.Body, nil); ok {
				inv.Witness = w.ID()
			}
			return nil, inv
		}
	}
	return s.buildInstance(store, v), nil
}

// spend charges one node against the budget.
func (s *searcher) spend(ctx context.Context) error {
	n := s.nodes.Add(1)
	if s.cfg.budget.MaxNodes > 0 && n > s.cfg.budget.MaxNodes {
		return errBudget
	}
	// Clock and context checks are amortized.
	if n%1024 == 0 {
		if !s.deadline.IsZero() && time.Now().After(s.deadline) {
			return errBudget
		}
		if ctx.Err() != nil {
			return errCanceled
		}
	}
	return nil
}
