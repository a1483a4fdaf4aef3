// Package ir defines the abstract model intermediate representation for the
// bounded relational model finder: signature declarations with inheritance
// and multiplicity, relation declarations, formula and expression ASTs,
// named predicates and functions, and analysis commands with scope specs.
//
// The IR is the engine's input contract. Front-ends (the CUE compiler in
// internal/compiler, test builders in internal/testutil) produce an ir.Model;
// the solver and evaluator consume it read-only. A Model must pass Validate
// before it reaches the solver - semantic problems (undeclared names, arity
// mismatches) are ModelErrors reported at load time, never during search.
//
// The package also provides RFC 8785 canonical JSON serialization and
// SHA-256 digests, used for deterministic instance fingerprints and golden
// file comparison.
package ir
