// Package compiler turns CUE model definitions into the analysis IR.
//
// A model file declares its vocabulary and constraints as plain CUE
// structs:
//
//	model: "handoff"
//
//	sig: {
//		Time: {ordered: true}
//		Node: {abstract: true}
//		Sender: {extends: "Node", mult: "one"}
//	}
//
//	rel: {
//		at: {columns: ["Msg", "Time"], mult: "one"}
//	}
//
//	fact: {
//		stamped: {all: {var: "m", over: "Msg", body: {some: {join: [{var: "m"}, "at"]}}}}
//	}
//
// Expressions and formulas are structured operator nodes, one operator
// field per struct; a bare string is shorthand for a name reference.
// Compilation uses the CUE Go API directly and finishes by running the
// IR's structural validation, so a compiled model is always safe to
// solve.
package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/token"

	"github.com/eskang/RosAlloy/internal/ir"
)

// CompileError reports a malformed model definition with its CUE
// position when one is available.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func errf(v cue.Value, field, format string, args ...any) *CompileError {
	return &CompileError{Field: field, Message: fmt.Sprintf(format, args...), Pos: v.Pos()}
}

// Compile parses a CUE value holding a complete model definition.
func Compile(v cue.Value) (*ir.Model, error) {
	if err := v.Err(); err != nil {
		return nil, &CompileError{Field: "model", Message: err.Error(), Pos: v.Pos()}
	}

	m := &ir.Model{}

	nameVal := v.LookupPath(cue.ParsePath("model"))
	if !nameVal.Exists() {
		return nil, errf(v, "model", "model name is required")
	}
	name, err := nameVal.String()
	if err != nil {
		return nil, errf(nameVal, "model", "model name must be a string")
	}
	m.Name = name

	if err := compileSection(v, "sig", func(label string, fv cue.Value) error {
		sig, err := compileSig(label, fv)
		if err != nil {
			return err
		}
		m.Sigs = append(m.Sigs, sig)
		return nil
	}); err != nil {
		return nil, err
	}
	if len(m.Sigs) == 0 {
		return nil, errf(v, "sig", "at least one signature is required")
	}

	if err := compileSection(v, "rel", func(label string, fv cue.Value) error {
		rel, err := compileRel(label, fv)
		if err != nil {
			return err
		}
		m.Rels = append(m.Rels, rel)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := compileSection(v, "fact", func(label string, fv cue.Value) error {
		body, err := compileFormula(fv, "fact."+label)
		if err != nil {
			return err
		}
		m.Facts = append(m.Facts, ir.Fact{Name: label, Body: body})
		return nil
	}); err != nil {
		return nil, err
	}

	if err := compileSection(v, "pred", func(label string, fv cue.Value) error {
		p, err := compilePred(label, fv)
		if err != nil {
			return err
		}
		m.Preds = append(m.Preds, p)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := compileSection(v, "fun", func(label string, fv cue.Value) error {
		f, err := compileFun(label, fv)
		if err != nil {
			return err
		}
		m.Funs = append(m.Funs, f)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := compileSection(v, "cmd", func(label string, fv cue.Value) error {
		c, err := compileCommand(label, fv)
		if err != nil {
			return err
		}
		m.Commands = append(m.Commands, c)
		return nil
	}); err != nil {
		return nil, err
	}

	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("compiling model %q: %w", m.Name, err)
	}
	return m, nil
}

// compileSection iterates an optional top-level struct field in
// declaration order.
func compileSection(v cue.Value, section string, fn func(label string, fv cue.Value) error) error {
	sv := v.LookupPath(cue.ParsePath(section))
	if !sv.Exists() {
		return nil
	}
	iter, err := sv.Fields()
	if err != nil {
		return errf(sv, section, "must be a struct: %v", err)
	}
	for iter.Next() {
		if err := fn(iter.Label(), iter.Value()); err != nil {
			return err
		}
	}
	return nil
}

func compileSig(name string, v cue.Value) (ir.Sig, error) {
	sig := ir.Sig{Name: name}
	var err error
	if sig.Abstract, err = optBool(v, "abstract"); err != nil {
		return sig, errf(v, "sig."+name, "abstract must be a bool")
	}
	if sig.Ordered, err = optBool(v, "ordered"); err != nil {
		return sig, errf(v, "sig."+name, "ordered must be a bool")
	}
	if ext := v.LookupPath(cue.ParsePath("extends")); ext.Exists() {
		parent, err := ext.String()
		if err != nil {
			return sig, errf(ext, "sig."+name, "extends must name a signature")
		}
		sig.Parent = parent
	}
	mult, err := optMult(v, "sig."+name)
	if err != nil {
		return sig, err
	}
	sig.Mult = mult
	return sig, nil
}

func compileRel(name string, v cue.Value) (ir.Rel, error) {
	rel := ir.Rel{Name: name}
	cols := v.LookupPath(cue.ParsePath("columns"))
	if !cols.Exists() {
		return rel, errf(v, "rel."+name, "columns are required")
	}
	iter, err := cols.List()
	if err != nil {
		return rel, errf(cols, "rel."+name, "columns must be a list of signature names")
	}
	for iter.Next() {
		col, err := iter.Value().String()
		if err != nil {
			return rel, errf(iter.Value(), "rel."+name, "column must be a signature name")
		}
		rel.Columns = append(rel.Columns, col)
	}
	mult, err := optMult(v, "rel."+name)
	if err != nil {
		return rel, err
	}
	rel.Mult = mult
	return rel, nil
}

func compilePred(name string, v cue.Value) (ir.Pred, error) {
	params, err := compileParams(v, "pred."+name)
	if err != nil {
		return ir.Pred{}, err
	}
	bodyVal := v.LookupPath(cue.ParsePath("body"))
	if !bodyVal.Exists() {
		return ir.Pred{}, errf(v, "pred."+name, "body is required")
	}
	body, err := compileFormula(bodyVal, "pred."+name)
	if err != nil {
		return ir.Pred{}, err
	}
	return ir.Pred{Name: name, Params: params, Body: body}, nil
}

func compileFun(name string, v cue.Value) (ir.Fun, error) {
	params, err := compileParams(v, "fun."+name)
	if err != nil {
		return ir.Fun{}, err
	}
	bodyVal := v.LookupPath(cue.ParsePath("body"))
	if !bodyVal.Exists() {
		return ir.Fun{}, errf(v, "fun."+name, "body is required")
	}
	body, err := compileExpr(bodyVal, "fun."+name)
	if err != nil {
		return ir.Fun{}, err
	}
	return ir.Fun{Name: name, Params: params, Body: body}, nil
}

func compileParams(v cue.Value, field string) ([]ir.Param, error) {
	pv := v.LookupPath(cue.ParsePath("params"))
	if !pv.Exists() {
		return nil, nil
	}
	iter, err := pv.List()
	if err != nil {
		return nil, errf(pv, field, "params must be a list")
	}
	var params []ir.Param
	for iter.Next() {
		name, err := stringField(iter.Value(), "name")
		if err != nil {
			return nil, errf(iter.Value(), field, "param name is required")
		}
		sig, err := stringField(iter.Value(), "sig")
		if err != nil {
			return nil, errf(iter.Value(), field, "param sig is required")
		}
		params = append(params, ir.Param{Name: name, Sig: sig})
	}
	return params, nil
}

func compileCommand(name string, v cue.Value) (ir.Command, error) {
	cmd := ir.Command{Name: name}
	checkVal := v.LookupPath(cue.ParsePath("check"))
	runVal := v.LookupPath(cue.ParsePath("run"))
	switch {
	case checkVal.Exists() && runVal.Exists():
		return cmd, errf(v, "cmd."+name, "declare either check or run, not both")
	case checkVal.Exists():
		pred, err := checkVal.String()
		if err != nil {
			return cmd, errf(checkVal, "cmd."+name, "check must name a predicate")
		}
		cmd.Kind = ir.CommandCheck
		cmd.Pred = pred
	case runVal.Exists():
		pred, err := runVal.String()
		if err != nil {
			return cmd, errf(runVal, "cmd."+name, "run must name a predicate")
		}
		cmd.Kind = ir.CommandRun
		cmd.Pred = pred
	default:
		return cmd, errf(v, "cmd."+name, "a command needs a check or run predicate")
	}

	scope, err := compileScope(v.LookupPath(cue.ParsePath("scope")), "cmd."+name)
	if err != nil {
		return cmd, err
	}
	cmd.Scope = scope
	return cmd, nil
}

func compileScope(v cue.Value, field string) (ir.ScopeSpec, error) {
	spec := ir.ScopeSpec{}
	if !v.Exists() {
		return spec, nil
	}
	if dv := v.LookupPath(cue.ParsePath("default")); dv.Exists() {
		n, err := dv.Int64()
		if err != nil {
			return spec, errf(dv, field, "scope default must be an integer")
		}
		spec.Default = int(n)
	}
	if bv := v.LookupPath(cue.ParsePath("bounds")); bv.Exists() {
		iter, err := bv.Fields()
		if err != nil {
			return spec, errf(bv, field, "scope bounds must map signatures to integers")
		}
		spec.Bounds = make(map[string]int)
		for iter.Next() {
			n, err := iter.Value().Int64()
			if err != nil {
				return spec, errf(iter.Value(), field, "bound for %s must be an integer", iter.Label())
			}
			spec.Bounds[iter.Label()] = int(n)
		}
	}
	if ev := v.LookupPath(cue.ParsePath("exact")); ev.Exists() {
		iter, err := ev.List()
		if err != nil {
			return spec, errf(ev, field, "scope exact must list signature names")
		}
		spec.Exact = make(map[string]bool)
		for iter.Next() {
			sig, err := iter.Value().String()
			if err != nil {
				return spec, errf(iter.Value(), field, "exact entries must be signature names")
			}
			spec.Exact[sig] = true
		}
	}
	return spec, nil
}

func stringField(v cue.Value, name string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return "", fmt.Errorf("missing field %q", name)
	}
	return fv.String()
}

func optBool(v cue.Value, name string) (bool, error) {
	fv := v.LookupPath(cue.ParsePath(name))
	if !fv.Exists() {
		return false, nil
	}
	return fv.Bool()
}

func optMult(v cue.Value, field string) (ir.Mult, error) {
	fv := v.LookupPath(cue.ParsePath("mult"))
	if !fv.Exists() {
		return ir.MultSet, nil
	}
	s, err := fv.String()
	if err != nil {
		return ir.MultSet, errf(fv, field, "mult must be a string")
	}
	switch s {
	case "set":
		return ir.MultSet, nil
	case "one":
		return ir.MultOne, nil
	case "lone":
		return ir.MultLone, nil
	default:
		return ir.MultSet, errf(fv, field, "unknown multiplicity %q", s)
	}
}
