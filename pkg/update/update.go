// Copyright Consensys Software Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with
// the License. You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on
// an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied. See the License for the
// specific language governing permissions and limitations under the License.
//
// SPDX-License-Identifier: Apache-2.0
package update

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/consensys/go-incr/pkg/contexts"
	"github.com/consensys/go-incr/pkg/eval"
	"github.com/consensys/go-incr/pkg/incr"
	"github.com/consensys/go-incr/pkg/solver"
	"github.com/consensys/go-incr/pkg/syntax"
)

// Options configures the shape of synthesized update code.
type Options struct {
	// UpdateNumbersWithDeltas updates numeric values by adding the change to
	// their current value, rather than assigning the new value outright.
	UpdateNumbersWithDeltas bool
	// SkipStatelessSynthesis inlines subgoals which do not mention the abstract
	// state, rather than issuing them as queries.
	SkipStatelessSynthesis bool
}

// DefaultOptions returns the default update options.
func DefaultOptions() Options {
	return Options{UpdateNumbersWithDeltas: false, SkipStatelessSynthesis: true}
}

// Request describes a value to be maintained in place.  The lvalue holds the
// current value of Exp, and must be updated to hold its value after Op.
type Request struct {
	LVal syntax.Exp
	Exp  syntax.Exp
	Op   syntax.Stm
	// Variables making up the abstract state.
	State []*syntax.Var
	// Assumptions holding before Op executes.
	Assumptions []syntax.Exp
	// Invariants of the abstract state.
	Invariants []syntax.Exp
}

// Updater synthesizes the code which keeps materialized values up to date with
// the abstract state.  Any subexpression which cannot be computed directly is
// issued as a query, to be implemented separately.
type Updater struct {
	engine   *incr.Engine
	options  Options
	funcs    map[string]eval.Func
	handlers []Handler
	// Number of queries issued so far, used for naming.
	queries atomic.Uint64
}

// NewUpdater constructs an updater which reasons using a given engine.
// Uninterpreted functions available to the oracle are given by funcs.
func NewUpdater(engine *incr.Engine, options Options, funcs map[string]eval.Func) *Updater {
	return &Updater{engine: engine, options: options, funcs: funcs}
}

// Register a handler for values of a particular type.  Handlers are consulted
// in order of registration, and the first to accept a type overrides the
// generic update sketches for it.
func (p *Updater) Register(handler Handler) {
	p.handlers = append(p.handlers, handler)
}

// Engine returns the engine used for reasoning.
func (p *Updater) Engine() *incr.Engine {
	return p.engine
}

// MutateInPlace produces code to update an lvalue which tracks a given
// expression, such that it holds the value of that expression after the
// statement of the request executes.  The code runs before the statement does,
// and returns the queries it relies upon.
func (p *Updater) MutateInPlace(ctx context.Context, req Request) (syntax.Stm, []*syntax.Query, error) {
	goals := p.newSubgoals(req.State, req.Assumptions)
	//
	for _, h := range p.handlers {
		if h.Handles(req.LVal.Type()) {
			p.engine.Logger().Debug(fmt.Sprintf("maintaining %s with %s", syntax.Print(req.LVal), h.Name()))
			//
			stm, err := h.MutateInPlace(ctx, p, req, goals)
			//
			return stm, goals.Queries(), err
		}
	}
	// Fallback to an update sketch
	newE, err := incr.Mutate(req.Exp, req.Op)
	if err != nil {
		return nil, nil, err
	}
	//
	return p.SketchUpdate(ctx, req.LVal, req.Exp, newE, req.State, req.Assumptions, req.Invariants)
}

// SketchUpdate produces code to update an lvalue when its value changes from
// old to new, along with the queries that code relies upon.  Variables in
// state make up the abstract state, and the given assumptions are carried over
// into every query.
func (p *Updater) SketchUpdate(ctx context.Context, lval syntax.Exp, old syntax.Exp, new syntax.Exp,
	state []*syntax.Var, assumptions []syntax.Exp, invariants []syntax.Exp) (syntax.Stm, []*syntax.Query, error) {
	goals := p.newSubgoals(state, assumptions)
	stm, err := p.sketch(ctx, lval, old, new, goals, invariants)
	//
	return stm, goals.Queries(), err
}

func (p *Updater) sketch(ctx context.Context, lval syntax.Exp, old syntax.Exp, new syntax.Exp, goals *Subgoals,
	invariants []syntax.Exp) (syntax.Stm, error) {
	same, err := p.provablyEqual(ctx, old, new, goals, invariants)
	if err != nil {
		return nil, err
	} else if same {
		return syntax.Skip, nil
	}
	//
	new = syntax.StripStateVar(new)
	lvalName := syntax.Print(lval)
	//
	switch t := lval.Type().(type) {
	case *syntax.BagType, *syntax.SetType:
		var (
			toAdd = goals.Make(syntax.NewBinary(syntax.Minus, new, old), "additions to "+lvalName)
			toDel = goals.Make(syntax.NewBinary(syntax.Minus, old, new), "deletions from "+lvalName)
		)
		//
		return syntax.SeqOf(
			&syntax.CallStm{Target: lval, Func: syntax.RemoveAll, Arg: toDel},
			&syntax.CallStm{Target: lval, Func: syntax.AddAll, Arg: toAdd}), nil
	case *syntax.IntType:
		if !p.options.UpdateNumbersWithDeltas {
			break
		}
		//
		change := goals.Make(syntax.NewBinary(syntax.Minus, new, old), "delta for "+lvalName)
		//
		return &syntax.Assign{LVal: lval, Rhs: syntax.NewBinary(syntax.Plus, lval, change)}, nil
	case *syntax.TupleType:
		stms := make([]syntax.Stm, len(t.Elems))
		//
		for i := range t.Elems {
			get := func(e syntax.Exp) syntax.Exp { return tupleGet(e, i) }
			//
			if stms[i], err = p.sketch(ctx, get(lval), get(old), get(new), goals, invariants); err != nil {
				return nil, err
			}
		}
		//
		return syntax.SeqOf(stms...), nil
	case *syntax.RecordType:
		stms := make([]syntax.Stm, len(t.Fields))
		//
		for i, f := range t.Fields {
			get := func(e syntax.Exp) syntax.Exp { return getField(e, f) }
			//
			if stms[i], err = p.sketch(ctx, get(lval), get(old), get(new), goals, invariants); err != nil {
				return nil, err
			}
		}
		//
		return syntax.SeqOf(stms...), nil
	case *syntax.MapType:
		return p.sketchMap(ctx, lval, t, old, new, goals, invariants)
	}
	// Compute the new value from scratch
	return &syntax.Assign{LVal: lval, Rhs: goals.Make(new, "new value for "+lvalName)}, nil
}

// Maps are updated by deleting keys which are no longer present, and then
// updating the value of every key which is new or modified.
func (p *Updater) sketchMap(ctx context.Context, lval syntax.Exp, t *syntax.MapType, old syntax.Exp,
	new syntax.Exp, goals *Subgoals, invariants []syntax.Exp) (syntax.Stm, error) {
	var (
		lvalName = syntax.Print(lval)
		k        = syntax.Fresh(t.Key, "k")
		j        = syntax.Fresh(t.Key, "k")
		v        = syntax.Fresh(t.Value, "v")
		oldKeys  = &syntax.MapKeys{Map: old}
		newKeys  = &syntax.MapKeys{Map: new}
	)
	// (1) keys which leave the map
	deleted := goals.Make(syntax.NewBinary(syntax.Minus, oldKeys, newKeys), "keys removed from "+lvalName)
	s1 := &syntax.ForEach{Var: k, Bag: deleted, Body: &syntax.MapDel{Map: lval, Key: k}}
	// (2) keys which enter the map, or whose value changes
	modified := syntax.AnyOf(
		syntax.NewNot(syntax.NewBinary(syntax.In, j, oldKeys)),
		syntax.NewNot(syntax.NewEq(ValueAt(old, j), ValueAt(new, j))))
	entering := &syntax.Filter{Source: newKeys, P: syntax.NewLambda(j, modified)}
	// The value at each such key is updated in place
	inner := goals.Extend(syntax.NewBinary(syntax.In, k, entering), syntax.NewEq(v, ValueAt(old, k)))
	//
	body, err := p.sketch(ctx, v, ValueAt(old, k), ValueAt(new, k), inner, invariants)
	if err != nil {
		return nil, err
	}
	//
	entered := goals.Make(entering, "new or modified keys from "+lvalName)
	s2 := &syntax.ForEach{Var: k, Bag: entered, Body: &syntax.MapUpdate{Map: lval, Key: k, Val: v, Body: body}}
	//
	return syntax.SeqOf(s1, s2), nil
}

// Check whether two values are equal whenever the assumptions and invariants
// hold.  Formulas beyond the bounds of the oracle are not considered equal.
func (p *Updater) provablyEqual(ctx context.Context, old syntax.Exp, new syntax.Exp, goals *Subgoals,
	invariants []syntax.Exp) (bool, error) {
	if syntax.AlphaEquivalent(old, new) {
		return true, nil
	}
	//
	var (
		facts = syntax.All(append(append([]syntax.Exp{}, goals.assumptions...), invariants...)...)
		goal  = syntax.NewImplies(facts, syntax.NewEq(syntax.StripStateVar(old), syntax.StripStateVar(new)))
		scope = p.rootScope(goals.state, nil, goal)
	)
	//
	ok, err := p.engine.Oracle(scope).Valid(ctx, goal)
	//
	if errors.Is(err, solver.ErrBounds) {
		p.engine.Logger().Debug(fmt.Sprintf("equality of %s and %s beyond oracle bounds", syntax.Print(old),
			syntax.Print(new)))
		return false, nil
	}
	//
	return ok, err
}

// Construct the root reasoning context for formulas over the abstract state,
// where any other variable (including those of the op) is an argument.
func (p *Updater) rootScope(state []*syntax.Var, op syntax.Stm, exps ...syntax.Exp) contexts.Context {
	var (
		args []*syntax.Var
		vars = syntax.FreeVarsOf(exps...)
		seen = make(map[string]bool)
	)
	//
	if op != nil {
		vars = append(vars, syntax.FreeVarsStm(op)...)
	}
	//
	for _, v := range vars {
		if !seen[v.Name] && !isStateVar(state, v) {
			seen[v.Name] = true
			args = append(args, v)
		}
	}
	//
	return contexts.NewRoot(state, args, p.funcs)
}

// ValueAt constructs the lookup of a key within a map, seeing through map
// constructions and conditionals.
func ValueAt(m syntax.Exp, k syntax.Exp) syntax.Exp {
	switch m := m.(type) {
	case *syntax.MakeMap:
		// Absent keys read the default value
		return syntax.NewCond(syntax.NewBinary(syntax.In, k, m.Keys), m.Value.Apply(k), &syntax.MapGet{Map: m, Key: k})
	case *syntax.Cond:
		return syntax.NewCond(m.Cond, ValueAt(m.Then, k), ValueAt(m.Else, k))
	case *syntax.StateVar:
		return ValueAt(m.Exp, k)
	default:
		return &syntax.MapGet{Map: m, Key: k}
	}
}

// Project a component from a tuple, seeing through its construction.
func tupleGet(e syntax.Exp, i int) syntax.Exp {
	if t, ok := e.(*syntax.MakeTuple); ok {
		return t.Elems[i]
	}
	//
	return &syntax.TupleGet{Tuple: e, Index: i}
}

// Project a field from a record, seeing through its construction.
func getField(e syntax.Exp, f syntax.Field) syntax.Exp {
	if r, ok := e.(*syntax.MakeRecord); ok {
		for _, init := range r.Fields {
			if init.Name == f.Name {
				return init.Value
			}
		}
	}
	//
	return &syntax.GetField{Record: e, Field: f.Name, T: f.Type}
}

func isStateVar(state []*syntax.Var, v *syntax.Var) bool {
	for _, s := range state {
		if s.Name == v.Name {
			return true
		}
	}
	//
	return false
}
