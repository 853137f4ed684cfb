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
package syntax

import (
	"github.com/consensys/go-incr/pkg/util/source"
	"github.com/consensys/go-incr/pkg/util/source/sexp"
)

// Goal bundles everything needed to incrementalize one expression: the
// abstract state and arguments in scope, assumptions about them, the
// expression being maintained and the statement which changes the state.  A
// goal file contains one or more goals of the form:
//
//	(goal name
//	  (state xs (bag int))
//	  (arg x int)
//	  (assume (!= x 0))
//	  (exp (filter xs (lambda y (!= y 0))))
//	  (op (add xs x)))
type Goal struct {
	Name        string
	State       []*Var
	Args        []*Var
	Assumptions []Exp
	// Invariants hold of the abstract state both before and after the op.
	Invariants []Exp
	Exp        Exp
	Op         Stm
}

// ReadGoals reads all goals from a given source file.
func ReadGoals(file *source.File) ([]*Goal, error) {
	terms, srcmap, perr := sexp.ParseAll(file)
	if perr != nil {
		return nil, perr
	}
	//
	goals := make([]*Goal, len(terms))
	//
	for i, term := range terms {
		var err error
		//
		if goals[i], err = readGoal(newReader(srcmap, nil), term); err != nil {
			return nil, err
		}
	}
	//
	return goals, nil
}

func readGoal(r *reader, s sexp.SExp) (*Goal, error) {
	list := s.AsList()
	//
	if list == nil || !list.MatchSymbols(2, "goal") || list.Get(1).AsSymbol() == nil {
		return nil, r.error(s, "expected (goal name ...)")
	}
	//
	goal := &Goal{Name: list.Get(1).AsSymbol().Value, Op: Skip}
	//
	for _, item := range list.Elements[2:] {
		if err := r.readGoalItem(goal, item); err != nil {
			return nil, err
		}
	}
	//
	if goal.Exp == nil {
		return nil, r.error(s, "goal %s has no expression", goal.Name)
	}
	//
	return goal, nil
}

func (r *reader) readGoalItem(goal *Goal, s sexp.SExp) error {
	var (
		list = s.AsList()
		err  error
	)
	//
	switch {
	case list == nil || list.Len() == 0:
		return r.error(s, "invalid goal item")
	case list.Len() == 3 && (list.MatchSymbols(2, "state") || list.MatchSymbols(2, "arg")):
		var v *Var
		//
		if v, err = r.readDecl(list); err != nil {
			return err
		} else if list.Head() == "state" {
			goal.State = append(goal.State, v)
		} else {
			goal.Args = append(goal.Args, v)
		}
	case list.MatchSymbols(1, "assume") && list.Len() == 2:
		var e Exp
		//
		if e, err = r.readBoolExp(list.Get(1)); err == nil {
			goal.Assumptions = append(goal.Assumptions, e)
		}
	case list.MatchSymbols(1, "invariant") && list.Len() == 2:
		var e Exp
		//
		if e, err = r.readBoolExp(list.Get(1)); err == nil {
			goal.Invariants = append(goal.Invariants, e)
		}
	case list.MatchSymbols(1, "exp") && list.Len() == 2:
		goal.Exp, err = r.readExp(list.Get(1))
	case list.MatchSymbols(1, "op") && list.Len() == 2:
		// Declarations made by the statement are not visible afterwards
		n := len(r.scope)
		goal.Op, err = r.readStm(list.Get(1))
		r.scope = r.scope[:n]
	default:
		return r.error(s, "invalid goal item")
	}
	//
	return err
}

func (r *reader) readDecl(list *sexp.List) (*Var, error) {
	if list.Get(1).AsSymbol() == nil {
		return nil, r.error(list.Get(1), "expected variable name")
	}
	//
	name := list.Get(1).AsSymbol().Value
	//
	if err := r.checkName(list.Get(1), name); err != nil {
		return nil, err
	} else if r.lookup(name) != nil {
		return nil, r.error(list.Get(1), "variable %s already declared", name)
	}
	//
	t, err := r.readType(list.Get(2))
	if err != nil {
		return nil, err
	}
	//
	v := NewVar(name, t)
	r.scope = append(r.scope, v)
	//
	return v, nil
}

func (r *reader) readBoolExp(s sexp.SExp) (Exp, error) {
	e, err := r.readExp(s)
	//
	if err == nil && !Bool.Equals(e.Type()) {
		return nil, r.error(s, "expected boolean expression")
	}
	//
	return e, err
}
