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
package incr

import (
	"errors"

	"github.com/consensys/go-incr/pkg/contexts"
	"github.com/consensys/go-incr/pkg/syntax"
)

// Determine the condition under which boolean e, which currently evaluates to
// !val, evaluates to val after op.
func (p *task) becameBool(e syntax.Exp, scope contexts.Context, op syntax.Stm, val bool,
	assumptions syntax.Exp) (syntax.Exp, error) {
	newE, err := Mutate(e, op)
	if err != nil {
		return nil, err
	} else if syntax.AlphaEquivalent(e, newE) {
		return syntax.False, nil
	}
	//
	switch e := e.(type) {
	case *syntax.StateVar:
		return p.becameBool(e.Exp, scope, op, val, assumptions)
	case *syntax.Unary:
		switch e.Op {
		case syntax.Not:
			return p.becameBool(e.Arg, scope, op, !val, assumptions)
		case syntax.Exists:
			d, err := p.checkedBagDelta(e.Arg, scope, op, assumptions)
			if err != nil {
				return nil, err
			} else if val {
				return Exists(d.Added), nil
			}
			//
			return ge(LenOf(d.Removed), syntax.Simplify(syntax.NewBinary(syntax.Plus, LenOf(d.Added), LenOf(e.Arg)))), nil
		}
	case *syntax.Binary:
		switch e.Op {
		case syntax.And:
			return p.becameConjunction(e, scope, op, val, assumptions)
		case syntax.Or:
			return p.becameDisjunction(e, scope, op, val, assumptions)
		}
	}
	//
	if val {
		return newE, nil
	}
	//
	return syntax.NewNot(newE), nil
}

func (p *task) becameConjunction(e *syntax.Binary, scope contexts.Context, op syntax.Stm, val bool,
	assumptions syntax.Exp) (syntax.Exp, error) {
	bb, err := p.transitions(e, scope, op, assumptions)
	if err != nil {
		return nil, err
	}
	//
	if !val {
		// Both conjuncts hold, and either one fails afterwards.
		return syntax.AnyOf(bb[0][0], bb[1][0]), nil
	}
	// Some conjunct fails, hence every conjunct must hold afterwards.
	return syntax.All(
		syntax.NewCond(e.Lhs, syntax.NewNot(bb[0][0]), bb[0][1]),
		syntax.NewCond(e.Rhs, syntax.NewNot(bb[1][0]), bb[1][1])), nil
}

func (p *task) becameDisjunction(e *syntax.Binary, scope contexts.Context, op syntax.Stm, val bool,
	assumptions syntax.Exp) (syntax.Exp, error) {
	bb, err := p.transitions(e, scope, op, assumptions)
	if err != nil {
		return nil, err
	}
	//
	if val {
		// Neither disjunct holds, and either one holds afterwards.
		return syntax.AnyOf(bb[0][1], bb[1][1]), nil
	}
	// Some disjunct holds, hence every disjunct must fail afterwards.
	return syntax.NewCond(e.Lhs,
		syntax.NewCond(e.Rhs, syntax.All(bb[0][0], bb[1][0]), syntax.All(bb[0][0], syntax.NewNot(bb[1][1]))),
		syntax.All(bb[1][0], syntax.NewNot(bb[0][1]))), nil
}

// Compute the transitions of both operands of a logical connective, indexed by
// operand and then by target value (false, then true).
func (p *task) transitions(e *syntax.Binary, scope contexts.Context, op syntax.Stm,
	assumptions syntax.Exp) ([2][2]syntax.Exp, error) {
	var result [2][2]syntax.Exp
	//
	for i, arg := range []syntax.Exp{e.Lhs, e.Rhs} {
		for j, val := range []bool{false, true} {
			b, err := p.becameBool(arg, scope, op, val, assumptions)
			if err != nil {
				return result, err
			}
			//
			result[i][j] = b
		}
	}
	//
	return result, nil
}

// Determine the condition under which the value of e is changed by op.
func (p *task) changed(e syntax.Exp, scope contexts.Context, op syntax.Stm,
	assumptions syntax.Exp) (syntax.Exp, error) {
	newE, err := Mutate(e, op)
	if err != nil {
		return nil, err
	} else if syntax.AlphaEquivalent(e, newE) {
		return syntax.False, nil
	}
	//
	switch e := e.(type) {
	case *syntax.Unary:
		if e.Op == syntax.Not {
			return p.changed(e.Arg, scope, op, assumptions)
		}
	case *syntax.Singleton:
		return p.changed(e.Elem, scope, op, assumptions)
	}
	//
	var (
		unsup       *UnsupportedError
		inefficient *InefficientError
	)
	//
	after, err := p.betterMutate(stateVar(e), scope, op, assumptions)
	//
	if errors.As(err, &unsup) || errors.As(err, &inefficient) {
		after, err = newE, nil
	}
	//
	if err != nil {
		return nil, err
	}
	//
	return syntax.NewBinary(syntax.Ne, e, after), nil
}
