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
	"github.com/consensys/go-incr/pkg/syntax"
)

// Flatten normalises a statement into a sequence of straight-line steps,
// executing in order, which are equivalent to the original statement.
// Conditionals are eliminated by declaring a guard variable for each branch,
// which holds the path condition under which that branch executes.
// Assignments under a guard keep the previous value when the guard fails, and
// collection updates under a guard filter their argument by it.
func Flatten(s syntax.Stm) ([]syntax.Stm, error) {
	var steps []syntax.Stm
	//
	if err := flatten(s, syntax.True, &steps); err != nil {
		return nil, err
	}
	//
	return steps, nil
}

func flatten(s syntax.Stm, guard syntax.Exp, steps *[]syntax.Stm) error {
	switch s := s.(type) {
	case *syntax.NoOp:
		return nil
	case *syntax.Decl:
		*steps = append(*steps, s)
	case *syntax.Seq:
		if err := flatten(s.First, guard, steps); err != nil {
			return err
		}
		//
		return flatten(s.Second, guard, steps)
	case *syntax.If:
		// Both guards are fixed before either branch executes
		then := declareGuard(syntax.All(guard, s.Cond), steps)
		els := declareGuard(syntax.All(guard, syntax.NewNot(s.Cond)), steps)
		//
		if err := flatten(s.Then, then, steps); err != nil {
			return err
		}
		//
		return flatten(s.Else, els, steps)
	case *syntax.Assign:
		*steps = append(*steps, &syntax.Assign{LVal: s.LVal, Rhs: syntax.NewCond(guard, s.Rhs, s.LVal)})
	case *syntax.CallStm:
		t := s.Target.Type()
		//
		if !syntax.IsCollection(t) {
			return unsupported("%s on %s", s.Func, t)
		}
		//
		arg, fn := s.Arg, s.Func
		//
		switch s.Func {
		case syntax.Add:
			arg, fn = &syntax.Singleton{Elem: s.Arg, T: t}, syntax.AddAll
		case syntax.Remove:
			arg, fn = &syntax.Singleton{Elem: s.Arg, T: t}, syntax.RemoveAll
		}
		//
		if !syntax.IsTrue(guard) {
			arg = EFilter(arg, syntax.NewLambda(syntax.Fresh(syntax.ElemType(t), "x"), guard))
		}
		//
		*steps = append(*steps, &syntax.CallStm{Target: s.Target, Func: fn, Arg: arg})
	default:
		return unsupported("flattening %s", s.Lisp().String(false))
	}
	//
	return nil
}

// Bind a path condition to a fresh variable, unless it is constant.
func declareGuard(pc syntax.Exp, steps *[]syntax.Stm) syntax.Exp {
	if _, ok := pc.(*syntax.BoolLit); ok {
		return pc
	}
	//
	g := syntax.Fresh(syntax.Bool, "g")
	*steps = append(*steps, &syntax.Decl{Var: g, Val: pc})
	//
	return g
}
