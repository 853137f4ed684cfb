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
	"fmt"
)

// Transform rebuilds an expression by applying f to each of its immediate
// subexpressions, and g to each of the lambdas it binds.  The result shares
// structure with the original wherever possible; an expression without
// children is returned as is.
func Transform(e Exp, f func(Exp) Exp, g func(*Lambda) *Lambda) Exp {
	switch e := e.(type) {
	case *Var, *BoolLit, *NumLit, *StrLit, *EmptyBag:
		return e
	case *Unary:
		return &Unary{e.Op, f(e.Arg), e.T}
	case *Binary:
		return &Binary{e.Op, f(e.Lhs), f(e.Rhs), e.T}
	case *Cond:
		return &Cond{f(e.Cond), f(e.Then), f(e.Else)}
	case *Call:
		return &Call{e.Func, mapExps(e.Args, f), e.T}
	case *MakeRecord:
		fields := make([]FieldInit, len(e.Fields))
		//
		for i, fi := range e.Fields {
			fields[i] = FieldInit{fi.Name, f(fi.Value)}
		}
		//
		return &MakeRecord{fields}
	case *GetField:
		return &GetField{f(e.Record), e.Field, e.T}
	case *MakeTuple:
		return &MakeTuple{mapExps(e.Elems, f)}
	case *TupleGet:
		return &TupleGet{f(e.Tuple), e.Index}
	case *Singleton:
		return &Singleton{f(e.Elem), e.T}
	case *Map:
		return &Map{f(e.Source), g(e.F)}
	case *Filter:
		return &Filter{f(e.Source), g(e.P)}
	case *FlatMap:
		return &FlatMap{f(e.Source), g(e.F)}
	case *ArgMin:
		return &ArgMin{e.Max, f(e.Source), g(e.Key)}
	case *MapGet:
		return &MapGet{f(e.Map), f(e.Key)}
	case *MapKeys:
		return &MapKeys{f(e.Map)}
	case *MakeMap:
		return &MakeMap{f(e.Keys), g(e.Value)}
	case *StateVar:
		return &StateVar{f(e.Exp)}
	case *MakeHeap:
		return &MakeHeap{e.Min, f(e.Source), g(e.Key)}
	case *HeapPeek2:
		return &HeapPeek2{f(e.Heap), f(e.Len)}
	default:
		panic(fmt.Sprintf("unknown expression %T", e))
	}
}

// Children returns the immediate subexpressions of an expression, including
// the bodies of any lambdas it binds.
func Children(e Exp) []Exp {
	var children []Exp
	//
	Transform(e, func(c Exp) Exp {
		children = append(children, c)
		return c
	}, func(l *Lambda) *Lambda {
		children = append(children, l.Body)
		return l
	})
	//
	return children
}

// Size returns the number of nodes in an expression tree.
func Size(e Exp) uint {
	var size uint = 1
	//
	for _, c := range Children(e) {
		size += Size(c)
	}
	//
	return size
}

// Rewrite applies a function to every node of an expression, bottom up.  That
// is, the function is applied to a node after its children were rewritten.
func Rewrite(e Exp, f func(Exp) Exp) Exp {
	var (
		rec func(Exp) Exp
		lam func(*Lambda) *Lambda
	)
	//
	rec = func(e Exp) Exp {
		return f(Transform(e, rec, lam))
	}
	lam = func(l *Lambda) *Lambda {
		return &Lambda{l.Arg, rec(l.Body)}
	}
	//
	return rec(e)
}

// StripStateVar removes all state markers from an expression.
func StripStateVar(e Exp) Exp {
	return Rewrite(e, func(e Exp) Exp {
		if sv, ok := e.(*StateVar); ok {
			return sv.Exp
		}
		//
		return e
	})
}

// ContainsStateVar checks whether an expression has a state marker anywhere.
func ContainsStateVar(e Exp) bool {
	if _, ok := e.(*StateVar); ok {
		return true
	}
	//
	for _, c := range Children(e) {
		if ContainsStateVar(c) {
			return true
		}
	}
	//
	return false
}

func mapExps(es []Exp, f func(Exp) Exp) []Exp {
	nes := make([]Exp, len(es))
	//
	for i, e := range es {
		nes[i] = f(e)
	}
	//
	return nes
}
