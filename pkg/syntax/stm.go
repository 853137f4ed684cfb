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

	"github.com/consensys/go-incr/pkg/util/source/sexp"
)

// Stm represents an imperative statement which updates the program state.  As
// for expressions, the set of statement forms is closed.
type Stm interface {
	// Lisp converts this statement into an S-Expression.
	Lisp() sexp.SExp
	// Marker method which seals this interface.
	stm()
}

// NoOp is the statement which does nothing.
type NoOp struct{}

// Seq executes two statements in order.
type Seq struct {
	First  Stm
	Second Stm
}

// If executes one of two statements based on a condition.
type If struct {
	Cond Exp
	Then Stm
	Else Stm
}

// Assign updates an lvalue (a variable, or a field path rooted at a variable)
// with a new value.
type Assign struct {
	LVal Exp
	Rhs  Exp
}

// Decl introduces a local variable initialised with a given value.
type Decl struct {
	Var *Var
	Val Exp
}

// CallFunc identifies the collection update performed by a call statement.
type CallFunc uint8

const (
	// Add inserts a single element.
	Add CallFunc = iota
	// AddAll inserts every element of a collection.
	AddAll
	// Remove deletes one occurrence of a single element.
	Remove
	// RemoveAll deletes one occurrence of each element of a collection.
	RemoveAll
)

var callNames = [...]string{"add", "add-all", "remove", "remove-all"}

func (f CallFunc) String() string {
	return callNames[f]
}

// CallStm applies a collection update to a target collection.
type CallStm struct {
	Target Exp
	Func   CallFunc
	Arg    Exp
}

// ForEach executes a statement once for every element of a collection.  The
// collection is evaluated once, before the first iteration.
type ForEach struct {
	Var  *Var
	Bag  Exp
	Body Stm
}

// MapDel removes a key from a map.
type MapDel struct {
	Map Exp
	Key Exp
}

// MapUpdate updates the value associated with a key.  The body executes with
// Val bound to the current value at Key, and whatever Val holds afterwards is
// written back to the map.
type MapUpdate struct {
	Map  Exp
	Key  Exp
	Val  *Var
	Body Stm
}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var (
	_ Stm = (*NoOp)(nil)
	_ Stm = (*Seq)(nil)
	_ Stm = (*If)(nil)
	_ Stm = (*Assign)(nil)
	_ Stm = (*Decl)(nil)
	_ Stm = (*CallStm)(nil)
	_ Stm = (*ForEach)(nil)
	_ Stm = (*MapDel)(nil)
	_ Stm = (*MapUpdate)(nil)
)

func (s *NoOp) stm()      {}
func (s *Seq) stm()       {}
func (s *If) stm()        {}
func (s *Assign) stm()    {}
func (s *Decl) stm()      {}
func (s *CallStm) stm()   {}
func (s *ForEach) stm()   {}
func (s *MapDel) stm()    {}
func (s *MapUpdate) stm() {}

// Skip is the shared instance of the no-op statement.
var Skip = &NoOp{}

// SeqOf constructs a right-associated sequence of statements, dropping any
// no-ops.
func SeqOf(stms ...Stm) Stm {
	var result Stm
	//
	for i := len(stms) - 1; i >= 0; i-- {
		ith := stms[i]
		//
		if _, ok := ith.(*NoOp); ok {
			continue
		} else if result == nil {
			result = ith
		} else {
			result = &Seq{ith, result}
		}
	}
	//
	if result == nil {
		return Skip
	}
	//
	return result
}

// BreakSeq flattens nested sequences into a list of statements, dropping any
// no-ops.
func BreakSeq(s Stm) []Stm {
	switch s := s.(type) {
	case *NoOp:
		return nil
	case *Seq:
		return append(BreakSeq(s.First), BreakSeq(s.Second)...)
	default:
		return []Stm{s}
	}
}

// Lisp implementation for Stm interface.
func (s *NoOp) Lisp() sexp.SExp { return sexp.NewApp("skip") }

// Lisp implementation for Stm interface.
func (s *Seq) Lisp() sexp.SExp {
	stms := BreakSeq(s)
	items := make([]sexp.SExp, len(stms))
	//
	for i, ith := range stms {
		items[i] = ith.Lisp()
	}
	//
	return sexp.NewApp("seq", items...)
}

// Lisp implementation for Stm interface.
func (s *If) Lisp() sexp.SExp {
	return sexp.NewApp("if", s.Cond.Lisp(), s.Then.Lisp(), s.Else.Lisp())
}

// Lisp implementation for Stm interface.
func (s *Assign) Lisp() sexp.SExp {
	return sexp.NewApp("assign", s.LVal.Lisp(), s.Rhs.Lisp())
}

// Lisp implementation for Stm interface.
func (s *Decl) Lisp() sexp.SExp {
	return sexp.NewApp("decl", s.Var.Lisp(), s.Val.Lisp())
}

// Lisp implementation for Stm interface.
func (s *CallStm) Lisp() sexp.SExp {
	return sexp.NewApp(s.Func.String(), s.Target.Lisp(), s.Arg.Lisp())
}

// Lisp implementation for Stm interface.
func (s *ForEach) Lisp() sexp.SExp {
	return sexp.NewApp("foreach", s.Var.Lisp(), s.Bag.Lisp(), s.Body.Lisp())
}

// Lisp implementation for Stm interface.
func (s *MapDel) Lisp() sexp.SExp {
	return sexp.NewApp("map-del", s.Map.Lisp(), s.Key.Lisp())
}

// Lisp implementation for Stm interface.
func (s *MapUpdate) Lisp() sexp.SExp {
	return sexp.NewApp("map-update", s.Map.Lisp(), s.Key.Lisp(), s.Val.Lisp(), s.Body.Lisp())
}

// FreeVarsStm returns the variables read or written by a statement which are
// not declared by it, in order of first occurrence.
func FreeVarsStm(s Stm) []*Var {
	var (
		vars []*Var
		seen = make(map[string]bool)
	)
	//
	collectFreeVarsStm(s, make(map[string]int), seen, &vars)
	//
	return vars
}

func collectFreeVarsStm(s Stm, bound map[string]int, seen map[string]bool, vars *[]*Var) {
	exps := func(es ...Exp) {
		for _, e := range es {
			collectFreeVars(e, bound, seen, vars)
		}
	}
	//
	switch s := s.(type) {
	case *NoOp:
	case *Seq:
		collectFreeVarsStm(s.First, bound, seen, vars)
		collectFreeVarsStm(s.Second, bound, seen, vars)
	case *If:
		exps(s.Cond)
		collectFreeVarsStm(s.Then, bound, seen, vars)
		collectFreeVarsStm(s.Else, bound, seen, vars)
	case *Assign:
		exps(s.LVal, s.Rhs)
	case *Decl:
		exps(s.Val)
		// Declared variables scope over the remainder of the statement
		bound[s.Var.Name]++
	case *CallStm:
		exps(s.Target, s.Arg)
	case *ForEach:
		exps(s.Bag)
		bound[s.Var.Name]++
		collectFreeVarsStm(s.Body, bound, seen, vars)
		bound[s.Var.Name]--
	case *MapDel:
		exps(s.Map, s.Key)
	case *MapUpdate:
		exps(s.Map, s.Key)
		bound[s.Val.Name]++
		collectFreeVarsStm(s.Body, bound, seen, vars)
		bound[s.Val.Name]--
	default:
		panic(fmt.Sprintf("unknown statement %T", s))
	}
}

// RootVar returns the variable at the root of an lvalue, or nil if the given
// expression is not an lvalue.
func RootVar(lval Exp) *Var {
	switch lval := lval.(type) {
	case *Var:
		return lval
	case *GetField:
		return RootVar(lval.Record)
	case *TupleGet:
		return RootVar(lval.Tuple)
	default:
		return nil
	}
}
