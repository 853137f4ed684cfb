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

// Visibility determines whether a query is part of the public interface of a
// data structure, or an internal helper.
type Visibility uint8

const (
	// Public queries are exposed to clients.
	Public Visibility = iota
	// Internal queries are synthesized helpers.
	Internal
)

func (v Visibility) String() string {
	if v == Public {
		return "public"
	}
	//
	return "internal"
}

// Query is a freestanding synthesis goal: compute Ret from Params, given that
// the Assumptions hold.  Free variables of the body which are not parameters
// refer to the abstract state.
type Query struct {
	Name        string
	Visibility  Visibility
	Params      []*Var
	Assumptions []Exp
	Ret         Exp
	Doc         string
}

// NewQuery constructs an internal query over a given body, whose parameters are
// the free variables of its body and assumptions which are not abstract state.
func NewQuery(name string, state []*Var, assumptions []Exp, ret Exp, doc string) *Query {
	var (
		params []*Var
		all    = append(append([]Exp{}, assumptions...), ret)
	)
	//
	for _, v := range FreeVarsOf(all...) {
		if !containsVar(state, v) {
			params = append(params, v)
		}
	}
	//
	return &Query{name, Internal, params, assumptions, ret, doc}
}

// Invocation returns an expression calling this query with its parameters.
func (q *Query) Invocation() *Call {
	args := make([]Exp, len(q.Params))
	//
	for i, p := range q.Params {
		args[i] = p
	}
	//
	return &Call{q.Name, args, q.Ret.Type()}
}

// Lisp converts this query into an S-Expression.
func (q *Query) Lisp() sexp.SExp {
	params := make([]sexp.SExp, len(q.Params))
	//
	for i, p := range q.Params {
		params[i] = sexp.NewList([]sexp.SExp{p.Lisp(), p.T.Lisp()})
	}
	//
	items := []sexp.SExp{
		sexp.NewSymbol(q.Name),
		sexp.NewSymbol(q.Visibility.String()),
		sexp.NewApp("params", params...),
		sexp.NewApp("assume", lispOfAll(q.Assumptions)...),
		sexp.NewApp("ret", q.Ret.Lisp()),
	}
	//
	if q.Doc != "" {
		items = append(items, sexp.NewApp("doc", sexp.NewSymbol(fmt.Sprintf("\"%s\"", q.Doc))))
	}
	//
	return sexp.NewApp("query", items...)
}

func containsVar(vars []*Var, v *Var) bool {
	for _, w := range vars {
		if w.Name == v.Name {
			return true
		}
	}
	//
	return false
}
