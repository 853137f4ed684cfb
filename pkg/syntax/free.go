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
	"sync/atomic"
)

var freshCounter atomic.Uint64

// Fresh constructs a variable of a given type whose name is guaranteed not to
// clash with any variable read from source, or previously made fresh.
func Fresh(t Type, hint string) *Var {
	n := freshCounter.Add(1)
	return &Var{fmt.Sprintf("_%s%d", hint, n), t}
}

// FreeVars returns the variables occurring free in an expression, in order of
// first occurrence.
func FreeVars(e Exp) []*Var {
	var (
		vars []*Var
		seen = make(map[string]bool)
	)
	//
	collectFreeVars(e, make(map[string]int), seen, &vars)
	//
	return vars
}

// FreeVarsOf returns the variables occurring free in any of the given
// expressions, in order of first occurrence.
func FreeVarsOf(es ...Exp) []*Var {
	var (
		vars []*Var
		seen = make(map[string]bool)
	)
	//
	for _, e := range es {
		collectFreeVars(e, make(map[string]int), seen, &vars)
	}
	//
	return vars
}

// Mentions checks whether a given variable occurs free in an expression.
func Mentions(e Exp, name string) bool {
	for _, v := range FreeVars(e) {
		if v.Name == name {
			return true
		}
	}
	//
	return false
}

func collectFreeVars(e Exp, bound map[string]int, seen map[string]bool, vars *[]*Var) {
	if v, ok := e.(*Var); ok {
		if bound[v.Name] == 0 && !seen[v.Name] {
			seen[v.Name] = true
			*vars = append(*vars, v)
		}
		//
		return
	}
	//
	Transform(e, func(c Exp) Exp {
		collectFreeVars(c, bound, seen, vars)
		return c
	}, func(l *Lambda) *Lambda {
		bound[l.Arg.Name]++
		collectFreeVars(l.Body, bound, seen, vars)
		bound[l.Arg.Name]--
		//
		return l
	})
}

// Subst performs capture-avoiding substitution of expressions for free
// variables.  Lambda arguments which would capture a free variable of a
// replacement are renamed.
func Subst(e Exp, mapping map[string]Exp) Exp {
	if len(mapping) == 0 {
		return e
	}
	// Determine variables which must not be captured
	var replacements []Exp
	//
	for _, r := range mapping {
		replacements = append(replacements, r)
	}
	//
	avoid := make(map[string]bool)
	//
	for _, v := range FreeVarsOf(replacements...) {
		avoid[v.Name] = true
	}
	//
	return subst(e, mapping, avoid)
}

func subst(e Exp, mapping map[string]Exp, avoid map[string]bool) Exp {
	if v, ok := e.(*Var); ok {
		if r, ok := mapping[v.Name]; ok {
			return r
		}
		//
		return v
	}
	//
	return Transform(e, func(c Exp) Exp {
		return subst(c, mapping, avoid)
	}, func(l *Lambda) *Lambda {
		return substLambda(l, mapping, avoid)
	})
}

func substLambda(l *Lambda, mapping map[string]Exp, avoid map[string]bool) *Lambda {
	arg, body := l.Arg, l.Body
	// Check whether argument shadows something being substituted
	if _, ok := mapping[arg.Name]; ok {
		inner := make(map[string]Exp, len(mapping))
		//
		for k, v := range mapping {
			if k != arg.Name {
				inner[k] = v
			}
		}
		//
		mapping = inner
	}
	// Check whether argument would capture a replacement
	if avoid[arg.Name] {
		fresh := Fresh(arg.T, "v")
		body = subst(body, map[string]Exp{arg.Name: fresh}, nil)
		arg = fresh
	}
	//
	return &Lambda{arg, subst(body, mapping, avoid)}
}

// FreshenLambda renames the argument of a lambda to a fresh variable.
func FreshenLambda(l *Lambda) *Lambda {
	fresh := Fresh(l.Arg.T, "v")
	return &Lambda{fresh, l.Apply(fresh)}
}
