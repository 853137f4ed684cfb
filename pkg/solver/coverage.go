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
package solver

import (
	"fmt"

	"github.com/consensys/go-incr/pkg/syntax"
)

// Covers implementation for Covering interface.  A formula is covered when the
// configured collection depth admits every collection its counterexamples may
// need.  That is one element for each scalar variable, element literal and
// nested binder it can tell apart and, when it observes the size of a
// collection, enough elements to reach any integer of the domain.
func (p *Bounded) Covers(f syntax.Exp) error {
	doms := newDomains(p.config, f)
	//
	if need := requiredDepth(f, doms.ints); need > p.config.CollectionDepth {
		return fmt.Errorf("%w: %s needs collections of %d elements", ErrBounds, syntax.Print(f), need)
	}
	//
	return nil
}

// Determine the collection depth needed to search a formula exhaustively, or
// zero when the formula involves no collections.
func requiredDepth(f syntax.Exp, ints []int64) uint {
	r := requirements{scalars: make(map[string]bool)}
	//
	for _, v := range syntax.FreeVars(f) {
		if hasCollection(v.T, nil) {
			r.collections = true
		} else if _, ok := v.T.(*syntax.BoolType); !ok {
			r.scalars[v.Name] = true
		}
	}
	//
	r.visit(f, 0)
	//
	if !r.collections {
		return 0
	}
	//
	need := max(2, uint(len(r.scalars))+r.binders)
	//
	if r.sizes {
		var bound int64
		//
		for _, n := range ints {
			bound = max(bound, n, -n)
		}
		//
		need = max(need, uint(bound)+1)
	}
	//
	return need
}

type requirements struct {
	// Free scalar variables and element literals
	scalars map[string]bool
	// Deepest nesting of lambdas
	binders uint
	// Whether collections occur anywhere
	collections bool
	// Whether the size of any collection is observed
	sizes bool
}

func (p *requirements) visit(e syntax.Exp, depth uint) {
	p.binders = max(p.binders, depth)
	//
	if hasCollection(e.Type(), nil) {
		p.collections = true
	}
	//
	switch e := e.(type) {
	case *syntax.Unary:
		p.sizes = p.sizes || e.Op == syntax.Len || e.Op == syntax.Sum
	case *syntax.Binary:
		if e.Op == syntax.In || e.Op == syntax.Count {
			p.sizes = p.sizes || e.Op == syntax.Count
			p.literal(e.Lhs)
		}
	case *syntax.Singleton:
		p.literal(e.Elem)
	}
	//
	syntax.Transform(e, func(c syntax.Exp) syntax.Exp {
		p.visit(c, depth)
		return c
	}, func(l *syntax.Lambda) *syntax.Lambda {
		p.visit(l.Body, depth+1)
		return l
	})
}

// Literals used as elements must be told apart from the scalar terms.
func (p *requirements) literal(e syntax.Exp) {
	switch e := e.(type) {
	case *syntax.NumLit:
		p.scalars[fmt.Sprintf("#%d", e.Value)] = true
	case *syntax.StrLit:
		p.scalars[fmt.Sprintf("#%q", e.Value)] = true
	}
}

// Check whether values of a given type can hold a collection.
func hasCollection(t syntax.Type, seen map[string]bool) bool {
	switch t := t.(type) {
	case *syntax.BagType, *syntax.SetType, *syntax.ListType, *syntax.MapType, *syntax.HeapType:
		return true
	case *syntax.RecordType:
		for _, f := range t.Fields {
			if hasCollection(f.Type, seen) {
				return true
			}
		}
	case *syntax.TupleType:
		for _, elem := range t.Elems {
			if hasCollection(elem, seen) {
				return true
			}
		}
	case *syntax.HandleType:
		if seen[t.Name] {
			return false
		} else if seen == nil {
			seen = make(map[string]bool)
		}
		//
		seen[t.Name] = true
		//
		return hasCollection(t.Value, seen)
	}
	//
	return false
}
