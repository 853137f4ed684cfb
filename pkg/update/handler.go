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

	"github.com/consensys/go-incr/pkg/incr"
	"github.com/consensys/go-incr/pkg/syntax"
)

// Handler maintains values of a particular type in place, overriding the
// generic update sketches for that type.  This allows specialised structures
// (such as heaps) to be updated using their own operations.
type Handler interface {
	// Name identifies this handler in diagnostics.
	Name() string
	// Handles determines whether this handler maintains values of a given type.
	Handles(t syntax.Type) bool
	// MutateInPlace produces code to update the lvalue of a request, issuing
	// any queries it needs through the given subgoals.
	MutateInPlace(ctx context.Context, updater *Updater, req Request, goals *Subgoals) (syntax.Stm, error)
}

// HeapHandler maintains heaps constructed over a collection, by removing and
// inserting exactly those elements which leave or enter the collection.
type HeapHandler struct{}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var _ Handler = HeapHandler{}

// Name implementation for Handler interface.
func (p HeapHandler) Name() string {
	return "heap"
}

// Handles implementation for Handler interface.
func (p HeapHandler) Handles(t syntax.Type) bool {
	_, ok := t.(*syntax.HeapType)
	return ok
}

// MutateInPlace implementation for Handler interface.
func (p HeapHandler) MutateInPlace(ctx context.Context, updater *Updater, req Request,
	goals *Subgoals) (syntax.Stm, error) {
	var inefficient *incr.InefficientError
	//
	heap, ok := syntax.StripStateVar(req.Exp).(*syntax.MakeHeap)
	if !ok {
		return nil, fmt.Errorf("heap %s does not track a heap construction", syntax.Print(req.LVal))
	}
	//
	newKey, err := incr.Mutate(heap.Key.Body, req.Op)
	if err != nil {
		return nil, err
	} else if !syntax.AlphaEquivalent(newKey, heap.Key.Body) {
		// Every key may have changed
		return p.rebuild(req, goals)
	}
	//
	scope := updater.rootScope(req.State, req.Op, append([]syntax.Exp{heap}, req.Assumptions...)...)
	//
	d, err := updater.engine.BagDelta(ctx, heap.Source, scope, req.Op, syntax.All(req.Assumptions...))
	if errors.As(err, &inefficient) {
		return p.rebuild(req, goals)
	} else if err != nil {
		return nil, err
	}
	//
	var (
		name  = syntax.Print(req.LVal)
		v     = syntax.Fresh(syntax.ElemType(heap.Source.Type()), "v")
		entry = &syntax.MakeTuple{Elems: []syntax.Exp{v, heap.Key.Apply(v)}}
		stms  []syntax.Stm
	)
	//
	if !syntax.IsEmptyBag(d.Removed) {
		removed := goals.Make(d.Removed, "elements removed from "+name)
		stms = append(stms, &syntax.ForEach{Var: v, Bag: removed,
			Body: &syntax.CallStm{Target: req.LVal, Func: syntax.Remove, Arg: entry}})
	}
	//
	if !syntax.IsEmptyBag(d.Added) {
		added := goals.Make(d.Added, "elements added to "+name)
		stms = append(stms, &syntax.ForEach{Var: v, Bag: added,
			Body: &syntax.CallStm{Target: req.LVal, Func: syntax.Add, Arg: entry}})
	}
	//
	return syntax.SeqOf(stms...), nil
}

// Rebuild the heap from scratch.
func (p HeapHandler) rebuild(req Request, goals *Subgoals) (syntax.Stm, error) {
	newE, err := incr.Mutate(req.Exp, req.Op)
	if err != nil {
		return nil, err
	}
	//
	rhs := goals.Make(syntax.StripStateVar(newE), "new value for "+syntax.Print(req.LVal))
	//
	return &syntax.Assign{LVal: req.LVal, Rhs: rhs}, nil
}
