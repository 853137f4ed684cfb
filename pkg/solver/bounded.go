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
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/consensys/go-incr/pkg/eval"
	"github.com/consensys/go-incr/pkg/syntax"
	log "github.com/sirupsen/logrus"
)

// ErrBounds signals that a formula cannot be decided within the configured
// bounds, for example because it has too many candidate models.
var ErrBounds = errors.New("formula exceeds oracle bounds")

// Config determines the bounds within which the bounded oracle searches for
// models.
type Config struct {
	// Base domain of integers, extended with the literals of each formula.
	IntDomain []int64
	// Maximum number of elements (or map entries) in a collection.  Formulas
	// needing larger collections are searched up to this depth, but are never
	// reported valid.
	CollectionDepth uint
	// Maximum number of candidate models for a single formula.
	MaxModels uint64
}

// DefaultConfig returns the default oracle bounds.
func DefaultConfig() Config {
	return Config{[]int64{0, 1, 2}, 3, 500_000}
}

// Bounded is an oracle which searches exhaustively for models within bounded
// domains.  Integers range over a small base domain plus the literals of the
// formula, strings over the literals of the formula plus a few fresh strings,
// and collections over all those with at most as many elements as the formula
// requires.  A formula is only reported valid when the collection depth covers
// it, otherwise the absence of a counterexample yields ErrBounds.
type Bounded struct {
	config Config
	funcs  map[string]eval.Func
}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var _ Oracle = (*Bounded)(nil)
var _ Covering = (*Bounded)(nil)

// NewBounded constructs a bounded oracle for formulas which may call the given
// functions.
func NewBounded(config Config, funcs map[string]eval.Func) *Bounded {
	return &Bounded{config, funcs}
}

// Valid implementation for Oracle interface.
func (p *Bounded) Valid(ctx context.Context, f syntax.Exp) (bool, error) {
	if m, err := p.Satisfy(ctx, syntax.NewNot(f)); err != nil || m != nil {
		return false, err
	} else if err := p.Covers(f); err != nil {
		return false, err
	}
	//
	return true, nil
}

// Satisfiable implementation for Oracle interface.
func (p *Bounded) Satisfiable(ctx context.Context, f syntax.Exp) (bool, error) {
	m, err := p.Satisfy(ctx, f)
	return m != nil, err
}

// Satisfy implementation for Oracle interface.
func (p *Bounded) Satisfy(ctx context.Context, f syntax.Exp) (*Model, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	} else if b, ok := f.(*syntax.BoolLit); ok {
		if b.Value {
			return &Model{map[string]eval.Value{}, map[int64]eval.Value{}}, nil
		}
		//
		return nil, nil
	}
	//
	slots, err := p.slotsOf(f)
	if err != nil {
		return nil, err
	}
	//
	var n uint64
	//
	m, err := enumerate(slots, func(m *Model) (bool, error) {
		if n++; n%1024 == 0 && ctx.Err() != nil {
			return false, ctx.Err()
		}
		//
		return eval.EvalBool(f, m.Env(p.funcs))
	})
	//
	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debug(fmt.Sprintf("bounded oracle checked %d models of %s (sat %t)", n, syntax.Print(f), m != nil))
	}
	//
	return m, err
}

// A slot is a single component of a model which must be assigned, either a
// variable or the payload of a handle.
type slot struct {
	name   string
	addr   int64
	store  bool
	values []eval.Value
}

// Determine the slots of a formula along with their candidate values, checking
// that the number of candidate models lies within bounds.
func (p *Bounded) slotsOf(f syntax.Exp) ([]slot, error) {
	var (
		doms  = newDomains(p.config, f)
		slots []slot
		total uint64 = 1
	)
	//
	for _, v := range syntax.FreeVars(f) {
		values, err := doms.of(v.T)
		if err != nil {
			return nil, fmt.Errorf("variable %s: %w", v.Name, err)
		}
		//
		slots = append(slots, slot{name: v.Name, values: values})
	}
	// Payloads of any handles which may occur, noting that payloads may
	// themselves contain handles.
	for done := 0; done < len(doms.order); done++ {
		h := doms.handles[doms.order[done]]
		//
		values, err := doms.of(h.payload)
		if err != nil {
			return nil, err
		}
		//
		for _, addr := range h.addrs {
			slots = append(slots, slot{addr: addr, store: true, values: values})
		}
	}
	//
	for _, s := range slots {
		if total *= uint64(len(s.values)); total > p.config.MaxModels || len(s.values) == 0 {
			return nil, fmt.Errorf("%w: more than %d models of %s", ErrBounds, p.config.MaxModels, syntax.Print(f))
		}
	}
	//
	return slots, nil
}

// Enumerate every assignment of values to slots, returning the first for which
// a given predicate holds.
func enumerate(slots []slot, pred func(*Model) (bool, error)) (*Model, error) {
	var (
		index = make([]int, len(slots))
		model = &Model{make(map[string]eval.Value), make(map[int64]eval.Value)}
	)
	//
	for {
		for i, s := range slots {
			if s.store {
				model.Store[s.addr] = s.values[index[i]]
			} else {
				model.Vars[s.name] = s.values[index[i]]
			}
		}
		//
		if ok, err := pred(model); err != nil {
			return nil, err
		} else if ok {
			return model, nil
		}
		// Advance to next assignment
		i := 0
		//
		for ; i < len(slots); i++ {
			if index[i]++; index[i] < len(slots[i].values) {
				break
			}
			//
			index[i] = 0
		}
		//
		if i == len(slots) {
			return nil, nil
		}
	}
}

// ===================================================================
// Domains
// ===================================================================

type handleDomain struct {
	addrs   []int64
	payload syntax.Type
}

type domains struct {
	config Config
	// Collection depth for this formula
	depth   uint
	ints    []int64
	strs    []string
	cache   map[string][]eval.Value
	handles map[string]*handleDomain
	// Handle type names, in order of first use
	order []string
	// Next unused handle address
	next int64
}

func newDomains(config Config, f syntax.Exp) *domains {
	ints := slices.Clone(config.IntDomain)
	strs := []string{"a", "b", "c"}
	//
	syntax.Rewrite(f, func(e syntax.Exp) syntax.Exp {
		switch e := e.(type) {
		case *syntax.NumLit:
			ints = append(ints, e.Value)
		case *syntax.StrLit:
			strs = append(strs, e.Value)
		}
		//
		return e
	})
	//
	slices.Sort(ints)
	slices.Sort(strs)
	//
	ints, strs = slices.Compact(ints), slices.Compact(strs)
	// Search no deeper than needed
	depth := min(max(requiredDepth(f, ints), 2), config.CollectionDepth)
	//
	return &domains{config, depth, ints, strs, make(map[string][]eval.Value),
		make(map[string]*handleDomain), nil, 1}
}

// Determine the candidate values of a given type.
func (p *domains) of(t syntax.Type) ([]eval.Value, error) {
	key := t.String()
	//
	if values, ok := p.cache[key]; ok {
		return values, nil
	}
	//
	values, err := p.build(t)
	if err != nil {
		return nil, err
	} else if uint64(len(values)) > p.config.MaxModels {
		return nil, fmt.Errorf("%w: too many values of type %s", ErrBounds, t)
	}
	//
	p.cache[key] = values
	//
	return values, nil
}

func (p *domains) build(t syntax.Type) ([]eval.Value, error) {
	switch t := t.(type) {
	case *syntax.IntType:
		values := make([]eval.Value, len(p.ints))
		//
		for i, n := range p.ints {
			values[i] = n
		}
		//
		return values, nil
	case *syntax.BoolType:
		return []eval.Value{false, true}, nil
	case *syntax.StringType:
		values := make([]eval.Value, len(p.strs))
		//
		for i, s := range p.strs {
			values[i] = s
		}
		//
		return values, nil
	case *syntax.NativeType:
		values := make([]eval.Value, max(p.depth, 2))
		//
		for i := range values {
			values[i] = eval.Native{Type: t.Name, ID: int64(i)}
		}
		//
		return values, nil
	case *syntax.BagType:
		return p.bags(t.Elem, true)
	case *syntax.ListType:
		return p.bags(t.Elem, true)
	case *syntax.SetType:
		return p.bags(t.Elem, false)
	case *syntax.MapType:
		return p.maps(t)
	case *syntax.RecordType:
		types := make([]syntax.Type, len(t.Fields))
		//
		for i, f := range t.Fields {
			types[i] = f.Type
		}
		//
		return p.product(types, func(vals []eval.Value) eval.Value {
			r := make(eval.Record, len(vals))
			//
			for i, f := range t.Fields {
				r[i] = eval.Field{Name: f.Name, Value: vals[i]}
			}
			//
			return r
		})
	case *syntax.TupleType:
		return p.product(t.Elems, func(vals []eval.Value) eval.Value {
			return eval.Tuple(slices.Clone(vals))
		})
	case *syntax.HandleType:
		h, ok := p.handles[t.Name]
		//
		if !ok {
			h = &handleDomain{[]int64{p.next, p.next + 1}, t.Value}
			p.handles[t.Name] = h
			p.order = append(p.order, t.Name)
			p.next += 2
		}
		//
		return []eval.Value{eval.Handle{Addr: h.addrs[0]}, eval.Handle{Addr: h.addrs[1]}}, nil
	default:
		return nil, fmt.Errorf("%w: cannot enumerate values of type %s", ErrBounds, t)
	}
}

// Construct all collections of elements of a given type, up to the collection
// depth.  Collections either admit duplicates (bags) or not (sets).
func (p *domains) bags(elem syntax.Type, duplicates bool) ([]eval.Value, error) {
	elems, err := p.of(elem)
	if err != nil {
		return nil, err
	}
	//
	var result []eval.Value
	//
	choose(len(elems), int(p.depth), duplicates, func(indices []int) {
		bag := make(eval.Bag, len(indices))
		//
		for i, j := range indices {
			bag[i] = elems[j]
		}
		//
		result = append(result, bag)
	})
	//
	return result, nil
}

// Construct all maps whose keys are drawn from the key domain, up to the
// collection depth.
func (p *domains) maps(t *syntax.MapType) ([]eval.Value, error) {
	keys, err := p.of(t.Key)
	if err != nil {
		return nil, err
	}
	//
	vals, err := p.of(t.Value)
	if err != nil {
		return nil, err
	}
	//
	var result []eval.Value
	//
	choose(len(keys), int(p.depth), false, func(indices []int) {
		// Enumerate assignments of values to chosen keys
		counters := make([]int, len(indices))
		//
		for {
			m := eval.Map{}
			//
			for i, j := range indices {
				m = m.Put(keys[j], vals[counters[i]])
			}
			//
			result = append(result, m)
			//
			i := 0
			//
			for ; i < len(counters); i++ {
				if counters[i]++; counters[i] < len(vals) {
					break
				}
				//
				counters[i] = 0
			}
			//
			if i == len(counters) {
				return
			}
		}
	})
	//
	return result, nil
}

func (p *domains) product(types []syntax.Type, build func([]eval.Value) eval.Value) ([]eval.Value, error) {
	partial := [][]eval.Value{nil}
	//
	for _, t := range types {
		values, err := p.of(t)
		if err != nil {
			return nil, err
		}
		//
		var next [][]eval.Value
		//
		for _, prefix := range partial {
			for _, v := range values {
				next = append(next, append(slices.Clone(prefix), v))
			}
		}
		//
		if partial = next; uint64(len(partial)) > p.config.MaxModels {
			return nil, fmt.Errorf("%w: too many values of product", ErrBounds)
		}
	}
	//
	result := make([]eval.Value, len(partial))
	//
	for i, vals := range partial {
		result[i] = build(vals)
	}
	//
	return result, nil
}

// Enumerate all non-decreasing (or strictly increasing, when duplicates are not
// permitted) sequences of indices below n, of length at most k.
func choose(n int, k int, duplicates bool, fn func([]int)) {
	var rec func(prefix []int, start int)
	//
	rec = func(prefix []int, start int) {
		fn(prefix)
		//
		if len(prefix) == k {
			return
		}
		//
		for i := start; i < n; i++ {
			next := i + 1
			//
			if duplicates {
				next = i
			}
			//
			rec(append(slices.Clone(prefix), i), next)
		}
	}
	//
	rec(nil, 0)
}
