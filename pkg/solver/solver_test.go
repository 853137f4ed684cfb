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
	"sync"
	"testing"

	"github.com/consensys/go-incr/pkg/contexts"
	"github.com/consensys/go-incr/pkg/eval"
	"github.com/consensys/go-incr/pkg/syntax"
	dto "github.com/prometheus/client_model/go"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	xs = syntax.NewVar("xs", &syntax.BagType{Elem: syntax.Int})
	ys = syntax.NewVar("ys", &syntax.BagType{Elem: syntax.Int})
	x  = syntax.NewVar("x", syntax.Int)
	s  = syntax.NewVar("s", syntax.String)
	m  = syntax.NewVar("m", &syntax.MapType{Key: syntax.Int, Value: syntax.String})
	h  = syntax.NewVar("h", &syntax.HandleType{Name: "Node", Value: syntax.Int})
	g  = syntax.NewVar("g", &syntax.HandleType{Name: "Node", Value: syntax.Int})
)

func Test_Valid_01(t *testing.T) {
	check_Valid(t, "(== (+ x 0) x)", true)
}

func Test_Valid_02(t *testing.T) {
	check_Valid(t, "(>= (len xs) 0)", true)
}

func Test_Valid_03(t *testing.T) {
	check_Valid(t, "(== (len (+ xs ys)) (+ (len xs) (len ys)))", true)
}

func Test_Valid_04(t *testing.T) {
	check_Valid(t, "(== (filter (+ xs {5}) (lambda v (!= v 0))) (+ (filter xs (lambda v (!= v 0))) {5}))", true)
}

func Test_Valid_05(t *testing.T) {
	check_Valid(t, "(=> (in x xs) (exists xs))", true)
}

func Test_Valid_06(t *testing.T) {
	check_Valid(t, "(== (distinct xs) xs)", false)
}

func Test_Valid_07(t *testing.T) {
	check_Valid(t, "(!= s \"hello\")", false)
}

func Test_Valid_08(t *testing.T) {
	// Handles may alias
	check_Valid(t, "(=> (== h g) (== (field h val) (field g val)))", true)
}

func Test_Valid_09(t *testing.T) {
	check_Valid(t, "(== (field h val) (field g val))", false)
}

func Test_Valid_10(t *testing.T) {
	check_Valid(t, "(=> (in x (keys m)) (exists (keys m)))", true)
}

func Test_Valid_11(t *testing.T) {
	check_Valid(t, "(=> (and (in x xs) (!= x 0) (!= x 1)) (> (len xs) 0))", true)
	// Counterexamples are found even when the formula is not covered
	check_Valid(t, "(=> (== (len xs) 3) (in 2 xs))", false)
}

func Test_Valid_12(t *testing.T) {
	// Only collections of four or more elements falsify this
	check_Bounds(t, DefaultConfig(), "(< (len xs) 4)")
	check_Bounds(t, DefaultConfig(), "(< (len (filter ys (lambda v (> v 0)))) 4)")
}

func Test_Valid_13(t *testing.T) {
	config := DefaultConfig()
	config.CollectionDepth = 2
	// Valid, but sizes up to the integer domain are out of reach
	check_Bounds(t, config, "(>= (len xs) 0)")
	check_Bounds(t, config, "(=> (> x (len xs)) (> x 0))")
}

func Test_Valid_14(t *testing.T) {
	config := DefaultConfig()
	config.CollectionDepth = 2
	// Holds of every bag with at most two elements, though not in general
	check_Bounds(t, config, "(=> (and (in x xs) (in 0 xs) (in 1 xs)) (or (== x 0) (== x 1)))")
}

func Test_Covers_01(t *testing.T) {
	oracle := NewBounded(DefaultConfig(), nil)
	//
	for _, text := range []string{"(== (+ x 0) x)", "(=> (in x xs) (exists xs))", "(>= (len xs) 0)"} {
		if err := oracle.Covers(mustRead(t, text)); err != nil {
			t.Errorf("expected %s to be covered, got %v", text, err)
		}
	}
	//
	if err := oracle.Covers(mustRead(t, "(== (count x xs) 5)")); !errors.Is(err, ErrBounds) {
		t.Errorf("expected bounds error, got %v", err)
	}
}

func Test_Satisfy_01(t *testing.T) {
	f := mustRead(t, "(and (== (len xs) 2) (in 7 xs))")
	//
	model, err := NewBounded(DefaultConfig(), nil).Satisfy(context.Background(), f)
	//
	if err != nil {
		t.Fatal(err)
	} else if model == nil {
		t.Fatalf("expected model")
	} else if ok, _ := eval.EvalBool(f, model.Env(nil)); !ok {
		t.Errorf("model does not satisfy formula:\n%s", FormatModel(model))
	}
}

func Test_Satisfy_02(t *testing.T) {
	config := DefaultConfig()
	config.CollectionDepth = 2
	// No bag within a depth of two has three elements
	model, err := NewBounded(config, nil).Satisfy(context.Background(), mustRead(t, "(> (len xs) 2)"))
	//
	if err != nil || model != nil {
		t.Errorf("expected no model, got %v (%v)", model, err)
	}
}

func Test_Satisfy_03(t *testing.T) {
	config := DefaultConfig()
	config.MaxModels = 10
	//
	_, err := NewBounded(config, nil).Satisfy(context.Background(), mustRead(t, "(== xs ys)"))
	//
	if !errors.Is(err, ErrBounds) {
		t.Errorf("expected bounds error, got %v", err)
	}
}

func Test_Satisfy_04(t *testing.T) {
	f := mustRead(t, "(== (call f int x) 4)")
	funcs := map[string]eval.Func{"f": func(args ...eval.Value) (eval.Value, error) {
		return args[0].(int64) * 2, nil
	}}
	//
	model, err := NewBounded(DefaultConfig(), funcs).Satisfy(context.Background(), f)
	//
	if err != nil || model == nil {
		t.Fatalf("expected model, got %v (%v)", model, err)
	} else if model.Vars["x"] != int64(2) {
		t.Errorf("expected x = 2, got %s", FormatModel(model))
	}
}

func Test_Satisfy_05(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	//
	_, err := NewBounded(DefaultConfig(), nil).Satisfy(ctx, mustRead(t, "(and (== xs ys) (< (len xs) 0))"))
	//
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected cancellation, got %v", err)
	}
}

func Test_MinimalModel_01(t *testing.T) {
	f := mustRead(t, "(exists (filter xs (lambda v (> v 1))))")
	//
	model, err := MinimalModel(context.Background(), NewBounded(DefaultConfig(), nil), f, 2)
	//
	if err != nil || model == nil {
		t.Fatalf("expected model, got %v (%v)", model, err)
	} else if text := FormatModel(model); text != "xs = {2}\n" {
		t.Errorf("expected minimal model, got %s", text)
	}
}

func Test_Caching_01(t *testing.T) {
	metrics := NewMetrics()
	oracle := NewCaching(NewBounded(DefaultConfig(), nil), nil, metrics)
	f := mustRead(t, "(> (len (filter xs (lambda v (> v 1)))) 0)")
	g := mustRead(t, "(> (len (filter xs (lambda w (> w 1)))) 0)")
	// First query searches, second is alpha-equivalent
	for _, e := range []syntax.Exp{f, g} {
		if ok, err := oracle.Satisfiable(context.Background(), e); err != nil || !ok {
			t.Fatalf("expected satisfiable, got %t (%v)", ok, err)
		}
	}
	//
	if n := counterValue(t, metrics.CacheHits); n != 1 {
		t.Errorf("expected 1 cache hit, got %v", n)
	}
	//
	if n := counterValue(t, metrics.Queries.WithLabelValues("satisfiable")); n != 2 {
		t.Errorf("expected 2 queries, got %v", n)
	}
}

func Test_Caching_02(t *testing.T) {
	metrics := NewMetrics()
	oracle := NewCaching(NewBounded(DefaultConfig(), nil), nil, metrics)
	// Counterexample to first formula is reused for second
	if ok, err := oracle.Valid(context.Background(), mustRead(t, "(== (len xs) 0)")); err != nil || ok {
		t.Fatalf("expected invalid, got %t (%v)", ok, err)
	}
	//
	if ok, err := oracle.Valid(context.Background(), mustRead(t, "(not (exists xs))")); err != nil || ok {
		t.Fatalf("expected invalid, got %t (%v)", ok, err)
	}
	//
	if n := counterValue(t, metrics.CacheHits); n != 1 {
		t.Errorf("expected 1 cache hit, got %v", n)
	}
}

func Test_Cache_01(t *testing.T) {
	var (
		cache = NewCache(DefaultConfig(), NewMetrics())
		root  = contexts.NewRoot([]*syntax.Var{xs}, []*syntax.Var{x}, nil)
		wg    sync.WaitGroup
	)
	//
	oracles := make([]Oracle, 8)
	//
	for i := range oracles {
		wg.Add(1)
		//
		go func(i int) {
			defer wg.Done()
			// Structurally equal contexts share an oracle
			oracles[i] = cache.For(contexts.NewRoot([]*syntax.Var{xs}, []*syntax.Var{x}, nil))
		}(i)
	}
	//
	wg.Wait()
	//
	for _, o := range oracles {
		if o != oracles[0] {
			t.Errorf("expected shared oracle")
		}
	}
	//
	cache.For(contexts.NewUnderBinder(root, syntax.NewVar("v", syntax.Int), xs, contexts.Runtime))
	//
	if cache.Len() != 2 {
		t.Errorf("expected 2 oracles, got %d", cache.Len())
	}
}

func Test_FormatModel_01(t *testing.T) {
	model := &Model{
		Vars:  map[string]eval.Value{"xs": eval.Bag{int64(2), int64(1)}, "h": eval.Handle{Addr: 1}},
		Store: map[int64]eval.Value{1: int64(5)},
	}
	//
	if text := FormatModel(model); text != "h = &1\nxs = {1, 2}\n&1 = 5\n" {
		t.Errorf("unexpected rendering %q", text)
	}
}

// ===================================================================
// Test Helpers
// ===================================================================

func mustRead(t *testing.T, text string) syntax.Exp {
	t.Helper()
	//
	e, err := syntax.ReadExp(text, xs, ys, x, s, m, h, g)
	if err != nil {
		t.Fatal(err)
	}
	//
	return e
}

func check_Valid(t *testing.T, text string, expected bool) {
	t.Helper()
	//
	oracle := NewCaching(NewBounded(DefaultConfig(), nil), nil, NewMetrics())
	//
	actual, err := oracle.Valid(context.Background(), mustRead(t, text))
	//
	if err != nil {
		t.Fatal(err)
	} else if actual != expected {
		t.Errorf("expected validity of %s to be %t", text, expected)
	}
}

// Check the oracle neither proves nor refutes a formula within given bounds,
// whether or not it is cached.
func check_Bounds(t *testing.T, config Config, text string) {
	t.Helper()
	//
	for _, oracle := range []Oracle{NewBounded(config, nil), NewCaching(NewBounded(config, nil), nil, NewMetrics())} {
		for range 2 {
			if ok, err := oracle.Valid(context.Background(), mustRead(t, text)); !errors.Is(err, ErrBounds) {
				t.Errorf("expected bounds error for %s, got %t (%v)", text, ok, err)
			}
		}
	}
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	//
	var metric dto.Metric
	//
	if err := c.Write(&metric); err != nil {
		t.Fatal(err)
	}
	//
	return metric.GetCounter().GetValue()
}
