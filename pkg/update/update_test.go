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
	"testing"

	"github.com/consensys/go-incr/pkg/eval"
	"github.com/consensys/go-incr/pkg/incr"
	"github.com/consensys/go-incr/pkg/solver"
	"github.com/consensys/go-incr/pkg/syntax"
	"github.com/google/go-cmp/cmp"
)

var (
	intBag    = &syntax.BagType{Elem: syntax.Int}
	intStrMap = &syntax.MapType{Key: syntax.Int, Value: syntax.String}
	record    = &syntax.RecordType{Fields: []syntax.Field{{Name: "a", Type: syntax.Int}, {Name: "b", Type: intBag}}}
	// Abstract state
	xs    = syntax.NewVar("xs", intBag)
	ys    = syntax.NewVar("ys", intBag)
	m     = syntax.NewVar("m", intStrMap)
	m2    = syntax.NewVar("m2", intStrMap)
	state = []*syntax.Var{xs, ys, m, m2}
	// Arguments
	x = syntax.NewVar("x", syntax.Int)
	y = syntax.NewVar("y", syntax.Int)
	// Materialized values
	c  = syntax.NewVar("c", intBag)
	l  = syntax.NewVar("l", syntax.Int)
	p  = syntax.NewVar("p", &syntax.TupleType{Elems: []syntax.Type{syntax.Int, intBag}})
	rc = syntax.NewVar("rc", record)
	mm = syntax.NewVar("mm", intStrMap)
	hp = syntax.NewVar("hp", &syntax.HeapType{Min: true, Elem: syntax.Int, Key: syntax.Int})
)

// ===================================================================
// Update Sketches
// ===================================================================

func Test_SketchUpdate_01(t *testing.T) {
	updater := newUpdater(DefaultOptions())
	// {1: "a", 2: "b"} becomes {2: "c", 3: "d"}
	stm, queries := check_SketchUpdate(t, updater, mm, "m", "m2")
	//
	if _, ok := stm.(*syntax.Seq); !ok {
		t.Fatalf("expected deletions then updates, got %s", stm.Lisp().String(true))
	}
	//
	check_Query(t, queries, "keys removed from mm", "{1}")
	check_Query(t, queries, "new or modified keys from mm", "{2, 3}")
}

func Test_SketchUpdate_02(t *testing.T) {
	updater := newUpdater(DefaultOptions())
	//
	stm, queries := check_SketchUpdate(t, updater, c, "(filter xs (lambda v (== v v)))", "xs")
	//
	if _, ok := stm.(*syntax.NoOp); !ok || len(queries) != 0 {
		t.Errorf("expected no-op, got %s", stm.Lisp().String(true))
	}
}

func Test_SketchUpdate_03(t *testing.T) {
	updater := newUpdater(DefaultOptions())
	//
	_, queries := check_SketchUpdate(t, updater, c, "(filter xs (lambda v (> v 1)))",
		"(filter (+ xs {x}) (lambda v (> v 1)))")
	//
	if len(queries) != 2 {
		t.Errorf("expected additions and deletions, got %d queries", len(queries))
	}
}

func Test_SketchUpdate_04(t *testing.T) {
	updater := newUpdater(Options{UpdateNumbersWithDeltas: true, SkipStatelessSynthesis: true})
	//
	stm, _ := check_SketchUpdate(t, updater, l, "(len xs)", "(len (+ xs ys))")
	//
	if s, ok := stm.(*syntax.Assign); !ok {
		t.Errorf("expected assignment, got %s", stm.Lisp().String(true))
	} else if b, ok := s.Rhs.(*syntax.Binary); !ok || b.Op != syntax.Plus || b.Lhs != l {
		t.Errorf("expected increment, got %s", syntax.Print(s.Rhs))
	}
}

func Test_SketchUpdate_05(t *testing.T) {
	updater := newUpdater(DefaultOptions())
	//
	stm, queries := check_SketchUpdate(t, updater, l, "(len xs)", "(len (+ xs ys))")
	//
	if s, ok := stm.(*syntax.Assign); !ok {
		t.Errorf("expected assignment, got %s", stm.Lisp().String(true))
	} else if _, ok := s.Rhs.(*syntax.Call); !ok || len(queries) != 1 {
		t.Errorf("expected new value query, got %s", syntax.Print(s.Rhs))
	}
}

func Test_SketchUpdate_06(t *testing.T) {
	updater := newUpdater(DefaultOptions())
	//
	check_SketchUpdate(t, updater, p, "(tuple (len xs) xs)", "(tuple (len ys) (+ xs ys))")
}

func Test_SketchUpdate_07(t *testing.T) {
	updater := newUpdater(DefaultOptions())
	// Field a is unchanged
	_, queries := check_SketchUpdate(t, updater, rc, "(make-record (a (len xs)) (b xs))",
		"(make-record (a (len xs)) (b (+ xs {x})))")
	//
	if len(queries) != 2 {
		t.Errorf("expected 2 queries, got %d", len(queries))
	}
}

func Test_SketchUpdate_08(t *testing.T) {
	updater := newUpdater(DefaultOptions())
	// Nothing depends on the abstract state
	stm, queries := check_SketchUpdate(t, updater, l, "(+ x 1)", "(+ y 1)")
	//
	if len(queries) != 0 {
		t.Errorf("expected no queries, got %d", len(queries))
	} else if s, ok := stm.(*syntax.Assign); !ok || !syntax.AlphaEquivalent(s.Rhs, mustRead(t, "(+ y 1)")) {
		t.Errorf("expected inlined assignment, got %s", stm.Lisp().String(true))
	}
}

func Test_SketchUpdate_09(t *testing.T) {
	updater := newUpdater(Options{})
	//
	_, queries := check_SketchUpdate(t, updater, l, "(+ x 1)", "(+ y 1)")
	//
	if len(queries) != 1 {
		t.Fatalf("expected one query, got %d", len(queries))
	} else if params := queries[0].Params; len(params) != 1 || params[0].Name != "y" {
		t.Errorf("expected query over y, got %s", queries[0].Lisp().String(true))
	}
}

func Test_ValueAt_01(t *testing.T) {
	e := mustRead(t, "(make-map xs (lambda k (if (> k 1) \"a\" \"b\")))")
	//
	actual := ValueAt(e, x)
	expected := mustRead(t, "(if (in x xs) (if (> x 1) \"a\" \"b\") (get (make-map xs (lambda k (if (> k 1) \"a\" \"b\"))) x))")
	//
	if !syntax.AlphaEquivalent(actual, expected) {
		t.Errorf("expected %s, got %s", syntax.Print(expected), syntax.Print(actual))
	}
}

func Test_ValueAt_02(t *testing.T) {
	actual := ValueAt(mustRead(t, "(if (> x 0) m m2)"), y)
	expected := mustRead(t, "(if (> x 0) (get m y) (get m2 y))")
	//
	if !syntax.AlphaEquivalent(actual, expected) {
		t.Errorf("expected %s, got %s", syntax.Print(expected), syntax.Print(actual))
	}
}

// ===================================================================
// In Place Maintenance
// ===================================================================

func Test_MutateInPlace_01(t *testing.T) {
	updater := newUpdater(DefaultOptions())
	//
	check_MutateInPlace(t, updater, c, "(filter xs (lambda v (> v 1)))", "(seq (remove xs x) (add xs y))")
}

func Test_MutateInPlace_02(t *testing.T) {
	updater := newUpdater(DefaultOptions())
	updater.Register(HeapHandler{})
	//
	stm := check_MutateInPlace(t, updater, hp, "(make-heap min xs (lambda v v))", "(seq (remove xs x) (add xs y))")
	// Maintained with heap operations
	for _, s := range syntax.BreakSeq(stm) {
		if f, ok := s.(*syntax.ForEach); !ok {
			t.Errorf("expected loop, got %s", s.Lisp().String(true))
		} else if _, ok := f.Body.(*syntax.CallStm); !ok {
			t.Errorf("expected heap operation, got %s", f.Body.Lisp().String(true))
		}
	}
}

func Test_MutateInPlace_03(t *testing.T) {
	updater := newUpdater(DefaultOptions())
	updater.Register(HeapHandler{})
	// Every key changes, hence the heap is rebuilt
	stm := check_MutateInPlace(t, updater, hp, "(make-heap min xs (lambda v (+ v y)))", "(assign y x)")
	//
	if _, ok := stm.(*syntax.Assign); !ok {
		t.Errorf("expected heap to be rebuilt, got %s", stm.Lisp().String(true))
	}
}

func Test_MutateInPlace_04(t *testing.T) {
	updater := newUpdater(DefaultOptions())
	updater.Register(HeapHandler{})
	// Handlers only apply to their own types
	check_MutateInPlace(t, updater, mm, "m", "(map-del m x)")
}

// ===================================================================
// Test Helpers
// ===================================================================

func newUpdater(options Options) *Updater {
	return NewUpdater(incr.NewEngine(solver.DefaultConfig(), incr.DefaultLimits()), options, nil)
}

func mustRead(t *testing.T, text string) syntax.Exp {
	t.Helper()
	//
	e, err := syntax.ReadExp(text, xs, ys, m, m2, x, y)
	if err != nil {
		t.Fatal(err)
	}
	//
	return e
}

func mustReadStm(t *testing.T, text string) syntax.Stm {
	t.Helper()
	//
	s, err := syntax.ReadStm(text, xs, ys, m, m2, x, y)
	if err != nil {
		t.Fatal(err)
	}
	//
	return s
}

// Environments over which generated code is executed.
func testEnvs() []*eval.Env {
	var (
		m1 = eval.Map{{Key: int64(1), Value: "a"}, {Key: int64(2), Value: "b"}}
		m2 = eval.Map{{Key: int64(2), Value: "c"}, {Key: int64(3), Value: "d"}}
	)
	//
	return []*eval.Env{
		eval.NewEnv(map[string]eval.Value{
			"xs": eval.Bag{int64(1), int64(2)}, "ys": eval.Bag{int64(2), int64(3)}, "m": m1, "m2": m2,
			"x": int64(5), "y": int64(2),
		}),
		eval.NewEnv(map[string]eval.Value{
			"xs": eval.Bag{int64(1), int64(2), int64(2)}, "ys": eval.Bag{}, "m": m1, "m2": m2,
			"x": int64(1), "y": int64(0),
		}),
	}
}

// Bind the queries issued for some update code, such that the code can be
// executed in a given environment.
func bindQueries(env *eval.Env, queries []*syntax.Query) {
	for _, q := range queries {
		env.Funcs[q.Name] = func(args ...eval.Value) (eval.Value, error) {
			inner := env.Clone()
			//
			for i, param := range q.Params {
				inner.Vars[param.Name] = args[i]
			}
			//
			return eval.Eval(q.Ret, inner)
		}
	}
}

// Execute update code for an lvalue, which initially holds the value of old,
// and check it afterwards holds the value of new.
func check_Updated(t *testing.T, lval *syntax.Var, old syntax.Exp, new syntax.Exp, stm syntax.Stm,
	queries []*syntax.Query, env *eval.Env) {
	t.Helper()
	//
	initial, err := eval.Eval(old, env)
	if err != nil {
		t.Fatal(err)
	}
	//
	env.Vars[lval.Name] = initial
	bindQueries(env, queries)
	//
	expected, err := eval.Eval(new, env)
	if err != nil {
		t.Fatal(err)
	}
	//
	post, err := eval.Exec(stm, env)
	if err != nil {
		t.Fatal(err)
	}
	//
	if diff := cmp.Diff(eval.Format(expected), eval.Format(post.Vars[lval.Name])); diff != "" {
		t.Errorf("update of %s is incorrect (-expected +actual):\n%s", lval.Name, diff)
	}
}

func check_SketchUpdate(t *testing.T, updater *Updater, lval *syntax.Var, oldText string,
	newText string) (syntax.Stm, []*syntax.Query) {
	t.Helper()
	//
	old, new := mustRead(t, oldText), mustRead(t, newText)
	//
	stm, queries, err := updater.SketchUpdate(context.Background(), lval, old, new, state, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	//
	for _, env := range testEnvs() {
		check_Updated(t, lval, old, new, stm, queries, env)
	}
	//
	return stm, queries
}

func check_MutateInPlace(t *testing.T, updater *Updater, lval *syntax.Var, exp string, op string) syntax.Stm {
	t.Helper()
	//
	var (
		e = mustRead(t, exp)
		s = mustReadStm(t, op)
	)
	//
	req := Request{LVal: lval, Exp: e, Op: s, State: state}
	//
	stm, queries, err := updater.MutateInPlace(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	//
	after, err := incr.Mutate(e, s)
	if err != nil {
		t.Fatal(err)
	}
	//
	for _, env := range testEnvs() {
		check_Updated(t, lval, e, after, stm, queries, env)
	}
	//
	return stm
}

func check_Query(t *testing.T, queries []*syntax.Query, doc string, expected string) {
	t.Helper()
	//
	for _, q := range queries {
		if q.Doc != doc {
			continue
		}
		//
		for _, env := range testEnvs() {
			v, err := eval.Eval(q.Ret, env)
			if err != nil {
				t.Fatal(err)
			} else if actual := eval.Format(v); actual != expected {
				t.Errorf("expected %s for %q, got %s", expected, doc, actual)
			}
		}
		//
		return
	}
	//
	t.Errorf("no query for %q", doc)
}
