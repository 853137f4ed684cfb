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
	"context"
	"errors"
	"testing"

	"github.com/consensys/go-incr/pkg/contexts"
	"github.com/consensys/go-incr/pkg/eval"
	"github.com/consensys/go-incr/pkg/solver"
	"github.com/consensys/go-incr/pkg/syntax"
	"github.com/google/go-cmp/cmp"
	dto "github.com/prometheus/client_model/go"
)

var (
	intBag = &syntax.BagType{Elem: syntax.Int}
	record = &syntax.RecordType{Fields: []syntax.Field{{Name: "a", Type: syntax.Int}, {Name: "b", Type: intBag}}}
	node   = &syntax.HandleType{Name: "Node", Value: syntax.Int}
	xs     = syntax.NewVar("xs", intBag)
	ys     = syntax.NewVar("ys", intBag)
	x      = syntax.NewVar("x", syntax.Int)
	y      = syntax.NewVar("y", syntax.Int)
	r      = syntax.NewVar("r", record)
	h      = syntax.NewVar("h", node)
	g      = syntax.NewVar("g", node)
	mp     = syntax.NewVar("mp", &syntax.MapType{Key: syntax.Int, Value: syntax.Int})
)

// ===================================================================
// Mutation
// ===================================================================

func Test_Mutate_01(t *testing.T) {
	check_Mutate(t, "(+ x 1)", "(assign x (+ x 2))")
}

func Test_Mutate_02(t *testing.T) {
	check_Mutate(t, "(filter xs (lambda v (> v x)))", "(seq (add xs x) (assign x 0))")
}

func Test_Mutate_03(t *testing.T) {
	check_Mutate(t, "(len xs)", "(if (in y xs) (remove xs y) (add-all xs ys))")
}

func Test_Mutate_04(t *testing.T) {
	check_Mutate(t, "(tuple x y)", "(seq (decl z (+ x y)) (assign y z))")
}

func Test_Mutate_05(t *testing.T) {
	check_Mutate(t, "(tuple (field r a) (field r b))", "(seq (add (field r b) x) (assign (field r a) y))")
}

func Test_Mutate_06(t *testing.T) {
	// Handles may alias, hence all payload reads are affected
	check_Mutate(t, "(+ (field h val) (field g val))", "(assign (field h val) 7)")
}

func Test_Mutate_07(t *testing.T) {
	check_Mutate(t, "(map xs (lambda v (+ v (field g val))))", "(seq (assign (field h val) x) (remove-all xs ys))")
}

func Test_Mutate_08(t *testing.T) {
	check_Mutate(t, "(- xs ys)", "(seq (seq (add ys 1) (add xs 1)) (if (> x 2) (remove ys x) (skip)))")
}

func Test_Mutate_09(t *testing.T) {
	e := mustReadExp(t, "(filter xs (lambda v (> v x)))")
	// Skipping leaves expressions untouched
	if actual, err := Mutate(e, syntax.Skip); err != nil || actual != e {
		t.Errorf("expected identical expression, got %v (%v)", actual, err)
	}
}

func Test_Mutate_10(t *testing.T) {
	var unsupported *UnsupportedError
	//
	s := mustReadStm(t, "(foreach v xs (add ys v))")
	//
	if _, err := Mutate(mustReadExp(t, "ys"), s); !errors.As(err, &unsupported) {
		t.Errorf("expected unsupported construct, got %v", err)
	}
}

func Test_Mutate_11(t *testing.T) {
	check_Mutate(t, "(tuple (get mp x) (get mp 1) (len (keys mp)))", "(map-del mp x)")
}

func Test_Mutate_12(t *testing.T) {
	check_Mutate(t, "(tuple (get mp x) (get mp 1) (len (keys mp)))", "(map-update mp x v (assign v (+ v y)))")
}

func Test_Mutate_13(t *testing.T) {
	var unsupported *UnsupportedError
	// Only the value may be written by the body
	s := mustReadStm(t, "(map-update mp x v (seq (assign v 1) (add xs v)))")
	//
	if _, err := Mutate(mustReadExp(t, "xs"), s); !errors.As(err, &unsupported) {
		t.Errorf("expected unsupported construct, got %v", err)
	}
}

func Test_Bags_01(t *testing.T) {
	check_Canonical(t, "(map (+ xs {x}) (lambda v (+ v 1)))")
}

func Test_Bags_02(t *testing.T) {
	check_Canonical(t, "(map (map xs (lambda v (* v 2))) (lambda w (+ w y)))")
}

func Test_Bags_03(t *testing.T) {
	check_Canonical(t, "(filter (map (+ xs ys) (lambda v (* v 2))) (lambda w (> w 2)))")
}

func Test_Bags_04(t *testing.T) {
	check_Canonical(t, "(filter (+ {x} (if (> y 0) {y} xs)) (lambda v (!= v 1)))")
}

func Test_Bags_05(t *testing.T) {
	check_Canonical(t, "(distinct (+ xs {x}))")
	check_Canonical(t, "(distinct {x})")
}

func Test_Bags_06(t *testing.T) {
	check_Canonical(t, "(exists (+ {x} ys))")
	check_Canonical(t, "(exists (if (> x y) xs ys))")
	check_Canonical(t, "(len (if (> x y) {x} {y}))")
}

func Test_Bags_07(t *testing.T) {
	check_BagOp(t, syntax.Minus, "(+ xs {x})", "{x}")
	check_BagOp(t, syntax.Minus, "(filter xs (lambda v (> v 0)))", "ys")
	check_BagOp(t, syntax.Minus, "{x}", "(+ ys {y})")
}

func Test_Bags_08(t *testing.T) {
	check_BagOp(t, syntax.Intersect, "(+ xs {x})", "xs")
	check_BagOp(t, syntax.Intersect, "(filter xs (lambda v (> v 0)))", "ys")
	check_BagOp(t, syntax.Intersect, "{x}", "{y}")
}

func Test_ReplaceGetValue_01(t *testing.T) {
	e := mustReadExp(t, "(filter xs (lambda h (== h (field g val))))")
	// Bound variable named after the handle is renamed
	actual := ReplaceGetValue(e, h, x)
	expected := mustReadExp(t, "(filter xs (lambda w (== w (if (== g h) x (field g val)))))")
	//
	if !syntax.AlphaEquivalent(actual, expected) {
		t.Errorf("expected %s, got %s", syntax.Print(expected), syntax.Print(actual))
	}
}

// ===================================================================
// Bag Deltas
// ===================================================================

func Test_BagDelta_01(t *testing.T) {
	d := check_Delta(t, "(filter xs (lambda v (!= v 0)))", "(add xs 5)", "true")
	//
	if !syntax.IsEmptyBag(d.Removed) {
		t.Errorf("expected nothing removed, got %s", syntax.Print(d.Removed))
	} else if v, err := eval.Eval(d.Added, eval.NewEnv(nil)); err != nil || eval.Format(v) != "{5}" {
		t.Errorf("expected {5} added, got %s", syntax.Print(d.Added))
	}
}

func Test_BagDelta_02(t *testing.T) {
	check_Delta(t, "(map xs (lambda v (* v 2)))", "(remove xs x)", "true")
}

func Test_BagDelta_03(t *testing.T) {
	check_Delta(t, "(+ xs ys)", "(add ys x)", "true")
}

func Test_BagDelta_04(t *testing.T) {
	check_Delta(t, "(- xs ys)", "(add xs x)", "(empty (- ys xs))")
}

func Test_BagDelta_05(t *testing.T) {
	check_Delta(t, "(distinct xs)", "(remove xs x)", "true")
}

func Test_BagDelta_06(t *testing.T) {
	check_Delta(t, "(distinct xs)", "(add xs x)", "true")
}

func Test_BagDelta_07(t *testing.T) {
	check_Delta(t, "(if (exists ys) xs ys)", "(add ys x)", "true")
}

func Test_BagDelta_08(t *testing.T) {
	check_Delta(t, "(if (exists ys) xs ys)", "(remove ys x)", "true")
}

func Test_BagDelta_09(t *testing.T) {
	check_Delta(t, "(if (> x 1) xs ys)", "(add xs 3)", "true")
}

func Test_BagDelta_10(t *testing.T) {
	check_Delta(t, "(singleton (bag int) (len xs))", "(add xs x)", "true")
}

func Test_BagDelta_11(t *testing.T) {
	check_Delta(t, "(flatmap xs (lambda v (filter ys (lambda w (< w v)))))", "(add ys x)", "true")
}

func Test_BagDelta_12(t *testing.T) {
	check_Delta(t, "(flatmap xs (lambda v (filter ys (lambda w (< w v)))))", "(remove xs x)", "(in x xs)")
}

func Test_BagDelta_13(t *testing.T) {
	// Data dependent, hence resolved by case splitting
	check_Delta(t, "(filter xs (lambda v (!= v x)))", "(add xs y)", "true")
}

func Test_BagDelta_14(t *testing.T) {
	check_Delta(t, "(map (filter xs (lambda v (> v 0))) (lambda v (+ v x)))", "(seq (remove xs y) (add xs 2))", "true")
}

func Test_BagDelta_15(t *testing.T) {
	check_Delta(t, "xs", "(if (in x xs) (remove xs x) (add xs x))", "true")
}

func Test_BagDelta_16(t *testing.T) {
	d := check_Delta(t, "(filter xs (lambda v (> v 0)))", "(add ys x)", "true")
	//
	if !syntax.IsEmptyBag(d.Added) || !syntax.IsEmptyBag(d.Removed) {
		t.Errorf("expected empty delta, got +%s -%s", syntax.Print(d.Added), syntax.Print(d.Removed))
	}
}

func Test_BagDelta_17(t *testing.T) {
	d := check_Delta(t, "(map xs (lambda v (+ v 1)))", "(skip)", "true")
	//
	if !syntax.IsEmptyBag(d.Added) || !syntax.IsEmptyBag(d.Removed) {
		t.Errorf("expected empty delta, got +%s -%s", syntax.Print(d.Added), syntax.Print(d.Removed))
	}
}

func Test_BagDelta_18(t *testing.T) {
	var inefficient *InefficientError
	//
	engine := NewEngine(solver.DefaultConfig(), Limits{MaxDeltaSize: 1, MaxForkDepth: 6})
	e, op := mustReadExp(t, "(filter xs (lambda v (> v 0)))"), mustReadStm(t, "(add-all xs ys)")
	//
	if _, err := engine.BagDelta(context.Background(), e, testContext(), op, syntax.True); !errors.As(err, &inefficient) {
		t.Errorf("expected inefficient result, got %v", err)
	}
}

func Test_BagDelta_19(t *testing.T) {
	var inefficient *InefficientError
	//
	engine := NewEngine(solver.DefaultConfig(), Limits{MaxDeltaSize: 100, MaxForkDepth: 0})
	e, op := mustReadExp(t, "(filter xs (lambda v (!= v x)))"), mustReadStm(t, "(add xs y)")
	//
	if _, err := engine.BagDelta(context.Background(), e, testContext(), op, syntax.True); !errors.As(err, &inefficient) {
		t.Errorf("expected inefficient result, got %v", err)
	} else if n := counterValue(t, engine.Metrics().Inefficient); n != 1 {
		t.Errorf("expected 1 inefficient result, got %v", n)
	}
}

func Test_BagDelta_20(t *testing.T) {
	engine := NewEngine(solver.DefaultConfig(), DefaultLimits())
	e, op := mustReadExp(t, "(filter xs (lambda v (!= v x)))"), mustReadStm(t, "(add xs y)")
	//
	if _, err := engine.BagDelta(context.Background(), e, testContext(), op, syntax.True); err != nil {
		t.Fatal(err)
	} else if n := counterValue(t, engine.Metrics().Forks); n < 1 {
		t.Errorf("expected a case split, got %v", n)
	}
}

func Test_BagDelta_21(t *testing.T) {
	// Only three or more elements make the predicate false
	d := check_Delta(t, "(filter ys (lambda v (< (len xs) 3)))", "(add ys x)", "true")
	//
	env := testEnvs()[3]
	//
	if v := mustEval(t, d.Added, env); !eval.Equal(v, eval.Bag{}) {
		t.Errorf("expected nothing added for xs = %s, got %s", eval.Format(env.Vars["xs"]), eval.Format(v))
	}
}

func Test_BagDelta_22(t *testing.T) {
	check_Delta(t, "(filter xs (lambda v (< (len ys) 2)))", "(add ys x)", "true")
	check_Delta(t, "(filter xs (lambda v (!= (count v xs) 3)))", "(add xs y)", "true")
}

func Test_BagDelta_23(t *testing.T) {
	// ys stays within xs, hence y leaves the difference
	d := check_Delta(t, "(- xs ys)", "(add ys y)", "(and (empty (- ys xs)) (in y (- xs ys)))")
	//
	if !syntax.IsEmptyBag(d.Added) || !syntax.AlphaEquivalent(d.Removed, mustReadExp(t, "{y}")) {
		t.Errorf("expected +{} -{y}, got +%s -%s", syntax.Print(d.Added), syntax.Print(d.Removed))
	}
}

func Test_BagDelta_24(t *testing.T) {
	// Differences which may clamp are read off their new value
	check_Delta(t, "(- xs ys)", "(add ys y)", "true")
	check_Delta(t, "(- xs ys)", "(seq (remove xs x) (add ys x))", "(empty (- ys xs))")
	check_Delta(t, "(- xs ys)", "(remove ys y)", "(empty (- ys xs))")
}

// ===================================================================
// Runtime Incrementalization
// ===================================================================

func Test_BetterMutate_01(t *testing.T) {
	res := check_BetterMutate(t, "(argmin xs (lambda v v))", "(remove xs x)",
		"(and (== x (argmin xs (lambda v v))) (>= (len xs) 2))")
	// Second smallest element is read from the heap
	c, ok := res.(*syntax.Cond)
	//
	if !ok {
		t.Fatalf("expected conditional, got %s", syntax.Print(res))
	} else if _, ok := c.Then.(*syntax.HeapPeek2); !ok {
		t.Errorf("expected heap lookup, got %s", syntax.Print(c.Then))
	}
}

func Test_BetterMutate_02(t *testing.T) {
	check_BetterMutate(t, "(argmax xs (lambda v v))", "(remove xs x)", "(in x xs)")
}

func Test_BetterMutate_03(t *testing.T) {
	check_BetterMutate(t, "(argmin xs (lambda v v))", "(add xs x)", "true")
}

func Test_BetterMutate_04(t *testing.T) {
	check_BetterMutate(t, "(argmin xs (lambda v v))", "(seq (remove xs y) (add xs x))", "true")
}

func Test_BetterMutate_05(t *testing.T) {
	check_BetterMutate(t, "(exists (filter xs (lambda v (> v 1))))", "(remove xs x)", "true")
}

func Test_BetterMutate_06(t *testing.T) {
	check_BetterMutate(t, "(not (exists xs))", "(add xs x)", "true")
}

func Test_BetterMutate_07(t *testing.T) {
	check_BetterMutate(t, "(+ (len xs) (len ys))", "(add-all ys xs)", "true")
}

func Test_BetterMutate_08(t *testing.T) {
	check_BetterMutate(t, "(if (exists xs) (len xs) (len ys))", "(remove xs x)", "true")
}

func Test_BetterMutate_09(t *testing.T) {
	check_BetterMutate(t, "(filter xs (lambda v (< v y)))", "(add xs x)", "true")
}

func Test_BetterMutate_10(t *testing.T) {
	var inefficient *InefficientError
	//
	engine := NewEngine(solver.DefaultConfig(), DefaultLimits())
	esv := &syntax.StateVar{Exp: mustReadExp(t, "(argmin xs (lambda v v))")}
	// Any number of elements may be removed
	_, err := engine.BetterMutate(context.Background(), esv, testContext(), mustReadStm(t, "(remove-all xs ys)"), syntax.True)
	//
	if !errors.As(err, &inefficient) {
		t.Errorf("expected inefficient result, got %v", err)
	}
}

// ===================================================================
// Transitions
// ===================================================================

func Test_BetterMutate_11(t *testing.T) {
	check_BetterMutate(t, "(if (< (len xs) 3) x y)", "(add xs x)", "true")
	check_BetterMutate(t, "(exists (filter xs (lambda v (>= (len xs) 4))))", "(remove xs y)", "true")
}

func Test_BetterMutate_12(t *testing.T) {
	// Nothing removed, hence nothing subtracted
	res := check_BetterMutate(t, "(argmin xs (lambda v v))", "(add xs x)", "true")
	check_Simplified(t, res)
	//
	for _, e := range []string{"(exists (distinct xs))", "(in y (distinct xs))", "(not (exists (distinct xs)))"} {
		check_Simplified(t, check_BetterMutate(t, e, "(add xs x)", "true"))
		check_Simplified(t, check_BetterMutate(t, e, "(remove xs x)", "true"))
	}
}

func Test_BecameBool_01(t *testing.T) {
	check_BecameBool(t, "(exists xs)", "(add xs x)", true)
}

func Test_BecameBool_02(t *testing.T) {
	check_BecameBool(t, "(exists xs)", "(remove xs x)", false)
}

func Test_BecameBool_03(t *testing.T) {
	check_BecameBool(t, "(and (in x xs) (in y xs))", "(add xs x)", true)
}

func Test_BecameBool_04(t *testing.T) {
	check_BecameBool(t, "(and (in x xs) (exists ys))", "(seq (remove xs x) (add ys y))", false)
}

func Test_BecameBool_05(t *testing.T) {
	check_BecameBool(t, "(or (in x xs) (exists ys))", "(seq (remove xs y) (remove ys x))", false)
}

func Test_BecameBool_06(t *testing.T) {
	check_BecameBool(t, "(or (in x xs) (exists ys))", "(add ys y)", true)
}

func Test_BecameBool_07(t *testing.T) {
	check_BecameBool(t, "(not (> (len xs) x))", "(add xs y)", false)
}

func Test_BecameBool_08(t *testing.T) {
	check_BecameBool(t, "(and (> (len xs) x) (not (exists ys)))", "(seq (add xs y) (remove ys y))", true)
}

func Test_Changed_01(t *testing.T) {
	check_Changed(t, "(len xs)", "(add xs x)")
}

func Test_Changed_02(t *testing.T) {
	check_Changed(t, "(argmin xs (lambda v v))", "(remove-all xs ys)")
}

func Test_Changed_03(t *testing.T) {
	check_Changed(t, "(not (in x xs))", "(remove xs y)")
}

func Test_Changed_04(t *testing.T) {
	engine := NewEngine(solver.DefaultConfig(), DefaultLimits())
	//
	c, err := engine.Changed(context.Background(), mustReadExp(t, "(len ys)"), testContext(),
		mustReadStm(t, "(add xs x)"), syntax.True)
	//
	if err != nil || !syntax.IsFalse(c) {
		t.Errorf("expected unchanged, got %v (%v)", c, err)
	}
}

// ===================================================================
// Forks
// ===================================================================

func Test_Fork_01(t *testing.T) {
	engine := NewEngine(solver.DefaultConfig(), DefaultLimits())
	assumptions := mustReadExp(t, "(> x 1)")
	//
	res, err := engine.Fork(context.Background(), testContext(), assumptions, mustReadExp(t, "(!= x 0)"), xs, ys)
	//
	if err != nil || res != xs {
		t.Errorf("expected then branch, got %v (%v)", res, err)
	}
}

func Test_Fork_02(t *testing.T) {
	var pending *PendingError
	//
	engine := NewEngine(solver.DefaultConfig(), DefaultLimits())
	cond := mustReadExp(t, "(and (> x 1) (in y xs))")
	//
	_, err := engine.Fork(context.Background(), testContext(), mustReadExp(t, "(> x 1)"), cond, xs, ys)
	// First conjunct decided, second pending
	if !errors.As(err, &pending) {
		t.Fatalf("expected pending condition, got %v", err)
	} else if !syntax.AlphaEquivalent(pending.Cond, mustReadExp(t, "(in y xs)")) {
		t.Errorf("expected pending on second conjunct, got %s", syntax.Print(pending.Cond))
	}
}

func Test_ResolveForks_01(t *testing.T) {
	engine := NewEngine(solver.DefaultConfig(), DefaultLimits())
	scope := testContext()
	//
	res, err := engine.ResolveForks(context.Background(), syntax.True, func(a syntax.Exp) (syntax.Exp, error) {
		lhs, err := engine.Fork(context.Background(), scope, a, mustReadExp(t, "(> x y)"), x, y)
		if err != nil {
			return nil, err
		}
		//
		return engine.Fork(context.Background(), scope, a, mustReadExp(t, "(in x xs)"), lhs, syntax.Zero)
	})
	//
	if err != nil {
		t.Fatal(err)
	}
	//
	expected := mustReadExp(t, "(if (> x y) (if (in x xs) x 0) (if (in x xs) y 0))")
	//
	if !syntax.AlphaEquivalent(res, expected) {
		t.Errorf("expected %s, got %s", syntax.Print(expected), syntax.Print(res))
	}
}

// ===================================================================
// Flattening, Repair and Optimisation
// ===================================================================

func Test_Flatten_01(t *testing.T) {
	check_Flatten(t, "(seq (add xs x) (assign x (len xs)))")
}

func Test_Flatten_02(t *testing.T) {
	check_Flatten(t, "(if (in x xs) (seq (remove xs x) (assign y x)) (add-all ys xs))")
}

func Test_Flatten_03(t *testing.T) {
	// Else branch sees the condition as it was before the then branch
	check_Flatten(t, "(if (in x xs) (remove xs x) (if (in x xs) (assign y 1) (assign y 2)))")
}

func Test_Flatten_04(t *testing.T) {
	check_Flatten(t, "(seq (if (> x 1) (assign (field r a) x)) (add (field r b) (field r a)))")
}

func Test_Flatten_05(t *testing.T) {
	steps, err := Flatten(mustReadStm(t, "(seq (skip) (seq (add xs 1) (skip)))"))
	//
	if err != nil {
		t.Fatal(err)
	} else if len(steps) != 1 {
		t.Errorf("expected a single step, got %d", len(steps))
	}
}

func Test_RepairStateVar_01(t *testing.T) {
	e := mustReadExp(t, "(+ (len (state xs)) (len (filter ys (lambda v (> v 1)))))")
	available := []syntax.Exp{mustReadExp(t, "(filter ys (lambda w (> w 1)))")}
	//
	actual := RepairStateVar(e, available)
	expected := mustReadExp(t, "(+ (len xs) (len (state (filter ys (lambda w (> w 1))))))")
	//
	if !syntax.AlphaEquivalent(actual, expected) {
		t.Errorf("expected %s, got %s", syntax.Print(expected), syntax.Print(actual))
	}
}

func Test_Optimize_01(t *testing.T) {
	check_Optimize(t, "(if (> x 2) (+ x 1) (if (> x 2) 7 x))", "(>= x 3)", "(+ x 1)")
}

func Test_Optimize_02(t *testing.T) {
	check_Optimize(t, "(filter xs (lambda v (in v xs)))", "true", "xs")
}

func Test_Optimize_03(t *testing.T) {
	check_Optimize(t, "(and (in x xs) (exists xs))", "true", "(in x xs)")
}

func Test_Optimize_04(t *testing.T) {
	check_Optimize(t, "(map (filter xs (lambda v (> v x))) (lambda v (+ v 1)))", "(empty xs)", "(empty-bag (bag int))")
}

// ===================================================================
// Test Helpers
// ===================================================================

func testContext() contexts.Context {
	return contexts.NewRoot([]*syntax.Var{xs, ys, r, h, g}, []*syntax.Var{x, y}, nil)
}

// A handful of environments covering empty, duplicated, aliased and larger
// state.
func testEnvs() []*eval.Env {
	var (
		env1 = eval.NewEnv(map[string]eval.Value{
			"xs": eval.Bag{int64(0), int64(1), int64(2), int64(2)}, "ys": eval.Bag{int64(1)},
			"x": int64(3), "y": int64(1), "r": eval.Record{{Name: "a", Value: int64(1)}, {Name: "b", Value: eval.Bag{}}},
			"h": eval.Handle{Addr: 1}, "g": eval.Handle{Addr: 2},
			"mp": eval.Map{{Key: int64(1), Value: int64(7)}, {Key: int64(3), Value: int64(9)}},
		})
		env2 = eval.NewEnv(map[string]eval.Value{
			"xs": eval.Bag{}, "ys": eval.Bag{}, "x": int64(0), "y": int64(0),
			"r": eval.Record{{Name: "a", Value: int64(0)}, {Name: "b", Value: eval.Bag{int64(0)}}},
			"h": eval.Handle{Addr: 1}, "g": eval.Handle{Addr: 1}, "mp": eval.Map{},
		})
		env3 = eval.NewEnv(map[string]eval.Value{
			"xs": eval.Bag{int64(5)}, "ys": eval.Bag{int64(5), int64(5)}, "x": int64(5), "y": int64(2),
			"r": eval.Record{{Name: "a", Value: int64(4)}, {Name: "b", Value: eval.Bag{int64(5)}}},
			"h": eval.Handle{Addr: 2}, "g": eval.Handle{Addr: 1},
			"mp": eval.Map{{Key: int64(2), Value: int64(1)}},
		})
		env4 = eval.NewEnv(map[string]eval.Value{
			"xs": eval.Bag{int64(1), int64(2), int64(3)}, "ys": eval.Bag{int64(4)}, "x": int64(7), "y": int64(3),
			"r": eval.Record{{Name: "a", Value: int64(2)}, {Name: "b", Value: eval.Bag{int64(1), int64(2), int64(3), int64(4)}}},
			"h": eval.Handle{Addr: 1}, "g": eval.Handle{Addr: 2},
			"mp": eval.Map{{Key: int64(1), Value: int64(1)}, {Key: int64(2), Value: int64(2)}, {Key: int64(3), Value: int64(3)}},
		})
	)
	//
	env1.Store[1], env1.Store[2] = int64(10), int64(20)
	env2.Store[1] = int64(3)
	env3.Store[1], env3.Store[2] = int64(4), int64(8)
	env4.Store[1], env4.Store[2] = int64(6), int64(6)
	//
	return []*eval.Env{env1, env2, env3, env4}
}

func mustReadExp(t *testing.T, text string) syntax.Exp {
	t.Helper()
	//
	e, err := syntax.ReadExp(text, xs, ys, x, y, r, h, g, mp)
	if err != nil {
		t.Fatal(err)
	}
	//
	return e
}

func mustReadStm(t *testing.T, text string) syntax.Stm {
	t.Helper()
	//
	s, err := syntax.ReadStm(text, xs, ys, x, y, r, h, g, mp)
	if err != nil {
		t.Fatal(err)
	}
	//
	return s
}

func mustEval(t *testing.T, e syntax.Exp, env *eval.Env) eval.Value {
	t.Helper()
	//
	v, err := eval.Eval(e, env)
	if err != nil {
		t.Fatal(err)
	}
	//
	return v
}

// Check a formula holds in every model within the bounds of the oracle.
func checkValid(t *testing.T, f syntax.Exp) {
	t.Helper()
	//
	model, err := solver.NewBounded(solver.DefaultConfig(), nil).Satisfy(context.Background(), syntax.NewNot(f))
	//
	if err != nil {
		t.Fatal(err)
	} else if model != nil {
		t.Errorf("%s does not hold in model:\n%s", syntax.Print(f), solver.FormatModel(model))
	}
}

// Check that, in every test environment satisfying some assumptions, a given
// expression evaluates to the value the original expression has after a
// statement.
func checkConcrete(t *testing.T, assumptions syntax.Exp, s syntax.Stm, e syntax.Exp, actual syntax.Exp) {
	t.Helper()
	//
	for i, env := range testEnvs() {
		if !eval.Equal(mustEval(t, assumptions, env), true) {
			continue
		}
		//
		post, err := eval.Exec(s, env)
		if err != nil {
			t.Fatal(err)
		}
		//
		expected, val := mustEval(t, e, post), mustEval(t, actual, env)
		//
		if !eval.Equal(expected, val) {
			t.Errorf("environment %d: expected %s, got %s for %s", i, eval.Format(expected), eval.Format(val),
				syntax.Print(actual))
		}
	}
}

// Check an expression subtracts no empty collection, and has no conditional
// with a constant boolean branch.
func check_Simplified(t *testing.T, e syntax.Exp) {
	t.Helper()
	//
	switch e := e.(type) {
	case *syntax.Binary:
		if e.Op == syntax.Minus && syntax.IsEmptyBag(e.Rhs) {
			t.Errorf("unsimplified difference %s", syntax.Print(e))
		}
	case *syntax.Cond:
		_, then := e.Then.(*syntax.BoolLit)
		_, els := e.Else.(*syntax.BoolLit)
		//
		if then || els {
			t.Errorf("unsimplified conditional %s", syntax.Print(e))
		}
	}
	//
	for _, c := range syntax.Children(e) {
		check_Simplified(t, c)
	}
}

func check_Mutate(t *testing.T, exp string, stm string) {
	t.Helper()
	//
	e, s := mustReadExp(t, exp), mustReadStm(t, stm)
	//
	after, err := Mutate(e, s)
	if err != nil {
		t.Fatal(err)
	}
	//
	for i, env := range testEnvs() {
		post, err := eval.Exec(s, env)
		if err != nil {
			t.Fatal(err)
		}
		//
		expected, actual := mustEval(t, e, post), mustEval(t, after, env)
		//
		if !eval.Equal(expected, actual) {
			t.Errorf("environment %d: expected %s, got %s", i, eval.Format(expected), eval.Format(actual))
		}
	}
	// Deterministic up to alpha-equivalence
	if again, err := Mutate(e, s); err != nil || !syntax.AlphaEquivalent(after, again) {
		t.Errorf("expected repeatable mutation, got %v (%v)", again, err)
	}
}

// Check a canonicalising constructor agrees with the construction it replaces.
func check_Canonical(t *testing.T, exp string) {
	t.Helper()
	//
	var (
		e     = mustReadExp(t, exp)
		canon syntax.Exp
	)
	//
	switch e := e.(type) {
	case *syntax.Map:
		canon = EMap(e.Source, e.F)
	case *syntax.Filter:
		canon = EFilter(e.Source, e.P)
	case *syntax.Unary:
		switch e.Op {
		case syntax.Distinct:
			canon = EDistinct(e.Arg)
		case syntax.Exists:
			canon = Exists(e.Arg)
		case syntax.Len:
			canon = LenOf(e.Arg)
		}
	}
	//
	if canon == nil {
		t.Fatalf("no canonical form for %s", exp)
	}
	//
	for i, env := range testEnvs() {
		expected, actual := mustEval(t, e, env), mustEval(t, canon, env)
		//
		if !eval.Equal(expected, actual) {
			t.Errorf("environment %d: expected %s, got %s for %s", i, eval.Format(expected), eval.Format(actual),
				syntax.Print(canon))
		}
	}
}

// Check the simplified difference or intersection of two collections agrees
// with the plain one.
func check_BagOp(t *testing.T, op syntax.BinaryOp, lhs string, rhs string) {
	t.Helper()
	//
	var (
		engine = NewEngine(solver.DefaultConfig(), DefaultLimits())
		e1, e2 = mustReadExp(t, lhs), mustReadExp(t, rhs)
		ctx    = context.Background()
		res    syntax.Exp
		err    error
	)
	//
	if op == syntax.Minus {
		res, err = engine.BagSubtract(ctx, testContext(), syntax.True, e1, e2)
	} else {
		res, err = engine.BagIntersection(ctx, testContext(), syntax.True, e1, e2)
	}
	//
	if err != nil {
		t.Fatal(err)
	}
	//
	checkValid(t, syntax.NewEq(res, syntax.NewBinary(op, e1, e2)))
}

func check_Delta(t *testing.T, exp string, stm string, assumptions string) Delta {
	t.Helper()
	//
	var (
		engine = NewEngine(solver.DefaultConfig(), DefaultLimits())
		e      = mustReadExp(t, exp)
		s      = mustReadStm(t, stm)
		a      = mustReadExp(t, assumptions)
	)
	//
	d, err := engine.BagDelta(context.Background(), e, testContext(), s, a)
	if err != nil {
		t.Fatal(err)
	}
	//
	after, err := Mutate(e, s)
	if err != nil {
		t.Fatal(err)
	}
	// e - removed + added == e after s
	updated := syntax.NewBinary(syntax.Plus, syntax.NewBinary(syntax.Minus, e, d.Removed), d.Added)
	checkValid(t, syntax.NewImplies(a, syntax.NewEq(updated, after)))
	// Nothing is both added and removed
	overlap := syntax.NewBinary(syntax.Intersect, d.Added, d.Removed)
	checkValid(t, syntax.NewImplies(a, syntax.NewUnary(syntax.Empty, overlap)))
	// Only elements present are removed
	absent := syntax.NewBinary(syntax.Minus, d.Removed, e)
	checkValid(t, syntax.NewImplies(a, syntax.NewUnary(syntax.Empty, absent)))
	// Likewise for environments beyond the bounds of the oracle
	checkConcrete(t, a, s, e, updated)
	checkConcrete(t, a, syntax.Skip, syntax.NewUnary(syntax.Empty, absent), syntax.True)
	//
	return d
}

func check_BetterMutate(t *testing.T, exp string, stm string, assumptions string) syntax.Exp {
	t.Helper()
	//
	var (
		engine = NewEngine(solver.DefaultConfig(), DefaultLimits())
		e      = mustReadExp(t, exp)
		s      = mustReadStm(t, stm)
		a      = mustReadExp(t, assumptions)
	)
	//
	res, err := engine.BetterMutate(context.Background(), &syntax.StateVar{Exp: e}, testContext(), s, a)
	if err != nil {
		t.Fatal(err)
	}
	//
	after, err := Mutate(e, s)
	if err != nil {
		t.Fatal(err)
	}
	//
	checkValid(t, syntax.NewImplies(a, syntax.NewEq(res, after)))
	checkConcrete(t, a, s, e, res)
	//
	return res
}

func check_BecameBool(t *testing.T, exp string, stm string, val bool) {
	t.Helper()
	//
	var (
		engine = NewEngine(solver.DefaultConfig(), DefaultLimits())
		e      = mustReadExp(t, exp)
		s      = mustReadStm(t, stm)
		before = syntax.NewEq(e, syntax.NewBool(!val))
	)
	//
	res, err := engine.BecameBool(context.Background(), e, testContext(), s, val, syntax.True)
	if err != nil {
		t.Fatal(err)
	}
	//
	after, err := Mutate(e, s)
	if err != nil {
		t.Fatal(err)
	}
	//
	checkValid(t, syntax.NewImplies(before, syntax.NewEq(res, syntax.NewEq(after, syntax.NewBool(val)))))
}

func check_Changed(t *testing.T, exp string, stm string) {
	t.Helper()
	//
	var (
		engine = NewEngine(solver.DefaultConfig(), DefaultLimits())
		e      = mustReadExp(t, exp)
		s      = mustReadStm(t, stm)
	)
	//
	res, err := engine.Changed(context.Background(), e, testContext(), s, syntax.True)
	if err != nil {
		t.Fatal(err)
	}
	//
	after, err := Mutate(e, s)
	if err != nil {
		t.Fatal(err)
	}
	//
	checkValid(t, syntax.NewEq(res, syntax.NewBinary(syntax.Ne, e, after)))
}

func check_Flatten(t *testing.T, stm string) {
	t.Helper()
	//
	s := mustReadStm(t, stm)
	//
	steps, err := Flatten(s)
	if err != nil {
		t.Fatal(err)
	}
	//
	for _, step := range steps {
		switch step.(type) {
		case *syntax.Assign, *syntax.CallStm, *syntax.Decl:
		default:
			t.Fatalf("unexpected step %s", step.Lisp().String(false))
		}
	}
	//
	flat := syntax.SeqOf(steps...)
	//
	for i, env := range testEnvs() {
		expected, err := eval.Exec(s, env)
		if err != nil {
			t.Fatal(err)
		}
		//
		actual, err := eval.Exec(flat, env)
		if err != nil {
			t.Fatal(err)
		}
		//
		for _, v := range []*syntax.Var{xs, ys, x, y, r} {
			if diff := cmp.Diff(eval.Format(expected.Vars[v.Name]), eval.Format(actual.Vars[v.Name])); diff != "" {
				t.Errorf("environment %d: %s differs (-expected +actual):\n%s", i, v.Name, diff)
			}
		}
	}
}

func check_Optimize(t *testing.T, exp string, pc string, expected string) {
	t.Helper()
	//
	engine := NewEngine(solver.DefaultConfig(), DefaultLimits())
	//
	actual, err := engine.Optimize(context.Background(), mustReadExp(t, exp), testContext(), mustReadExp(t, pc))
	if err != nil {
		t.Fatal(err)
	}
	//
	if e := mustReadExp(t, expected); !syntax.AlphaEquivalent(actual, e) {
		t.Errorf("expected %s, got %s", syntax.Print(e), syntax.Print(actual))
	}
}

func counterValue(t *testing.T, c interface{ Write(*dto.Metric) error }) float64 {
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
