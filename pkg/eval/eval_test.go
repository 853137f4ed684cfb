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
package eval

import (
	"errors"
	"testing"

	"github.com/consensys/go-incr/pkg/syntax"
	"github.com/google/go-cmp/cmp"
)

var (
	intBag    = &syntax.BagType{Elem: syntax.Int}
	intStrMap = &syntax.MapType{Key: syntax.Int, Value: syntax.String}
	record    = &syntax.RecordType{Fields: []syntax.Field{{Name: "a", Type: syntax.Int}, {Name: "b", Type: intBag}}}
	node      = &syntax.HandleType{Name: "Node", Value: syntax.Int}
	testVars  = []*syntax.Var{
		syntax.NewVar("xs", intBag),
		syntax.NewVar("ys", intBag),
		syntax.NewVar("x", syntax.Int),
		syntax.NewVar("m", intStrMap),
		syntax.NewVar("r", record),
		syntax.NewVar("h", node),
		syntax.NewVar("g", node),
	}
)

func Test_Eval_01(t *testing.T) {
	check_Eval(t, "(+ x 1)", "4")
}

func Test_Eval_02(t *testing.T) {
	check_Eval(t, "(filter xs (lambda v (!= v 0)))", "{1, 2, 2}")
}

func Test_Eval_03(t *testing.T) {
	check_Eval(t, "(map xs (lambda v (* v v)))", "{0, 1, 4, 4}")
}

func Test_Eval_04(t *testing.T) {
	check_Eval(t, "(flatmap xs (lambda v (filter ys (lambda w (< w v)))))", "{1, 1}")
}

func Test_Eval_05(t *testing.T) {
	check_Eval(t, "(- xs {2 7})", "{0, 1, 2}")
}

func Test_Eval_06(t *testing.T) {
	check_Eval(t, "(distinct xs)", "{0, 1, 2}")
}

func Test_Eval_07(t *testing.T) {
	check_Eval(t, "(intersect xs {2 2 2 1 5})", "{1, 2, 2}")
}

func Test_Eval_08(t *testing.T) {
	check_Eval(t, "(argmin xs (lambda v (neg v)))", "2")
}

func Test_Eval_09(t *testing.T) {
	check_Eval(t, "(argmin (empty-bag (bag int)) (lambda v v))", "0")
}

func Test_Eval_10(t *testing.T) {
	check_Eval(t, "(tuple (get m 1) (get m 5))", "(\"a\", \"\")")
}

func Test_Eval_11(t *testing.T) {
	check_Eval(t, "(make-map xs (lambda k (count k xs)))", "{0 -> 1, 1 -> 1, 2 -> 2}")
}

func Test_Eval_12(t *testing.T) {
	check_Eval(t, "(heap-peek2 (make-heap min ys (lambda v v)) (len ys))", "3")
}

func Test_Eval_13(t *testing.T) {
	check_Eval(t, "(heap-peek2 (make-heap min {4} (lambda v v)) 1)", "0")
}

func Test_Eval_14(t *testing.T) {
	check_Eval(t, "(tuple (field h val) (field g val) (== h g))", "(10, 0, false)")
}

func Test_Eval_15(t *testing.T) {
	check_Eval(t, "(and (exists xs) (=> (empty ys) (in 5 ys)))", "true")
}

func Test_Eval_16(t *testing.T) {
	check_Eval(t, "(if (> (sum xs) 4) (len (keys m)) (the xs))", "2")
}

func Test_Eval_17(t *testing.T) {
	e, err := syntax.ReadExp("(call f int x)", testVars...)
	if err != nil {
		t.Fatal(err)
	}
	//
	if _, err := Eval(e, testEnv()); !errors.Is(err, ErrUnbound) {
		t.Errorf("expected unbound function error, got %v", err)
	}
	//
	env := testEnv()
	env.Funcs["f"] = func(args ...Value) (Value, error) { return args[0].(int64) * 2, nil }
	//
	if v, err := Eval(e, env); err != nil || v != int64(6) {
		t.Errorf("expected 6, got %v (%v)", v, err)
	}
}

func Test_Exec_01(t *testing.T) {
	check_Exec(t, "(add xs 5)", "xs", "{0, 1, 2, 2, 5}")
}

func Test_Exec_02(t *testing.T) {
	check_Exec(t, "(remove xs 2)", "xs", "{0, 1, 2}")
}

func Test_Exec_03(t *testing.T) {
	check_Exec(t, "(seq (remove-all xs ys) (add-all xs {9 9}))", "xs", "{0, 2, 2, 9, 9}")
}

func Test_Exec_04(t *testing.T) {
	check_Exec(t, "(if (in 1 xs) (assign x 7) (assign x 8))", "x", "7")
}

func Test_Exec_05(t *testing.T) {
	check_Exec(t, "(seq (decl z (+ x 1)) (assign (field r a) z))", "r", "(a=4, b={1})")
}

func Test_Exec_06(t *testing.T) {
	check_Exec(t, "(add (field r b) x)", "r", "(a=0, b={1, 3})")
}

func Test_Exec_07(t *testing.T) {
	check_Exec(t, "(assign (field h val) 11)", "(tuple (field h val) (field g val))", "(11, 0)")
}

func Test_Exec_08(t *testing.T) {
	check_Exec(t, "(seq (map-del m 1) (map-update m 3 v (assign v \"d\")))", "m", "{2 -> \"b\", 3 -> \"d\"}")
}

func Test_Exec_09(t *testing.T) {
	check_Exec(t, "(foreach k (keys m) (map-update m k v (assign v \"z\")))", "m", "{1 -> \"z\", 2 -> \"z\"}")
}

func Test_Exec_10(t *testing.T) {
	// Statements do not modify the original environment
	s, err := syntax.ReadStm("(add xs 5)", testVars...)
	if err != nil {
		t.Fatal(err)
	}
	//
	env := testEnv()
	//
	if _, err := Exec(s, env); err != nil {
		t.Fatal(err)
	} else if got := Format(env.Vars["xs"]); got != "{0, 1, 2, 2}" {
		t.Errorf("original environment changed: %s", got)
	}
}

func Test_Equal_01(t *testing.T) {
	if !Equal(Bag{int64(1), int64(2), int64(1)}, Bag{int64(1), int64(1), int64(2)}) {
		t.Errorf("expected bags to be equal irrespective of order")
	} else if Equal(Bag{int64(1), int64(2)}, Bag{int64(1), int64(2), int64(2)}) {
		t.Errorf("expected bags with different multiplicities to differ")
	}
}

func Test_Map_01(t *testing.T) {
	m := Map{}.Put(int64(3), "c").Put(int64(1), "a").Put(int64(2), "b").Put(int64(1), "z").Delete(int64(2))
	//
	expected := Map{{int64(1), "z"}, {int64(3), "c"}}
	//
	if diff := cmp.Diff(expected, m); diff != "" {
		t.Errorf("unexpected map (-want +got):\n%s", diff)
	}
}

func Test_Default_01(t *testing.T) {
	if got := Format(Default(record)); got != "(a=0, b={})" {
		t.Errorf("unexpected default %s", got)
	}
}

// ===================================================================
// Test Helpers
// ===================================================================

func testEnv() *Env {
	env := NewEnv(map[string]Value{
		"xs": Bag{int64(2), int64(0), int64(1), int64(2)},
		"ys": Bag{int64(1), int64(3)},
		"x":  int64(3),
		"m":  Map{{int64(1), "a"}, {int64(2), "b"}},
		"r":  Record{{"a", int64(0)}, {"b", Bag{int64(1)}}},
		"h":  Handle{1},
		"g":  Handle{2},
	})
	env.Store[1] = int64(10)
	//
	return env
}

func check_Eval(t *testing.T, text string, expected string) {
	t.Helper()
	//
	e, err := syntax.ReadExp(text, testVars...)
	if err != nil {
		t.Fatal(err)
	}
	//
	v, err := Eval(e, testEnv())
	//
	if err != nil {
		t.Fatal(err)
	} else if actual := Format(v); actual != expected {
		t.Errorf("expected %s, got %s", expected, actual)
	}
}

func check_Exec(t *testing.T, stm string, exp string, expected string) {
	t.Helper()
	//
	s, err := syntax.ReadStm(stm, testVars...)
	if err != nil {
		t.Fatal(err)
	}
	//
	e, err := syntax.ReadExp(exp, testVars...)
	if err != nil {
		t.Fatal(err)
	}
	//
	env, err := Exec(s, testEnv())
	if err != nil {
		t.Fatal(err)
	}
	//
	v, err := Eval(e, env)
	//
	if err != nil {
		t.Fatal(err)
	} else if actual := Format(v); actual != expected {
		t.Errorf("expected %s, got %s", expected, actual)
	}
}
