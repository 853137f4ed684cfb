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
package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/consensys/go-incr/pkg/config"
	"github.com/consensys/go-incr/pkg/util/source"
)

const basicGoals = "../../testdata/goals/basic.goal"

func Test_Mutate_01(t *testing.T) {
	out := check_RunFile(t, basicGoals, mutateGoal(false))
	//
	check_Contains(t, out, ";; count\n(len (+ xs {x}))\n", ";; positives\n", ";; member\n")
}

func Test_Delta_01(t *testing.T) {
	out, err := runFile(t, basicGoals, deltaGoal)
	// Integer valued goals have no delta
	if err == nil || !strings.Contains(err.Error(), "goal count") {
		t.Fatalf("expected failure on goal count, got %v", err)
	}
	//
	check_Contains(t, out, ";; count\n")
}

func Test_Delta_02(t *testing.T) {
	path := writeGoals(t, `(goal positives (state xs (bag int)) (arg x int) (assume (> x 1))
	  (exp (filter xs (lambda y (> y 0)))) (op (add xs x)))`)
	//
	out := check_RunFile(t, path, deltaGoal)
	//
	check_Contains(t, out, "(added {x})", "(removed ")
}

func Test_Maintain_01(t *testing.T) {
	out := check_RunFile(t, basicGoals, maintainGoal)
	//
	check_Contains(t, out, "(new ", "(changed ", "(became-true ", "(became-false ")
}

func Test_Update_01(t *testing.T) {
	out := check_RunFile(t, basicGoals, updateGoal(false, false))
	//
	check_Contains(t, out, ";; positives\n", "(add-all positives ")
}

func Test_Model_01(t *testing.T) {
	path := writeGoals(t, `(goal g (state xs (bag int)) (arg x int) (assume (> x 1)) (exp (len xs)) (op (add xs x)))`)
	//
	out := check_RunFile(t, path, modelGoal(false))
	//
	check_Contains(t, out, ";; g\nx = 2\n")
}

func Test_Model_02(t *testing.T) {
	path := writeGoals(t, `(goal g (state xs (bag int)) (arg x int) (assume (< x x)) (exp (len xs)) (op (add xs x)))`)
	//
	out := check_RunFile(t, path, modelGoal(false))
	//
	check_Contains(t, out, ";; no model\n")
}

func Test_Flatten_01(t *testing.T) {
	path := writeGoals(t, `(goal g (state xs (bag int)) (arg x int) (exp (len xs))
	  (op (seq (add xs x) (remove xs 1))))`)
	//
	out := check_RunFile(t, path, flattenGoal)
	//
	check_Contains(t, out, "(add-all xs {x})\n(remove-all xs {1})\n")
}

func Test_ReadGoals_01(t *testing.T) {
	var syntaxErr *source.SyntaxError
	//
	path := writeGoals(t, "(goal)")
	//
	if _, err := runFile(t, path, flattenGoal); !errors.As(err, &syntaxErr) {
		t.Errorf("expected syntax error, got %v", err)
	}
}

func Test_Stats_01(t *testing.T) {
	var (
		cfg = config.Default()
		s   = &session{cfg, cfg.NewEngine(), 0}
		out bytes.Buffer
	)
	//
	if err := s.runFile(context.Background(), basicGoals, maintainGoal, &out); err != nil {
		t.Fatal(err)
	}
	//
	out.Reset()
	//
	if err := s.printStats(&out); err != nil {
		t.Fatal(err)
	}
	//
	check_Contains(t, out.String(), "# TYPE incr_oracle_queries_total counter\n", "incr_oracle_queries_total{kind=\"valid\"} ",
		"# HELP incr_fork_splits_total Number of case splits on undecided conditions.\n")
}

// ===================================================================
// Test Helpers
// ===================================================================

func check_RunFile(t *testing.T, path string, fn goalFn) string {
	t.Helper()
	//
	out, err := runFile(t, path, fn)
	if err != nil {
		t.Fatal(err)
	}
	//
	return out
}

func check_Contains(t *testing.T, out string, items ...string) {
	t.Helper()
	//
	for _, item := range items {
		if !strings.Contains(out, item) {
			t.Errorf("expected %q in output:\n%s", item, out)
		}
	}
}

func runFile(t *testing.T, path string, fn goalFn) (string, error) {
	t.Helper()
	//
	var (
		cfg = config.Default()
		s   = &session{cfg, cfg.NewEngine(), 0}
		out bytes.Buffer
	)
	//
	err := s.runFile(context.Background(), path, fn, &out)
	//
	return out.String(), err
}

func writeGoals(t *testing.T, text string) string {
	t.Helper()
	//
	path := filepath.Join(t.TempDir(), "test.goal")
	if err := os.WriteFile(path, []byte(text), 0644); err != nil {
		t.Fatal(err)
	}
	//
	return path
}
