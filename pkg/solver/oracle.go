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
	"maps"

	"github.com/consensys/go-incr/pkg/eval"
	"github.com/consensys/go-incr/pkg/syntax"
)

// Oracle decides properties of boolean formulas.  A formula is valid if it
// holds for every assignment of its free variables, and satisfiable if it
// holds for at least one.
type Oracle interface {
	// Valid determines whether a formula holds in every model.
	Valid(ctx context.Context, f syntax.Exp) (bool, error)
	// Satisfiable determines whether a formula holds in some model.
	Satisfiable(ctx context.Context, f syntax.Exp) (bool, error)
	// Satisfy returns a model of a formula, or nil if it is unsatisfiable.
	Satisfy(ctx context.Context, f syntax.Exp) (*Model, error)
}

// Covering is implemented by oracles which search exhaustively only within
// certain bounds.  Covers returns an error wrapping ErrBounds for any formula
// whose counterexamples may lie beyond them.
type Covering interface {
	Covers(f syntax.Exp) error
}

// Model assigns values to the free variables of a formula, along with the
// payloads of any handles those values refer to.
type Model struct {
	Vars  map[string]eval.Value
	Store map[int64]eval.Value
}

// Env constructs an environment for evaluating expressions in this model,
// using a given set of functions.
func (p *Model) Env(funcs map[string]eval.Func) *eval.Env {
	return &eval.Env{Vars: maps.Clone(p.Vars), Store: maps.Clone(p.Store), Funcs: funcs}
}

// Binds checks whether this model assigns a value to every free variable of
// a given formula.
func (p *Model) Binds(f syntax.Exp) bool {
	for _, v := range syntax.FreeVars(f) {
		if _, ok := p.Vars[v.Name]; !ok {
			return false
		}
	}
	//
	return true
}
