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
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/consensys/go-incr/pkg/eval"
	"github.com/consensys/go-incr/pkg/syntax"
)

// MinimalModel searches for a model of a formula whose collections have the
// smallest possible total size, trying each total size in turn up to the given
// depth per collection.  This produces smaller, more readable counterexamples
// than an arbitrary model.
func MinimalModel(ctx context.Context, oracle Oracle, f syntax.Exp, depth uint) (*Model, error) {
	var lens []syntax.Exp
	//
	for _, v := range syntax.FreeVars(f) {
		if syntax.IsCollection(v.T) {
			lens = append(lens, syntax.NewUnary(syntax.Len, v))
		}
	}
	//
	if len(lens) == 0 {
		return oracle.Satisfy(ctx, f)
	}
	//
	total := lens[0]
	//
	for _, l := range lens[1:] {
		total = syntax.NewBinary(syntax.Plus, total, l)
	}
	//
	for n := range int64(depth)*int64(len(lens)) + 1 {
		bounded := syntax.All(syntax.NewBinary(syntax.Le, total, syntax.NewNum(n)), f)
		//
		if m, err := oracle.Satisfy(ctx, bounded); err != nil || m != nil {
			return m, err
		}
	}
	//
	return nil, nil
}

// FormatModel renders a model as text, with one binding per line in order of
// variable name.
func FormatModel(m *Model) string {
	var builder strings.Builder
	//
	for _, name := range slices.Sorted(maps.Keys(m.Vars)) {
		fmt.Fprintf(&builder, "%s = %s\n", name, eval.Format(m.Vars[name]))
	}
	//
	for _, addr := range slices.Sorted(maps.Keys(m.Store)) {
		fmt.Fprintf(&builder, "&%d = %s\n", addr, eval.Format(m.Store[addr]))
	}
	//
	return builder.String()
}
