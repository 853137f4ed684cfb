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
	"github.com/consensys/go-incr/pkg/syntax"
)

// RepairStateVar marks as materialized every maximal subexpression which is
// alpha-equivalent to some available state expression.  Existing markers are
// discarded first, so the result marks exactly the available state.
func RepairStateVar(e syntax.Exp, available []syntax.Exp) syntax.Exp {
	var (
		rec func(syntax.Exp) syntax.Exp
		lam func(*syntax.Lambda) *syntax.Lambda
	)
	//
	rec = func(e syntax.Exp) syntax.Exp {
		for _, s := range available {
			if syntax.AlphaEquivalent(e, s) {
				return &syntax.StateVar{Exp: e}
			}
		}
		//
		return syntax.Transform(e, rec, lam)
	}
	lam = func(l *syntax.Lambda) *syntax.Lambda {
		return syntax.NewLambda(l.Arg, rec(l.Body))
	}
	//
	return rec(syntax.StripStateVar(e))
}
