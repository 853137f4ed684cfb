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
	"context"
	"io"

	"github.com/consensys/go-incr/pkg/syntax"
	"github.com/spf13/cobra"
)

var maintainCmd = &cobra.Command{
	Use:   "maintain [flags] goal_file(s)",
	Short: "Determine how to maintain each goal's expression across its op.",
	Long: `Determine the value of each goal's expression after its op, in terms of its
	value before (where possible), along with the condition under which it changes.  For
	boolean expressions, the conditions under which it becomes true or false are also
	reported.`,
	Run: func(cmd *cobra.Command, args []string) {
		runGoals(cmd, args, maintainGoal)
	},
}

// Print how a goal's expression is maintained across its op.
func maintainGoal(ctx context.Context, s *session, goal *syntax.Goal, out io.Writer) error {
	var (
		scope = s.scope(goal)
		a     = syntax.All(goal.Assumptions...)
		old   = &syntax.StateVar{Exp: goal.Exp}
	)
	//
	after, err := s.engine.BetterMutate(ctx, old, scope, goal.Op, a)
	if err != nil {
		return err
	}
	//
	changed, err := s.engine.Changed(ctx, goal.Exp, scope, goal.Op, a)
	if err != nil {
		return err
	}
	//
	s.printLabelled(out, "new", after.Lisp())
	s.printLabelled(out, "changed", changed.Lisp())
	//
	if !syntax.Bool.Equals(goal.Exp.Type()) {
		return nil
	}
	//
	for _, val := range []bool{true, false} {
		became, err := s.engine.BecameBool(ctx, goal.Exp, scope, goal.Op, val, a)
		if err != nil {
			return err
		}
		//
		if val {
			s.printLabelled(out, "became-true", became.Lisp())
		} else {
			s.printLabelled(out, "became-false", became.Lisp())
		}
	}
	//
	return nil
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(maintainCmd)
}
