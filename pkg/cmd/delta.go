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
	"fmt"
	"io"

	"github.com/consensys/go-incr/pkg/syntax"
	"github.com/spf13/cobra"
)

var deltaCmd = &cobra.Command{
	Use:   "delta [flags] goal_file(s)",
	Short: "Determine the elements added to, and removed from, each goal's collection.",
	Long: `Determine the elements added to, and removed from, each goal's collection
	valued expression by its op.  Conditions which cannot be decided under the goal's
	assumptions are split into cases.`,
	Run: func(cmd *cobra.Command, args []string) {
		runGoals(cmd, args, deltaGoal)
	},
}

// Print the delta of a goal's collection valued expression.
func deltaGoal(ctx context.Context, s *session, goal *syntax.Goal, out io.Writer) error {
	if !syntax.IsCollection(goal.Exp.Type()) {
		return fmt.Errorf("expression has type %s, expected a collection", goal.Exp.Type())
	}
	//
	delta, err := s.engine.BagDelta(ctx, goal.Exp, s.scope(goal), goal.Op, syntax.All(goal.Assumptions...))
	if err != nil {
		return err
	}
	//
	s.printLabelled(out, "added", delta.Added.Lisp())
	s.printLabelled(out, "removed", delta.Removed.Lisp())
	//
	return nil
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(deltaCmd)
}
