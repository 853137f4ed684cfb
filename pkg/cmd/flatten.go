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

	"github.com/consensys/go-incr/pkg/incr"
	"github.com/consensys/go-incr/pkg/syntax"
	"github.com/spf13/cobra"
)

var flattenCmd = &cobra.Command{
	Use:   "flatten [flags] goal_file(s)",
	Short: "Flatten each goal's op into straight-line steps.",
	Long: `Flatten each goal's op into a sequence of straight-line steps, where
	conditional statements are replaced by guarded assignments and calls.`,
	Run: func(cmd *cobra.Command, args []string) {
		runGoals(cmd, args, flattenGoal)
	},
}

// Print the flattened steps of a goal's op.
func flattenGoal(ctx context.Context, s *session, goal *syntax.Goal, out io.Writer) error {
	steps, err := incr.Flatten(goal.Op)
	if err != nil {
		return err
	}
	//
	for _, step := range steps {
		s.print(out, step.Lisp())
	}
	//
	return nil
}

//nolint:errcheck
func init() {
	rootCmd.AddCommand(flattenCmd)
}
