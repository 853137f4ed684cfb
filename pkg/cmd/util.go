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
	"fmt"
	"os"
	"strings"

	"github.com/consensys/go-incr/pkg/syntax"
	"github.com/consensys/go-incr/pkg/util/source"
	"github.com/spf13/cobra"
)

// GetFlag gets an expected flag, or panic if an error arises.
func GetFlag(cmd *cobra.Command, flag string) bool {
	r, err := cmd.Flags().GetBool(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetUint gets an expected unsigned int, or panic if an error arises.
func GetUint(cmd *cobra.Command, flag string) uint {
	r, err := cmd.Flags().GetUint(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// GetString gets an expected string, or panic if an error arises.
func GetString(cmd *cobra.Command, flag string) string {
	r, err := cmd.Flags().GetString(flag)
	if err != nil {
		fmt.Println(err)
		os.Exit(2)
	}

	return r
}

// Read the goals from a given file.
func readGoalFile(filename string) ([]*syntax.Goal, error) {
	file, err := source.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	//
	return syntax.ReadGoals(file)
}

// Print a syntax error with appropriate highlighting.
func printSyntaxError(err *source.SyntaxError) {
	span := err.Span()
	line := err.Line()
	text := []rune(line.String())
	// Print error + line number
	fmt.Printf("%s:%d: %s\n", err.Filename(), line.Number(), err.Message())
	// Print line
	fmt.Println(string(text))
	// Print indent, keeping any tabs such that the highlight lines up
	indent := text[:min(len(text), max(0, span.Start()-line.Start()))]
	//
	for _, c := range indent {
		if c == '\t' {
			fmt.Print("\t")
		} else {
			fmt.Print(" ")
		}
	}
	// Print highlight
	fmt.Println(strings.Repeat("^", max(1, span.Length())))
}
