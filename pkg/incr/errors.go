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
	"fmt"

	"github.com/consensys/go-incr/pkg/syntax"
)

// UnsupportedError signals a statement or expression form for which no
// incrementalization rule exists.  This is fatal to the current attempt, since
// approximating the result could produce an incorrect delta.
type UnsupportedError struct {
	// Construct describes the offending form.
	Construct string
}

// InefficientError signals that a rule applies, but the result it derives is
// judged too expensive to maintain.  Callers can recover by recomputing the
// value in question from scratch.
type InefficientError struct {
	Exp    syntax.Exp
	Reason string
}

// PendingError signals that a result depends upon a condition which the oracle
// could not decide under the current assumptions.  This is not a failure as
// such, and is recovered by splitting on the condition (see ResolveForks).
type PendingError struct {
	Cond syntax.Exp
}

func unsupported(format string, args ...any) *UnsupportedError {
	return &UnsupportedError{fmt.Sprintf(format, args...)}
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("unsupported construct %s", e.Construct)
}

func (e *InefficientError) Error() string {
	return fmt.Sprintf("inefficient result for %s (%s)", syntax.Print(e.Exp), e.Reason)
}

func (e *PendingError) Error() string {
	return fmt.Sprintf("pending on %s", syntax.Print(e.Cond))
}
