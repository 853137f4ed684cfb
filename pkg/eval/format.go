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
	"fmt"
	"strconv"
	"strings"
)

// Format renders a value as text.  The rendering is deterministic, with the
// elements of bags listed in sorted order.
func Format(v Value) string {
	var builder strings.Builder
	//
	format(v, &builder)
	//
	return builder.String()
}

func format(v Value, out *strings.Builder) {
	switch v := v.(type) {
	case int64:
		out.WriteString(strconv.FormatInt(v, 10))
	case bool:
		out.WriteString(strconv.FormatBool(v))
	case string:
		out.WriteString(strconv.Quote(v))
	case Native:
		fmt.Fprintf(out, "%s#%d", v.Type, v.ID)
	case Handle:
		fmt.Fprintf(out, "&%d", v.Addr)
	case Bag:
		formatSeq("{", sorted(v), "}", out)
	case Tuple:
		formatSeq("(", v, ")", out)
	case Record:
		out.WriteString("(")
		//
		for i, f := range v {
			if i != 0 {
				out.WriteString(", ")
			}
			//
			out.WriteString(f.Name)
			out.WriteString("=")
			format(f.Value, out)
		}
		//
		out.WriteString(")")
	case Map:
		out.WriteString("{")
		//
		for i, e := range v {
			if i != 0 {
				out.WriteString(", ")
			}
			//
			format(e.Key, out)
			out.WriteString(" -> ")
			format(e.Value, out)
		}
		//
		out.WriteString("}")
	case Heap:
		out.WriteString("heap")
		formatSeq("[", v.Elems, "]", out)
	default:
		panic(fmt.Sprintf("unknown value %v", v))
	}
}

func formatSeq(open string, vals []Value, close string, out *strings.Builder) {
	out.WriteString(open)
	//
	for i, v := range vals {
		if i != 0 {
			out.WriteString(", ")
		}
		//
		format(v, out)
	}
	//
	out.WriteString(close)
}
