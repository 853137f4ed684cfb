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
package sexp

import (
	"strings"
)

// Layout determines how many leading elements of a list are kept on the same
// line as its opening parenthesis, when that list cannot be written on a
// single line.  For example, a layout of 2 for "if" gives:
//
//	(if c
//	  x
//	  y)
type Layout uint

// Formatter pretty prints S-Expressions within a desired width.  Lists which
// fit on the current line are written as is, whilst those which don't are
// broken according to the layout registered for their head symbol.
type Formatter struct {
	// Maximum desired width
	maxWidth uint
	// Indentation used for each nesting level
	indent string
	// Layouts registered for specific heads
	layouts map[string]Layout
}

// NewFormatter constructs a new formatter which aims to fit its output within a
// given width.
func NewFormatter(width uint) *Formatter {
	return &Formatter{width, "  ", make(map[string]Layout)}
}

// Add a layout for lists starting with the given head symbol.
func (p *Formatter) Add(head string, layout Layout) {
	p.layouts[head] = layout
}

// Format a given S-Expression using the layouts embedded within this formatter.
func (p *Formatter) Format(sexp SExp) string {
	var builder strings.Builder
	//
	p.format(0, sexp, &builder)
	//
	return builder.String()
}

func (p *Formatter) format(depth int, sexp SExp, out *strings.Builder) {
	flat := sexp.String(true)
	// Does it fit?
	if uint(depth*len(p.indent)+len(flat)) <= p.maxWidth {
		out.WriteString(flat)
		return
	}
	//
	switch sexp := sexp.(type) {
	case *Symbol:
		out.WriteString(flat)
	case *List:
		// Default is to keep only the head inline
		var layout Layout = 1
		//
		if l, ok := p.layouts[sexp.Head()]; ok {
			layout = l
		}
		//
		p.formatSequence(depth, "(", sexp.Elements, ")", int(layout), out)
	case *Set:
		p.formatSequence(depth, "{", sexp.Elements, "}", 0, out)
	default:
		panic("unreachable")
	}
}

func (p *Formatter) formatSequence(depth int, open string, elements []SExp, close string, inline int,
	out *strings.Builder) {
	//
	out.WriteString(open)
	//
	for i, e := range elements {
		if i < inline {
			if i != 0 {
				out.WriteString(" ")
			}
			//
			out.WriteString(e.String(true))
		} else {
			if i != 0 {
				out.WriteString("\n")
				out.WriteString(strings.Repeat(p.indent, depth+1))
			}
			//
			p.format(depth+1, e, out)
		}
	}
	//
	out.WriteString(close)
}
