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
package source

import (
	"fmt"
	"os"
)

// File is the text of a goal file, or of a string handed to one of the
// readers directly.  Contents are held as runes, such that spans index
// characters rather than bytes.
type File struct {
	filename string
	contents []rune
}

// ReadFile reads a goal file from disk.
func ReadFile(filename string) (*File, error) {
	bytes, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	//
	return NewSourceFile(filename, bytes), nil
}

// NewSourceFile constructs a source file from a given byte array.
func NewSourceFile(filename string, bytes []byte) *File {
	return &File{filename, []rune(string(bytes))}
}

// Filename returns the name this file was read from.
func (s *File) Filename() string {
	return s.filename
}

// Contents returns the characters of this file.
func (s *File) Contents() []rune {
	return s.contents
}

// SyntaxError constructs a syntax error over a given span of this file.
func (s *File) SyntaxError(span Span, msg string) *SyntaxError {
	return &SyntaxError{s, span, msg}
}

// Determine the line holding the start of a span, or the last line when the
// span starts beyond the end of the file.
func (s *File) lineOf(span Span) Line {
	var (
		num   = 1
		start = 0
	)
	//
	for i, c := range s.contents {
		if i == span.start {
			break
		} else if c == '\n' {
			num++
			start = i + 1
		}
	}
	//
	end := start
	//
	for end < len(s.contents) && s.contents[end] != '\n' {
		end++
	}
	//
	return Line{s.contents[start:end], start, num}
}

// Line is a single line of a source file.
type Line struct {
	text   []rune
	start  int
	number int
}

// String returns the text of this line, without its line terminator.
func (p *Line) String() string {
	return string(p.text)
}

// Number returns the line number, counting from 1.
func (p *Line) Number() int {
	return p.number
}

// Start returns the index of the first character of this line in the file.
func (p *Line) Start() int {
	return p.start
}

// SyntaxError reports a goal file which could not be parsed or read, along
// with the span of text responsible.
type SyntaxError struct {
	srcfile *File
	span    Span
	msg     string
}

// Filename returns the name of the file in which this error arose.
func (p *SyntaxError) Filename() string {
	return p.srcfile.filename
}

// Span returns the span of text on which this error is reported.
func (p *SyntaxError) Span() Span {
	return p.span
}

// Message returns the message to be reported.
func (p *SyntaxError) Message() string {
	return p.msg
}

// Line returns the line on which the span of this error starts.
func (p *SyntaxError) Line() Line {
	return p.srcfile.lineOf(p.span)
}

// Error implements the error interface.
func (p *SyntaxError) Error() string {
	line := p.Line()
	//
	return fmt.Sprintf("%s:%d: %s", p.srcfile.filename, line.Number(), p.msg)
}
