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
package hash

import (
	"hash/fnv"
)

// Hasher provides a generic definition of a hashing function suitable for use
// within the hash maps of this package.
type Hasher[T any] interface {
	// Check whether two items are equal (or not).
	Equals(T) bool
	// Return a suitable hashcode.
	Hash() uint64
}

// StringKey wraps a string (e.g. a canonical rendering of some structure) so
// that it can be used as a key within a hash map.
type StringKey struct {
	text string
	hash uint64
}

// NOTE: This is used for compile time type checking if the given type
// satisfies the given interface.
var _ Hasher[StringKey] = StringKey{}

// NewStringKey constructs a new key from a given string.
func NewStringKey(text string) StringKey {
	hash := fnv.New64a()
	hash.Write([]byte(text))
	//
	return StringKey{text, hash.Sum64()}
}

// Equals implementation for the Hasher interface.
func (p StringKey) Equals(other StringKey) bool {
	return p.hash == other.hash && p.text == other.text
}

// Hash implementation for the Hasher interface.
func (p StringKey) Hash() uint64 {
	return p.hash
}

func (p StringKey) String() string {
	return p.text
}
