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
	"fmt"
	"testing"
)

func Test_HashMap_01(t *testing.T) {
	check_HashMap(t, []string{"a", "b", "c", "b", "a"})
}

func Test_HashMap_02(t *testing.T) {
	check_HashMap(t, []string{"(+ x 1)", "(+ #0 1)", "(+ x 1)", "(map xs (lambda #0 #0))"})
}

func Test_HashMap_03(t *testing.T) {
	check_HashMap(t, generateKeys(100))
}

func Test_HashMap_04(t *testing.T) {
	check_HashMap(t, generateKeys(10000))
}

func Test_HashMap_05(t *testing.T) {
	// All keys land in the same bucket
	hmap := NewMap[collidingKey, int](0)
	//
	for i := range 10 {
		hmap.Insert(collidingKey{i}, i*i)
	}
	//
	if hmap.Size() != 10 {
		t.Errorf("expected 10 items, got %d: %s", hmap.Size(), hmap.String())
	}
	//
	for i := range 10 {
		if v, ok := hmap.Get(collidingKey{i}); !ok || v != i*i {
			t.Errorf("expected %d=>%d, got %d (%t)", i, i*i, v, ok)
		}
	}
	//
	if hmap.ContainsKey(collidingKey{10}) {
		t.Errorf("unexpected key 10")
	}
}

// ===================================================================
// Test Helpers
// ===================================================================

func check_HashMap(t *testing.T, items []string) {
	gmap := initGoMap(items)
	hmap := NewMap[StringKey, uint](0)
	// Insert items
	for key, val := range gmap {
		hmap.Insert(NewStringKey(key), val)
	}
	// Sanity check number of unique items
	if hmap.Size() != uint(len(gmap)) {
		t.Errorf("expected %d items, got %d: %s", len(gmap), hmap.Size(), hmap.String())
	}
	// Sanity check containership
	for key, val := range gmap {
		if !hmap.ContainsKey(NewStringKey(key)) {
			t.Errorf("missing key %s: %s", key, hmap.String())
		} else if v, ok := hmap.Get(NewStringKey(key)); !ok {
			t.Errorf("missing item %s=>%d: %s", key, val, hmap.String())
		} else if v != val {
			t.Errorf("expecting %s=>%d, got %s=>%d: %s", key, val, key, v, hmap.String())
		}
	}
	// Sanity check keys
	if n := len(hmap.Keys()); n != len(gmap) {
		t.Errorf("expected %d keys, got %d", len(gmap), n)
	}
}

func initGoMap(items []string) map[string]uint {
	gmap := make(map[string]uint)
	//
	for _, v := range items {
		gmap[v]++
	}
	//
	return gmap
}

func generateKeys(n int) []string {
	keys := make([]string, n)
	//
	for i := range n {
		keys[i] = fmt.Sprintf("k%d", i%(n/2+1))
	}
	//
	return keys
}

type collidingKey struct {
	value int
}

func (p collidingKey) Equals(other collidingKey) bool {
	return p.value == other.value
}

func (p collidingKey) Hash() uint64 {
	return 0
}
