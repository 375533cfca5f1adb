// Copyright 2017-25 the original author or authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package strtable decodes a primitive block's string dictionary and, when
// a tag filter is active, projects it into a dense per-block index of
// filter slots.
package strtable

import (
	"bytes"

	"github.com/cespare/xxhash/v2"
	"github.com/go-osmpbf/corepbf/internal/wire"
)

// NoFilterSlot marks a string-table entry that matched no filter key.
const NoFilterSlot uint16 = 0xFFFF

// Table is a block's string dictionary: borrowed byte slices indexed from
// 0 (index 0 is the format's reserved empty entry, decoded like any other).
type Table struct {
	entries [][]byte
}

// Decode walks a StringTable message (repeated bytes entries, field 1).
func Decode(buf []byte) (Table, error) {
	var t Table
	r := wire.NewFieldReader(buf)
	for !r.Done() {
		num, wt, err := r.Next()
		if err != nil {
			return Table{}, err
		}
		if num == 1 {
			b, err := r.Bytes()
			if err != nil {
				return Table{}, err
			}
			t.entries = append(t.entries, b)
			continue
		}
		if err := r.Skip(wt); err != nil {
			return Table{}, err
		}
	}
	return t, nil
}

// Len reports the number of entries, including the reserved index 0.
func (t Table) Len() int { return len(t.entries) }

// At borrows the string at index i without copying.
func (t Table) At(i int) []byte { return t.entries[i] }

// Keys is a filter key set shared across every block a reader decodes: the
// filter keys themselves never change mid-iteration, so the hash→slot map
// is built once and reused, and only the per-block projection in Project
// costs O(|string table|).
type Keys struct {
	keys  [][]byte
	index map[uint64]uint16
}

// NewKeys builds a filter key set from the declared tag-filter keys, in
// the order they were supplied. The slot for keys[i] is i.
func NewKeys(keys [][]byte) Keys {
	idx := make(map[uint64]uint16, len(keys))
	for i, k := range keys {
		idx[xxhash.Sum64(k)] = uint16(i)
	}
	return Keys{keys: keys, index: idx}
}

// Len reports the number of filter keys.
func (k Keys) Len() int { return len(k.keys) }

// Project builds the dense stable_index → filter_slot map for one block's
// string table, touching each entry exactly once. Matching is by value:
// the xxhash of the entry's bytes is looked up and any hash collision is
// resolved by a byte comparison against the candidate key, so two
// distinct string-table entries with equal bytes always land on the same
// slot and a hash collision never mismatches.
func (k Keys) Project(t Table) []uint16 {
	slots := make([]uint16, t.Len())
	for i, entry := range t.entries {
		slots[i] = NoFilterSlot
		if cand, ok := k.index[xxhash.Sum64(entry)]; ok && bytes.Equal(k.keys[cand], entry) {
			slots[i] = cand
		}
	}
	return slots
}

// HasAllFilterKeys reports whether slots (the filter slots present on one
// element's tag segment) covers every slot in [0, filterLen), independent
// of the order slots were matched in.
func HasAllFilterKeys(slots []uint16, filterLen int) bool {
	if filterLen == 0 {
		return true
	}
	seen := make([]bool, filterLen)
	remaining := filterLen
	for _, s := range slots {
		if int(s) >= filterLen {
			continue
		}
		if !seen[s] {
			seen[s] = true
			remaining--
			if remaining == 0 {
				return true
			}
		}
	}
	return remaining == 0
}
