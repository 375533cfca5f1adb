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

// Package columnar turns a decompressed primitive block into the columnar
// element blocks the core hands to consumers: dense-node, loose-node, way
// and relation groups, each a struct-of-arrays with no per-element
// allocation.
package columnar

import "github.com/go-osmpbf/corepbf/internal/strtable"

// Kind tags which of the four element shapes a Block holds.
type Kind uint8

const (
	DenseNode Kind = iota
	Node
	Way
	Relation
)

// NoFilterSlot mirrors strtable.NoFilterSlot, the projection value of a
// string-table entry that matches no filter key. Tags whose key projects to
// it are dropped, so tag columns never hold this value.
const NoFilterSlot = strtable.NoFilterSlot

// MemberType is a relation member's kind, as it appears on the wire.
type MemberType uint8

const (
	MemberNode MemberType = iota
	MemberWay
	MemberRelation
)

// Info is the optional per-element metadata column set (version, author,
// edit history). Present only when the source block carried Info/DenseInfo.
type Info struct {
	Version   []int32
	Timestamp []int64 // as on the wire, in date-granularity units; not scaled to milliseconds
	Changeset []int64
	UID       []int32
	UserSid   []uint32 // string-table index of the username
	Visible   []bool   // absence on the wire means visible; dense blocks leave the column empty when the packed field is omitted
}

// Block is the core's output shape: a tagged variant over the four
// element kinds. The numeric columns are materialized fresh by decode, but
// Strings borrows its entries directly from the primitive block's
// decompressed bytes, so a Block must not outlive the buffer it was
// decoded from.
type Block struct {
	Kind    Kind
	Strings strtable.Table

	// IDs is populated for every kind: dense-node/node ids are the group's
	// element ids (delta-decoded for dense nodes); way/relation ids are
	// native (non-delta at the group level).
	IDs []int64

	// Lats/Lons hold absolute nanodegree coordinates for DenseNode/Node
	// blocks only.
	Lats []int64
	Lons []int64

	// TagKeys/TagVals/TagOffsets are populated for every kind. TagOffsets
	// has length len(IDs)+1. TagKeys[TagOffsets[i]:TagOffsets[i+1]] and the
	// parallel TagVals slice are element i's tag row. Entries hold filter
	// slots when a tag filter is active, else native string-table indices.
	TagKeys    []uint32
	TagVals    []uint32
	TagOffsets []uint32

	// Refs/RefOffsets are populated for Way blocks: Refs holds delta-
	// decoded node ids, RefOffsets has length len(IDs)+1.
	Refs       []int64
	RefOffsets []uint32

	// MemberIDs/MemberTypes/MemberRoles/MemberOffsets are populated for
	// Relation blocks. MemberIDs is delta-decoded within each element.
	// MemberRoles holds native string-table indices (roles are never
	// subject to the tag filter). MemberOffsets has length len(IDs)+1.
	MemberIDs     []int64
	MemberTypes   []MemberType
	MemberRoles   []uint32
	MemberOffsets []uint32

	Info *Info
}

// HasAllFilterKeys reports whether element i's tag row covers every
// declared filter key, independent of match order.
func (b *Block) HasAllFilterKeys(i int, filterLen int) bool {
	row := b.TagKeys[b.TagOffsets[i]:b.TagOffsets[i+1]]
	slots := make([]uint16, len(row))
	for j, k := range row {
		slots[j] = uint16(k)
	}
	return strtable.HasAllFilterKeys(slots, filterLen)
}
