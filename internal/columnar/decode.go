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

package columnar

import (
	"fmt"

	"golang.org/x/exp/constraints"

	"github.com/go-osmpbf/corepbf/internal/errs"
	"github.com/go-osmpbf/corepbf/internal/strtable"
	"github.com/go-osmpbf/corepbf/internal/wire"
)

// appendDeltaDecoded appends the running sums of deltas onto dst. The
// accumulator starts at zero each call: way refs and relation member ids
// are delta-coded within a single element, so each element's deltas are
// passed separately.
func appendDeltaDecoded[T constraints.Signed](dst []T, deltas []T) []T {
	var acc T
	for _, d := range deltas {
		acc += d
		dst = append(dst, acc)
	}
	return dst
}

// ElementFilter gates which group kinds get decoded at all; a disabled
// kind's group bytes are consumed but never walked past the point where
// its kind becomes apparent.
type ElementFilter struct {
	Nodes     bool
	Ways      bool
	Relations bool
}

// DefaultElementFilter admits every kind, matching the documented default.
var DefaultElementFilter = ElementFilter{Nodes: true, Ways: true, Relations: true}

func (f ElementFilter) allows(k Kind) bool {
	switch k {
	case DenseNode, Node:
		return f.Nodes
	case Way:
		return f.Ways
	case Relation:
		return f.Relations
	default:
		return false
	}
}

// BlockContext carries the per-block decode parameters every group in a
// primitive block shares: its string table and the coordinate offset and
// granularity used to materialize absolute nanodegree coordinates.
type BlockContext struct {
	Strings     strtable.Table
	Granularity int64
	LatOffset   int64
	LonOffset   int64
}

// DecodePrimitiveBlock walks a PrimitiveBlock message and returns one
// decoded Block per non-skipped, non-empty primitive group.
func DecodePrimitiveBlock(buf []byte, filter ElementFilter, keys *strtable.Keys) ([]*Block, error) {
	ctx := BlockContext{Granularity: 100}
	var groupBufs [][]byte

	r := wire.NewFieldReader(buf)
	for !r.Done() {
		num, wt, err := r.Next()
		if err != nil {
			return nil, err
		}
		switch num {
		case 1:
			b, err := r.Bytes()
			if err != nil {
				return nil, err
			}
			ctx.Strings, err = strtable.Decode(b)
			if err != nil {
				return nil, err
			}
		case 2:
			b, err := r.Bytes()
			if err != nil {
				return nil, err
			}
			groupBufs = append(groupBufs, b)
		case 17:
			v, err := r.Varint()
			if err != nil {
				return nil, err
			}
			ctx.Granularity = int64(v)
		case 19:
			v, err := r.SVarint()
			if err != nil {
				return nil, err
			}
			ctx.LatOffset = v
		case 20:
			v, err := r.SVarint()
			if err != nil {
				return nil, err
			}
			ctx.LonOffset = v
		default:
			if err := r.Skip(wt); err != nil {
				return nil, err
			}
		}
	}

	var blocks []*Block
	for _, gb := range groupBufs {
		blk, err := DecodeGroup(gb, &ctx, filter, keys)
		if err != nil {
			return nil, err
		}
		if blk != nil {
			blocks = append(blocks, blk)
		}
	}
	return blocks, nil
}

// peekGroupKind reads just enough of a primitive group to learn which of
// {dense-nodes, nodes, ways, relations} it carries, without allocating or
// disturbing the caller's field reader.
func peekGroupKind(buf []byte) (Kind, bool) {
	r := wire.NewFieldReader(buf)
	for !r.Done() {
		num, wt, err := r.Next()
		if err != nil {
			return 0, false
		}
		switch num {
		case 1:
			return Node, true
		case 2:
			return DenseNode, true
		case 3:
			return Way, true
		case 4:
			return Relation, true
		default:
			if err := r.Skip(wt); err != nil {
				return 0, false
			}
		}
	}
	return 0, false
}

// DecodeGroup decodes one primitive group into a Block, or returns a nil
// Block (and nil error) when the group's kind is disabled by filter or the
// group carries none of the four recognized kinds (e.g. changesets only).
func DecodeGroup(buf []byte, ctx *BlockContext, filter ElementFilter, keys *strtable.Keys) (*Block, error) {
	kind, ok := peekGroupKind(buf)
	if !ok || !filter.allows(kind) {
		return nil, nil
	}
	switch kind {
	case DenseNode:
		return decodeDenseNodes(buf, ctx, keys)
	case Node:
		return decodeNodes(buf, ctx, keys)
	case Way:
		return decodeWays(buf, ctx, keys)
	case Relation:
		return decodeRelations(buf, ctx, keys)
	default:
		return nil, nil
	}
}

func decodeDenseNodes(buf []byte, ctx *BlockContext, keys *strtable.Keys) (*Block, error) {
	var rawIDs, rawLats, rawLons []int64
	var keysVals []int32
	var denseInfoBuf []byte

	r := wire.NewFieldReader(buf)
	for !r.Done() {
		num, wt, err := r.Next()
		if err != nil {
			return nil, err
		}
		if num != 2 {
			if err := r.Skip(wt); err != nil {
				return nil, err
			}
			continue
		}
		denseBuf, err := r.Bytes()
		if err != nil {
			return nil, err
		}

		dr := wire.NewFieldReader(denseBuf)
		for !dr.Done() {
			fnum, fwt, err := dr.Next()
			if err != nil {
				return nil, err
			}
			switch fnum {
			case 1:
				b, err := dr.Bytes()
				if err != nil {
					return nil, err
				}
				if err := wire.EachVarint(b, func(v uint64) error {
					rawIDs = append(rawIDs, wire.DecodeZigZag(v))
					return nil
				}); err != nil {
					return nil, err
				}
			case 5:
				if denseInfoBuf, err = dr.Bytes(); err != nil {
					return nil, err
				}
			case 8:
				b, err := dr.Bytes()
				if err != nil {
					return nil, err
				}
				if err := wire.EachVarint(b, func(v uint64) error {
					rawLats = append(rawLats, wire.DecodeZigZag(v))
					return nil
				}); err != nil {
					return nil, err
				}
			case 9:
				b, err := dr.Bytes()
				if err != nil {
					return nil, err
				}
				if err := wire.EachVarint(b, func(v uint64) error {
					rawLons = append(rawLons, wire.DecodeZigZag(v))
					return nil
				}); err != nil {
					return nil, err
				}
			case 10:
				b, err := dr.Bytes()
				if err != nil {
					return nil, err
				}
				if err := wire.EachVarint(b, func(v uint64) error {
					keysVals = append(keysVals, int32(v))
					return nil
				}); err != nil {
					return nil, err
				}
			default:
				if err := dr.Skip(fwt); err != nil {
					return nil, err
				}
			}
		}
	}

	n := len(rawIDs)
	if len(rawLats) != n || len(rawLons) != n {
		return nil, fmt.Errorf("%w: dense node column length mismatch (%d ids, %d lats, %d lons)", errs.MalformedElement, n, len(rawLats), len(rawLons))
	}

	ids := make([]int64, n)
	lats := make([]int64, n)
	lons := make([]int64, n)
	var accID, accLat, accLon int64
	for i := 0; i < n; i++ {
		accID += rawIDs[i]
		accLat += rawLats[i]
		accLon += rawLons[i]
		if i > 0 && accID <= ids[i-1] {
			return nil, fmt.Errorf("%w: dense node ids not strictly increasing at index %d", errs.MalformedElement, i)
		}
		ids[i] = accID
		lats[i] = ctx.LatOffset + ctx.Granularity*accLat
		lons[i] = ctx.LonOffset + ctx.Granularity*accLon
	}

	tagKeys, tagVals, tagOffsets, err := segmentDenseTags(keysVals, n, ctx.Strings, keys)
	if err != nil {
		return nil, err
	}

	blk := &Block{
		Kind: DenseNode, Strings: ctx.Strings,
		IDs: ids, Lats: lats, Lons: lons,
		TagKeys: tagKeys, TagVals: tagVals, TagOffsets: tagOffsets,
	}
	if denseInfoBuf != nil {
		info, err := decodeDenseInfo(denseInfoBuf, n)
		if err != nil {
			return nil, err
		}
		blk.Info = info
	}
	return blk, nil
}

// segmentDenseTags re-segments the dense keys_vals stream (a run of
// key/value index pairs per node, each terminated by a 0 key) into a
// row-offset column, applying the filter projection if keys is non-nil.
// An absent stream means no node in the group carries tags.
func segmentDenseTags(kv []int32, n int, strings strtable.Table, keys *strtable.Keys) (tagKeys, tagVals, offsets []uint32, err error) {
	offsets = make([]uint32, n+1)
	if len(kv) == 0 {
		return nil, nil, offsets, nil
	}
	var filterSlots []uint16
	if keys != nil {
		filterSlots = keys.Project(strings)
	}

	idx := 0
	for node := 0; node < n; node++ {
		for {
			if idx >= len(kv) {
				return nil, nil, nil, fmt.Errorf("%w: dense tag stream missing terminator for node %d", errs.MalformedElement, node)
			}
			k := kv[idx]
			if k == 0 {
				idx++
				break
			}
			if idx+1 >= len(kv) {
				return nil, nil, nil, fmt.Errorf("%w: dense tag stream truncated key/value pair", errs.MalformedElement)
			}
			v := kv[idx+1]
			idx += 2
			if k < 0 || int(k) >= strings.Len() || v < 0 || int(v) >= strings.Len() {
				return nil, nil, nil, fmt.Errorf("%w: dense tag index out of range", errs.MalformedElement)
			}
			if filterSlots != nil {
				slot := filterSlots[k]
				if slot == strtable.NoFilterSlot {
					continue
				}
				tagKeys = append(tagKeys, uint32(slot))
			} else {
				tagKeys = append(tagKeys, uint32(k))
			}
			tagVals = append(tagVals, uint32(v))
		}
		offsets[node+1] = uint32(len(tagKeys))
	}
	return tagKeys, tagVals, offsets, nil
}

// decodeTagColumns walks a non-dense element's explicit keys/vals packed
// index arrays and appends the filter-projected pairs onto the running
// block-level columns, returning the extended key and value columns.
func decodeTagColumns(keyIdx, valIdx []int32, strings strtable.Table, filterSlots []uint16, tagKeys, tagVals []uint32) ([]uint32, []uint32, error) {
	if len(keyIdx) != len(valIdx) {
		return nil, nil, fmt.Errorf("%w: key/value column length mismatch (%d keys, %d vals)", errs.MalformedElement, len(keyIdx), len(valIdx))
	}
	for i, k := range keyIdx {
		v := valIdx[i]
		if k < 0 || int(k) >= strings.Len() || v < 0 || int(v) >= strings.Len() {
			return nil, nil, fmt.Errorf("%w: tag index out of range", errs.MalformedElement)
		}
		if filterSlots != nil {
			slot := filterSlots[k]
			if slot == strtable.NoFilterSlot {
				continue
			}
			tagKeys = append(tagKeys, uint32(slot))
		} else {
			tagKeys = append(tagKeys, uint32(k))
		}
		tagVals = append(tagVals, uint32(v))
	}
	return tagKeys, tagVals, nil
}

func decodeNodes(buf []byte, ctx *BlockContext, keys *strtable.Keys) (*Block, error) {
	var filterSlots []uint16
	if keys != nil {
		filterSlots = keys.Project(ctx.Strings)
	}

	var ids, lats, lons []int64
	var tagKeys, tagVals, tagOffsets []uint32
	tagOffsets = append(tagOffsets, 0)
	var info *Info

	r := wire.NewFieldReader(buf)
	for !r.Done() {
		num, wt, err := r.Next()
		if err != nil {
			return nil, err
		}
		if num != 1 {
			if err := r.Skip(wt); err != nil {
				return nil, err
			}
			continue
		}
		nodeBuf, err := r.Bytes()
		if err != nil {
			return nil, err
		}

		var id, lat, lon int64
		var keyIdx, valIdx []int32
		var infoBuf []byte

		nr := wire.NewFieldReader(nodeBuf)
		for !nr.Done() {
			fnum, fwt, err := nr.Next()
			if err != nil {
				return nil, err
			}
			switch fnum {
			case 1:
				if id, err = nr.SVarint(); err != nil {
					return nil, err
				}
			case 2:
				b, err := nr.Bytes()
				if err != nil {
					return nil, err
				}
				if err := wire.EachVarint(b, func(v uint64) error { keyIdx = append(keyIdx, int32(v)); return nil }); err != nil {
					return nil, err
				}
			case 3:
				b, err := nr.Bytes()
				if err != nil {
					return nil, err
				}
				if err := wire.EachVarint(b, func(v uint64) error { valIdx = append(valIdx, int32(v)); return nil }); err != nil {
					return nil, err
				}
			case 4:
				if infoBuf, err = nr.Bytes(); err != nil {
					return nil, err
				}
			case 8:
				if lat, err = nr.SVarint(); err != nil {
					return nil, err
				}
			case 9:
				if lon, err = nr.SVarint(); err != nil {
					return nil, err
				}
			default:
				if err := nr.Skip(fwt); err != nil {
					return nil, err
				}
			}
		}

		ids = append(ids, id)
		lats = append(lats, ctx.LatOffset+ctx.Granularity*lat)
		lons = append(lons, ctx.LonOffset+ctx.Granularity*lon)

		tagKeys, tagVals, err = decodeTagColumns(keyIdx, valIdx, ctx.Strings, filterSlots, tagKeys, tagVals)
		if err != nil {
			return nil, err
		}
		tagOffsets = append(tagOffsets, uint32(len(tagKeys)))

		info = appendElementInfo(info, infoBuf)
	}

	return &Block{
		Kind: Node, Strings: ctx.Strings,
		IDs: ids, Lats: lats, Lons: lons,
		TagKeys: tagKeys, TagVals: tagVals, TagOffsets: tagOffsets,
		Info: info,
	}, nil
}

func decodeWays(buf []byte, ctx *BlockContext, keys *strtable.Keys) (*Block, error) {
	var filterSlots []uint16
	if keys != nil {
		filterSlots = keys.Project(ctx.Strings)
	}

	var ids []int64
	var tagKeys, tagVals, tagOffsets []uint32
	tagOffsets = append(tagOffsets, 0)
	var refs []int64
	var refOffsets []uint32
	refOffsets = append(refOffsets, 0)
	var info *Info

	r := wire.NewFieldReader(buf)
	for !r.Done() {
		num, wt, err := r.Next()
		if err != nil {
			return nil, err
		}
		if num != 3 {
			if err := r.Skip(wt); err != nil {
				return nil, err
			}
			continue
		}
		wayBuf, err := r.Bytes()
		if err != nil {
			return nil, err
		}

		var id int64
		var keyIdx, valIdx []int32
		var infoBuf []byte
		var rawRefs []int64

		wr := wire.NewFieldReader(wayBuf)
		for !wr.Done() {
			fnum, fwt, err := wr.Next()
			if err != nil {
				return nil, err
			}
			switch fnum {
			case 1:
				v, err := wr.Varint()
				if err != nil {
					return nil, err
				}
				id = int64(v)
			case 2:
				b, err := wr.Bytes()
				if err != nil {
					return nil, err
				}
				if err := wire.EachVarint(b, func(v uint64) error { keyIdx = append(keyIdx, int32(v)); return nil }); err != nil {
					return nil, err
				}
			case 3:
				b, err := wr.Bytes()
				if err != nil {
					return nil, err
				}
				if err := wire.EachVarint(b, func(v uint64) error { valIdx = append(valIdx, int32(v)); return nil }); err != nil {
					return nil, err
				}
			case 4:
				if infoBuf, err = wr.Bytes(); err != nil {
					return nil, err
				}
			case 8:
				b, err := wr.Bytes()
				if err != nil {
					return nil, err
				}
				if err := wire.EachVarint(b, func(v uint64) error { rawRefs = append(rawRefs, wire.DecodeZigZag(v)); return nil }); err != nil {
					return nil, err
				}
			default:
				if err := wr.Skip(fwt); err != nil {
					return nil, err
				}
			}
		}

		ids = append(ids, id)

		refs = appendDeltaDecoded(refs, rawRefs)
		refOffsets = append(refOffsets, uint32(len(refs)))

		tagKeys, tagVals, err = decodeTagColumns(keyIdx, valIdx, ctx.Strings, filterSlots, tagKeys, tagVals)
		if err != nil {
			return nil, err
		}
		tagOffsets = append(tagOffsets, uint32(len(tagKeys)))

		info = appendElementInfo(info, infoBuf)
	}

	return &Block{
		Kind: Way, Strings: ctx.Strings,
		IDs:        ids,
		TagKeys:    tagKeys, TagVals: tagVals, TagOffsets: tagOffsets,
		Refs: refs, RefOffsets: refOffsets,
		Info: info,
	}, nil
}

func decodeRelations(buf []byte, ctx *BlockContext, keys *strtable.Keys) (*Block, error) {
	var filterSlots []uint16
	if keys != nil {
		filterSlots = keys.Project(ctx.Strings)
	}

	var ids []int64
	var tagKeys, tagVals, tagOffsets []uint32
	tagOffsets = append(tagOffsets, 0)
	var memberIDs []int64
	var memberTypes []MemberType
	var memberRoles []uint32
	var memberOffsets []uint32
	memberOffsets = append(memberOffsets, 0)
	var info *Info

	r := wire.NewFieldReader(buf)
	for !r.Done() {
		num, wt, err := r.Next()
		if err != nil {
			return nil, err
		}
		if num != 4 {
			if err := r.Skip(wt); err != nil {
				return nil, err
			}
			continue
		}
		relBuf, err := r.Bytes()
		if err != nil {
			return nil, err
		}

		var id int64
		var keyIdx, valIdx []int32
		var infoBuf []byte
		var rolesSid, rawTypes []int32
		var rawMemIDs []int64

		rr := wire.NewFieldReader(relBuf)
		for !rr.Done() {
			fnum, fwt, err := rr.Next()
			if err != nil {
				return nil, err
			}
			switch fnum {
			case 1:
				v, err := rr.Varint()
				if err != nil {
					return nil, err
				}
				id = int64(v)
			case 2:
				b, err := rr.Bytes()
				if err != nil {
					return nil, err
				}
				if err := wire.EachVarint(b, func(v uint64) error { keyIdx = append(keyIdx, int32(v)); return nil }); err != nil {
					return nil, err
				}
			case 3:
				b, err := rr.Bytes()
				if err != nil {
					return nil, err
				}
				if err := wire.EachVarint(b, func(v uint64) error { valIdx = append(valIdx, int32(v)); return nil }); err != nil {
					return nil, err
				}
			case 4:
				if infoBuf, err = rr.Bytes(); err != nil {
					return nil, err
				}
			case 8:
				b, err := rr.Bytes()
				if err != nil {
					return nil, err
				}
				if err := wire.EachVarint(b, func(v uint64) error { rolesSid = append(rolesSid, int32(v)); return nil }); err != nil {
					return nil, err
				}
			case 9:
				b, err := rr.Bytes()
				if err != nil {
					return nil, err
				}
				if err := wire.EachVarint(b, func(v uint64) error { rawMemIDs = append(rawMemIDs, wire.DecodeZigZag(v)); return nil }); err != nil {
					return nil, err
				}
			case 10:
				b, err := rr.Bytes()
				if err != nil {
					return nil, err
				}
				if err := wire.EachVarint(b, func(v uint64) error { rawTypes = append(rawTypes, int32(v)); return nil }); err != nil {
					return nil, err
				}
			default:
				if err := rr.Skip(fwt); err != nil {
					return nil, err
				}
			}
		}

		if len(rolesSid) != len(rawMemIDs) || len(rolesSid) != len(rawTypes) {
			return nil, fmt.Errorf("%w: relation member column length mismatch", errs.MalformedElement)
		}

		ids = append(ids, id)

		memberIDs = appendDeltaDecoded(memberIDs, rawMemIDs)
		for i := range rawTypes {
			switch rawTypes[i] {
			case 0:
				memberTypes = append(memberTypes, MemberNode)
			case 1:
				memberTypes = append(memberTypes, MemberWay)
			case 2:
				memberTypes = append(memberTypes, MemberRelation)
			default:
				return nil, fmt.Errorf("%w: unrecognized relation member type %d", errs.MalformedElement, rawTypes[i])
			}

			role := rolesSid[i]
			if role < 0 || int(role) >= ctx.Strings.Len() {
				return nil, fmt.Errorf("%w: relation member role index out of range", errs.MalformedElement)
			}
			memberRoles = append(memberRoles, uint32(role))
		}
		memberOffsets = append(memberOffsets, uint32(len(memberIDs)))

		tagKeys, tagVals, err = decodeTagColumns(keyIdx, valIdx, ctx.Strings, filterSlots, tagKeys, tagVals)
		if err != nil {
			return nil, err
		}
		tagOffsets = append(tagOffsets, uint32(len(tagKeys)))

		info = appendElementInfo(info, infoBuf)
	}

	return &Block{
		Kind: Relation, Strings: ctx.Strings,
		IDs:           ids,
		TagKeys:       tagKeys, TagVals: tagVals, TagOffsets: tagOffsets,
		MemberIDs:     memberIDs,
		MemberTypes:   memberTypes,
		MemberRoles:   memberRoles,
		MemberOffsets: memberOffsets,
		Info:          info,
	}, nil
}
