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

package corepbf_test

import "encoding/binary"

// The helpers in this file hand-assemble the protobuf-wire byte fixtures
// exercised by this package's end-to-end tests: no testdata/*.pbf binaries
// were available, so every scenario builds its own minimal container.

func appendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
}

func appendSVarint(buf []byte, v int64) []byte {
	return appendVarint(buf, uint64((v<<1)^(v>>63)))
}

func appendTag(buf []byte, num int, wt int) []byte {
	return appendVarint(buf, uint64(num<<3|wt))
}

func appendBytesField(buf []byte, num int, v []byte) []byte {
	buf = appendTag(buf, num, 2)
	buf = appendVarint(buf, uint64(len(v)))
	return append(buf, v...)
}

func appendVarintField(buf []byte, num int, v uint64) []byte {
	buf = appendTag(buf, num, 0)
	return appendVarint(buf, v)
}

func appendPackedVarints(buf []byte, num int, vs []uint64) []byte {
	var payload []byte
	for _, v := range vs {
		payload = appendVarint(payload, v)
	}
	return appendBytesField(buf, num, payload)
}

func appendPackedSVarints(buf []byte, num int, vs []int64) []byte {
	var payload []byte
	for _, v := range vs {
		payload = appendSVarint(payload, v)
	}
	return appendBytesField(buf, num, payload)
}

// buildRecord frames one length-prefixed BlobHeader+Blob record carrying a
// raw (uncompressed) payload of the given type ("OSMHeader"/"OSMData").
func buildRecord(blobType string, payload []byte) []byte {
	var blob []byte
	blob = appendBytesField(blob, 1, payload)

	var hdr []byte
	hdr = appendBytesField(hdr, 1, []byte(blobType))
	hdr = appendVarintField(hdr, 3, uint64(len(blob)))

	var rec []byte
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(hdr)))
	rec = append(rec, lenBuf[:]...)
	rec = append(rec, hdr...)
	rec = append(rec, blob...)
	return rec
}

func buildStringTable(entries ...string) []byte {
	var buf []byte
	for _, e := range entries {
		buf = appendBytesField(buf, 1, []byte(e))
	}
	return buf
}

// buildDenseGroup assembles a PrimitiveGroup containing a DenseNodes
// (field 2) submessage: delta-coded ids (1), lats (8), lons (9), and an
// optional packed keys_vals stream (10).
func buildDenseGroup(ids, lats, lons []int64, keysVals []int32) []byte {
	var dense []byte
	var idDeltas, latDeltas, lonDeltas []int64
	var prevID, prevLat, prevLon int64
	for i := range ids {
		idDeltas = append(idDeltas, ids[i]-prevID)
		latDeltas = append(latDeltas, lats[i]-prevLat)
		lonDeltas = append(lonDeltas, lons[i]-prevLon)
		prevID, prevLat, prevLon = ids[i], lats[i], lons[i]
	}
	dense = appendPackedSVarints(dense, 1, idDeltas)
	dense = appendPackedSVarints(dense, 8, latDeltas)
	dense = appendPackedSVarints(dense, 9, lonDeltas)
	if keysVals != nil {
		var kv []uint64
		for _, v := range keysVals {
			kv = append(kv, uint64(int64(v)))
		}
		dense = appendPackedVarints(dense, 10, kv)
	}
	return appendBytesField(nil, 2, dense)
}

// buildPrimitiveBlock wraps a string table and one or more groups into a
// PrimitiveBlock message: string_table (1), primitivegroup (2, repeated).
// Each g is a self-contained PrimitiveGroup message and gets its own
// length-delimited primitivegroup entry.
func buildPrimitiveBlock(stringTable []byte, groups ...[]byte) []byte {
	var buf []byte
	buf = appendBytesField(buf, 1, stringTable)
	for _, g := range groups {
		buf = appendBytesField(buf, 2, g)
	}
	return buf
}

// buildHeaderBlock assembles a HeaderBlock message with the given
// required_features (field 4, repeated bytes).
func buildHeaderBlock(requiredFeatures ...string) []byte {
	var buf []byte
	for _, f := range requiredFeatures {
		buf = appendBytesField(buf, 4, []byte(f))
	}
	return buf
}

// oneDenseNodeFile assembles a complete stream: an OSMHeader blob declaring
// DenseNodes support, followed by n OSMData blobs each carrying a single
// dense node at (id, 0, 0).
func oneDenseNodeFile(ids ...int64) []byte {
	var stream []byte
	stream = append(stream, buildRecord("OSMHeader", buildHeaderBlock("DenseNodes"))...)
	for _, id := range ids {
		st := buildStringTable("")
		group := buildDenseGroup([]int64{id}, []int64{0}, []int64{0}, nil)
		stream = append(stream, buildRecord("OSMData", buildPrimitiveBlock(st, group))...)
	}
	return stream
}
