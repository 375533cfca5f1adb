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

// Package wire walks the protobuf wire format the OSM PBF container embeds
// (BlobHeader, Blob, HeaderBlock, PrimitiveBlock and friends) without
// unmarshaling into generated message structs: every field the decoder
// doesn't need is skipped by wire type rather than allocated.
package wire

import (
	"fmt"

	"github.com/go-osmpbf/corepbf/internal/errs"
)

// maxVarintBytes bounds a varint at 10 bytes, enough for any 64-bit value;
// anything longer is malformed input, not a bigger number.
const maxVarintBytes = 10

// ConsumeVarint decodes an unsigned varint from the front of b and returns
// the decoded value along with the number of bytes consumed.
func ConsumeVarint(b []byte) (v uint64, n int, err error) {
	for i := 0; i < len(b) && i < maxVarintBytes; i++ {
		byt := b[i]
		v |= uint64(byt&0x7f) << (7 * uint(i))
		if byt&0x80 == 0 {
			return v, i + 1, nil
		}
	}
	if len(b) >= maxVarintBytes {
		return 0, 0, fmt.Errorf("%w: varint exceeds %d bytes", errs.OverlongVarint, maxVarintBytes)
	}
	return 0, 0, fmt.Errorf("%w: %d bytes available", errs.TruncatedVarint, len(b))
}

// DecodeZigZag maps a zigzag-encoded unsigned value back to its signed
// original: (u >> 1) ^ -(u & 1).
func DecodeZigZag(u uint64) int64 {
	return int64(u>>1) ^ -int64(u&1)
}

// EncodeZigZag is the inverse of DecodeZigZag, kept alongside it because
// the two are easy to confuse and tests exercise both directions.
func EncodeZigZag(v int64) uint64 {
	return uint64((v << 1) ^ (v >> 63))
}

// ConsumeBytes reads a varint length prefix and borrows that many bytes
// from b without copying, returning the slice and the total bytes consumed
// (prefix + payload).
func ConsumeBytes(b []byte) (v []byte, n int, err error) {
	size, pn, err := ConsumeVarint(b)
	if err != nil {
		return nil, 0, err
	}
	end := pn + int(size)
	if size > uint64(len(b)-pn) {
		return nil, 0, fmt.Errorf("%w: length-delimited field wants %d bytes, %d available", errs.TruncatedVarint, size, len(b)-pn)
	}
	return b[pn:end], end, nil
}
