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

package wire

import (
	"fmt"
	"io"

	"github.com/go-osmpbf/corepbf/internal/errs"
)

// Type is one of the four wire types the OSM PBF schema uses.
type Type uint8

const (
	Varint          Type = 0
	Fixed64         Type = 1
	LengthDelimited Type = 2
	Fixed32         Type = 5
)

// Number is a protobuf field number.
type Number uint32

// FieldReader walks a message's tag/field stream one field at a time,
// borrowing slices from the underlying buffer rather than allocating.
type FieldReader struct {
	buf []byte
}

// NewFieldReader wraps buf, which must be the bytes of a single embedded
// message (already length-delimited by the caller).
func NewFieldReader(buf []byte) FieldReader {
	return FieldReader{buf: buf}
}

// Done reports whether the message has no more fields.
func (r *FieldReader) Done() bool {
	return len(r.buf) == 0
}

// Next decodes the next field's tag, splitting it into a field number and
// wire type. It returns io.EOF once the message is exhausted.
func (r *FieldReader) Next() (Number, Type, error) {
	if len(r.buf) == 0 {
		return 0, 0, io.EOF
	}

	tag, n, err := ConsumeVarint(r.buf)
	if err != nil {
		return 0, 0, err
	}

	wt := Type(tag & 0x7)
	switch wt {
	case Varint, Fixed64, LengthDelimited, Fixed32:
	default:
		return 0, 0, fmt.Errorf("%w: %d", errs.UnknownWireType, wt)
	}

	r.buf = r.buf[n:]

	return Number(tag >> 3), wt, nil
}

// Varint consumes the current field's value as an unsigned varint.
func (r *FieldReader) Varint() (uint64, error) {
	v, n, err := ConsumeVarint(r.buf)
	if err != nil {
		return 0, err
	}
	r.buf = r.buf[n:]
	return v, nil
}

// SVarint consumes the current field's value as a zigzag-encoded signed
// varint.
func (r *FieldReader) SVarint() (int64, error) {
	v, err := r.Varint()
	if err != nil {
		return 0, err
	}
	return DecodeZigZag(v), nil
}

// Bytes consumes the current field's value as a length-delimited byte
// slice, borrowed from the message buffer.
func (r *FieldReader) Bytes() ([]byte, error) {
	v, n, err := ConsumeBytes(r.buf)
	if err != nil {
		return nil, err
	}
	r.buf = r.buf[n:]
	return v, nil
}

// Fixed32 consumes the current field's value as a little-endian 32-bit word.
func (r *FieldReader) Fixed32() (uint32, error) {
	if len(r.buf) < 4 {
		return 0, fmt.Errorf("%w: fixed32 wants 4 bytes, %d available", errs.TruncatedVarint, len(r.buf))
	}
	v := uint32(r.buf[0]) | uint32(r.buf[1])<<8 | uint32(r.buf[2])<<16 | uint32(r.buf[3])<<24
	r.buf = r.buf[4:]
	return v, nil
}

// Fixed64 consumes the current field's value as a little-endian 64-bit word.
func (r *FieldReader) Fixed64() (uint64, error) {
	if len(r.buf) < 8 {
		return 0, fmt.Errorf("%w: fixed64 wants 8 bytes, %d available", errs.TruncatedVarint, len(r.buf))
	}
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(r.buf[i]) << (8 * uint(i))
	}
	r.buf = r.buf[8:]
	return v, nil
}

// Skip discards the current field's value given its wire type, without
// allocating. Length-delimited skips read the length varint and advance
// past the payload.
func (r *FieldReader) Skip(wt Type) error {
	switch wt {
	case Varint:
		_, err := r.Varint()
		return err
	case Fixed64:
		_, err := r.Fixed64()
		return err
	case LengthDelimited:
		_, err := r.Bytes()
		return err
	case Fixed32:
		_, err := r.Fixed32()
		return err
	default:
		return fmt.Errorf("%w: %d", errs.UnknownWireType, wt)
	}
}

// EachVarint walks a length-delimited run of concatenated varints (a
// "packed" repeated field) and invokes fn with each decoded value in
// order. It never materializes an intermediate slice; the caller decides
// how to accumulate.
func EachVarint(buf []byte, fn func(v uint64) error) error {
	for len(buf) > 0 {
		v, n, err := ConsumeVarint(buf)
		if err != nil {
			return err
		}
		buf = buf[n:]
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}
