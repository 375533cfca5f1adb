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

// Package blobio frames and inflates the blob container that wraps every
// OSMHeader/OSMData record in a PBF file.
package blobio

import (
	"encoding/binary"
	"fmt"
	"io"
	"math"

	"github.com/dustin/go-humanize"

	"github.com/go-osmpbf/corepbf/internal/core"
	"github.com/go-osmpbf/corepbf/internal/errs"
	"github.com/go-osmpbf/corepbf/internal/wire"
)

// Codec identifies how a blob's payload was compressed.
type Codec int

const (
	CodecRaw Codec = iota
	CodecZlib
	CodecLZMA
	CodecLZ4
	CodecZstd
)

// Limits bounds the framer's trust in declared sizes, so a corrupt or
// hostile header length can't force an unbounded allocation.
type Limits struct {
	MaxHeaderSize int   // BlobHeader length prefix ceiling
	MaxCompressed int64 // compressed payload ceiling
	MaxRaw        int64 // declared raw_size ceiling
}

// DefaultLimits is what NewReader uses unless overridden: 64 KiB headers,
// 64 MiB compressed payloads, 32 MiB declared raw sizes.
var DefaultLimits = Limits{
	MaxHeaderSize: 64 * 1024,
	MaxCompressed: 64 * 1024 * 1024,
	MaxRaw:        32 * 1024 * 1024,
}

// Blob is a framed, not-yet-inflated blob: either Type is "OSMHeader" or
// "OSMData" (the two type tags the core recognizes) or something else the
// caller should treat as unknown and skip.
type Blob struct {
	Type    string
	Codec   Codec
	Payload []byte // compressed bytes, or raw bytes when Codec == CodecRaw
	RawSize int64  // declared decompressed size; the payload length for CodecRaw
}

// ReadNext implements the two-state blob framer: ExpectHeaderLen reads a
// 4-byte big-endian length and ExpectBlob reads that many bytes as a
// BlobHeader message, then reads the blob payload it describes. It
// returns io.EOF at a clean end-of-file boundary.
func ReadNext(r io.Reader, scratch *core.PooledBuffer, limits Limits) (Blob, error) {
	var lenBuf [4]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		if err == io.EOF {
			return Blob{}, err // clean end-of-file boundary passes through unwrapped
		}
		if err == io.ErrUnexpectedEOF {
			return Blob{}, fmt.Errorf("%w: %v", errs.ShortRead, err)
		}
		return Blob{}, fmt.Errorf("%w: %v", errs.IO, err)
	}

	headerLen := int(binary.BigEndian.Uint32(lenBuf[:]))
	if headerLen > limits.MaxHeaderSize {
		return Blob{}, fmt.Errorf("%w: header length %s exceeds limit of %s",
			errs.OversizedHeader, humanize.IBytes(uint64(headerLen)), humanize.IBytes(uint64(limits.MaxHeaderSize)))
	}

	scratch.Reset()
	if _, err := io.CopyN(scratch, r, int64(headerLen)); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Blob{}, fmt.Errorf("%w: %v", errs.ShortRead, err)
		}
		return Blob{}, fmt.Errorf("%w: %v", errs.IO, err)
	}

	blobType, dataSize, err := parseBlobHeader(scratch.Bytes())
	if err != nil {
		return Blob{}, err
	}
	if int64(dataSize) > limits.MaxCompressed {
		return Blob{}, fmt.Errorf("%w: blob length %s exceeds limit of %s",
			errs.OversizedBlob, humanize.IBytes(uint64(dataSize)), humanize.IBytes(uint64(limits.MaxCompressed)))
	}

	body := make([]byte, dataSize)
	if _, err := io.ReadFull(r, body); err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return Blob{}, fmt.Errorf("%w: %v", errs.ShortRead, err)
		}
		return Blob{}, fmt.Errorf("%w: %v", errs.IO, err)
	}

	blob, err := parseBlob(body, limits)
	if err != nil {
		return Blob{}, err
	}
	blob.Type = blobType

	return blob, nil
}

// parseBlobHeader walks a BlobHeader message: type (1, bytes), indexdata
// (2, bytes, ignored by the core), datasize (3, varint).
func parseBlobHeader(buf []byte) (blobType string, dataSize int32, err error) {
	r := wire.NewFieldReader(buf)
	for !r.Done() {
		num, wt, err := r.Next()
		if err != nil {
			return "", 0, err
		}
		switch num {
		case 1:
			b, err := r.Bytes()
			if err != nil {
				return "", 0, err
			}
			blobType = string(b)
		case 3:
			v, err := r.Varint()
			if err != nil {
				return "", 0, err
			}
			// datasize is int32 on the wire; anything larger is malformed
			// and would wrap negative, slipping past the size guard.
			if v > math.MaxInt32 {
				return "", 0, fmt.Errorf("%w: declared blob length %s overflows int32",
					errs.OversizedBlob, humanize.IBytes(v))
			}
			dataSize = int32(v)
		default:
			if err := r.Skip(wt); err != nil {
				return "", 0, err
			}
		}
	}
	return blobType, dataSize, nil
}

// parseBlob walks a Blob message: raw (1, bytes), raw_size (2, varint),
// zlib_data (3, bytes), lzma_data (4, bytes), the deprecated and never
// shipped bzip2_data (5), lz4_data (6, bytes), zstd_data (7, bytes).
func parseBlob(buf []byte, limits Limits) (Blob, error) {
	var (
		blob    Blob
		rawSize int64
		haveRaw bool
	)

	r := wire.NewFieldReader(buf)
	for !r.Done() {
		num, wt, err := r.Next()
		if err != nil {
			return Blob{}, err
		}
		switch num {
		case 1:
			b, err := r.Bytes()
			if err != nil {
				return Blob{}, err
			}
			blob.Payload = b
			blob.Codec = CodecRaw
			haveRaw = true
		case 2:
			v, err := r.Varint()
			if err != nil {
				return Blob{}, err
			}
			rawSize = int64(v)
		case 3, 4, 6, 7:
			b, err := r.Bytes()
			if err != nil {
				return Blob{}, err
			}
			blob.Payload = b
			blob.Codec = codecForField(num)
		case 5:
			return Blob{}, fmt.Errorf("%w: bzip2_data is not a supported blob codec", errs.Inflate)
		default:
			if err := r.Skip(wt); err != nil {
				return Blob{}, err
			}
		}
	}

	if !haveRaw {
		if rawSize > limits.MaxRaw {
			return Blob{}, fmt.Errorf("%w: declared raw size %s exceeds limit of %s",
				errs.OversizedBlob, humanize.IBytes(uint64(rawSize)), humanize.IBytes(uint64(limits.MaxRaw)))
		}
		blob.RawSize = rawSize
	} else {
		blob.RawSize = int64(len(blob.Payload))
	}

	return blob, nil
}

func codecForField(num wire.Number) Codec {
	switch num {
	case 3:
		return CodecZlib
	case 4:
		return CodecLZMA
	case 6:
		return CodecLZ4
	case 7:
		return CodecZstd
	default:
		return CodecRaw
	}
}

// Frames returns a pull iterator over successive blobs read from r, so
// callers can stop early without leaking the underlying reader state. The
// Reader's block pipeline does not use it; it frames through ReadNext.
func Frames(r io.Reader, limits Limits) func(yield func(Blob, error) bool) {
	return func(yield func(Blob, error) bool) {
		scratch := core.NewPooledBuffer()
		defer scratch.Close()

		for {
			blob, err := ReadNext(r, scratch, limits)
			if err != nil {
				if err != io.EOF {
					yield(Blob{}, err)
				}
				return
			}
			if !yield(blob, nil) {
				return
			}
		}
	}
}
