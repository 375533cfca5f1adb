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

package blobio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"io"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/go-osmpbf/corepbf/internal/core"
	"github.com/go-osmpbf/corepbf/internal/errs"
)

func appendTag(buf []byte, num int, wt int) []byte {
	return appendVarint(buf, uint64(num<<3|wt))
}

func appendVarint(buf []byte, v uint64) []byte {
	for v >= 0x80 {
		buf = append(buf, byte(v)|0x80)
		v >>= 7
	}
	return append(buf, byte(v))
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

// buildBlobRecord assembles one length-prefixed BlobHeader+Blob record
// carrying a raw (uncompressed) payload, exactly as a file's header-length
// framing expects it.
func buildBlobRecord(blobType string, payload []byte) []byte {
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

func TestReadNextRoundTripsRawBlob(t *testing.T) {
	rec := buildBlobRecord("OSMData", []byte("hello world"))

	scratch := core.NewPooledBuffer()
	defer scratch.Close()

	blob, err := ReadNext(bytes.NewReader(rec), scratch, DefaultLimits)
	assert.NoError(t, err)
	assert.Equal(t, "OSMData", blob.Type)
	assert.Equal(t, CodecRaw, blob.Codec)
	assert.Equal(t, []byte("hello world"), blob.Payload)
	assert.Equal(t, int64(len("hello world")), blob.RawSize)
}

func TestReadNextEOFAtCleanBoundary(t *testing.T) {
	scratch := core.NewPooledBuffer()
	defer scratch.Close()

	_, err := ReadNext(bytes.NewReader(nil), scratch, DefaultLimits)
	assert.True(t, errors.Is(err, io.EOF))
}

func TestReadNextShortReadOnTruncatedHeader(t *testing.T) {
	rec := buildBlobRecord("OSMData", []byte("x"))
	truncated := rec[:5] // length prefix claims more than we give it

	scratch := core.NewPooledBuffer()
	defer scratch.Close()

	_, err := ReadNext(bytes.NewReader(truncated), scratch, DefaultLimits)
	assert.True(t, errors.Is(err, errs.ShortRead))
}

func TestReadNextOversizedHeaderRejected(t *testing.T) {
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(DefaultLimits.MaxHeaderSize+1))

	scratch := core.NewPooledBuffer()
	defer scratch.Close()

	_, err := ReadNext(bytes.NewReader(lenBuf[:]), scratch, DefaultLimits)
	assert.True(t, errors.Is(err, errs.OversizedHeader))
}

func TestReadNextOversizedBlobRejected(t *testing.T) {
	var blob []byte
	blob = appendVarintField(blob, 2, 10) // raw_size only, declared large below

	var hdr []byte
	hdr = appendBytesField(hdr, 1, []byte("OSMData"))
	hdr = appendVarintField(hdr, 3, uint64(len(blob)))

	limits := DefaultLimits
	limits.MaxCompressed = int64(len(blob)) - 1

	var rec []byte
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(hdr)))
	rec = append(rec, lenBuf[:]...)
	rec = append(rec, hdr...)
	rec = append(rec, blob...)

	scratch := core.NewPooledBuffer()
	defer scratch.Close()

	_, err := ReadNext(bytes.NewReader(rec), scratch, limits)
	assert.True(t, errors.Is(err, errs.OversizedBlob))
}

// A datasize past int32 range must be rejected up front: narrowed, it
// would wrap negative and slip under the compressed-size limit.
func TestReadNextDatasizeOverflowRejected(t *testing.T) {
	var hdr []byte
	hdr = appendBytesField(hdr, 1, []byte("OSMData"))
	hdr = appendVarintField(hdr, 3, uint64(math.MaxInt32)+1)

	var rec []byte
	var lenBuf [4]byte
	binary.BigEndian.PutUint32(lenBuf[:], uint32(len(hdr)))
	rec = append(rec, lenBuf[:]...)
	rec = append(rec, hdr...)

	scratch := core.NewPooledBuffer()
	defer scratch.Close()

	_, err := ReadNext(bytes.NewReader(rec), scratch, DefaultLimits)
	assert.True(t, errors.Is(err, errs.OversizedBlob))
}

func TestFramesIteratesUntilEOF(t *testing.T) {
	var stream []byte
	stream = append(stream, buildBlobRecord("OSMData", []byte("a"))...)
	stream = append(stream, buildBlobRecord("OSMData", []byte("bb"))...)

	var got []string
	for blob, err := range Frames(bytes.NewReader(stream), DefaultLimits) {
		assert.NoError(t, err)
		got = append(got, string(blob.Payload))
	}
	assert.Equal(t, []string{"a", "bb"}, got)
}

func TestFramesStopsEarlyOnConsumerBreak(t *testing.T) {
	var stream []byte
	stream = append(stream, buildBlobRecord("OSMData", []byte("a"))...)
	stream = append(stream, buildBlobRecord("OSMData", []byte("b"))...)
	stream = append(stream, buildBlobRecord("OSMData", []byte("c"))...)

	var got []string
	for blob, err := range Frames(bytes.NewReader(stream), DefaultLimits) {
		assert.NoError(t, err)
		got = append(got, string(blob.Payload))
		if len(got) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"a", "b"}, got)
}
