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
	"compress/zlib"
	"fmt"
	"io"

	"github.com/go-osmpbf/corepbf/internal/core"
	"github.com/go-osmpbf/corepbf/internal/errs"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4"
	"github.com/ulikunitz/xz/lzma"
)

// Inflate decompresses blob's payload per its codec into dst, growing dst
// to the blob's declared raw size first so the decompressor has a
// right-sized destination. It reports SizeMismatch when the inflated
// length disagrees with what the blob declared, since that disagreement
// usually means the stream was truncated rather than merely odd-sized.
func Inflate(blob Blob, dst *core.PooledBuffer) ([]byte, error) {
	if blob.Codec == CodecRaw {
		return blob.Payload, nil
	}

	dst.Reset()
	dst.EnsureCap(int(blob.RawSize))

	var err error
	switch blob.Codec {
	case CodecZlib:
		err = inflateZlib(blob.Payload, dst)
	case CodecZstd:
		err = inflateZstd(blob.Payload, dst)
	case CodecLZ4:
		err = inflateLZ4(blob.Payload, dst)
	case CodecLZMA:
		err = inflateLZMA(blob.Payload, dst)
	default:
		return nil, fmt.Errorf("%w: unrecognized codec %d", errs.Inflate, blob.Codec)
	}
	if err != nil {
		return nil, err
	}

	if int64(dst.Len()) != blob.RawSize {
		return nil, fmt.Errorf("%w: got %d bytes, blob declared %d", errs.SizeMismatch, dst.Len(), blob.RawSize)
	}
	return dst.Bytes(), nil
}

func inflateZlib(src []byte, dst *core.PooledBuffer) error {
	zr, err := zlib.NewReader(bytes.NewReader(src))
	if err != nil {
		return fmt.Errorf("%w: %v", errs.Inflate, err)
	}
	defer zr.Close()
	if _, err := io.Copy(dst, zr); err != nil {
		return fmt.Errorf("%w: %v", errs.Inflate, err)
	}
	return nil
}

func inflateZstd(src []byte, dst *core.PooledBuffer) error {
	zr, err := zstd.NewReader(bytes.NewReader(src))
	if err != nil {
		return fmt.Errorf("%w: %v", errs.Inflate, err)
	}
	defer zr.Close()
	if _, err := io.Copy(dst, zr); err != nil {
		return fmt.Errorf("%w: %v", errs.Inflate, err)
	}
	return nil
}

func inflateLZ4(src []byte, dst *core.PooledBuffer) error {
	zr := lz4.NewReader(bytes.NewReader(src))
	if _, err := io.Copy(dst, zr); err != nil {
		return fmt.Errorf("%w: %v", errs.Inflate, err)
	}
	return nil
}

func inflateLZMA(src []byte, dst *core.PooledBuffer) error {
	zr, err := lzma.NewReader(bytes.NewReader(src))
	if err != nil {
		return fmt.Errorf("%w: %v", errs.Inflate, err)
	}
	if _, err := io.Copy(dst, zr); err != nil {
		return fmt.Errorf("%w: %v", errs.Inflate, err)
	}
	return nil
}
