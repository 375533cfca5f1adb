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

// Package errs holds the decode engine's closed error taxonomy so that
// every internal package and the public API agree on the same sentinel
// identities for errors.Is.
package errs

import "errors"

var (
	// IO wraps a failure of the underlying reader; an early end of stream
	// inside a record is reported as ShortRead instead.
	IO = errors.New("i/o error")

	// ShortRead means the stream ended in the middle of a length-prefixed
	// record.
	ShortRead = errors.New("short read")

	// TruncatedVarint means the input ended before a varint's
	// continuation bit was cleared.
	TruncatedVarint = errors.New("truncated varint")

	// OverlongVarint means a varint consumed more than 10 bytes.
	OverlongVarint = errors.New("overlong varint")

	// UnknownWireType means a field tag carried a wire type outside
	// {varint, fixed64, length-delimited, fixed32}.
	UnknownWireType = errors.New("unknown wire type")

	// OversizedHeader means a BlobHeader length prefix exceeded the
	// configured limit.
	OversizedHeader = errors.New("oversized blob header")

	// OversizedBlob means a blob's compressed or declared raw size
	// exceeded the configured limit.
	OversizedBlob = errors.New("oversized blob")

	// SizeMismatch means an inflated buffer's length disagreed with the
	// blob's declared raw size.
	SizeMismatch = errors.New("inflated size mismatch")

	// Inflate means a compressed blob payload was corrupt or used a
	// codec this build does not support.
	Inflate = errors.New("inflate error")

	// UnsupportedFeature means the OSM header declared a required
	// feature this decoder does not implement.
	UnsupportedFeature = errors.New("unsupported required feature")

	// MalformedElement means a primitive group violated a structural
	// invariant: an out-of-range string index, a non-monotonic dense
	// node id, an unknown relation member type, or a missing tag
	// terminator.
	MalformedElement = errors.New("malformed element")

	// FilterAfterStart means a filter was configured after iteration had
	// already begun.
	FilterAfterStart = errors.New("filter configured after iteration started")
)
