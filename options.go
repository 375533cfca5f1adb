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

package corepbf

import (
	"runtime"

	"github.com/go-osmpbf/corepbf/internal/blobio"
	"github.com/go-osmpbf/corepbf/internal/columnar"
)

// DefaultNCpu provides the default number of decode workers, leaving one
// CPU free for the framing goroutine and the consumer.
func DefaultNCpu() int {
	cpus := runtime.GOMAXPROCS(-1)

	return max(cpus-1, 1)
}

// options holds a Reader's configuration. It is write-once: every field is
// set either by a ReaderOption passed to NewReader or by a Set* method
// called before Blocks or ParBlocks is first called.
type options struct {
	elementFilter columnar.ElementFilter
	tagFilter     [][]byte
	workers       int
	limits        blobio.Limits
}

var defaultOptions = options{
	elementFilter: columnar.DefaultElementFilter,
	workers:       DefaultNCpu(),
	limits:        blobio.DefaultLimits,
}

// ReaderOption configures a Reader at construction time.
type ReaderOption func(*options)

// WithElementFilter restricts decoding to the given element kinds. A group
// whose kind is disabled is skipped entirely: its bytes are still consumed
// to advance the message cursor, but no element work is done.
func WithElementFilter(nodes, ways, relations bool) ReaderOption {
	return func(o *options) {
		o.elementFilter = columnar.ElementFilter{Nodes: nodes, Ways: ways, Relations: relations}
	}
}

// WithTagFilter restricts every decoded tag column to the given keys,
// projecting native string-table indices into small filter slots. Up to
// 65535 keys are supported; real filters rarely need more than a handful.
func WithTagFilter(keys ...string) ReaderOption {
	return func(o *options) {
		b := make([][]byte, len(keys))
		for i, k := range keys {
			b[i] = []byte(k)
		}
		o.tagFilter = b
	}
}

// WithWorkers sets the number of decode workers. It defaults to
// DefaultNCpu. Values below 1 are treated as 1.
func WithWorkers(n int) ReaderOption {
	return func(o *options) {
		if n < 1 {
			n = 1
		}
		o.workers = n
	}
}

// WithMaxCompressedBlob overrides the compressed-payload safety ceiling a
// single blob may declare, default 64 MiB.
func WithMaxCompressedBlob(n int64) ReaderOption {
	return func(o *options) { o.limits.MaxCompressed = n }
}

// WithMaxRawBlob overrides the declared-raw-size safety ceiling a single
// blob may carry, default 32 MiB.
func WithMaxRawBlob(n int64) ReaderOption {
	return func(o *options) { o.limits.MaxRaw = n }
}

// WithMaxHeaderSize overrides the BlobHeader length-prefix ceiling, default
// 64 KiB.
func WithMaxHeaderSize(n int) ReaderOption {
	return func(o *options) { o.limits.MaxHeaderSize = n }
}
