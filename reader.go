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

// Package corepbf decodes OpenStreetMap PBF files into columnar element
// blocks. It frames and inflates the blob container, walks the embedded
// schema without allocating for fields the caller doesn't need, and
// projects tag columns through an optional filter so downstream code
// iterates flat arrays rather than per-element objects.
package corepbf

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/go-osmpbf/corepbf/internal/blobio"
	"github.com/go-osmpbf/corepbf/internal/core"
	"github.com/go-osmpbf/corepbf/internal/errs"
	"github.com/go-osmpbf/corepbf/internal/strtable"
	"github.com/go-osmpbf/corepbf/model"
)

// Reader decodes a single OpenStreetMap PBF stream. It is constructed once
// per stream with NewReader, which eagerly reads and parses the OSMHeader
// blob, then iterated with Blocks or ParBlocks.
//
// A Reader is shared by reference among the workers its iteration methods
// spawn; its configuration is write-once and must not be mutated
// concurrently with iteration (see SetElementFilter/SetTagFilter).
type Reader struct {
	r    io.Reader
	opts options

	header model.Header

	// pending holds a blob read while looking for the header that turned
	// out not to carry type "OSMHeader" (a header-less stream), so Blocks
	// and ParBlocks still see it as the first data blob.
	pending *blobio.Blob

	mu      sync.Mutex
	started bool

	keysOnce sync.Once
	keys     *strtable.Keys
}

// NewReader constructs a Reader over r, applies opts, and reads the
// stream's leading OSMHeader blob (if present). A required_features entry
// this decoder does not implement fails construction with
// UnsupportedFeature, before any data block is produced.
func NewReader(r io.Reader, opts ...ReaderOption) (*Reader, error) {
	cfg := defaultOptions
	for _, opt := range opts {
		opt(&cfg)
	}

	rdr := &Reader{r: r, opts: cfg}

	scratch := core.NewPooledBuffer()
	defer scratch.Close()

	blob, err := blobio.ReadNext(r, scratch, cfg.limits)
	if err != nil {
		if err == io.EOF {
			return rdr, nil // empty file: no header, no data
		}
		return nil, err
	}

	if blob.Type != "OSMHeader" {
		rdr.pending = &blob
		return rdr, nil
	}

	raw, err := blobio.Inflate(blob, core.NewPooledBuffer())
	if err != nil {
		return nil, err
	}

	hdr, err := parseHeaderBlock(raw)
	if err != nil {
		return nil, err
	}
	rdr.header = hdr

	return rdr, nil
}

// Header returns the parsed OSMHeader contents. It is the zero model.Header
// for a stream that carried no header blob.
func (r *Reader) Header() model.Header {
	return r.header
}

// SetElementFilter restricts decoding to the given element kinds. It fails
// with FilterAfterStart once Blocks or ParBlocks has been called, whether or
// not a block has been produced yet.
func (r *Reader) SetElementFilter(nodes, ways, relations bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("%w: element filter", errs.FilterAfterStart)
	}
	r.opts.elementFilter.Nodes = nodes
	r.opts.elementFilter.Ways = ways
	r.opts.elementFilter.Relations = relations
	return nil
}

// SetTagFilter restricts every decoded tag column to the given keys. It
// fails with FilterAfterStart if a block has already been produced by
// Blocks or ParBlocks.
func (r *Reader) SetTagFilter(keys ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.started {
		return fmt.Errorf("%w: tag filter", errs.FilterAfterStart)
	}
	b := make([][]byte, len(keys))
	for i, k := range keys {
		b[i] = []byte(k)
	}
	r.opts.tagFilter = b
	return nil
}

// armStart arms the write-once latch; it is idempotent across repeated
// calls from the same iteration method but any configuration mutation
// after the first call fails.
func (r *Reader) armStart() {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
}

// filterKeys lazily builds the filter-key index shared by every block this
// Reader decodes; nil when no tag filter is configured, meaning tag columns
// carry native string-table indices.
func (r *Reader) filterKeys() *strtable.Keys {
	r.keysOnce.Do(func() {
		if len(r.opts.tagFilter) == 0 {
			return
		}
		k := strtable.NewKeys(r.opts.tagFilter)
		r.keys = &k
	})
	return r.keys
}

// nextDataBlob returns the next OSMData blob (framed, not yet inflated),
// draining r.pending first if NewReader buffered one. It skips any further
// OSMHeader blobs a malformed or multi-segment stream might carry, logging
// at Debug since that is not itself a structural error.
func (r *Reader) nextDataBlob(scratch *core.PooledBuffer) (blobio.Blob, error) {
	if r.pending != nil {
		b := *r.pending
		r.pending = nil
		return b, nil
	}
	for {
		blob, err := blobio.ReadNext(r.r, scratch, r.opts.limits)
		if err != nil {
			return blobio.Blob{}, err
		}
		if blob.Type == "OSMHeader" {
			slog.Debug("skipping unexpected additional OSMHeader blob")
			continue
		}
		return blob, nil
	}
}
