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
	"context"
	"io"
	"log/slog"

	"github.com/destel/rill"

	"github.com/go-osmpbf/corepbf/internal/blobio"
	"github.com/go-osmpbf/corepbf/internal/columnar"
	"github.com/go-osmpbf/corepbf/internal/core"
)

// ParBlocks returns a pull iterator over this Reader's OSMData blobs with no
// order guarantee: framing+inflate and element decode are both parallelized
// across independent blobs, so whichever blob finishes first is yielded
// first. Use Blocks instead when file order matters.
//
// As with Blocks, a failure is delivered as the iterator's final item and
// dropping the iterator joins every worker before returning.
func (r *Reader) ParBlocks(ctx context.Context) func(yield func(*Block, error) bool) {
	r.armStart()

	return func(yield func(*Block, error) bool) {
		workers := r.opts.workers
		depth := 2 * workers

		gctx, cancel := context.WithCancel(ctx)
		defer cancel()

		filter := r.opts.elementFilter
		keys := r.filterKeys()

		blobs := make(chan rill.Try[blobio.Blob], depth)
		go func() {
			defer close(blobs)

			scratch := core.NewPooledBuffer()
			defer scratch.Close()

			for {
				select {
				case <-gctx.Done():
					return
				default:
				}

				blob, err := r.nextDataBlob(scratch)
				if err != nil {
					if err != io.EOF {
						blobs <- rill.Wrap(blobio.Blob{}, err)
					}
					return
				}

				select {
				case blobs <- rill.Wrap(blob, nil):
				case <-gctx.Done():
					return
				}
			}
		}()

		results := rill.Map(blobs, workers, func(blob blobio.Blob) ([]*columnar.Block, error) {
			// Each blob gets its own buffer: the decoded Block's string
			// table borrows from it, and blobs are decoded concurrently so
			// there is no safe reuse point until the consumer is done with
			// every block from this buffer.
			raw, err := blobio.Inflate(blob, core.NewPooledBuffer())
			if err != nil {
				return nil, err
			}
			return columnar.DecodePrimitiveBlock(raw, filter, keys)
		})

		stopped := false
		for res := range results {
			if res.Error != nil {
				slog.Error("block pipeline aborting", "error", res.Error)
				yield(nil, res.Error)
				stopped = true
				break
			}
			ok := true
			for _, blk := range res.Value {
				if !yield(blk, nil) {
					ok = false
					break
				}
			}
			if !ok {
				stopped = true
				break
			}
		}

		cancel()
		if stopped {
			for range results {
			}
		}
	}
}
