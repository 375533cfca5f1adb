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

	"golang.org/x/sync/errgroup"

	"github.com/go-osmpbf/corepbf/internal/blobio"
	"github.com/go-osmpbf/corepbf/internal/columnar"
	"github.com/go-osmpbf/corepbf/internal/core"
)

// decodeJob is one primitive block's decompressed bytes handed from the
// framing/inflate producer to a decode worker. A non-nil err means framing
// or inflate failed on this blob; the job carries the error through the
// same round-robin slot so the coalescer observes it at the right position
// in file order, rather than losing it to errgroup's side channel.
type decodeJob struct {
	buf []byte
	err error
}

// blockResult is one worker's decode of a single primitive block.
type blockResult struct {
	blocks []*columnar.Block
	err    error
}

// Blocks returns a pull iterator over this Reader's OSMData blobs in file
// order. A single producer performs framing and inflate; a pool of
// r.opts.workers goroutines performs element decode. Jobs are dispatched to
// and results collected from the workers round-robin, so file order is
// preserved even though decode itself runs in parallel.
//
// A per-block decode failure, or a framing/inflate failure, is delivered to
// the consumer as the iterator's final item; no further blocks follow it.
// Dropping the iterator (stopping range early, or cancelling ctx) cancels
// all in-flight decode work; the underlying goroutines are joined before
// Blocks returns control past the final yield.
func (r *Reader) Blocks(ctx context.Context) func(yield func(*Block, error) bool) {
	r.armStart()

	return func(yield func(*Block, error) bool) {
		workers := r.opts.workers
		depth := 2 * workers

		gctx, cancel := context.WithCancel(ctx)
		defer cancel()
		g, gctx := errgroup.WithContext(gctx)

		inputs := make([]chan decodeJob, workers)
		outputs := make([]chan blockResult, workers)
		for i := range inputs {
			inputs[i] = make(chan decodeJob, depth)
			outputs[i] = make(chan blockResult, depth)
		}

		filter := r.opts.elementFilter
		keys := r.filterKeys()

		g.Go(func() error {
			defer func() {
				for _, in := range inputs {
					close(in)
				}
			}()

			scratch := core.NewPooledBuffer()
			defer scratch.Close()

			var i int
			for {
				select {
				case <-gctx.Done():
					return nil
				default:
				}

				blob, err := r.nextDataBlob(scratch)
				if err != nil {
					if err == io.EOF {
						return nil
					}
					select {
					case inputs[i] <- decodeJob{err: err}:
					case <-gctx.Done():
					}
					return nil
				}

				// A decoded Block's string table borrows directly from this
				// buffer, so it must outlive the block, not just this
				// iteration: no pooling across blobs here, only within.
				raw, err := blobio.Inflate(blob, core.NewPooledBuffer())
				if err != nil {
					select {
					case inputs[i] <- decodeJob{err: err}:
					case <-gctx.Done():
					}
					return nil
				}

				select {
				case inputs[i] <- decodeJob{buf: raw}:
				case <-gctx.Done():
					return nil
				}
				i = (i + 1) % workers
			}
		})

		for w := 0; w < workers; w++ {
			w := w
			g.Go(func() error {
				defer close(outputs[w])
				for job := range inputs[w] {
					if job.err != nil {
						outputs[w] <- blockResult{err: job.err}
						return nil
					}
					blocks, err := columnar.DecodePrimitiveBlock(job.buf, filter, keys)
					select {
					case outputs[w] <- blockResult{blocks: blocks, err: err}:
					case <-gctx.Done():
						return nil
					}
					if err != nil {
						return nil
					}
				}
				return nil
			})
		}

		stopped := false
		var w int
	Coalesce:
		for {
			res, ok := <-outputs[w]
			if !ok {
				break Coalesce
			}
			w = (w + 1) % workers

			if res.err != nil {
				slog.Error("block pipeline aborting", "error", res.err)
				yield(nil, res.err)
				stopped = true
				break Coalesce
			}
			for _, blk := range res.blocks {
				if !yield(blk, nil) {
					stopped = true
					break Coalesce
				}
			}
		}

		cancel()
		if stopped {
			// Drain every remaining output channel so workers blocked on a
			// send observe gctx.Done() and exit; g.Wait then joins cleanly.
			for _, out := range outputs {
				for range out {
				}
			}
		}

		_ = g.Wait()
	}
}
