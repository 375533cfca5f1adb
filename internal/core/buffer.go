// Copyright 2017-24 the original author or authors.
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

package core

import (
	"bytes"
	"sync"
)

var bufferPool = sync.Pool{
	New: func() any {
		return bytes.NewBuffer(make([]byte, 0, 1024))
	},
}

// PooledBuffer is a bytes.Buffer borrowed from a shared pool and returned
// via Close. The framing scratch buffer is borrowed once per iteration and
// returned at its end; inflate destinations are not returned, because a
// decoded Block's string table borrows from them.
type PooledBuffer struct {
	*bytes.Buffer
}

func NewPooledBuffer() *PooledBuffer {
	return &PooledBuffer{Buffer: bufferPool.Get().(*bytes.Buffer)}
}

// EnsureCap grows the buffer's capacity to at least n bytes without
// disturbing its current contents, so a single Grow covers an inflate
// destination sized from a blob's declared raw_size.
func (b *PooledBuffer) EnsureCap(n int) {
	if n > b.Cap() {
		b.Grow(n - b.Len())
	}
}

func (b *PooledBuffer) Close() error {
	b.Reset()
	bufferPool.Put(b.Buffer)
	return nil
}