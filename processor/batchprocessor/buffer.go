// Copyright The hecbridge Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//       http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package batchprocessor

import (
	"sync"

	"github.com/hecbridge/hecbridge/model/record"
)

// Buffer is an ordered, mutex-guarded list of encoded payloads shared by the
// ingestion goroutine and the flush goroutine.
type Buffer struct {
	mu       sync.Mutex
	payloads []record.Payload
}

// NewBuffer returns an empty Buffer.
func NewBuffer() *Buffer {
	return &Buffer{}
}

// Append adds p to the end of the buffer.
func (b *Buffer) Append(p record.Payload) {
	b.mu.Lock()
	b.payloads = append(b.payloads, p)
	b.mu.Unlock()
}

// DrainAll removes and returns every buffered payload in insertion order.
// It returns nil when the buffer is empty.
func (b *Buffer) DrainAll() []record.Payload {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.payloads) == 0 {
		return nil
	}
	drained := b.payloads
	b.payloads = nil
	return drained
}

// Len returns the number of buffered payloads.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.payloads)
}
