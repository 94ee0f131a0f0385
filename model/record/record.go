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

// Package record holds the data flowing through the bridge: raw records read
// from the stream and the encoded payloads that are batched and exported.
package record

import (
	"strings"
	"time"
)

// Raw is one key/value record read from the stream. It is only valid for the
// poll cycle that produced it.
type Raw struct {
	Key   string
	Value string

	Topic     string
	Partition int32
	Offset    int64
	Timestamp time.Time
	Headers   map[string]string
}

// Payload is a single encoded event object, e.g. {"event": "hello"}.
type Payload string

// Size returns the number of bytes the payload occupies in an export body.
func (p Payload) Size() int {
	return len(p)
}

// JoinArray renders payloads as one JSON array: the payloads joined with
// commas and wrapped in brackets, preserving order.
func JoinArray(payloads []Payload) string {
	size := 2
	for _, p := range payloads {
		size += p.Size() + 1
	}
	var sb strings.Builder
	sb.Grow(size)
	sb.WriteByte('[')
	for i, p := range payloads {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(string(p))
	}
	sb.WriteByte(']')
	return sb.String()
}
