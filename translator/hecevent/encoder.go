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

// Package hecevent translates raw stream records into HTTP Event Collector
// event objects.
package hecevent

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/hecbridge/hecbridge/model/record"
)

const (
	// RawFormat wraps the record value as a JSON string.
	RawFormat = "raw"
	// JSONFormat embeds the record value, which must be a JSON document, as is.
	JSONFormat = "json"
)

var (
	errUnrecognizedEncoding = errors.New("unrecognized encoding")
	errInvalidJSONValue     = errors.New("record value is not valid JSON")
)

// Config defines how records are turned into event objects.
type Config struct {
	// Format is one of "raw" or "json".
	Format string `mapstructure:"format"`
	// UseRecordTime adds the record timestamp as the event "time" field.
	UseRecordTime bool `mapstructure:"use_record_time"`

	Host       string `mapstructure:"host"`
	Source     string `mapstructure:"source"`
	SourceType string `mapstructure:"sourcetype"`
	Index      string `mapstructure:"index"`
}

// Validate checks the format is known.
func (cfg *Config) Validate() error {
	switch cfg.Format {
	case "", RawFormat, JSONFormat:
		return nil
	}
	return fmt.Errorf("%w: %q", errUnrecognizedEncoding, cfg.Format)
}

// Encoder encodes a single record into a payload.
type Encoder interface {
	Encode(rec record.Raw) (record.Payload, error)

	// Format is the name of the encoding.
	Format() string
}

type field struct {
	key   string
	value []byte
}

type eventEncoder struct {
	format        string
	useRecordTime bool
	// fields are appended after "event" in a fixed order.
	fields []field
	event  func(value string) ([]byte, error)
}

var _ Encoder = (*eventEncoder)(nil)

// NewEncoder returns the Encoder for cfg.Format.
func NewEncoder(cfg Config) (Encoder, error) {
	e := &eventEncoder{
		format:        cfg.Format,
		useRecordTime: cfg.UseRecordTime,
	}
	switch cfg.Format {
	case "", RawFormat:
		e.format = RawFormat
		e.event = quoteString
	case JSONFormat:
		e.event = compactJSON
	default:
		return nil, errUnrecognizedEncoding
	}

	for _, f := range []struct{ key, value string }{
		{"host", cfg.Host},
		{"source", cfg.Source},
		{"sourcetype", cfg.SourceType},
		{"index", cfg.Index},
	} {
		if f.value == "" {
			continue
		}
		v, err := quoteString(f.value)
		if err != nil {
			return nil, err
		}
		e.fields = append(e.fields, field{key: f.key, value: v})
	}
	return e, nil
}

func (e *eventEncoder) Format() string {
	return e.format
}

func (e *eventEncoder) Encode(rec record.Raw) (record.Payload, error) {
	event, err := e.event(rec.Value)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.Grow(len(event) + 16)
	sb.WriteString(`{"event": `)
	sb.Write(event)
	if e.useRecordTime && !rec.Timestamp.IsZero() {
		sb.WriteString(`, "time": `)
		sb.WriteString(strconv.FormatFloat(float64(rec.Timestamp.UnixNano())/1e9, 'f', 3, 64))
	}
	for _, f := range e.fields {
		sb.WriteString(`, "`)
		sb.WriteString(f.key)
		sb.WriteString(`": `)
		sb.Write(f.value)
	}
	sb.WriteByte('}')
	return record.Payload(sb.String()), nil
}

// quoteString renders s as a JSON string literal. HTML characters are kept
// as they are so events read the same in the sink.
func quoteString(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func compactJSON(s string) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidJSONValue, err)
	}
	return buf.Bytes(), nil
}
