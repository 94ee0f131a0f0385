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

package exprfilterprocessor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hecbridge/hecbridge/model/record"
)

func TestMatchRecord(t *testing.T) {
	rec := record.Raw{
		Key:       "user-1",
		Value:     `{"method":"kafka.Authentication"}`,
		Topic:     "confluent-audit-log-events",
		Partition: 2,
		Offset:    42,
		Headers:   map[string]string{"type": "io.confluent.kafka.server/authentication"},
	}
	testcases := []struct {
		name     string
		query    string
		expected bool
	}{
		{
			name:     "empty_query",
			query:    "",
			expected: true,
		},
		{
			name:     "topic_equal",
			query:    `Topic == "confluent-audit-log-events"`,
			expected: true,
		},
		{
			name:     "value_contains",
			query:    `Value contains "Authentication"`,
			expected: true,
		},
		{
			name:     "key_prefix_false",
			query:    `Key startsWith "svc-"`,
			expected: false,
		},
		{
			name:     "partition_and_offset",
			query:    `Partition == 2 && Offset > 40`,
			expected: true,
		},
		{
			name:     "has_header_true",
			query:    `HasHeader("type")`,
			expected: true,
		},
		{
			name:     "has_header_false",
			query:    `HasHeader("missing")`,
			expected: false,
		},
		{
			name:     "header_value",
			query:    `Header("type") endsWith "/authentication"`,
			expected: true,
		},
		{
			name:     "headers_index",
			query:    `Headers["type"] != ""`,
			expected: true,
		},
	}
	for _, tc := range testcases {
		t.Run(tc.name, func(t *testing.T) {
			m, err := NewMatcher(tc.query)
			require.NoError(t, err)
			matched, err := m.MatchRecord(rec)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, matched)
		})
	}
}

func TestMatchRecord_noHeaders(t *testing.T) {
	m, err := NewMatcher(`!HasHeader("type") && Header("type") == ""`)
	require.NoError(t, err)
	matched, err := m.MatchRecord(record.Raw{Value: "x"})
	require.NoError(t, err)
	assert.True(t, matched)
}

func TestNewMatcher_invalid(t *testing.T) {
	for _, query := range []string{
		`Topic ==`,
		`Offset + 1`,
		`Unknown == "x"`,
	} {
		t.Run(query, func(t *testing.T) {
			m, err := NewMatcher(query)
			assert.Error(t, err)
			assert.Nil(t, m)
		})
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := &Config{}
	assert.NoError(t, cfg.Validate())
	cfg.Query = `Value contains "x"`
	assert.NoError(t, cfg.Validate())
	cfg.Query = `Value contains`
	assert.Error(t, cfg.Validate())
}
