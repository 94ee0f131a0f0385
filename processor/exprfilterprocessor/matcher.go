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

// Package exprfilterprocessor drops records that do not satisfy a boolean
// expression before they are encoded.
package exprfilterprocessor

import (
	"github.com/antonmedv/expr"
	"github.com/antonmedv/expr/vm"

	"github.com/hecbridge/hecbridge/model/record"
)

// Config defines configuration for the record filter.
type Config struct {
	// Query is an expr boolean expression evaluated against every record.
	// Records for which it is false are dropped. Empty keeps everything.
	//
	// Available names: Key, Value, Topic, Partition, Offset, Headers,
	// HasHeader(name) and Header(name).
	Query string `mapstructure:"query"`
}

// Validate compiles the query.
func (cfg *Config) Validate() error {
	_, err := NewMatcher(cfg.Query)
	return err
}

// Matcher evaluates a compiled query. It is not safe for concurrent use.
type Matcher struct {
	program *vm.Program
	v       vm.VM
}

type env struct {
	Key       string
	Value     string
	Topic     string
	Partition int32
	Offset    int64
	Headers   map[string]string
	HasHeader func(key string) bool
	Header    func(key string) string
}

// NewMatcher compiles expression. An empty expression returns a nil Matcher,
// which matches every record.
func NewMatcher(expression string) (*Matcher, error) {
	if expression == "" {
		return nil, nil
	}
	program, err := expr.Compile(expression, expr.Env(env{}), expr.AsBool())
	if err != nil {
		return nil, err
	}
	return &Matcher{program: program, v: vm.VM{}}, nil
}

// MatchRecord reports whether rec should be kept.
func (m *Matcher) MatchRecord(rec record.Raw) (bool, error) {
	if m == nil {
		return true, nil
	}
	return m.match(createEnv(rec))
}

func createEnv(rec record.Raw) env {
	return env{
		Key:       rec.Key,
		Value:     rec.Value,
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Headers:   rec.Headers,
		HasHeader: func(key string) bool {
			_, ok := rec.Headers[key]
			return ok
		},
		Header: func(key string) string {
			return rec.Headers[key]
		},
	}
}

func (m *Matcher) match(env env) (bool, error) {
	result, err := m.v.Run(m.program, env)
	if err != nil {
		return false, err
	}
	return result.(bool), nil
}
