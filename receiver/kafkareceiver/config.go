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

package kafkareceiver

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
)

// Config defines configuration for the Kafka record source.
type Config struct {
	// The list of kafka brokers (default localhost:9092)
	Brokers []string `mapstructure:"brokers"`
	// Kafka protocol version
	ProtocolVersion string `mapstructure:"protocol_version"`
	// The name of the kafka topic to consume from
	Topic string `mapstructure:"topic"`
	// The consumer group that receiver will be consuming messages from
	GroupID string `mapstructure:"group_id"`
	// The consumer client ID that receiver will use
	ClientID string `mapstructure:"client_id"`
	// Where to start when the group has no committed offset: "earliest" or "latest".
	InitialOffset string `mapstructure:"initial_offset"`

	// PollTimeout bounds how long a single poll waits for the first record.
	PollTimeout time.Duration `mapstructure:"poll_timeout"`
	// MaxPollRecords is the maximum number of records returned by one poll.
	MaxPollRecords int `mapstructure:"max_poll_records"`
	// MaxPollInterval is the rebalance timeout of the consumer group.
	MaxPollInterval time.Duration `mapstructure:"max_poll_interval"`
	// SessionTimeout is the consumer group session timeout.
	SessionTimeout time.Duration `mapstructure:"session_timeout"`

	// Metadata is the namespace for metadata management properties used by the
	// Client, and shared by the Producer/Consumer.
	Metadata Metadata `mapstructure:"metadata"`

	Authentication Authentication `mapstructure:"auth"`
}

// Metadata defines configuration for retrieving metadata from the broker.
type Metadata struct {
	// Whether to maintain a full set of metadata for all topics, or just
	// the minimal set that has been necessary so far. The full set is simpler
	// and usually more convenient, but can take up a substantial amount of
	// memory if you have many topics and partitions. Defaults to true.
	Full bool `mapstructure:"full"`

	// Retry configuration for metadata.
	// This configuration is useful to avoid race conditions when broker
	// is starting at the same time as collector.
	Retry MetadataRetry `mapstructure:"retry"`
}

// MetadataRetry defines retry configuration for Metadata.
type MetadataRetry struct {
	// The total number of times to retry a metadata request when the
	// cluster is in the middle of a leader election or at startup (default 3).
	Max int `mapstructure:"max"`
	// How long to wait for leader election to occur before retrying
	// (default 250ms). Similar to the JVM's `retry.backoff.ms`.
	Backoff time.Duration `mapstructure:"backoff"`
}

var (
	errNoBrokers       = errors.New("at least one broker is required")
	errNoTopic         = errors.New("topic must be specified")
	errNoGroupID       = errors.New("group_id must be specified")
	errInvalidOffset   = errors.New(`initial_offset must be "earliest" or "latest"`)
	errInvalidPollSize = errors.New("max_poll_records must be positive")
	errInvalidPollWait = errors.New("poll_timeout must be positive")
)

// Validate checks the receiver configuration is usable.
func (cfg *Config) Validate() error {
	var errs error
	if len(cfg.Brokers) == 0 {
		errs = multierr.Append(errs, errNoBrokers)
	}
	if cfg.Topic == "" {
		errs = multierr.Append(errs, errNoTopic)
	}
	if cfg.GroupID == "" {
		errs = multierr.Append(errs, errNoGroupID)
	}
	switch cfg.InitialOffset {
	case offsetEarliest, offsetLatest:
	default:
		errs = multierr.Append(errs, fmt.Errorf("%w, got %q", errInvalidOffset, cfg.InitialOffset))
	}
	if cfg.MaxPollRecords <= 0 {
		errs = multierr.Append(errs, errInvalidPollSize)
	}
	if cfg.PollTimeout <= 0 {
		errs = multierr.Append(errs, errInvalidPollWait)
	}
	return errs
}
