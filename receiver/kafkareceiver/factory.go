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
	"time"

	"go.uber.org/zap"
)

const (
	typeStr         = "kafka"
	defaultTopic    = "confluent-audit-log-events"
	defaultBroker   = "localhost:9092"
	defaultClientID = "hecbridge"
	defaultGroupID  = "confluent-kafka-splunk-exporter"
	// consumer groups need at least 0.10.2
	defaultProtocolVersion = "2.0.0"

	offsetEarliest = "earliest"
	offsetLatest   = "latest"

	defaultPollTimeout     = 100 * time.Millisecond
	defaultMaxPollRecords  = 100
	defaultMaxPollInterval = 30 * time.Second

	// default from sarama.NewConfig()
	defaultMetadataRetryMax = 3
	// default from sarama.NewConfig()
	defaultMetadataRetryBackoff = time.Millisecond * 250
	// default from sarama.NewConfig()
	defaultMetadataFull = true
)

// CreateDefaultConfig returns the receiver configuration used when nothing is overridden.
func CreateDefaultConfig() Config {
	return Config{
		Brokers:         []string{defaultBroker},
		ProtocolVersion: defaultProtocolVersion,
		Topic:           defaultTopic,
		GroupID:         defaultGroupID,
		ClientID:        defaultClientID,
		InitialOffset:   offsetEarliest,
		PollTimeout:     defaultPollTimeout,
		MaxPollRecords:  defaultMaxPollRecords,
		MaxPollInterval: defaultMaxPollInterval,
		Metadata: Metadata{
			Full: defaultMetadataFull,
			Retry: MetadataRetry{
				Max:     defaultMetadataRetryMax,
				Backoff: defaultMetadataRetryBackoff,
			},
		},
	}
}

// NewSource creates a Source connected to the configured brokers. Records are
// only delivered once Subscribe has been called.
func NewSource(cfg Config, logger *zap.Logger) (*Source, error) {
	return newSource(cfg, logger)
}
