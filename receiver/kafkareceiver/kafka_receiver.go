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
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/Shopify/sarama"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"go.uber.org/atomic"
	"go.uber.org/zap"

	"github.com/hecbridge/hecbridge/model/record"
)

var (
	errNoTopics          = errors.New("at least one topic is required")
	errAlreadySubscribed = errors.New("source is already subscribed")
	errNotSubscribed     = errors.New("source is not subscribed")
)

// Source uses sarama to consume records from kafka and hands them out in
// small increments through Poll.
type Source struct {
	name              string
	consumerGroup     sarama.ConsumerGroup
	maxPollRecords    int
	cancelConsumeLoop context.CancelFunc
	consumeDone       chan struct{}

	// messages is filled by the claim goroutines and drained by Poll.
	messages chan *sarama.ConsumerMessage

	failOnce sync.Once
	failed   chan struct{}
	err      error

	subscribed *atomic.Bool
	closed     *atomic.Bool

	logger *zap.Logger
}

func newSource(config Config, logger *zap.Logger) (*Source, error) {
	c := sarama.NewConfig()
	c.ClientID = config.ClientID
	c.Metadata.Full = config.Metadata.Full
	c.Metadata.Retry.Max = config.Metadata.Retry.Max
	c.Metadata.Retry.Backoff = config.Metadata.Retry.Backoff
	c.Consumer.Offsets.Initial = sarama.OffsetOldest
	if config.InitialOffset == offsetLatest {
		c.Consumer.Offsets.Initial = sarama.OffsetNewest
	}
	if config.MaxPollInterval > 0 {
		c.Consumer.Group.Rebalance.Timeout = config.MaxPollInterval
	}
	if config.SessionTimeout > 0 {
		c.Consumer.Group.Session.Timeout = config.SessionTimeout
	}
	if config.MaxPollRecords > 0 {
		c.ChannelBufferSize = config.MaxPollRecords
	}
	if config.ProtocolVersion != "" {
		version, err := sarama.ParseKafkaVersion(config.ProtocolVersion)
		if err != nil {
			return nil, err
		}
		c.Version = version
	}
	if err := ConfigureAuthentication(config.Authentication, c); err != nil {
		return nil, err
	}
	client, err := sarama.NewConsumerGroup(config.Brokers, config.GroupID, c)
	if err != nil {
		return nil, err
	}
	return newSourceWithGroup(client, config, logger), nil
}

func newSourceWithGroup(group sarama.ConsumerGroup, config Config, logger *zap.Logger) *Source {
	maxPollRecords := config.MaxPollRecords
	if maxPollRecords <= 0 {
		maxPollRecords = defaultMaxPollRecords
	}
	return &Source{
		name:           typeStr,
		consumerGroup:  group,
		maxPollRecords: maxPollRecords,
		messages:       make(chan *sarama.ConsumerMessage, maxPollRecords),
		failed:         make(chan struct{}),
		subscribed:     atomic.NewBool(false),
		closed:         atomic.NewBool(false),
		logger:         logger,
	}
}

// Subscribe starts consuming the given topics in the background. It may only
// be called once.
func (s *Source) Subscribe(topics ...string) error {
	if len(topics) == 0 {
		return errNoTopics
	}
	if !s.subscribed.CAS(false, true) {
		return errAlreadySubscribed
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.cancelConsumeLoop = cancel
	s.consumeDone = make(chan struct{})
	handler := &consumerGroupHandler{
		name:     s.name,
		logger:   s.logger,
		messages: s.messages,
		ready:    make(chan bool),
	}
	go func() {
		defer close(s.consumeDone)
		_ = s.consumeLoop(ctx, topics, handler)
	}()
	s.logger.Info("Subscribed to topics", zap.Strings("topics", topics))
	return nil
}

func (s *Source) consumeLoop(ctx context.Context, topics []string, handler sarama.ConsumerGroupHandler) error {
	for {
		// `Consume` should be called inside an infinite loop, when a
		// server-side rebalance happens, the consumer session will need to be
		// recreated to get the new claims
		err := s.consumerGroup.Consume(ctx, topics, handler)
		// check if context was cancelled, signaling that the consumer should stop
		if ctx.Err() != nil {
			s.logger.Info("Consumer stopped", zap.Error(ctx.Err()))
			return ctx.Err()
		}
		if err != nil {
			s.logger.Error("Error from consumer", zap.Error(err))
			s.fail(fmt.Errorf("kafka consumer group: %w", err))
			return err
		}
	}
}

// fail records the first consumer error; every later Poll returns it.
func (s *Source) fail(err error) {
	s.failOnce.Do(func() {
		s.err = err
		close(s.failed)
	})
}

// Poll waits up to timeout for records. Once a first record is available it
// returns it together with whatever else is already buffered, up to the
// configured maximum. An empty result with a nil error means the timeout
// elapsed. Consumer group failures are returned as errors and are permanent.
func (s *Source) Poll(ctx context.Context, timeout time.Duration) ([]record.Raw, error) {
	if !s.subscribed.Load() {
		return nil, errNotSubscribed
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var records []record.Raw
	select {
	case msg := <-s.messages:
		records = append(records, toRecord(msg))
	case <-s.failed:
		return nil, s.err
	case <-timer.C:
		return nil, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	for len(records) < s.maxPollRecords {
		select {
		case msg := <-s.messages:
			records = append(records, toRecord(msg))
		default:
			return records, nil
		}
	}
	return records, nil
}

// Close stops the consume loop and leaves the consumer group.
func (s *Source) Close() error {
	if !s.closed.CAS(false, true) {
		return nil
	}
	if s.cancelConsumeLoop != nil {
		s.cancelConsumeLoop()
	}
	err := s.consumerGroup.Close()
	if s.consumeDone != nil {
		<-s.consumeDone
	}
	return err
}

func toRecord(msg *sarama.ConsumerMessage) record.Raw {
	rec := record.Raw{
		Key:       string(msg.Key),
		Value:     string(msg.Value),
		Topic:     msg.Topic,
		Partition: msg.Partition,
		Offset:    msg.Offset,
		Timestamp: msg.Timestamp,
	}
	if len(msg.Headers) > 0 {
		rec.Headers = make(map[string]string, len(msg.Headers))
		for _, h := range msg.Headers {
			if h == nil {
				continue
			}
			rec.Headers[string(h.Key)] = string(h.Value)
		}
	}
	return rec
}

type consumerGroupHandler struct {
	name        string
	messages    chan<- *sarama.ConsumerMessage
	ready       chan bool
	readyCloser sync.Once

	logger *zap.Logger
}

var _ sarama.ConsumerGroupHandler = (*consumerGroupHandler)(nil)

func (c *consumerGroupHandler) Setup(session sarama.ConsumerGroupSession) error {
	c.readyCloser.Do(func() {
		close(c.ready)
	})
	statsTags := []tag.Mutator{tag.Insert(tagInstanceName, c.name)}
	_ = stats.RecordWithTags(session.Context(), statsTags, statPartitionStart.M(1))
	return nil
}

func (c *consumerGroupHandler) Cleanup(session sarama.ConsumerGroupSession) error {
	statsTags := []tag.Mutator{tag.Insert(tagInstanceName, c.name)}
	_ = stats.RecordWithTags(session.Context(), statsTags, statPartitionClose.M(1))
	return nil
}

func (c *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	c.logger.Info("Starting consumer group", zap.Int32("partition", claim.Partition()))
	for message := range claim.Messages() {
		c.logger.Debug("Kafka message claimed",
			zap.String("value", string(message.Value)),
			zap.Time("timestamp", message.Timestamp),
			zap.String("topic", message.Topic))

		statsTags := []tag.Mutator{tag.Insert(tagInstanceName, c.name)}
		_ = stats.RecordWithTags(session.Context(), statsTags,
			statMessageCount.M(1),
			statMessageOffset.M(message.Offset),
			statMessageOffsetLag.M(claim.HighWaterMarkOffset()-message.Offset-1))

		select {
		case c.messages <- message:
			// Handed to the poller; the offset is committed with the next auto-commit.
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
	return nil
}
