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
	"sync"
	"testing"
	"time"

	"github.com/Shopify/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opencensus.io/stats/view"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func newTestSource(group sarama.ConsumerGroup, logger *zap.Logger) *Source {
	cfg := CreateDefaultConfig()
	cfg.MaxPollRecords = 3
	return newSourceWithGroup(group, cfg, logger)
}

func TestSourceSubscribe(t *testing.T) {
	s := newTestSource(&testConsumerGroup{}, zap.NewNop())

	assert.ErrorIs(t, s.Subscribe(), errNoTopics)
	require.NoError(t, s.Subscribe(testTopic))
	assert.ErrorIs(t, s.Subscribe(testTopic), errAlreadySubscribed)
	require.NoError(t, s.Close())
	// Closing twice is a no-op.
	require.NoError(t, s.Close())
}

func TestSourcePoll_notSubscribed(t *testing.T) {
	s := newTestSource(&testConsumerGroup{}, zap.NewNop())
	records, err := s.Poll(context.Background(), time.Millisecond)
	assert.ErrorIs(t, err, errNotSubscribed)
	assert.Empty(t, records)
}

func TestSourcePoll_timeout(t *testing.T) {
	s := newTestSource(&testConsumerGroup{}, zap.NewNop())
	require.NoError(t, s.Subscribe(testTopic))
	defer func() { require.NoError(t, s.Close()) }()

	start := time.Now()
	records, err := s.Poll(context.Background(), 20*time.Millisecond)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.GreaterOrEqual(t, int64(time.Since(start)), int64(20*time.Millisecond))
}

func TestSourcePoll_contextCanceled(t *testing.T) {
	s := newTestSource(&testConsumerGroup{}, zap.NewNop())
	require.NoError(t, s.Subscribe(testTopic))
	defer func() { require.NoError(t, s.Close()) }()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.Poll(ctx, time.Second)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSourcePoll_batchesUpToMax(t *testing.T) {
	s := newTestSource(&testConsumerGroup{}, zap.NewNop())
	s.maxPollRecords = 2
	require.NoError(t, s.Subscribe(testTopic))
	defer func() { require.NoError(t, s.Close()) }()

	for i, v := range []string{"a", "b", "c"} {
		s.messages <- &sarama.ConsumerMessage{
			Topic:   testTopic,
			Key:     []byte("k"),
			Value:   []byte(v),
			Offset:  int64(i),
			Headers: []*sarama.RecordHeader{{Key: []byte("h"), Value: []byte("v")}},
		}
	}

	records, err := s.Poll(context.Background(), time.Second)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Value)
	assert.Equal(t, "k", records[0].Key)
	assert.Equal(t, testTopic, records[0].Topic)
	assert.Equal(t, map[string]string{"h": "v"}, records[0].Headers)
	assert.Equal(t, "b", records[1].Value)

	records, err = s.Poll(context.Background(), time.Second)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "c", records[0].Value)
	assert.Equal(t, int64(2), records[0].Offset)
}

func TestToRecord(t *testing.T) {
	ts := time.Unix(1600000000, 0)
	rec := toRecord(&sarama.ConsumerMessage{
		Topic:     testTopic,
		Partition: testPartition,
		Offset:    testInitialOffset,
		Timestamp: ts,
		Value:     []byte("v"),
		Headers:   []*sarama.RecordHeader{nil, {Key: []byte("a"), Value: []byte("1")}},
	})
	assert.Equal(t, "", rec.Key)
	assert.Equal(t, "v", rec.Value)
	assert.Equal(t, int32(testPartition), rec.Partition)
	assert.Equal(t, int64(testInitialOffset), rec.Offset)
	assert.Equal(t, ts, rec.Timestamp)
	assert.Equal(t, map[string]string{"a": "1"}, rec.Headers)

	assert.Nil(t, toRecord(&sarama.ConsumerMessage{Value: []byte("x")}).Headers)
}

func TestSource_consumerErrorIsFatal(t *testing.T) {
	zcore, logObserver := observer.New(zapcore.ErrorLevel)
	logger := zap.New(zcore)

	expectedErr := errors.New("handler error")
	s := newTestSource(&testConsumerGroup{err: expectedErr}, logger)
	require.NoError(t, s.Subscribe(testTopic))
	defer func() { require.NoError(t, s.Close()) }()

	assert.Eventually(t, func() bool {
		return logObserver.FilterField(zap.Error(expectedErr)).Len() > 0
	}, 10*time.Second, time.Millisecond*100)

	_, err := s.Poll(context.Background(), time.Second)
	assert.ErrorIs(t, err, expectedErr)
	// The failure is sticky.
	_, err = s.Poll(context.Background(), time.Millisecond)
	assert.ErrorIs(t, err, expectedErr)
}

func TestSourceConsumeLoop_canceled(t *testing.T) {
	s := newTestSource(&testConsumerGroup{}, zap.NewNop())
	ctx, cancelFunc := context.WithCancel(context.Background())
	cancelFunc()
	err := s.consumeLoop(ctx, []string{testTopic}, &consumerGroupHandler{
		ready: make(chan bool),
	})
	assert.EqualError(t, err, context.Canceled.Error())
}

func TestConsumerGroupHandler(t *testing.T) {
	views := MetricViews()
	require.NoError(t, view.Register(views...))
	defer view.Unregister(views...)

	messages := make(chan *sarama.ConsumerMessage, 1)
	c := consumerGroupHandler{
		name:     typeStr,
		logger:   zap.NewNop(),
		ready:    make(chan bool),
		messages: messages,
	}

	testSession := &testConsumerGroupSession{}
	require.NoError(t, c.Setup(testSession))
	_, ok := <-c.ready
	assert.False(t, ok)
	viewData, err := view.RetrieveData(statPartitionStart.Name())
	require.NoError(t, err)
	assert.Equal(t, 1, len(viewData))
	distData := viewData[0].Data.(*view.SumData)
	assert.Equal(t, float64(1), distData.Value)

	require.NoError(t, c.Cleanup(testSession))
	viewData, err = view.RetrieveData(statPartitionClose.Name())
	require.NoError(t, err)
	assert.Equal(t, 1, len(viewData))
	distData = viewData[0].Data.(*view.SumData)
	assert.Equal(t, float64(1), distData.Value)

	groupClaim := testConsumerGroupClaim{
		messageChan: make(chan *sarama.ConsumerMessage),
	}

	wg := sync.WaitGroup{}
	wg.Add(1)
	go func() {
		assert.NoError(t, c.ConsumeClaim(testSession, groupClaim))
		wg.Done()
	}()

	msg := &sarama.ConsumerMessage{Value: []byte("hello"), Offset: 5}
	groupClaim.messageChan <- msg
	close(groupClaim.messageChan)
	wg.Wait()

	assert.Same(t, msg, <-messages)
	assert.Equal(t, []int64{5}, testSession.marked())

	viewData, err = view.RetrieveData(statMessageCount.Name())
	require.NoError(t, err)
	require.Equal(t, 1, len(viewData))
	assert.Equal(t, float64(1), viewData[0].Data.(*view.SumData).Value)
}

func TestConsumerGroupHandler_sessionDone(t *testing.T) {
	c := consumerGroupHandler{
		name:     typeStr,
		logger:   zap.NewNop(),
		ready:    make(chan bool),
		messages: make(chan *sarama.ConsumerMessage),
	}
	ctx, cancel := context.WithCancel(context.Background())
	testSession := &testConsumerGroupSession{ctx: ctx}
	groupClaim := testConsumerGroupClaim{
		messageChan: make(chan *sarama.ConsumerMessage, 1),
	}
	groupClaim.messageChan <- &sarama.ConsumerMessage{Value: []byte("never polled")}
	cancel()

	// Nobody polls: the handler must give up once the session ends.
	require.NoError(t, c.ConsumeClaim(testSession, groupClaim))
	assert.Empty(t, testSession.marked())
}

type testConsumerGroupClaim struct {
	messageChan chan *sarama.ConsumerMessage
}

var _ sarama.ConsumerGroupClaim = (*testConsumerGroupClaim)(nil)

const (
	testTopic               = "confluent-audit-log-events"
	testPartition           = 5
	testInitialOffset       = 6
	testHighWatermarkOffset = 4
)

func (t testConsumerGroupClaim) Topic() string {
	return testTopic
}

func (t testConsumerGroupClaim) Partition() int32 {
	return testPartition
}

func (t testConsumerGroupClaim) InitialOffset() int64 {
	return testInitialOffset
}

func (t testConsumerGroupClaim) HighWaterMarkOffset() int64 {
	return testHighWatermarkOffset
}

func (t testConsumerGroupClaim) Messages() <-chan *sarama.ConsumerMessage {
	return t.messageChan
}

type testConsumerGroupSession struct {
	ctx     context.Context
	mu      sync.Mutex
	offsets []int64
}

func (t *testConsumerGroupSession) Commit() {
	panic("implement me")
}

var _ sarama.ConsumerGroupSession = (*testConsumerGroupSession)(nil)

func (t *testConsumerGroupSession) Claims() map[string][]int32 {
	panic("implement me")
}

func (t *testConsumerGroupSession) MemberID() string {
	panic("implement me")
}

func (t *testConsumerGroupSession) GenerationID() int32 {
	panic("implement me")
}

func (t *testConsumerGroupSession) MarkOffset(string, int32, int64, string) {
	panic("implement me")
}

func (t *testConsumerGroupSession) ResetOffset(string, int32, int64, string) {
	panic("implement me")
}

func (t *testConsumerGroupSession) MarkMessage(msg *sarama.ConsumerMessage, _ string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.offsets = append(t.offsets, msg.Offset)
}

func (t *testConsumerGroupSession) marked() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int64(nil), t.offsets...)
}

func (t *testConsumerGroupSession) Context() context.Context {
	if t.ctx != nil {
		return t.ctx
	}
	return context.Background()
}

type testConsumerGroup struct {
	once sync.Once
	err  error
}

var _ sarama.ConsumerGroup = (*testConsumerGroup)(nil)

func (t *testConsumerGroup) Consume(ctx context.Context, _ []string, handler sarama.ConsumerGroupHandler) error {
	t.once.Do(func() {
		_ = handler.Setup(&testConsumerGroupSession{})
	})
	if t.err != nil {
		return t.err
	}
	// Behave like a live session: block until the context ends.
	<-ctx.Done()
	return nil
}

func (t *testConsumerGroup) Errors() <-chan error {
	panic("implement me")
}

func (t *testConsumerGroup) Close() error {
	return nil
}
