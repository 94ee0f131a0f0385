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

// Package batchprocessor accumulates encoded payloads and hands them to an
// exporter in batches, on a fixed timer or when a size threshold is hit.
package batchprocessor

import (
	"context"
	"sync"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"go.uber.org/zap"

	"github.com/hecbridge/hecbridge/model/record"
)

const typeStr = "batch"

// Exporter sends one batch of payloads downstream.
type Exporter interface {
	Export(ctx context.Context, batch []record.Payload) error
}

// Processor owns the Buffer and the flush goroutine.
//
// Batches are sent out with any of the following conditions:
// - cfg.Timeout elapsed since the previous tick,
// - the buffer reaches cfg.SendBatchSize payloads,
// - Shutdown is called and cfg.FlushOnShutdown is set.
type Processor struct {
	timeout          time.Duration
	sendBatchSize    int
	sendBatchMaxSize int
	flushOnShutdown  bool

	buffer   *Buffer
	exporter Exporter

	sizeTrigger  chan struct{}
	shutdownC    chan struct{}
	shutdownOnce sync.Once
	goroutines   sync.WaitGroup

	exportCtx    context.Context
	cancelExport context.CancelFunc
	statsTags    []tag.Mutator
	logger       *zap.Logger
}

// NewProcessor creates a Processor that exports through exporter.
func NewProcessor(cfg Config, exporter Exporter, logger *zap.Logger) (*Processor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	exportCtx, cancel := context.WithCancel(context.Background())
	return &Processor{
		timeout:          cfg.Timeout,
		sendBatchSize:    int(cfg.SendBatchSize),
		sendBatchMaxSize: int(cfg.SendBatchMaxSize),
		flushOnShutdown:  cfg.FlushOnShutdown,
		buffer:           NewBuffer(),
		exporter:         exporter,
		sizeTrigger:      make(chan struct{}, 1),
		shutdownC:        make(chan struct{}),
		exportCtx:        exportCtx,
		cancelExport:     cancel,
		statsTags:        []tag.Mutator{tag.Insert(tagProcessorName, typeStr)},
		logger:           logger,
	}, nil
}

// Start launches the flush goroutine. The first timed flush happens one
// timeout after Start.
func (bp *Processor) Start(context.Context) error {
	bp.goroutines.Add(1)
	go bp.startProcessingCycle()
	return nil
}

// Shutdown stops the flush goroutine, exporting the remaining payloads first
// when configured to. If ctx ends before that completes, the in-flight export
// is cancelled and ctx.Err() is returned.
func (bp *Processor) Shutdown(ctx context.Context) error {
	bp.shutdownOnce.Do(func() {
		close(bp.shutdownC)
	})

	done := make(chan struct{})
	go func() {
		bp.goroutines.Wait()
		close(done)
	}()
	select {
	case <-done:
		bp.cancelExport()
		return nil
	case <-ctx.Done():
		bp.cancelExport()
		<-done
		return ctx.Err()
	}
}

// ConsumePayload appends p to the buffer. It never blocks on an export.
func (bp *Processor) ConsumePayload(p record.Payload) {
	bp.buffer.Append(p)
	if bp.sendBatchSize > 0 && bp.buffer.Len() >= bp.sendBatchSize {
		select {
		case bp.sizeTrigger <- struct{}{}:
		default:
		}
	}
}

// Buffer returns the buffer payloads are accumulated in.
func (bp *Processor) Buffer() *Buffer {
	return bp.buffer
}

func (bp *Processor) startProcessingCycle() {
	defer bp.goroutines.Done()
	// Exports run on this goroutine, so they never overlap. Ticks that fire
	// during a slow export collapse into one.
	ticker := time.NewTicker(bp.timeout)
	defer ticker.Stop()
	for {
		select {
		case <-bp.shutdownC:
			if bp.flushOnShutdown {
				bp.sendItems(statTimeoutTriggerSend)
			}
			return
		case <-ticker.C:
			bp.sendItems(statTimeoutTriggerSend)
		case <-bp.sizeTrigger:
			if bp.buffer.Len() < bp.sendBatchSize {
				continue
			}
			bp.sendItems(statBatchSizeTriggerSend)
			ticker.Reset(bp.timeout)
		}
	}
}

func (bp *Processor) sendItems(triggerMeasure *stats.Int64Measure) {
	batch := bp.buffer.DrainAll()
	if len(batch) == 0 {
		return
	}
	_ = stats.RecordWithTags(bp.exportCtx, bp.statsTags, triggerMeasure.M(1))

	for len(batch) > 0 {
		chunk := batch
		if bp.sendBatchMaxSize > 0 && len(chunk) > bp.sendBatchMaxSize {
			chunk = batch[:bp.sendBatchMaxSize]
		}
		batch = batch[len(chunk):]

		_ = stats.RecordWithTags(bp.exportCtx, bp.statsTags, statBatchSendSize.M(int64(len(chunk))))
		if err := bp.exporter.Export(bp.exportCtx, chunk); err != nil {
			bp.logger.Error("Sender failed", zap.Int("batch_size", len(chunk)), zap.Error(err))
		}
	}
}
