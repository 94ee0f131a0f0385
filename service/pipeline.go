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

package service

import (
	"context"
	"fmt"
	"time"

	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hecbridge/hecbridge/model/record"
	"github.com/hecbridge/hecbridge/processor/exprfilterprocessor"
	"github.com/hecbridge/hecbridge/translator/hecevent"
)

var (
	tagPipelineName, _ = tag.NewKey("pipeline")

	statRecordsFiltered     = stats.Int64("records_filtered", "Number of records dropped by the filter", stats.UnitDimensionless)
	statRecordsEncodeFailed = stats.Int64("records_encode_failed", "Number of records that could not be encoded", stats.UnitDimensionless)
)

func pipelineMetricViews() []*view.View {
	tagKeys := []tag.Key{tagPipelineName}
	return []*view.View{
		{
			Name:        statRecordsFiltered.Name(),
			Measure:     statRecordsFiltered,
			Description: statRecordsFiltered.Description(),
			TagKeys:     tagKeys,
			Aggregation: view.Sum(),
		},
		{
			Name:        statRecordsEncodeFailed.Name(),
			Measure:     statRecordsEncodeFailed,
			Description: statRecordsEncodeFailed.Description(),
			TagKeys:     tagKeys,
			Aggregation: view.Sum(),
		},
	}
}

// Source is where records are ingested from.
type Source interface {
	Subscribe(topics ...string) error
	Poll(ctx context.Context, timeout time.Duration) ([]record.Raw, error)
	Close() error
}

// payloadConsumer accepts encoded payloads without blocking on exports.
type payloadConsumer interface {
	ConsumePayload(p record.Payload)
}

// pipeline moves records from the source into the batch buffer.
type pipeline struct {
	source      Source
	pollTimeout time.Duration
	matcher     *exprfilterprocessor.Matcher
	encoder     hecevent.Encoder
	next        payloadConsumer

	statsTags   []tag.Mutator
	recordLevel zapcore.Level
	logger      *zap.Logger
}

func newPipeline(source Source, pollTimeout time.Duration, matcher *exprfilterprocessor.Matcher, encoder hecevent.Encoder, next payloadConsumer, recordLevel zapcore.Level, logger *zap.Logger) *pipeline {
	return &pipeline{
		source:      source,
		pollTimeout: pollTimeout,
		matcher:     matcher,
		encoder:     encoder,
		next:        next,
		statsTags:   []tag.Mutator{tag.Insert(tagPipelineName, encoder.Format())},
		recordLevel: recordLevel,
		logger:      logger,
	}
}

// run polls until ctx is cancelled, which is a clean stop, or the source
// fails, which is returned.
func (p *pipeline) run(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		records, err := p.source.Poll(ctx, p.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("failed to poll records: %w", err)
		}
		for _, rec := range records {
			p.consume(ctx, rec)
		}
	}
}

func (p *pipeline) consume(ctx context.Context, rec record.Raw) {
	keep, err := p.matcher.MatchRecord(rec)
	if err != nil {
		p.logger.Warn("Filter evaluation failed, dropping record",
			zap.String("topic", rec.Topic),
			zap.Int64("offset", rec.Offset),
			zap.Error(err))
	}
	if !keep {
		_ = stats.RecordWithTags(ctx, p.statsTags, statRecordsFiltered.M(1))
		return
	}

	if ce := p.logger.Check(p.recordLevel, "Consumed event"); ce != nil {
		ce.Write(
			zap.String("topic", rec.Topic),
			zap.Int32("partition", rec.Partition),
			zap.Int64("offset", rec.Offset),
			zap.String("key", rec.Key),
			zap.String("value", rec.Value))
	}

	payload, err := p.encoder.Encode(rec)
	if err != nil {
		_ = stats.RecordWithTags(ctx, p.statsTags, statRecordsEncodeFailed.M(1))
		p.logger.Error("Failed to encode record",
			zap.String("topic", rec.Topic),
			zap.Int64("offset", rec.Offset),
			zap.Error(err))
		return
	}
	p.next.ConsumePayload(payload)
}
