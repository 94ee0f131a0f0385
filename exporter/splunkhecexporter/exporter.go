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

// Package splunkhecexporter delivers batches of encoded events to an HTTP
// Event Collector endpoint.
package splunkhecexporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opencensus.io/stats"
	"go.opencensus.io/tag"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hecbridge/hecbridge/consumer/consumererror"
	"github.com/hecbridge/hecbridge/model/record"
)

const (
	typeStr = "splunk_hec"

	headerChannel = "X-Splunk-Request-Channel"
)

var errDeadLetterDisabled = errors.New("dead letter log is not configured")

// Exporter posts each batch as one JSON array to the configured endpoint.
type Exporter struct {
	url           string
	authorization string
	channel       string
	client        *http.Client
	retry         RetrySettings
	deadLetter    *deadLetterLog

	statsTags []tag.Mutator
	logger    *zap.Logger
}

// NewExporter creates an Exporter from cfg. It opens the dead letter log when
// one is configured.
func NewExporter(cfg Config, logger *zap.Logger) (*Exporter, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	client, err := cfg.HTTPClientSettings.ToClient()
	if err != nil {
		return nil, err
	}

	channel := cfg.Channel
	if channel == autoChannel {
		channel = uuid.New().String()
	}

	e := &Exporter{
		url:           cfg.Endpoint,
		authorization: cfg.authorization(),
		channel:       channel,
		client:        client,
		retry:         cfg.RetrySettings,
		statsTags:     []tag.Mutator{tag.Insert(tagExporterName, typeStr)},
		logger:        logger,
	}
	if cfg.DeadLetter.Enabled() {
		if e.deadLetter, err = openDeadLetterLog(cfg.DeadLetter); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// Export sends batch and waits for the response. Only a 200 response is a
// success. On failure the batch is dead-lettered when configured, and the
// error is returned either way.
func (e *Exporter) Export(ctx context.Context, batch []record.Payload) error {
	if len(batch) == 0 {
		return nil
	}
	body := record.JoinArray(batch)
	batchID := uuid.New().String()

	start := time.Now()
	err := e.pushWithRetry(ctx, body, batchID)
	_ = stats.RecordWithTags(ctx, e.statsTags, statSendLatencyMs.M(time.Since(start).Milliseconds()))
	if err == nil {
		_ = stats.RecordWithTags(ctx, e.statsTags, statSentEvents.M(int64(len(batch))))
		return nil
	}
	_ = stats.RecordWithTags(ctx, e.statsTags, statSendFailedEvents.M(int64(len(batch))))

	if e.deadLetter != nil {
		if dlErr := e.deadLetter.persist(body); dlErr != nil {
			return multierr.Append(err, fmt.Errorf("failed to dead-letter batch: %w", dlErr))
		}
		_ = stats.RecordWithTags(ctx, e.statsTags, statDeadLetteredEvents.M(int64(len(batch))))
		e.logger.Warn("Batch dead-lettered",
			zap.String("batch_id", batchID),
			zap.Int("batch_size", len(batch)),
			zap.Error(err))
	}
	return err
}

// Replay re-sends every dead-lettered batch in order, dropping each one from
// the log once it has been delivered. It stops at the first failure.
func (e *Exporter) Replay(ctx context.Context) (int, error) {
	if e.deadLetter == nil {
		return 0, errDeadLetterDisabled
	}
	return e.deadLetter.replay(ctx, func(ctx context.Context, body string) error {
		return e.pushWithRetry(ctx, body, uuid.New().String())
	})
}

// Pending returns the number of batches waiting in the dead letter log.
func (e *Exporter) Pending() (int, error) {
	if e.deadLetter == nil {
		return 0, errDeadLetterDisabled
	}
	return e.deadLetter.len()
}

// Shutdown releases the dead letter log and idle connections.
func (e *Exporter) Shutdown(context.Context) error {
	e.client.CloseIdleConnections()
	if e.deadLetter != nil {
		return e.deadLetter.close()
	}
	return nil
}

func (e *Exporter) send(ctx context.Context, body string, batchID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, strings.NewReader(body))
	if err != nil {
		return consumererror.Permanent(err)
	}
	req.Header.Set("Authorization", e.authorization)
	req.Header.Set("Content-Type", "application/json")
	if e.channel != "" {
		req.Header.Set(headerChannel, e.channel)
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to push batch: %w", err)
	}
	defer func() {
		// Drain the body so the connection can be reused.
		_, _ = io.Copy(ioutil.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	e.logger.Info("Response Code",
		zap.Int("status_code", resp.StatusCode),
		zap.String("batch_id", batchID))

	if resp.StatusCode == http.StatusOK {
		return nil
	}
	err = fmt.Errorf("HTTP %d %q", resp.StatusCode, http.StatusText(resp.StatusCode))
	if isPermanentStatus(resp.StatusCode) {
		return consumererror.Permanent(err)
	}
	return err
}

// isPermanentStatus reports client errors that a retry cannot fix.
func isPermanentStatus(code int) bool {
	if code == http.StatusRequestTimeout || code == http.StatusTooManyRequests {
		return false
	}
	return code >= 400 && code < 500
}
