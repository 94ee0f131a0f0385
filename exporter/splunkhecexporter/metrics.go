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

package splunkhecexporter

import (
	"go.opencensus.io/stats"
	"go.opencensus.io/stats/view"
	"go.opencensus.io/tag"
)

var (
	tagExporterName, _ = tag.NewKey("exporter")

	statSentEvents         = stats.Int64("hec_sent_events", "Number of events successfully sent to the HEC endpoint", stats.UnitDimensionless)
	statSendFailedEvents   = stats.Int64("hec_send_failed_events", "Number of events that failed to be sent to the HEC endpoint", stats.UnitDimensionless)
	statSendLatencyMs      = stats.Int64("hec_send_latency", "Latency (in milliseconds) to send a batch, retries included", stats.UnitMilliseconds)
	statDeadLetteredEvents = stats.Int64("hec_dead_lettered_events", "Number of events written to the dead letter log", stats.UnitDimensionless)
)

// MetricViews returns the metrics views related to the HEC exporter.
func MetricViews() []*view.View {
	tagKeys := []tag.Key{tagExporterName}

	countSentView := &view.View{
		Name:        statSentEvents.Name(),
		Measure:     statSentEvents,
		Description: statSentEvents.Description(),
		TagKeys:     tagKeys,
		Aggregation: view.Sum(),
	}
	countFailedView := &view.View{
		Name:        statSendFailedEvents.Name(),
		Measure:     statSendFailedEvents,
		Description: statSendFailedEvents.Description(),
		TagKeys:     tagKeys,
		Aggregation: view.Sum(),
	}
	sendLatencyView := &view.View{
		Name:        statSendLatencyMs.Name(),
		Measure:     statSendLatencyMs,
		Description: statSendLatencyMs.Description(),
		TagKeys:     tagKeys,
		Aggregation: view.Distribution(10, 25, 50, 75, 100, 250, 500, 750, 1000, 2000, 3000, 4000, 5000, 10000, 20000, 30000, 50000),
	}
	countDeadLetteredView := &view.View{
		Name:        statDeadLetteredEvents.Name(),
		Measure:     statDeadLetteredEvents,
		Description: statDeadLetteredEvents.Description(),
		TagKeys:     tagKeys,
		Aggregation: view.Sum(),
	}

	return []*view.View{countSentView, countFailedView, sendLatencyView, countDeadLetteredView}
}
