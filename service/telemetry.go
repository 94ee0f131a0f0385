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
	"errors"
	"fmt"
	"net"
	"net/http"

	ocprom "contrib.go.opencensus.io/exporter/prometheus"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"go.opencensus.io/stats/view"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hecbridge/hecbridge/exporter/splunkhecexporter"
	"github.com/hecbridge/hecbridge/processor/batchprocessor"
	"github.com/hecbridge/hecbridge/receiver/kafkareceiver"
)

const metricsNamespace = "hecbridge"

var errUnknownLogEncoding = errors.New("unknown log encoding")

func (lc *LogsConfig) validate() error {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
		return fmt.Errorf("invalid log level %q: %w", lc.Level, err)
	}
	if lc.Encoding != "console" && lc.Encoding != "json" {
		return fmt.Errorf("%w: %q", errUnknownLogEncoding, lc.Encoding)
	}
	return nil
}

func newLogger(cfg LogsConfig, options []zap.Option) (*zap.Logger, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	var level zapcore.Level
	_ = level.UnmarshalText([]byte(cfg.Level))

	// Copied from NewProductionConfig.
	zapCfg := &zap.Config{
		Level:             zap.NewAtomicLevelAt(level),
		Development:       cfg.Development,
		Encoding:          cfg.Encoding,
		EncoderConfig:     zap.NewProductionEncoderConfig(),
		OutputPaths:       cfg.OutputPaths,
		ErrorOutputPaths:  cfg.ErrorOutputPaths,
		DisableCaller:     cfg.DisableCaller,
		DisableStacktrace: cfg.DisableStacktrace,
	}

	if zapCfg.Encoding == "console" {
		// Human-readable timestamps for console format of logs.
		zapCfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	}

	return zapCfg.Build(options...)
}

// metricViews lists every view the bridge records.
func metricViews() []*view.View {
	var views []*view.View
	views = append(views, kafkareceiver.MetricViews()...)
	views = append(views, pipelineMetricViews()...)
	views = append(views, batchprocessor.MetricViews()...)
	views = append(views, splunkhecexporter.MetricViews()...)
	return views
}

// telemetry serves the bridge's own metrics and health endpoints.
type telemetry struct {
	views    []*view.View
	listener net.Listener
	server   *http.Server
	done     chan struct{}
	logger   *zap.Logger
}

// startTelemetry registers the metric views and, when cfg.Address is set,
// starts the HTTP server. Serve failures are reported on asyncErrorChannel.
func startTelemetry(cfg MetricsConfig, state func() State, asyncErrorChannel chan<- error, logger *zap.Logger) (*telemetry, error) {
	tel := &telemetry{views: metricViews(), logger: logger}
	if err := view.Register(tel.views...); err != nil {
		return nil, fmt.Errorf("failed to register metric views: %w", err)
	}
	if cfg.Address == "" {
		return tel, nil
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{Namespace: metricsNamespace}),
	)
	pe, err := ocprom.NewExporter(ocprom.Options{
		Namespace: metricsNamespace,
		Registry:  registry,
		OnError: func(err error) {
			logger.Warn("Failed to export metrics", zap.Error(err))
		},
	})
	if err != nil {
		view.Unregister(tel.views...)
		return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	ln, err := net.Listen("tcp", cfg.Address)
	if err != nil {
		view.Unregister(tel.views...)
		return nil, fmt.Errorf("failed to bind to address %q: %w", cfg.Address, err)
	}

	router := mux.NewRouter()
	router.Handle("/metrics", pe).Methods(http.MethodGet)
	router.HandleFunc("/healthz", healthHandler(state)).Methods(http.MethodGet)

	tel.listener = ln
	tel.server = &http.Server{Handler: router}
	tel.done = make(chan struct{})
	go func() {
		defer close(tel.done)
		if err := tel.server.Serve(ln); err != nil && err != http.ErrServerClosed {
			select {
			case asyncErrorChannel <- fmt.Errorf("telemetry server failed: %w", err):
			default:
			}
		}
	}()
	logger.Info("Serving metrics", zap.String("address", ln.Addr().String()))
	return tel, nil
}

func healthHandler(state func() State) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s := state()
		if s != Running {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_, _ = fmt.Fprintf(w, `{"status":%q}`, s.String())
	}
}

// addr returns the address the server listens on, or "" when disabled.
func (tel *telemetry) addr() string {
	if tel.listener == nil {
		return ""
	}
	return tel.listener.Addr().String()
}

func (tel *telemetry) shutdown(ctx context.Context) error {
	defer view.Unregister(tel.views...)
	if tel.server == nil {
		return nil
	}
	err := tel.server.Shutdown(ctx)
	<-tel.done
	return err
}
