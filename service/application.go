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

// Package service handles the command-line and configuration, and runs the
// bridge from the stream source to the HEC endpoint.
package service

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/atomic"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hecbridge/hecbridge/exporter/splunkhecexporter"
	"github.com/hecbridge/hecbridge/processor/batchprocessor"
	"github.com/hecbridge/hecbridge/processor/exprfilterprocessor"
	"github.com/hecbridge/hecbridge/receiver/kafkareceiver"
	"github.com/hecbridge/hecbridge/translator/hecevent"
)

// State defines Application's state.
type State int32

const (
	Starting State = iota
	Running
	Closing
	Closed
)

func (s State) String() string {
	switch s {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case Closing:
		return "closing"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// BuildInfo describes the binary.
type BuildInfo struct {
	// Command is the executable name, e.g. "hecbridge".
	Command string
	// Description is the long name shown in the help output.
	Description string
	// Version is the build version.
	Version string
}

// SourceFactory creates the record source from its configuration.
type SourceFactory func(cfg kafkareceiver.Config, logger *zap.Logger) (Source, error)

// AppSettings configures an Application.
type AppSettings struct {
	BuildInfo BuildInfo
	// SourceFactory defaults to a Kafka consumer group source.
	SourceFactory SourceFactory
	// LoggingOptions are passed to the zap logger.
	LoggingOptions []zap.Option
}

// Application represents a bridge application.
type Application struct {
	info          BuildInfo
	rootCmd       *cobra.Command
	logger        *zap.Logger
	sourceFactory SourceFactory
	loggingOpts   []zap.Option

	state        *atomic.Int32
	stateChannel chan State

	// stopTestChan is used to terminate the application in end to end tests.
	stopTestChan chan struct{}
	stopOnce     sync.Once

	// signalsChannel is used to receive termination signals from the OS.
	signalsChannel chan os.Signal

	// asyncErrorChannel is used to signal a fatal error from any component.
	asyncErrorChannel chan error
}

// New creates and returns a new instance of Application.
func New(set AppSettings) (*Application, error) {
	if set.BuildInfo.Command == "" {
		set.BuildInfo.Command = "hecbridge"
	}
	app := &Application{
		info:          set.BuildInfo,
		sourceFactory: set.SourceFactory,
		loggingOpts:   set.LoggingOptions,
		state:         atomic.NewInt32(int32(Starting)),
		stateChannel:  make(chan State, Closed+1),
		stopTestChan:  make(chan struct{}),
		// Buffered so a reporting component never blocks on a terminating app.
		asyncErrorChannel: make(chan error, 1),
	}
	if app.sourceFactory == nil {
		app.sourceFactory = func(cfg kafkareceiver.Config, logger *zap.Logger) (Source, error) {
			source, err := kafkareceiver.NewSource(cfg, logger)
			if err != nil {
				return nil, err
			}
			return source, nil
		}
	}
	app.rootCmd = newRootCommand(app)
	return app, nil
}

// Run starts the bridge according to the command and configuration given by
// the user, and waits for it to complete.
func (app *Application) Run() error {
	// From this point on do not show usage in case of error.
	app.rootCmd.SilenceUsage = true

	return app.rootCmd.Execute()
}

// GetStateChannel returns state channel of the application.
func (app *Application) GetStateChannel() chan State {
	return app.stateChannel
}

// Command returns Application's root command.
func (app *Application) Command() *cobra.Command {
	return app.rootCmd
}

// GetLogger returns logger used by the Application.
// The logger is initialized after application start.
func (app *Application) GetLogger() *zap.Logger {
	return app.logger
}

// Shutdown asks a running application to stop.
func (app *Application) Shutdown() {
	app.stopOnce.Do(func() {
		close(app.stopTestChan)
	})
}

func (app *Application) setState(s State) {
	app.state.Store(int32(s))
	app.stateChannel <- s
}

func (app *Application) currentState() State {
	return State(app.state.Load())
}

// components are the running parts of the bridge, in start order.
type components struct {
	telemetry *telemetry
	exporter  *splunkhecexporter.Exporter
	processor *batchprocessor.Processor
	source    Source
	pipeline  *pipeline

	flushTimeout time.Duration
}

func (app *Application) setupComponents(ctx context.Context, cfg *Config) (*components, error) {
	c := &components{flushTimeout: cfg.Batch.ShutdownTimeout}
	var err error

	app.logger.Info("Setting up own telemetry...")
	if c.telemetry, err = startTelemetry(cfg.Telemetry.Metrics, app.currentState, app.asyncErrorChannel, app.logger); err != nil {
		return c, fmt.Errorf("failed to initialize telemetry: %w", err)
	}

	app.logger.Info("Applying configuration...")
	encoder, err := hecevent.NewEncoder(cfg.Encoding)
	if err != nil {
		return c, err
	}
	matcher, err := exprfilterprocessor.NewMatcher(cfg.Filter.Query)
	if err != nil {
		return c, fmt.Errorf("invalid filter query: %w", err)
	}

	if c.exporter, err = splunkhecexporter.NewExporter(cfg.Exporter, app.logger.With(zap.String("component", "exporter"))); err != nil {
		return c, fmt.Errorf("failed to create exporter: %w", err)
	}
	if c.processor, err = batchprocessor.NewProcessor(cfg.Batch, c.exporter, app.logger.With(zap.String("component", "batch"))); err != nil {
		return c, fmt.Errorf("failed to create batch processor: %w", err)
	}
	if err = c.processor.Start(ctx); err != nil {
		return c, err
	}

	sourceLogger := app.logger.With(zap.String("component", "receiver"))
	if c.source, err = app.sourceFactory(cfg.Receiver, sourceLogger); err != nil {
		return c, fmt.Errorf("failed to create source: %w", err)
	}
	if err = c.source.Subscribe(cfg.Receiver.Topic); err != nil {
		return c, fmt.Errorf("failed to subscribe: %w", err)
	}

	recordLevel := zapcore.DebugLevel
	if cfg.Telemetry.Logs.Records {
		recordLevel = zapcore.InfoLevel
	}
	c.pipeline = newPipeline(c.source, cfg.Receiver.PollTimeout, matcher, encoder, c.processor, recordLevel, app.logger)
	return c, nil
}

// shutdown flushes the buffer before the exporter and the source are released.
// Ingestion must already be stopped.
func (c *components) shutdown(ctx context.Context) error {
	var errs error
	if c.processor != nil {
		flushCtx, cancel := ctx, context.CancelFunc(func() {})
		if c.flushTimeout > 0 {
			flushCtx, cancel = context.WithTimeout(ctx, c.flushTimeout)
		}
		err := c.processor.Shutdown(flushCtx)
		cancel()
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to shutdown batch processor: %w", err))
		}
	}
	if c.exporter != nil {
		if err := c.exporter.Shutdown(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to shutdown exporter: %w", err))
		}
	}
	if c.source != nil {
		if err := c.source.Close(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to close source: %w", err))
		}
	}
	if c.telemetry != nil {
		if err := c.telemetry.shutdown(ctx); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to shutdown telemetry: %w", err))
		}
	}
	return errs
}

// runAndWaitForShutdownEvent waits for one of the shutdown events that can
// happen and returns the fatal error, if any, that caused it.
func (app *Application) runAndWaitForShutdownEvent() error {
	app.logger.Info("Everything is ready. Begin running and processing data.")

	// plug SIGTERM signal into a channel.
	app.signalsChannel = make(chan os.Signal, 1)
	signal.Notify(app.signalsChannel, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(app.signalsChannel)

	app.setState(Running)
	var fatalErr error
	select {
	case err := <-app.asyncErrorChannel:
		app.logger.Error("Asynchronous error received, terminating process", zap.Error(err))
		fatalErr = err
	case s := <-app.signalsChannel:
		app.logger.Info("Received signal from OS", zap.String("signal", s.String()))
	case <-app.stopTestChan:
		app.logger.Info("Received stop test request")
	}
	app.setState(Closing)
	return fatalErr
}

func (app *Application) execute(ctx context.Context, cfg *Config) error {
	app.logger.Info("Starting "+app.info.Command+"...",
		zap.String("Version", app.info.Version),
		zap.Int("NumCPU", runtime.NumCPU()),
	)
	app.setState(Starting)

	c, err := app.setupComponents(ctx, cfg)
	if err != nil {
		app.setState(Closing)
		err = multierr.Append(err, c.shutdown(ctx))
		app.setState(Closed)
		close(app.stateChannel)
		return err
	}

	ingestCtx, cancelIngest := context.WithCancel(ctx)
	ingestDone := make(chan struct{})
	go func() {
		defer close(ingestDone)
		if err := c.pipeline.run(ingestCtx); err != nil {
			select {
			case app.asyncErrorChannel <- err:
			default:
				app.logger.Error("Ingestion stopped", zap.Error(err))
			}
		}
	}()

	// Everything is ready, now run until an event requiring shutdown happens.
	fatalErr := app.runAndWaitForShutdownEvent()

	// Begin shutdown sequence.
	app.logger.Info("Starting shutdown...")
	cancelIngest()
	<-ingestDone

	errs := c.shutdown(ctx)

	app.logger.Info("Shutdown complete.")
	app.setState(Closed)
	close(app.stateChannel)

	return multierr.Append(fatalErr, errs)
}
