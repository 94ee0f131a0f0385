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

	"github.com/spf13/cobra"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/hecbridge/hecbridge/exporter/splunkhecexporter"
)

var errNoDeadLetter = errors.New("exporter.dead_letter.directory is not set")

// configFlags are the flags shared by every command that loads a configuration.
type configFlags struct {
	configFile string
	sets       []string
}

func (cf *configFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&cf.configFile, "config", "", "path to the YAML configuration file")
	cmd.Flags().StringArrayVar(&cf.sets, "set", nil,
		"set an arbitrary configuration property, overriding the file and environment, e.g. --set=exporter.token=abc")
}

func (cf *configFlags) load() (*Config, error) {
	cfg, err := LoadConfig(cf.configFile, cf.sets)
	if err != nil {
		return nil, fmt.Errorf("cannot load configuration: %w", err)
	}
	if err = cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// commandContext returns the context cmd was executed with, falling back to
// the background context for plain Execute calls.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newRootCommand(app *Application) *cobra.Command {
	flags := &configFlags{}
	long := app.info.Description
	if long == "" {
		long = app.info.Command + " forwards stream records in timed batches to an HTTP Event Collector endpoint."
	}
	rootCmd := &cobra.Command{
		Use:     app.info.Command,
		Short:   "Kafka to HTTP Event Collector bridge",
		Long:    long,
		Version: app.info.Version,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if app.logger, err = newLogger(cfg.Telemetry.Logs, app.loggingOpts); err != nil {
				return fmt.Errorf("failed to get logger: %w", err)
			}
			defer func() { _ = app.logger.Sync() }()
			return app.execute(commandContext(cmd), cfg)
		},
	}
	flags.register(rootCmd)
	rootCmd.AddCommand(newValidateCommand(), newReplayCommand(app))
	return rootCmd
}

func newValidateCommand() *cobra.Command {
	flags := &configFlags{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Load and validate the configuration, then exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := flags.load(); err != nil {
				return err
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
			return err
		},
	}
	flags.register(cmd)
	return cmd
}

func newReplayCommand(app *Application) *cobra.Command {
	flags := &configFlags{}
	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Re-send the batches kept in the dead letter log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.load()
			if err != nil {
				return err
			}
			if !cfg.Exporter.DeadLetter.Enabled() {
				return errNoDeadLetter
			}
			if app.logger, err = newLogger(cfg.Telemetry.Logs, app.loggingOpts); err != nil {
				return fmt.Errorf("failed to get logger: %w", err)
			}
			defer func() { _ = app.logger.Sync() }()
			return replay(commandContext(cmd), cfg.Exporter, app.logger)
		},
	}
	flags.register(cmd)
	return cmd
}

func replay(ctx context.Context, cfg splunkhecexporter.Config, logger *zap.Logger) (err error) {
	exp, err := splunkhecexporter.NewExporter(cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create exporter: %w", err)
	}
	defer func() {
		err = multierr.Append(err, exp.Shutdown(ctx))
	}()

	pending, err := exp.Pending()
	if err != nil {
		return err
	}
	logger.Info("Replaying dead-lettered batches", zap.Int("pending", pending))

	sent, err := exp.Replay(ctx)
	logger.Info("Replay finished", zap.Int("sent", sent), zap.Int("remaining", pending-sent))
	return err
}
