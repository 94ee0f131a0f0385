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
	"fmt"
	"strings"

	"github.com/knadh/koanf"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/multierr"

	"github.com/hecbridge/hecbridge/exporter/splunkhecexporter"
	"github.com/hecbridge/hecbridge/processor/batchprocessor"
	"github.com/hecbridge/hecbridge/processor/exprfilterprocessor"
	"github.com/hecbridge/hecbridge/receiver/kafkareceiver"
	"github.com/hecbridge/hecbridge/translator/hecevent"
)

// envPrefix selects the environment variables that override the
// configuration. Levels are separated by a double underscore, e.g.
// HECBRIDGE_EXPORTER__TOKEN sets exporter.token.
const envPrefix = "HECBRIDGE_"

// Config is the complete bridge configuration.
type Config struct {
	Receiver  kafkareceiver.Config       `mapstructure:"receiver"`
	Filter    exprfilterprocessor.Config `mapstructure:"filter"`
	Encoding  hecevent.Config            `mapstructure:"encoding"`
	Batch     batchprocessor.Config      `mapstructure:"batch"`
	Exporter  splunkhecexporter.Config   `mapstructure:"exporter"`
	Telemetry TelemetryConfig            `mapstructure:"telemetry"`
}

// TelemetryConfig defines the bridge's own logs and metrics.
type TelemetryConfig struct {
	Logs    LogsConfig    `mapstructure:"logs"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// LogsConfig defines how the zap logger is built.
type LogsConfig struct {
	// Level is the minimum enabled logging level, e.g. "debug" or "info".
	Level string `mapstructure:"level"`
	// Development puts the logger in development mode, which changes the
	// behavior of DPanicLevel and takes stacktraces more liberally.
	Development bool `mapstructure:"development"`
	// Encoding sets the logger's encoding: "console" or "json".
	Encoding string `mapstructure:"encoding"`
	// OutputPaths is a list of URLs or file paths to write logging output to.
	OutputPaths []string `mapstructure:"output_paths"`
	// ErrorOutputPaths is a list of URLs to write internal logger errors to.
	ErrorOutputPaths []string `mapstructure:"error_output_paths"`
	// DisableCaller stops annotating logs with the calling function's file
	// name and line number.
	DisableCaller bool `mapstructure:"disable_caller"`
	// DisableStacktrace completely disables automatic stacktrace capturing.
	DisableStacktrace bool `mapstructure:"disable_stacktrace"`
	// Records logs every consumed record at info level. When false the
	// per-record line is only written at debug level.
	Records bool `mapstructure:"records"`
}

// MetricsConfig defines the metrics endpoint.
type MetricsConfig struct {
	// Address serves /metrics and /healthz when set, e.g. ":8888".
	Address string `mapstructure:"address"`
}

// NewDefaultConfig returns the configuration used when nothing is overridden.
func NewDefaultConfig() *Config {
	return &Config{
		Receiver: kafkareceiver.CreateDefaultConfig(),
		Encoding: hecevent.Config{Format: hecevent.RawFormat},
		Batch:    batchprocessor.CreateDefaultConfig(),
		Exporter: splunkhecexporter.CreateDefaultConfig(),
		Telemetry: TelemetryConfig{
			Logs: LogsConfig{
				Level:            "info",
				Encoding:         "console",
				OutputPaths:      []string{"stderr"},
				ErrorOutputPaths: []string{"stderr"},
				Records:          true,
			},
		},
	}
}

// Validate checks every section and reports all problems at once.
func (cfg *Config) Validate() error {
	var errs error
	if err := cfg.Receiver.Validate(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("receiver: %w", err))
	}
	if err := cfg.Filter.Validate(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("filter: %w", err))
	}
	if err := cfg.Encoding.Validate(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("encoding: %w", err))
	}
	if err := cfg.Batch.Validate(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("batch: %w", err))
	}
	if err := cfg.Exporter.Validate(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("exporter: %w", err))
	}
	if err := cfg.Telemetry.Logs.validate(); err != nil {
		errs = multierr.Append(errs, fmt.Errorf("telemetry: %w", err))
	}
	return errs
}

// LoadConfig builds the configuration from the defaults, the YAML file at
// path (skipped when empty), HECBRIDGE_ environment variables and finally the
// --set properties, each layer overriding the previous one.
func LoadConfig(path string, sets []string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load configuration file: %w", err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	props, err := setFlagsToMap(sets)
	if err != nil {
		return nil, fmt.Errorf("failed to parse --set flags: %w", err)
	}
	if err = k.Load(confmap.Provider(props, ""), nil); err != nil {
		return nil, fmt.Errorf("failed to load --set flags: %w", err)
	}

	cfg := NewDefaultConfig()
	if err = k.UnmarshalWithConf("", cfg, koanf.UnmarshalConf{
		Tag: "mapstructure",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(",")),
			Result:           cfg,
			WeaklyTypedInput: true,
			ErrorUnused:      true,
		},
	}); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}
	return cfg, nil
}

// envKey maps HECBRIDGE_EXPORTER__DEAD_LETTER__DIRECTORY to
// exporter.dead_letter.directory.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, envPrefix))
	return strings.ReplaceAll(s, "__", ".")
}
