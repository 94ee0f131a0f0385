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
	"errors"
	"fmt"
	"net/url"
	"time"

	"go.uber.org/multierr"

	"github.com/hecbridge/hecbridge/config/confighttp"
)

const (
	defaultAuthScheme       = "Splunk"
	defaultSegmentCacheSize = 2

	// autoChannel makes the exporter generate a request channel id at startup.
	autoChannel = "auto"
)

var (
	errEmptyEndpoint       = errors.New("requires a non-empty \"endpoint\"")
	errInvalidEndpoint     = errors.New("\"endpoint\" must be an http or https URL")
	errEmptyToken          = errors.New("requires a non-empty \"token\"")
	errInvalidRetryBackoff = errors.New("\"retry_on_failure.initial_interval\" must be greater than zero")
)

// RetrySettings defines configuration for retrying batches in case of export failure.
// The current supported strategy is exponential backoff.
type RetrySettings struct {
	// Enabled indicates whether to retry sending batches in case of export failure.
	Enabled bool `mapstructure:"enabled"`
	// InitialInterval the time to wait after the first failure before retrying.
	InitialInterval time.Duration `mapstructure:"initial_interval"`
	// MaxInterval is the upper bound on backoff interval. Once this value is reached the delay between
	// consecutive retries will always be `MaxInterval`.
	MaxInterval time.Duration `mapstructure:"max_interval"`
	// MaxElapsedTime is the maximum amount of time (including retries) spent trying to send a batch.
	// Once this value is reached, the batch is discarded or dead-lettered.
	MaxElapsedTime time.Duration `mapstructure:"max_elapsed_time"`
}

// CreateDefaultRetrySettings returns the default settings for RetrySettings.
func CreateDefaultRetrySettings() RetrySettings {
	return RetrySettings{
		Enabled:         false,
		InitialInterval: 5 * time.Second,
		MaxInterval:     30 * time.Second,
		MaxElapsedTime:  5 * time.Minute,
	}
}

// DeadLetterSettings configures the write-ahead log that keeps batches which
// could not be delivered.
type DeadLetterSettings struct {
	// Directory enables dead-lettering when set.
	Directory string `mapstructure:"directory"`
	// SegmentCacheSize is the number of log segments kept in memory.
	SegmentCacheSize int `mapstructure:"segment_cache_size"`
}

// Enabled reports whether failed batches are persisted.
func (dl DeadLetterSettings) Enabled() bool {
	return dl.Directory != ""
}

// Config defines configuration for the HEC exporter.
type Config struct {
	confighttp.HTTPClientSettings `mapstructure:",squash"`

	// Token is the HEC token sent in the Authorization header.
	Token string `mapstructure:"token"`
	// AuthScheme prefixes the token in the Authorization header.
	AuthScheme string `mapstructure:"auth_scheme"`
	// Channel is sent as X-Splunk-Request-Channel when set. "auto" generates one.
	Channel string `mapstructure:"channel"`

	RetrySettings RetrySettings      `mapstructure:"retry_on_failure"`
	DeadLetter    DeadLetterSettings `mapstructure:"dead_letter"`
}

// CreateDefaultConfig returns the default exporter configuration. Endpoint and
// Token have no defaults.
func CreateDefaultConfig() Config {
	return Config{
		AuthScheme:    defaultAuthScheme,
		RetrySettings: CreateDefaultRetrySettings(),
		DeadLetter: DeadLetterSettings{
			SegmentCacheSize: defaultSegmentCacheSize,
		},
	}
}

// Validate checks if the exporter configuration is valid.
func (cfg *Config) Validate() error {
	var errs error
	if cfg.Endpoint == "" {
		errs = multierr.Append(errs, errEmptyEndpoint)
	} else if u, err := url.Parse(cfg.Endpoint); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = multierr.Append(errs, fmt.Errorf("%w: %q", errInvalidEndpoint, cfg.Endpoint))
	}
	if cfg.Token == "" {
		errs = multierr.Append(errs, errEmptyToken)
	}
	if cfg.RetrySettings.Enabled && cfg.RetrySettings.InitialInterval <= 0 {
		errs = multierr.Append(errs, errInvalidRetryBackoff)
	}
	return errs
}

func (cfg *Config) authorization() string {
	scheme := cfg.AuthScheme
	if scheme == "" {
		scheme = defaultAuthScheme
	}
	return scheme + " " + cfg.Token
}
