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

package batchprocessor

import (
	"errors"
	"time"
)

const (
	defaultTimeout         = 30 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

var (
	errInvalidTimeout = errors.New("timeout must be greater than zero")
	errInvalidMaxSize = errors.New("send_batch_max_size must be greater or equal to send_batch_size")

	errInvalidShutdownTimeout = errors.New("shutdown_timeout must not be negative")
)

// Config defines configuration for the batch processor.
type Config struct {
	// Timeout sets the time after which a batch will be sent regardless of size.
	Timeout time.Duration `mapstructure:"timeout"`

	// SendBatchSize is the size of a batch which after hit, will trigger it to be sent.
	// Zero disables the size trigger.
	SendBatchSize uint32 `mapstructure:"send_batch_size"`

	// SendBatchMaxSize is the maximum size of a batch. Larger batches are split
	// into smaller units. Zero means no limit.
	SendBatchMaxSize uint32 `mapstructure:"send_batch_max_size"`

	// FlushOnShutdown exports whatever is buffered when the processor stops.
	FlushOnShutdown bool `mapstructure:"flush_on_shutdown"`

	// ShutdownTimeout bounds the final flush. The in-flight export is cancelled
	// once it expires. Zero waits for the export to finish.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// CreateDefaultConfig returns the default batch configuration.
func CreateDefaultConfig() Config {
	return Config{
		Timeout:         defaultTimeout,
		FlushOnShutdown: true,
		ShutdownTimeout: defaultShutdownTimeout,
	}
}

// Validate checks if the processor configuration is valid.
func (cfg *Config) Validate() error {
	if cfg.Timeout <= 0 {
		return errInvalidTimeout
	}
	if cfg.SendBatchMaxSize > 0 && cfg.SendBatchMaxSize < cfg.SendBatchSize {
		return errInvalidMaxSize
	}
	if cfg.ShutdownTimeout < 0 {
		return errInvalidShutdownTimeout
	}
	return nil
}
