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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/multierr"
)

func TestCreateDefaultConfig(t *testing.T) {
	cfg := CreateDefaultConfig()
	assert.Equal(t, "Splunk", cfg.AuthScheme)
	assert.Equal(t, time.Duration(0), cfg.Timeout)
	assert.False(t, cfg.RetrySettings.Enabled)
	assert.Equal(t, 5*time.Second, cfg.RetrySettings.InitialInterval)
	assert.False(t, cfg.DeadLetter.Enabled())
	assert.Equal(t, 2, cfg.DeadLetter.SegmentCacheSize)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(cfg *Config)
		wantErr []error
	}{
		{
			name:   "valid",
			mutate: func(cfg *Config) {},
		},
		{
			name:    "empty",
			mutate:  func(cfg *Config) { cfg.Endpoint = ""; cfg.Token = "" },
			wantErr: []error{errEmptyEndpoint, errEmptyToken},
		},
		{
			name:    "bad_scheme",
			mutate:  func(cfg *Config) { cfg.Endpoint = "ftp://hec.example.com" },
			wantErr: []error{errInvalidEndpoint},
		},
		{
			name:    "no_host",
			mutate:  func(cfg *Config) { cfg.Endpoint = "http://" },
			wantErr: []error{errInvalidEndpoint},
		},
		{
			name: "retry_without_interval",
			mutate: func(cfg *Config) {
				cfg.RetrySettings.Enabled = true
				cfg.RetrySettings.InitialInterval = 0
			},
			wantErr: []error{errInvalidRetryBackoff},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := CreateDefaultConfig()
			cfg.Endpoint = "https://hec.example.com:8088/services/collector/event"
			cfg.Token = "token"
			tt.mutate(&cfg)

			err := cfg.Validate()
			if len(tt.wantErr) == 0 {
				assert.NoError(t, err)
				return
			}
			errs := multierr.Errors(err)
			require.Len(t, errs, len(tt.wantErr))
			for i, want := range tt.wantErr {
				assert.ErrorIs(t, errs[i], want)
			}
		})
	}
}

func TestConfigAuthorization(t *testing.T) {
	cfg := Config{Token: "abc"}
	assert.Equal(t, "Splunk abc", cfg.authorization())
	cfg.AuthScheme = "Bearer"
	assert.Equal(t, "Bearer abc", cfg.authorization())
}
