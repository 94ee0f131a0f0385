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
	"io/ioutil"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LogsConfig
		wantErr bool
	}{
		{
			name: "console",
			cfg:  NewDefaultConfig().Telemetry.Logs,
		},
		{
			name: "json_debug",
			cfg:  LogsConfig{Level: "debug", Encoding: "json", OutputPaths: []string{"stderr"}},
		},
		{
			name:    "bad_level",
			cfg:     LogsConfig{Level: "loud", Encoding: "json"},
			wantErr: true,
		},
		{
			name:    "bad_encoding",
			cfg:     LogsConfig{Level: "info", Encoding: "xml"},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := newLogger(tt.cfg, nil)
			if tt.wantErr {
				assert.Error(t, err)
				assert.Nil(t, logger)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, logger)
		})
	}

	logger, err := newLogger(LogsConfig{Level: "warn", Encoding: "json"}, nil)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zap.InfoLevel))
	assert.True(t, logger.Core().Enabled(zap.WarnLevel))
}

func TestTelemetry_disabled(t *testing.T) {
	tel, err := startTelemetry(MetricsConfig{}, func() State { return Running }, make(chan error, 1), zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, "", tel.addr())
	assert.NoError(t, tel.shutdown(context.Background()))
}

func TestTelemetry_endpoints(t *testing.T) {
	state := atomic.NewInt32(int32(Running))
	tel, err := startTelemetry(MetricsConfig{Address: "localhost:0"}, func() State { return State(state.Load()) }, make(chan error, 1), zap.NewNop())
	require.NoError(t, err)
	defer func() { assert.NoError(t, tel.shutdown(context.Background())) }()
	base := "http://" + tel.addr()

	resp, err := http.Get(base + "/metrics")
	require.NoError(t, err)
	body, err := ioutil.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "go_goroutines")
	assert.Contains(t, string(body), "hecbridge_process_")

	resp, err = http.Get(base + "/healthz")
	require.NoError(t, err)
	body, err = ioutil.ReadAll(resp.Body)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"running"}`, string(body))

	state.Store(int32(Closing))
	resp, err = http.Get(base + "/healthz")
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	resp, err = http.Post(base+"/metrics", "text/plain", nil)
	require.NoError(t, err)
	require.NoError(t, resp.Body.Close())
	assert.Equal(t, http.StatusMethodNotAllowed, resp.StatusCode)
}

func TestTelemetry_bindError(t *testing.T) {
	_, err := startTelemetry(MetricsConfig{Address: "256.0.0.1:99999"}, func() State { return Running }, make(chan error, 1), zap.NewNop())
	assert.Error(t, err)
}
