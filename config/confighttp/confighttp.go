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

package confighttp

import (
	"net/http"
	"time"

	"github.com/hecbridge/hecbridge/config/configtls"
)

// HTTPClientSettings defines settings for creating an HTTP client.
type HTTPClientSettings struct {
	// The target URL to send data to (e.g.: https://hec.example.com:8088/services/collector/event).
	Endpoint string `mapstructure:"endpoint"`

	// TLSSetting struct exposes TLS client configuration.
	TLSSetting configtls.TLSClientSetting `mapstructure:"tls"`

	// Timeout parameter configures `http.Client.Timeout`. Zero means no timeout.
	Timeout time.Duration `mapstructure:"timeout"`

	// MaxIdleConns is used to set a limit to the maximum idle HTTP connections the client can keep open.
	MaxIdleConns int `mapstructure:"max_idle_conns"`

	// IdleConnTimeout is the maximum amount of time a connection will remain open before closing itself.
	IdleConnTimeout time.Duration `mapstructure:"idle_conn_timeout"`

	// Headers are added to every request. A header the request already carries is left untouched.
	Headers map[string]string `mapstructure:"headers"`
}

// ToClient creates an HTTP client.
func (hcs *HTTPClientSettings) ToClient() (*http.Client, error) {
	tlsCfg, err := hcs.TLSSetting.LoadTLSConfig()
	if err != nil {
		return nil, err
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if tlsCfg != nil {
		transport.TLSClientConfig = tlsCfg
	}
	if hcs.MaxIdleConns > 0 {
		transport.MaxIdleConns = hcs.MaxIdleConns
	}
	if hcs.IdleConnTimeout > 0 {
		transport.IdleConnTimeout = hcs.IdleConnTimeout
	}

	var clientTransport http.RoundTripper = transport
	if len(hcs.Headers) > 0 {
		clientTransport = &headerRoundTripper{
			transport: transport,
			headers:   hcs.Headers,
		}
	}

	return &http.Client{
		Transport: clientTransport,
		Timeout:   hcs.Timeout,
	}, nil
}

// headerRoundTripper adds the configured headers to every request.
type headerRoundTripper struct {
	transport http.RoundTripper
	headers   map[string]string
}

func (h *headerRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req2 := req.Clone(req.Context())
	for k, v := range h.headers {
		if req2.Header.Get(k) != "" {
			continue
		}
		req2.Header.Set(k, v)
	}
	return h.transport.RoundTrip(req2)
}
