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

package configtls

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"io/ioutil"
	"path/filepath"
)

var errCertKeyMismatch = errors.New("for auth via TLS, either both certificate and key must be supplied, or neither")

// TLSSetting exposes the common TLS configuration used by the Kafka client
// and the HTTP exporter.
type TLSSetting struct {
	// Path to the CA cert used to verify the server certificate. If empty the
	// system root CAs are used. (optional)
	CAFile string `mapstructure:"ca_file"`
	// Path to the TLS cert to present for mutual TLS. (optional)
	CertFile string `mapstructure:"cert_file"`
	// Path to the TLS key matching CertFile. (optional)
	KeyFile string `mapstructure:"key_file"`
}

// TLSClientSetting contains TLS configurations that are specific to client
// connections in addition to the common configurations.
type TLSClientSetting struct {
	TLSSetting `mapstructure:",squash"`

	// InsecureSkipVerify disables verifying the server's certificate chain
	// and host name.
	InsecureSkipVerify bool `mapstructure:"insecure_skip_verify"`
	// ServerName requested by the client for virtual hosting. (optional)
	ServerName string `mapstructure:"server_name_override"`
}

// LoadTLSConfig loads TLS certificates and returns a tls.Config.
func (c TLSSetting) LoadTLSConfig() (*tls.Config, error) {
	// There is no need to load the System Certs for RootCAs because
	// if the value is nil, it will default to checking against the System Certs.
	var err error
	var certPool *x509.CertPool
	if len(c.CAFile) != 0 {
		certPool, err = c.loadCert(c.CAFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS config: failed to load CA CertPool: %w", err)
		}
	}
	// #nosec G402
	tlsCfg := &tls.Config{
		RootCAs: certPool,
	}

	if (c.CertFile == "" && c.KeyFile != "") || (c.CertFile != "" && c.KeyFile == "") {
		return nil, fmt.Errorf("failed to load TLS config: %w", errCertKeyMismatch)
	}
	if c.CertFile != "" && c.KeyFile != "" {
		tlsCert, err := tls.LoadX509KeyPair(filepath.Clean(c.CertFile), filepath.Clean(c.KeyFile))
		if err != nil {
			return nil, fmt.Errorf("failed to load TLS config: failed to load TLS cert and key: %w", err)
		}
		tlsCfg.Certificates = append(tlsCfg.Certificates, tlsCert)
	}

	return tlsCfg, nil
}

func (c TLSSetting) loadCert(caPath string) (*x509.CertPool, error) {
	caPEM, err := ioutil.ReadFile(filepath.Clean(caPath))
	if err != nil {
		return nil, fmt.Errorf("failed to load CA %s: %w", caPath, err)
	}

	certPool := x509.NewCertPool()
	if !certPool.AppendCertsFromPEM(caPEM) {
		return nil, fmt.Errorf("failed to parse CA %s", caPath)
	}
	return certPool, nil
}

// LoadTLSConfig loads the common settings and applies the client specific ones.
func (c TLSClientSetting) LoadTLSConfig() (*tls.Config, error) {
	tlsCfg, err := c.TLSSetting.LoadTLSConfig()
	if err != nil {
		return nil, err
	}
	tlsCfg.ServerName = c.ServerName
	// #nosec G402
	tlsCfg.InsecureSkipVerify = c.InsecureSkipVerify
	return tlsCfg, nil
}
