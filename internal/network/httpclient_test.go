// internal/network/httpclient_test.go
package network

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// -- Test Cases: Configuration and Defaults (ClientConfig) --

func TestNewDefaultClientConfig(t *testing.T) {
	config := NewDefaultClientConfig()

	assert.Equal(t, DefaultRequestTimeout, config.RequestTimeout)
	assert.Equal(t, DefaultResponseHeaderTimeout, config.ResponseHeaderTimeout)
	assert.Equal(t, DefaultMaxIdleConns, config.MaxIdleConns)
	assert.Equal(t, DefaultMaxIdleConnsPerHost, config.MaxIdleConnsPerHost)
	assert.True(t, config.IgnoreTLSErrors, "TLS verification is relaxed by default for lab targets")
	assert.True(t, config.DisableCompression, "transport gzip must be off, the middleware decodes encodings")
	assert.False(t, config.ForceHTTP2)
	assert.NotNil(t, config.Logger)
}

func TestConfigureTLS_Defaults(t *testing.T) {
	config := NewDefaultClientConfig()
	config.TLSConfig = nil
	tlsConfig := configureTLS(config)

	require.NotNil(t, tlsConfig, "TLS config should never be nil")
	assert.Equal(t, uint16(tls.VersionTLS12), tlsConfig.MinVersion)
	assert.True(t, tlsConfig.InsecureSkipVerify, "default config skips verification")
	assert.NotEmpty(t, tlsConfig.CipherSuites)
	assert.NotNil(t, tlsConfig.ClientSessionCache, "TLS session cache should be enabled")
}

func TestConfigureTLS_CustomConfigCloned(t *testing.T) {
	customTLS := &tls.Config{
		ServerName: "custom.sni",
	}
	config := NewDefaultClientConfig()
	config.TLSConfig = customTLS
	config.IgnoreTLSErrors = false

	tlsConfig := configureTLS(config)

	assert.Equal(t, "custom.sni", tlsConfig.ServerName)
	assert.False(t, tlsConfig.InsecureSkipVerify, "IgnoreTLSErrors=false must apply to the clone")
	assert.NotSame(t, customTLS, tlsConfig, "config should be cloned")
	assert.False(t, customTLS.InsecureSkipVerify, "original object should not be modified")
}

// -- Test Cases: Transport Creation (NewHTTPTransport) --

func TestNewHTTPTransport_ConfigurationMapping(t *testing.T) {
	config := NewDefaultClientConfig()
	config.MaxIdleConns = 55
	config.IdleConnTimeout = 99 * time.Second
	config.ResponseHeaderTimeout = 5 * time.Second
	config.DisableKeepAlives = true

	transport := NewHTTPTransport(config)

	assert.Equal(t, 55, transport.MaxIdleConns)
	assert.Equal(t, 99*time.Second, transport.IdleConnTimeout)
	assert.True(t, transport.DisableCompression)
	assert.Equal(t, 5*time.Second, transport.ResponseHeaderTimeout)
	assert.True(t, transport.DisableKeepAlives, "DisableKeepAlives should be propagated")
}

func TestNewHTTPTransport_Robustness_NilConfig(t *testing.T) {
	transport := NewHTTPTransport(nil)
	assert.Equal(t, DefaultMaxIdleConns, transport.MaxIdleConns)
	assert.NotNil(t, transport.DialContext)
	assert.NotNil(t, transport.TLSClientConfig)
}

func TestNewHTTPTransport_ProxyConfiguration(t *testing.T) {
	proxyURL, _ := url.Parse("http://proxy.example.com:8080")
	config := NewDefaultClientConfig()
	config.ProxyURL = proxyURL

	transport := NewHTTPTransport(config)
	require.NotNil(t, transport.Proxy)

	req, _ := http.NewRequest("GET", "http://target.com", nil)
	resultURL, err := transport.Proxy(req)

	require.NoError(t, err)
	assert.Equal(t, proxyURL, resultURL)
}

func TestNewHTTPTransport_HTTP2_Enabled(t *testing.T) {
	config := NewDefaultClientConfig()
	config.ForceHTTP2 = true
	transport := NewHTTPTransport(config)

	assert.True(t, transport.ForceAttemptHTTP2)
	require.NotNil(t, transport.TLSClientConfig)

	expectedProtos := []string{"h2", "http/1.1"}
	assert.Equal(t, expectedProtos, transport.TLSClientConfig.NextProtos, "NextProtos should be configured for H2 and HTTP/1.1")
}

func TestNewHTTPTransport_HTTP2_Disabled(t *testing.T) {
	config := NewDefaultClientConfig()
	config.ForceHTTP2 = false
	transport := NewHTTPTransport(config)

	assert.False(t, transport.ForceAttemptHTTP2)
	require.NotNil(t, transport.TLSClientConfig)
	assert.Equal(t, []string{"http/1.1"}, transport.TLSClientConfig.NextProtos)
}

// -- Test Cases: Client Behavior (NewClient and Integration) --

func TestNewClient_RedirectPolicy(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/" {
			http.Redirect(w, r, "/redirected", http.StatusFound)
		}
	}))
	defer server.Close()
	client := NewClient(nil)

	resp, err := client.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	// The loop must observe the 3xx itself rather than the redirect target.
	assert.Equal(t, http.StatusFound, resp.StatusCode)
	assert.Equal(t, "/redirected", resp.Header.Get("Location"))
}

func TestClient_TimeoutBehavior(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	config := NewDefaultClientConfig()
	config.RequestTimeout = 100 * time.Millisecond
	client := NewClient(config)

	startTime := time.Now()
	resp, err := client.Get(server.URL)
	duration := time.Since(startTime)

	assert.Error(t, err)
	assert.Nil(t, resp)
	urlErr, ok := err.(*url.Error)
	require.True(t, ok)

	assert.True(t, urlErr.Timeout() || errors.Is(urlErr.Err, context.DeadlineExceeded), "Error should be a timeout or deadline exceeded")
	assert.Less(t, duration, 500*time.Millisecond, "Timeout took significantly longer than expected")
}

func TestClient_SelfSignedCertificates(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK Insecure"))
	}))
	defer server.Close()

	// 1. Default config tolerates the untrusted certificate.
	clientDefault := NewClient(nil)
	resp, err := clientDefault.Get(server.URL)
	require.NoError(t, err, "default client should tolerate self signed certificates")
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, "OK Insecure", string(body))

	// 2. Strict verification fails against it.
	config := NewDefaultClientConfig()
	config.IgnoreTLSErrors = false
	clientStrict := NewClient(config)

	_, err = clientStrict.Get(server.URL)
	assert.Error(t, err, "strict client should reject an untrusted certificate")
}
