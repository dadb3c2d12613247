package app

import (
	"context"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"io"
	"math/big"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"uptime/pkg/config"
	"uptime/pkg/dispatch"
	"uptime/pkg/telemetry"
)

// writeSelfSigned creates a throwaway certificate for 127.0.0.1.
func writeSelfSigned(t *testing.T) (certFile, keyFile string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "uptime-test"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
		IPAddresses:  []net.IP{net.ParseIP("127.0.0.1")},
		KeyUsage:     x509.KeyUsageDigitalSignature,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	require.NoError(t, err)
	keyDER, err := x509.MarshalECPrivateKey(key)
	require.NoError(t, err)

	dir := t.TempDir()
	certFile = filepath.Join(dir, "cert.pem")
	keyFile = filepath.Join(dir, "key.pem")
	require.NoError(t, os.WriteFile(certFile, pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}), 0o600))
	require.NoError(t, os.WriteFile(keyFile, pem.EncodeToMemory(&pem.Block{Type: "EC PRIVATE KEY", Bytes: keyDER}), 0o600))
	return certFile, keyFile
}

func testConfig(engine string) *config.Config {
	cfg := config.Defaults("")
	cfg.Server.Address = "127.0.0.1"
	cfg.Server.HTTPPort = 0
	cfg.Server.HTTPSPort = 0
	cfg.Server.Engine = engine
	return cfg
}

// startApp runs an App until the test ends and returns it once bound.
func startApp(t *testing.T, cfg *config.Config) (*App, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	a, err := newApp(config.EffectiveConfigResult{Config: cfg, Source: "defaults"}, "test", "none", "unknown", telemetry.NewMetrics(reg), reg)
	require.NoError(t, err)
	a.out = io.Discard

	ctx, cancel := context.WithCancel(context.Background())
	runErr := make(chan error, 1)
	go func() { runErr <- a.Run(ctx) }()

	select {
	case <-a.Ready():
	case err := <-runErr:
		t.Fatalf("run failed: %v", err)
	case <-time.After(5 * time.Second):
		t.Fatal("listeners did not start")
	}

	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-runErr)
		shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		assert.NoError(t, a.Shutdown(shutdownCtx))
		assert.Equal(t, "stopped", a.State())
	})
	return a, reg
}

var tlsClient = &http.Client{
	Timeout: 5 * time.Second,
	Transport: &http.Transport{
		TLSClientConfig:   &tls.Config{InsecureSkipVerify: true},
		DisableKeepAlives: true,
	},
}

func do(t *testing.T, method, url, body string) (*http.Response, string) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := tlsClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(b)
}

func TestApp_DualTransport(t *testing.T) {
	certFile, keyFile := writeSelfSigned(t)

	for _, engine := range []string{config.EngineNetHTTP, config.EngineFastHTTP} {
		t.Run(engine, func(t *testing.T) {
			cfg := testConfig(engine)
			cfg.Server.TLS = config.TLSConfig{CertFile: certFile, KeyFile: keyFile}
			cfg.Metrics.Address = "127.0.0.1:0"
			a, _ := startApp(t, cfg)
			assert.Equal(t, "running", a.State())

			for _, base := range []string{"http://" + a.Addr("http"), "https://" + a.Addr("https")} {
				resp, body := do(t, http.MethodPost, base+"/sample/?name=ada", `{"x":1}`)
				assert.Equal(t, http.StatusOK, resp.StatusCode, base)
				assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))
				assert.NotEmpty(t, resp.Header.Get(dispatch.RequestIDHeader))
				assert.JSONEq(t, `{"path":"sample","method":"post","query":{"name":["ada"]},"payload":{"x":1}}`, body)

				resp, body = do(t, http.MethodGet, base+"/ping", "")
				assert.Equal(t, http.StatusOK, resp.StatusCode)
				assert.Equal(t, "{}", body)

				resp, body = do(t, http.MethodGet, base+"/unregistered", "")
				assert.Equal(t, http.StatusNotFound, resp.StatusCode)
				assert.Equal(t, "{}", body)
			}

			resp, body := do(t, http.MethodGet, "http://"+a.Addr("metrics")+"/metrics", "")
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, body, `uptime_requests_total{status="200",transport="https"} 2`)
			assert.Contains(t, body, `uptime_requests_total{status="404",transport="http"} 1`)
			assert.Contains(t, body, "uptime_fallback_total 2")
		})
	}
}

func TestApp_PlainOnlyWithoutCertificates(t *testing.T) {
	a, _ := startApp(t, testConfig(config.EngineNetHTTP))
	assert.NotEmpty(t, a.Addr("http"))
	assert.Empty(t, a.Addr("https"))
	assert.Empty(t, a.Addr("metrics"))
}

func TestApp_Hardening(t *testing.T) {
	for _, engine := range []string{config.EngineNetHTTP, config.EngineFastHTTP} {
		t.Run(engine, func(t *testing.T) {
			cfg := testConfig(engine)
			cfg.Server.MaxBodySize = 8
			cfg.RateLimit = config.RateLimitConfig{RPS: 0.001, Burst: 2}
			a, _ := startApp(t, cfg)
			base := "http://" + a.Addr("http")

			resp, body := do(t, http.MethodPost, base+"/sample", `{"payload":"far too long"}`)
			assert.Equal(t, http.StatusRequestEntityTooLarge, resp.StatusCode)
			assert.JSONEq(t, `{"error":"request body too large"}`, body)
			assert.NotEmpty(t, resp.Header.Get(dispatch.RequestIDHeader))

			resp, _ = do(t, http.MethodGet, base+"/ping", "")
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			resp, body = do(t, http.MethodGet, base+"/ping", "")
			assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
			assert.JSONEq(t, `{"error":"rate limit exceeded"}`, body)
			assert.NotEmpty(t, resp.Header.Get(dispatch.RequestIDHeader))
		})
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	cfg := testConfig("gin")
	_, err := New(config.EffectiveConfigResult{Config: cfg}, "", "", "")
	assert.ErrorContains(t, err, "invalid server.engine")

	cfg = testConfig(config.EngineNetHTTP)
	cfg.Routes = map[string]string{"x": "nope"}
	_, err = New(config.EffectiveConfigResult{Config: cfg}, "", "", "")
	assert.ErrorContains(t, err, "unknown handler")
}

func TestRun_PortInUse(t *testing.T) {
	busy, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer busy.Close()

	cfg := testConfig(config.EngineNetHTTP)
	cfg.Metrics.Address = busy.Addr().String()
	reg := prometheus.NewRegistry()
	a, err := newApp(config.EffectiveConfigResult{Config: cfg}, "", "", "", telemetry.NewMetrics(reg), reg)
	require.NoError(t, err)
	a.out = io.Discard

	err = a.Run(context.Background())
	assert.ErrorContains(t, err, "listen metrics")
}
