package banner

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"uptime/pkg/config"
)

func TestPrint(t *testing.T) {
	cfg := config.Defaults("production")
	cfg.Dispatch.ReplyTimeout = config.Duration(2 * time.Second)
	cfg.Metrics.Address = "127.0.0.1:9100"

	var buf bytes.Buffer
	Print(&buf, config.EffectiveConfigResult{Config: cfg, ConfigPath: "c.yaml", Source: "config"}, []string{"hello", "ping"}, "1.2.3")
	out := buf.String()

	assert.Contains(t, out, "Env:      production")
	assert.Contains(t, out, "HTTP:     0.0.0.0:5000")
	assert.Contains(t, out, "HTTPS:    disabled")
	assert.Contains(t, out, "Metrics:  127.0.0.1:9100")
	assert.Contains(t, out, "Config:   config (c.yaml)")
	assert.Contains(t, out, "- hello, ping")
	assert.Contains(t, out, "- Max body size: unlimited")
	assert.Contains(t, out, "- Reply timeout: 2s")
	assert.Contains(t, out, "- Rate limit: disabled")
}
