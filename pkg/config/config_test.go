package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
targets:
  dns_servers:
    - {value: 9.9.9.9, label: Quad9}
  blocked_domains:
    - msn.com
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "1.1.1.1:53", cfg.Resolver)
	assert.Equal(t, 3*time.Second, cfg.Probes.Ping.Timeout)
	assert.Equal(t, 30*time.Second, cfg.Probes.Web.Timeout)
	assert.Equal(t, 15*time.Second, cfg.Probes.Web.GeoTimeout)
	assert.NotEmpty(t, cfg.Probes.Web.UserAgent)
	assert.True(t, cfg.Probes.GeoIP.PingEnabled())
	assert.Equal(t, 15, cfg.Sampling.DomainLimit())
	assert.Equal(t, 20, cfg.Sampling.URLLimit())
	assert.NotEmpty(t, cfg.Verdicts.DNSBlocked)
	assert.NotEmpty(t, cfg.Verdicts.WebBlocked)
	assert.Contains(t, cfg.Verdicts.Sinkholes, "0.0.0.0")
	assert.Equal(t, "./logs", cfg.RunLog.Dir)
	assert.Equal(t, "info", cfg.Logging.Level)

	// Targets parsed through both entry forms
	require.Len(t, cfg.Targets.DNSServers, 1)
	assert.Equal(t, "Quad9", cfg.Targets.DNSServers[0].Label)
	require.Len(t, cfg.Targets.BlockedDomains, 1)
	assert.Equal(t, "msn.com", cfg.Targets.BlockedDomains[0].Value)
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
resolver: 9.9.9.9
seed: 42
probes:
  ping:
    timeout: 1s
    privileged: true
  web:
    timeout: 5s
  geoip:
    ping: false
pacing:
  enabled: true
  dns: {min: 10ms, max: 20ms}
verdicts:
  dns_blocked: 'rcode == "REFUSED"'
logging:
  level: debug
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "9.9.9.9", cfg.Resolver)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, time.Second, cfg.Probes.Ping.Timeout)
	assert.True(t, cfg.Probes.Ping.Privileged)
	assert.Equal(t, 5*time.Second, cfg.Probes.Web.Timeout)
	assert.False(t, cfg.Probes.GeoIP.PingEnabled())
	assert.True(t, cfg.Pacing.Enabled)
	assert.Equal(t, 10*time.Millisecond, cfg.Pacing.DNS.Min)
	assert.Equal(t, `rcode == "REFUSED"`, cfg.Verdicts.DNSBlocked)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadSamplingZeroMeansAll(t *testing.T) {
	path := writeConfig(t, `
sampling:
  allowed_domains: 0
  allowed_urls: 0
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	// An explicit 0 disables the cap; only unset fields take defaults
	assert.Equal(t, 0, cfg.Sampling.DomainLimit())
	assert.Equal(t, 0, cfg.Sampling.URLLimit())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "targets: [unclosed")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			mutate: func(c *Config) {},
		},
		{
			name:    "bad logging level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "invalid logging level",
		},
		{
			name:    "bad logging format",
			mutate:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "invalid logging format",
		},
		{
			name:    "file output without path",
			mutate:  func(c *Config) { c.Logging.Output = "file" },
			wantErr: "file_path",
		},
		{
			name:    "negative sampling",
			mutate:  func(c *Config) { c.Sampling.AllowedURLs = intPtr(-1) },
			wantErr: "sampling",
		},
		{
			name: "inverted pacing range",
			mutate: func(c *Config) {
				c.Pacing.Web = DelayRange{Min: 2 * time.Second, Max: time.Second}
			},
			wantErr: "pacing.web",
		},
		{
			name:    "negative pacing delay",
			mutate:  func(c *Config) { c.Pacing.Ping.Min = -time.Second },
			wantErr: "pacing.ping",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := LoadWithDefaults()
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}
