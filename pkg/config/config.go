// Package config loads and validates the traffic-gen configuration file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"traffic-gen/pkg/catalog"
)

// Config holds the application configuration
type Config struct {
	// Resolver is the DNS server queried by the DNS probe (host[:port])
	Resolver string `yaml:"resolver"`

	// Seed makes pacing and sampling reproducible; 0 means time-seeded
	Seed int64 `yaml:"seed"`

	// Per-probe settings
	Probes ProbesConfig `yaml:"probes"`

	// Human-like delays between probes
	Pacing PacingConfig `yaml:"pacing"`

	// Random sampling of the allowed lists
	Sampling SamplingConfig `yaml:"sampling"`

	// Blocked/allowed verdict expressions
	Verdicts VerdictConfig `yaml:"verdicts"`

	// Per-run transcript file
	RunLog RunLogConfig `yaml:"run_log"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Target catalog
	Targets catalog.Document `yaml:"targets"`
}

// ProbesConfig holds per-probe-type settings
type ProbesConfig struct {
	Ping  PingConfig  `yaml:"ping"`
	DNS   DNSConfig   `yaml:"dns"`
	Web   WebConfig   `yaml:"web"`
	GeoIP GeoIPConfig `yaml:"geoip"`
}

// PingConfig holds ICMP echo settings
type PingConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	Privileged bool          `yaml:"privileged"` // raw sockets vs UDP ping
}

// DNSConfig holds resolver query settings
type DNSConfig struct {
	Timeout time.Duration `yaml:"timeout"`
}

// WebConfig holds HTTP fetch settings, shaped to look like a browser
type WebConfig struct {
	Timeout        time.Duration `yaml:"timeout"`
	GeoTimeout     time.Duration `yaml:"geo_timeout"` // geo-ip fetches get a shorter bound
	UserAgent      string        `yaml:"user_agent"`
	AcceptLanguage string        `yaml:"accept_language"`
}

// GeoIPConfig holds geo-ip probe settings
type GeoIPConfig struct {
	// Ping controls whether each geo-ip target is also pinged before
	// the web fetch, like the original demo. Defaults to true; the
	// pointer distinguishes "unset" from an explicit false.
	Ping *bool `yaml:"ping"`
}

// PingEnabled returns the geo-ip ping setting with its default applied.
func (g GeoIPConfig) PingEnabled() bool {
	return g.Ping == nil || *g.Ping
}

// PacingConfig holds inter-probe delay bounds per category
type PacingConfig struct {
	Enabled bool       `yaml:"enabled"`
	Ping    DelayRange `yaml:"ping"`
	DNS     DelayRange `yaml:"dns"`
	Web     DelayRange `yaml:"web"`
	GeoIP   DelayRange `yaml:"geoip"`
}

// DelayRange is a uniform random delay interval
type DelayRange struct {
	Min time.Duration `yaml:"min"`
	Max time.Duration `yaml:"max"`
}

// SamplingConfig limits how many allowed targets a run probes.
// An explicit 0 means probe every target; the pointers distinguish
// "unset" (take the default cap) from that explicit 0.
type SamplingConfig struct {
	AllowedDomains *int `yaml:"allowed_domains"`
	AllowedURLs    *int `yaml:"allowed_urls"`
}

// DomainLimit returns the allowed-domain sample size, 0 meaning all.
func (s SamplingConfig) DomainLimit() int {
	if s.AllowedDomains == nil {
		return 0
	}
	return *s.AllowedDomains
}

// URLLimit returns the allowed-url sample size, 0 meaning all.
func (s SamplingConfig) URLLimit() int {
	if s.AllowedURLs == nil {
		return 0
	}
	return *s.AllowedURLs
}

// VerdictConfig holds the configurable blocked-detection expressions.
// Both are expr-lang boolean expressions; see pkg/classify for the
// variables each one may reference.
type VerdictConfig struct {
	DNSBlocked string   `yaml:"dns_blocked"`
	WebBlocked string   `yaml:"web_blocked"`
	Sinkholes  []string `yaml:"sinkholes"`
}

// RunLogConfig holds transcript file settings
type RunLogConfig struct {
	Dir string `yaml:"dir"`
}

// LoggingConfig holds diagnostic logging settings
type LoggingConfig struct {
	Level     string `yaml:"level"`      // debug, info, warn, error
	Format    string `yaml:"format"`     // json, text
	Output    string `yaml:"output"`     // stdout, stderr, file
	FilePath  string `yaml:"file_path"`  // if output=file
	AddSource bool   `yaml:"add_source"` // include source file/line
}

// Load loads the configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config YAML: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadWithDefaults creates a configuration with sensible defaults
func LoadWithDefaults() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// applyDefaults sets default values for unset configuration fields
func (c *Config) applyDefaults() {
	if c.Resolver == "" {
		c.Resolver = "1.1.1.1:53"
	}

	// Probe timeouts
	if c.Probes.Ping.Timeout == 0 {
		c.Probes.Ping.Timeout = 3 * time.Second
	}
	if c.Probes.DNS.Timeout == 0 {
		c.Probes.DNS.Timeout = 3 * time.Second
	}
	if c.Probes.Web.Timeout == 0 {
		c.Probes.Web.Timeout = 30 * time.Second
	}
	if c.Probes.Web.GeoTimeout == 0 {
		c.Probes.Web.GeoTimeout = 15 * time.Second
	}
	if c.Probes.Web.UserAgent == "" {
		c.Probes.Web.UserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
			"AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36"
	}
	if c.Probes.Web.AcceptLanguage == "" {
		c.Probes.Web.AcceptLanguage = "en-US,en;q=0.9"
	}

	// Pacing bounds from the demo defaults
	if c.Pacing.Ping == (DelayRange{}) {
		c.Pacing.Ping = DelayRange{Min: 500 * time.Millisecond, Max: 1500 * time.Millisecond}
	}
	if c.Pacing.DNS == (DelayRange{}) {
		c.Pacing.DNS = DelayRange{Min: 300 * time.Millisecond, Max: time.Second}
	}
	if c.Pacing.Web == (DelayRange{}) {
		c.Pacing.Web = DelayRange{Min: 2 * time.Second, Max: 5 * time.Second}
	}
	if c.Pacing.GeoIP == (DelayRange{}) {
		c.Pacing.GeoIP = DelayRange{Min: time.Second, Max: 2 * time.Second}
	}

	// Sampling caps keep demo runs short; an explicit 0 stays 0
	if c.Sampling.AllowedDomains == nil {
		c.Sampling.AllowedDomains = intPtr(15)
	}
	if c.Sampling.AllowedURLs == nil {
		c.Sampling.AllowedURLs = intPtr(20)
	}

	// Verdict defaults; see pkg/classify for the variable set
	if c.Verdicts.DNSBlocked == "" {
		c.Verdicts.DNSBlocked = `failed || rcode == "NXDOMAIN" || len(answers) == 0 || any(answers, # in sinkholes)`
	}
	if c.Verdicts.WebBlocked == "" {
		c.Verdicts.WebBlocked = `failed || timeout || status < 200 || status >= 400`
	}
	if len(c.Verdicts.Sinkholes) == 0 {
		c.Verdicts.Sinkholes = []string{"0.0.0.0", "127.0.0.1", "::"}
	}

	// Run log defaults
	if c.RunLog.Dir == "" {
		c.RunLog.Dir = "./logs"
	}

	// Logging defaults
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "text"
	}
	if c.Logging.Output == "" {
		c.Logging.Output = "stderr"
	}
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Resolver == "" {
		return fmt.Errorf("resolver cannot be empty")
	}

	if err := validateRange("pacing.ping", c.Pacing.Ping); err != nil {
		return err
	}
	if err := validateRange("pacing.dns", c.Pacing.DNS); err != nil {
		return err
	}
	if err := validateRange("pacing.web", c.Pacing.Web); err != nil {
		return err
	}
	if err := validateRange("pacing.geoip", c.Pacing.GeoIP); err != nil {
		return err
	}

	if c.Sampling.DomainLimit() < 0 || c.Sampling.URLLimit() < 0 {
		return fmt.Errorf("sampling limits cannot be negative")
	}

	// Validate logging level
	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	// Validate logging format
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		return fmt.Errorf("invalid logging format: %s (must be json or text)", c.Logging.Format)
	}

	// Validate logging output
	validOutputs := map[string]bool{
		"stdout": true,
		"stderr": true,
		"file":   true,
	}
	if !validOutputs[c.Logging.Output] {
		return fmt.Errorf("invalid logging output: %s (must be stdout, stderr, or file)", c.Logging.Output)
	}
	if c.Logging.Output == "file" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging.file_path must be set when output is 'file'")
	}

	return nil
}

// intPtr returns a pointer to v.
func intPtr(v int) *int {
	return &v
}

// validateRange checks that a delay interval is ordered and non-negative
func validateRange(name string, r DelayRange) error {
	if r.Min < 0 || r.Max < 0 {
		return fmt.Errorf("%s delays cannot be negative", name)
	}
	if r.Max < r.Min {
		return fmt.Errorf("%s: max delay %v is below min %v", name, r.Max, r.Min)
	}
	return nil
}
