// Package probe implements the four single-shot probe executors:
// ICMP ping, DNS query, web fetch, and geo-IP web fetch. Every probe
// is one bounded attempt with no retry; any error becomes a failed
// Outcome, never a process error.
package probe

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/cookiejar"
	"os"
	"time"

	"traffic-gen/pkg/catalog"
	"traffic-gen/pkg/classify"
	"traffic-gen/pkg/config"
	"traffic-gen/pkg/logging"
)

// TestType labels the probe channel in outcome lines and the summary.
type TestType string

const (
	// TestPing is an ICMP echo probe
	TestPing TestType = "PING"
	// TestDNSQuery is a resolver lookup probe
	TestDNSQuery TestType = "DNS QUERY"
	// TestWebRequest is a browser-like HTTP fetch probe
	TestWebRequest TestType = "WEB REQUEST"
	// TestGeoIPWeb is an HTTP fetch against a raw geo-located IP
	TestGeoIPWeb TestType = "GEO-IP WEB"
)

// Outcome is the recorded result of one probe attempt against one
// target. Created once, never mutated.
type Outcome struct {
	Target    catalog.Target
	Type      TestType
	Passed    bool
	Detail    string
	Timestamp time.Time
}

// Prober executes probes using shared configuration and verdict rules.
type Prober struct {
	cfg    *config.Config
	rules  *classify.Rules
	logger *logging.Logger
	web    *http.Client
}

// New creates a Prober. A nil logger falls back to the process-wide
// logger. The HTTP client keeps a cookie jar across fetches within a
// run, like a real browser session would.
func New(cfg *config.Config, rules *classify.Rules, logger *logging.Logger) *Prober {
	if logger == nil {
		logger = logging.Global()
	}
	jar, _ := cookiejar.New(nil)
	return &Prober{
		cfg:    cfg,
		rules:  rules,
		logger: logger,
		web: &http.Client{
			Jar: jar,
			Transport: &http.Transport{
				MaxIdleConns:      4,
				IdleConnTimeout:   30 * time.Second,
				ForceAttemptHTTP2: true,
			},
		},
	}
}

// Close releases the shared HTTP client's idle connections.
func (p *Prober) Close() {
	p.web.CloseIdleConnections()
}

// outcome builds an Outcome, guaranteeing a non-empty detail on failure.
func outcome(t catalog.Target, tt TestType, passed bool, detail string) Outcome {
	if !passed && detail == "" {
		detail = "probe failed"
	}
	return Outcome{
		Target:    t,
		Type:      tt,
		Passed:    passed,
		Detail:    detail,
		Timestamp: time.Now(),
	}
}

// isTimeout reports whether err is a deadline-style failure.
func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
