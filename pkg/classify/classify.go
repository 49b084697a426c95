// Package classify decides whether a probe observation looks blocked.
//
// Detecting "blocked" from a DNS answer or an HTTP response is a
// heuristic that differs per firewall, so the rules are not hard-coded:
// they are boolean expr expressions compiled from configuration and
// evaluated against the observation.
//
// Variables available to the DNS rule:
//   - failed    bool      query error or no response
//   - timeout   bool      the query hit its deadline
//   - rcode     string    DNS response code ("NOERROR", "NXDOMAIN", ...)
//   - answers   []string  A/AAAA addresses in the answer section
//   - sinkholes []string  configured block/redirect addresses
//
// Variables available to the web rule:
//   - failed  bool    transport error or no response
//   - timeout bool    the navigation hit its deadline
//   - status  int     HTTP status code, 0 when there was no response
//   - body    string  lowercased first KB of the response body
package classify

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"traffic-gen/pkg/config"
)

// DNSObservation is what the DNS probe saw for one domain.
type DNSObservation struct {
	Failed  bool
	Timeout bool
	Rcode   string
	Answers []string
}

// WebObservation is what the web probe saw for one URL.
type WebObservation struct {
	Failed  bool
	Timeout bool
	Status  int
	Body    string
}

// Rules holds the compiled verdict programs.
type Rules struct {
	dnsBlocked *vm.Program
	webBlocked *vm.Program
	sinkholes  []string
}

// Compile compiles the verdict expressions from configuration.
// Compilation errors are startup-fatal; a rule that cannot compile
// must never silently classify traffic.
func Compile(cfg *config.VerdictConfig) (*Rules, error) {
	dnsProg, err := expr.Compile(cfg.DNSBlocked,
		expr.Env(dnsEnv(DNSObservation{}, nil)), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid dns_blocked expression: %w", err)
	}

	webProg, err := expr.Compile(cfg.WebBlocked,
		expr.Env(webEnv(WebObservation{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("invalid web_blocked expression: %w", err)
	}

	return &Rules{
		dnsBlocked: dnsProg,
		webBlocked: webProg,
		sinkholes:  cfg.Sinkholes,
	}, nil
}

// DNSBlocked evaluates the DNS verdict rule against an observation.
func (r *Rules) DNSBlocked(obs DNSObservation) (bool, error) {
	out, err := expr.Run(r.dnsBlocked, dnsEnv(obs, r.sinkholes))
	if err != nil {
		return false, fmt.Errorf("dns_blocked evaluation failed: %w", err)
	}
	return out.(bool), nil
}

// WebBlocked evaluates the web verdict rule against an observation.
func (r *Rules) WebBlocked(obs WebObservation) (bool, error) {
	out, err := expr.Run(r.webBlocked, webEnv(obs))
	if err != nil {
		return false, fmt.Errorf("web_blocked evaluation failed: %w", err)
	}
	return out.(bool), nil
}

// dnsEnv builds the expression environment for a DNS observation.
func dnsEnv(obs DNSObservation, sinkholes []string) map[string]any {
	if obs.Answers == nil {
		obs.Answers = []string{}
	}
	if sinkholes == nil {
		sinkholes = []string{}
	}
	return map[string]any{
		"failed":    obs.Failed,
		"timeout":   obs.Timeout,
		"rcode":     obs.Rcode,
		"answers":   obs.Answers,
		"sinkholes": sinkholes,
	}
}

// webEnv builds the expression environment for a web observation.
func webEnv(obs WebObservation) map[string]any {
	return map[string]any{
		"failed":  obs.Failed,
		"timeout": obs.Timeout,
		"status":  obs.Status,
		"body":    obs.Body,
	}
}
