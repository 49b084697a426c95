package probe

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/miekg/dns"

	"traffic-gen/pkg/catalog"
	"traffic-gen/pkg/classify"
)

// DNSQuery performs a single A-record lookup for the target domain
// against the configured resolver and classifies the response with the
// injected verdict rule. For expected-blocked domains the probe passes
// when the rule says blocked; for expected-allowed domains it passes
// when the rule says not blocked.
func (p *Prober) DNSQuery(ctx context.Context, t catalog.Target) Outcome {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(t.Value), dns.TypeA)
	m.RecursionDesired = true

	client := &dns.Client{
		Net:     "udp",
		Timeout: p.cfg.Probes.DNS.Timeout,
	}
	resolver := normalizeResolver(p.cfg.Resolver)

	p.logger.Debug("querying resolver",
		"domain", t.Value,
		"resolver", resolver,
		"timeout", client.Timeout,
	)

	resp, rtt, err := client.ExchangeContext(ctx, m, resolver)

	var obs classify.DNSObservation
	var detail string
	switch {
	case err != nil:
		obs.Failed = true
		obs.Timeout = isTimeout(err)
		detail = err.Error()
		if obs.Timeout {
			detail = fmt.Sprintf("timeout after %s", client.Timeout)
		}
	case resp == nil:
		obs.Failed = true
		detail = "no response from resolver"
	default:
		obs.Rcode = dns.RcodeToString[resp.Rcode]
		obs.Answers = answerAddrs(resp)
		if len(obs.Answers) > 0 {
			detail = fmt.Sprintf("resolved to %s (rtt %s)", strings.Join(obs.Answers, ", "), rtt.Round(time.Microsecond))
		} else {
			detail = obs.Rcode
		}
	}

	blocked, verr := p.rules.DNSBlocked(obs)
	if verr != nil {
		return outcome(t, TestDNSQuery, false, verr.Error())
	}

	passed := blocked == t.Category.ExpectBlocked()
	return outcome(t, TestDNSQuery, passed, detail)
}

// answerAddrs extracts A and AAAA addresses from the answer section.
func answerAddrs(resp *dns.Msg) []string {
	var addrs []string
	for _, rr := range resp.Answer {
		switch a := rr.(type) {
		case *dns.A:
			addrs = append(addrs, a.A.String())
		case *dns.AAAA:
			addrs = append(addrs, a.AAAA.String())
		}
	}
	return addrs
}

// normalizeResolver adds the default DNS port when none is present.
func normalizeResolver(addr string) string {
	if _, _, err := net.SplitHostPort(addr); err != nil {
		return net.JoinHostPort(addr, "53")
	}
	return addr
}
