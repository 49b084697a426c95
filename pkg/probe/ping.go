package probe

import (
	"context"
	"fmt"
	"time"

	"github.com/go-ping/ping"

	"traffic-gen/pkg/catalog"
)

// Ping sends a single ICMP echo to the target and waits up to the
// configured timeout for a reply. Unprivileged UDP ping is the default;
// set probes.ping.privileged when running as root or with CAP_NET_RAW.
func (p *Prober) Ping(ctx context.Context, t catalog.Target) Outcome {
	if err := ctx.Err(); err != nil {
		return outcome(t, TestPing, false, err.Error())
	}

	pinger, err := ping.NewPinger(t.Value)
	if err != nil {
		return outcome(t, TestPing, false, err.Error())
	}
	pinger.Count = 1
	pinger.Timeout = p.cfg.Probes.Ping.Timeout
	pinger.SetPrivileged(p.cfg.Probes.Ping.Privileged)

	p.logger.Debug("pinging target", "target", t.Value, "timeout", pinger.Timeout)

	if err := pinger.Run(); err != nil {
		return outcome(t, TestPing, false, err.Error())
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return outcome(t, TestPing, false, "no response")
	}
	return outcome(t, TestPing, true, fmt.Sprintf("rtt %s", stats.AvgRtt.Round(time.Microsecond)))
}
