package probe

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"traffic-gen/pkg/catalog"
	"traffic-gen/pkg/classify"
)

// bodyPeek is how much of the response body the verdict rule may see.
const bodyPeek = 1024

// WebRequest fetches the target URL with a browser-like request and
// classifies the response with the injected web verdict rule.
func (p *Prober) WebRequest(ctx context.Context, t catalog.Target) Outcome {
	expectBlocked := t.Category.ExpectBlocked()
	return p.fetch(ctx, t, TestWebRequest, t.Value, p.cfg.Probes.Web.Timeout, expectBlocked)
}

// GeoIPWeb fetches http://<ip> for a raw geo-located address. The probe
// passes when the fetch succeeds, mirroring the ping half of the geo
// test: the demo expects these addresses to answer unless a geographic
// rule intercepts them.
func (p *Prober) GeoIPWeb(ctx context.Context, t catalog.Target) Outcome {
	host := t.Value
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return p.fetch(ctx, t, TestGeoIPWeb, "http://"+host, p.cfg.Probes.Web.GeoTimeout, false)
}

// fetch performs one bounded navigation and maps it to an Outcome.
func (p *Prober) fetch(ctx context.Context, t catalog.Target, tt TestType, url string, timeout time.Duration, expectBlocked bool) Outcome {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return outcome(t, tt, false, err.Error())
	}
	p.setBrowserHeaders(req)

	p.logger.Debug("fetching url", "url", url, "timeout", timeout)

	resp, err := p.web.Do(req)

	var obs classify.WebObservation
	var detail string
	if err != nil {
		obs.Failed = true
		obs.Timeout = isTimeout(err)
		detail = err.Error()
		if obs.Timeout {
			detail = fmt.Sprintf("timeout after %s", timeout)
		}
	} else {
		obs.Status = resp.StatusCode
		peek, _ := io.ReadAll(io.LimitReader(resp.Body, bodyPeek))
		resp.Body.Close()
		obs.Body = strings.ToLower(string(peek))
		detail = fmt.Sprintf("status %d", resp.StatusCode)
	}

	blocked, verr := p.rules.WebBlocked(obs)
	if verr != nil {
		return outcome(t, tt, false, verr.Error())
	}

	passed := blocked == expectBlocked
	return outcome(t, tt, passed, detail)
}

// setBrowserHeaders makes the request look like an ordinary desktop
// browser navigation rather than a tool fetch.
func (p *Prober) setBrowserHeaders(req *http.Request) {
	req.Header.Set("User-Agent", p.cfg.Probes.Web.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", p.cfg.Probes.Web.AcceptLanguage)
	req.Header.Set("Upgrade-Insecure-Requests", "1")
	req.Header.Set("Sec-Fetch-Dest", "document")
	req.Header.Set("Sec-Fetch-Mode", "navigate")
	req.Header.Set("Sec-Fetch-Site", "none")
	req.Header.Set("Sec-Fetch-User", "?1")
}
