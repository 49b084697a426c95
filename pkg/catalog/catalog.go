// Package catalog models the target catalog: the categorized list of
// DNS servers, domains, URLs, and geo-located IPs that a run probes.
// It supports two YAML entry forms:
//   - Scalar: example.com
//   - Mapping: {value: 9.9.9.9, label: Quad9}
package catalog

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"gopkg.in/yaml.v3"
)

// Category identifies which catalog list a target came from.
type Category string

const (
	// CategoryDNSServer is a DNS server address probed with ICMP echo.
	CategoryDNSServer Category = "dns_server"
	// CategoryBlockedDomain is a domain expected to be blocked at the resolver.
	CategoryBlockedDomain Category = "blocked_domain"
	// CategoryAllowedDomain is a domain expected to resolve normally.
	CategoryAllowedDomain Category = "allowed_domain"
	// CategoryBlockedURL is a URL expected to be intercepted by the firewall.
	CategoryBlockedURL Category = "blocked_url"
	// CategoryAllowedURL is a URL expected to load normally.
	CategoryAllowedURL Category = "allowed_url"
	// CategoryGeoIP is a raw IP address in a geo-blocked region.
	CategoryGeoIP Category = "geo_ip"
)

// ExpectBlocked reports whether targets in this category are expected
// to be blocked by the firewall under test.
func (c Category) ExpectBlocked() bool {
	return c == CategoryBlockedDomain || c == CategoryBlockedURL
}

// Target is a single probe target. Immutable after load.
type Target struct {
	Category Category
	Value    string
	Label    string
}

// Display returns the human-readable form used in result lines:
// "label (value)" when a label exists, the bare value otherwise.
func (t Target) Display() string {
	if t.Label != "" {
		return fmt.Sprintf("%s (%s)", t.Label, t.Value)
	}
	return t.Value
}

// Validate checks that the target value is well formed for its category.
// A failing target is skipped by the harness, not fatal to the run.
func (t Target) Validate() error {
	if strings.TrimSpace(t.Value) == "" {
		return fmt.Errorf("empty target value in category %s", t.Category)
	}

	switch t.Category {
	case CategoryDNSServer:
		// Hostname or IP, but never a URL
		if strings.Contains(t.Value, "://") {
			return fmt.Errorf("dns server %q must be a host or IP, not a URL", t.Value)
		}
	case CategoryBlockedDomain, CategoryAllowedDomain:
		if strings.Contains(t.Value, "://") || strings.Contains(t.Value, "/") {
			return fmt.Errorf("domain %q must be a bare name", t.Value)
		}
		if !strings.Contains(t.Value, ".") {
			return fmt.Errorf("domain %q has no dot", t.Value)
		}
	case CategoryBlockedURL, CategoryAllowedURL:
		u, err := url.Parse(t.Value)
		if err != nil {
			return fmt.Errorf("invalid URL %q: %w", t.Value, err)
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			return fmt.Errorf("URL %q must use http or https", t.Value)
		}
		if u.Host == "" {
			return fmt.Errorf("URL %q has no host", t.Value)
		}
	case CategoryGeoIP:
		if net.ParseIP(t.Value) == nil {
			return fmt.Errorf("geo-ip target %q is not an IP address", t.Value)
		}
	default:
		return fmt.Errorf("unknown category %q", t.Category)
	}

	return nil
}

// Entry is one catalog element as written in YAML. It accepts either a
// bare scalar value or a {value, label} mapping.
type Entry struct {
	Value string `yaml:"value"`
	Label string `yaml:"label"`
}

// UnmarshalYAML implements yaml.Unmarshaler for the two entry forms.
func (e *Entry) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.ScalarNode {
		return node.Decode(&e.Value)
	}

	// Avoid recursing back into this method
	type plain Entry
	var p plain
	if err := node.Decode(&p); err != nil {
		return err
	}
	*e = Entry(p)
	return nil
}

// Document is the `targets` section of the configuration file.
type Document struct {
	DNSServers     []Entry            `yaml:"dns_servers"`
	BlockedDomains []Entry            `yaml:"blocked_domains"`
	AllowedDomains []Entry            `yaml:"allowed_domains"`
	BlockedURLs    []Entry            `yaml:"blocked_urls"`
	AllowedURLs    []Entry            `yaml:"allowed_urls"`
	GeoIP          map[string][]Entry `yaml:"geoip"`
}

// Group is one ordered category of targets.
type Group struct {
	Category Category
	Targets  []Target
}

// Catalog holds the loaded targets in run order.
type Catalog struct {
	groups []Group
}

// Build converts a parsed Document into a Catalog. Categories keep the
// fixed run order; geo-ip regions are sorted by name so runs are
// deterministic regardless of YAML map iteration.
func Build(doc Document) *Catalog {
	c := &Catalog{}

	c.groups = append(c.groups,
		group(CategoryDNSServer, doc.DNSServers),
		group(CategoryBlockedDomain, doc.BlockedDomains),
		group(CategoryAllowedDomain, doc.AllowedDomains),
		group(CategoryBlockedURL, doc.BlockedURLs),
		group(CategoryAllowedURL, doc.AllowedURLs),
	)

	regions := make([]string, 0, len(doc.GeoIP))
	for region := range doc.GeoIP {
		regions = append(regions, region)
	}
	sort.Strings(regions)

	geo := Group{Category: CategoryGeoIP}
	for _, region := range regions {
		for _, e := range doc.GeoIP[region] {
			label := titleCase(region)
			if e.Label != "" {
				label += " - " + e.Label
			}
			geo.Targets = append(geo.Targets, Target{
				Category: CategoryGeoIP,
				Value:    e.Value,
				Label:    label,
			})
		}
	}
	c.groups = append(c.groups, geo)

	return c
}

// group converts entries of one category.
func group(cat Category, entries []Entry) Group {
	g := Group{Category: cat}
	for _, e := range entries {
		g.Targets = append(g.Targets, Target{Category: cat, Value: e.Value, Label: e.Label})
	}
	return g
}

// Groups returns the catalog categories in run order.
func (c *Catalog) Groups() []Group {
	return c.groups
}

// Len returns the total number of targets across all categories.
func (c *Catalog) Len() int {
	n := 0
	for _, g := range c.groups {
		n += len(g.Targets)
	}
	return n
}

// titleCase upper-cases the first rune ("france" -> "France",
// "île-de-france" -> "Île-de-france").
func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
