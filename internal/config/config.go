package config

import (
	"fmt"
	"net"
	"os"
	"sort"
	"strings"

	"go.yaml.in/yaml/v3"
)

// Target is the record a hostname should resolve through.
type Target struct {
	Type  string // "A", "AAAA" or "CNAME"
	Value string
}

// DomainMap maps base domains (optionally wildcards) to record targets.
type DomainMap struct {
	entries map[string]string
}

// LoadDomainMap reads a YAML file mapping domains to IPs or CNAME targets.
func LoadDomainMap(path string) (*DomainMap, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading domain map file: %w", err)
	}

	entries := make(map[string]string)
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parsing domain map file: %w", err)
	}
	for domain, value := range entries {
		if strings.TrimSpace(value) == "" {
			return nil, fmt.Errorf("domain map: empty target for %q", domain)
		}
	}

	return &DomainMap{entries: entries}, nil
}

// targetFor infers the record type from the mapped value.
func targetFor(value string) Target {
	value = strings.TrimSpace(value)
	if ip := net.ParseIP(value); ip != nil {
		if ip.To4() != nil {
			return Target{Type: "A", Value: value}
		}
		return Target{Type: "AAAA", Value: value}
	}
	return Target{Type: "CNAME", Value: strings.TrimSuffix(value, ".")}
}

// Lookup finds the target for a hostname by walking up its labels. At each
// level an exact entry wins over a wildcard one. Given:
//
//	"*.mydomain.com":    "10.0.0.1"
//	"app2.mydomain.com": "lb.example.net"
//
// "app1.mydomain.com" returns A 10.0.0.1 and "app2.mydomain.com" returns
// CNAME lb.example.net.
func (dm *DomainMap) Lookup(hostname string) (Target, bool) {
	hostname = strings.TrimSuffix(hostname, ".")
	for h := hostname; h != ""; {
		if v, ok := dm.entries[h]; ok {
			return targetFor(v), true
		}
		idx := strings.Index(h, ".")
		if idx < 0 {
			break
		}
		if v, ok := dm.entries["*."+h[idx+1:]]; ok {
			return targetFor(v), true
		}
		h = h[idx+1:]
	}
	return Target{}, false
}

// Domains returns all configured base domains, sorted.
func (dm *DomainMap) Domains() []string {
	domains := make([]string, 0, len(dm.entries))
	for d := range dm.entries {
		domains = append(domains, d)
	}
	sort.Strings(domains)
	return domains
}
