package dns

import (
	"strings"
)

// structuredTypes are the record types whose value is carried in the
// structured "data" field instead of the scalar "content" field.
var structuredTypes = map[string]bool{
	"CAA":    true,
	"CERT":   true,
	"DNSKEY": true,
	"DS":     true,
	"HTTPS":  true,
	"LOC":    true,
	"NAPTR":  true,
	"SMIMEA": true,
	"SRV":    true,
	"SSHFP":  true,
	"SVCB":   true,
	"TLSA":   true,
	"URI":    true,
}

// IsStructuredType reports whether records of the given type use "data".
func IsStructuredType(recordType string) bool {
	return structuredTypes[strings.ToUpper(recordType)]
}

// ZoneForHostname picks the zone that owns an FQDN: the zone whose name equals
// the hostname or is its longest dot-separated suffix.
// e.g. "app.eu.example.com" with zones "example.com", "eu.example.com" → "eu.example.com"
func ZoneForHostname(fqdn string, zones []Zone) (Zone, bool) {
	fqdn = strings.ToLower(strings.TrimSuffix(fqdn, "."))
	var best Zone
	bestName := ""
	found := false
	for _, z := range zones {
		name := strings.ToLower(strings.TrimSuffix(z.Name, "."))
		if name == "" {
			continue
		}
		if fqdn != name && !strings.HasSuffix(fqdn, "."+name) {
			continue
		}
		if !found || len(name) > len(bestName) {
			best, bestName = z, name
			found = true
		}
	}
	return best, found
}
