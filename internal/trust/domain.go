package trust

import (
	"net"
	"strings"
	"time"

	"github.com/araddon/dateparse"
	"golang.org/x/net/publicsuffix"
)

// registrarLayouts are tried before handing a date to dateparse
var registrarLayouts = []string{
	"2006-01-02",
	"02-Jan-2006",
	"2006.01.02",
	"2006/01/02",
}

// RegistrableDomain reduces a host to its public suffix plus one label.
// Without public suffix data it keeps the last two labels.
func RegistrableDomain(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" || net.ParseIP(host) != nil {
		return host
	}

	if domain, err := publicsuffix.EffectiveTLDPlusOne(host); err == nil {
		return domain
	}

	labels := strings.Split(host, ".")
	if len(labels) <= 2 {
		return host
	}
	return strings.Join(labels[len(labels)-2:], ".")
}

// ParseCreationDate parses one registrar date. Dates without a zone are UTC.
func ParseCreationDate(value string) (time.Time, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, false
	}
	for _, layout := range registrarLayouts {
		if t, err := time.ParseInLocation(layout, value, time.UTC); err == nil {
			return t, true
		}
	}
	if t, err := dateparse.ParseIn(value, time.UTC); err == nil {
		return t.UTC(), true
	}
	return time.Time{}, false
}

// EarliestDate returns the earliest parseable date, or nil if none parse
func EarliestDate(values []string) *time.Time {
	var earliest *time.Time
	for _, v := range values {
		t, ok := ParseCreationDate(v)
		if !ok {
			continue
		}
		if earliest == nil || t.Before(*earliest) {
			earliest = &t
		}
	}
	return earliest
}

// AgeDays is the whole number of days between created and now
func AgeDays(created, now time.Time) int {
	return int(now.Sub(created).Hours() / 24)
}

// CoveredBy reports whether a certificate common name covers the domain:
// equal to it or a subdomain of it, after stripping a wildcard label.
func CoveredBy(commonName, domain string) bool {
	cn := strings.TrimSuffix(strings.ToLower(strings.TrimSpace(commonName)), ".")
	cn = strings.TrimPrefix(cn, "*.")
	domain = strings.ToLower(domain)
	return cn == domain || strings.HasSuffix(cn, "."+domain)
}
