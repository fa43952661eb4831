package whitelist

import (
	"strings"

	"go.uber.org/zap"
)

// Attenuation is subtracted from the spam probability of trusted senders
const Attenuation = 0.1

// DefaultDomains are trusted when no list is configured
var DefaultDomains = []string{
	"google.com",
	"gmail.com",
	"apple.com",
	"amazon.com",
	"microsoft.com",
	"outlook.com",
	"live.com",
	"paypal.com",
	"netflix.com",
}

// Checker provides functionality to check if sender domains are whitelisted
type Checker struct {
	domains []string
	logger  *zap.Logger
}

// NewChecker creates a new whitelist checker
func NewChecker(domains []string, logger *zap.Logger) *Checker {
	if logger == nil {
		logger = zap.NewNop()
	}

	// Normalize domains (lowercase)
	normalizedDomains := make([]string, 0, len(domains))
	for _, domain := range domains {
		domain = strings.Trim(strings.ToLower(strings.TrimSpace(domain)), ".")
		if domain != "" {
			normalizedDomains = append(normalizedDomains, domain)
		}
	}

	if len(normalizedDomains) > 0 {
		logger.Info("Initialized whitelist checker", zap.Strings("domains", normalizedDomains))
	}

	return &Checker{
		domains: normalizedDomains,
		logger:  logger,
	}
}

// IsWhitelisted checks if a sender domain equals or is a subdomain of a
// whitelisted domain. A full address is accepted too.
func (c *Checker) IsWhitelisted(from string) bool {
	if len(c.domains) == 0 {
		return false
	}

	domain := strings.ToLower(strings.TrimSpace(from))
	if at := strings.LastIndex(domain, "@"); at >= 0 {
		domain = domain[at+1:]
	}
	domain = strings.Trim(domain, ".>")
	if domain == "" {
		return false
	}

	for _, whitelisted := range c.domains {
		if domain == whitelisted || strings.HasSuffix(domain, "."+whitelisted) {
			c.logger.Debug("Domain is whitelisted",
				zap.String("domain", domain),
				zap.String("matched", whitelisted))
			return true
		}
	}

	return false
}

// Attenuate lowers spamProb by Attenuation for whitelisted senders, never
// below zero. Other senders pass through unchanged.
func (c *Checker) Attenuate(spamProb float64, fromDomain *string) float64 {
	if fromDomain == nil || !c.IsWhitelisted(*fromDomain) {
		return spamProb
	}
	if spamProb-Attenuation < 0 {
		return 0
	}
	return spamProb - Attenuation
}
