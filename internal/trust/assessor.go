package trust

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/mikey/phish-fusion/internal/core"
	"go.uber.org/zap"
)

// Risk contributions
const (
	veryNewDomainRisk = 0.4
	newDomainRisk     = 0.2
	tlsMismatchRisk   = 0.2

	veryNewDomainDays = 30
	newDomainDays     = 180
)

// Assessor scores a host by registrar age and TLS certificate. Every
// lookup failure degrades to an unknown value.
type Assessor struct {
	lookup core.TrustLookup
	ages   *AgeCache
	now    func() time.Time
	logger *zap.Logger
}

// NewAssessor creates a new trust assessor. A nil lookup disables it.
func NewAssessor(lookup core.TrustLookup, ages *AgeCache, logger *zap.Logger) *Assessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Assessor{
		lookup: lookup,
		ages:   ages,
		now:    time.Now,
		logger: logger,
	}
}

// Assess looks up the registrar age and TLS common name of host
func (a *Assessor) Assess(ctx context.Context, host string) core.TrustReport {
	domain := RegistrableDomain(host)
	report := core.TrustReport{Host: host, Domain: domain}
	if a.lookup == nil || domain == "" {
		report.Skipped = true
		return report
	}

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		report.DomainAgeDays = a.domainAge(ctx, domain)
	}()

	go func() {
		defer wg.Done()
		report.TLSCommonName, report.TLSMismatch = a.certificate(ctx, host, domain)
	}()

	wg.Wait()

	risk := 0.0
	if age := report.DomainAgeDays; age != nil {
		switch {
		case *age < veryNewDomainDays:
			risk += veryNewDomainRisk
		case *age < newDomainDays:
			risk += newDomainRisk
		}
	}
	if report.TLSMismatch != nil && *report.TLSMismatch {
		risk += tlsMismatchRisk
	}
	report.Risk = core.Clamp(risk)

	a.logger.Debug("Assessed trust",
		zap.String("domain", domain),
		zap.Any("age_days", report.DomainAgeDays),
		zap.Any("tls_common_name", report.TLSCommonName),
		zap.Float64("trust_risk", report.Risk))

	return report
}

func (a *Assessor) domainAge(ctx context.Context, domain string) *int {
	// registrars hold no creation dates for addresses
	if net.ParseIP(domain) != nil || a.ages == nil {
		return nil
	}
	created, err := a.ages.CreatedAt(ctx, domain)
	if err != nil {
		a.logger.Warn("Registrar lookup failed", zap.String("domain", domain), zap.Error(err))
		return nil
	}
	if created == nil {
		return nil
	}
	days := AgeDays(*created, a.now())
	return &days
}

func (a *Assessor) certificate(ctx context.Context, host, domain string) (*string, *bool) {
	cn, err := a.lookup.CommonName(ctx, hostOnly(host))
	if err != nil {
		a.logger.Debug("TLS probe failed", zap.String("host", host), zap.Error(err))
		return nil, nil
	}
	if cn == "" {
		return nil, nil
	}
	mismatch := !CoveredBy(cn, domain)
	return &cn, &mismatch
}

func hostOnly(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return h
	}
	return host
}
