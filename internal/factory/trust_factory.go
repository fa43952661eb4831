package factory

import (
	"github.com/mikey/phish-fusion/internal/adapters/trustlookup"
	"github.com/mikey/phish-fusion/internal/config"
	"github.com/mikey/phish-fusion/internal/core"
	"github.com/mikey/phish-fusion/internal/trust"
	"go.uber.org/zap"
)

// TrustFactory creates the trust assessor and its network lookups
type TrustFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewTrustFactory creates a new trust factory
func NewTrustFactory(cfg *config.Config, logger *zap.Logger) *TrustFactory {
	return &TrustFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateTrustAssessor creates a trust assessor backed by store. It returns
// nil when trust lookups are disabled.
func (f *TrustFactory) CreateTrustAssessor(store core.AgeStore) (core.TrustAssessor, error) {
	trustCfg, err := f.cfg.GetTrust()
	if err != nil {
		return nil, err
	}
	if !trustCfg.Enabled {
		f.logger.Info("Trust lookups disabled")
		return nil, nil
	}

	lookup := trustlookup.NewNetworkLookup(trustlookup.Config{
		WhoisTimeout: trustCfg.WhoisTimeout,
		WhoisRetries: trustCfg.WhoisRetries,
		TLSTimeout:   trustCfg.TLSTimeout,
		TLSPort:      trustCfg.TLSPort,
	}, f.logger)

	ages := trust.NewAgeCache(store, lookup, f.logger)
	return trust.NewAssessor(lookup, ages, f.logger), nil
}
