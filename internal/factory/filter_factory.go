package factory

import (
	"fmt"

	"github.com/mikey/phish-fusion/internal/adapters/filter"
	"github.com/mikey/phish-fusion/internal/config"
	"github.com/mikey/phish-fusion/internal/ports"
	"go.uber.org/zap"
)

// FilterFactory creates email filters based on configuration
type FilterFactory struct {
	cfg    *config.Config
	logger *zap.Logger
	scorer ports.Scorer
}

// NewFilterFactory creates a new filter factory
func NewFilterFactory(cfg *config.Config, logger *zap.Logger, scorer ports.Scorer) *FilterFactory {
	return &FilterFactory{
		cfg:    cfg,
		logger: logger,
		scorer: scorer,
	}
}

// CreateEmailFilter creates an email filter based on the configuration
func (f *FilterFactory) CreateEmailFilter() (ports.EmailFilter, error) {
	filterType := f.cfg.GetString("server.filter_type")

	switch filterType {
	case "postfix":
		scanTimeout, err := f.cfg.GetDuration("server.scan_timeout")
		if err != nil {
			return nil, fmt.Errorf("invalid server.scan_timeout: %w", err)
		}
		return filter.NewPostfixFilter(f.scorer, f.logger, filter.PostfixConfig{
			ListenAddr: f.cfg.GetString("server.listen_address"),
			BlockSpam:  f.cfg.GetBool("server.block_spam"),
			Headers: filter.HeaderNames{
				Spam:     f.cfg.GetString("server.headers.spam"),
				Score:    f.cfg.GetString("server.headers.score"),
				Category: f.cfg.GetString("server.headers.category"),
				Reason:   f.cfg.GetString("server.headers.reason"),
				ID:       f.cfg.GetString("server.headers.id"),
			},
			PostfixAddr:    f.cfg.GetString("server.postfix.address"),
			PostfixPort:    f.cfg.GetInt("server.postfix.port"),
			PostfixEnabled: f.cfg.GetBool("server.postfix.enabled"),
			SubjectPrefix:  f.cfg.GetString("server.subject_prefix"),
			ModifySubject:  f.cfg.GetBool("server.modify_subject"),
			ScanTimeout:    scanTimeout,
		}), nil
	case "cli":
		return filter.NewCliFilter(f.scorer, f.logger, f.cfg.GetBool("cli.verbose"))
	default:
		return nil, fmt.Errorf("unsupported filter type: %s", filterType)
	}
}
