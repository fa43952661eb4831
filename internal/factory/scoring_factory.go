package factory

import (
	"github.com/mikey/phish-fusion/internal/config"
	"github.com/mikey/phish-fusion/internal/core"
	"github.com/mikey/phish-fusion/internal/headerauth"
	"github.com/mikey/phish-fusion/internal/heuristics"
	"github.com/mikey/phish-fusion/internal/homograph"
	"github.com/mikey/phish-fusion/internal/urlintel"
	"github.com/mikey/phish-fusion/internal/utils"
	"github.com/mikey/phish-fusion/internal/whitelist"
	"go.uber.org/zap"
)

// ScoringFactory assembles the scoring service from its extractors
type ScoringFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewScoringFactory creates a new scoring factory
func NewScoringFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ScoringFactory {
	return &ScoringFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateScoringService wires the extractors, the fusion engine and the
// optional classifier and trust assessor into a scoring service
func (f *ScoringFactory) CreateScoringService(classifier core.Classifier, trustAssessor core.TrustAssessor) *core.ScoringService {
	checker := whitelist.NewChecker(f.cfg.GetStringSlice("spam.whitelisted_domains"), f.logger)

	engine := core.NewFusionEngine(
		f.cfg.GetHeaderWeights(),
		f.cfg.GetNoHeaderWeights(),
		f.cfg.GetClassifier().Categories,
		checker,
		f.logger,
	)

	extractors := core.Extractors{
		URLs:      urlintel.NewAnalyzer(f.logger),
		Headers:   headerauth.NewParser(f.logger),
		Homograph: homograph.NewDetector(f.logger),
		Content:   heuristics.NewAnalyzer(f.logger),
		Trust:     trustAssessor,
	}

	var normalizer core.TextNormalizer
	if f.textProcessor != nil {
		normalizer = f.textProcessor
	}

	return core.NewScoringService(classifier, normalizer, extractors, engine, f.logger)
}
