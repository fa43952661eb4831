package factory

import (
	"fmt"

	"github.com/mikey/phish-fusion/internal/adapters/bedrock"
	"github.com/mikey/phish-fusion/internal/adapters/gemini"
	"github.com/mikey/phish-fusion/internal/adapters/openai"
	"github.com/mikey/phish-fusion/internal/config"
	"github.com/mikey/phish-fusion/internal/core"
	"github.com/mikey/phish-fusion/internal/utils"
	"go.uber.org/zap"
)

// ClassifierFactory creates text classifiers
type ClassifierFactory struct {
	cfg           *config.Config
	logger        *zap.Logger
	textProcessor *utils.TextProcessor
}

// NewClassifierFactory creates a new classifier factory
func NewClassifierFactory(cfg *config.Config, logger *zap.Logger, textProcessor *utils.TextProcessor) *ClassifierFactory {
	return &ClassifierFactory{
		cfg:           cfg,
		logger:        logger,
		textProcessor: textProcessor,
	}
}

// CreateClassifier creates a classifier based on the configuration. A
// disabled classifier yields nil and the engine fuses without it.
func (f *ClassifierFactory) CreateClassifier() (core.Classifier, error) {
	classifierCfg := f.cfg.GetClassifier()
	if !classifierCfg.Enabled || classifierCfg.Provider == "none" {
		f.logger.Warn("Classifier disabled, verdicts use extracted signals only")
		return nil, nil
	}

	switch classifierCfg.Provider {
	case "bedrock":
		return bedrock.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier()
	case "gemini":
		return gemini.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier()
	case "openai":
		return openai.NewFactory(f.cfg, f.logger, f.textProcessor).CreateClassifier()
	default:
		return nil, fmt.Errorf("unsupported classifier provider: %s", classifierCfg.Provider)
	}
}
