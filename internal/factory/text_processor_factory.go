package factory

import (
	"github.com/mikey/phish-fusion/internal/config"
	"github.com/mikey/phish-fusion/internal/utils"
	"go.uber.org/zap"
)

// TextProcessorFactory creates the normalizer that prepares classifier input
type TextProcessorFactory struct {
	config *config.Config
	logger *zap.Logger
}

// NewTextProcessorFactory creates a new TextProcessorFactory
func NewTextProcessorFactory(cfg *config.Config, logger *zap.Logger) *TextProcessorFactory {
	return &TextProcessorFactory{
		config: cfg,
		logger: logger,
	}
}

// CreateTextProcessor creates a TextProcessor from the normalizer section
func (f *TextProcessorFactory) CreateTextProcessor() *utils.TextProcessor {
	extra := f.config.GetStringSlice("normalizer.extra_stop_words")
	stem := f.config.GetBool("normalizer.stem")

	f.logger.Debug("Creating text processor",
		zap.Bool("stem", stem),
		zap.Int("extra_stop_words", len(extra)))

	return utils.NewTextProcessor(f.logger).
		WithStemming(stem).
		WithStopWords(extra)
}
