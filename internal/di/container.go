package di

import (
	"go.uber.org/dig"

	"github.com/mikey/phish-fusion/internal/config"
	"github.com/mikey/phish-fusion/internal/core"
	"github.com/mikey/phish-fusion/internal/factory"
	"github.com/mikey/phish-fusion/internal/logging"
	"github.com/mikey/phish-fusion/internal/ports"
	"github.com/mikey/phish-fusion/internal/utils"
)

// BuildContainer creates and configures a dependency injection container
func BuildContainer() (*dig.Container, error) {
	container := dig.New()

	// Register configuration
	if err := container.Provide(config.New); err != nil {
		return nil, err
	}

	// Register logger
	if err := container.Provide(logging.InitLogger); err != nil {
		return nil, err
	}

	if err := provideScoring(container); err != nil {
		return nil, err
	}

	return container, nil
}

// provideScoring registers everything from the text processor up to the
// email filter. Configuration and logger must already be provided.
func provideScoring(container *dig.Container) error {
	// Register factories
	for _, ctor := range []interface{}{
		factory.NewTextProcessorFactory,
		factory.NewClassifierFactory,
		factory.NewCacheFactory,
		factory.NewTrustFactory,
		factory.NewScoringFactory,
		factory.NewFilterFactory,
	} {
		if err := container.Provide(ctor); err != nil {
			return err
		}
	}

	// Register text processor
	if err := container.Provide(func(f *factory.TextProcessorFactory) *utils.TextProcessor {
		return f.CreateTextProcessor()
	}); err != nil {
		return err
	}

	// Register classifier
	if err := container.Provide(func(f *factory.ClassifierFactory) (core.Classifier, error) {
		return f.CreateClassifier()
	}); err != nil {
		return err
	}

	// Register domain age store
	if err := container.Provide(func(f *factory.CacheFactory) (core.AgeStore, error) {
		return f.CreateAgeStore()
	}); err != nil {
		return err
	}

	// Register trust assessor
	if err := container.Provide(func(f *factory.TrustFactory, store core.AgeStore) (core.TrustAssessor, error) {
		return f.CreateTrustAssessor(store)
	}); err != nil {
		return err
	}

	// Register scoring service
	if err := container.Provide(func(
		f *factory.ScoringFactory,
		classifier core.Classifier,
		trustAssessor core.TrustAssessor,
	) ports.Scorer {
		return f.CreateScoringService(classifier, trustAssessor)
	}); err != nil {
		return err
	}

	// Register email filter
	if err := container.Provide(func(f *factory.FilterFactory) (ports.EmailFilter, error) {
		return f.CreateEmailFilter()
	}); err != nil {
		return err
	}

	return nil
}
