package core

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoClassifier is logged when the service runs without a classifier
var ErrNoClassifier = errors.New("no classifier configured")

// Extractors groups the signal extractors used by the scoring service
type Extractors struct {
	URLs      URLIntel
	Headers   HeaderParser
	Homograph HomographDetector
	Content   ContentAnalyzer
	Trust     TrustAssessor
}

// ScoringService is the core service for phishing and spam detection
type ScoringService struct {
	classifier Classifier
	normalizer TextNormalizer
	extractors Extractors
	engine     *FusionEngine
	logger     *zap.Logger
}

// NewScoringService creates a new scoring service. The classifier, the
// normalizer and the trust assessor may be nil.
func NewScoringService(
	classifier Classifier,
	normalizer TextNormalizer,
	extractors Extractors,
	engine *FusionEngine,
	logger *zap.Logger,
) *ScoringService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScoringService{
		classifier: classifier,
		normalizer: normalizer,
		extractors: extractors,
		engine:     engine,
		logger:     logger,
	}
}

// Score runs every extractor and the classifier concurrently and fuses their
// reports into a verdict. The only error returned is the context's, when the
// call was cancelled before fusion.
func (s *ScoringService) Score(ctx context.Context, msg RawMessage) (*Verdict, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// the homograph and trust extractors take the first URL's host
	urlReport := s.extractors.URLs.Assess(msg.Body)
	host := urlReport.FirstHost()

	var (
		classified *ClassifierOutput
		headers    HeaderVerdict
		homograph  HomographReport
		content    ContentSignals
		trust      = TrustReport{Host: host, Skipped: true}
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		out, err := s.classify(gctx, msg.Body)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			s.logger.Warn("Classifier unavailable, fusing without it", zap.Error(err))
			return nil
		}
		classified = out
		return nil
	})

	g.Go(func() error {
		headers = s.extractors.Headers.Parse(msg.Headers)
		return nil
	})

	g.Go(func() error {
		if host != "" {
			homograph = s.extractors.Homograph.Detect(host)
		}
		return nil
	})

	g.Go(func() error {
		content = s.extractors.Content.Analyze(msg.Body, msg.Headers)
		return nil
	})

	if host != "" && s.extractors.Trust != nil {
		g.Go(func() error {
			trust = s.extractors.Trust.Assess(gctx, host)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	verdict := s.engine.Fuse(FusionInput{
		Classifier: classified,
		URL:        urlReport,
		Headers:    headers,
		Homograph:  homograph,
		Content:    content,
		Trust:      trust,
	})

	s.logger.Info("Scored message",
		zap.String("label", verdict.Label),
		zap.Float64("spam_percent", verdict.SpamPercent),
		zap.String("category", verdict.Category),
		zap.Int("url_count", len(urlReport.URLs)),
		zap.Bool("headers_present", headers.Present),
		zap.Bool("classifier_skipped", verdict.ClassifierSkipped),
		zap.Bool("trust_skipped", trust.Skipped))

	return verdict, nil
}

func (s *ScoringService) classify(ctx context.Context, body string) (*ClassifierOutput, error) {
	if s.classifier == nil {
		return nil, ErrNoClassifier
	}
	text := body
	if s.normalizer != nil {
		text = s.normalizer.Clean(body)
	}
	return s.classifier.Predict(ctx, text)
}
