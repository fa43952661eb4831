package core

import (
	"math"

	"go.uber.org/zap"
)

// SpamThreshold is the probability above which a message is labeled spam
const SpamThreshold = 0.45

// Override floors
const (
	hardOverrideFloor = 0.90
	softOverrideFloor = 0.75
	riskyURLRiskFloor = 0.40
)

// Override names reported on the verdict
const (
	OverrideNone = ""
	OverrideHard = "header_fail_and_risky_url"
	OverrideSoft = "header_fail_or_risky_url"
)

// DefaultHeaderWeights are used when the message carries headers.
// The classifier keeps the remaining 0.20.
func DefaultHeaderWeights() BlendWeights {
	return BlendWeights{
		URL:     0.15,
		Header:  0.35,
		Phrase:  0.15,
		Display: 0.10,
		Content: 0.0,
		Trust:   0.05,
	}
}

// DefaultNoHeaderWeights are used when no headers were supplied.
// The classifier keeps the remaining 0.65.
func DefaultNoHeaderWeights() BlendWeights {
	return BlendWeights{
		URL:     0.15,
		Phrase:  0.10,
		Content: 0.05,
		Trust:   0.05,
	}
}

// FusionInput gathers the signal reports for one message. A nil Classifier
// means the classifier was unavailable.
type FusionInput struct {
	Classifier *ClassifierOutput
	URL        URLReport
	Headers    HeaderVerdict
	Homograph  HomographReport
	Content    ContentSignals
	Trust      TrustReport
}

// FusionEngine blends signal reports into a verdict
type FusionEngine struct {
	withHeaders    BlendWeights
	withoutHeaders BlendWeights
	categories     []string
	attenuator     Attenuator
	logger         *zap.Logger
}

// NewFusionEngine creates a new fusion engine
func NewFusionEngine(
	withHeaders BlendWeights,
	withoutHeaders BlendWeights,
	categories []string,
	attenuator Attenuator,
	logger *zap.Logger,
) *FusionEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	// header evidence is meaningless without headers
	withoutHeaders.Header = 0
	withoutHeaders.Display = 0

	return &FusionEngine{
		withHeaders:    withHeaders,
		withoutHeaders: withoutHeaders,
		categories:     append([]string(nil), categories...),
		attenuator:     attenuator,
		logger:         logger,
	}
}

// HeaderRisk derives a risk value from authentication results
func HeaderRisk(h HeaderVerdict) float64 {
	if !h.Present {
		return 0
	}
	risk := 0.0
	risk += authRisk(h.SPF, 0.4)
	risk += authRisk(h.DKIM, 0.35)
	risk += authRisk(h.DMARC, 0.5)
	return Clamp(risk)
}

func authRisk(result string, failRisk float64) float64 {
	switch result {
	case AuthFail:
		return failRisk
	case AuthPass:
		return 0
	default:
		return 0.05
	}
}

// Fuse blends, overrides, attenuates and thresholds the inputs
func (e *FusionEngine) Fuse(in FusionInput) *Verdict {
	urlRisk := Clamp(in.URL.Risk + in.Homograph.Risk)
	headerRisk := HeaderRisk(in.Headers)

	weights := e.withoutHeaders
	if in.Headers.Present {
		weights = e.withHeaders
	}
	weights, base := resolveWeights(weights, in.Classifier != nil)

	classifierProb := 0.0
	if in.Classifier != nil {
		classifierProb = Clamp(in.Classifier.SpamProbability)
	}

	blended := Clamp(base*classifierProb +
		weights.URL*urlRisk +
		weights.Header*headerRisk +
		weights.Phrase*Clamp(in.Content.PhishingPhraseScore) +
		weights.Display*Clamp(in.Content.DisplayNameMismatch) +
		weights.Content*Clamp(in.Content.StructuralScore) +
		weights.Trust*Clamp(in.Trust.Risk))

	prob, override := applyOverrides(blended, in.Headers.Failed(), in.URL.HasRiskyURL(), urlRisk)

	attenuated := false
	if e.attenuator != nil {
		next := e.attenuator.Attenuate(prob, in.Headers.FromDomain)
		if next < prob {
			prob = next
			attenuated = true
		}
	}
	prob = Clamp(prob)

	label := LabelNotSpam
	if prob > SpamThreshold {
		label = LabelSpam
	}
	spamPercent := round2(prob * 100)

	e.logger.Debug("Fused signals",
		zap.Float64("classifier", classifierProb),
		zap.Bool("classifier_skipped", in.Classifier == nil),
		zap.Float64("url_risk", urlRisk),
		zap.Float64("header_risk", headerRisk),
		zap.Float64("blended", blended),
		zap.String("override", override),
		zap.Bool("attenuated", attenuated),
		zap.Float64("spam_probability", prob))

	v := &Verdict{
		Label:              label,
		SpamPercent:        spamPercent,
		NotSpamPercent:     round2(100 - spamPercent),
		Category:           e.category(in.Classifier),
		SpamProbability:    prob,
		ClassifierSkipped:  in.Classifier == nil,
		BlendedProbability: blended,
		OverrideApplied:    override,
		Attenuated:         attenuated,
		URL:                in.URL,
		Headers:            in.Headers,
		Homograph:          in.Homograph,
		Content:            in.Content,
		Trust:              in.Trust,
	}
	if in.Classifier != nil {
		v.RawClassifierProbability = in.Classifier.SpamProbability
	}
	if len(in.URL.URLs) > 0 {
		v.FirstURL = in.URL.URLs[0]
	}
	return v
}

// resolveWeights clamps the signal weights and derives the classifier base
// weight. When the classifier is unavailable the signal weights are scaled
// to sum to 1 and the base is zero.
func resolveWeights(w BlendWeights, haveClassifier bool) (BlendWeights, float64) {
	w.URL = math.Max(w.URL, 0)
	w.Header = math.Max(w.Header, 0)
	w.Phrase = math.Max(w.Phrase, 0)
	w.Display = math.Max(w.Display, 0)
	w.Content = math.Max(w.Content, 0)
	w.Trust = math.Max(w.Trust, 0)

	sum := w.URL + w.Header + w.Phrase + w.Display + w.Content + w.Trust
	if sum == 0 {
		if haveClassifier {
			return w, 1
		}
		return w, 0
	}

	if !haveClassifier || sum > 1 {
		return scaleWeights(w, 1/sum), 0
	}
	return w, math.Max(1-sum, 0)
}

func scaleWeights(w BlendWeights, f float64) BlendWeights {
	return BlendWeights{
		URL:     w.URL * f,
		Header:  w.Header * f,
		Phrase:  w.Phrase * f,
		Display: w.Display * f,
		Content: w.Content * f,
		Trust:   w.Trust * f,
	}
}

// applyOverrides raises the probability when authentication failures and
// risky URLs coincide. It never lowers it.
func applyOverrides(prob float64, headerFail, riskyURL bool, urlRisk float64) (float64, string) {
	switch {
	case headerFail && riskyURL:
		return math.Max(prob, hardOverrideFloor), OverrideHard
	case headerFail || (riskyURL && urlRisk > riskyURLRiskFloor):
		return math.Max(prob, softOverrideFloor), OverrideSoft
	}
	return prob, OverrideNone
}

func (e *FusionEngine) category(out *ClassifierOutput) string {
	if out == nil || len(out.CategoryDistribution) == 0 {
		return DefaultCategory
	}
	best := 0
	for i, p := range out.CategoryDistribution {
		if p > out.CategoryDistribution[best] {
			best = i
		}
	}
	if best >= len(e.categories) || e.categories[best] == "" {
		return DefaultCategory
	}
	return e.categories[best]
}

// Clamp limits v to [0, 1]
func Clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
