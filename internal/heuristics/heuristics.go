package heuristics

import (
	"math"
	"regexp"
	"strings"
	"unicode"

	"github.com/mikey/phish-fusion/internal/core"
	"go.uber.org/zap"
)

// phishingPatterns drive the blended phrase score
var phishingPatterns = []string{
	`verify your account`,
	`confirm your (?:identity|account)`,
	`update (?:your )?payment`,
	`urgent (?:action|update)`,
	`unusual (?:sign|login) activity`,
	`your (?:mailbox|account) will be (?:closed|suspended)`,
	`reset your password`,
	`billing (?:problem|issue)`,
	`win(?:ner|) [$€£]?\d+`,
	`gift card`,
	// domain substrings seen in credential harvesting links
	`secure-?login`,
	`account-?verif`,
	`paypa1`,
	`micros0ft`,
	`app1e`,
}

var urgencyPatterns = []string{
	`urgent`,
	`immediately`,
	`act now`,
	`within 24 hours`,
	`final (?:notice|warning)`,
	`expires? today`,
	`last chance`,
}

var prizePatterns = []string{
	`you(?:'ve| have) won`,
	`win(?:ner|) [$€£]?\d+`,
	`lottery`,
	`claim your (?:prize|reward)`,
	`gift card`,
	`jackpot`,
}

var brandKeywords = []string{
	"microsoft", "office365", "google", "gmail", "apple", "amazon",
	"paypal", "bank", "netflix", "meta", "facebook",
}

var (
	phishingRegex = compileAny(phishingPatterns)
	urgencyRegex  = compileAny(urgencyPatterns)
	prizeRegex    = compileAny(prizePatterns)

	displayFromRegex = regexp.MustCompile(`(?i)From:\s*"?([^"<]+)"?\s*<[^>]*@([^>]+)>`)

	htmlTagRegex       = regexp.MustCompile(`<\/?[a-zA-Z][^>]*>`)
	capsRunRegex       = regexp.MustCompile(`\b[A-Z]{4,}\b`)
	repeatedPunctRegex = regexp.MustCompile(`[!?]{3,}|\.{4,}`)
	oddWhitespaceRegex = regexp.MustCompile(`[ \t]{4,}\S|\n{4,}|[\x{00A0}\x{200B}\x{200C}\x{200D}\x{FEFF}]`)
	currencyRegex      = regexp.MustCompile(`(?i)[$€£¥]|\b(?:usd|eur|gbp)\b`)
	linkRegex          = regexp.MustCompile(`(?i)https?://`)
	wordRegex          = regexp.MustCompile(`\S+`)
)

func compileAny(patterns []string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + strings.Join(patterns, "|"))
}

// Per-match weights
const (
	phraseMatchWeight  = 0.25
	urgencyMatchWeight = 0.2
	prizeMatchWeight   = 0.15
	displayMismatch    = 0.6
)

// Structural increments
const (
	htmlDensityRisk    = 0.2
	capsRatioRisk      = 0.2
	exclamationRisk    = 0.15
	capsRunRisk        = 0.15
	repeatedPunctRisk  = 0.15
	oddWhitespaceRisk  = 0.1
	capsRatioThreshold = 0.3
	minLettersForCaps  = 20
)

// Analyzer scores message content
type Analyzer struct {
	logger *zap.Logger
}

// NewAnalyzer creates a new content analyzer
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{logger: logger}
}

// Analyze computes every content signal for a message
func (a *Analyzer) Analyze(body, headers string) core.ContentSignals {
	phrases := phishingRegex.FindAllString(body, -1)
	features := Features(body)

	signals := core.ContentSignals{
		PhishingPhraseScore: PhraseScore(body),
		DisplayNameMismatch: DisplayNameMismatch(headers),
		UrgencyScore:        UrgencyScore(body),
		PrizeScore:          PrizeScore(body),
		StructuralScore:     StructuralScore(body),
		MatchedPhrases:      phrases,
		Features:            features,
	}

	a.logger.Debug("Analyzed content",
		zap.Float64("phrase_score", signals.PhishingPhraseScore),
		zap.Float64("display_mismatch", signals.DisplayNameMismatch),
		zap.Float64("urgency_score", signals.UrgencyScore),
		zap.Float64("prize_score", signals.PrizeScore),
		zap.Float64("structural_score", signals.StructuralScore))

	return signals
}

// PhraseScore is 0.25 per phishing phrase match, capped at 1
func PhraseScore(text string) float64 {
	return countScore(phishingRegex, text, phraseMatchWeight)
}

// UrgencyScore is 0.2 per time-pressure match, capped at 1
func UrgencyScore(text string) float64 {
	return countScore(urgencyRegex, text, urgencyMatchWeight)
}

// PrizeScore is 0.15 per prize or lottery match, capped at 1
func PrizeScore(text string) float64 {
	return countScore(prizeRegex, text, prizeMatchWeight)
}

func countScore(re *regexp.Regexp, text string, weight float64) float64 {
	if text == "" {
		return 0
	}
	return core.Clamp(weight * float64(len(re.FindAllStringIndex(text, -1))))
}

// DisplayNameMismatch returns 0.6 when the From display name names a brand
// that the sending domain does not contain.
func DisplayNameMismatch(headers string) float64 {
	if headers == "" {
		return 0
	}
	m := displayFromRegex.FindStringSubmatch(headers)
	if m == nil {
		return 0
	}
	display := strings.ToLower(strings.TrimSpace(m[1]))
	domain := strings.ToLower(strings.TrimSpace(m[2]))
	for _, brand := range brandKeywords {
		if strings.Contains(display, brand) && !strings.Contains(domain, brand) {
			return displayMismatch
		}
	}
	return 0
}

// StructuralScore sums fixed increments for shouting, markup and
// formatting tricks.
func StructuralScore(text string) float64 {
	if text == "" {
		return 0
	}
	f := Features(text)
	words := len(wordRegex.FindAllStringIndex(text, -1))

	score := 0.0
	if f.HTMLTagCount > 0 && float64(f.HTMLTagCount)/math.Max(float64(words), 1) > 0.1 {
		score += htmlDensityRisk
	}
	if f.CapsRatio > capsRatioThreshold {
		score += capsRatioRisk
	}
	if f.ExclamationCount > 3 {
		score += exclamationRisk
	}
	if len(capsRunRegex.FindAllStringIndex(text, 2)) >= 2 {
		score += capsRunRisk
	}
	if repeatedPunctRegex.MatchString(text) {
		score += repeatedPunctRisk
	}
	if oddWhitespaceRegex.MatchString(text) {
		score += oddWhitespaceRisk
	}
	return core.Clamp(score)
}

// Features extracts the raw content ratios
func Features(text string) core.ContentFeatures {
	letters, upper := 0, 0
	for _, r := range text {
		if unicode.IsLetter(r) {
			letters++
			if unicode.IsUpper(r) {
				upper++
			}
		}
	}
	capsRatio := 0.0
	if letters >= minLettersForCaps {
		capsRatio = float64(upper) / float64(letters)
	}

	return core.ContentFeatures{
		Length:           len(text),
		URLCount:         len(linkRegex.FindAllStringIndex(text, -1)),
		HasCurrency:      currencyRegex.MatchString(text),
		CapsRatio:        capsRatio,
		ExclamationCount: strings.Count(text, "!"),
		HTMLTagCount:     len(htmlTagRegex.FindAllStringIndex(text, -1)),
	}
}
