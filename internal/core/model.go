package core

import (
	"time"
)

// Verdict labels
const (
	LabelSpam    = "Spam"
	LabelNotSpam = "Not Spam"
)

// Authentication results reported by the header parser
const (
	AuthPass    = "pass"
	AuthFail    = "fail"
	AuthUnknown = "unknown"
)

// DefaultCategory is used when the classifier gives no category distribution
const DefaultCategory = "General"

// MaxURLs bounds the number of URLs analyzed per message
const MaxURLs = 25

// RawMessage represents an incoming message as the scorer sees it
type RawMessage struct {
	Body    string
	Headers string
}

// ExtractedURL holds the structural features of one URL found in a body
type ExtractedURL struct {
	URL             string
	Host            string
	TLD             string
	IsPunycode      bool
	IsSuspiciousTLD bool
	HasIPHost       bool
	PathDepth       int
	LongQuery       bool
}

// Risky reports whether the URL carries one of the features that feed the
// rule overrides.
func (u ExtractedURL) Risky() bool {
	return u.IsSuspiciousTLD || u.HasIPHost || u.PathDepth > 4 || u.LongQuery
}

// URLReport is the output of URL intelligence
type URLReport struct {
	URLs     []string
	Findings []ExtractedURL
	Risk     float64
}

// HasRiskyURL reports whether any analyzed URL is risky
func (r URLReport) HasRiskyURL() bool {
	for _, f := range r.Findings {
		if f.Risky() {
			return true
		}
	}
	return false
}

// FirstHost returns the host of the first analyzed URL
func (r URLReport) FirstHost() string {
	for _, f := range r.Findings {
		if f.Host != "" {
			return f.Host
		}
	}
	return ""
}

// HeaderVerdict holds the sender authentication results of a message
type HeaderVerdict struct {
	Present    bool
	SPF        string
	DKIM       string
	DMARC      string
	FromDomain *string
}

// AbsentHeaders is the verdict used when no header text was supplied
func AbsentHeaders() HeaderVerdict {
	return HeaderVerdict{
		Present: false,
		SPF:     AuthUnknown,
		DKIM:    AuthUnknown,
		DMARC:   AuthUnknown,
	}
}

// Failed reports whether authentication failed hard enough to force an override
func (h HeaderVerdict) Failed() bool {
	return h.DMARC == AuthFail || (h.SPF == AuthFail && h.DKIM == AuthFail)
}

// HomographReport describes IDN and punycode findings for a host
type HomographReport struct {
	Host                 string
	IDNDecoded           *string
	IsPunycode           bool
	LooksLikeMixedScript bool
	Risk                 float64
}

// ContentFeatures are raw ratios and counts taken from the body
type ContentFeatures struct {
	Length           int
	URLCount         int
	HasCurrency      bool
	CapsRatio        float64
	ExclamationCount int
	HTMLTagCount     int
}

// ContentSignals is the output of the content heuristics
type ContentSignals struct {
	PhishingPhraseScore float64
	DisplayNameMismatch float64
	UrgencyScore        float64
	PrizeScore          float64
	StructuralScore     float64
	MatchedPhrases      []string
	Features            ContentFeatures
}

// TrustReport holds registrar age and TLS certificate findings
type TrustReport struct {
	Host          string
	Domain        string
	DomainAgeDays *int
	TLSCommonName *string
	TLSMismatch   *bool
	Risk          float64
	Skipped       bool
}

// ClassifierOutput is what a text classifier returns
type ClassifierOutput struct {
	SpamProbability      float64
	CategoryDistribution []float64
}

// BlendWeights are the weights applied to each signal. The classifier
// weight is derived as 1 minus the sum of the others.
type BlendWeights struct {
	URL     float64
	Header  float64
	Phrase  float64
	Display float64
	Content float64
	Trust   float64
}

// Verdict is the final outcome of scoring a message
type Verdict struct {
	Label                    string
	SpamPercent              float64
	NotSpamPercent           float64
	Category                 string
	SpamProbability          float64
	RawClassifierProbability float64
	ClassifierSkipped        bool
	BlendedProbability       float64
	OverrideApplied          string
	Attenuated               bool
	FirstURL                 string

	URL       URLReport
	Headers   HeaderVerdict
	Homograph HomographReport
	Content   ContentSignals
	Trust     TrustReport
}

// IsSpam reports whether the verdict is labeled spam
func (v *Verdict) IsSpam() bool {
	return v.Label == LabelSpam
}

// AgeEntry is a cached registrar answer for a registrable domain. A nil
// CreatedAt records that the registrar gave no usable creation date.
type AgeEntry struct {
	Domain    string
	CreatedAt *time.Time
	CheckedAt time.Time
}

// Reasons lists the signals that pushed the verdict toward spam, most
// decisive first
func (v *Verdict) Reasons() []string {
	var reasons []string
	switch v.OverrideApplied {
	case OverrideHard:
		reasons = append(reasons, "authentication failed and a risky URL is present")
	case OverrideSoft:
		if v.Headers.Failed() {
			reasons = append(reasons, "sender authentication failed")
		} else {
			reasons = append(reasons, "risky URL")
		}
	}
	if v.Homograph.LooksLikeMixedScript {
		reasons = append(reasons, "mixed-script hostname "+v.Homograph.Host)
	} else if v.Homograph.IsPunycode {
		reasons = append(reasons, "punycode hostname "+v.Homograph.Host)
	}
	if len(v.Content.MatchedPhrases) > 0 {
		reasons = append(reasons, "phishing phrases")
	}
	if v.Content.DisplayNameMismatch > 0 {
		reasons = append(reasons, "display name impersonates a brand")
	}
	if v.Trust.DomainAgeDays != nil && *v.Trust.DomainAgeDays < 180 {
		reasons = append(reasons, "recently registered domain")
	}
	if v.Trust.TLSMismatch != nil && *v.Trust.TLSMismatch {
		reasons = append(reasons, "certificate does not cover domain")
	}
	if !v.ClassifierSkipped && v.RawClassifierProbability > SpamThreshold {
		reasons = append(reasons, "classifier")
	}
	if v.Attenuated {
		reasons = append(reasons, "allowlisted sender")
	}
	return reasons
}
