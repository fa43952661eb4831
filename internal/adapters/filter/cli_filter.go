package filter

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mikey/phish-fusion/internal/core"
	"github.com/mikey/phish-fusion/internal/ports"
	"go.uber.org/zap"
)

// CliFilter implements a command-line interface for phishing detection
type CliFilter struct {
	scorer  ports.Scorer
	logger  *zap.Logger
	verbose bool
	out     io.Writer
}

// NewCliFilter creates a new CLI filter
func NewCliFilter(scorer ports.Scorer, logger *zap.Logger, verbose bool) (*CliFilter, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CliFilter{
		scorer:  scorer,
		logger:  logger,
		verbose: verbose,
		out:     os.Stdout,
	}, nil
}

// SetOutput redirects the report, stdout by default
func (f *CliFilter) SetOutput(w io.Writer) {
	f.out = w
}

// ProcessMessage scores a raw message and prints the verdict with every
// signal report
func (f *CliFilter) ProcessMessage(ctx context.Context, raw []byte) (*core.Verdict, error) {
	msg, env, err := splitMessage(raw)
	if err != nil {
		f.logger.Error("Failed to parse email", zap.Error(err))
		return nil, err
	}

	w := f.out
	fmt.Fprintf(w, "\n=== Email Summary ===\n")
	fmt.Fprintf(w, "From: %s\n", env.GetHeader("From"))
	fmt.Fprintf(w, "To: %s\n", env.GetHeader("To"))
	fmt.Fprintf(w, "Subject: %s\n", env.GetHeader("Subject"))
	fmt.Fprintf(w, "Body length: %d bytes\n", len(msg.Body))

	if f.verbose {
		preview := msg.Body
		if len(preview) > 500 {
			preview = preview[:500] + "..."
		}
		fmt.Fprintf(w, "\nBody preview:\n%s\n", preview)
	}

	startTime := time.Now()
	verdict, err := f.scorer.Score(ctx, msg)
	if err != nil {
		f.logger.Error("Failed to score email", zap.Error(err))
		return nil, err
	}

	printVerdict(w, verdict, time.Since(startTime))
	return verdict, nil
}

func printVerdict(w io.Writer, v *core.Verdict, took time.Duration) {
	fmt.Fprintf(w, "\n=== Results ===\n")
	fmt.Fprintf(w, "Verdict: %s\n", v.Label)
	fmt.Fprintf(w, "Spam: %.2f%%  Not spam: %.2f%%\n", v.SpamPercent, v.NotSpamPercent)
	fmt.Fprintf(w, "Category: %s\n", v.Category)
	if v.ClassifierSkipped {
		fmt.Fprintf(w, "Classifier: unavailable\n")
	} else {
		fmt.Fprintf(w, "Classifier: %.4f\n", v.RawClassifierProbability)
	}
	fmt.Fprintf(w, "Blended: %.4f\n", v.BlendedProbability)
	if v.OverrideApplied != core.OverrideNone {
		fmt.Fprintf(w, "Override: %s\n", v.OverrideApplied)
	}
	if v.Attenuated {
		fmt.Fprintf(w, "Attenuated: allowlisted sender\n")
	}
	if reasons := v.Reasons(); len(reasons) > 0 {
		fmt.Fprintf(w, "Reasons: %s\n", strings.Join(reasons, "; "))
	}

	fmt.Fprintf(w, "\n=== URLs ===\n")
	fmt.Fprintf(w, "Risk: %.2f\n", v.URL.Risk)
	if v.FirstURL != "" {
		fmt.Fprintf(w, "First URL: %s\n", v.FirstURL)
	}
	for _, u := range v.URL.Findings {
		fmt.Fprintf(w, "- %s host=%s tld=%s punycode=%t suspicious_tld=%t ip=%t depth=%d long_query=%t\n",
			u.URL, u.Host, u.TLD, u.IsPunycode, u.IsSuspiciousTLD, u.HasIPHost, u.PathDepth, u.LongQuery)
	}

	fmt.Fprintf(w, "\n=== Headers ===\n")
	if !v.Headers.Present {
		fmt.Fprintf(w, "No headers supplied\n")
	} else {
		fmt.Fprintf(w, "SPF: %s  DKIM: %s  DMARC: %s\n", v.Headers.SPF, v.Headers.DKIM, v.Headers.DMARC)
		if v.Headers.FromDomain != nil {
			fmt.Fprintf(w, "From domain: %s\n", *v.Headers.FromDomain)
		}
	}

	if v.Homograph.Host != "" {
		fmt.Fprintf(w, "\n=== Homograph ===\n")
		fmt.Fprintf(w, "Host: %s punycode=%t mixed_script=%t risk=%.2f\n",
			v.Homograph.Host, v.Homograph.IsPunycode, v.Homograph.LooksLikeMixedScript, v.Homograph.Risk)
		if v.Homograph.IDNDecoded != nil {
			fmt.Fprintf(w, "Decoded: %s\n", *v.Homograph.IDNDecoded)
		}
	}

	fmt.Fprintf(w, "\n=== Content ===\n")
	fmt.Fprintf(w, "Phrases: %.2f  Display name: %.2f  Urgency: %.2f  Prize: %.2f  Structure: %.2f\n",
		v.Content.PhishingPhraseScore, v.Content.DisplayNameMismatch, v.Content.UrgencyScore,
		v.Content.PrizeScore, v.Content.StructuralScore)
	if len(v.Content.MatchedPhrases) > 0 {
		fmt.Fprintf(w, "Matched: %s\n", strings.Join(v.Content.MatchedPhrases, ", "))
	}

	fmt.Fprintf(w, "\n=== Trust ===\n")
	if v.Trust.Skipped {
		fmt.Fprintf(w, "Skipped\n")
	} else {
		fmt.Fprintf(w, "Domain: %s risk=%.2f\n", v.Trust.Domain, v.Trust.Risk)
		if v.Trust.DomainAgeDays != nil {
			fmt.Fprintf(w, "Domain age: %d days\n", *v.Trust.DomainAgeDays)
		} else {
			fmt.Fprintf(w, "Domain age: unknown\n")
		}
		if v.Trust.TLSCommonName != nil && v.Trust.TLSMismatch != nil {
			fmt.Fprintf(w, "Certificate CN: %s mismatch=%t\n", *v.Trust.TLSCommonName, *v.Trust.TLSMismatch)
		} else {
			fmt.Fprintf(w, "Certificate CN: unknown\n")
		}
	}

	fmt.Fprintf(w, "\nProcessing time: %v\n", took)
}

// Start is a no-op for the CLI filter
func (f *CliFilter) Start() error {
	return nil
}

// Stop is a no-op for the CLI filter
func (f *CliFilter) Stop() error {
	return nil
}
