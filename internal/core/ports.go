package core

import (
	"context"
)

// Classifier defines the interface for the text classifier
type Classifier interface {
	// Predict returns a spam probability and an optional category distribution
	Predict(ctx context.Context, cleanedText string) (*ClassifierOutput, error)
}

// TextNormalizer prepares raw text for the classifier. It must be deterministic.
type TextNormalizer interface {
	Clean(raw string) string
}

// TrustLookup defines the network-backed registrar and TLS lookups
type TrustLookup interface {
	// CreationDates returns the raw creation date strings the registrar reports
	CreationDates(ctx context.Context, domain string) ([]string, error)

	// CommonName returns the subject common name of the host's TLS certificate
	CommonName(ctx context.Context, host string) (string, error)
}

// AgeStore defines the interface for persisting registrar answers
type AgeStore interface {
	// Get retrieves a cached entry for a registrable domain
	Get(ctx context.Context, domain string) (*AgeEntry, error)

	// Set stores a cache entry
	Set(ctx context.Context, entry *AgeEntry) error
}

// URLIntel extracts and scores URLs from a message body
type URLIntel interface {
	Assess(body string) URLReport
}

// HeaderParser extracts authentication results from a raw header block
type HeaderParser interface {
	Parse(headers string) HeaderVerdict
}

// HomographDetector inspects a hostname for IDN spoofing
type HomographDetector interface {
	Detect(host string) HomographReport
}

// ContentAnalyzer scores the body and From header for phishing content
type ContentAnalyzer interface {
	Analyze(body, headers string) ContentSignals
}

// TrustAssessor scores a host by registrar age and TLS certificate
type TrustAssessor interface {
	Assess(ctx context.Context, host string) TrustReport
}

// Attenuator lowers the spam probability for trusted senders
type Attenuator interface {
	Attenuate(spamProb float64, fromDomain *string) float64
}
