package urlintel

import (
	"net/url"
	"regexp"
	"strings"

	"github.com/mikey/phish-fusion/internal/core"
	"go.uber.org/zap"
)

var (
	// hosts may carry any Unicode letter, so \w alone is not enough
	urlPattern  = regexp.MustCompile(`(?i)https?://[\p{L}\p{N}_\-.:/%?&#=~+;,@!$'()*]+`)
	ipv4Pattern = regexp.MustCompile(`^\d{1,3}(?:\.\d{1,3}){3}$`)
)

// TLDs abused often enough to count as risk on their own
var suspiciousTLDs = map[string]struct{}{
	"zip":   {},
	"mov":   {},
	"click": {},
	"work":  {},
	"xyz":   {},
	"top":   {},
	"casa":  {},
}

const longQueryLength = 80

// Per-URL risk contributions
const (
	suspiciousTLDRisk = 0.15
	ipHostRisk        = 0.10
	punycodeRisk      = 0.05
	deepPathRisk      = 0.05
	longQueryRisk     = 0.05
)

// Analyzer finds URLs in a message body and scores their structure
type Analyzer struct {
	logger *zap.Logger
}

// NewAnalyzer creates a new URL analyzer
func NewAnalyzer(logger *zap.Logger) *Analyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Analyzer{logger: logger}
}

// Assess extracts, analyzes and scores the URLs of a body
func (a *Analyzer) Assess(body string) core.URLReport {
	urls := ExtractURLs(body)
	findings := AnalyzeURLs(urls)
	risk := ComputeURLRisk(findings)

	if len(urls) > 0 {
		a.logger.Debug("Analyzed URLs",
			zap.Int("found", len(urls)),
			zap.Int("analyzed", len(findings)),
			zap.Float64("url_risk", risk))
	}

	return core.URLReport{
		URLs:     urls,
		Findings: findings,
		Risk:     risk,
	}
}

// ExtractURLs returns every http(s) URL in text in order of appearance.
// Repeated URLs are kept.
func ExtractURLs(text string) []string {
	if text == "" {
		return nil
	}
	return urlPattern.FindAllString(text, -1)
}

// AnalyzeURLs analyzes at most core.MaxURLs URLs
func AnalyzeURLs(urls []string) []core.ExtractedURL {
	if len(urls) > core.MaxURLs {
		urls = urls[:core.MaxURLs]
	}
	findings := make([]core.ExtractedURL, 0, len(urls))
	for _, raw := range urls {
		findings = append(findings, analyzeURL(raw))
	}
	return findings
}

func analyzeURL(raw string) core.ExtractedURL {
	finding := core.ExtractedURL{URL: raw}

	parsed, err := url.Parse(raw)
	if err != nil {
		// keep a best-effort entry for malformed URLs
		return finding
	}

	host := strings.ToLower(parsed.Hostname())
	finding.Host = host
	if strings.Contains(host, ".") {
		finding.TLD = host[strings.LastIndex(host, ".")+1:]
	}
	_, finding.IsSuspiciousTLD = suspiciousTLDs[finding.TLD]
	finding.IsPunycode = strings.Contains(host, "xn--")
	finding.HasIPHost = ipv4Pattern.MatchString(host)
	finding.PathDepth = pathDepth(parsed.Path)
	finding.LongQuery = len(parsed.RawQuery) > longQueryLength

	return finding
}

func pathDepth(path string) int {
	depth := 0
	for _, segment := range strings.Split(path, "/") {
		if segment != "" {
			depth++
		}
	}
	return depth
}

// ComputeURLRisk sums the per-URL contributions and clamps the total to 1
func ComputeURLRisk(findings []core.ExtractedURL) float64 {
	if len(findings) == 0 {
		return 0
	}
	risk := 0.0
	for _, f := range findings {
		if f.IsSuspiciousTLD {
			risk += suspiciousTLDRisk
		}
		if f.HasIPHost {
			risk += ipHostRisk
		}
		if f.IsPunycode {
			risk += punycodeRisk
		}
		if f.PathDepth > 4 {
			risk += deepPathRisk
		}
		if f.LongQuery {
			risk += longQueryRisk
		}
	}
	return core.Clamp(risk)
}
