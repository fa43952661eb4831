package homograph

import (
	"strings"
	"unicode/utf8"

	"github.com/mikey/phish-fusion/internal/core"
	"go.uber.org/zap"
	"golang.org/x/net/idna"
)

const homographRisk = 0.15

// Detector flags punycode and mixed-script hostnames
type Detector struct {
	profile *idna.Profile
	logger  *zap.Logger
}

// NewDetector creates a new homograph detector
func NewDetector(logger *zap.Logger) *Detector {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Detector{
		profile: idna.Lookup,
		logger:  logger,
	}
}

// Detect inspects one hostname. Decode failures carry no risk.
func (d *Detector) Detect(host string) core.HomographReport {
	host = strings.ToLower(strings.TrimSpace(host))
	report := core.HomographReport{
		Host:       host,
		IsPunycode: strings.HasPrefix(host, "xn--") || strings.Contains(host, ".xn--"),
	}
	if host == "" {
		return report
	}

	decoded, err := d.profile.ToUnicode(host)
	if err != nil {
		d.logger.Debug("Host is not IDNA decodable", zap.String("host", host), zap.Error(err))
	} else {
		report.IDNDecoded = &decoded
		if decoded != host && hasNonASCII(decoded) {
			report.LooksLikeMixedScript = true
		}
	}

	if report.IsPunycode || report.LooksLikeMixedScript {
		report.Risk = homographRisk
	}
	return report
}

func hasNonASCII(s string) bool {
	for _, r := range s {
		if r >= utf8.RuneSelf {
			return true
		}
	}
	return false
}
