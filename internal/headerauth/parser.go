package headerauth

import (
	"regexp"
	"sort"
	"strings"

	"github.com/mikey/phish-fusion/internal/core"
	"go.uber.org/zap"
)

// Mechanisms resolved by the parser
const (
	mechSPF   = "spf"
	mechDKIM  = "dkim"
	mechDMARC = "dmarc"
)

var mechanisms = []string{mechSPF, mechDKIM, mechDMARC}

var (
	authResultPatterns = map[string]*regexp.Regexp{
		mechSPF:   authPattern(mechSPF),
		mechDKIM:  authPattern(mechDKIM),
		mechDMARC: authPattern(mechDMARC),
	}
	fromDomainPattern = regexp.MustCompile(`@([\p{L}\p{N}_.-]+)`)
)

func authPattern(name string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + name + `\s*=\s*(pass|fail|softfail|neutral|none|temperror|permerror|bestguesspass)`)
}

// Index maps lowercased header names to their values in order of appearance
type Index map[string][]string

// Get returns every value of a header
func (i Index) Get(name string) []string {
	return i[strings.ToLower(name)]
}

// Flatten renders the index as "name: values" text, names sorted
func (i Index) Flatten() string {
	names := make([]string, 0, len(i))
	for name := range i {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(name)
		b.WriteString(": ")
		b.WriteString(strings.Join(i[name], " "))
	}
	return b.String()
}

// results holds the per-mechanism results while the cascade runs
type results map[string]string

func (r results) unresolved() bool {
	for _, m := range mechanisms {
		if r[m] == core.AuthUnknown {
			return true
		}
	}
	return false
}

// stage refines unresolved results from the header index
type stage struct {
	name string
	run  func(idx Index, r results)
}

// Stages run in order of decreasing precision. A later stage only fills in
// mechanisms that are still unknown.
var stages = []stage{
	{name: "authentication_results", run: fromAuthenticationResults},
	{name: "received_spf", run: fromReceivedSPF},
	{name: "flat_scan", run: fromFlatScan},
}

// Parser extracts SPF, DKIM and DMARC results from a raw header block
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a new header parser
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger}
}

// Parse returns the authentication verdict of a raw header block
func (p *Parser) Parse(headers string) core.HeaderVerdict {
	if strings.TrimSpace(headers) == "" {
		return core.AbsentHeaders()
	}

	idx := BuildIndex(Unfold(headers))
	r := results{
		mechSPF:   core.AuthUnknown,
		mechDKIM:  core.AuthUnknown,
		mechDMARC: core.AuthUnknown,
	}

	for _, s := range stages {
		if !r.unresolved() {
			break
		}
		s.run(idx, r)
		p.logger.Debug("Header stage complete",
			zap.String("stage", s.name),
			zap.String("spf", r[mechSPF]),
			zap.String("dkim", r[mechDKIM]),
			zap.String("dmarc", r[mechDMARC]))
	}

	return core.HeaderVerdict{
		Present:    true,
		SPF:        r[mechSPF],
		DKIM:       r[mechDKIM],
		DMARC:      r[mechDMARC],
		FromDomain: fromDomain(idx),
	}
}

// Unfold joins folded continuation lines onto the header they continue
func Unfold(headers string) []string {
	var lines []string
	for _, line := range strings.Split(headers, "\n") {
		line = strings.TrimRight(line, "\r")
		if (strings.HasPrefix(line, " ") || strings.HasPrefix(line, "\t")) && len(lines) > 0 {
			lines[len(lines)-1] += " " + strings.TrimSpace(line)
			continue
		}
		lines = append(lines, strings.TrimRight(line, " \t"))
	}
	return lines
}

// BuildIndex indexes unfolded header lines by lowercased name. Lines
// without a colon are ignored.
func BuildIndex(lines []string) Index {
	idx := Index{}
	for _, line := range lines {
		name, value, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		idx[name] = append(idx[name], strings.TrimSpace(value))
	}
	return idx
}

func fromAuthenticationResults(idx Index, r results) {
	values := append(append([]string{}, idx.Get("Authentication-Results")...), idx.Get("ARC-Authentication-Results")...)
	if len(values) == 0 {
		return
	}
	combined := strings.Join(values, " ")
	for _, m := range mechanisms {
		if r[m] != core.AuthUnknown {
			continue
		}
		match := authResultPatterns[m].FindStringSubmatch(combined)
		if match == nil {
			continue
		}
		r[m] = normalizeResult(match[1])
	}
}

func normalizeResult(value string) string {
	switch strings.ToLower(value) {
	case "pass", "bestguesspass":
		return core.AuthPass
	case "fail", "permerror":
		return core.AuthFail
	default:
		return core.AuthUnknown
	}
}

func fromReceivedSPF(idx Index, r results) {
	values := idx.Get("Received-SPF")
	if r[mechSPF] != core.AuthUnknown || len(values) == 0 {
		return
	}
	padded := " " + strings.ToLower(strings.Join(values, " ")) + " "
	switch {
	case strings.Contains(padded, " pass "):
		r[mechSPF] = core.AuthPass
	case strings.Contains(padded, " fail "):
		r[mechSPF] = core.AuthFail
	}
}

func fromFlatScan(idx Index, r results) {
	flat := strings.ToLower(idx.Flatten())
	for _, m := range mechanisms {
		if r[m] != core.AuthUnknown {
			continue
		}
		switch {
		case strings.Contains(flat, m+"=pass"):
			r[m] = core.AuthPass
		case strings.Contains(flat, m+"=fail"):
			r[m] = core.AuthFail
		}
	}
}

func fromDomain(idx Index) *string {
	for _, value := range idx.Get("From") {
		match := fromDomainPattern.FindStringSubmatch(value)
		if match == nil {
			continue
		}
		domain := strings.ToLower(strings.TrimRight(match[1], "."))
		if domain == "" {
			continue
		}
		return &domain
	}
	return nil
}
