package utils

import (
	"html"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/jaytaylor/html2text"
	"github.com/kljensen/snowball/english"
	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
)

var (
	urlPattern   = regexp.MustCompile(`(?i)(?:https?://|www\.)\S+`)
	emailPattern = regexp.MustCompile(`[\w.+-]+@[\w-]+\.[\w.-]+`)
	tagPattern   = regexp.MustCompile(`<[^>]+>`)
	tokenPattern = regexp.MustCompile(`[a-z]{2,}`)
)

var stopWords = map[string]struct{}{}

func init() {
	for _, w := range strings.Fields(`a about above after again against all am an and any are as at be because
		been before being below between both but by can could did do does doing down during each few for
		from further had has have having he her here hers herself him himself his how i if in into is it
		its itself just me more most my myself no nor not now of off on once only or other our ours
		ourselves out over own same she should so some such than that the their theirs them themselves
		then there these they this those through to too under until up very was we were what when where
		which while who whom why will with would you your yours yourself yourselves`) {
		stopWords[w] = struct{}{}
	}
}

// TextProcessor provides utilities for processing text
type TextProcessor struct {
	logger    *zap.Logger
	noStem    bool
	extraStop map[string]struct{}
}

// NewTextProcessor creates a new TextProcessor that stems tokens
func NewTextProcessor(logger *zap.Logger) *TextProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TextProcessor{
		logger: logger,
	}
}

// WithStemming toggles stemming in Clean
func (tp *TextProcessor) WithStemming(enabled bool) *TextProcessor {
	tp.noStem = !enabled
	return tp
}

// WithStopWords drops words in addition to the built-in English list
func (tp *TextProcessor) WithStopWords(words []string) *TextProcessor {
	if len(words) == 0 {
		return tp
	}
	tp.extraStop = make(map[string]struct{}, len(words))
	for _, w := range words {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			tp.extraStop[w] = struct{}{}
		}
	}
	return tp
}

// TruncateText safely truncates text to the specified maximum size
// and ensures the result is valid UTF-8
func (tp *TextProcessor) TruncateText(text string, maxSize int) string {
	if maxSize <= 0 || len(text) <= maxSize {
		return text
	}

	truncated := text[:maxSize]

	// Drop a trailing partial rune
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}

	tp.logger.Debug("Text truncated",
		zap.Int("original_size", len(text)),
		zap.Int("truncated_size", len(truncated)),
		zap.Int("max_size", maxSize))

	return truncated + "\n[... Content truncated due to size limits ...]"
}

// SanitizeUTF8 drops invalid UTF-8 bytes from text
func (tp *TextProcessor) SanitizeUTF8(text string) string {
	if utf8.ValidString(text) {
		return text
	}

	sanitized := strings.ToValidUTF8(text, "")

	tp.logger.Debug("Text sanitized",
		zap.Int("original_size", len(text)),
		zap.Int("sanitized_size", len(sanitized)))

	return sanitized
}

// ProcessText truncates and sanitizes text in one operation
func (tp *TextProcessor) ProcessText(text string, maxSize int) string {
	return tp.SanitizeUTF8(tp.TruncateText(text, maxSize))
}

// Clean turns a raw message body into the space-joined stemmed tokens the
// classifier is prompted with. Markup, links and addresses are removed
// and stop words are dropped.
func (tp *TextProcessor) Clean(raw string) string {
	text := tp.SanitizeUTF8(raw)
	text = stripHTML(text)
	text = norm.NFKC.String(text)
	text = urlPattern.ReplaceAllString(text, " ")
	text = emailPattern.ReplaceAllString(text, " ")
	text = strings.ToLower(text)

	tokens := tokenPattern.FindAllString(text, -1)
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if _, stop := stopWords[tok]; stop {
			continue
		}
		if _, stop := tp.extraStop[tok]; stop {
			continue
		}
		if tp.noStem {
			out = append(out, tok)
			continue
		}
		out = append(out, english.Stem(tok, false))
	}

	return strings.Join(out, " ")
}

func stripHTML(text string) string {
	if !tagPattern.MatchString(text) {
		return html.UnescapeString(text)
	}
	plain, err := html2text.FromString(text, html2text.Options{OmitLinks: true, TextOnly: true})
	if err != nil {
		return html.UnescapeString(tagPattern.ReplaceAllString(text, " "))
	}
	return plain
}
