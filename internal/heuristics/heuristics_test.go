package heuristics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPhraseScore(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected float64
	}{
		{"empty", "", 0},
		{"benign", "Lunch on Friday? Let me know.", 0},
		{"one match", "Please verify your account.", 0.25},
		{"case insensitive", "RESET YOUR PASSWORD and UPDATE PAYMENT", 0.5},
		{"prize phrasing", "You are a winner $1000, redeem your gift card", 0.5},
		{"suspicious domain substring", "visit http://secure-login.example.test", 0.25},
		{"capped", strings.Repeat("verify your account ", 10), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, PhraseScore(tt.text), 1e-9)
		})
	}
}

func TestUrgencyAndPrizeScores(t *testing.T) {
	text := "URGENT: act now, you have won the lottery! Claim your prize immediately."

	assert.InDelta(t, 0.6, UrgencyScore(text), 1e-9)
	assert.InDelta(t, 0.45, PrizeScore(text), 1e-9)
	assert.Equal(t, 0.0, UrgencyScore(""))
	assert.Equal(t, 1.0, UrgencyScore(strings.Repeat("urgent ", 10)))
}

func TestDisplayNameMismatch(t *testing.T) {
	tests := []struct {
		name     string
		headers  string
		expected float64
	}{
		{"brand spoof", `From: "PayPal Support" <billing@random-domain.test>`, 0.6},
		{"brand matches domain", `From: "PayPal" <service@paypal.com>`, 0},
		{"unquoted display name", "From: Microsoft Account Team <no-reply@mail.evil.test>", 0.6},
		{"no brand", `From: "Alice" <alice@example.com>`, 0},
		{"bare address", "From: billing@random-domain.test", 0},
		{"no headers", "", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, DisplayNameMismatch(tt.headers))
		})
	}
}

func TestStructuralScore(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected float64
	}{
		{"empty", "", 0},
		{"plain", "Hi Sam, the report is attached. Thanks, Jo", 0},
		{"exclamations", "Great! Great! Great! Great!", 0.15},
		{"repeated punctuation", "Really?!?", 0.15},
		{"ellipsis is fine", "Well... maybe", 0},
		{"irregular whitespace", "pay\u200bpal account", 0.1},
		{"html heavy", "<div><p><b>hello</b></p></div>", 0.2},
		{"shouting", "THIS IS YOUR FINAL NOTICE FROM THE BANK TEAM", 0.35},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, StructuralScore(tt.text), 1e-9)
		})
	}
}

func TestStructuralScoreClamped(t *testing.T) {
	text := "<b>WINNER</b> <i>CLAIM</i> NOW!!!!!! FREE MONEY FOR YOU TODAY ....\u00a0"
	score := StructuralScore(text)
	assert.GreaterOrEqual(t, score, 0.0)
	assert.LessOrEqual(t, score, 1.0)
	assert.InDelta(t, 0.95, score, 1e-9)
}

func TestFeatures(t *testing.T) {
	f := Features("Pay $50 now at https://a.test and http://b.test!")
	assert.Equal(t, 2, f.URLCount)
	assert.True(t, f.HasCurrency)
	assert.Equal(t, 1, f.ExclamationCount)
	assert.Equal(t, 0, f.HTMLTagCount)
	assert.False(t, Features("no money here").HasCurrency)
}

func TestAnalyze(t *testing.T) {
	signals := NewAnalyzer(nil).Analyze(
		"Unusual sign activity detected. Verify your account immediately.",
		`From: "Amazon Security" <alert@amaz0n-help.test>`)

	assert.InDelta(t, 0.5, signals.PhishingPhraseScore, 1e-9)
	assert.Equal(t, 0.6, signals.DisplayNameMismatch)
	assert.InDelta(t, 0.2, signals.UrgencyScore, 1e-9)
	assert.Equal(t, 0.0, signals.PrizeScore)
	assert.Len(t, signals.MatchedPhrases, 2)
}
