package filter

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/emersion/go-smtp"
	"github.com/mikey/phish-fusion/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const plainMessage = "From: PayPal Security <alerts@secure-pay.xyz>\r\n" +
	"To: victim@example.com\r\n" +
	"Subject: Account notice\r\n" +
	"Authentication-Results: mx.example.com; spf=fail; dkim=fail; dmarc=fail\r\n" +
	"\r\n" +
	"Verify your account at http://secure-pay.xyz/login\r\n"

const multipartMessage = "From: news@shop.example\r\n" +
	"To: you@example.com\r\n" +
	"Subject: =?UTF-8?B?V2Vla2x5IGRlYWxz?=\r\n" +
	"MIME-Version: 1.0\r\n" +
	"Content-Type: multipart/alternative; boundary=\"b1\"\r\n" +
	"\r\n" +
	"--b1\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"\r\n" +
	"Deals this week\r\n" +
	"--b1\r\n" +
	"Content-Type: text/html; charset=utf-8\r\n" +
	"\r\n" +
	"<p>Deals <a href=\"https://shop.example/deals\">this week</a></p>\r\n" +
	"--b1--\r\n"

type stubScorer struct {
	verdict *core.Verdict
	err     error
	got     core.RawMessage
}

func (s *stubScorer) Score(ctx context.Context, msg core.RawMessage) (*core.Verdict, error) {
	s.got = msg
	return s.verdict, s.err
}

func spamVerdict() *core.Verdict {
	return &core.Verdict{
		Label:           core.LabelSpam,
		SpamPercent:     90,
		NotSpamPercent:  10,
		Category:        "Phishing",
		OverrideApplied: core.OverrideHard,
		Headers:         core.HeaderVerdict{Present: true, SPF: core.AuthFail, DKIM: core.AuthFail, DMARC: core.AuthFail},
	}
}

func hamVerdict() *core.Verdict {
	return &core.Verdict{
		Label:          core.LabelNotSpam,
		SpamPercent:    12.5,
		NotSpamPercent: 87.5,
		Category:       "Promotional",
	}
}

func testHeaders() HeaderNames {
	return HeaderNames{
		Spam:     "X-Spam-Status",
		Score:    "X-Spam-Score",
		Category: "X-Spam-Category",
		Reason:   "X-Spam-Reason",
		ID:       "X-Spam-ID",
	}
}

func TestSplitMessage(t *testing.T) {
	tests := []struct {
		name        string
		raw         string
		wantBody    string
		wantHeaders string
	}{
		{
			name:        "plain text",
			raw:         plainMessage,
			wantBody:    "http://secure-pay.xyz/login",
			wantHeaders: "dmarc=fail",
		},
		{
			name:        "multipart prefers html",
			raw:         multipartMessage,
			wantBody:    "href=\"https://shop.example/deals\"",
			wantHeaders: "multipart/alternative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, env, err := splitMessage([]byte(tt.raw))
			require.NoError(t, err)
			require.NotNil(t, env)
			assert.Contains(t, msg.Body, tt.wantBody)
			assert.Contains(t, msg.Headers, tt.wantHeaders)
			assert.NotContains(t, msg.Headers, "\r\n\r\n")
		})
	}
}

func TestRewriteMessage(t *testing.T) {
	raw := []byte("Subject: Hello\r\n  world\r\nFrom: a@b.test\r\n\r\nbody line\r\n")

	out := string(rewriteMessage(raw, []headerField{{"X-Spam-Status", "true"}}, "[**SPAM**] Hello world"))

	assert.True(t, strings.HasPrefix(out, "X-Spam-Status: true\r\n"))
	assert.Contains(t, out, "Subject: [**SPAM**] Hello world\r\n")
	assert.NotContains(t, out, "  world")
	assert.Contains(t, out, "From: a@b.test\r\n\r\nbody line\r\n")
}

func TestRewriteMessageKeepsSubject(t *testing.T) {
	raw := []byte("Subject: Hi\nFrom: a@b.test\n\nbody\n")
	out := string(rewriteMessage(raw, []headerField{{"X-Spam-Reason", "line\r\nbreak"}}, ""))

	assert.Contains(t, out, "X-Spam-Reason: line  break\r\n")
	assert.Contains(t, out, "Subject: Hi\r\n")
	assert.True(t, strings.HasSuffix(out, "\r\n\r\nbody\n"))
}

func TestFilterMessageTagsHeaders(t *testing.T) {
	scorer := &stubScorer{verdict: hamVerdict()}
	f := NewPostfixFilter(scorer, nil, PostfixConfig{Headers: testHeaders()})

	out, err := f.filterMessage(context.Background(), "news@shop.example", []byte(multipartMessage))
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "X-Spam-Status: false\r\n")
	assert.Contains(t, text, "X-Spam-Score: 12.50\r\n")
	assert.Contains(t, text, "X-Spam-Category: Promotional\r\n")
	assert.Contains(t, text, "X-Spam-Reason: none\r\n")
	assert.Contains(t, text, "X-Spam-ID: ")
	assert.Contains(t, text, "--b1--")
	assert.Contains(t, scorer.got.Body, "shop.example/deals")
}

func TestFilterMessageBlocksSpam(t *testing.T) {
	f := NewPostfixFilter(&stubScorer{verdict: spamVerdict()}, nil, PostfixConfig{Headers: testHeaders(), BlockSpam: true})

	out, err := f.filterMessage(context.Background(), "alerts@secure-pay.xyz", []byte(plainMessage))
	assert.Nil(t, out)

	var smtpErr *smtp.SMTPError
	require.ErrorAs(t, err, &smtpErr)
	assert.Equal(t, 550, smtpErr.Code)
}

func TestFilterMessageTagsSubject(t *testing.T) {
	f := NewPostfixFilter(&stubScorer{verdict: spamVerdict()}, nil, PostfixConfig{Headers: testHeaders(), ModifySubject: true})

	out, err := f.filterMessage(context.Background(), "alerts@secure-pay.xyz", []byte(plainMessage))
	require.NoError(t, err)

	text := string(out)
	assert.Contains(t, text, "Subject: [**SPAM**] Account notice\r\n")
	assert.Contains(t, text, "X-Spam-Status: true\r\n")
	assert.Contains(t, text, "X-Spam-Reason: authentication failed and a risky URL is present\r\n")
}

func TestFilterMessageDeliversOnScoringError(t *testing.T) {
	f := NewPostfixFilter(&stubScorer{err: context.DeadlineExceeded}, nil, PostfixConfig{Headers: testHeaders(), BlockSpam: true})

	out, err := f.filterMessage(context.Background(), "x@y.test", []byte(plainMessage))
	require.NoError(t, err)
	assert.Contains(t, string(out), "X-Spam-Analysis-Error: context deadline exceeded\r\n")
	assert.Contains(t, string(out), "Verify your account")
}

func TestSessionReinjects(t *testing.T) {
	f := NewPostfixFilter(&stubScorer{verdict: hamVerdict()}, nil, PostfixConfig{Headers: testHeaders(), PostfixEnabled: true})

	var sentTo []string
	var sent []byte
	f.send = func(sender string, recipients []string, data []byte) error {
		sentTo = recipients
		sent = data
		return nil
	}

	s := &smtpSession{filter: f}
	require.NoError(t, s.Mail("news@shop.example", nil))
	require.NoError(t, s.Rcpt("you@example.com", nil))
	require.NoError(t, s.Data(strings.NewReader(multipartMessage)))

	assert.Equal(t, []string{"you@example.com"}, sentTo)
	assert.Contains(t, string(sent), "X-Spam-Status: false")

	s.Reset()
	assert.Empty(t, s.recipients)
}

func TestSessionReinjectFailure(t *testing.T) {
	f := NewPostfixFilter(&stubScorer{verdict: hamVerdict()}, nil, PostfixConfig{Headers: testHeaders(), PostfixEnabled: true})
	f.send = func(string, []string, []byte) error { return errors.New("connection refused") }

	s := &smtpSession{filter: f}
	assert.Error(t, s.Data(strings.NewReader(plainMessage)))
}

func TestCliFilterPrintsReport(t *testing.T) {
	age := 12
	cn := "other.example"
	mismatch := true
	verdict := spamVerdict()
	verdict.FirstURL = "http://secure-pay.xyz/login"
	verdict.URL = core.URLReport{
		URLs:     []string{"http://secure-pay.xyz/login"},
		Findings: []core.ExtractedURL{{URL: "http://secure-pay.xyz/login", Host: "secure-pay.xyz", TLD: "xyz", IsSuspiciousTLD: true, PathDepth: 1}},
		Risk:     0.3,
	}
	verdict.Trust = core.TrustReport{Host: "secure-pay.xyz", Domain: "secure-pay.xyz", DomainAgeDays: &age, TLSCommonName: &cn, TLSMismatch: &mismatch, Risk: 0.6}

	f, err := NewCliFilter(&stubScorer{verdict: verdict}, nil, true)
	require.NoError(t, err)
	var out bytes.Buffer
	f.SetOutput(&out)

	got, err := f.ProcessMessage(context.Background(), []byte(plainMessage))
	require.NoError(t, err)
	assert.Same(t, verdict, got)

	text := out.String()
	assert.Contains(t, text, "Subject: Account notice")
	assert.Contains(t, text, "Verdict: Spam")
	assert.Contains(t, text, "Spam: 90.00%")
	assert.Contains(t, text, "Category: Phishing")
	assert.Contains(t, text, "First URL: http://secure-pay.xyz/login")
	assert.Contains(t, text, "SPF: fail  DKIM: fail  DMARC: fail")
	assert.Contains(t, text, "Domain age: 12 days")
	assert.Contains(t, text, "Certificate CN: other.example mismatch=true")
	assert.Contains(t, text, "recently registered domain")
}

func TestCliFilterScoringError(t *testing.T) {
	f, err := NewCliFilter(&stubScorer{err: context.Canceled}, nil, false)
	require.NoError(t, err)
	f.SetOutput(&bytes.Buffer{})

	_, err = f.ProcessMessage(context.Background(), []byte(plainMessage))
	assert.ErrorIs(t, err, context.Canceled)
}
