package filter

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-smtp"
	"github.com/google/uuid"
	"github.com/mikey/phish-fusion/internal/core"
	"github.com/mikey/phish-fusion/internal/ports"
	"go.uber.org/zap"
)

// HeaderNames are the header names written on filtered messages
type HeaderNames struct {
	Spam     string
	Score    string
	Category string
	Reason   string
	ID       string
}

// PostfixConfig holds the settings of the Postfix content filter
type PostfixConfig struct {
	ListenAddr     string
	BlockSpam      bool
	Headers        HeaderNames
	PostfixAddr    string
	PostfixPort    int
	PostfixEnabled bool
	SubjectPrefix  string
	ModifySubject  bool
	ScanTimeout    time.Duration
}

// PostfixFilter implements a Postfix content filter
type PostfixFilter struct {
	scorer ports.Scorer
	logger *zap.Logger
	cfg    PostfixConfig
	server *smtp.Server
	send   func(sender string, recipients []string, data []byte) error
}

// NewPostfixFilter creates a new Postfix content filter
func NewPostfixFilter(scorer ports.Scorer, logger *zap.Logger, cfg PostfixConfig) *PostfixFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.SubjectPrefix == "" && cfg.ModifySubject {
		cfg.SubjectPrefix = "[**SPAM**] "
	}
	if cfg.ScanTimeout <= 0 {
		cfg.ScanTimeout = 30 * time.Second
	}

	f := &PostfixFilter{
		scorer: scorer,
		logger: logger,
		cfg:    cfg,
	}
	f.send = f.sendToPostfix
	return f
}

// Start starts the Postfix filter service
func (f *PostfixFilter) Start() error {
	f.server = smtp.NewServer(&smtpBackend{filter: f})

	f.server.Addr = f.cfg.ListenAddr
	f.server.Domain = "localhost"
	f.server.ReadTimeout = 30 * time.Second
	f.server.WriteTimeout = 30 * time.Second
	f.server.MaxMessageBytes = 30 * 1024 * 1024
	f.server.MaxRecipients = 50

	f.logger.Info("Postfix filter starting", zap.String("address", f.cfg.ListenAddr))

	go func() {
		if err := f.server.ListenAndServe(); err != nil && err != smtp.ErrServerClosed {
			f.logger.Error("SMTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop stops the Postfix filter service
func (f *PostfixFilter) Stop() error {
	if f.server != nil {
		return f.server.Close()
	}
	return nil
}

// ProcessMessage scores a raw message without re-injecting it
func (f *PostfixFilter) ProcessMessage(ctx context.Context, raw []byte) (*core.Verdict, error) {
	msg, _, err := splitMessage(raw)
	if err != nil {
		return nil, err
	}
	return f.scorer.Score(ctx, msg)
}

// filterMessage scores raw and returns the message to re-inject, or an
// *smtp.SMTPError when the message is rejected
func (f *PostfixFilter) filterMessage(ctx context.Context, sender string, raw []byte) ([]byte, error) {
	id := uuid.NewString()

	msg, env, err := splitMessage(raw)
	if err != nil {
		f.logger.Error("Failed to parse email message", zap.String("id", id), zap.Error(err))
		return rewriteMessage(raw, []headerField{
			{f.cfg.Headers.ID, id},
			{"X-Spam-Analysis-Error", err.Error()},
		}, ""), nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.cfg.ScanTimeout)
	defer cancel()

	verdict, err := f.scorer.Score(ctx, msg)
	if err != nil {
		// Deliver unscored mail rather than lose it
		f.logger.Error("Failed to score email",
			zap.String("id", id),
			zap.String("sender", sender),
			zap.Error(err))
		return rewriteMessage(raw, []headerField{
			{f.cfg.Headers.ID, id},
			{"X-Spam-Analysis-Error", err.Error()},
		}, ""), nil
	}

	if verdict.IsSpam() && f.cfg.BlockSpam {
		f.logger.Info("Rejecting spam email",
			zap.String("id", id),
			zap.String("sender", sender),
			zap.Float64("spam_percent", verdict.SpamPercent),
			zap.String("category", verdict.Category))
		return nil, &smtp.SMTPError{
			Code:         550,
			EnhancedCode: smtp.EnhancedCode{5, 7, 1},
			Message:      fmt.Sprintf("Rejected as spam (score: %.2f%%)", verdict.SpamPercent),
		}
	}

	fields := []headerField{
		{f.cfg.Headers.Spam, fmt.Sprintf("%t", verdict.IsSpam())},
		{f.cfg.Headers.Score, fmt.Sprintf("%.2f", verdict.SpamPercent)},
		{f.cfg.Headers.Category, verdict.Category},
		{f.cfg.Headers.Reason, reasonText(verdict)},
		{f.cfg.Headers.ID, id},
	}

	subject := ""
	if verdict.IsSpam() && f.cfg.ModifySubject {
		original := env.GetHeader("Subject")
		if !strings.HasPrefix(original, f.cfg.SubjectPrefix) {
			subject = f.cfg.SubjectPrefix + original
		}
	}

	f.logger.Info("Processed email",
		zap.String("id", id),
		zap.String("sender", sender),
		zap.String("label", verdict.Label),
		zap.Float64("spam_percent", verdict.SpamPercent),
		zap.String("category", verdict.Category),
		zap.String("override", verdict.OverrideApplied))

	return rewriteMessage(raw, fields, subject), nil
}

func reasonText(v *core.Verdict) string {
	reasons := v.Reasons()
	if len(reasons) == 0 {
		return "none"
	}
	return strings.Join(reasons, "; ")
}

// sendToPostfix sends the processed email back to Postfix on the configured port using go-smtp
func (f *PostfixFilter) sendToPostfix(sender string, recipients []string, emailData []byte) error {
	postfixAddr := net.JoinHostPort(f.cfg.PostfixAddr, fmt.Sprintf("%d", f.cfg.PostfixPort))

	hostname, err := os.Hostname()
	if err != nil {
		hostname = "localhost"
	}

	conn, err := net.DialTimeout("tcp", postfixAddr, 10*time.Second)
	if err != nil {
		return fmt.Errorf("failed to connect to Postfix: %w", err)
	}

	if err := conn.SetDeadline(time.Now().Add(30 * time.Second)); err != nil {
		conn.Close()
		return fmt.Errorf("failed to set connection deadline: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if err := c.Hello(hostname); err != nil {
		return fmt.Errorf("EHLO failed: %w", err)
	}

	if err := c.Mail(sender, nil); err != nil {
		return fmt.Errorf("MAIL FROM failed: %w", err)
	}

	recipientOK := false
	for _, recipient := range recipients {
		if err := c.Rcpt(recipient, nil); err != nil {
			f.logger.Warn("RCPT TO failed for recipient",
				zap.String("recipient", recipient),
				zap.Error(err))
			continue
		}
		recipientOK = true
	}

	if !recipientOK {
		return fmt.Errorf("all recipients were rejected")
	}

	wc, err := c.Data()
	if err != nil {
		return fmt.Errorf("DATA command failed: %w", err)
	}

	if _, err := wc.Write(emailData); err != nil {
		wc.Close()
		return fmt.Errorf("failed to send email data: %w", err)
	}

	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to close data writer: %w", err)
	}

	// The message is already queued at this point
	if err := c.Quit(); err != nil {
		f.logger.Warn("QUIT command failed", zap.Error(err))
	}

	return nil
}

// smtpBackend implements the go-smtp Backend interface
type smtpBackend struct {
	filter *PostfixFilter
}

// NewSession creates a new SMTP session
func (b *smtpBackend) NewSession(c *smtp.Conn) (smtp.Session, error) {
	return &smtpSession{filter: b.filter}, nil
}

// smtpSession implements the go-smtp Session interface
type smtpSession struct {
	filter     *PostfixFilter
	sender     string
	recipients []string
}

// Reset resets the session state
func (s *smtpSession) Reset() {
	s.sender = ""
	s.recipients = nil
}

// Mail sets the sender address
func (s *smtpSession) Mail(from string, _ *smtp.MailOptions) error {
	s.sender = from
	return nil
}

// Rcpt adds a recipient
func (s *smtpSession) Rcpt(to string, _ *smtp.RcptOptions) error {
	s.recipients = append(s.recipients, to)
	return nil
}

// Data handles the email data
func (s *smtpSession) Data(r io.Reader) error {
	raw, err := io.ReadAll(r)
	if err != nil {
		s.filter.logger.Error("Failed to read message data", zap.Error(err))
		return err
	}

	out, err := s.filter.filterMessage(context.Background(), s.sender, raw)
	if err != nil {
		return err
	}

	if !s.filter.cfg.PostfixEnabled {
		s.filter.logger.Warn("Postfix forwarding disabled, this is likely a misconfiguration")
		return nil
	}

	if err := s.filter.send(s.sender, s.recipients, out); err != nil {
		s.filter.logger.Error("Failed to send email back to Postfix",
			zap.Error(err),
			zap.String("sender", s.sender))
		return err
	}

	return nil
}

// Logout handles SMTP logout
func (s *smtpSession) Logout() error {
	return nil
}
