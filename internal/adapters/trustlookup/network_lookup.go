package trustlookup

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/likexian/whois"
	whoisparser "github.com/likexian/whois-parser"
	"github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"
)

// ErrNoCertificate is returned when a TLS peer presents no certificate
var ErrNoCertificate = errors.New("peer presented no certificate")

// creationLinePattern picks creation dates out of registrar text the parser rejects
var creationLinePattern = regexp.MustCompile(`(?im)^\s*(?:creation date|created(?: on)?|registered(?: on)?|registration time|domain registration date)\s*:\s*(.+?)\s*$`)

// Config holds the lookup timeouts and limits
type Config struct {
	WhoisTimeout time.Duration
	WhoisRetries uint64
	TLSTimeout   time.Duration
	TLSPort      int
}

// NetworkLookup resolves registrar creation dates over WHOIS and TLS common
// names with a direct handshake.
type NetworkLookup struct {
	query     func(domain string) (string, error)
	breaker   *gobreaker.CircuitBreaker
	tlsConfig *tls.Config
	cfg       Config
	logger    *zap.Logger
}

// NewNetworkLookup creates a new network lookup
func NewNetworkLookup(cfg Config, logger *zap.Logger) *NetworkLookup {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TLSPort == 0 {
		cfg.TLSPort = 443
	}
	if cfg.TLSTimeout == 0 {
		cfg.TLSTimeout = 4 * time.Second
	}
	if cfg.WhoisTimeout == 0 {
		cfg.WhoisTimeout = 8 * time.Second
	}

	client := whois.NewClient().SetTimeout(cfg.WhoisTimeout)

	return &NetworkLookup{
		query: func(domain string) (string, error) {
			return client.Whois(domain)
		},
		breaker:   newBreaker(logger),
		tlsConfig: &tls.Config{MinVersion: tls.VersionTLS12},
		cfg:       cfg,
		logger:    logger,
	}
}

func newBreaker(logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "whois",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
}

// CreationDates returns every creation date the registrar reports for
// domain. An empty result means the registrar answered without a date.
func (l *NetworkLookup) CreationDates(ctx context.Context, domain string) ([]string, error) {
	var dates []string

	backoff := retry.WithMaxRetries(l.cfg.WhoisRetries, retry.NewExponential(250*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		out, err := l.breaker.Execute(func() (interface{}, error) {
			return l.whois(ctx, domain)
		})
		if err != nil {
			if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
				return err
			}
			l.logger.Debug("WHOIS query failed, retrying", zap.String("domain", domain), zap.Error(err))
			return retry.RetryableError(err)
		}
		dates = out.([]string)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("whois lookup for %s failed: %w", domain, err)
	}

	return dates, nil
}

func (l *NetworkLookup) whois(ctx context.Context, domain string) ([]string, error) {
	type result struct {
		text string
		err  error
	}
	ch := make(chan result, 1)
	go func() {
		text, err := l.query(domain)
		ch <- result{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.err != nil {
			return nil, res.err
		}
		return ParseCreationDates(res.text)
	}
}

// ParseCreationDates extracts creation dates from raw WHOIS text. Unknown
// or unregistered domains yield no dates; rate limiting is an error.
func ParseCreationDates(text string) ([]string, error) {
	info, err := whoisparser.Parse(text)
	switch {
	case err == nil:
		if info.Domain != nil && strings.TrimSpace(info.Domain.CreatedDate) != "" {
			return []string{info.Domain.CreatedDate}, nil
		}
	case errors.Is(err, whoisparser.ErrDomainLimitExceed):
		return nil, err
	case errors.Is(err, whoisparser.ErrNotFoundDomain):
		return nil, nil
	}

	var dates []string
	for _, m := range creationLinePattern.FindAllStringSubmatch(text, -1) {
		dates = append(dates, m[1])
	}
	return dates, nil
}

// CommonName returns the subject common name of the certificate host presents
func (l *NetworkLookup) CommonName(ctx context.Context, host string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.TLSTimeout)
	defer cancel()

	cfg := l.tlsConfig.Clone()
	cfg.ServerName = host
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: l.cfg.TLSTimeout},
		Config:    cfg,
	}

	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(l.cfg.TLSPort)))
	if err != nil {
		return "", fmt.Errorf("tls handshake with %s failed: %w", host, err)
	}
	defer conn.Close()

	state := conn.(*tls.Conn).ConnectionState()
	if len(state.PeerCertificates) == 0 {
		return "", ErrNoCertificate
	}
	return state.PeerCertificates[0].Subject.CommonName, nil
}
