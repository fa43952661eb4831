package trustlookup

import (
	"context"
	"crypto/x509"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const registryRecord = `Domain Name: EXAMPLE.COM
Registry Domain ID: 2336799_DOMAIN_COM-VRSN
Registrar WHOIS Server: whois.iana.org
Updated Date: 2023-08-14T07:01:38Z
Creation Date: 1995-08-14T04:00:00Z
Registry Expiry Date: 2024-08-13T04:00:00Z
Registrar: RESERVED-Internet Assigned Numbers Authority
Name Server: A.IANA-SERVERS.NET
Name Server: B.IANA-SERVERS.NET
`

func TestParseCreationDates(t *testing.T) {
	dates, err := ParseCreationDates(registryRecord)
	require.NoError(t, err)
	assert.Equal(t, []string{"1995-08-14T04:00:00Z"}, dates)
}

func TestParseCreationDatesNotFound(t *testing.T) {
	dates, err := ParseCreationDates("No match for \"NOT-REGISTERED-12345.COM\".\n")
	require.NoError(t, err)
	assert.Empty(t, dates)
}

func TestParseCreationDatesFallbackScan(t *testing.T) {
	dates, err := ParseCreationDates("%% free-form registry\n\ncreated: 2021-02-03\ncreated: 2019-01-01\n")
	require.NoError(t, err)
	assert.Equal(t, []string{"2021-02-03", "2019-01-01"}, dates)
}

func newStubbedLookup(retries uint64, query func(string) (string, error)) *NetworkLookup {
	l := NewNetworkLookup(Config{WhoisRetries: retries, WhoisTimeout: time.Second}, nil)
	l.query = query
	return l
}

func TestCreationDatesRetriesTransientErrors(t *testing.T) {
	var calls atomic.Int32
	l := newStubbedLookup(2, func(domain string) (string, error) {
		if calls.Add(1) < 3 {
			return "", errors.New("connection reset by peer")
		}
		return registryRecord, nil
	})

	dates, err := l.CreationDates(context.Background(), "example.com")
	require.NoError(t, err)
	assert.Equal(t, []string{"1995-08-14T04:00:00Z"}, dates)
	assert.Equal(t, int32(3), calls.Load())
}

func TestCreationDatesBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	l := newStubbedLookup(0, func(domain string) (string, error) {
		calls.Add(1)
		return "", errors.New("i/o timeout")
	})

	for i := 0; i < 5; i++ {
		_, err := l.CreationDates(context.Background(), "example.com")
		assert.Error(t, err)
	}
	_, err := l.CreationDates(context.Background(), "example.com")
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(5), calls.Load())
}

func TestCreationDatesHonorsContext(t *testing.T) {
	l := newStubbedLookup(0, func(domain string) (string, error) {
		time.Sleep(200 * time.Millisecond)
		return registryRecord, nil
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := l.CreationDates(ctx, "example.com")
	assert.Error(t, err)
}

func TestCommonName(t *testing.T) {
	server := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	_, port, err := net.SplitHostPort(server.Listener.Addr().String())
	require.NoError(t, err)
	portNum, err := strconv.Atoi(port)
	require.NoError(t, err)

	pool := x509.NewCertPool()
	pool.AddCert(server.Certificate())

	l := NewNetworkLookup(Config{TLSPort: portNum, TLSTimeout: 2 * time.Second}, nil)
	l.tlsConfig.RootCAs = pool

	cn, err := l.CommonName(context.Background(), "127.0.0.1")
	require.NoError(t, err)
	assert.Equal(t, server.Certificate().Subject.CommonName, cn)
}

func TestCommonNameUnreachable(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := listener.Addr().(*net.TCPAddr).Port
	listener.Close()

	l := NewNetworkLookup(Config{TLSPort: port, TLSTimeout: time.Second}, nil)
	_, err = l.CommonName(context.Background(), "127.0.0.1")
	assert.Error(t, err)
}
