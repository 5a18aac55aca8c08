package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testEnvelope = `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body/></s:Envelope>`

// recorder captures what the server saw, request by request.
type recorder struct {
	mu          sync.Mutex
	methods     []string
	contentType []string
	bodies      []string
}

func (rec *recorder) observe(r *http.Request, body []byte) {
	rec.mu.Lock()
	defer rec.mu.Unlock()
	rec.methods = append(rec.methods, r.Method)
	rec.contentType = append(rec.contentType, r.Header.Get("Content-Type"))
	rec.bodies = append(rec.bodies, string(body))
}

// issuanceHandler answers every request with a body naming the TLS version
// the connection actually negotiated.
func issuanceHandler(rec *recorder) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if rec != nil {
			rec.observe(r, body)
		}
		fmt.Fprintf(w, "<issued version=%q/>", Protocol(r.TLS.Version).String())
	})
}

// newTLSServer starts a TLS test server accepting the given version range.
// Servers default to a 1.2 floor these days, so the floor is explicit.
func newTLSServer(t *testing.T, min, max uint16, handler http.Handler) *httptest.Server {
	t.Helper()
	srv := httptest.NewUnstartedServer(handler)
	srv.TLS = &tls.Config{MinVersion: min, MaxVersion: max}
	srv.StartTLS()
	t.Cleanup(srv.Close)
	return srv
}

func TestProbePinsVersionPerAttempt(t *testing.T) {
	srv := newTLSServer(t, tls.VersionTLS10, tls.VersionTLS13, issuanceHandler(nil))

	p := New(WithInsecureSkipVerify(true))
	results, last, err := p.Probe(context.Background(), srv.URL, testEnvelope, []Protocol{TLS10, TLS11, TLS12})
	require.NoError(t, err)
	require.Len(t, results, 3)

	for i, want := range []Protocol{TLS10, TLS11, TLS12} {
		res := results[i]
		require.True(t, res.Succeeded(), "attempt %s failed: %v", want, res.Err)
		assert.Equal(t, want, res.Protocol)
		assert.Equal(t, fmt.Sprintf("<issued version=%q/>", want.String()), string(res.Response.Body),
			"server negotiated a different version than the attempt pinned")
	}

	require.NotNil(t, last)
	assert.Equal(t, TLS12, last.Protocol)
	assert.Equal(t, results[2].Response, last)
}

func TestProbeContinuesPastHandshakeFailures(t *testing.T) {
	// Server refuses anything below 1.2; the first two attempts must fail
	// without cutting the run short.
	srv := newTLSServer(t, tls.VersionTLS12, tls.VersionTLS12, issuanceHandler(nil))

	p := New(WithInsecureSkipVerify(true))
	results, last, err := p.Probe(context.Background(), srv.URL, testEnvelope, DefaultProtocols())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Error(t, results[0].Err)
	assert.Error(t, results[1].Err)
	require.True(t, results[2].Succeeded(), "TLS 1.2 attempt failed: %v", results[2].Err)

	require.NotNil(t, last)
	assert.Equal(t, TLS12, last.Protocol)
}

func TestProbeKeepsLatestSuccess(t *testing.T) {
	// Server tops out at 1.1, so the run ends on a failure; the reported
	// response must still be the newest version that worked.
	srv := newTLSServer(t, tls.VersionTLS10, tls.VersionTLS11, issuanceHandler(nil))

	p := New(WithInsecureSkipVerify(true))
	results, last, err := p.Probe(context.Background(), srv.URL, testEnvelope, DefaultProtocols())
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.True(t, results[0].Succeeded())
	assert.True(t, results[1].Succeeded())
	assert.Error(t, results[2].Err)

	require.NotNil(t, last)
	assert.Equal(t, TLS11, last.Protocol)
	assert.Equal(t, results[1].Response, last)
}

func TestProbeAllAttemptsFail(t *testing.T) {
	srv := newTLSServer(t, tls.VersionTLS13, tls.VersionTLS13, issuanceHandler(nil))

	p := New(WithInsecureSkipVerify(true))
	results, last, err := p.Probe(context.Background(), srv.URL, testEnvelope, []Protocol{TLS10, TLS11})
	require.ErrorIs(t, err, ErrNoSuccessfulProbe)
	assert.Nil(t, last)
	require.Len(t, results, 2, "every requested version must still be attempted")
	for _, res := range results {
		assert.Error(t, res.Err)
		assert.Nil(t, res.Response)
	}
}

func TestProbeSoapFaultIsFailure(t *testing.T) {
	const fault = `<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope"><s:Body><s:Fault><s:Code><s:Value>s:Sender</s:Value></s:Code></s:Fault></s:Body></s:Envelope>`
	srv := newTLSServer(t, tls.VersionTLS12, tls.VersionTLS12, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, fault)
	}))

	p := New(WithInsecureSkipVerify(true))
	results, last, err := p.Probe(context.Background(), srv.URL, testEnvelope, []Protocol{TLS12})
	require.ErrorIs(t, err, ErrNoSuccessfulProbe)
	assert.Nil(t, last)
	require.Len(t, results, 1)
	assert.ErrorContains(t, results[0].Err, "500")
	assert.ErrorContains(t, results[0].Err, "Fault")
}

func TestProbeEmptyBodyIsFailure(t *testing.T) {
	srv := newTLSServer(t, tls.VersionTLS12, tls.VersionTLS12, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	p := New(WithInsecureSkipVerify(true))
	results, _, err := p.Probe(context.Background(), srv.URL, testEnvelope, []Protocol{TLS12})
	require.ErrorIs(t, err, ErrNoSuccessfulProbe)
	require.Len(t, results, 1)
	assert.ErrorContains(t, results[0].Err, "empty body")
}

func TestProbeSendsEnvelopeAsSOAP(t *testing.T) {
	rec := &recorder{}
	srv := newTLSServer(t, tls.VersionTLS12, tls.VersionTLS12, issuanceHandler(rec))

	p := New(WithInsecureSkipVerify(true))
	_, _, err := p.Probe(context.Background(), srv.URL, testEnvelope, []Protocol{TLS12})
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.bodies, 1)
	assert.Equal(t, testEnvelope, rec.bodies[0])
	assert.Equal(t, "POST", rec.methods[0])
	assert.Equal(t, "application/soap+xml; charset=utf-8", rec.contentType[0])
}

func TestProbeEmptyProtocolSetUsesDefault(t *testing.T) {
	srv := newTLSServer(t, tls.VersionTLS10, tls.VersionTLS12, issuanceHandler(nil))

	p := New(WithInsecureSkipVerify(true))
	results, last, err := p.Probe(context.Background(), srv.URL, testEnvelope, nil)
	require.NoError(t, err)
	require.Len(t, results, len(DefaultProtocols()))
	for i, want := range DefaultProtocols() {
		assert.Equal(t, want, results[i].Protocol)
	}
	require.NotNil(t, last)
	assert.Equal(t, TLS12, last.Protocol)
}

func TestProbeLeavesBaseTLSConfigAlone(t *testing.T) {
	base := &tls.Config{InsecureSkipVerify: true}
	srv := newTLSServer(t, tls.VersionTLS10, tls.VersionTLS12, issuanceHandler(nil))

	p := New(WithTLSConfig(base))
	_, _, err := p.Probe(context.Background(), srv.URL, testEnvelope, DefaultProtocols())
	require.NoError(t, err)

	assert.Zero(t, base.MinVersion, "base config must not inherit a pinned floor")
	assert.Zero(t, base.MaxVersion, "base config must not inherit a pinned ceiling")
	assert.True(t, base.InsecureSkipVerify)
}

func TestProbeCanceledContext(t *testing.T) {
	srv := newTLSServer(t, tls.VersionTLS10, tls.VersionTLS12, issuanceHandler(nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := New(WithInsecureSkipVerify(true))
	results, last, err := p.Probe(ctx, srv.URL, testEnvelope, DefaultProtocols())
	require.ErrorIs(t, err, ErrNoSuccessfulProbe)
	assert.Nil(t, last)
	require.Len(t, results, len(DefaultProtocols()))
	for _, res := range results {
		assert.ErrorIs(t, res.Err, context.Canceled)
	}
}
