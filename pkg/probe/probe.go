package probe

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ErrNoSuccessfulProbe reports that every requested protocol version failed.
// The per-version detail lives in the returned results.
var ErrNoSuccessfulProbe = errors.New("no TLS protocol version produced a token")

// DefaultTimeout bounds a single attempt end to end, handshake included.
const DefaultTimeout = 30 * time.Second

const soapContentType = "application/soap+xml; charset=utf-8"

// Response is one successful issuance reply, fully read and detached from
// the connection it arrived on.
type Response struct {
	Protocol   Protocol
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// Result records the outcome of a single protocol attempt. Exactly one of
// Response and Err is set.
type Result struct {
	Protocol Protocol
	Response *Response
	Err      error
	Duration time.Duration
}

// Succeeded reports whether the attempt produced an issuance response.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Prober performs the issuance POST once per TLS protocol version. Attempts
// are isolated: each one gets its own transport with the version pinned, and
// a failure is recorded without disturbing the attempts that follow.
type Prober struct {
	identity Identity
	timeout  time.Duration
	baseTLS  *tls.Config
	insecure bool
	log      zerolog.Logger
}

// Option configures a Prober.
type Option func(*Prober)

// WithIdentity selects the transport authentication for all attempts.
// The default is Anonymous.
func WithIdentity(id Identity) Option {
	return func(p *Prober) {
		p.identity = id
	}
}

// WithTimeout bounds each attempt. Zero disables the per-attempt timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Prober) {
		p.timeout = d
	}
}

// WithTLSConfig supplies the base TLS configuration (roots, client certs,
// ServerName). The prober clones it for every attempt before pinning the
// version; the value passed in is never mutated.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(p *Prober) {
		p.baseTLS = cfg
	}
}

// WithInsecureSkipVerify disables certificate verification on every attempt.
// Lab use only.
func WithInsecureSkipVerify(skip bool) Option {
	return func(p *Prober) {
		p.insecure = skip
	}
}

// WithLogger sets the logger for per-attempt progress. The default discards
// everything.
func WithLogger(log zerolog.Logger) Option {
	return func(p *Prober) {
		p.log = log
	}
}

// New returns a Prober ready to run with the given options.
func New(opts ...Option) *Prober {
	p := &Prober{
		identity: Anonymous(),
		timeout:  DefaultTimeout,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Probe POSTs envelope to endpoint once per protocol version, in the order
// given, and never aborts the loop on failure: a version that cannot
// handshake or gets a fault back is recorded and the next one is tried.
// An empty protocols slice means DefaultProtocols.
//
// It returns one Result per attempt plus the response of the last
// successful attempt, or ErrNoSuccessfulProbe when there was none.
func (p *Prober) Probe(ctx context.Context, endpoint, envelope string, protocols []Protocol) ([]Result, *Response, error) {
	if len(protocols) == 0 {
		protocols = DefaultProtocols()
	}

	p.log.Debug().
		Str("endpoint", endpoint).
		Str("identity", p.identity.Name()).
		Int("envelope_bytes", len(envelope)).
		Int("versions", len(protocols)).
		Msg("starting probe run")

	results := make([]Result, 0, len(protocols))
	var last *Response
	for _, proto := range protocols {
		start := time.Now()
		resp, err := p.attempt(ctx, endpoint, envelope, proto)
		elapsed := time.Since(start)

		if err != nil {
			p.log.Warn().
				Err(err).
				Stringer("protocol", proto).
				Dur("elapsed", elapsed).
				Msg("token request failed")
		} else {
			p.log.Info().
				Stringer("protocol", proto).
				Int("status", resp.StatusCode).
				Int("bytes", len(resp.Body)).
				Dur("elapsed", elapsed).
				Msg("token issued")
			last = resp
		}

		results = append(results, Result{
			Protocol: proto,
			Response: resp,
			Err:      err,
			Duration: elapsed,
		})
	}

	if last == nil {
		return results, nil, fmt.Errorf("%w (%d attempted)", ErrNoSuccessfulProbe, len(results))
	}
	return results, last, nil
}

// attempt sends one POST with the TLS version pinned for its duration.
func (p *Prober) attempt(ctx context.Context, endpoint, envelope string, proto Protocol) (*Response, error) {
	transport := &http.Transport{
		Proxy:           http.ProxyFromEnvironment,
		TLSClientConfig: p.tlsConfig(proto),
	}
	defer transport.CloseIdleConnections()

	client, err := p.identity.Client(transport, p.timeout)
	if err != nil {
		return nil, fmt.Errorf("preparing %s client: %w", p.identity.Name(), err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(envelope))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", soapContentType)

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if s := snippet(body); s != "" {
			return nil, fmt.Errorf("server returned %s: %s", resp.Status, s)
		}
		return nil, fmt.Errorf("server returned %s", resp.Status)
	}
	if len(body) == 0 {
		return nil, errors.New("server returned an empty body")
	}

	return &Response{
		Protocol:   proto,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header.Clone(),
		Body:       body,
	}, nil
}

// tlsConfig clones the base configuration and pins it to a single protocol
// version. The base value stays untouched across the whole run.
func (p *Prober) tlsConfig(proto Protocol) *tls.Config {
	cfg := &tls.Config{}
	if p.baseTLS != nil {
		cfg = p.baseTLS.Clone()
	}
	cfg.MinVersion = uint16(proto)
	cfg.MaxVersion = uint16(proto)
	if p.insecure {
		cfg.InsecureSkipVerify = true
	}
	return cfg
}

// snippet flattens a response body into a single short line for error
// messages. SOAP faults are verbose; the fault code sits in the first few
// words.
func snippet(body []byte) string {
	s := strings.Join(strings.Fields(string(body)), " ")
	const max = 160
	if len(s) > max {
		s = s[:max] + "..."
	}
	return s
}
