package probe

import (
	"net/http"
	"time"

	"github.com/Azure/go-ntlmssp"
)

// HTTPDoer is the subset of *http.Client the prober needs. Identities that
// wrap the client (SPNEGO) return their own implementation.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Identity supplies transport-level authentication for probe attempts. The
// prober builds a fresh version-pinned transport for every attempt and hands
// it to the identity, which wraps it into the HTTP client that speaks the
// negotiated auth scheme.
type Identity interface {
	// Name identifies the scheme in logs and errors.
	Name() string

	// Client wraps base into the client used for a single attempt.
	Client(base http.RoundTripper, timeout time.Duration) (HTTPDoer, error)
}

// Anonymous returns the identity used against usernamemixed: the transport
// carries no authentication because the credential rides inside the
// envelope's security header.
func Anonymous() Identity {
	return anonymous{}
}

type anonymous struct{}

func (anonymous) Name() string {
	return "anonymous"
}

func (anonymous) Client(base http.RoundTripper, timeout time.Duration) (HTTPDoer, error) {
	return &http.Client{Transport: base, Timeout: timeout}, nil
}

// NTLM returns an identity that authenticates the transport with NTLM
// message security. It is the way to reach windowstransport from a host that
// is not joined to the target domain.
func NTLM(domain, username, password string) Identity {
	return ntlmIdentity{domain: domain, username: username, password: password}
}

type ntlmIdentity struct {
	domain   string
	username string
	password string
}

func (ntlmIdentity) Name() string {
	return "ntlm"
}

func (n ntlmIdentity) Client(base http.RoundTripper, timeout time.Duration) (HTTPDoer, error) {
	user := n.username
	if n.domain != "" {
		user = n.domain + "\\" + n.username
	}

	return &http.Client{
		Transport: &basicCredTripper{
			user: user,
			pass: n.password,
			next: ntlmssp.Negotiator{RoundTripper: base},
		},
		Timeout: timeout,
	}, nil
}

// basicCredTripper plants the credential that the ntlmssp negotiator reads
// back out of the request's basic Authorization header. It must sit outside
// the negotiator in the chain or the negotiator sees no credential at all.
type basicCredTripper struct {
	user string
	pass string
	next http.RoundTripper
}

func (t *basicCredTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	req.SetBasicAuth(t.user, t.pass)
	return t.next.RoundTrip(req)
}
