//go:build windows
// +build windows

package probe

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alexbrainman/sspi"
	"github.com/alexbrainman/sspi/negotiate"
)

// CurrentUser returns the ambient identity for windowstransport probes on a
// domain-joined host: SSPI Negotiate backed by the calling user's logon
// session, so no explicit credential is needed. Negotiate picks Kerberos
// when a TGT is available and falls back to NTLM otherwise.
func CurrentUser() (Identity, error) {
	cred, err := negotiate.AcquireCurrentUserCredentials()
	if err != nil {
		return nil, fmt.Errorf("acquiring SSPI credentials: %w", err)
	}
	return &sspiIdentity{cred: cred}, nil
}

type sspiIdentity struct {
	cred *sspi.Credentials
}

func (*sspiIdentity) Name() string {
	return "negotiate (current user)"
}

func (s *sspiIdentity) Client(base http.RoundTripper, timeout time.Duration) (HTTPDoer, error) {
	return &http.Client{
		Transport: &sspiTripper{next: base, cred: s.cred},
		Timeout:   timeout,
	}, nil
}

// Close releases the SSPI credential handle.
func (s *sspiIdentity) Close() error {
	if s.cred != nil {
		return s.cred.Release()
	}
	return nil
}

// sspiTripper answers Negotiate challenges with tokens minted from the
// current logon session.
type sspiTripper struct {
	next http.RoundTripper
	cred *sspi.Credentials
}

func (t *sspiTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	resp, err := t.next.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusUnauthorized {
		return resp, nil
	}

	challenge := resp.Header.Get("WWW-Authenticate")
	if challenge != "Negotiate" && !strings.HasPrefix(challenge, "Negotiate ") {
		// Some other scheme; nothing we can answer.
		return resp, nil
	}
	resp.Body.Close()

	secCtx, token, err := negotiate.NewClientContext(t.cred, targetSPN(req))
	if err != nil {
		return nil, fmt.Errorf("creating SSPI context: %w", err)
	}
	defer secCtx.Release()

	leg, err := replayableClone(req)
	if err != nil {
		return nil, err
	}
	leg.Header.Set("Authorization", "Negotiate "+base64.StdEncoding.EncodeToString(token))

	resp, err = t.next.RoundTrip(leg)
	if err != nil {
		return nil, err
	}

	// Kerberos completes in one leg; NTLM-under-Negotiate needs a
	// continuation round.
	if resp.StatusCode == http.StatusUnauthorized {
		challenge = resp.Header.Get("WWW-Authenticate")
		if strings.HasPrefix(challenge, "Negotiate ") {
			serverToken, err := base64.StdEncoding.DecodeString(challenge[len("Negotiate "):])
			if err == nil && len(serverToken) > 0 {
				done, responseToken, err := secCtx.Update(serverToken)
				if err != nil {
					resp.Body.Close()
					return nil, fmt.Errorf("SSPI continuation failed: %w", err)
				}
				if !done && len(responseToken) > 0 {
					resp.Body.Close()
					leg, err := replayableClone(req)
					if err != nil {
						return nil, err
					}
					leg.Header.Set("Authorization", "Negotiate "+base64.StdEncoding.EncodeToString(responseToken))
					return t.next.RoundTrip(leg)
				}
			}
		}
	}

	return resp, nil
}

// replayableClone clones req with a fresh body so the clone can be sent
// after the original leg already consumed the original body.
func replayableClone(req *http.Request) (*http.Request, error) {
	clone := req.Clone(req.Context())
	if req.Body == nil || req.Body == http.NoBody {
		return clone, nil
	}
	if req.GetBody == nil {
		return nil, errors.New("request body cannot be replayed for authentication")
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, fmt.Errorf("replaying request body: %w", err)
	}
	clone.Body = body
	return clone, nil
}

// targetSPN derives the HTTP service principal for the request host.
func targetSPN(req *http.Request) string {
	host := req.Host
	if host == "" {
		host = req.URL.Host
	}
	if idx := strings.LastIndex(host, ":"); idx != -1 {
		port := host[idx+1:]
		numeric := port != ""
		for _, c := range port {
			if c < '0' || c > '9' {
				numeric = false
				break
			}
		}
		if numeric {
			host = host[:idx]
		}
	}
	return "HTTP/" + host
}
