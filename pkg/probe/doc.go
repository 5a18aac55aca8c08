// Package probe drives WS-Trust token-issuance attempts across a set of TLS
// protocol versions and reports which versions the endpoint accepts.
//
// # Overview
//
// TLS-version mismatches between a federation server and its clients are a
// classic source of "works from here, fails from there" incidents: the server
// gets hardened to TLS 1.2+, an old client library still offers 1.0, and
// token issuance dies in the handshake before any useful error surfaces.
// The prober makes the failure mode visible by performing the same issuance
// POST once per protocol version, with the version pinned for that attempt
// only.
//
// # Per-attempt isolation
//
// Every attempt gets its own http.Transport whose tls.Config clone pins
// MinVersion == MaxVersion to the attempt's version. The prober's base TLS
// configuration is never mutated, so there is no process-wide protocol state
// to corrupt and nothing to restore afterwards. A failed handshake,
// connection error, or non-2xx status is recorded as that attempt's outcome
// and the loop moves on; every requested version is always attempted.
//
// # Transport identity
//
// The windowstransport endpoint authenticates the transport, not the
// message. Identity implementations cover the ways a probe can present
// itself:
//
//   - Anonymous: no transport auth (usernamemixed, credential in envelope)
//   - CurrentUser: SSPI Negotiate from the Windows logon session
//   - Kerberos: SPNEGO from a MIT-style ticket cache (kinit) off Windows
//   - NTLM: explicit domain credentials, for hosts outside the domain
package probe
