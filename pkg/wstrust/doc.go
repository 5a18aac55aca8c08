// Package wstrust builds WS-Trust 2005 RequestSecurityToken (RST) envelopes
// for AD FS token issuance and extracts the issued-token document from the
// server's response.
//
// # Overview
//
// An AD FS farm exposes its token-issuance endpoints under
// /adfs/services/trust/2005/. Two of them matter for issuance diagnostics:
//
//   - usernamemixed: the credential travels inside the message as a
//     WS-Security UsernameToken; the transport itself is anonymous HTTPS.
//   - windowstransport: the message carries no credential at all; identity
//     comes from the transport layer (Negotiate/Kerberos/NTLM).
//
// BuildRequest picks the endpoint from whether a credential is supplied and
// renders the matching SOAP 1.2 envelope. The RST body is identical in both
// modes and asks for a SAML 2.0 bearer-style assertion:
//
//	KeySize     0
//	KeyType     http://schemas.xmlsoap.org/ws/2005/05/identity/NoProofKey
//	RequestType http://schemas.xmlsoap.org/ws/2005/02/trust/Issue
//	TokenType   urn:oasis:names:tc:SAML:2.0:assertion
//
// Every caller-supplied value is XML-escaped before interpolation, so
// usernames and passwords containing &, < or quotes cannot break the
// envelope.
//
// ExtractToken is the other half: given the body of a successful issuance
// response it validates that the body parses as XML and returns the complete
// RequestSecurityTokenResponse envelope, unmodified. Claims inspection and
// signature validation are deliberately out of scope.
package wstrust
