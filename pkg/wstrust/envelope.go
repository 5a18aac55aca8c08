package wstrust

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidArgument reports caller input that cannot form a valid request:
// an empty or non-bare federation host, an empty relying-party identifier,
// or a credential without a username.
var ErrInvalidArgument = errors.New("wstrust: invalid argument")

// Mode identifies which trust/2005 endpoint a request targets.
type Mode int

const (
	// ModeWindowsTransport carries no credential in the message; the
	// transport supplies the caller's identity.
	ModeWindowsTransport Mode = iota

	// ModeUsernameMixed embeds a UsernameToken in the security header over
	// an otherwise anonymous transport.
	ModeUsernameMixed
)

// String returns the endpoint's conventional short name.
func (m Mode) String() string {
	if m == ModeUsernameMixed {
		return "usernamemixed"
	}
	return "windowstransport"
}

// EndpointPath returns the AD FS service path for the mode.
func (m Mode) EndpointPath() string {
	if m == ModeUsernameMixed {
		return "/adfs/services/trust/2005/usernamemixed"
	}
	return "/adfs/services/trust/2005/windowstransport"
}

// Request is a rendered token request: the endpoint to POST to and the RST
// envelope to send. The envelope is a complete, immutable XML document.
type Request struct {
	Endpoint string
	Envelope string
	Mode     Mode
}

// The two envelope templates mirror the messages AD FS itself emits for these
// bindings. Interpolated fields, in order:
//
//	usernamemixed:    messageID, endpoint, tokenID, username, password, appliesTo
//	windowstransport: messageID, endpoint, appliesTo
//
// messageID and tokenID are generated per request; the rest are escaped
// caller input.
const usernameMixedEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope" xmlns:a="http://www.w3.org/2005/08/addressing" xmlns:u="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-utility-1.0.xsd">
  <s:Header>
    <a:Action s:mustUnderstand="1">http://schemas.xmlsoap.org/ws/2005/02/trust/RST/Issue</a:Action>
    <a:MessageID>urn:uuid:%s</a:MessageID>
    <a:ReplyTo>
      <a:Address>http://www.w3.org/2005/08/addressing/anonymous</a:Address>
    </a:ReplyTo>
    <a:To s:mustUnderstand="1">%s</a:To>
    <o:Security s:mustUnderstand="1" xmlns:o="http://docs.oasis-open.org/wss/2004/01/oasis-200401-wss-wssecurity-secext-1.0.xsd">
      <o:UsernameToken u:Id="uuid-%s">
        <o:Username>%s</o:Username>
        <o:Password>%s</o:Password>
      </o:UsernameToken>
    </o:Security>
  </s:Header>
  <s:Body>
    <trust:RequestSecurityToken xmlns:trust="http://schemas.xmlsoap.org/ws/2005/02/trust">
      <wsp:AppliesTo xmlns:wsp="http://schemas.xmlsoap.org/ws/2004/09/policy">
        <a:EndpointReference>
          <a:Address>%s</a:Address>
        </a:EndpointReference>
      </wsp:AppliesTo>
      <trust:KeySize>0</trust:KeySize>
      <trust:KeyType>http://schemas.xmlsoap.org/ws/2005/05/identity/NoProofKey</trust:KeyType>
      <trust:RequestType>http://schemas.xmlsoap.org/ws/2005/02/trust/Issue</trust:RequestType>
      <trust:TokenType>urn:oasis:names:tc:SAML:2.0:assertion</trust:TokenType>
    </trust:RequestSecurityToken>
  </s:Body>
</s:Envelope>`

const windowsTransportEnvelope = `<?xml version="1.0" encoding="UTF-8"?>
<s:Envelope xmlns:s="http://www.w3.org/2003/05/soap-envelope" xmlns:a="http://www.w3.org/2005/08/addressing">
  <s:Header>
    <a:Action s:mustUnderstand="1">http://schemas.xmlsoap.org/ws/2005/02/trust/RST/Issue</a:Action>
    <a:MessageID>urn:uuid:%s</a:MessageID>
    <a:ReplyTo>
      <a:Address>http://www.w3.org/2005/08/addressing/anonymous</a:Address>
    </a:ReplyTo>
    <a:To s:mustUnderstand="1">%s</a:To>
  </s:Header>
  <s:Body>
    <trust:RequestSecurityToken xmlns:trust="http://schemas.xmlsoap.org/ws/2005/02/trust">
      <wsp:AppliesTo xmlns:wsp="http://schemas.xmlsoap.org/ws/2004/09/policy">
        <a:EndpointReference>
          <a:Address>%s</a:Address>
        </a:EndpointReference>
      </wsp:AppliesTo>
      <trust:KeySize>0</trust:KeySize>
      <trust:KeyType>http://schemas.xmlsoap.org/ws/2005/05/identity/NoProofKey</trust:KeyType>
      <trust:RequestType>http://schemas.xmlsoap.org/ws/2005/02/trust/Issue</trust:RequestType>
      <trust:TokenType>urn:oasis:names:tc:SAML:2.0:assertion</trust:TokenType>
    </trust:RequestSecurityToken>
  </s:Body>
</s:Envelope>`

// BuildRequest renders the RST envelope and endpoint URL for one issuance
// attempt. A non-nil cred selects the usernamemixed endpoint and embeds the
// credential in the security header; nil selects windowstransport and leaves
// authentication to the transport. No network I/O happens here.
func BuildRequest(host, appliesTo string, cred *Credential) (Request, error) {
	if err := validateHost(host); err != nil {
		return Request{}, err
	}
	if appliesTo == "" {
		return Request{}, fmt.Errorf("%w: relying party identifier (appliesTo) is empty", ErrInvalidArgument)
	}
	if cred != nil && cred.Username == "" {
		return Request{}, fmt.Errorf("%w: credential has an empty username", ErrInvalidArgument)
	}

	mode := ModeWindowsTransport
	if cred != nil {
		mode = ModeUsernameMixed
	}
	endpoint := "https://" + host + mode.EndpointPath()
	messageID := uuid.NewString()

	var envelope string
	if cred != nil {
		envelope = fmt.Sprintf(usernameMixedEnvelope,
			messageID,
			xmlEscape(endpoint),
			uuid.NewString(),
			xmlEscape(cred.Username),
			xmlEscape(cred.Password),
			xmlEscape(appliesTo),
		)
	} else {
		envelope = fmt.Sprintf(windowsTransportEnvelope,
			messageID,
			xmlEscape(endpoint),
			xmlEscape(appliesTo),
		)
	}

	return Request{Endpoint: endpoint, Envelope: envelope, Mode: mode}, nil
}

func validateHost(host string) error {
	switch {
	case host == "":
		return fmt.Errorf("%w: federation server host is empty", ErrInvalidArgument)
	case strings.Contains(host, "/"):
		return fmt.Errorf("%w: federation server must be a bare host[:port], not a URL: %q", ErrInvalidArgument, host)
	case strings.ContainsAny(host, " \t\r\n"):
		return fmt.Errorf("%w: federation server host contains whitespace: %q", ErrInvalidArgument, host)
	}
	return nil
}

// xmlEscaper covers the five predefined XML entities. Templates place caller
// input in element text, where this set is sufficient for well-formedness.
var xmlEscaper = strings.NewReplacer(
	"&", "&amp;",
	"<", "&lt;",
	">", "&gt;",
	`"`, "&quot;",
	"'", "&apos;",
)

func xmlEscape(s string) string {
	return xmlEscaper.Replace(s)
}
