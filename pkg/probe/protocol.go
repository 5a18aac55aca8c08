package probe

import (
	"crypto/tls"
	"fmt"
)

// Protocol identifies a single TLS protocol version to exercise. The values
// are the crypto/tls version constants, so a Protocol can be assigned
// straight into a tls.Config.
type Protocol uint16

const (
	TLS10 Protocol = tls.VersionTLS10
	TLS11 Protocol = tls.VersionTLS11
	TLS12 Protocol = tls.VersionTLS12
	TLS13 Protocol = tls.VersionTLS13
)

// String returns the display name used in logs and the run summary.
func (p Protocol) String() string {
	switch p {
	case TLS10:
		return "TLS 1.0"
	case TLS11:
		return "TLS 1.1"
	case TLS12:
		return "TLS 1.2"
	case TLS13:
		return "TLS 1.3"
	default:
		return fmt.Sprintf("TLS(%#04x)", uint16(p))
	}
}

// DefaultProtocols returns the versions probed when none are selected
// explicitly: TLS 1.0, 1.1 and 1.2, in that order. TLS 1.3 is deliberately
// not part of the default set; federation endpoints that matter for this
// diagnostic are the ones still answering the legacy versions, and 1.3 is
// probed only on request.
func DefaultProtocols() []Protocol {
	return []Protocol{TLS10, TLS11, TLS12}
}

// ProtocolsFromFlags converts per-version selection flags into the probe
// order. Selected versions are always probed in ascending order, regardless
// of the order the flags were given in; with no flag set the default set is
// returned.
func ProtocolsFromFlags(tls10, tls11, tls12, tls13 bool) []Protocol {
	if !tls10 && !tls11 && !tls12 && !tls13 {
		return DefaultProtocols()
	}

	var set []Protocol
	if tls10 {
		set = append(set, TLS10)
	}
	if tls11 {
		set = append(set, TLS11)
	}
	if tls12 {
		set = append(set, TLS12)
	}
	if tls13 {
		set = append(set, TLS13)
	}
	return set
}
